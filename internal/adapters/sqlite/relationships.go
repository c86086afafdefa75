package sqlite

import (
	"context"
	"fmt"

	"github.com/DamonFriedberg/Hydrus-Python-API/internal/domain"
)

// candidatesQuery derives validity from the facts at query time:
// not blocked, and either not private or followed.
const candidatesQuery = `
SELECT
    a.account_id,
    a.priority,
    a.auth_token,
    a.csrf_token,
    a.bearer_token,
    NOT EXISTS (
        SELECT 1 FROM blocks b
        WHERE b.account_id = a.account_id AND b.target_id = ?1
    )
    AND (
        NOT EXISTS (SELECT 1 FROM privates p WHERE p.target_id = ?1)
        OR EXISTS (
            SELECT 1 FROM follows f
            WHERE f.account_id = a.account_id AND f.target_id = ?1
        )
    ) AS validity
FROM accounts a
ORDER BY validity DESC, a.priority ASC`

func (s *Store) exec(ctx context.Context, what, query string, args ...any) error {
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to %s: %w", what, err)
	}
	return nil
}

func (s *Store) AssertBlock(ctx context.Context, accountID int64, targetID string) error {
	return s.exec(ctx, "assert block",
		`INSERT INTO blocks (account_id, target_id) VALUES (?, ?) ON CONFLICT DO NOTHING`,
		accountID, targetID)
}

func (s *Store) RetractBlock(ctx context.Context, accountID int64, targetID string) error {
	return s.exec(ctx, "retract block",
		`DELETE FROM blocks WHERE account_id = ? AND target_id = ?`,
		accountID, targetID)
}

func (s *Store) AssertPrivate(ctx context.Context, targetID string) error {
	return s.exec(ctx, "assert private",
		`INSERT INTO privates (target_id) VALUES (?) ON CONFLICT DO NOTHING`,
		targetID)
}

func (s *Store) RetractPrivate(ctx context.Context, targetID string) error {
	return s.exec(ctx, "retract private",
		`DELETE FROM privates WHERE target_id = ?`,
		targetID)
}

func (s *Store) AssertFollow(ctx context.Context, accountID int64, targetID string) error {
	return s.exec(ctx, "assert follow",
		`INSERT INTO follows (account_id, target_id) VALUES (?, ?) ON CONFLICT DO NOTHING`,
		accountID, targetID)
}

func (s *Store) RetractFollow(ctx context.Context, accountID int64, targetID string) error {
	return s.exec(ctx, "retract follow",
		`DELETE FROM follows WHERE account_id = ? AND target_id = ?`,
		accountID, targetID)
}

func (s *Store) CandidatesFor(ctx context.Context, targetID string) ([]domain.Candidate, error) {
	rows, err := s.db.QueryContext(ctx, candidatesQuery, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer rows.Close()

	var candidates []domain.Candidate
	for rows.Next() {
		var c domain.Candidate
		a := &c.Account
		if err := rows.Scan(&a.ID, &a.Priority, &a.Credentials.AuthToken, &a.Credentials.CSRFToken, &a.Credentials.BearerToken, &c.Valid); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}
