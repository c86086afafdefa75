package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/DamonFriedberg/Hydrus-Python-API/internal/domain"
	"github.com/DamonFriedberg/Hydrus-Python-API/internal/ports"
)

func (s *Store) TargetID(ctx context.Context, name string) (string, error) {
	var targetID string
	err := s.db.QueryRowContext(ctx,
		`SELECT target_id FROM identities WHERE display_name = ?`,
		domain.NormalizeName(name),
	).Scan(&targetID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrCacheMiss
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up identity: %w", err)
	}
	return targetID, nil
}

func (s *Store) PutTargetID(ctx context.Context, name, targetID string) error {
	return s.exec(ctx, "store identity",
		`INSERT INTO identities (display_name, target_id) VALUES (?, ?)
		 ON CONFLICT (display_name) DO UPDATE SET target_id = excluded.target_id`,
		domain.NormalizeName(name), targetID)
}

func (s *Store) ListIdentities(ctx context.Context) ([]ports.Identity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT display_name, target_id FROM identities ORDER BY display_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list identities: %w", err)
	}
	defer rows.Close()

	var identities []ports.Identity
	for rows.Next() {
		var id ports.Identity
		if err := rows.Scan(&id.Name, &id.TargetID); err != nil {
			return nil, fmt.Errorf("failed to scan identity: %w", err)
		}
		identities = append(identities, id)
	}
	return identities, rows.Err()
}

func (s *Store) ClearIdentities(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM identities`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear identities: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to clear identities: %w", err)
	}
	return int(n), nil
}
