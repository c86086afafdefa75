package sqlite

import (
	"context"
	"fmt"

	"github.com/DamonFriedberg/Hydrus-Python-API/internal/domain"
)

func (s *Store) AddAccount(ctx context.Context, priority int, creds domain.Credentials) (*domain.Account, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (priority, auth_token, csrf_token, bearer_token) VALUES (?, ?, ?, ?)`,
		priority, creds.AuthToken, creds.CSRFToken, creds.BearerToken,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert account: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read account id: %w", err)
	}

	return &domain.Account{ID: id, Priority: priority, Credentials: creds}, nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT account_id, priority, auth_token, csrf_token, bearer_token
		 FROM accounts
		 ORDER BY priority ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var a domain.Account
		if err := rows.Scan(&a.ID, &a.Priority, &a.Credentials.AuthToken, &a.Credentials.CSRFToken, &a.Credentials.BearerToken); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (s *Store) RemoveAccount(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE account_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if n == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (s *Store) CountAccounts(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT count(1) FROM accounts`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count accounts: %w", err)
	}
	return count, nil
}
