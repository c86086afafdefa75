package ports

import (
	"context"

	"github.com/DamonFriedberg/Hydrus-Python-API/internal/domain"
)

// AccountStore holds the configured accounts.
type AccountStore interface {
	// AddAccount inserts an account after validating its credentials
	AddAccount(ctx context.Context, priority int, creds domain.Credentials) (*domain.Account, error)

	// ListAccounts returns every account ordered by ascending priority
	ListAccounts(ctx context.Context) ([]domain.Account, error)

	// RemoveAccount deletes an account and its relationship facts
	RemoveAccount(ctx context.Context, id int64) error

	// CountAccounts returns the number of configured accounts
	CountAccounts(ctx context.Context) (int, error)
}

// RelationshipStore holds block/private/follow facts. Every assert and
// retract is a durable write; asserting an existing fact is a no-op.
type RelationshipStore interface {
	AssertBlock(ctx context.Context, accountID int64, targetID string) error
	RetractBlock(ctx context.Context, accountID int64, targetID string) error
	AssertPrivate(ctx context.Context, targetID string) error
	RetractPrivate(ctx context.Context, targetID string) error
	AssertFollow(ctx context.Context, accountID int64, targetID string) error
	RetractFollow(ctx context.Context, accountID int64, targetID string) error

	// CandidatesFor returns every account with its validity for the target,
	// valid first, then by ascending priority. Validity is derived from the
	// facts at query time.
	CandidatesFor(ctx context.Context, targetID string) ([]domain.Candidate, error)
}

// Identity is one display name mapping
type Identity struct {
	Name     string
	TargetID string
}

// IdentityStore maps display names to target ids, last write wins.
type IdentityStore interface {
	// TargetID returns domain.ErrCacheMiss when the name is unknown
	TargetID(ctx context.Context, name string) (string, error)
	PutTargetID(ctx context.Context, name, targetID string) error
	ListIdentities(ctx context.Context) ([]Identity, error)
	ClearIdentities(ctx context.Context) (int, error)
}

// Store is the full persistence collaborator
type Store interface {
	AccountStore
	RelationshipStore
	IdentityStore
	Close() error
}
