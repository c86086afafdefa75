package ports

import (
	"context"
	"encoding/json"

	"github.com/DamonFriedberg/Hydrus-Python-API/internal/domain"
)

// LookupStatus is the envelope-level outcome of an upstream query,
// decided before the result variant is looked at.
type LookupStatus int

const (
	// StatusFound means a result object was returned
	StatusFound LookupStatus = iota
	// StatusMissing means the upstream reported no such entity (empty data)
	StatusMissing
	// StatusWithheld means the entity exists but its data was withheld from this account
	StatusWithheld
)

func (s LookupStatus) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusMissing:
		return "missing"
	case StatusWithheld:
		return "withheld"
	default:
		return "unknown"
	}
}

// UserLookup is the decoded response of an identity lookup
type UserLookup struct {
	Status  LookupStatus
	Result  domain.RawItem // the user result, variant-tagged
	ID      string         // rest id, set when Result is an ordinary user
	Signals domain.Signals // visibility signals, set when Result is an ordinary user
}

// MediaTimeline is the decoded response of one media listing page
type MediaTimeline struct {
	Status       LookupStatus
	Result       domain.RawItem // the owning user result, variant-tagged
	Items        []domain.RawItem
	BottomCursor string
	Raw          json.RawMessage // the undecoded response body
}

// ItemLookup is the decoded response of a single-item lookup
type ItemLookup struct {
	Status LookupStatus
	Result domain.RawItem
	Raw    json.RawMessage // the undecoded response body
}

// Upstream is the internal query API the engine federates requests across.
// Implementations return domain.ErrRateLimited for rate-limit responses and
// errors matching domain.ErrNetworkFailure for transport or status failures.
type Upstream interface {
	// UserByScreenName resolves a display name to a user result
	UserByScreenName(ctx context.Context, creds domain.Credentials, name string) (*UserLookup, error)

	// UserByRestID looks up a user by stable id, as seen by the given account
	UserByRestID(ctx context.Context, creds domain.Credentials, targetID string) (*UserLookup, error)

	// UserMedia fetches one page of the target's media timeline; cursor may be empty
	UserMedia(ctx context.Context, creds domain.Credentials, targetID, cursor string) (*MediaTimeline, error)

	// ItemByRestID fetches a single item by id
	ItemByRestID(ctx context.Context, creds domain.Credentials, itemID string) (*ItemLookup, error)
}
