package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/DamonFriedberg/Hydrus-Python-API/internal/domain"
	"github.com/DamonFriedberg/Hydrus-Python-API/internal/normalize"
	"github.com/DamonFriedberg/Hydrus-Python-API/internal/ports"
)

// Prober refreshes one account's relationship facts for a target
type Prober struct {
	upstream      ports.Upstream
	relationships ports.RelationshipStore
	suppression   ports.SuppressionTracker
	normalizer    *normalize.Normalizer
	timeout       time.Duration
}

// NewProber creates a visibility prober. timeout bounds each upstream call.
func NewProber(
	upstream ports.Upstream,
	relationships ports.RelationshipStore,
	suppression ports.SuppressionTracker,
	normalizer *normalize.Normalizer,
	timeout time.Duration,
) *Prober {
	return &Prober{
		upstream:      upstream,
		relationships: relationships,
		suppression:   suppression,
		normalizer:    normalizer,
		timeout:       timeout,
	}
}

// Apply writes the facts the signals assert or retract. Each fact is set
// independently of the others.
func (p *Prober) Apply(ctx context.Context, accountID int64, targetID string, signals domain.Signals) error {
	facts := signals.Facts()

	var err error
	if facts.Blocked {
		err = p.relationships.AssertBlock(ctx, accountID, targetID)
	} else {
		err = p.relationships.RetractBlock(ctx, accountID, targetID)
	}
	if err != nil {
		return err
	}

	if facts.Private {
		err = p.relationships.AssertPrivate(ctx, targetID)
	} else {
		err = p.relationships.RetractPrivate(ctx, targetID)
	}
	if err != nil {
		return err
	}

	if facts.Follows {
		return p.relationships.AssertFollow(ctx, accountID, targetID)
	}
	return p.relationships.RetractFollow(ctx, accountID, targetID)
}

// Probe looks the target up as account, updates the relationship store and
// reports whether the account can see the target's content.
//
// A rate-limited account is suppressed and the error returned instead of a
// verdict. ErrNotFound means the target does not exist; ErrInvisible means
// the upstream withheld the target without revealing any signals.
func (p *Prober) Probe(ctx context.Context, account domain.Account, targetID string) (bool, error) {
	callCtx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	lookup, err := p.upstream.UserByRestID(callCtx, account.Credentials, targetID)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		err = callError(ctx, err)
		if isRateLimited(err) {
			p.suppression.Suppress(account.ID)
			slog.WarnContext(ctx, "account rate limited during probe",
				"account_id", account.ID,
				"target_id", targetID,
			)
		}
		return false, err
	}

	switch lookup.Status {
	case ports.StatusMissing:
		return false, domain.ErrNotFound
	case ports.StatusWithheld:
		return false, domain.ErrInvisible
	}

	if lookup.Result.Typename != userTypename {
		out := p.normalizer.Classify(ctx, lookup.Result, normalize.Scope{TargetID: targetID, AccountID: account.ID})
		if out.Kind == normalize.Unavailable {
			return false, &domain.UnavailableError{Reason: out.Reason}
		}
		return false, fmt.Errorf("%w: probe returned %q", domain.ErrMalformed, lookup.Result.Typename)
	}

	if err := p.Apply(ctx, account.ID, targetID, lookup.Signals); err != nil {
		return false, fmt.Errorf("failed to update relationship facts: %w", err)
	}

	visible := lookup.Signals.Visible()
	slog.DebugContext(ctx, "probed visibility",
		"account_id", account.ID,
		"target_id", targetID,
		"visible", visible,
	)
	return visible, nil
}
