package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/DamonFriedberg/Hydrus-Python-API/internal/domain"
	"github.com/DamonFriedberg/Hydrus-Python-API/internal/normalize"
	"github.com/DamonFriedberg/Hydrus-Python-API/internal/ports"
)

const userTypename = "User"

// IdentityResolver maps display names to target ids, asking the upstream
// on a mapping miss
type IdentityResolver struct {
	identities  ports.IdentityStore
	accounts    ports.AccountStore
	upstream    ports.Upstream
	suppression ports.SuppressionTracker
	prober      *Prober
	normalizer  *normalize.Normalizer
	timeout     time.Duration

	group singleflight.Group
}

// NewIdentityResolver creates a resolver. The prober applies the visibility
// signals every successful lookup carries.
func NewIdentityResolver(
	identities ports.IdentityStore,
	accounts ports.AccountStore,
	upstream ports.Upstream,
	suppression ports.SuppressionTracker,
	prober *Prober,
	normalizer *normalize.Normalizer,
	timeout time.Duration,
) *IdentityResolver {
	return &IdentityResolver{
		identities:  identities,
		accounts:    accounts,
		upstream:    upstream,
		suppression: suppression,
		prober:      prober,
		normalizer:  normalizer,
		timeout:     timeout,
	}
}

// Resolve returns the target id for name. Concurrent misses for the same
// name share one upstream lookup. The shared lookup outlives any single
// caller; each caller stops waiting when its own ctx is done.
func (r *IdentityResolver) Resolve(ctx context.Context, name string) (string, error) {
	key := domain.NormalizeName(name)

	targetID, err := r.identities.TargetID(ctx, key)
	if err == nil {
		return targetID, nil
	}
	if !errors.Is(err, domain.ErrCacheMiss) {
		return "", err
	}

	// each upstream call still carries its own timeout
	shared := context.WithoutCancel(ctx)
	ch := r.group.DoChan(key, func() (any, error) {
		return r.lookup(shared, key)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (r *IdentityResolver) lookup(ctx context.Context, name string) (string, error) {
	accounts, err := r.accounts.ListAccounts(ctx)
	if err != nil {
		return "", err
	}
	if len(accounts) == 0 {
		return "", domain.ErrNoAccounts
	}

	for _, account := range accounts {
		if r.suppression.IsSuppressed(account.ID) {
			continue
		}

		targetID, err := r.lookupWith(ctx, account, name)
		if err == nil {
			return targetID, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if !domain.IsRetryable(err) {
			return "", err
		}
		slog.WarnContext(ctx, "identity lookup failed, trying next account",
			"name", name,
			"account_id", account.ID,
			"error", err,
		)
	}

	return "", fmt.Errorf("failed to resolve %s: %w", name, domain.ErrExhausted)
}

func (r *IdentityResolver) lookupWith(ctx context.Context, account domain.Account, name string) (string, error) {
	callCtx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	lookup, err := r.upstream.UserByScreenName(callCtx, account.Credentials, name)
	if err != nil {
		err = callError(ctx, err)
		if isRateLimited(err) {
			r.suppression.Suppress(account.ID)
		}
		return "", err
	}

	switch lookup.Status {
	case ports.StatusMissing:
		return "", domain.ErrNotFound
	case ports.StatusWithheld:
		return "", domain.ErrInvisible
	}

	if lookup.Result.Typename != userTypename || lookup.ID == "" {
		out := r.normalizer.Classify(ctx, lookup.Result, normalize.Scope{AccountID: account.ID})
		if out.Kind == normalize.Unavailable {
			return "", &domain.UnavailableError{Reason: out.Reason}
		}
		return "", fmt.Errorf("%w: identity lookup returned %q", domain.ErrMalformed, lookup.Result.Typename)
	}

	if err := r.identities.PutTargetID(ctx, name, lookup.ID); err != nil {
		return "", fmt.Errorf("failed to store identity: %w", err)
	}
	if err := r.prober.Apply(ctx, account.ID, lookup.ID, lookup.Signals); err != nil {
		return "", fmt.Errorf("failed to update relationship facts: %w", err)
	}

	slog.InfoContext(ctx, "resolved identity",
		"name", name,
		"target_id", lookup.ID,
		"account_id", account.ID,
	)
	return lookup.ID, nil
}
