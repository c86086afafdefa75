package application

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/DamonFriedberg/Hydrus-Python-API/internal/domain"
)

// DebugMedia returns the undecoded upstream response for one listing page,
// from the first candidate account that gets an answer. Nothing is
// interpreted or cached, and relationship facts are left as they are.
func (f *Fetcher) DebugMedia(ctx context.Context, name, cursor string) (json.RawMessage, error) {
	targetID, err := f.resolver.Resolve(ctx, name)
	if err != nil {
		return nil, err
	}

	candidates, err := f.relationships.CandidatesFor(ctx, targetID)
	if err != nil {
		return nil, err
	}
	valid, invalid := domain.Partition(candidates)

	return f.firstAnswer(ctx, append(valid, invalid...), func(ctx context.Context, account domain.Account) (json.RawMessage, error) {
		tl, err := f.upstream.UserMedia(ctx, account.Credentials, targetID, cursor)
		if err != nil {
			return nil, err
		}
		return tl.Raw, nil
	})
}

// DebugItem returns the undecoded upstream response for one item
func (f *Fetcher) DebugItem(ctx context.Context, itemID string) (json.RawMessage, error) {
	accounts, err := f.accounts.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}

	return f.firstAnswer(ctx, accounts, func(ctx context.Context, account domain.Account) (json.RawMessage, error) {
		lookup, err := f.upstream.ItemByRestID(ctx, account.Credentials, itemID)
		if err != nil {
			return nil, err
		}
		return lookup.Raw, nil
	})
}

// firstAnswer calls each unsuppressed account in order until one gets a
// response, failing over on the same errors the fetch paths do
func (f *Fetcher) firstAnswer(
	ctx context.Context,
	accounts []domain.Account,
	call func(ctx context.Context, account domain.Account) (json.RawMessage, error),
) (json.RawMessage, error) {
	if len(accounts) == 0 {
		return nil, domain.ErrNoAccounts
	}

	for _, account := range accounts {
		if f.suppression.IsSuppressed(account.ID) {
			continue
		}

		callCtx, cancel := withTimeout(ctx, f.timeout)
		raw, err := call(callCtx, account)
		cancel()
		if err == nil {
			return raw, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		err = callError(ctx, err)
		if isRateLimited(err) {
			f.suppression.Suppress(account.ID)
		}
		if !domain.IsRetryable(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("failed to get a debug response: %w", domain.ErrExhausted)
}
