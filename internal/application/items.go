package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/DamonFriedberg/Hydrus-Python-API/internal/domain"
	"github.com/DamonFriedberg/Hydrus-Python-API/internal/normalize"
	"github.com/DamonFriedberg/Hydrus-Python-API/internal/ports"
)

// Item returns the canonical payload of one item. A cached copy is consumed
// first; then the recache hint is replayed; then the item is requested
// directly with the accounts in priority order.
func (f *Fetcher) Item(ctx context.Context, itemID string) (json.RawMessage, error) {
	if payload, ok := f.TakeOrReconstruct(ctx, itemID); ok {
		return payload, nil
	}
	return f.fetchItem(ctx, itemID)
}

// TakeOrReconstruct consumes a cached item, replaying the listing page it was
// discovered on when the cache no longer holds it. A replay that fails or no
// longer contains the item is a miss.
func (f *Fetcher) TakeOrReconstruct(ctx context.Context, itemID string) (json.RawMessage, bool) {
	if payload, ok := f.cache.Take(itemID); ok {
		return payload, true
	}

	origin, ok := f.cache.Origin(itemID)
	if !ok {
		return nil, false
	}

	if _, err := f.MediaForTarget(ctx, origin.TargetID, origin.Cursor); err != nil {
		slog.DebugContext(ctx, "recache replay failed",
			"item_id", itemID,
			"target_id", origin.TargetID,
			"cursor", origin.Cursor,
			"error", err,
		)
		return nil, false
	}
	return f.cache.Take(itemID)
}

func (f *Fetcher) fetchItem(ctx context.Context, itemID string) (json.RawMessage, error) {
	accounts, err := f.accounts.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, domain.ErrNoAccounts
	}

	for _, account := range accounts {
		if f.suppression.IsSuppressed(account.ID) {
			continue
		}

		payload, err := f.fetchItemWith(ctx, account, itemID)
		if err == nil {
			return payload, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if !domain.IsRetryable(err) {
			return nil, err
		}
		slog.WarnContext(ctx, "item request failed, trying next account",
			"item_id", itemID,
			"account_id", account.ID,
			"error", err,
		)
	}

	record(ctx, f.diag, ports.Diagnostic{
		Event:   "exhausted",
		Message: "no account could fetch item",
		ItemID:  itemID,
	})
	return nil, fmt.Errorf("failed to fetch item %s: %w", itemID, domain.ErrExhausted)
}

func (f *Fetcher) fetchItemWith(ctx context.Context, account domain.Account, itemID string) (json.RawMessage, error) {
	callCtx, cancel := withTimeout(ctx, f.timeout)
	defer cancel()

	lookup, err := f.upstream.ItemByRestID(callCtx, account.Credentials, itemID)
	if err != nil {
		err = callError(ctx, err)
		if isRateLimited(err) {
			f.suppression.Suppress(account.ID)
		}
		return nil, err
	}

	switch lookup.Status {
	case ports.StatusMissing:
		return nil, domain.ErrItemNotFound
	case ports.StatusWithheld:
		return nil, domain.ErrInvisible
	}

	out := f.normalizer.Classify(ctx, lookup.Result, normalize.Scope{ItemID: itemID, AccountID: account.ID})
	switch {
	case out.Kind == normalize.Accept:
		return out.Item.Payload, nil
	case out.Kind == normalize.Unavailable,
		out.Variant == normalize.VariantItemUnavailable,
		out.Variant == normalize.VariantTombstone:
		return nil, &domain.UnavailableError{Reason: out.Reason}
	default:
		return nil, fmt.Errorf("%w: item lookup returned %q", domain.ErrMalformed, lookup.Result.Typename)
	}
}
