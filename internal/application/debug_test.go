package application

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"testing"

	"github.com/DamonFriedberg/Hydrus-Python-API/internal/domain"
	"github.com/DamonFriedberg/Hydrus-Python-API/internal/ports"
)

func TestFetcher_DebugMedia_ReturnsRawResponseUncached(t *testing.T) {
	f := newFixture(t, 1, 2)
	f.store.identities["artist"] = target
	f.store.blocks[factKey{1, target}] = true

	raw := json.RawMessage(`{"data":{"user":{}}}`)
	f.upstream.media = func(accountID int64, targetID, cursor string) (*ports.MediaTimeline, error) {
		tl := mediaFound("B", "1")
		tl.Raw = raw
		return tl, nil
	}

	got, err := f.fetcher.DebugMedia(context.Background(), "artist", "C")
	if err != nil {
		t.Fatalf("DebugMedia() error = %v", err)
	}
	if string(got) != string(raw) {
		t.Errorf("DebugMedia() = %s, want %s", got, raw)
	}
	if got := f.upstream.accountsCalled("media"); !slices.Equal(got, []int64{2}) {
		t.Errorf("media requests by %v, want the valid account [2] first", got)
	}
	if f.results.Len() != 0 {
		t.Error("debug responses must not populate the result cache")
	}
}

func TestFetcher_DebugItem_FailsOver(t *testing.T) {
	f := newFixture(t, 1, 2)

	f.upstream.item = func(accountID int64, itemID string) (*ports.ItemLookup, error) {
		if accountID == 1 {
			return nil, domain.ErrRateLimited
		}
		return &ports.ItemLookup{Status: ports.StatusMissing, Raw: json.RawMessage(`{"data":{}}`)}, nil
	}

	got, err := f.fetcher.DebugItem(context.Background(), "5")
	if err != nil {
		t.Fatalf("DebugItem() error = %v", err)
	}
	if string(got) != `{"data":{}}` {
		t.Errorf("DebugItem() = %s", got)
	}
	if !f.tracker.IsSuppressed(1) {
		t.Error("rate-limited account was not suppressed")
	}
}

func TestFetcher_DebugItem_Errors(t *testing.T) {
	f := newFixture(t)
	if _, err := f.fetcher.DebugItem(context.Background(), "5"); !errors.Is(err, domain.ErrNoAccounts) {
		t.Errorf("no accounts: error = %v, want ErrNoAccounts", err)
	}

	f = newFixture(t, 1, 2)
	if _, err := f.fetcher.DebugItem(context.Background(), "5"); !errors.Is(err, domain.ErrExhausted) {
		t.Errorf("all failing: error = %v, want ErrExhausted", err)
	}
}
