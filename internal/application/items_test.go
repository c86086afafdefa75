package application

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/DamonFriedberg/Hydrus-Python-API/internal/domain"
	"github.com/DamonFriedberg/Hydrus-Python-API/internal/ports"
)

func TestFetcher_Item_CacheHitIsConsumed(t *testing.T) {
	f := newFixture(t, 1)
	f.results.Put("5", itemPayload("5"))

	got, err := f.fetcher.Item(context.Background(), "5")
	if err != nil {
		t.Fatalf("Item() error = %v", err)
	}
	if string(got) != string(itemPayload("5")) {
		t.Errorf("Item() = %s", got)
	}
	if len(f.upstream.calls) != 0 {
		t.Error("cache hit reached the upstream")
	}
	if _, ok := f.results.Take("5"); ok {
		t.Error("cached item was not consumed")
	}
}

func TestFetcher_TakeOrReconstruct(t *testing.T) {
	tests := []struct {
		name     string
		pageIDs  []string
		mediaErr error
		wantHit  bool
	}{
		{"replay still contains the item", []string{"4", "5", "6"}, nil, true},
		{"replay no longer contains the item", []string{"4", "6"}, nil, false},
		{"replay fails", nil, domain.ErrNetworkFailure, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 1)
			f.recache.Record("5", domain.RecacheEntry{TargetID: target, Cursor: "C9"})

			f.upstream.media = func(accountID int64, targetID, cursor string) (*ports.MediaTimeline, error) {
				if targetID != target || cursor != "C9" {
					t.Errorf("replayed %s@%s, want %s@C9", targetID, cursor, target)
				}
				if tt.mediaErr != nil {
					return nil, tt.mediaErr
				}
				return mediaFound("B", tt.pageIDs...), nil
			}

			got, ok := f.fetcher.TakeOrReconstruct(context.Background(), "5")
			if ok != tt.wantHit {
				t.Fatalf("hit = %v, want %v", ok, tt.wantHit)
			}
			if ok && string(got) != string(itemPayload("5")) {
				t.Errorf("payload = %s", got)
			}
			if len(f.upstream.accountsCalled("byName")) != 0 {
				t.Error("replay re-resolved the identity")
			}
		})
	}
}

func TestFetcher_TakeOrReconstruct_NoHint(t *testing.T) {
	f := newFixture(t, 1)
	if _, ok := f.fetcher.TakeOrReconstruct(context.Background(), "5"); ok {
		t.Error("hit without a cached item or hint")
	}
	if len(f.upstream.calls) != 0 {
		t.Error("upstream called without a hint")
	}
}

func TestFetcher_Item_ReplayRepopulatesSiblings(t *testing.T) {
	f := newFixture(t, 1)
	f.recache.Record("5", domain.RecacheEntry{TargetID: target})
	f.upstream.media = func(accountID int64, targetID, cursor string) (*ports.MediaTimeline, error) {
		return mediaFound("B", "5", "6"), nil
	}

	if _, err := f.fetcher.Item(context.Background(), "5"); err != nil {
		t.Fatalf("Item() error = %v", err)
	}
	if _, ok := f.results.Take("6"); !ok {
		t.Error("sibling item from the replayed page was not cached")
	}
}

func TestFetcher_Item_Direct(t *testing.T) {
	tests := []struct {
		name     string
		lookup   func(accountID int64) (*ports.ItemLookup, error)
		wantErr  error
		wantNote string
		wantBody string
		wantBy   []int64
	}{
		{
			name: "ordinary item",
			lookup: func(int64) (*ports.ItemLookup, error) {
				return &ports.ItemLookup{Status: ports.StatusFound, Result: domain.RawItem{Typename: "Tweet", Payload: itemPayload("5")}}, nil
			},
			wantBody: string(itemPayload("5")),
			wantBy:   []int64{1},
		},
		{
			name: "wrapped item is unwrapped",
			lookup: func(int64) (*ports.ItemLookup, error) {
				return &ports.ItemLookup{Status: ports.StatusFound, Result: domain.RawItem{
					Typename: "TweetWithVisibilityResults",
					Payload:  json.RawMessage(`{"tweet":{"rest_id":"5"}}`),
				}}, nil
			},
			wantBody: `{"rest_id":"5"}`,
			wantBy:   []int64{1},
		},
		{
			name: "rate limit fails over",
			lookup: func(id int64) (*ports.ItemLookup, error) {
				if id == 1 {
					return nil, domain.ErrRateLimited
				}
				return &ports.ItemLookup{Status: ports.StatusFound, Result: domain.RawItem{Typename: "Tweet", Payload: itemPayload("5")}}, nil
			},
			wantBody: string(itemPayload("5")),
			wantBy:   []int64{1, 2},
		},
		{
			name: "missing",
			lookup: func(int64) (*ports.ItemLookup, error) {
				return &ports.ItemLookup{Status: ports.StatusMissing}, nil
			},
			wantErr:  domain.ErrItemNotFound,
			wantNote: "tweet not found",
			wantBy:   []int64{1},
		},
		{
			name: "withheld item",
			lookup: func(int64) (*ports.ItemLookup, error) {
				return &ports.ItemLookup{Status: ports.StatusFound, Result: domain.RawItem{
					Typename: "TweetUnavailable",
					Payload:  json.RawMessage(`{"reason":"Protected"}`),
				}}, nil
			},
			wantNote: "Protected",
			wantBy:   []int64{1},
		},
		{
			name: "unrecognized fails over then exhausts",
			lookup: func(int64) (*ports.ItemLookup, error) {
				return &ports.ItemLookup{Status: ports.StatusFound, Result: domain.RawItem{Typename: "Odd"}}, nil
			},
			wantErr: domain.ErrExhausted,
			wantBy:  []int64{1, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 1, 2)
			f.upstream.item = func(accountID int64, itemID string) (*ports.ItemLookup, error) {
				return tt.lookup(accountID)
			}

			got, err := f.fetcher.Item(context.Background(), "5")
			if tt.wantBody != "" {
				if err != nil {
					t.Fatalf("Item() error = %v", err)
				}
				if string(got) != tt.wantBody {
					t.Errorf("Item() = %s, want %s", got, tt.wantBody)
				}
			} else if err == nil {
				t.Fatal("Item() succeeded, want error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantNote != "" && domain.Note(err) != tt.wantNote {
				t.Errorf("Note() = %q, want %q", domain.Note(err), tt.wantNote)
			}
			if got := f.upstream.accountsCalled("item"); !slices.Equal(got, tt.wantBy) {
				t.Errorf("requests by %v, want %v", got, tt.wantBy)
			}
		})
	}
}

func TestFetcher_Item_SkipsSuppressed(t *testing.T) {
	f := newFixture(t, 1, 2)
	f.tracker.Suppress(1)
	f.upstream.item = func(accountID int64, itemID string) (*ports.ItemLookup, error) {
		return &ports.ItemLookup{Status: ports.StatusFound, Result: domain.RawItem{Typename: "Tweet", Payload: itemPayload(itemID)}}, nil
	}

	if _, err := f.fetcher.Item(context.Background(), "5"); err != nil {
		t.Fatalf("Item() error = %v", err)
	}
	if got := f.upstream.accountsCalled("item"); !slices.Equal(got, []int64{2}) {
		t.Errorf("requests by %v, want [2]", got)
	}
}

func TestFetcher_Item_NoAccounts(t *testing.T) {
	f := newFixture(t)
	if _, err := f.fetcher.Item(context.Background(), "5"); !errors.Is(err, domain.ErrNoAccounts) {
		t.Fatalf("error = %v, want ErrNoAccounts", err)
	}
}

func TestFetcher_Item_SlowAccountFailsOver(t *testing.T) {
	f := newFixture(t, 1, 2)
	f.withCallTimeout(20 * time.Millisecond)
	f.upstream.slow = map[int64]bool{1: true}

	f.upstream.item = func(accountID int64, itemID string) (*ports.ItemLookup, error) {
		return &ports.ItemLookup{Status: ports.StatusFound, Result: domain.RawItem{Typename: "Tweet", Payload: itemPayload(itemID)}}, nil
	}

	got, err := f.fetcher.Item(context.Background(), "5")
	if err != nil {
		t.Fatalf("Item() error = %v", err)
	}
	if string(got) != string(itemPayload("5")) {
		t.Errorf("Item() = %s", got)
	}
	if calls := f.upstream.accountsCalled("item"); !slices.Equal(calls, []int64{1, 2}) {
		t.Errorf("item requests by %v, want [1 2]", calls)
	}
}
