package normalize

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/DamonFriedberg/Hydrus-Python-API/internal/domain"
	"github.com/DamonFriedberg/Hydrus-Python-API/internal/ports"
)

type recordingDiagnostics struct {
	mu      sync.Mutex
	records []ports.Diagnostic
}

func (r *recordingDiagnostics) Record(ctx context.Context, d ports.Diagnostic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, d)
}

func raw(typename, payload string) domain.RawItem {
	return domain.RawItem{Typename: typename, Payload: json.RawMessage(payload)}
}

func TestResolve_VariantTable(t *testing.T) {
	tests := []struct {
		name        string
		raw         domain.RawItem
		wantKind    Kind
		wantVariant Variant
		wantID      string
		wantReason  string
	}{
		{
			name:        "ordinary item",
			raw:         raw("Tweet", `{"__typename":"Tweet","rest_id":"100","legacy":{"full_text":"hi"}}`),
			wantKind:    Accept,
			wantVariant: VariantItem,
			wantID:      "100",
		},
		{
			name:        "visibility wrapper is unwrapped",
			raw:         raw("TweetWithVisibilityResults", `{"__typename":"TweetWithVisibilityResults","tweet":{"rest_id":"200"}}`),
			wantKind:    Accept,
			wantVariant: VariantWrapped,
			wantID:      "200",
		},
		{
			name:        "item unavailable",
			raw:         raw("TweetUnavailable", `{"__typename":"TweetUnavailable","reason":"Protected"}`),
			wantKind:    Skip,
			wantVariant: VariantItemUnavailable,
			wantReason:  "Protected",
		},
		{
			name:        "tombstone",
			raw:         raw("TweetTombstone", `{"__typename":"TweetTombstone","tombstone":{"text":{"text":"This Post is from an account that no longer exists."}}}`),
			wantKind:    Skip,
			wantVariant: VariantTombstone,
			wantReason:  "This Post is from an account that no longer exists.",
		},
		{
			name:        "user unavailable",
			raw:         raw("UserUnavailable", `{"__typename":"UserUnavailable","message":"User is suspended"}`),
			wantKind:    Unavailable,
			wantVariant: VariantUserUnavailable,
			wantReason:  "User is suspended",
		},
		{
			name:        "unrecognized variant",
			raw:         raw("TweetPreviewDisplay", `{"__typename":"TweetPreviewDisplay"}`),
			wantKind:    Skip,
			wantVariant: VariantUnrecognized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Resolve(tt.raw)
			if out.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", out.Kind, tt.wantKind)
			}
			if out.Variant != tt.wantVariant {
				t.Errorf("Variant = %q, want %q", out.Variant, tt.wantVariant)
			}
			if out.Item.ID != tt.wantID {
				t.Errorf("Item.ID = %q, want %q", out.Item.ID, tt.wantID)
			}
			if out.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", out.Reason, tt.wantReason)
			}
		})
	}
}

func TestResolve_UnwrappedPayloadIsInnerItem(t *testing.T) {
	out := Resolve(raw("TweetWithVisibilityResults", `{"tweet":{"rest_id":"7","legacy":{}},"limitedActionResults":{}}`))

	var inner map[string]any
	if err := json.Unmarshal(out.Item.Payload, &inner); err != nil {
		t.Fatalf("payload not JSON: %v", err)
	}
	if _, ok := inner["limitedActionResults"]; ok {
		t.Error("payload still contains the wrapper")
	}
	if inner["rest_id"] != "7" {
		t.Errorf("payload rest_id = %v, want 7", inner["rest_id"])
	}
}

func TestResolve_PartialItemsAreSkipped(t *testing.T) {
	tests := []struct {
		name string
		raw  domain.RawItem
	}{
		{"item without id", raw("Tweet", `{"legacy":{}}`)},
		{"item not an object", raw("Tweet", `"oops"`)},
		{"wrapper without inner item", raw("TweetWithVisibilityResults", `{"tweet":null}`)},
		{"empty typename", raw("", `{}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Resolve(tt.raw)
			if out.Kind != Skip {
				t.Errorf("Kind = %v, want Skip", out.Kind)
			}
			if out.Item.Payload != nil {
				t.Error("skipped outcome carries a payload")
			}
		})
	}
}

func TestNormalizer_ItemsDropsSkippedAndRecordsDiagnostics(t *testing.T) {
	diag := &recordingDiagnostics{}
	n := New(diag)

	items := n.Items(context.Background(), []domain.RawItem{
		raw("Tweet", `{"rest_id":"1"}`),
		raw("TweetUnavailable", `{}`),
		raw("Mystery", `{"x":1}`),
		raw("TweetWithVisibilityResults", `{"tweet":{"rest_id":"2"}}`),
		raw("TweetTombstone", `{}`),
	}, Scope{TargetID: "42", Cursor: "c1"})

	if len(items) != 2 || items[0].ID != "1" || items[1].ID != "2" {
		t.Fatalf("Items() = %+v, want ids [1 2]", items)
	}

	if len(diag.records) != 3 {
		t.Fatalf("recorded %d diagnostics, want 3", len(diag.records))
	}
	if diag.records[1].Event != "unrecognized_shape" {
		t.Errorf("Event = %q, want unrecognized_shape", diag.records[1].Event)
	}
	if string(diag.records[1].Payload) != `{"x":1}` {
		t.Errorf("Payload = %s, want raw payload", diag.records[1].Payload)
	}
	for _, r := range diag.records {
		if r.TargetID != "42" || r.Cursor != "c1" {
			t.Errorf("diagnostic scope = %+v", r)
		}
	}
}

func TestNormalizer_NilDiagnostics(t *testing.T) {
	n := New(nil)
	out := n.Classify(context.Background(), raw("Nope", `{}`), Scope{})
	if out.Kind != Skip {
		t.Errorf("Kind = %v, want Skip", out.Kind)
	}
}
