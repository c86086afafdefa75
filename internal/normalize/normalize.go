// Package normalize maps the upstream's variant-tagged results to a canonical outcome.
package normalize

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"

	"github.com/DamonFriedberg/Hydrus-Python-API/internal/domain"
	"github.com/DamonFriedberg/Hydrus-Python-API/internal/ports"
)

// Variant is the declared __typename of an upstream result
type Variant string

const (
	VariantItem            Variant = "Tweet"
	VariantWrapped         Variant = "TweetWithVisibilityResults"
	VariantItemUnavailable Variant = "TweetUnavailable"
	VariantTombstone       Variant = "TweetTombstone"
	VariantUserUnavailable Variant = "UserUnavailable"
	VariantUnrecognized    Variant = ""
)

// Kind is what the caller should do with a result
type Kind int

const (
	// Accept means Item holds the canonical item
	Accept Kind = iota
	// Skip means the result is excluded; the batch continues
	Skip
	// Unavailable means the upstream permanently refused access; Reason is set
	Unavailable
)

func (k Kind) String() string {
	switch k {
	case Accept:
		return "accept"
	case Skip:
		return "skip"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Outcome is the canonical form of one upstream result
type Outcome struct {
	Kind    Kind
	Variant Variant
	Item    domain.Item
	Reason  string
}

type itemBody struct {
	RestID string `json:"rest_id"`
}

type wrappedBody struct {
	Tweet json.RawMessage `json:"tweet"`
}

type reasonBody struct {
	Reason    string `json:"reason"`
	Message   string `json:"message"`
	Tombstone *struct {
		Text struct {
			Text string `json:"text"`
		} `json:"text"`
	} `json:"tombstone"`
}

// Resolve classifies raw without side effects. Every variant, including
// unknown ones, yields an outcome; partially parsed items are never accepted.
func Resolve(raw domain.RawItem) Outcome {
	switch Variant(raw.Typename) {
	case VariantItem:
		return accept(VariantItem, raw.Payload)
	case VariantWrapped:
		var w wrappedBody
		if err := json.Unmarshal(raw.Payload, &w); err != nil || isEmpty(w.Tweet) {
			return Outcome{Kind: Skip, Variant: VariantUnrecognized}
		}
		return accept(VariantWrapped, w.Tweet)
	case VariantItemUnavailable:
		return Outcome{Kind: Skip, Variant: VariantItemUnavailable, Reason: reasonOf(raw.Payload)}
	case VariantTombstone:
		return Outcome{Kind: Skip, Variant: VariantTombstone, Reason: reasonOf(raw.Payload)}
	case VariantUserUnavailable:
		return Outcome{Kind: Unavailable, Variant: VariantUserUnavailable, Reason: reasonOf(raw.Payload)}
	default:
		return Outcome{Kind: Skip, Variant: VariantUnrecognized}
	}
}

func accept(variant Variant, payload json.RawMessage) Outcome {
	var body itemBody
	if err := json.Unmarshal(payload, &body); err != nil || body.RestID == "" {
		return Outcome{Kind: Skip, Variant: VariantUnrecognized}
	}
	return Outcome{
		Kind:    Accept,
		Variant: variant,
		Item: domain.Item{
			ID:      body.RestID,
			Payload: payload,
		},
	}
}

func reasonOf(payload json.RawMessage) string {
	var body reasonBody
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	switch {
	case body.Message != "":
		return body.Message
	case body.Reason != "":
		return body.Reason
	case body.Tombstone != nil:
		return body.Tombstone.Text.Text
	}
	return ""
}

func isEmpty(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("{}"))
}

// Scope locates a result for diagnostics
type Scope struct {
	TargetID  string
	Cursor    string
	ItemID    string
	AccountID int64
}

// Normalizer resolves results and records a diagnostic for every skipped one.
type Normalizer struct {
	diag ports.Diagnostics
}

// New creates a normalizer writing to diag, which may be nil
func New(diag ports.Diagnostics) *Normalizer {
	return &Normalizer{diag: diag}
}

// Classify resolves raw and records skipped or unavailable results.
func (n *Normalizer) Classify(ctx context.Context, raw domain.RawItem, scope Scope) Outcome {
	out := Resolve(raw)
	if out.Kind == Accept {
		return out
	}

	event := "item_skipped"
	message := "skipped " + string(out.Variant) + " result"
	switch {
	case out.Kind == Unavailable:
		event = "unavailable"
		message = "upstream reported " + string(out.Variant)
	case out.Variant == VariantUnrecognized:
		event = "unrecognized_shape"
		message = "unexpected result variant " + raw.Typename
	}

	slog.DebugContext(ctx, message,
		"target_id", scope.TargetID,
		"cursor", scope.Cursor,
		"account_id", scope.AccountID,
	)

	if n.diag != nil {
		n.diag.Record(ctx, ports.Diagnostic{
			Event:     event,
			Message:   message,
			TargetID:  scope.TargetID,
			Cursor:    scope.Cursor,
			ItemID:    scope.ItemID,
			AccountID: scope.AccountID,
			Variant:   raw.Typename,
			Payload:   raw.Payload,
		})
	}
	return out
}

// Items classifies a batch, returning only accepted items in order.
// Skipped and unavailable items are dropped without aborting the batch.
func (n *Normalizer) Items(ctx context.Context, raws []domain.RawItem, scope Scope) []domain.Item {
	items := make([]domain.Item, 0, len(raws))
	for _, raw := range raws {
		out := n.Classify(ctx, raw, scope)
		if out.Kind == Accept {
			items = append(items, out.Item)
		}
	}
	return items
}
