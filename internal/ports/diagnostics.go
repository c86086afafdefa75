package ports

import (
	"context"
	"encoding/json"
)

// Diagnostic is a record kept for later inspection of upstream surprises
type Diagnostic struct {
	Event     string // short machine-readable event name
	Message   string
	TargetID  string
	Cursor    string
	ItemID    string
	AccountID int64
	Variant   string
	Payload   json.RawMessage
}

// Diagnostics receives diagnostic records. Implementations must not block
// on network I/O and must tolerate concurrent use.
type Diagnostics interface {
	Record(ctx context.Context, d Diagnostic)
}
