// Package diagnostics writes the diagnostic journal: one JSON record per
// upstream surprise, kept apart from the console log.
package diagnostics

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/DamonFriedberg/Hydrus-Python-API/internal/ports"
)

// Journal implements ports.Diagnostics on a zap logger
type Journal struct {
	log *zap.Logger
}

// NewJournal opens (appending) the journal file at path
func NewJournal(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create diagnostics directory: %w", err)
	}

	config := zap.NewProductionConfig()
	config.OutputPaths = []string{path}
	config.ErrorOutputPaths = []string{"stderr"}
	config.Sampling = nil
	config.DisableCaller = true
	config.DisableStacktrace = true
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	log, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build diagnostics logger: %w", err)
	}
	return &Journal{log: log}, nil
}

// NewJournalWithLogger wraps an existing logger
func NewJournalWithLogger(log *zap.Logger) *Journal {
	return &Journal{log: log}
}

// Record writes d as a warning-level entry
func (j *Journal) Record(ctx context.Context, d ports.Diagnostic) {
	fields := []zap.Field{zap.String("event", d.Event)}
	if d.TargetID != "" {
		fields = append(fields, zap.String("target_id", d.TargetID))
	}
	if d.Cursor != "" {
		fields = append(fields, zap.String("cursor", d.Cursor))
	}
	if d.ItemID != "" {
		fields = append(fields, zap.String("item_id", d.ItemID))
	}
	if d.AccountID != 0 {
		fields = append(fields, zap.Int64("account_id", d.AccountID))
	}
	if d.Variant != "" {
		fields = append(fields, zap.String("variant", d.Variant))
	}
	if len(d.Payload) > 0 {
		if json.Valid(d.Payload) {
			fields = append(fields, zap.Reflect("payload", d.Payload))
		} else {
			fields = append(fields, zap.String("payload", string(d.Payload)))
		}
	}

	j.log.Warn(d.Message, fields...)
}

// Close flushes buffered records
func (j *Journal) Close() error {
	_ = j.log.Sync()
	return nil
}

var _ ports.Diagnostics = (*Journal)(nil)
