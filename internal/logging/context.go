package logging

import (
	"context"
	"log/slog"

	"chansync/internal/services"
)

const (
	// FieldComponent is the structured logging key for component names.
	FieldComponent = "component"
	// FieldChannel is the structured logging key for channel identifiers.
	FieldChannel = "channel"
	// FieldItemID is the structured logging key for catalog item identifiers.
	FieldItemID = "item_id"
	// FieldRunID is the structured logging key for sync run identifiers.
	FieldRunID = "run_id"
	// FieldDryRun marks log lines describing hypothetical, unapplied actions.
	FieldDryRun = "dry_run"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if channel, ok := services.ChannelFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldChannel, channel))
	}
	if id, ok := services.ItemIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldItemID, id))
	}
	if runID, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, runID))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from
// the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
