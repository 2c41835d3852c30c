package services

import "context"

type contextKey int

const (
	channelKey contextKey = iota
	itemIDKey
	runIDKey
)

// WithChannel tags the context with the channel currently being processed.
func WithChannel(ctx context.Context, channelID string) context.Context {
	return context.WithValue(ctx, channelKey, channelID)
}

// ChannelFromContext returns the channel id stored in the context, if any.
func ChannelFromContext(ctx context.Context) (string, bool) {
	value, ok := ctx.Value(channelKey).(string)
	return value, ok && value != ""
}

// WithItemID tags the context with the catalog item currently being processed.
func WithItemID(ctx context.Context, itemID string) context.Context {
	return context.WithValue(ctx, itemIDKey, itemID)
}

// ItemIDFromContext returns the item id stored in the context, if any.
func ItemIDFromContext(ctx context.Context) (string, bool) {
	value, ok := ctx.Value(itemIDKey).(string)
	return value, ok && value != ""
}

// WithRunID tags the context with the current sync run identifier.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// RunIDFromContext returns the run id stored in the context, if any.
func RunIDFromContext(ctx context.Context) (string, bool) {
	value, ok := ctx.Value(runIDKey).(string)
	return value, ok && value != ""
}
