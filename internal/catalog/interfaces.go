package catalog

import (
	"context"

	"chansync/internal/config"
)

// Result is the tri-state outcome of a download attempt.
type Result int

const (
	// ResultSuccess means the file is fully present at the record's output path.
	ResultSuccess Result = iota
	// ResultFailure is a transient failure; the item is eligible for retry on
	// the very next run. Ambiguous outcomes (timeouts, killed subprocesses)
	// map here, never to ResultError.
	ResultFailure
	// ResultError is a confirmed permanent rejection; the item is blocked
	// until an operator requests a retry pass.
	ResultError
)

func (r Result) String() string {
	switch r {
	case ResultSuccess:
		return "success"
	case ResultFailure:
		return "failure"
	case ResultError:
		return "error"
	default:
		return "unknown"
	}
}

// MetadataProvider returns the current ordered catalog for a channel.
type MetadataProvider interface {
	FetchChannelItems(ctx context.Context, ch config.Channel) ([]Item, error)
}

// DownloadExecutor fetches a single queued item. Implementations return
// ResultFailure together with an error for transient problems and
// ResultError for confirmed permanent rejections.
type DownloadExecutor interface {
	Fetch(ctx context.Context, record *VideoRecord) (Result, error)
}
