package workflow

import "chansync/internal/download"

// ChannelSummary reports what one channel's pipeline pass did.
type ChannelSummary struct {
	ChannelID       string
	Queued          int
	Saved           int
	Blocked         int
	Renames         int
	Downloads       download.Stats
	PlaylistChanged bool
	Swept           int
	ErrorFlag       bool
	Err             error
}

// Summary aggregates one full run across all channels.
type Summary struct {
	RunID    string
	Channels []ChannelSummary
}

// Failed returns the summaries of channels that ended in error.
func (s *Summary) Failed() []ChannelSummary {
	var failed []ChannelSummary
	for _, ch := range s.Channels {
		if ch.Err != nil {
			failed = append(failed, ch)
		}
	}
	return failed
}
