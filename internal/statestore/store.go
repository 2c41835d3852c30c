package statestore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"chansync/internal/fileutil"
	"chansync/internal/services"
)

const (
	queueSuffix   = "-queue.txt"
	saveSuffix    = "-save.txt"
	blockedSuffix = "-blocked.txt"
	dataSuffix    = "-data.txt"
	callLogSuffix = "-callLog.txt"
)

// State holds one channel's persisted id sets plus the per-run error flag.
// The flag is never written to disk; it only gates the playlist and cleanup
// steps of the run that set it.
type State struct {
	ChannelID string
	Queued    *IDSet
	Saved     *IDSet
	Blocked   *IDSet
	ErrorFlag bool
}

// NewState returns an empty state for a channel.
func NewState(channelID string) *State {
	return &State{
		ChannelID: channelID,
		Queued:    NewIDSet(),
		Saved:     NewIDSet(),
		Blocked:   NewIDSet(),
	}
}

// Normalize applies the fixed cleanup order before persisting: blanks and
// duplicates are already excluded by IDSet, then blocked takes precedence
// over saved, and saved over queued. The order of these subtractions is
// load-bearing and must not change.
func (st *State) Normalize() {
	st.Queued.RemoveAll(st.Blocked)
	st.Queued.RemoveAll(st.Saved)
	st.Saved.RemoveAll(st.Blocked)
	st.Blocked.RemoveAll(st.Saved)
}

// Store persists channel states as plain line-oriented text files, one id
// per line, alongside the cached catalog response and the append-only call
// log.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("state directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrStateIO, "statestore", "init", "create state directory", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store's root directory.
func (s *Store) Dir() string { return s.dir }

// Load reads a channel's three id lists. Missing files mean empty sets, so
// the first run needs no setup.
func (s *Store) Load(channelID string) (*State, error) {
	st := NewState(channelID)

	for _, part := range []struct {
		suffix string
		set    *IDSet
	}{
		{queueSuffix, st.Queued},
		{saveSuffix, st.Saved},
		{blockedSuffix, st.Blocked},
	} {
		ids, err := readIDList(s.listPath(channelID, part.suffix))
		if err != nil {
			return nil, services.Wrap(services.ErrStateIO, "statestore", "load", channelID+part.suffix, err)
		}
		for _, id := range ids {
			part.set.Add(id)
		}
	}
	return st, nil
}

// Save normalizes the state and atomically rewrites the three id lists. A
// crash between the individual writes leaves each file at either its old or
// its new version, never torn.
func (s *Store) Save(st *State) error {
	st.Normalize()

	for _, part := range []struct {
		suffix string
		set    *IDSet
	}{
		{queueSuffix, st.Queued},
		{saveSuffix, st.Saved},
		{blockedSuffix, st.Blocked},
	} {
		path := s.listPath(st.ChannelID, part.suffix)
		if err := fileutil.WriteFileAtomic(path, encodeIDList(part.set), 0o644); err != nil {
			return services.Wrap(services.ErrStateIO, "statestore", "save", st.ChannelID+part.suffix, err)
		}
	}
	return nil
}

// WriteDataCache persists the raw catalog response for diagnostics.
func (s *Store) WriteDataCache(channelID string, data []byte) error {
	path := s.listPath(channelID, dataSuffix)
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return services.Wrap(services.ErrStateIO, "statestore", "data cache", channelID, err)
	}
	return nil
}

// ReadDataCache returns the cached catalog response, or nil when absent.
func (s *Store) ReadDataCache(channelID string) ([]byte, error) {
	data, err := os.ReadFile(s.listPath(channelID, dataSuffix))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, services.Wrap(services.ErrStateIO, "statestore", "read data cache", channelID, err)
	}
	return data, nil
}

// CleanupData removes the cached catalog response. The three core id lists
// are never touched here.
func (s *Store) CleanupData(channelID string) error {
	err := os.Remove(s.listPath(channelID, dataSuffix))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return services.Wrap(services.ErrStateIO, "statestore", "cleanup data", channelID, err)
	}
	return nil
}

// AppendCallLog appends one timestamped line to the channel's diagnostic log.
func (s *Store) AppendCallLog(channelID, line string) error {
	path := s.listPath(channelID, callLogSuffix)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return services.Wrap(services.ErrStateIO, "statestore", "call log", channelID, err)
	}
	stamp := time.Now().UTC().Format(time.RFC3339)
	if _, err := fmt.Fprintf(f, "%s %s\n", stamp, strings.TrimSpace(line)); err != nil {
		f.Close()
		return services.Wrap(services.ErrStateIO, "statestore", "call log", channelID, err)
	}
	if err := f.Close(); err != nil {
		return services.Wrap(services.ErrStateIO, "statestore", "call log", channelID, err)
	}
	return nil
}

func (s *Store) listPath(channelID, suffix string) string {
	return filepath.Join(s.dir, channelID+suffix)
}

func readIDList(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		ids = append(ids, line)
	}
	return ids, nil
}

func encodeIDList(set *IDSet) []byte {
	ids := set.IDs()
	if len(ids) == 0 {
		return nil
	}
	return []byte(strings.Join(ids, "\n") + "\n")
}
