package state

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jonboulle/clockwork"
)

// Store handles state persistence and retrieval.
type Store interface {
	// Load reads the prior state, or initializes a fresh one when no
	// file exists yet.
	Load() (*State, error)

	// Save persists the state, overwriting the previous snapshot.
	Save(st *State) error
}

// FileStore persists state to a single JSON file.
type FileStore struct {
	path  string
	clock clockwork.Clock
}

// NewFileStore creates a file-backed state store.
func NewFileStore(path string, clock clockwork.Clock) *FileStore {
	return &FileStore{path: path, clock: clock}
}

// stateRecord is the on-disk shape. BaselineTime is a pointer so a
// record written before the baseline field existed can be detected
// and upgraded on load.
type stateRecord struct {
	Downloaded   Set                  `json:"downloaded"`
	Uploaded     Set                  `json:"uploaded"`
	InputTimes   map[string]time.Time `json:"input_times"`
	BaselineTime *time.Time           `json:"baseline_time,omitempty"`
}

// Load reads the state file. A missing file yields a fresh state with
// the baseline stamped to the current time; a record missing the
// baseline field is upgraded the same way.
func (s *FileStore) Load() (*State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(s.clock.Now()), nil
		}
		return nil, fmt.Errorf("read state file %s: %w", s.path, err)
	}

	var rec stateRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse state file %s: %w", s.path, err)
	}

	st := New(s.clock.Now())
	if rec.Downloaded != nil {
		st.Downloaded = rec.Downloaded
	}
	if rec.Uploaded != nil {
		st.Uploaded = rec.Uploaded
	}
	if rec.InputTimes != nil {
		st.InputTimes = rec.InputTimes
	}
	if rec.BaselineTime != nil {
		st.BaselineTime = *rec.BaselineTime
	}
	return st, nil
}

// Save persists the state to file, written atomically via temp file
// and rename so a crash never leaves a truncated record.
func (s *FileStore) Save(st *State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("write state temp file: %w", err)
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("rename state file: %w", err)
	}

	return nil
}
