// Package state tracks which files have already been transferred so
// that sync passes are idempotent across restarts. The record is a
// single JSON document, human-inspectable and editable between runs;
// an operator wipes the file to force a full resync.
package state

import (
	"encoding/json"
	"sort"
	"time"
)

// Set is a string set that marshals as a sorted JSON array so the
// state file stays diff-stable.
type Set map[string]struct{}

// NewSet creates an empty set.
func NewSet() Set {
	return make(Set)
}

// Has reports membership.
func (s Set) Has(v string) bool {
	_, ok := s[v]
	return ok
}

// Add inserts a value.
func (s Set) Add(v string) {
	s[v] = struct{}{}
}

// MarshalJSON renders the set as a sorted array.
func (s Set) MarshalJSON() ([]byte, error) {
	values := make([]string, 0, len(s))
	for v := range s {
		values = append(values, v)
	}
	sort.Strings(values)
	return json.Marshal(values)
}

// UnmarshalJSON reads the set from an array.
func (s *Set) UnmarshalJSON(data []byte) error {
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	out := make(Set, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}
	*s = out
	return nil
}

// State is the agent's persisted sync progress.
//
//   - Downloaded: basenames already pulled from the remote store. The
//     dedup key is the basename only, not the full remote key.
//   - Uploaded: full local paths already pushed to the remote store.
//   - InputTimes: download timestamp per downloaded basename.
//   - BaselineTime: cutoff below which completed files are never
//     uploaded, preventing re-upload of pre-existing backlog when the
//     state file starts fresh.
type State struct {
	Downloaded   Set                  `json:"downloaded"`
	Uploaded     Set                  `json:"uploaded"`
	InputTimes   map[string]time.Time `json:"input_times"`
	BaselineTime time.Time            `json:"baseline_time"`
}

// New creates an empty state with the given baseline cutoff.
func New(baseline time.Time) *State {
	return &State{
		Downloaded:   NewSet(),
		Uploaded:     NewSet(),
		InputTimes:   make(map[string]time.Time),
		BaselineTime: baseline,
	}
}

// MarkDownloaded records that a basename was pulled at the given time.
func (st *State) MarkDownloaded(name string, at time.Time) {
	st.Downloaded.Add(name)
	st.InputTimes[name] = at
}

// MarkUploaded records that a local path was pushed.
func (st *State) MarkUploaded(path string) {
	st.Uploaded.Add(path)
}

// LatestInputTime returns the most recent recorded download time.
// The second return is false when no inputs have been recorded, in
// which case the input-time upload gate does not apply.
func (st *State) LatestInputTime() (time.Time, bool) {
	var latest time.Time
	if len(st.InputTimes) == 0 {
		return latest, false
	}
	for _, t := range st.InputTimes {
		if t.After(latest) {
			latest = t
		}
	}
	return latest, true
}
