package syncer

import "time"

// watchEntry records a discovered day-version folder. FirstSeen is
// kept for inspection in logs; only the prefix routing is consumed.
type watchEntry struct {
	FirstSeen    time.Time
	RemotePrefix string
}

// watchRegistry tracks discovered completed output folders and the
// remote prefix each one maps to. In-memory only, never persisted:
// it is repopulated from the filesystem as passes run.
type watchRegistry struct {
	entries map[string]watchEntry
}

func newWatchRegistry() *watchRegistry {
	return &watchRegistry{
		entries: make(map[string]watchEntry),
	}
}

// Register adds a folder if it is not yet known. Returns true when
// the folder was newly registered.
func (r *watchRegistry) Register(dir, remotePrefix string, at time.Time) bool {
	if _, ok := r.entries[dir]; ok {
		return false
	}
	r.entries[dir] = watchEntry{
		FirstSeen:    at,
		RemotePrefix: remotePrefix,
	}
	return true
}

// Entries returns the registered folders.
func (r *watchRegistry) Entries() map[string]watchEntry {
	return r.entries
}
