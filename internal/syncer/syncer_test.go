package syncer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/hqops/rpa-sync-agent/internal/config"
	"github.com/hqops/rpa-sync-agent/internal/state"
)

// fakeRemote implements storage.ObjectStore for testing.
type fakeRemote struct {
	mu      sync.Mutex
	objects map[string][]byte // key -> content

	listErr     map[string]error // per-prefix
	downloadErr map[string]error // per-key
	uploadErr   map[string]error // per-key

	downloadAttempts int
	uploadAttempts   int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		objects:     make(map[string][]byte),
		listErr:     make(map[string]error),
		downloadErr: make(map[string]error),
		uploadErr:   make(map[string]error),
	}
}

func (f *fakeRemote) List(ctx context.Context, prefix string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.listErr[prefix]; err != nil {
		return nil, err
	}
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (f *fakeRemote) Download(ctx context.Context, key, localPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloadAttempts++
	if err := f.downloadErr[key]; err != nil {
		return err
	}
	data, ok := f.objects[key]
	if !ok {
		return errors.New("object not found: " + key)
	}
	return os.WriteFile(localPath, data, 0644)
}

func (f *fakeRemote) Upload(ctx context.Context, localPath, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploadAttempts++
	if err := f.uploadErr[key]; err != nil {
		return err
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	f.objects[key] = data
	return nil
}

func (f *fakeRemote) URI(key string) string {
	return "s3://test-bucket/" + key
}

func (f *fakeRemote) Close() error {
	return nil
}

// newTestSyncer wires a syncer against the fake remote with a fresh
// file-backed state store under the test's temp dir.
func newTestSyncer(t *testing.T, clock clockwork.Clock, remote *fakeRemote, mappings *config.Mappings) *Syncer {
	t.Helper()

	cfg := &config.Config{
		Sync: config.SyncConfig{
			IntervalSeconds:  60,
			StatePath:        filepath.Join(t.TempDir(), "state.json"),
			CompletionSuffix: "_전처리.xlsx",
		},
	}
	store := state.NewFileStore(cfg.Sync.StatePath, clock)

	s, err := New(cfg, mappings, remote, store, clock, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s
}

func TestRunStopsOnCancel(t *testing.T) {
	clock := clockwork.NewFakeClock()
	remote := newFakeRemote()
	remote.objects["inputs/v1/report.xlsx"] = []byte("data")

	localDir := t.TempDir()
	s := newTestSyncer(t, clock, remote, &config.Mappings{
		Inputs: []config.InputMapping{
			{RemotePrefix: "inputs/v1/", LocalDir: localDir},
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run returned %v, want context.Canceled", err)
	}

	// The first pass runs before the cancellation is observed.
	if _, err := os.Stat(filepath.Join(localDir, "report.xlsx")); err != nil {
		t.Errorf("first pass should have downloaded the input: %v", err)
	}
}

func TestRunOnceRecordsStateFile(t *testing.T) {
	clock := clockwork.NewFakeClock()
	remote := newFakeRemote()
	remote.objects["inputs/v1/report.xlsx"] = []byte("data")

	s := newTestSyncer(t, clock, remote, &config.Mappings{
		Inputs: []config.InputMapping{
			{RemotePrefix: "inputs/v1/", LocalDir: t.TempDir()},
		},
	})

	s.RunOnce(context.Background())

	st, err := s.stateStore.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !st.Downloaded.Has("report.xlsx") {
		t.Error("state file should record the download")
	}
	if _, ok := st.InputTimes["report.xlsx"]; !ok {
		t.Error("state file should record the input time")
	}
}

func TestWatchRegistry(t *testing.T) {
	r := newWatchRegistry()
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	if !r.Register("/rpa/completed/2026/0310_v1", "results/v1/", at) {
		t.Error("first registration should report new")
	}
	if r.Register("/rpa/completed/2026/0310_v1", "results/v1/", at.Add(time.Hour)) {
		t.Error("repeat registration should report known")
	}

	entries := r.Entries()
	e, ok := entries["/rpa/completed/2026/0310_v1"]
	if !ok {
		t.Fatal("entry missing from registry")
	}
	if !e.FirstSeen.Equal(at) {
		t.Errorf("FirstSeen = %v, want %v", e.FirstSeen, at)
	}
	if e.RemotePrefix != "results/v1/" {
		t.Errorf("RemotePrefix = %q, want results/v1/", e.RemotePrefix)
	}
}
