package syncer

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/hqops/rpa-sync-agent/internal/config"
)

// downloadPass pulls new input objects for every mapping. A listing
// failure abandons only that mapping for this iteration.
func (s *Syncer) downloadPass(ctx context.Context) error {
	for _, m := range s.mappings.Inputs {
		if err := s.syncInputMapping(ctx, m); err != nil {
			s.log.Error("input sync failed", "prefix", m.RemotePrefix, "error", err)
			s.metrics.IncListErrors()
		}
	}
	return nil
}

// syncInputMapping lists one remote prefix and downloads every object
// not yet recorded in the downloaded set. The dedup key is the
// object's basename.
func (s *Syncer) syncInputMapping(ctx context.Context, m config.InputMapping) error {
	keys, err := s.remote.List(ctx, m.RemotePrefix)
	if err != nil {
		return fmt.Errorf("list %s: %w", m.RemotePrefix, err)
	}

	for _, key := range keys {
		// Folder-marker objects have an empty basename.
		if strings.HasSuffix(key, "/") {
			continue
		}
		name := path.Base(key)
		if name == "" || name == "." {
			continue
		}

		if s.state.Downloaded.Has(name) {
			continue
		}
		if !s.cooldown.Ready("download:" + key) {
			s.metrics.IncCooldownSkips()
			continue
		}

		localPath := filepath.Join(m.LocalDir, name)
		s.log.Info("input sync", "src", s.remote.URI(key), "dest", localPath)

		if err := os.MkdirAll(m.LocalDir, 0755); err != nil {
			s.log.Error("create input folder failed", "dir", m.LocalDir, "error", err)
			s.cooldown.Failure("download:" + key)
			s.metrics.IncDownloadErrors()
			continue
		}

		if err := s.remote.Download(ctx, key, localPath); err != nil {
			// Not recorded as downloaded, so it retries on a later pass.
			s.log.Error("download failed", "key", key, "dest", localPath, "error", err)
			s.cooldown.Failure("download:" + key)
			s.metrics.IncDownloadErrors()
			continue
		}

		s.cooldown.Success("download:" + key)
		s.state.MarkDownloaded(name, s.clock.Now())
		s.saveState()
		s.metrics.IncDownloads()
	}

	return nil
}
