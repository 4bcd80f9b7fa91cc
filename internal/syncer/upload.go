package syncer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// uploadPass pushes newly produced completed files for every mapping.
// Completed files live under localRoot/<year>/<day-version>/ and are
// recognized by the completion suffix.
func (s *Syncer) uploadPass(ctx context.Context) error {
	year := strconv.Itoa(s.clock.Now().Year())

	for _, m := range s.mappings.Completed {
		yearDir := filepath.Join(m.LocalRoot, year)

		entries, err := os.ReadDir(yearDir)
		if err != nil {
			if os.IsNotExist(err) {
				// No output for the current year yet: not an error.
				continue
			}
			s.log.Error("completed folder scan failed", "dir", yearDir, "error", err)
			continue
		}

		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			dir := filepath.Join(yearDir, e.Name())
			if s.registry.Register(dir, m.RemotePrefix, s.clock.Now()) {
				s.log.Info("watching completed folder", "dir", dir, "prefix", m.RemotePrefix)
			}
		}
	}

	for dir, entry := range s.registry.Entries() {
		if err := s.uploadFolder(ctx, dir, entry.RemotePrefix); err != nil {
			s.log.Error("completed sync failed", "dir", dir, "error", err)
		}
	}

	return nil
}

// uploadFolder uploads eligible completed files from one watched
// folder. A file is eligible when it carries the completion suffix,
// has not been uploaded before, and was modified after both the
// baseline cutoff and the latest recorded input download time.
func (s *Syncer) uploadFolder(ctx context.Context, dir, remotePrefix string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			// Watched folder disappeared since registration.
			return nil
		}
		return fmt.Errorf("read dir %s: %w", dir, err)
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), s.suffix) {
			continue
		}

		localPath := filepath.Join(dir, e.Name())
		if s.state.Uploaded.Has(localPath) {
			continue
		}

		info, err := e.Info()
		if err != nil {
			s.log.Error("stat failed", "path", localPath, "error", err)
			continue
		}
		mtime := info.ModTime()

		// Pre-existing backlog from before this state file stays put.
		if !mtime.After(s.state.BaselineTime) {
			continue
		}
		// Output written before the newest input arrived is stale.
		if last, ok := s.state.LatestInputTime(); ok && !mtime.After(last) {
			continue
		}

		if !s.cooldown.Ready("upload:" + localPath) {
			s.metrics.IncCooldownSkips()
			continue
		}

		key := remotePrefix + e.Name()
		s.log.Info("completed sync", "src", localPath, "dest", s.remote.URI(key))

		if err := s.remote.Upload(ctx, localPath, key); err != nil {
			// State unchanged, so the file retries on a later pass.
			s.log.Error("upload failed", "path", localPath, "key", key, "error", err)
			s.cooldown.Failure("upload:" + localPath)
			s.metrics.IncUploadErrors()
			continue
		}

		s.cooldown.Success("upload:" + localPath)
		s.state.MarkUploaded(localPath)
		s.saveState()
		s.metrics.IncUploads()
	}

	return nil
}
