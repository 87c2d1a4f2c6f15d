package engine

import (
	"os"
	"path/filepath"
	"sort"
	"time"
)

// applyRetention implements §4.6.5: artifacts older than retentionDays in
// the service's backup directory are deleted, oldest first. Per-file
// delete errors are logged and skipped; the count reflects only
// successful deletions.
func (e *Engine) applyRetention(serviceName string, retentionDays int) (int, error) {
	dir := filepath.Join(e.model.Global().Backup.Root, serviceName)

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, &BackupError{Service: serviceName, Message: "listing backup directory for retention: " + err.Error()}
	}

	type artifact struct {
		path    string
		modTime time.Time
	}
	var artifacts []artifact
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		artifacts = append(artifacts, artifact{path: filepath.Join(dir, entry.Name()), modTime: info.ModTime()})
	}

	sort.Slice(artifacts, func(i, j int) bool { return artifacts[i].modTime.Before(artifacts[j].modTime) })

	cutoff := time.Now().Add(-time.Duration(retentionDays) * 24 * time.Hour)

	var candidates []artifact
	for _, a := range artifacts {
		if a.modTime.Before(cutoff) {
			candidates = append(candidates, a)
		}
	}

	if e.dryRun {
		for _, a := range candidates {
			e.logger.Info().Str("service", serviceName).Str("path", a.path).Msg("retention candidate (dry run)")
		}
		return 0, nil
	}

	deleted := 0
	for _, a := range candidates {
		if err := os.Remove(a.path); err != nil {
			e.logger.Warn().Str("service", serviceName).Str("path", a.path).Err(err).Msg("failed to delete expired artifact")
			continue
		}
		deleted++
	}
	return deleted, nil
}
