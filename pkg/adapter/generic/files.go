package generic

import (
	"context"
	"os"
	"path/filepath"

	"github.com/gridkeeper/autopilot/pkg/types"
)

// genericBackup stages every path in descriptor.BackupPaths and archives
// it. Empty or missing backup_paths is a failure, for both generic and
// host kinds.
func (a *Adapter) genericBackup(ctx context.Context, descriptor *types.ServiceDescriptor, destinationPath string) bool {
	if len(descriptor.BackupPaths) == 0 {
		a.logger.Error().Str("service", descriptor.Name).Msg("backup_paths is empty")
		return false
	}

	stagingDir, err := os.MkdirTemp(filepath.Dir(destinationPath), descriptor.Name+"_backup_*")
	if err != nil {
		a.logger.Error().Err(err).Str("service", descriptor.Name).Msg("failed to create staging directory")
		return false
	}
	defer os.RemoveAll(stagingDir)

	configDir := filepath.Join(stagingDir, "config")
	captured := make([]string, 0, len(descriptor.BackupPaths))
	for _, p := range descriptor.BackupPaths {
		if _, err := os.Stat(p); err != nil {
			a.logger.Warn().Err(err).Str("path", p).Msg("backup path missing, skipping")
			continue
		}
		if err := copyPathInto(p, configDir); err != nil {
			a.logger.Warn().Err(err).Str("path", p).Msg("failed to stage path")
			continue
		}
		captured = append(captured, p)
	}
	if len(captured) == 0 {
		a.logger.Error().Str("service", descriptor.Name).Msg("none of the configured backup_paths exist")
		return false
	}

	if err := writeManifest(stagingDir, descriptor.Name, descriptor.Kind, map[string]interface{}{"captured_paths": captured}); err != nil {
		a.logger.Error().Err(err).Msg("failed to write manifest")
		return false
	}

	if err := archiveDirectory(stagingDir, destinationPath); err != nil {
		a.logger.Error().Err(err).Str("service", descriptor.Name).Msg("failed to archive backup")
		return false
	}
	return true
}

func (a *Adapter) genericValidate(descriptor *types.ServiceDescriptor) bool {
	if len(descriptor.BackupPaths) == 0 {
		return false
	}
	for _, p := range descriptor.BackupPaths {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return checkHealthURL(descriptor)
}

func (a *Adapter) genericStatus(descriptor *types.ServiceDescriptor) map[string]interface{} {
	pathsExist := make(map[string]bool, len(descriptor.BackupPaths))
	for _, p := range descriptor.BackupPaths {
		_, err := os.Stat(p)
		pathsExist[p] = err == nil
	}
	return map[string]interface{}{
		"running":     nil,
		"paths_exist": pathsExist,
	}
}
