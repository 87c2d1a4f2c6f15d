package generic

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/gridkeeper/autopilot/pkg/types"
)

var systemdUnitDirs = []string{"/etc/systemd/system", "/lib/systemd/system"}

func findUnitFile(unitName string) (string, bool) {
	for _, dir := range systemdUnitDirs {
		path := filepath.Join(dir, unitName)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

// detectPackageManager returns the first of apt-get, dnf found on PATH.
func detectPackageManager() (string, bool) {
	for _, mgr := range []string{"apt-get", "dnf"} {
		if _, err := exec.LookPath(mgr); err == nil {
			return mgr, true
		}
	}
	return "", false
}

func (a *Adapter) systemdBackup(ctx context.Context, descriptor *types.ServiceDescriptor, destinationPath string) bool {
	stagingDir, err := os.MkdirTemp(filepath.Dir(destinationPath), descriptor.Name+"_backup_*")
	if err != nil {
		a.logger.Error().Err(err).Str("service", descriptor.Name).Msg("systemd backup: failed to create staging directory")
		return false
	}
	defer os.RemoveAll(stagingDir)

	if unitPath, ok := findUnitFile(descriptor.UnitName); ok {
		serviceDir := filepath.Join(stagingDir, "service")
		if err := copyOneFileByPath(unitPath, filepath.Join(serviceDir, descriptor.UnitName)); err != nil {
			a.logger.Warn().Err(err).Str("unit", descriptor.UnitName).Msg("failed to stage unit file")
		}
	} else {
		a.logger.Warn().Str("unit", descriptor.UnitName).Msg("unit file not found in known systemd directories")
	}

	configDir := filepath.Join(stagingDir, "config")
	dataDir := filepath.Join(stagingDir, "data")
	capturedPaths := make([]string, 0, len(descriptor.ConfigPaths)+len(descriptor.DataPaths))
	for _, p := range descriptor.ConfigPaths {
		if err := copyPathInto(p, configDir); err != nil {
			a.logger.Warn().Err(err).Str("path", p).Msg("failed to stage path")
			continue
		}
		capturedPaths = append(capturedPaths, p)
	}
	for _, p := range descriptor.DataPaths {
		if err := copyPathInto(p, dataDir); err != nil {
			a.logger.Warn().Err(err).Str("path", p).Msg("failed to stage path")
			continue
		}
		capturedPaths = append(capturedPaths, p)
	}

	metadata := map[string]interface{}{
		"unit_name":      descriptor.UnitName,
		"captured_paths": capturedPaths,
	}
	if err := writeManifest(stagingDir, descriptor.Name, descriptor.Kind, metadata); err != nil {
		a.logger.Error().Err(err).Msg("failed to write manifest")
		return false
	}

	if err := archiveDirectory(stagingDir, destinationPath); err != nil {
		a.logger.Error().Err(err).Str("service", descriptor.Name).Msg("failed to archive systemd backup")
		return false
	}
	return true
}

func (a *Adapter) systemdUpdate(ctx context.Context, descriptor *types.ServiceDescriptor) bool {
	if descriptor.PackageName != "" {
		mgr, ok := detectPackageManager()
		if !ok {
			a.logger.Error().Str("service", descriptor.Name).Msg("no supported package manager (apt-get, dnf) found on PATH")
			return false
		}
		var updateArgs []string
		switch mgr {
		case "apt-get":
			updateArgs = []string{"install", "--only-upgrade", "-y", descriptor.PackageName}
		case "dnf":
			updateArgs = []string{"upgrade", "-y", descriptor.PackageName}
		}
		if err := runCommand(ctx, mgr, updateArgs...); err != nil {
			a.logger.Error().Err(err).Str("service", descriptor.Name).Msg("package update failed")
			return false
		}
	}

	if err := runCommand(ctx, "systemctl", "daemon-reload"); err != nil {
		a.logger.Error().Err(err).Msg("systemctl daemon-reload failed")
		return false
	}
	if err := runCommand(ctx, "systemctl", "restart", descriptor.UnitName); err != nil {
		a.logger.Error().Err(err).Str("unit", descriptor.UnitName).Msg("systemctl restart failed")
		return false
	}
	return true
}

func (a *Adapter) systemdValidate(ctx context.Context, descriptor *types.ServiceDescriptor) bool {
	out, err := exec.CommandContext(ctx, "systemctl", "is-active", descriptor.UnitName).Output()
	if err != nil && len(out) == 0 {
		return false
	}
	if strings.TrimSpace(string(out)) != "active" {
		return false
	}
	return checkHealthURL(descriptor)
}

func (a *Adapter) systemdStatus(ctx context.Context, descriptor *types.ServiceDescriptor) map[string]interface{} {
	activeOut, _ := exec.CommandContext(ctx, "systemctl", "is-active", descriptor.UnitName).Output()
	enabledOut, _ := exec.CommandContext(ctx, "systemctl", "is-enabled", descriptor.UnitName).Output()

	active := strings.TrimSpace(string(activeOut))
	return map[string]interface{}{
		"running": active == "active",
		"active":  active,
		"enabled": strings.TrimSpace(string(enabledOut)),
	}
}
