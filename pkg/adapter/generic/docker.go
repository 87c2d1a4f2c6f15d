package generic

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/gridkeeper/autopilot/pkg/types"
)

type dockerMount struct {
	Type        string `json:"Type"`
	Name        string `json:"Name"`
	Destination string `json:"Destination"`
}

type dockerContainer struct {
	Image string `json:"Image"`
	State struct {
		Status  string `json:"Status"`
		Running bool   `json:"Running"`
		Health  *struct {
			Status string `json:"Status"`
		} `json:"Health,omitempty"`
	} `json:"State"`
	Created string        `json:"Created"`
	Mounts  []dockerMount `json:"Mounts"`
	Config  struct {
		Image      string            `json:"Image"`
		Env        []string          `json:"Env"`
		Labels     map[string]string `json:"Labels"`
		Cmd        []string          `json:"Cmd"`
		Entrypoint []string          `json:"Entrypoint"`
	} `json:"Config"`
	NetworkSettings struct {
		Ports map[string]interface{} `json:"Ports"`
	} `json:"NetworkSettings"`
}

func dockerInspect(ctx context.Context, name string) (*dockerContainer, error) {
	out, err := exec.CommandContext(ctx, "docker", "inspect", name).Output()
	if err != nil {
		return nil, fmt.Errorf("docker inspect %s: %w", name, err)
	}
	var containers []dockerContainer
	if err := json.Unmarshal(out, &containers); err != nil {
		return nil, fmt.Errorf("decode docker inspect output: %w", err)
	}
	if len(containers) == 0 {
		return nil, fmt.Errorf("container %s not found", name)
	}
	return &containers[0], nil
}

func containerName(descriptor *types.ServiceDescriptor) string {
	if descriptor.ContainerName != "" {
		return descriptor.ContainerName
	}
	return descriptor.Name
}

// namedVolumes returns only volume-type mounts; bind mounts are skipped
// by design.
func namedVolumes(c *dockerContainer) []string {
	var volumes []string
	for _, m := range c.Mounts {
		if m.Type == "volume" {
			volumes = append(volumes, m.Name)
		}
	}
	return volumes
}

// backupDockerVolume runs a short-lived alpine helper container that
// mounts volumeName read-only and streams a tar of its contents to
// destPath.
func backupDockerVolume(ctx context.Context, volumeName, destPath string) error {
	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create volume archive %s: %w", destPath, err)
	}
	defer f.Close()

	cmd := exec.CommandContext(ctx, "docker", "run", "--rm",
		"-v", volumeName+":/volume-data:ro",
		"alpine:latest",
		"tar", "czf", "-", "-C", "/volume-data", ".")
	cmd.Stdout = f

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("backup volume %s: %w", volumeName, err)
	}
	return nil
}

func (a *Adapter) dockerBackup(ctx context.Context, descriptor *types.ServiceDescriptor, destinationPath string) bool {
	name := containerName(descriptor)
	container, err := dockerInspect(ctx, name)
	if err != nil {
		a.logger.Error().Err(err).Str("service", descriptor.Name).Msg("docker backup: container not found")
		return false
	}

	stagingDir, err := os.MkdirTemp(filepath.Dir(destinationPath), descriptor.Name+"_backup_*")
	if err != nil {
		a.logger.Error().Err(err).Str("service", descriptor.Name).Msg("docker backup: failed to create staging directory")
		return false
	}
	defer os.RemoveAll(stagingDir)

	if descriptor.ComposeFile != "" {
		if _, err := os.Stat(descriptor.ComposeFile); err == nil {
			if err := copyOneFileByPath(descriptor.ComposeFile, filepath.Join(stagingDir, "compose.yml")); err != nil {
				a.logger.Warn().Err(err).Str("service", descriptor.Name).Msg("failed to stage compose file")
			}
		} else {
			a.logger.Warn().Str("compose_file", descriptor.ComposeFile).Msg("compose file not found")
		}
	}

	volumes := namedVolumes(container)
	if len(volumes) > 0 {
		volumesDir := filepath.Join(stagingDir, "volumes")
		if err := os.MkdirAll(volumesDir, 0o755); err != nil {
			a.logger.Error().Err(err).Msg("failed to create volumes staging directory")
			return false
		}
		for _, vol := range volumes {
			dest := filepath.Join(volumesDir, vol+".tar.gz")
			if err := backupDockerVolume(ctx, vol, dest); err != nil {
				a.logger.Warn().Err(err).Str("volume", vol).Msg("failed to back up volume")
			}
		}
	}

	configData := map[string]interface{}{
		"image":       container.Config.Image,
		"environment": container.Config.Env,
		"labels":      container.Config.Labels,
		"command":     container.Config.Cmd,
		"entrypoint":  container.Config.Entrypoint,
		"ports":       container.NetworkSettings.Ports,
	}
	configBytes, _ := json.MarshalIndent(configData, "", "  ")
	if err := os.WriteFile(filepath.Join(stagingDir, "config.json"), configBytes, 0o644); err != nil {
		a.logger.Error().Err(err).Msg("failed to write container config")
		return false
	}

	metadata := map[string]interface{}{
		"container_name": name,
		"image":          container.Config.Image,
		"volumes":        volumes,
		"compose_file":   descriptor.ComposeFile,
	}
	if err := writeManifest(stagingDir, descriptor.Name, descriptor.Kind, metadata); err != nil {
		a.logger.Error().Err(err).Msg("failed to write manifest")
		return false
	}

	if err := archiveDirectory(stagingDir, destinationPath); err != nil {
		a.logger.Error().Err(err).Str("service", descriptor.Name).Msg("failed to archive docker backup")
		return false
	}
	return true
}

func copyOneFileByPath(src, dest string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	return copyOneFile(src, dest, info)
}

func (a *Adapter) dockerUpdate(ctx context.Context, descriptor *types.ServiceDescriptor) bool {
	if descriptor.ComposeFile != "" {
		if err := runCommand(ctx, "docker", "compose", "-f", descriptor.ComposeFile, "pull"); err != nil {
			a.logger.Error().Err(err).Str("service", descriptor.Name).Msg("compose pull failed")
			return false
		}
		if err := runCommand(ctx, "docker", "compose", "-f", descriptor.ComposeFile, "up", "-d"); err != nil {
			a.logger.Error().Err(err).Str("service", descriptor.Name).Msg("compose up failed")
			return false
		}
		return true
	}

	// Standalone container: pull the current image tag. Recreating the
	// container is out of scope; the pull alone is reported as success.
	container, err := dockerInspect(ctx, containerName(descriptor))
	if err != nil {
		a.logger.Error().Err(err).Str("service", descriptor.Name).Msg("docker update: container not found")
		return false
	}
	if err := runCommand(ctx, "docker", "pull", container.Config.Image); err != nil {
		a.logger.Error().Err(err).Str("service", descriptor.Name).Msg("docker pull failed")
		return false
	}
	a.logger.Info().Str("service", descriptor.Name).Msg("standalone container recreation is out of scope; image pulled only")
	return true
}

func (a *Adapter) dockerValidate(ctx context.Context, descriptor *types.ServiceDescriptor) bool {
	container, err := dockerInspect(ctx, containerName(descriptor))
	if err != nil {
		return false
	}
	if !strings.EqualFold(container.State.Status, "running") {
		return false
	}
	if container.State.Health != nil && strings.EqualFold(container.State.Health.Status, "unhealthy") {
		return false
	}
	return checkHealthURL(descriptor)
}

func (a *Adapter) dockerStatus(ctx context.Context, descriptor *types.ServiceDescriptor) map[string]interface{} {
	container, err := dockerInspect(ctx, containerName(descriptor))
	if err != nil {
		return map[string]interface{}{"running": false, "status": "unknown"}
	}
	out := map[string]interface{}{
		"running": container.State.Running,
		"status":  container.State.Status,
		"created": container.Created,
		"image":   container.Config.Image,
	}
	if container.State.Health != nil {
		out["healthy"] = strings.EqualFold(container.State.Health.Status, "healthy")
	}
	return out
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}
