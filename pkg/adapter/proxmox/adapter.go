package proxmox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gridkeeper/autopilot/pkg/types"
)

// Adapter implements adapter.Hypervisor for Proxmox VE.
type Adapter struct {
	cfg    Config
	logger zerolog.Logger

	mu     sync.Mutex
	client *client
}

// New constructs an adapter. The REST client itself is created lazily on
// first use and reused for the process lifetime.
func New(cfg Config, logger zerolog.Logger) *Adapter {
	return &Adapter{cfg: cfg, logger: logger.With().Str("component", "proxmox_adapter").Logger()}
}

func (a *Adapter) conn() *client {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client == nil {
		a.client = newClient(a.cfg, a.logger)
	}
	return a.client
}

func (a *Adapter) Matches(descriptor *types.ServiceDescriptor) bool {
	return descriptor.Kind == types.KindVM || descriptor.Kind == types.KindLXC
}

func pveKind(kind types.ServiceKind) string {
	if kind == types.KindVM {
		return "qemu"
	}
	return "lxc"
}

func (a *Adapter) resolveNode(ctx context.Context, descriptor *types.ServiceDescriptor) string {
	return a.conn().resolveNode(ctx, descriptor.VMID, pveKind(descriptor.Kind), descriptor.Node)
}

// Backup dispatches by destination.Method and polls the resulting task to
// completion, matching the contract in spec §4.4.
func (a *Adapter) Backup(ctx context.Context, descriptor *types.ServiceDescriptor, destination types.BackupDestination, metadata *types.BackupMetadata) bool {
	if !a.Matches(descriptor) {
		a.logger.Error().Str("service", descriptor.Name).Msg("proxmox adapter invoked for non vm/lxc descriptor")
		return false
	}
	if descriptor.VMID == 0 {
		a.logger.Error().Str("service", descriptor.Name).Msg("missing vmid")
		return false
	}

	node := a.resolveNode(ctx, descriptor)
	c := a.conn()

	var upid string
	var err error

	switch destination.Method {
	case types.DestinationRemote:
		// compression as configured, per §4.4.
		compress := "0"
		if destination.Compress {
			compress = "zstd"
		}
		storage := ""
		if destination.RemoteConfig != nil {
			storage = destination.RemoteConfig.Datastore
		}
		upid, err = c.startBackup(ctx, node, descriptor.VMID, "snapshot", compress, storage, "")
	case types.DestinationDirect:
		// direct dumps are always zstd, per §4.4; not configurable.
		upid, err = c.startBackup(ctx, node, descriptor.VMID, "snapshot", "zstd", "", destination.Path)
	default:
		a.logger.Error().Str("service", descriptor.Name).Str("method", string(destination.Method)).
			Msg("proxmox adapter does not support this destination method")
		return false
	}
	if err != nil {
		a.logger.Error().Err(err).Str("service", descriptor.Name).Msg("vzdump start failed")
		return false
	}

	status, err := c.waitForTask(ctx, node, upid, backupTaskTimeout)
	if err != nil {
		a.logger.Error().Err(err).Str("service", descriptor.Name).Str("upid", upid).Msg("vzdump task wait failed")
		return false
	}
	if status.ExitStatus != "OK" {
		lines := c.taskErrorLines(ctx, node, upid)
		a.logger.Error().Str("service", descriptor.Name).Str("upid", upid).
			Strs("error_lines", lines).Msg("vzdump task did not exit OK")
		return false
	}

	metadata.Node = node
	metadata.VMID = descriptor.VMID
	if destination.Method == types.DestinationRemote && destination.RemoteConfig != nil {
		metadata.RemoteDetails = &types.RemoteDetails{
			Host:      destination.RemoteConfig.Host,
			Datastore: destination.RemoteConfig.Datastore,
		}
	}
	return true
}

func (a *Adapter) doSnapshot(ctx context.Context, descriptor *types.ServiceDescriptor, op func(c *client, node, kind string, vmid int) (string, error)) bool {
	if !a.Matches(descriptor) || descriptor.VMID == 0 {
		return false
	}
	node := a.resolveNode(ctx, descriptor)
	c := a.conn()

	upid, err := op(c, node, pveKind(descriptor.Kind), descriptor.VMID)
	if err != nil {
		a.logger.Error().Err(err).Str("service", descriptor.Name).Msg("snapshot operation failed")
		return false
	}
	if upid == "" {
		return true
	}
	status, err := c.waitForTask(ctx, node, upid, snapshotTimeout)
	if err != nil {
		a.logger.Error().Err(err).Str("service", descriptor.Name).Msg("snapshot task wait failed")
		return false
	}
	return status.ExitStatus == "OK"
}

func (a *Adapter) SnapshotCreate(ctx context.Context, descriptor *types.ServiceDescriptor, name string) bool {
	return a.doSnapshot(ctx, descriptor, func(c *client, node, kind string, vmid int) (string, error) {
		return c.snapshotCreate(ctx, node, kind, vmid, name)
	})
}

func (a *Adapter) SnapshotRestore(ctx context.Context, descriptor *types.ServiceDescriptor, name string) bool {
	return a.doSnapshot(ctx, descriptor, func(c *client, node, kind string, vmid int) (string, error) {
		return c.snapshotRollback(ctx, node, kind, vmid, name)
	})
}

func (a *Adapter) SnapshotDelete(ctx context.Context, descriptor *types.ServiceDescriptor, name string) bool {
	return a.doSnapshot(ctx, descriptor, func(c *client, node, kind string, vmid int) (string, error) {
		return c.snapshotDelete(ctx, node, kind, vmid, name)
	})
}

func (a *Adapter) Status(ctx context.Context, descriptor *types.ServiceDescriptor) map[string]interface{} {
	out := map[string]interface{}{
		"vmid": descriptor.VMID,
		"kind": string(descriptor.Kind),
		"node": descriptor.Node,
	}
	if !a.Matches(descriptor) || descriptor.VMID == 0 {
		out["status"] = "unknown"
		return out
	}

	node := a.resolveNode(ctx, descriptor)
	out["node"] = node

	s, err := a.conn().status(ctx, node, pveKind(descriptor.Kind), descriptor.VMID)
	if err != nil {
		a.logger.Warn().Err(err).Str("service", descriptor.Name).Msg("status lookup failed")
		out["status"] = "unknown"
		return out
	}
	out["status"] = s.Status
	out["cpu"] = s.CPU
	out["memory"] = s.Mem
	out["uptime"] = s.Uptime
	return out
}

// ProbeRemoteArchive performs the fast reachability probe used by
// destination selection: an HTTP GET on the version endpoint of the server
// described by cfg (preceded by a ticket login when no API token is set),
// bounded by a 5-second timeout and honoring the configured TLS
// verification setting.
func ProbeRemoteArchive(ctx context.Context, cfg Config, logger zerolog.Logger) error {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	c := newClient(cfg, logger)
	if err := c.probeVersion(probeCtx); err != nil {
		return fmt.Errorf("remote archive server unreachable at %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return nil
}
