package engine

import (
	"context"
	"strings"

	"github.com/gridkeeper/autopilot/pkg/adapter/proxmox"
	"github.com/gridkeeper/autopilot/pkg/types"
)

// sharedStoragePrefixes are the mount points a direct shared-storage path
// is expected to live under in a clustered hypervisor. A path outside
// these is allowed but flagged, since it may not actually be reachable
// from every node.
var sharedStoragePrefixes = []string{"/mnt", "/nfs", "/ceph"}

// resolveDestination implements §4.6.1: remote archive server first, then
// direct shared storage, then local, in that priority order. Only vm/lxc
// kinds consider remote or direct; every other kind is local.
func (e *Engine) resolveDestination(ctx context.Context, descriptor *types.ServiceDescriptor) (types.BackupDestination, error) {
	backup := e.model.Global().Backup

	if descriptor.Kind == types.KindVM || descriptor.Kind == types.KindLXC {
		if remote := backup.RemoteArchiveServer; remote != nil && remote.Enabled {
			dest, err := e.resolveRemoteDestination(ctx, descriptor.Name, remote)
			if err != nil {
				return types.BackupDestination{}, err
			}
			dest.Compress = backup.Compression
			return dest, nil
		}
		if direct := backup.DirectSharedStorage; direct != nil && direct.Enabled {
			dest, err := e.resolveDirectDestination(descriptor.Name, direct)
			if err != nil {
				return types.BackupDestination{}, err
			}
			dest.Compress = backup.Compression
			return dest, nil
		}
	}

	return types.BackupDestination{Method: types.DestinationLocal, Path: backup.Root, Compress: backup.Compression}, nil
}

func (e *Engine) resolveRemoteDestination(ctx context.Context, serviceName string, remote *types.RemoteArchiveServerConfig) (types.BackupDestination, error) {
	if remote.Host == "" || remote.Datastore == "" || remote.User == "" {
		return types.BackupDestination{}, &BackupError{Service: serviceName, Message: "remote_archive_server is enabled but host, datastore, or user is missing"}
	}

	cfg := proxmox.Config{
		Host:      remote.Host,
		Port:      remote.Port,
		User:      remote.User,
		Password:  remote.Password,
		VerifyTLS: remote.VerifyTLS,
	}
	if err := proxmox.ProbeRemoteArchive(ctx, cfg, e.logger); err != nil {
		return types.BackupDestination{}, &BackupError{
			Service: serviceName,
			Message: "remote archive server at " + remote.Host + " is unreachable; check network connectivity and that the service is running: " + err.Error(),
		}
	}

	return types.BackupDestination{Method: types.DestinationRemote, RemoteConfig: remote}, nil
}

func (e *Engine) resolveDirectDestination(serviceName string, direct *types.DirectSharedStorageConfig) (types.BackupDestination, error) {
	if direct.Path == "" {
		return types.BackupDestination{}, &BackupError{Service: serviceName, Message: "direct_shared_storage is enabled but path is missing"}
	}

	shared := false
	for _, prefix := range sharedStoragePrefixes {
		if strings.HasPrefix(direct.Path, prefix) {
			shared = true
			break
		}
	}
	if !shared {
		e.logger.Warn().Str("service", serviceName).Str("path", direct.Path).
			Msg("direct_shared_storage path is not under /mnt, /nfs, or /ceph; it may not be reachable from every cluster node")
	}

	return types.BackupDestination{Method: types.DestinationDirect, Path: direct.Path}, nil
}
