// Package adapter declares the three capability sets the backup engine
// dispatches through: Hypervisor (vm/lxc), Service (docker/systemd/
// generic/host), and Notifier. A concrete implementation may satisfy more
// than one set; the engine selects by the service descriptor's kind, not
// by a discovery mechanism, and caches one instance per kind for the
// lifetime of a run.
package adapter

import (
	"context"

	"github.com/gridkeeper/autopilot/pkg/types"
)

// Hypervisor is implemented by adapters serving kinds {vm, lxc}.
type Hypervisor interface {
	// Matches reports whether this adapter handles descriptor's kind.
	Matches(descriptor *types.ServiceDescriptor) bool

	// Backup writes an artifact for descriptor to destination and fills
	// in metadata fields the adapter discovers along the way (actual
	// node, remote details). It returns no error value: every failure,
	// whether an expected operational one or a misuse such as a
	// mismatched kind, is reported as a false return plus log context.
	Backup(ctx context.Context, descriptor *types.ServiceDescriptor, destination types.BackupDestination, metadata *types.BackupMetadata) bool

	SnapshotCreate(ctx context.Context, descriptor *types.ServiceDescriptor, name string) bool
	SnapshotRestore(ctx context.Context, descriptor *types.ServiceDescriptor, name string) bool
	SnapshotDelete(ctx context.Context, descriptor *types.ServiceDescriptor, name string) bool

	// Status returns at least "status", "node", "vmid", "kind"; it may
	// include "cpu", "memory", "uptime" when the hypervisor provides them.
	Status(ctx context.Context, descriptor *types.ServiceDescriptor) map[string]interface{}
}

// Service is implemented by adapters serving kinds {docker, systemd,
// generic, host}.
type Service interface {
	Matches(descriptor *types.ServiceDescriptor) bool

	// Backup writes a single archive at destinationPath.
	Backup(ctx context.Context, descriptor *types.ServiceDescriptor, destinationPath string) bool

	Update(ctx context.Context, descriptor *types.ServiceDescriptor) bool

	// Validate reports whether the workload is currently healthy.
	Validate(ctx context.Context, descriptor *types.ServiceDescriptor) bool

	// Rollback may be unsupported; an adapter that doesn't support it
	// returns false rather than an error.
	Rollback(ctx context.Context, descriptor *types.ServiceDescriptor) bool

	Status(ctx context.Context, descriptor *types.ServiceDescriptor) map[string]interface{}
}

// Notifier delivers a message through exactly one active transport.
type Notifier interface {
	// Matches reports whether this notifier handles the configured kind.
	Matches(cfg types.NotificationConfig) bool

	Send(ctx context.Context, title, body string, level types.NotifyLevel, metadata map[string]interface{}) bool

	TestConnection(ctx context.Context) bool
}
