/*
Package types defines the data model shared across the backup autopilot:
service descriptors, the validated global configuration tree, and the
per-run value objects (destinations, metadata) the backup engine builds
while it works.

# Core Types

Inventory:
  - ServiceDescriptor: one workload entry from the services list
  - ServiceKind: vm, lxc, docker, systemd, generic, host

Configuration:
  - GlobalConfig: the validated, immutable configuration tree
  - HypervisorConfig, BackupConfig, RemoteArchiveServerConfig,
    DirectSharedStorageConfig, NotificationConfig

Run-scoped values:
  - BackupDestination: the strategy chosen for one backup_service call
  - BackupMetadata: the JSON-serializable record created per run

# Design Patterns

Enumerations are typed strings, matching the wider corpus's convention
(ServiceKind, DestinationMethod, BackupStatus, NotifyLevel). Optional
configuration blocks are pointers so their absence is distinguishable
from their zero value (nil *RemoteArchiveServerConfig means "not
configured" rather than "configured but disabled").

# Validation

Struct tags consumed by pkg/config (github.com/go-playground/validator)
express field-level constraints, such as a required name, kind and
backup root, the kind enum, the vmid and port ranges, and
retention_days >= 1. The
per-kind requirements (vm/lxc require vmid and node, docker requires
container_name, systemd requires unit_name) and the other rules tags
cannot express are enforced by a semantic pass in pkg/config that runs
alongside struct-tag validation; errors from both are aggregated.
*/
package types
