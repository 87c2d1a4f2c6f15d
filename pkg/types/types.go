package types

import "time"

// ServiceKind identifies the workload family a ServiceDescriptor belongs to.
type ServiceKind string

const (
	KindVM      ServiceKind = "vm"
	KindLXC     ServiceKind = "lxc"
	KindDocker  ServiceKind = "docker"
	KindSystemd ServiceKind = "systemd"
	KindGeneric ServiceKind = "generic"
	KindHost    ServiceKind = "host"
)

// ServiceDescriptor is the identity and scheduling record for one workload.
// Field validity per kind is enforced by pkg/config at load time; by the
// time a descriptor reaches the engine or an adapter it is known-good.
type ServiceDescriptor struct {
	Name    string      `yaml:"name" validate:"required"`
	Kind    ServiceKind `yaml:"kind" validate:"required,oneof=vm lxc docker systemd generic host"`
	Enabled bool        `yaml:"enabled"`
	Backup  bool        `yaml:"backup"`
	Update  bool        `yaml:"update"`
	Monitor bool        `yaml:"monitor"`

	// vm/lxc
	VMID int    `yaml:"vmid,omitempty" validate:"omitempty,min=100,max=999999"`
	Node string `yaml:"node,omitempty"`

	// docker
	ContainerName string `yaml:"container_name,omitempty"`
	ComposeFile   string `yaml:"compose_file,omitempty"`

	// systemd
	UnitName     string   `yaml:"unit_name,omitempty"`
	ConfigPaths  []string `yaml:"config_paths,omitempty"`
	DataPaths    []string `yaml:"data_paths,omitempty"`
	PackageName  string   `yaml:"package_name,omitempty"`

	// generic/host
	BackupPaths []string `yaml:"backup_paths,omitempty"`

	// optional cross-kind extras
	HealthCheckURL string `yaml:"health_check_url,omitempty"`

	// Extra is not filled in by pkg/config. Service descriptors, unlike
	// the root config sections, accept unknown keys without a validation
	// error, but those keys are dropped during decoding.
	Extra map[string]interface{} `yaml:"-"`
}

// HypervisorConfig describes the cluster the Proxmox adapter talks to.
type HypervisorConfig struct {
	Kind      string `yaml:"kind" validate:"required"`
	Host      string `yaml:"host" validate:"required"`
	User      string `yaml:"user" validate:"required"`
	Password  string `yaml:"password,omitempty"`
	TokenID     string `yaml:"token_id,omitempty"`
	TokenSecret string `yaml:"token_secret,omitempty"`
	VerifyTLS   bool   `yaml:"verify_tls"`
}

// RemoteArchiveServerConfig describes an opaque backup appliance (e.g. a
// Proxmox Backup Server datastore) the hypervisor streams images to.
type RemoteArchiveServerConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Host            string `yaml:"host" validate:"required_if=Enabled true"`
	Port            int    `yaml:"port" validate:"omitempty,min=1,max=65535"`
	Datastore       string `yaml:"datastore" validate:"required_if=Enabled true"`
	User            string `yaml:"user" validate:"required_if=Enabled true"`
	Password        string `yaml:"password,omitempty"`
	PasswordCommand string `yaml:"password_command,omitempty"`
	VerifyTLS       bool   `yaml:"verify_tls"`
}

// DirectSharedStorageConfig describes a filesystem path reachable from
// every hypervisor node, used as a vzdump dump target.
type DirectSharedStorageConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" validate:"required_if=Enabled true"`
	Format  string `yaml:"format" validate:"omitempty,oneof=vma tar"`
}

// BackupConfig is the `global.backup` section.
type BackupConfig struct {
	Enabled              bool                       `yaml:"enabled"`
	Root                 string                     `yaml:"root" validate:"required"`
	RetentionDays        int                        `yaml:"retention_days" validate:"min=1"`
	Compression          bool                       `yaml:"compression"`
	RemoteArchiveServer  *RemoteArchiveServerConfig `yaml:"remote_archive_server,omitempty"`
	DirectSharedStorage  *DirectSharedStorageConfig `yaml:"direct_shared_storage,omitempty"`
}

// NotificationConfig is the `global.notification` section.
type NotificationConfig struct {
	Enabled  bool                   `yaml:"enabled"`
	Kind     string                 `yaml:"kind"`
	Settings map[string]interface{} `yaml:"settings,omitempty"`
}

// GlobalConfig is the root of the validated, immutable configuration tree.
type GlobalConfig struct {
	Hypervisor   HypervisorConfig   `yaml:"hypervisor"`
	Backup       BackupConfig       `yaml:"backup"`
	Notification NotificationConfig `yaml:"notification"`
}

// Document is the top-level shape of one configuration file: a `global`
// section plus the appended services list.
type Document struct {
	Global   GlobalConfig        `yaml:"global"`
	Services []ServiceDescriptor `yaml:"services"`
}

// DestinationMethod is the strategy chosen for one backup run.
type DestinationMethod string

const (
	DestinationRemote DestinationMethod = "remote"
	DestinationDirect DestinationMethod = "direct"
	DestinationLocal  DestinationMethod = "local"
)

// BackupDestination is the resolved strategy/location for one backup_service
// invocation. RemoteConfig is populated only when Method is remote.
type BackupDestination struct {
	Method       DestinationMethod
	Path         string
	RemoteConfig *RemoteArchiveServerConfig
	// Compress mirrors global.backup.compression at resolution time, for
	// adapters whose destination method honors it (remote; direct is
	// always zstd per §4.4 regardless of this flag).
	Compress bool
}

// BackupStatus is the terminal state of one backup attempt.
type BackupStatus string

const (
	StatusPending BackupStatus = "pending"
	StatusSuccess BackupStatus = "success"
	StatusFailed  BackupStatus = "failed"
)

// RemoteDetails is the subset of remote-archive-server identification
// that is safe to embed in metadata (no secrets).
type RemoteDetails struct {
	Host      string `json:"host,omitempty"`
	Datastore string `json:"datastore,omitempty"`
}

// BackupMetadata is the JSON-serializable record created per run.
type BackupMetadata struct {
	ServiceName     string            `json:"service_name"`
	ServiceKind     ServiceKind       `json:"service_kind"`
	BackupMethod    DestinationMethod `json:"backup_method"`
	Timestamp       time.Time         `json:"timestamp"`
	Status          BackupStatus      `json:"status"`
	BackupPath      string            `json:"backup_path,omitempty"`
	FileSizeBytes   int64             `json:"file_size_bytes,omitempty"`
	DurationSeconds float64           `json:"duration_seconds"`
	VMID            int               `json:"vmid,omitempty"`
	Node            string            `json:"node,omitempty"`
	RemoteDetails   *RemoteDetails    `json:"remote_details,omitempty"`
	ErrorMessage    string            `json:"error_message,omitempty"`
}

// NotifyLevel tags the severity of a notifier message.
type NotifyLevel string

const (
	LevelInfo    NotifyLevel = "info"
	LevelSuccess NotifyLevel = "success"
	LevelWarning NotifyLevel = "warning"
	LevelError   NotifyLevel = "error"
)

// Manifest is the JSON header embedded at the top of every service-adapter
// archive, describing what was captured.
type Manifest struct {
	ServiceName string                 `json:"service_name"`
	ServiceKind ServiceKind            `json:"service_kind"`
	BackupDate  time.Time              `json:"backup_date"`
	Version     string                 `json:"version"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}
