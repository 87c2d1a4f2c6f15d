package engine

import "fmt"

// ConfigError reports a problem discovered while constructing the engine:
// the backup subsystem is disabled, the root is unset or relative, or
// retention_days is out of range.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string { return fmt.Sprintf("engine config: %s", e.Message) }

// BackupError reports a failure in the backup pipeline itself: a
// destination could not be resolved or retention listing failed.
type BackupError struct {
	Service string
	Message string
}

func (e *BackupError) Error() string {
	if e.Service != "" {
		return fmt.Sprintf("backup %s: %s", e.Service, e.Message)
	}
	return fmt.Sprintf("backup: %s", e.Message)
}

// ValueError reports an invalid argument passed to a public operation,
// such as an empty service name or a malformed summary mapping.
type ValueError struct {
	Message string
}

func (e *ValueError) Error() string { return fmt.Sprintf("engine: %s", e.Message) }
