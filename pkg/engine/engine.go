package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gridkeeper/autopilot/pkg/adapter"
	"github.com/gridkeeper/autopilot/pkg/adapter/generic"
	"github.com/gridkeeper/autopilot/pkg/adapter/proxmox"
	"github.com/gridkeeper/autopilot/pkg/config"
	"github.com/gridkeeper/autopilot/pkg/log"
	"github.com/gridkeeper/autopilot/pkg/metrics"
	"github.com/gridkeeper/autopilot/pkg/notify"
	"github.com/gridkeeper/autopilot/pkg/storage"
	"github.com/gridkeeper/autopilot/pkg/types"
)

// Engine is the central backup orchestrator. One Engine is built per
// run; it is not safe to reuse concurrently from multiple goroutines
// beyond the internal adapter-cache mutex, because the spec mandates
// sequential per-service processing within a single run.
type Engine struct {
	model  *config.Model
	store  storage.Store
	dryRun bool
	logger zerolog.Logger

	mu          sync.Mutex
	hypervisors map[types.ServiceKind]adapter.Hypervisor
	services    map[types.ServiceKind]adapter.Service
	notifier    adapter.Notifier
}

// New constructs an Engine, validating the backup subsystem configuration
// per §4.6's initialization rules. It fails fast with a ConfigError.
func New(model *config.Model, store storage.Store, dryRun bool) (*Engine, error) {
	backup := model.Global().Backup

	if !backup.Enabled {
		return nil, &ConfigError{Message: "backup subsystem is disabled"}
	}
	if backup.Root == "" || !filepath.IsAbs(backup.Root) {
		return nil, &ConfigError{Message: "backup.root must be an absolute path"}
	}
	if backup.RetentionDays < 1 {
		return nil, &ConfigError{Message: "backup.retention_days must be at least 1"}
	}

	e := &Engine{
		model:       model,
		store:       store,
		dryRun:      dryRun,
		logger:      log.WithComponent("engine"),
		hypervisors: make(map[types.ServiceKind]adapter.Hypervisor),
		services:    make(map[types.ServiceKind]adapter.Service),
	}
	e.notifier = e.buildNotifier()
	return e, nil
}

func (e *Engine) buildNotifier() adapter.Notifier {
	cfg := e.model.Global().Notification
	if cfg.Enabled && cfg.Kind == "webhook" {
		if url, ok := cfg.Settings["url"].(string); ok && url != "" {
			return notify.NewWebhook(url, log.WithComponent("notify"))
		}
		e.logger.Warn().Msg("notification kind is webhook but settings.url is missing; falling back to log notifier")
	}
	return notify.NewLog(log.WithComponent("notify"))
}

// hypervisorFor returns the cached hypervisor adapter for kind, building
// one on first use. First-writer-wins on a race is acceptable since
// adapters are idempotent to construct.
func (e *Engine) hypervisorFor(kind types.ServiceKind) adapter.Hypervisor {
	e.mu.Lock()
	defer e.mu.Unlock()

	if a, ok := e.hypervisors[kind]; ok {
		return a
	}

	hv := e.model.Global().Hypervisor
	cfg := proxmox.Config{
		Host:        hv.Host,
		User:        hv.User,
		Password:    hv.Password,
		TokenID:     hv.TokenID,
		TokenSecret: hv.TokenSecret,
		VerifyTLS:   hv.VerifyTLS,
	}
	a := proxmox.New(cfg, log.WithComponent("proxmox"))
	e.hypervisors[kind] = a
	return a
}

// serviceAdapterFor returns the cached service adapter for kind.
func (e *Engine) serviceAdapterFor(kind types.ServiceKind) adapter.Service {
	e.mu.Lock()
	defer e.mu.Unlock()

	if a, ok := e.services[kind]; ok {
		return a
	}

	a := generic.New(log.WithComponent("service_adapter"))
	e.services[kind] = a
	return a
}

// BackupAllServices runs backup_service for every configured service with
// backup enabled, in config order, then sends one summary notification.
func (e *Engine) BackupAllServices(ctx context.Context) map[string]bool {
	timer := metrics.NewTimer()
	runID := uuid.New().String()
	runLogger := log.WithRun(e.logger, runID)
	runLogger.Info().Msg("backup run starting")
	results := make(map[string]bool)

	for _, descriptor := range e.model.GetServices() {
		if !descriptor.Backup {
			continue
		}
		results[descriptor.Name] = e.safeBackupService(ctx, descriptor.Name)
	}

	if len(results) == 0 {
		runLogger.Info().Msg("backup run found no enabled services")
		return results
	}

	timer.ObserveDuration(metrics.RunDuration)
	duration := timer.Duration().Seconds()

	succeeded, failed := 0, 0
	for _, ok := range results {
		if ok {
			succeeded++
		} else {
			failed++
		}
	}
	metrics.RunServicesTotal.WithLabelValues("success").Set(float64(succeeded))
	metrics.RunServicesTotal.WithLabelValues("failed").Set(float64(failed))

	runLogger.Info().Int("succeeded", succeeded).Int("failed", failed).Float64("duration_seconds", duration).Msg("backup run finished")

	if err := e.notifySummary(ctx, results, duration); err != nil {
		runLogger.Warn().Err(err).Msg("summary notification failed")
	}
	return results
}

// safeBackupService recovers from a panic in BackupService, recording it
// as a failure rather than propagating it, matching backup_all_services'
// "catch any exception" contract.
func (e *Engine) safeBackupService(ctx context.Context, name string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.WithService(e.logger, name).Error().Interface("panic", r).Msg("backup_service panicked")
			e.recordFailure(name, fmt.Sprintf("panic: %v", r))
			ok = false
		}
	}()
	return e.BackupService(ctx, name)
}

// BackupService runs the full single-service pipeline described in §4.6.
func (e *Engine) BackupService(ctx context.Context, name string) bool {
	if strings.TrimSpace(name) == "" {
		panic(&ValueError{Message: "service name must not be empty"})
	}

	descriptor := e.model.GetService(name)
	if descriptor == nil {
		panic(&ValueError{Message: fmt.Sprintf("no service named %q is configured", name)})
	}

	if !descriptor.Backup {
		return true
	}

	if e.dryRun {
		e.recordSuccess(name, "", 0, 0)
		return true
	}

	start := time.Now()
	timer := metrics.NewTimer()

	var hv adapter.Hypervisor
	var svc adapter.Service
	if descriptor.Kind == types.KindVM || descriptor.Kind == types.KindLXC {
		hv = e.hypervisorFor(descriptor.Kind)
		if !hv.Matches(descriptor) {
			e.recordFailure(name, "no hypervisor adapter matches this service kind")
			return false
		}
	} else {
		svc = e.serviceAdapterFor(descriptor.Kind)
		if !svc.Matches(descriptor) {
			e.recordFailure(name, "no service adapter matches this service kind")
			return false
		}
	}

	destination, err := e.resolveDestination(ctx, descriptor)
	if err != nil {
		e.recordFailure(name, err.Error())
		return false
	}

	result := e.executeBackup(ctx, descriptor, destination, hv, svc, start)

	if result.success {
		minBytes := int64(defaultMinArtifactBytes)
		if destination.Method == types.DestinationRemote || result.path == "" {
			// no local artifact to inspect
		} else if ok, msg := verifyArtifact(result.path, minBytes); !ok {
			result.success = false
			result.errMessage = "verification failed: " + msg
		}
	}

	duration := timer.Duration().Seconds()

	if result.success {
		e.recordSuccess(name, result.path, result.sizeBytes, duration)
		metrics.BackupsTotal.WithLabelValues(string(descriptor.Kind), "success").Inc()
		timer.ObserveDurationVec(metrics.BackupDuration, string(descriptor.Kind))
		if result.sizeBytes > 0 {
			metrics.BackupSizeBytes.WithLabelValues(string(descriptor.Kind)).Observe(float64(result.sizeBytes))
		}

		if deleted, err := e.applyRetention(name, e.model.Global().Backup.RetentionDays); err != nil {
			e.logger.Warn().Str("service", name).Err(err).Msg("retention failed")
		} else if deleted > 0 {
			metrics.RetentionDeletionsTotal.WithLabelValues(name).Add(float64(deleted))
		}
		return true
	}

	e.recordFailure(name, result.errMessage)
	metrics.BackupsTotal.WithLabelValues(string(descriptor.Kind), "failed").Inc()
	return false
}

type backupResult struct {
	success    bool
	path       string
	sizeBytes  int64
	errMessage string
}

// executeBackup implements §4.6.3's dispatch-by-method step.
func (e *Engine) executeBackup(ctx context.Context, descriptor *types.ServiceDescriptor, destination types.BackupDestination, hv adapter.Hypervisor, svc adapter.Service, start time.Time) backupResult {
	metadata := &types.BackupMetadata{
		ServiceName:  descriptor.Name,
		ServiceKind:  descriptor.Kind,
		BackupMethod: destination.Method,
		Timestamp:    start.UTC(),
		Status:       types.StatusPending,
	}

	switch destination.Method {
	case types.DestinationRemote:
		if !hv.Backup(ctx, descriptor, destination, metadata) {
			return backupResult{success: false, errMessage: fmt.Sprintf("remote backup of %s failed; check remote archive server logs", descriptor.Name)}
		}
		return backupResult{success: true}

	case types.DestinationDirect:
		if err := os.MkdirAll(destination.Path, 0o755); err != nil {
			return backupResult{success: false, errMessage: fmt.Sprintf("creating direct shared storage path %s: %v", destination.Path, err)}
		}
		if !hv.Backup(ctx, descriptor, destination, metadata) {
			return backupResult{success: false, errMessage: fmt.Sprintf("direct backup of %s failed; check remote archive server logs", descriptor.Name)}
		}
		return backupResult{success: true, path: metadata.BackupPath, sizeBytes: statSize(metadata.BackupPath)}

	case types.DestinationLocal:
		if svc == nil {
			// vm/lxc with neither remote archive server nor direct shared
			// storage configured: the hypervisor adapter has no local
			// single-file backup path of its own.
			return backupResult{success: false, errMessage: fmt.Sprintf("%s: no remote_archive_server or direct_shared_storage configured for this hypervisor kind", descriptor.Name)}
		}

		serviceDir := filepath.Join(destination.Path, descriptor.Name)
		if err := os.MkdirAll(serviceDir, 0o755); err != nil {
			return backupResult{success: false, errMessage: fmt.Sprintf("%s: creating backup directory: %v", descriptor.Name, err)}
		}
		filename := artifactFilename(descriptor.Name, string(descriptor.Kind), start)
		destPath := filepath.Join(serviceDir, filename)

		if !svc.Backup(ctx, descriptor, destPath) {
			return backupResult{success: false, errMessage: fmt.Sprintf("%s: local backup via %s failed", descriptor.Name, destination.Method)}
		}
		return backupResult{success: true, path: destPath, sizeBytes: statSize(destPath)}

	default:
		return backupResult{success: false, errMessage: fmt.Sprintf("%s: unknown destination method %q", descriptor.Name, destination.Method)}
	}
}

func statSize(path string) int64 {
	if path == "" {
		return 0
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

func (e *Engine) recordSuccess(name, path string, sizeBytes int64, durationSeconds float64) {
	now := time.Now().UTC()
	_ = e.store.Set("last_backup."+name, now.Format(time.RFC3339))
	_ = e.store.Set("backup_status."+name, string(types.StatusSuccess))
	_ = e.store.Set("backup_path."+name, path)
	_ = e.store.Set("backup_duration."+name, fmt.Sprintf("%.2f", durationSeconds))
	_ = e.store.Delete("backup_error." + name)
}

func (e *Engine) recordFailure(name, message string) {
	now := time.Now().UTC()
	_ = e.store.Set("last_backup."+name, now.Format(time.RFC3339))
	_ = e.store.Set("backup_status."+name, string(types.StatusFailed))
	_ = e.store.Set("backup_error."+name, message)
	_ = e.store.Delete("backup_path." + name)
	_ = e.store.Delete("backup_duration." + name)
}
