package generic

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/gridkeeper/autopilot/pkg/types"
)

// Adapter implements adapter.Service for docker, systemd, generic and
// host descriptors.
type Adapter struct {
	logger zerolog.Logger
}

// New constructs a generic service adapter.
func New(logger zerolog.Logger) *Adapter {
	return &Adapter{logger: logger.With().Str("component", "generic_adapter").Logger()}
}

func (a *Adapter) Matches(descriptor *types.ServiceDescriptor) bool {
	switch descriptor.Kind {
	case types.KindDocker, types.KindSystemd, types.KindGeneric, types.KindHost:
		return true
	default:
		return false
	}
}

func (a *Adapter) Backup(ctx context.Context, descriptor *types.ServiceDescriptor, destinationPath string) bool {
	switch descriptor.Kind {
	case types.KindDocker:
		return a.dockerBackup(ctx, descriptor, destinationPath)
	case types.KindSystemd:
		return a.systemdBackup(ctx, descriptor, destinationPath)
	case types.KindGeneric, types.KindHost:
		return a.genericBackup(ctx, descriptor, destinationPath)
	default:
		a.logger.Error().Str("service", descriptor.Name).Str("kind", string(descriptor.Kind)).
			Msg("generic adapter invoked for unsupported kind")
		return false
	}
}

func (a *Adapter) Update(ctx context.Context, descriptor *types.ServiceDescriptor) bool {
	switch descriptor.Kind {
	case types.KindDocker:
		return a.dockerUpdate(ctx, descriptor)
	case types.KindSystemd:
		return a.systemdUpdate(ctx, descriptor)
	default:
		// Generic and host updates are unsupported; no side effects.
		return false
	}
}

func (a *Adapter) Validate(ctx context.Context, descriptor *types.ServiceDescriptor) bool {
	switch descriptor.Kind {
	case types.KindDocker:
		return a.dockerValidate(ctx, descriptor)
	case types.KindSystemd:
		return a.systemdValidate(ctx, descriptor)
	case types.KindGeneric, types.KindHost:
		return a.genericValidate(descriptor)
	default:
		return false
	}
}

// Rollback is not supported for any kind this adapter serves.
func (a *Adapter) Rollback(ctx context.Context, descriptor *types.ServiceDescriptor) bool {
	return false
}

func (a *Adapter) Status(ctx context.Context, descriptor *types.ServiceDescriptor) map[string]interface{} {
	switch descriptor.Kind {
	case types.KindDocker:
		return a.dockerStatus(ctx, descriptor)
	case types.KindSystemd:
		return a.systemdStatus(ctx, descriptor)
	case types.KindGeneric, types.KindHost:
		return a.genericStatus(descriptor)
	default:
		return map[string]interface{}{"running": nil}
	}
}
