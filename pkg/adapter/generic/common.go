package generic

import (
	"context"

	"github.com/gridkeeper/autopilot/pkg/health"
	"github.com/gridkeeper/autopilot/pkg/types"
)

// checkHealthURL performs the optional HTTP 200 probe described by
// descriptor.HealthCheckURL. A descriptor without one is considered
// healthy as far as this check is concerned.
func checkHealthURL(descriptor *types.ServiceDescriptor) bool {
	if descriptor.HealthCheckURL == "" {
		return true
	}
	checker := health.NewHTTPChecker(descriptor.HealthCheckURL)
	checker.ExpectedStatusMax = 200
	result := checker.Check(context.Background())
	return result.Healthy
}
