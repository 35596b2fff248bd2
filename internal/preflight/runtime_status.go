package preflight

import (
	"context"
	"fmt"
	"strings"

	"iconsort/internal/config"
	"iconsort/internal/services"
	"iconsort/internal/services/llm"
)

// CheckBackendFromConfig builds the configured backend and checks it. Used by
// "iconsort check" when no provider has been constructed yet.
func CheckBackendFromConfig(ctx context.Context, cfg *config.Config) Result {
	name := "Backend"
	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	name = "Backend " + cfg.ProviderID()
	backend, err := llm.NewBackend(ctx, cfg.Classify)
	if err != nil {
		return Result{
			Name:        name,
			Detail:      fmt.Sprintf("cannot build backend (%v)", err),
			Remediation: strings.Join(services.Remediation(err), "; "),
		}
	}
	if closer, ok := backend.(interface{ Close() error }); ok {
		defer closer.Close()
	}
	return CheckBackend(ctx, name, backend)
}
