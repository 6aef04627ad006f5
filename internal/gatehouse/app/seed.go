package app

import (
	"context"

	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/domain"
	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/service"
)

// seedModules provisions the modules configured through the environment.
// Provisioning is idempotent, so this runs on every boot and rotates the
// stored token when the configured one changes.
func (app *Application) seedModules(ctx context.Context) error {
	if app.cfg.ModulePGToken == "" {
		app.logger.Info("MODULE_PG_TOKEN not set; pg module not provisioned")
		return nil
	}

	_, err := app.tokenService.ProvisionModule(ctx, service.ModuleSpec{
		Slug:        "pg",
		Name:        app.cfg.ModulePGName,
		Description: app.cfg.ModulePGDescription,
		Secret:      app.cfg.ModulePGToken,
		Abilities:   []string{domain.AbilityPermissionsBatch},
	})
	return err
}
