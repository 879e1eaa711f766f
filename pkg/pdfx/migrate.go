package pdfx

import (
	"context"
	"fmt"
)

// Migrate initializes or updates the schema of the configured backend to
// match the data model. For PostgreSQL this runs GORM AutoMigrate over all
// tables; for SurrealDB it defines the unique indexes the annotation upsert
// path relies on; the in-memory backend has nothing to do.
//
// Safe to run repeatedly: only missing schema elements are created and
// existing data is never dropped. Run it before first startup and after
// model changes.
func (a *App) Migrate(ctx context.Context, cmd *MigrateCommand) error {
	a.log.Info().Str("backend", a.config.Backend).Msg("running database migrations")
	if err := a.store.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	a.log.Info().Msg("migrations completed")
	return nil
}
