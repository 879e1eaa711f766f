package pdfx

// Command represents a discrete application operation with its specific
// configuration.
//
// The Command interface separates command parsing from execution. Each
// implementation carries the options for its operation, while [App] handles
// routing and execution. Commands are created by [Parse] from command-line
// arguments and dispatched by [Main].
//
// Current command implementations:
//   - [MigrateCommand]: database schema migration
//   - [RunCommand]: HTTP server startup and operation
type Command interface {
	// Name returns the command identifier used for routing. The returned
	// name matches the CLI sub-command.
	Name() string
}

// MigrateCommand represents the database schema migration operation.
//
// MigrateCommand initializes or updates the schema of the configured backend
// to match the application's data model. For PostgreSQL this runs GORM's
// AutoMigrate; for SurrealDB it defines the unique indexes the upsert paths
// rely on; the in-memory backend needs no schema.
//
// Run it before first startup and after model changes. The command is
// idempotent: it only creates missing schema elements and never drops data.
type MigrateCommand struct {
	// Currently empty - all configuration comes from App.Config.
}

// Name returns the command name for routing.
func (c *MigrateCommand) Name() string {
	return "migrate"
}

// RunCommand represents the HTTP server startup and operation.
//
// RunCommand launches the web server that backs the PDF annotation plugin:
// document management for course staff, the viewer source endpoints, and the
// per-user annotation save/load/clear API. See [App.Run] for the full
// endpoint listing.
//
// The server runs until its context is cancelled or a fatal error occurs.
// On cancellation it completes in-flight requests before closing database
// connections.
type RunCommand struct {
	// Currently empty - all configuration comes from App.Config.
}

// Name returns the command name for routing.
func (c *RunCommand) Name() string {
	return "run"
}
