package pdfx

import (
	"context"
	"fmt"
)

// Main is the main entry point for the pdfx application. It takes a context
// for cancellation and command line arguments, then executes the
// appropriate command. Tests call it directly without building the binary.
//
// # Command Line Usage
//
//	# Run against PostgreSQL (default)
//	pdfx run
//
//	# Run against SurrealDB
//	pdfx -backend surrealdb run
//
//	# Run against the in-memory store (development and tests)
//	pdfx -backend memory run
//
//	# Apply schema migrations before first start
//	pdfx migrate
//
// # Environment Variables
//
//	POSTGRES_DSN     - PostgreSQL connection string
//	SURREALDB_URL    - SurrealDB WebSocket URL (default: ws://localhost:8000/rpc)
//	SURREALDB_NS     - SurrealDB namespace (default: pdfx)
//	SURREALDB_DB     - SurrealDB database (default: pdfx)
//	SURREALDB_USER   - SurrealDB username (default: root)
//	SURREALDB_PASS   - SurrealDB password (default: root)
//	AWS_REGION       - Region for the upload bucket (default: us-east-1)
//	PDFX_S3_BUCKET   - S3 bucket for uploaded PDFs; empty keeps uploads in memory
//
// A .env file in the working directory is loaded when present.
func Main(ctx context.Context, args []string) error {
	cmd, config, err := Parse(args)
	if err != nil {
		return fmt.Errorf("failed to parse configuration: %w", err)
	}

	app, err := New(config)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	defer app.Close()

	switch c := cmd.(type) {
	case *MigrateCommand:
		if err := app.Migrate(ctx, c); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	case *RunCommand:
		if err := app.Run(ctx, c); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	default:
		return fmt.Errorf("unknown command type: %T", cmd)
	}

	return nil
}
