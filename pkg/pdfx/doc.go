// Package pdfx provides the core application logic for the pdfx course
// reader backend: PDF documents registered by course staff, viewed and
// annotated per-student, with shared staff-broadcast and course-wide
// annotation tiers layered on top.
//
// The application is the server half of a PDF annotation plugin. The
// browser-side viewer renders documents and captures strokes, highlights,
// notes, and shapes; this backend owns persistence, identity checks, and
// the merge semantics that keep concurrent viewer instances from clobbering
// each other's work.
//
// # Getting Started
//
// The application provides a command-line interface for running the server
// and managing schema migrations. For detailed usage information, see
// [Main].
//
// For API endpoint documentation and server configuration, see [App.Run].
//
// # Prerequisites
//
//   - Go 1.24+
//   - PostgreSQL or SurrealDB (the in-memory backend needs neither)
//
// # Basic Usage
//
//	# Run database migrations
//	pdfx migrate
//
//	# Run with PostgreSQL (default)
//	pdfx run
//
//	# Run with SurrealDB
//	pdfx -backend surrealdb run
//
//	# Run with the in-memory store for local development
//	pdfx -backend memory -log-pretty run
//
//	# Serve reads only during a maintenance window
//	pdfx -read-only run
package pdfx
