// Package pdfx is the backend service for a PDF annotation plugin used in
// online courses: students read course PDFs in the browser and mark them up
// with freehand drawings, highlights, text notes, shapes, and marker strokes,
// all persisted per user and per document.
//
// The interesting part of the system is not serving PDFs but reconciling
// annotation state. The viewer submits deltas (additions, in-place edits,
// and deletions keyed by annotation kind, page, and id) and the server folds
// them into durable per-user collections without ever letting one client's
// partial view overwrite another tab's work.
//
// # Features
//
//   - Per-user annotation persistence across five kinds: drawings, highlights,
//     text notes, shapes, and marker strokes
//   - Id-keyed union merge: re-submitting an annotation updates it in place,
//     unrelated annotations on the same page are never clobbered
//   - Deletion passes that prune emptied pages and skip upsert work entirely
//     for deletion-only submissions
//   - Three visibility tiers: private per-user collections, staff-broadcast
//     highlights every student sees, and course-wide notes
//   - Staff aggregate view across all students of a document, isolated so one
//     student can never read another's private marks
//   - Per-user view settings (current page, brightness, grayscale) patched on
//     save and defaulted on first load
//   - Dual database support: PostgreSQL (GORM ORM) and SurrealDB (native
//     SurrealQL with the surrealcbor codec), plus an in-memory store for
//     tests and local development
//   - Document authoring for course staff: external URLs, validated PDF
//     uploads stored in S3, inline data URIs, thumbnails, and per-document
//     download/annotation switches
//   - Read-only maintenance mode: reads keep serving while writes are
//     rejected at the store boundary
//
// # Architecture Overview
//
// The application keeps reconciliation logic independent of both transport
// and storage:
//
//   - [github.com/abconlinecourses/pdfx-xblock/pkg/annotations] owns the
//     save/load/clear semantics: ownership checks, strict payload parsing,
//     the deletion and merge passes, and role-based view assembly
//   - [github.com/abconlinecourses/pdfx-xblock/pkg/store] abstracts
//     persistence behind a Store interface with PostgreSQL, SurrealDB, and
//     in-memory implementations; annotation records are written whole with
//     last-write-wins semantics
//   - [github.com/abconlinecourses/pdfx-xblock/pkg/pdfx] wires identity
//     resolution, HTTP handlers, and lifecycle around the service
//
// # Concurrency Contract
//
// A save is one read-modify-write of the caller's own records. Private
// collections are exclusively owned by one (user, document) pair, so
// cross-user contention cannot occur by construction; concurrent saves by
// the same user from multiple tabs resolve last-write-wins at whole-save
// granularity, which is accepted and documented rather than engineered
// around.
//
// # Package Organization
//
// For detailed information about sub-packages and their specific
// functionality, see [github.com/abconlinecourses/pdfx-xblock/pkg].
//
// # Getting Started
//
// For command-line usage, quick start examples, and application
// configuration, see [github.com/abconlinecourses/pdfx-xblock/pkg/pdfx].
//
// # API Integration
//
// The [github.com/abconlinecourses/pdfx-xblock/pkg/client] package provides a
// Go HTTP client for programmatic access to the pdfx API. The
// [github.com/abconlinecourses/pdfx-xblock/pkg/pdfxtesting] package includes
// utilities for load testing and virtual student simulation.
//
// For testing and development, see the end-to-end tests that exercise the
// annotation protocol and maintenance-mode behavior against a live server.
package pdfx
