// Package pkg contains all the sub-packages for the pdfx backend.
//
// This package serves as a central namespace for organizing the application's
// core functionality into focused, single-purpose packages that together
// provide a complete PDF annotation backend with multi-database support.
//
// # Package Architecture
//
// The sub-packages are organized in three main layers:
//
// # Application Layer
//
// [github.com/abconlinecourses/pdfx-xblock/pkg/pdfx] - Application wiring, command
// orchestration, and HTTP handlers. Contains the main entry points, the session-based
// identity resolver, and the route table. Use this package when adding commands or
// extending the HTTP API.
//
// # Domain Layer
//
// [github.com/abconlinecourses/pdfx-xblock/pkg/models] - Domain entities, typed IDs,
// and the annotation record shapes. Defines documents, annotations, page maps,
// visibility scopes, view settings, users, and thumbnails. Use this package when
// working with data models or adding entity types.
//
// [github.com/abconlinecourses/pdfx-xblock/pkg/annotations] - The reconciliation
// core: save/load/clear semantics, ownership and permission guards, strict payload
// parsing, the id-keyed union merge, and role-based view assembly. This is where
// the system's behavioral contracts live; everything else is plumbing around it.
//
// [github.com/abconlinecourses/pdfx-xblock/pkg/assets] - The binary side of
// documents: validated PDF uploads, blob storage with an S3 implementation,
// source-URL resolution for the viewer, and thumbnail validation.
//
// # Infrastructure Layer
//
// [github.com/abconlinecourses/pdfx-xblock/pkg/store] - Data persistence layer
// abstraction with the [github.com/abconlinecourses/pdfx-xblock/pkg/store.Store]
// interface, plus the read-only maintenance wrapper. Provides a unified interface
// for database operations across backend implementations.
//
// [github.com/abconlinecourses/pdfx-xblock/pkg/store/postgres] - PostgreSQL
// implementation using GORM ORM for relational data operations. Demonstrates how
// to implement the Store interface with traditional SQL databases.
//
// [github.com/abconlinecourses/pdfx-xblock/pkg/store/surreal] - SurrealDB
// implementation using native SurrealQL without ORM abstractions. Shows how to
// work directly with SurrealDB's flexible document model and the surrealcbor codec.
//
// [github.com/abconlinecourses/pdfx-xblock/pkg/store/memory] - In-memory
// implementation backing tests and local development runs.
//
// [github.com/abconlinecourses/pdfx-xblock/pkg/logger] - zerolog construction
// helpers shared by the application and tests.
//
// # Integration Layer
//
// [github.com/abconlinecourses/pdfx-xblock/pkg/client] - HTTP client library for
// programmatic access to the pdfx API. Provides strongly-typed methods for all
// API endpoints with proper error handling. Use this package when building
// integrations, testing tools, or client applications.
//
// [github.com/abconlinecourses/pdfx-xblock/pkg/pdfxtesting] - Testing utilities
// including virtual student simulation and concurrent load groups. Use this
// package when implementing end-to-end tests or load validation.
//
// # Package Dependencies
//
// The packages follow these dependency relationships:
//
//	pdfx → annotations, assets, store, models, client, logger
//	annotations → store, models
//	assets → models
//	store → models
//	store/postgres → store, models
//	store/surreal → store, models
//	store/memory → store, models
//	client → annotations, models
//	pdfxtesting → client, annotations, models
//
// This design keeps the reconciliation core independent of both transport and
// storage while enabling focused testing of each layer.
package pkg
