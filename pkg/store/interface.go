// Package store provides the data persistence layer abstraction for the pdfx backend.
//
// This package defines the [Store] interface which lets the application work
// with different database backends behind a unified API:
//
//   - [github.com/abconlinecourses/pdfx-xblock/pkg/store/postgres.PostgresStore]: GORM on PostgreSQL with ACID transactions,
//     JSONB page maps, and soft deletes
//   - [github.com/abconlinecourses/pdfx-xblock/pkg/store/surreal.SurrealStore]: native SurrealQL without an ORM, using the
//     surrealcbor codec for typed IDs and time values
//   - [github.com/abconlinecourses/pdfx-xblock/pkg/store/memory.MemoryStore]: mutex-guarded maps for tests and local runs
//
// The store persists exactly what the annotation reconciler needs: users,
// documents, one annotation record per (document, kind, scope), per-user view
// settings, and per-document thumbnails. All reconciliation and visibility
// logic lives above this interface in
// [github.com/abconlinecourses/pdfx-xblock/pkg/annotations]; the store itself
// is deliberately dumb: whole-record reads and last-write-wins whole-record
// writes, matching the concurrency contract of a full save call.
//
// # Conventions
//
// Get methods return nil without error for missing records; absence is an
// expected state, not a failure. List methods return empty slices, never nil.
// Put methods create or replace by natural key. All methods accept a
// context.Context and respect its cancellation.
package store

import (
	"context"

	"github.com/abconlinecourses/pdfx-xblock/pkg/models"
)

// Store defines the complete persistence interface for the pdfx backend.
//
// Implementations must keep the annotation-record invariants: one record per
// (document, kind, scope), written whole with last-write-wins semantics, and
// removed outright rather than stored with an empty page map.
type Store interface {
	// User Operations
	//
	// Users exist to back the session-based identity resolver. The service
	// never mutates accounts after creation; profile management belongs to
	// the host platform.

	// CreateUser persists a new user account.
	//
	// The entity must have Email, Name, and Role populated; a zero ID is
	// generated automatically. Email addresses are unique across users.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUser retrieves a user by ID, or nil if no such user exists.
	GetUser(ctx context.Context, id models.UserID) (*models.User, error)

	// GetUserByEmail retrieves a user by email address, or nil when absent.
	// Used by the sign-in flow; the email column carries a unique index.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// Document Operations
	//
	// Documents are authored by staff and immutable to students; the
	// application layer enforces the role check, the store just persists.

	// CreateDocument persists a new document exactly as given; the
	// absent-means-true rule for the permission flags is applied at the API
	// boundary, not here. A zero ID is generated automatically.
	CreateDocument(ctx context.Context, doc *models.Document) error

	// GetDocument retrieves a document by ID, or nil if it does not exist
	// or has been soft-deleted.
	GetDocument(ctx context.Context, id models.DocumentID) (*models.Document, error)

	// UpdateDocument replaces an existing document with the provided entity.
	// ID, CreatedBy, and CreatedAt are immutable. The caller is responsible
	// for the blank-URL rule: a submitted empty SourceURL must not reach this
	// method with the stored AssetKey cleared.
	UpdateDocument(ctx context.Context, doc *models.Document) error

	// DeleteDocument removes a document from all subsequent reads. The
	// PostgreSQL backend records a soft delete; annotation records are
	// separate rows in every backend, so student work survives either way.
	DeleteDocument(ctx context.Context, id models.DocumentID) error

	// ListDocuments returns all documents for a course, newest first. A zero
	// course ID lists documents not attached to any course.
	ListDocuments(ctx context.Context, courseID models.CourseID) ([]*models.Document, error)

	// Annotation Record Operations
	//
	// One record per (document, kind, scope) holds that tier's full page
	// map. The reconciler reads a record, merges, and writes it back whole;
	// concurrent saves to the same record are last-write-wins by contract.

	// GetAnnotationRecord retrieves the record for one (document, kind,
	// scope) key, or nil when the tier has never been written.
	GetAnnotationRecord(ctx context.Context, documentID models.DocumentID, kind models.Kind, scope models.Scope) (*models.AnnotationRecord, error)

	// PutAnnotationRecord creates or replaces the record identified by its
	// (DocumentID, Kind, Scope) key. The stored page map is replaced whole;
	// the last write wins. Callers must not put records with empty page
	// maps; delete them instead.
	PutAnnotationRecord(ctx context.Context, record *models.AnnotationRecord) error

	// DeleteAnnotationRecord removes the record for one (document, kind,
	// scope) key. Deleting an absent record is a no-op, not an error.
	DeleteAnnotationRecord(ctx context.Context, documentID models.DocumentID, kind models.Kind, scope models.Scope) error

	// ListAnnotationRecords returns every record for a document across all
	// kinds and scopes. Used for the staff aggregate view and whole-document
	// clears.
	ListAnnotationRecords(ctx context.Context, documentID models.DocumentID) ([]*models.AnnotationRecord, error)

	// ListAnnotationRecordsByScope returns a document's records for a single
	// scope, one per kind at most.
	ListAnnotationRecordsByScope(ctx context.Context, documentID models.DocumentID, scope models.Scope) ([]*models.AnnotationRecord, error)

	// View Settings Operations

	// GetViewSettings retrieves one user's settings for a document, or nil
	// when the user has never saved any; the caller applies defaults.
	GetViewSettings(ctx context.Context, userID models.UserID, documentID models.DocumentID) (*models.ViewSettings, error)

	// PutViewSettings creates or replaces the settings row identified by its
	// (UserID, DocumentID) key.
	PutViewSettings(ctx context.Context, settings *models.ViewSettings) error

	// Thumbnail Operations

	// GetThumbnail retrieves a document's preview image, or nil when none
	// has been submitted.
	GetThumbnail(ctx context.Context, documentID models.DocumentID) (*models.Thumbnail, error)

	// PutThumbnail creates or replaces a document's preview image.
	PutThumbnail(ctx context.Context, thumbnail *models.Thumbnail) error

	// Schema Management

	// Migrate initializes or updates the database schema. It is idempotent
	// and safe to run on every startup: PostgreSQL applies GORM
	// auto-migration, SurrealDB is schema-flexible and only defines indexes,
	// and the memory store has nothing to do.
	Migrate(ctx context.Context) error

	// Close releases database connections. The store is unusable afterwards;
	// multiple calls are safe.
	Close() error
}
