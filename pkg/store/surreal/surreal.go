// Package surreal provides the SurrealDB implementation of the [github.com/abconlinecourses/pdfx-xblock/pkg/store.Store] interface using native SurrealQL.
//
// This backend targets deployments that want schema-flexible storage: page
// maps are stored as nested documents rather than serialized JSONB strings,
// so individual tiers can be inspected and queried with plain SurrealQL.
//
// # Implementation Strategy
//
// [SurrealStore] uses SurrealDB's native capabilities:
//   - Direct SurrealQL query execution without ORM translation layers
//   - Schema-flexible document storage; the page map nests naturally
//   - Unique indexes on the natural keys, defined at migration time
//
// This approach contrasts with the [github.com/abconlinecourses/pdfx-xblock/pkg/store/postgres.PostgresStore] implementation which
// uses GORM ORM for automatic SQL generation and strict relational schema
// enforcement.
//
// # CBOR Marshaling Strategy
//
// The implementation uses the surrealcbor codec to ensure proper data
// serialization between Go types and SurrealDB's internal format:
//
//   - [github.com/abconlinecourses/pdfx-xblock/pkg/models] structs marshal directly to SurrealDB records
//   - Typed IDs ([github.com/abconlinecourses/pdfx-xblock/pkg/models.UserID], [github.com/abconlinecourses/pdfx-xblock/pkg/models.DocumentID], etc.) automatically convert to SurrealDB RecordIDs
//   - time.Time values use SurrealDB's native datetime format
//   - [github.com/abconlinecourses/pdfx-xblock/pkg/models.PageMap] stores as a nested document, not an opaque string
//
// The CBOR approach is essential because SurrealDB internally uses CBOR for
// data storage, and default Go marshaling doesn't produce SurrealDB-compatible
// formats; without it time.Time values fail with "invalid datetime" errors.
//
// # Security and Query Safety
//
// The implementation follows strict security practices:
//   - ALWAYS use parameterized queries ($param syntax) to prevent injection attacks
//   - Typed IDs automatically marshal to secure RecordID references
//   - Never use fmt.Sprintf or string concatenation for user-provided values
//
// # Usage Example
//
//	store, err := surreal.NewSurrealStore(
//		"ws://localhost:8000/rpc",
//		"pdfx", "pdfx", "root", "root",
//	)
//	if err != nil {
//		return err
//	}
//	defer store.Close()
//
//	// Initialize indexes
//	if err := store.Migrate(ctx); err != nil {
//		return err
//	}
//
// The server selects this backend with Backend "surrealdb" in its
// configuration and performs the same wiring itself.
package surreal

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	"github.com/surrealdb/surrealdb.go/pkg/connection/gorillaws"
	"github.com/surrealdb/surrealdb.go/surrealcbor"

	"github.com/abconlinecourses/pdfx-xblock/pkg/models"
	"github.com/abconlinecourses/pdfx-xblock/pkg/store"
)

// SurrealStore implements the Store interface using SurrealDB with proper CBOR handling.
//
// Why CBOR?
// SurrealDB uses CBOR (Concise Binary Object Representation) internally. Using the surrealcbor
// codec ensures that complex types like time.Time, UUID, and custom types are properly
// serialized in a format that SurrealDB expects. Default Go marshaling produces
// time.Time values SurrealDB rejects and RecordIDs it does not recognize.
type SurrealStore struct {
	db       *surrealdb.DB
	ns       string
	database string
}

// NewSurrealStore creates a new SurrealDB store with surrealcbor for proper time.Time handling.
//
// Connection Design:
// Unlike simpler approaches using FromEndpointURLString, we manually configure the connection
// to use the surrealcbor codec. This gives us full control over marshaling/unmarshaling,
// which is critical for data integrity between Go types and SurrealDB's CBOR format.
func NewSurrealStore(wsURL, namespace, database, username, password string) (store.Store, error) {
	ctx := context.Background()

	// Parse the URL to create connection config
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	conf := connection.NewConfig(u)

	// Critical: Use surrealcbor for proper time.Time and RecordID handling
	codec := surrealcbor.New()
	conf.Marshaler = codec
	conf.Unmarshaler = codec

	// Use gorillaws for WebSocket connection (most stable implementation)
	conn := gorillaws.New(conf)

	// Create DB from connection
	db, err := surrealdb.FromConnection(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	// Authenticate if credentials provided
	if username != "" && password != "" {
		if _, err := db.SignIn(ctx, map[string]any{
			"user": username,
			"pass": password,
		}); err != nil {
			return nil, fmt.Errorf("failed to authenticate: %w", err)
		}
	}

	// Use the specified namespace and database
	if err := db.Use(ctx, namespace, database); err != nil {
		return nil, fmt.Errorf("failed to use namespace/database: %w", err)
	}

	return &SurrealStore{
		db:       db,
		ns:       namespace,
		database: database,
	}, nil
}

// Migrate defines the unique indexes the natural-key upserts rely on.
//
// SurrealDB creates tables implicitly when the first record is inserted, so
// there is no table creation here. The indexes make the (document, kind,
// scope) and (user, document) keys authoritative at the database level: if
// two concurrent saves race past the read-then-write window, the losing
// create fails on the index instead of producing a duplicate record.
//
// DEFINE INDEX IF NOT EXISTS keeps the method idempotent and safe to run on
// every startup.
func (s *SurrealStore) Migrate(ctx context.Context) error {
	statements := []string{
		"DEFINE INDEX IF NOT EXISTS idx_users_email ON TABLE users COLUMNS email UNIQUE",
		"DEFINE INDEX IF NOT EXISTS idx_record_document_kind_scope ON TABLE annotation_records COLUMNS document_id, kind, scope UNIQUE",
		"DEFINE INDEX IF NOT EXISTS idx_view_settings_user_document ON TABLE view_settings COLUMNS user_id, document_id UNIQUE",
		"DEFINE INDEX IF NOT EXISTS idx_thumbnails_document ON TABLE thumbnails COLUMNS document_id UNIQUE",
	}
	for _, stmt := range statements {
		if _, err := surrealdb.Query[any](ctx, s.db, stmt, nil); err != nil {
			return fmt.Errorf("failed to define index: %w", err)
		}
	}
	return nil
}

// Close closes the database connection
func (s *SurrealStore) Close() error {
	return s.db.Close(context.Background())
}

// Helper to handle not found errors from record-direct selects
func handleNotFound(err error) error {
	if err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "Expected a single or multiple results but got 0") ||
			strings.Contains(errStr, "cannot unmarshal array into Go value") {
			return nil
		}
	}
	return err
}

// first returns the leading row of a single-statement query result, or nil.
func first[T any](result *[]surrealdb.QueryResult[[]T]) *T {
	if result != nil && len(*result) > 0 && len((*result)[0].Result) > 0 {
		return &(*result)[0].Result[0]
	}
	return nil
}

// collect flattens a single-statement query result into a pointer slice,
// returning an empty slice rather than nil for no rows.
func collect[T any](result *[]surrealdb.QueryResult[[]T]) []*T {
	out := []*T{}
	if result != nil && len(*result) > 0 {
		for i := range (*result)[0].Result {
			out = append(out, &(*result)[0].Result[i])
		}
	}
	return out
}

// User operations

func (s *SurrealStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = models.NewUserID()
	}

	// Set timestamps if needed
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = time.Now()
	}

	// Use models directly - typed IDs handle RecordID marshaling automatically
	_, err := surrealdb.Create[models.User](ctx, s.db, "users", user)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *SurrealStore) GetUser(ctx context.Context, id models.UserID) (*models.User, error) {
	rid := id.RecordID()
	user, err := surrealdb.Select[models.User](ctx, s.db, rid)
	if err != nil {
		if handleNotFound(err) == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *SurrealStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	// SECURITY: Always use parameterized queries to prevent injection
	query := "SELECT * FROM users WHERE email = $email"
	params := map[string]any{
		"email": email,
	}
	result, err := surrealdb.Query[[]models.User](ctx, s.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return first(result), nil
}

// Document operations
//
// Deletion semantics differ per backend: PostgreSQL records a soft delete
// through GORM's DeletedAt while this backend removes the record. Annotation
// records are separate rows either way, so student work survives a document
// delete in both.

func (s *SurrealStore) CreateDocument(ctx context.Context, doc *models.Document) error {
	if doc.ID.IsZero() {
		doc.ID = models.NewDocumentID()
	}

	// Set timestamps if needed
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = time.Now()
	}

	// Foreign keys (CourseID, CreatedBy) marshal to RecordIDs automatically
	_, err := surrealdb.Create[models.Document](ctx, s.db, "documents", doc)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

func (s *SurrealStore) GetDocument(ctx context.Context, id models.DocumentID) (*models.Document, error) {
	rid := id.RecordID()
	doc, err := surrealdb.Select[models.Document](ctx, s.db, rid)
	if err != nil {
		if handleNotFound(err) == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

func (s *SurrealStore) UpdateDocument(ctx context.Context, doc *models.Document) error {
	rid := doc.ID.RecordID()
	doc.UpdatedAt = time.Now()

	// Pass the struct directly - typed IDs automatically marshal to RecordIDs
	_, err := surrealdb.Update[models.Document](ctx, s.db, rid, doc)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	return nil
}

func (s *SurrealStore) DeleteDocument(ctx context.Context, id models.DocumentID) error {
	rid := id.RecordID()
	_, err := surrealdb.Delete[models.Document](ctx, s.db, rid)
	return err
}

func (s *SurrealStore) ListDocuments(ctx context.Context, courseID models.CourseID) ([]*models.Document, error) {
	query := "SELECT * FROM documents WHERE course_id = $course ORDER BY created_at DESC"
	params := map[string]any{
		"course": courseID,
	}
	result, err := surrealdb.Query[[]models.Document](ctx, s.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return collect(result), nil
}

// Annotation record operations
//
// Records are addressed by their (document_id, kind, scope) natural key.
// Put reads the current row first and updates it in place when present so
// the record keeps its identity; the unique index from Migrate backstops
// the read-then-write window.

func (s *SurrealStore) GetAnnotationRecord(ctx context.Context, documentID models.DocumentID, kind models.Kind, scope models.Scope) (*models.AnnotationRecord, error) {
	query := "SELECT * FROM annotation_records WHERE document_id = $document AND kind = $kind AND scope = $scope"
	params := map[string]any{
		"document": documentID, // DocumentID marshals to RecordID automatically
		"kind":     string(kind),
		"scope":    string(scope),
	}
	result, err := surrealdb.Query[[]models.AnnotationRecord](ctx, s.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to get annotation record: %w", err)
	}
	return first(result), nil
}

func (s *SurrealStore) PutAnnotationRecord(ctx context.Context, record *models.AnnotationRecord) error {
	existing, err := s.GetAnnotationRecord(ctx, record.DocumentID, record.Kind, record.Scope)
	if err != nil {
		return err
	}

	if existing != nil {
		record.ID = existing.ID
		record.CreatedAt = existing.CreatedAt
		record.UpdatedAt = time.Now()
		if _, err := surrealdb.Update[models.AnnotationRecord](ctx, s.db, record.ID.RecordID(), record); err != nil {
			return fmt.Errorf("failed to update annotation record: %w", err)
		}
		return nil
	}

	if record.ID.IsZero() {
		record.ID = models.NewAnnotationRecordID()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = time.Now()
	}
	if _, err := surrealdb.Create[models.AnnotationRecord](ctx, s.db, "annotation_records", record); err != nil {
		return fmt.Errorf("failed to create annotation record: %w", err)
	}
	return nil
}

func (s *SurrealStore) DeleteAnnotationRecord(ctx context.Context, documentID models.DocumentID, kind models.Kind, scope models.Scope) error {
	query := "DELETE annotation_records WHERE document_id = $document AND kind = $kind AND scope = $scope"
	params := map[string]any{
		"document": documentID,
		"kind":     string(kind),
		"scope":    string(scope),
	}
	if _, err := surrealdb.Query[any](ctx, s.db, query, params); err != nil {
		return fmt.Errorf("failed to delete annotation record: %w", err)
	}
	return nil
}

func (s *SurrealStore) ListAnnotationRecords(ctx context.Context, documentID models.DocumentID) ([]*models.AnnotationRecord, error) {
	query := "SELECT * FROM annotation_records WHERE document_id = $document"
	params := map[string]any{
		"document": documentID,
	}
	result, err := surrealdb.Query[[]models.AnnotationRecord](ctx, s.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list annotation records: %w", err)
	}
	return collect(result), nil
}

func (s *SurrealStore) ListAnnotationRecordsByScope(ctx context.Context, documentID models.DocumentID, scope models.Scope) ([]*models.AnnotationRecord, error) {
	query := "SELECT * FROM annotation_records WHERE document_id = $document AND scope = $scope"
	params := map[string]any{
		"document": documentID,
		"scope":    string(scope),
	}
	result, err := surrealdb.Query[[]models.AnnotationRecord](ctx, s.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list annotation records by scope: %w", err)
	}
	return collect(result), nil
}

// View settings operations

func (s *SurrealStore) GetViewSettings(ctx context.Context, userID models.UserID, documentID models.DocumentID) (*models.ViewSettings, error) {
	query := "SELECT * FROM view_settings WHERE user_id = $user AND document_id = $document"
	params := map[string]any{
		"user":     userID,
		"document": documentID,
	}
	result, err := surrealdb.Query[[]models.ViewSettings](ctx, s.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to get view settings: %w", err)
	}
	return first(result), nil
}

func (s *SurrealStore) PutViewSettings(ctx context.Context, settings *models.ViewSettings) error {
	existing, err := s.GetViewSettings(ctx, settings.UserID, settings.DocumentID)
	if err != nil {
		return err
	}

	if existing != nil {
		settings.ID = existing.ID
		settings.CreatedAt = existing.CreatedAt
		settings.UpdatedAt = time.Now()
		if _, err := surrealdb.Update[models.ViewSettings](ctx, s.db, settings.ID.RecordID(), settings); err != nil {
			return fmt.Errorf("failed to update view settings: %w", err)
		}
		return nil
	}

	if settings.ID.IsZero() {
		settings.ID = models.NewViewSettingsID()
	}
	if settings.CreatedAt.IsZero() {
		settings.CreatedAt = time.Now()
	}
	if settings.UpdatedAt.IsZero() {
		settings.UpdatedAt = time.Now()
	}
	if _, err := surrealdb.Create[models.ViewSettings](ctx, s.db, "view_settings", settings); err != nil {
		return fmt.Errorf("failed to create view settings: %w", err)
	}
	return nil
}

// Thumbnail operations
//
// Thumbnails carry no typed ID of their own; they are addressed purely by
// the owning document, so both operations go through parameterized queries.

func (s *SurrealStore) GetThumbnail(ctx context.Context, documentID models.DocumentID) (*models.Thumbnail, error) {
	query := "SELECT * FROM thumbnails WHERE document_id = $document"
	params := map[string]any{
		"document": documentID,
	}
	result, err := surrealdb.Query[[]models.Thumbnail](ctx, s.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to get thumbnail: %w", err)
	}
	return first(result), nil
}

func (s *SurrealStore) PutThumbnail(ctx context.Context, thumbnail *models.Thumbnail) error {
	existing, err := s.GetThumbnail(ctx, thumbnail.DocumentID)
	if err != nil {
		return err
	}

	now := time.Now()
	if existing != nil {
		query := "UPDATE thumbnails SET data = $data, updated_at = $updated WHERE document_id = $document"
		params := map[string]any{
			"document": thumbnail.DocumentID,
			"data":     thumbnail.Data,
			"updated":  now,
		}
		if _, err := surrealdb.Query[any](ctx, s.db, query, params); err != nil {
			return fmt.Errorf("failed to update thumbnail: %w", err)
		}
		return nil
	}

	if thumbnail.CreatedAt.IsZero() {
		thumbnail.CreatedAt = now
	}
	if thumbnail.UpdatedAt.IsZero() {
		thumbnail.UpdatedAt = now
	}
	if _, err := surrealdb.Create[models.Thumbnail](ctx, s.db, "thumbnails", thumbnail); err != nil {
		return fmt.Errorf("failed to create thumbnail: %w", err)
	}
	return nil
}
