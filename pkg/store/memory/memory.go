// Package memory provides an in-memory implementation of the [github.com/abconlinecourses/pdfx-xblock/pkg/store.Store] interface.
//
// [MemoryStore] backs the reconciler and handler tests and the `-backend
// memory` mode for local development. It keeps the same observable contract
// as the database backends: Get returns nil for missing records, List returns
// empty slices, Put replaces by natural key, and every value is deep-copied
// on the way in and out so callers can never mutate shared state through a
// returned pointer.
//
// All state is guarded by a single RWMutex; the workload is a handful of
// records per test, so there is nothing to gain from finer locking.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/abconlinecourses/pdfx-xblock/pkg/models"
	"github.com/abconlinecourses/pdfx-xblock/pkg/store"
)

// recordKey is the natural key of an annotation record.
type recordKey struct {
	Document models.DocumentID
	Kind     models.Kind
	Scope    models.Scope
}

// settingsKey is the natural key of a view settings row.
type settingsKey struct {
	User     models.UserID
	Document models.DocumentID
}

// MemoryStore implements the Store interface with mutex-guarded maps.
type MemoryStore struct {
	mu           sync.RWMutex
	users        map[models.UserID]*models.User
	usersByEmail map[string]models.UserID
	documents    map[models.DocumentID]*models.Document
	records      map[recordKey]*models.AnnotationRecord
	viewSettings map[settingsKey]*models.ViewSettings
	thumbnails   map[models.DocumentID]*models.Thumbnail
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() store.Store {
	return &MemoryStore{
		users:        make(map[models.UserID]*models.User),
		usersByEmail: make(map[string]models.UserID),
		documents:    make(map[models.DocumentID]*models.Document),
		records:      make(map[recordKey]*models.AnnotationRecord),
		viewSettings: make(map[settingsKey]*models.ViewSettings),
		thumbnails:   make(map[models.DocumentID]*models.Thumbnail),
	}
}

// Migrate is a no-op; there is no schema to prepare.
func (s *MemoryStore) Migrate(ctx context.Context) error {
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

// Deep-copy helpers. The maps only ever hold private copies.

func copyUser(u *models.User) *models.User {
	cp := *u
	return &cp
}

func copyDocument(d *models.Document) *models.Document {
	cp := *d
	if d.Creator != nil {
		creator := *d.Creator
		cp.Creator = &creator
	}
	return &cp
}

func copyRecord(r *models.AnnotationRecord) *models.AnnotationRecord {
	cp := *r
	cp.Pages = r.Pages.Clone()
	return &cp
}

func copySettings(v *models.ViewSettings) *models.ViewSettings {
	cp := *v
	return &cp
}

func copyThumbnail(t *models.Thumbnail) *models.Thumbnail {
	cp := *t
	return &cp
}

// User operations

func (s *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID.IsZero() {
		user.ID = models.NewUserID()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = time.Now()
	}

	if _, exists := s.users[user.ID]; exists {
		return fmt.Errorf("user already exists: %s", user.ID)
	}
	if _, exists := s.usersByEmail[user.Email]; exists {
		return fmt.Errorf("email already registered: %s", user.Email)
	}

	s.users[user.ID] = copyUser(user)
	s.usersByEmail[user.Email] = user.ID
	return nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id models.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return copyUser(user), nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByEmail[email]
	if !ok {
		return nil, nil
	}
	return copyUser(s.users[id]), nil
}

// Document operations

func (s *MemoryStore) CreateDocument(ctx context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.ID.IsZero() {
		doc.ID = models.NewDocumentID()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = time.Now()
	}

	if _, exists := s.documents[doc.ID]; exists {
		return fmt.Errorf("document already exists: %s", doc.ID)
	}

	s.documents[doc.ID] = copyDocument(doc)
	return nil
}

func (s *MemoryStore) GetDocument(ctx context.Context, id models.DocumentID) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[id]
	if !ok || doc.DeletedAt.Valid {
		return nil, nil
	}
	return copyDocument(doc), nil
}

func (s *MemoryStore) UpdateDocument(ctx context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.documents[doc.ID]; !exists {
		return fmt.Errorf("document not found: %s", doc.ID)
	}

	doc.UpdatedAt = time.Now()
	s.documents[doc.ID] = copyDocument(doc)
	return nil
}

func (s *MemoryStore) DeleteDocument(ctx context.Context, id models.DocumentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[id]
	if !ok {
		return nil
	}
	// Mirror the PostgreSQL soft delete so tests can exercise undelete flows.
	doc.DeletedAt.Time = time.Now()
	doc.DeletedAt.Valid = true
	return nil
}

func (s *MemoryStore) ListDocuments(ctx context.Context, courseID models.CourseID) ([]*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := []*models.Document{}
	for _, doc := range s.documents {
		if doc.DeletedAt.Valid || doc.CourseID != courseID {
			continue
		}
		docs = append(docs, copyDocument(doc))
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})
	return docs, nil
}

// Annotation record operations

func (s *MemoryStore) GetAnnotationRecord(ctx context.Context, documentID models.DocumentID, kind models.Kind, scope models.Scope) (*models.AnnotationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[recordKey{documentID, kind, scope}]
	if !ok {
		return nil, nil
	}
	return copyRecord(record), nil
}

func (s *MemoryStore) PutAnnotationRecord(ctx context.Context, record *models.AnnotationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := recordKey{record.DocumentID, record.Kind, record.Scope}
	now := time.Now()
	if existing, ok := s.records[key]; ok {
		record.ID = existing.ID
		record.CreatedAt = existing.CreatedAt
	} else {
		if record.ID.IsZero() {
			record.ID = models.NewAnnotationRecordID()
		}
		if record.CreatedAt.IsZero() {
			record.CreatedAt = now
		}
	}
	record.UpdatedAt = now

	s.records[key] = copyRecord(record)
	return nil
}

func (s *MemoryStore) DeleteAnnotationRecord(ctx context.Context, documentID models.DocumentID, kind models.Kind, scope models.Scope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, recordKey{documentID, kind, scope})
	return nil
}

func (s *MemoryStore) ListAnnotationRecords(ctx context.Context, documentID models.DocumentID) ([]*models.AnnotationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := []*models.AnnotationRecord{}
	for key, record := range s.records {
		if key.Document != documentID {
			continue
		}
		records = append(records, copyRecord(record))
	}
	sortRecords(records)
	return records, nil
}

func (s *MemoryStore) ListAnnotationRecordsByScope(ctx context.Context, documentID models.DocumentID, scope models.Scope) ([]*models.AnnotationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := []*models.AnnotationRecord{}
	for key, record := range s.records {
		if key.Document != documentID || key.Scope != scope {
			continue
		}
		records = append(records, copyRecord(record))
	}
	sortRecords(records)
	return records, nil
}

// sortRecords gives list results a stable order; map iteration would
// otherwise make tests flaky.
func sortRecords(records []*models.AnnotationRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].Scope != records[j].Scope {
			return records[i].Scope < records[j].Scope
		}
		return records[i].Kind < records[j].Kind
	})
}

// View settings operations

func (s *MemoryStore) GetViewSettings(ctx context.Context, userID models.UserID, documentID models.DocumentID) (*models.ViewSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	settings, ok := s.viewSettings[settingsKey{userID, documentID}]
	if !ok {
		return nil, nil
	}
	return copySettings(settings), nil
}

func (s *MemoryStore) PutViewSettings(ctx context.Context, settings *models.ViewSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := settingsKey{settings.UserID, settings.DocumentID}
	now := time.Now()
	if existing, ok := s.viewSettings[key]; ok {
		settings.ID = existing.ID
		settings.CreatedAt = existing.CreatedAt
	} else {
		if settings.ID.IsZero() {
			settings.ID = models.NewViewSettingsID()
		}
		if settings.CreatedAt.IsZero() {
			settings.CreatedAt = now
		}
	}
	settings.UpdatedAt = now

	s.viewSettings[key] = copySettings(settings)
	return nil
}

// Thumbnail operations

func (s *MemoryStore) GetThumbnail(ctx context.Context, documentID models.DocumentID) (*models.Thumbnail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	thumbnail, ok := s.thumbnails[documentID]
	if !ok {
		return nil, nil
	}
	return copyThumbnail(thumbnail), nil
}

func (s *MemoryStore) PutThumbnail(ctx context.Context, thumbnail *models.Thumbnail) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if existing, ok := s.thumbnails[thumbnail.DocumentID]; ok {
		thumbnail.CreatedAt = existing.CreatedAt
	} else if thumbnail.CreatedAt.IsZero() {
		thumbnail.CreatedAt = now
	}
	thumbnail.UpdatedAt = now

	s.thumbnails[thumbnail.DocumentID] = copyThumbnail(thumbnail)
	return nil
}
