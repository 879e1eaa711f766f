package store

import (
	"context"
	"fmt"

	"github.com/abconlinecourses/pdfx-xblock/pkg/models"
)

// ReadOnlyStore wraps a Store and rejects write operations while the
// application is in maintenance mode.
//
// Operators toggle maintenance mode through the admin endpoint before
// database moves or backend cutovers: reads keep serving so students can
// still open documents and load their annotations, while saves and clears
// fail fast instead of landing in a store that is about to be replaced.
//
// The read-only state is determined dynamically by the isReadOnly function,
// so the application can flip between read-write and read-only without
// recreating the store instance.
//
// All write operations (Create, Update, Delete, Put) return an error while
// read-only; Get and List operations pass through untouched.
type ReadOnlyStore struct {
	Store
	isReadOnly func() bool
}

// NewReadOnlyStore creates a new read-only wrapper for a store
func NewReadOnlyStore(store Store, isReadOnly func() bool) Store {
	return &ReadOnlyStore{
		Store:      store,
		isReadOnly: isReadOnly,
	}
}

// Unwrap returns the underlying store
func (r *ReadOnlyStore) Unwrap() Store {
	return r.Store
}

// checkReadOnly returns an error if the store is in read-only mode
func (r *ReadOnlyStore) checkReadOnly() error {
	if r.isReadOnly() {
		return fmt.Errorf("operation denied: application is in read-only maintenance mode")
	}
	return nil
}

// Write operations - check read-only mode first

func (r *ReadOnlyStore) CreateUser(ctx context.Context, user *models.User) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.CreateUser(ctx, user)
}

func (r *ReadOnlyStore) CreateDocument(ctx context.Context, doc *models.Document) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.CreateDocument(ctx, doc)
}

func (r *ReadOnlyStore) UpdateDocument(ctx context.Context, doc *models.Document) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.UpdateDocument(ctx, doc)
}

func (r *ReadOnlyStore) DeleteDocument(ctx context.Context, id models.DocumentID) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.DeleteDocument(ctx, id)
}

func (r *ReadOnlyStore) PutAnnotationRecord(ctx context.Context, record *models.AnnotationRecord) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.PutAnnotationRecord(ctx, record)
}

func (r *ReadOnlyStore) DeleteAnnotationRecord(ctx context.Context, documentID models.DocumentID, kind models.Kind, scope models.Scope) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.DeleteAnnotationRecord(ctx, documentID, kind, scope)
}

func (r *ReadOnlyStore) PutViewSettings(ctx context.Context, settings *models.ViewSettings) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.PutViewSettings(ctx, settings)
}

func (r *ReadOnlyStore) PutThumbnail(ctx context.Context, thumbnail *models.Thumbnail) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.PutThumbnail(ctx, thumbnail)
}

func (r *ReadOnlyStore) Migrate(ctx context.Context) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.Migrate(ctx)
}

// Read operations pass through without checks; they are served by the
// embedded Store interface.
