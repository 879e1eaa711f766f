// Package assets manages the binary side of documents: uploaded PDF files,
// their storage keys, and the URL a viewer fetches a document from.
//
// A document names its content one of three ways: an external URL, an
// uploaded asset held in a [BlobStore], or an inline data URI. [Resolver]
// turns whichever is configured into a fetchable URL without interpreting
// the bytes; [Service] owns uploads, which are the one place PDF bytes are
// actually validated.
package assets

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/abconlinecourses/pdfx-xblock/pkg/models"
)

const (
	// MaxUploadBytes caps uploaded PDF size.
	MaxUploadBytes = 50 << 20

	// PresignTTL is how long a generated download URL stays valid. Long
	// enough for a rendering session, short enough that shared links rot.
	PresignTTL = 15 * time.Minute
)

var (
	// ErrEmptyUpload means the upload carried no bytes.
	ErrEmptyUpload = errors.New("upload is empty")

	// ErrUploadTooLarge means the upload exceeds MaxUploadBytes.
	ErrUploadTooLarge = errors.New("upload exceeds the size limit")

	// ErrNotPDF means the uploaded bytes did not validate as a PDF.
	ErrNotPDF = errors.New("upload is not a valid PDF")

	// ErrPresignUnsupported is returned by blob stores that cannot mint
	// standalone URLs; the resolver falls back to the serving route.
	ErrPresignUnsupported = errors.New("presigned URLs not supported by this blob store")

	// ErrInvalidSourceURL rejects a configured source that cannot name a PDF.
	ErrInvalidSourceURL = errors.New("source URL must be an http(s), file, or data:application/pdf reference ending in .pdf")
)

// ValidateSourceURL checks that a document source plausibly names a PDF: an
// http(s) URL with a host, a file URL, or an inline data:application/pdf
// URI. URL forms must carry a .pdf path suffix; query strings are tolerated.
// An empty source is fine, since documents may be registered before their
// file is uploaded.
func ValidateSourceURL(raw string) error {
	if raw == "" {
		return nil
	}
	if strings.HasPrefix(raw, "data:application/pdf") {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ErrInvalidSourceURL
	}
	switch u.Scheme {
	case "http", "https":
		if u.Host == "" {
			return ErrInvalidSourceURL
		}
	case "file":
	default:
		return ErrInvalidSourceURL
	}
	if !strings.HasSuffix(strings.ToLower(u.Path), ".pdf") {
		return ErrInvalidSourceURL
	}
	return nil
}

// BlobStore persists uploaded document bytes under opaque keys.
type BlobStore interface {
	// Put stores data under key, replacing any previous content.
	Put(ctx context.Context, key string, data []byte, contentType string) error

	// Get returns the stored bytes, or an error when the key is unknown.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes the key. Deleting an unknown key is a no-op.
	Delete(ctx context.Context, key string) error

	// PresignGet returns a URL that fetches the key without further
	// authentication until expiry, or ErrPresignUnsupported.
	PresignGet(key string, expiry time.Duration) (string, error)
}

// Resolver turns a document's configured source into a fetchable URL.
type Resolver struct {
	blobs BlobStore
	ttl   time.Duration
}

// NewResolver creates a resolver over the given blob store.
func NewResolver(blobs BlobStore) *Resolver {
	return &Resolver{blobs: blobs, ttl: PresignTTL}
}

// ViewURL returns the URL a viewer should fetch the document from: a
// presigned URL for uploaded assets, the configured URL otherwise (external
// http(s) URLs and inline data URIs pass through untouched). An empty
// return means the document has no content configured yet.
//
// An uploaded asset always wins over a leftover source URL; uploads
// supersede links without clearing them, and a blank submitted URL never
// clears an uploaded asset either.
func (r *Resolver) ViewURL(doc *models.Document) (string, error) {
	if doc.AssetKey != "" {
		url, err := r.blobs.PresignGet(doc.AssetKey, r.ttl)
		if errors.Is(err, ErrPresignUnsupported) {
			return fmt.Sprintf("/api/documents/%s/file", doc.ID), nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to presign asset: %w", err)
		}
		return url, nil
	}
	return doc.SourceURL, nil
}

// Service owns uploads and retrieval of stored document bytes.
type Service struct {
	blobs BlobStore
	log   zerolog.Logger
}

// NewService creates an asset service over the given blob store.
func NewService(blobs BlobStore, log zerolog.Logger) *Service {
	return &Service{blobs: blobs, log: log}
}

// StorePDF validates an uploaded PDF and stores it, updating the document's
// asset fields in place: AssetKey, AssetName, and the page count read from
// the file. The caller persists the document afterwards. A replaced asset's
// old key is deleted best-effort; a stale blob is storage noise, not a
// reason to fail the upload that superseded it.
func (s *Service) StorePDF(ctx context.Context, doc *models.Document, filename string, data []byte) error {
	if len(data) == 0 {
		return ErrEmptyUpload
	}
	if len(data) > MaxUploadBytes {
		return ErrUploadTooLarge
	}
	pageCount, err := InspectPDF(data)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNotPDF, err)
	}

	key := fmt.Sprintf("documents/%s/%s.pdf", doc.ID, uuid.NewString())
	if err := s.blobs.Put(ctx, key, data, "application/pdf"); err != nil {
		return fmt.Errorf("failed to store upload: %w", err)
	}

	if doc.AssetKey != "" && doc.AssetKey != key {
		if err := s.blobs.Delete(ctx, doc.AssetKey); err != nil {
			s.log.Warn().Err(err).
				Str("key", doc.AssetKey).
				Str("document", doc.ID.String()).
				Msg("failed to delete replaced asset")
		}
	}

	doc.AssetKey = key
	doc.AssetName = filename
	doc.PageCount = pageCount

	s.log.Info().
		Str("document", doc.ID.String()).
		Str("key", key).
		Int("pages", pageCount).
		Int("bytes", len(data)).
		Msg("stored document asset")
	return nil
}

// Open returns the stored bytes of an uploaded asset.
func (s *Service) Open(ctx context.Context, key string) ([]byte, error) {
	return s.blobs.Get(ctx, key)
}
