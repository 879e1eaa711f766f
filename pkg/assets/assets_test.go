package assets

import (
	"context"
	"encoding/base64"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abconlinecourses/pdfx-xblock/pkg/models"
)

func pngDataURI(size int) string {
	payload := base64.StdEncoding.EncodeToString(make([]byte, size))
	return "data:image/png;base64," + payload
}

func TestValidateThumbnail(t *testing.T) {
	tests := []struct {
		name    string
		dataURI string
		wantErr error
	}{
		{
			name:    "valid png",
			dataURI: pngDataURI(256),
			wantErr: nil,
		},
		{
			name:    "plain URL",
			dataURI: "https://example.com/thumb.png",
			wantErr: ErrNotImageDataURI,
		},
		{
			name:    "non-image data URI",
			dataURI: "data:text/plain;base64,aGVsbG8=",
			wantErr: ErrNotImageDataURI,
		},
		{
			name:    "missing base64 marker",
			dataURI: "data:image/png,rawbytes",
			wantErr: ErrNotImageDataURI,
		},
		{
			name:    "invalid base64",
			dataURI: "data:image/png;base64,!!!not-base64!!!",
			wantErr: ErrNotImageDataURI,
		},
		{
			name:    "empty payload",
			dataURI: "data:image/png;base64,",
			wantErr: ErrNotImageDataURI,
		},
		{
			name:    "oversize",
			dataURI: pngDataURI(MaxThumbnailBytes + 1),
			wantErr: ErrThumbnailTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateThumbnail(tt.dataURI)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestValidateSourceURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{name: "empty is allowed", raw: ""},
		{name: "https with pdf suffix", raw: "https://cdn.example.edu/week1.pdf"},
		{name: "http with pdf suffix", raw: "http://example.com/a.pdf"},
		{name: "query string tolerated", raw: "https://example.com/a.pdf?token=abc"},
		{name: "uppercase suffix", raw: "https://example.com/A.PDF"},
		{name: "file scheme", raw: "file:///mnt/readings/week1.pdf"},
		{name: "data URI", raw: "data:application/pdf;base64,JVBERi0="},
		{name: "https without host", raw: "https:///week1.pdf", wantErr: true},
		{name: "not a pdf path", raw: "https://example.com/page.html", wantErr: true},
		{name: "suffix only in query", raw: "https://example.com/get?file=a.pdf", wantErr: true},
		{name: "unsupported scheme", raw: "ftp://example.com/a.pdf", wantErr: true},
		{name: "image data URI", raw: "data:image/png;base64,aGk=", wantErr: true},
		{name: "bare words", raw: "not a url", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSourceURL(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSourceURL)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestResolverViewURL(t *testing.T) {
	resolver := NewResolver(NewMemoryBlobStore())

	t.Run("uploaded asset falls back to serving route", func(t *testing.T) {
		doc := &models.Document{
			ID:        models.NewDocumentID(),
			AssetKey:  "documents/abc/def.pdf",
			SourceURL: "https://example.com/old.pdf",
		}
		url, err := resolver.ViewURL(doc)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("/api/documents/%s/file", doc.ID), url)
	})

	t.Run("external URL passes through", func(t *testing.T) {
		doc := &models.Document{
			ID:        models.NewDocumentID(),
			SourceURL: "https://example.com/syllabus.pdf",
		}
		url, err := resolver.ViewURL(doc)
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/syllabus.pdf", url)
	})

	t.Run("data URI passes through", func(t *testing.T) {
		doc := &models.Document{
			ID:        models.NewDocumentID(),
			SourceURL: "data:application/pdf;base64,JVBERi0=",
		}
		url, err := resolver.ViewURL(doc)
		require.NoError(t, err)
		assert.Equal(t, "data:application/pdf;base64,JVBERi0=", url)
	})

	t.Run("no content configured", func(t *testing.T) {
		doc := &models.Document{ID: models.NewDocumentID()}
		url, err := resolver.ViewURL(doc)
		require.NoError(t, err)
		assert.Empty(t, url)
	})
}

func TestStorePDFRejectsBadUploads(t *testing.T) {
	ctx := context.Background()
	blobs := NewMemoryBlobStore()
	svc := NewService(blobs, zerolog.Nop())

	doc := &models.Document{ID: models.NewDocumentID()}

	t.Run("empty upload", func(t *testing.T) {
		err := svc.StorePDF(ctx, doc, "empty.pdf", nil)
		assert.ErrorIs(t, err, ErrEmptyUpload)
	})

	t.Run("oversize upload", func(t *testing.T) {
		err := svc.StorePDF(ctx, doc, "huge.pdf", make([]byte, MaxUploadBytes+1))
		assert.ErrorIs(t, err, ErrUploadTooLarge)
	})

	t.Run("not a PDF", func(t *testing.T) {
		err := svc.StorePDF(ctx, doc, "notes.txt", []byte("just some text"))
		assert.ErrorIs(t, err, ErrNotPDF)
	})

	// Nothing should have been stored and the document must be untouched.
	assert.Zero(t, blobs.Len())
	assert.Empty(t, doc.AssetKey)
	assert.Zero(t, doc.PageCount)
}

func TestMemoryBlobStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	blobs := NewMemoryBlobStore()

	require.NoError(t, blobs.Put(ctx, "k1", []byte("hello"), "application/pdf"))

	data, err := blobs.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	// Mutating the returned slice must not leak into the store.
	data[0] = 'X'
	again, err := blobs.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), again)

	require.NoError(t, blobs.Delete(ctx, "k1"))
	_, err = blobs.Get(ctx, "k1")
	assert.Error(t, err)

	// Deleting an unknown key is a no-op.
	assert.NoError(t, blobs.Delete(ctx, "k1"))

	_, err = blobs.PresignGet("k1", PresignTTL)
	assert.ErrorIs(t, err, ErrPresignUnsupported)
}
