package pdfx

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/abconlinecourses/pdfx-xblock/pkg/assets"
	"github.com/abconlinecourses/pdfx-xblock/pkg/models"
)

// Asset handlers cover the binary side of a document: uploading the PDF,
// serving it to the viewer, and the thumbnail shown in course listings.

// handleUploadFile accepts a PDF as the "file" field of a multipart form,
// validates it, and attaches it to the document. A new upload supersedes
// both a previous upload and any configured source URL.
func (a *App) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	ident, ok := a.requireStaff(w, r)
	if !ok {
		return
	}

	doc, ok := a.fetchDocument(w, r)
	if !ok {
		return
	}

	// Slack over the PDF cap covers multipart framing.
	r.Body = http.MaxBytesReader(w, r.Body, assets.MaxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read upload: "+err.Error())
		return
	}

	if err := a.assets.StorePDF(r.Context(), doc, header.Filename, data); err != nil {
		switch {
		case errors.Is(err, assets.ErrEmptyUpload),
			errors.Is(err, assets.ErrUploadTooLarge),
			errors.Is(err, assets.ErrNotPDF):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			a.respondStoreError(w, err)
		}
		return
	}

	if err := a.store.UpdateDocument(r.Context(), doc); err != nil {
		a.respondStoreError(w, err)
		return
	}

	a.log.Info().
		Str("document", doc.ID.String()).
		Str("uploaded_by", ident.UserID.String()).
		Str("filename", header.Filename).
		Msg("document file uploaded")
	respondJSON(w, http.StatusOK, doc)
}

// handleServeFile streams an uploaded asset's bytes. This is the fallback
// serving route for deployments without presigned URLs; S3-backed
// deployments hand viewers a presigned URL instead and rarely hit this.
func (a *App) handleServeFile(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireIdentity(w, r); !ok {
		return
	}

	doc, ok := a.fetchDocument(w, r)
	if !ok {
		return
	}
	if doc.AssetKey == "" {
		respondError(w, http.StatusNotFound, "document has no uploaded file")
		return
	}

	data, err := a.assets.Open(r.Context(), doc.AssetKey)
	if err != nil {
		a.respondStoreError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

// sourceResponse is the viewer bootstrap payload: where to fetch the PDF
// and which controls to show.
type sourceResponse struct {
	Result          string `json:"result"`
	URL             string `json:"url"`
	DisplayName     string `json:"display_name"`
	PageCount       int    `json:"page_count,omitempty"`
	AllowDownload   bool   `json:"allow_download"`
	AllowAnnotation bool   `json:"allow_annotation"`
}

func (a *App) handleGetSource(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireIdentity(w, r); !ok {
		return
	}

	doc, ok := a.fetchDocument(w, r)
	if !ok {
		return
	}

	url, err := a.resolver.ViewURL(doc)
	if err != nil {
		a.respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, sourceResponse{
		Result:          "success",
		URL:             url,
		DisplayName:     doc.DisplayName,
		PageCount:       doc.PageCount,
		AllowDownload:   doc.AllowDownload,
		AllowAnnotation: doc.AllowAnnotation,
	})
}

// handleDownload serves the document as an attachment. Unlike the viewer
// routes this one honors the per-document download switch.
func (a *App) handleDownload(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireIdentity(w, r); !ok {
		return
	}

	doc, ok := a.fetchDocument(w, r)
	if !ok {
		return
	}
	if !doc.AllowDownload {
		respondError(w, http.StatusForbidden, "downloads are disabled for this document")
		return
	}

	if doc.AssetKey == "" {
		if doc.SourceURL != "" {
			http.Redirect(w, r, doc.SourceURL, http.StatusFound)
			return
		}
		respondError(w, http.StatusNotFound, "document has no content")
		return
	}

	data, err := a.assets.Open(r.Context(), doc.AssetKey)
	if err != nil {
		a.respondStoreError(w, err)
		return
	}

	filename := doc.AssetName
	if filename == "" {
		filename = doc.DisplayName + ".pdf"
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, _ = w.Write(data)
}

// Thumbnail handlers store and serve the preview image as a data URI.

type thumbnailRequest struct {
	Thumbnail string `json:"thumbnail"`
}

func (a *App) handleSetThumbnail(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireStaff(w, r); !ok {
		return
	}

	doc, ok := a.fetchDocument(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 2*assets.MaxThumbnailBytes+(1<<20))
	var req thumbnailRequest
	if err := decodeStrict(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload: "+err.Error())
		return
	}
	if err := assets.ValidateThumbnail(req.Thumbnail); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	thumb := &models.Thumbnail{
		DocumentID: doc.ID,
		Data:       req.Thumbnail,
	}
	if err := a.store.PutThumbnail(r.Context(), thumb); err != nil {
		a.respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"result": "success"})
}

func (a *App) handleGetThumbnail(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireIdentity(w, r); !ok {
		return
	}

	doc, ok := a.fetchDocument(w, r)
	if !ok {
		return
	}

	thumb, err := a.store.GetThumbnail(r.Context(), doc.ID)
	if err != nil {
		a.respondStoreError(w, err)
		return
	}
	if thumb == nil {
		respondError(w, http.StatusNotFound, "document has no thumbnail")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"result":    "success",
		"thumbnail": thumb.Data,
	})
}
