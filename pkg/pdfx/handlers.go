package pdfx

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/abconlinecourses/pdfx-xblock/pkg/annotations"
	"github.com/abconlinecourses/pdfx-xblock/pkg/assets"
	"github.com/abconlinecourses/pdfx-xblock/pkg/models"
)

// Helper functions provide common HTTP response handling for consistent API
// behavior.

// respondJSON sends a JSON response with the given status code and payload.
// A nil payload sends an empty body.
func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// respondError sends the error envelope the plugin protocol promises:
//
//	{"result": "error", "error": "message"}
//
// Every error response in the API goes through here so clients can switch
// on the result field without inspecting status codes first.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"result": "error",
		"error":  message,
	})
}

// respondServiceError maps annotation service errors onto the statuses the
// protocol promises: validation problems are 400, permission and ownership
// rejections are 403, missing resources are 404, and anything unexpected is
// a logged 500 with a generic message.
func (a *App) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, &annotations.ValidationError{}):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, &annotations.PermissionError{}):
		respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, &annotations.OwnershipError{}):
		respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, &annotations.NotFoundError{}):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		a.respondStoreError(w, err)
	}
}

// decodeStrict decodes a JSON request body rejecting unknown fields. The
// annotation payload format is easy to get subtly wrong on the client side,
// and a silently dropped misspelled key used to mean silently lost work, so
// the boundary fails loudly instead.
func decodeStrict(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// Document handlers cover the course-staff side of the system: registering
// PDFs, adjusting viewer permissions, and removing documents. Students only
// ever read documents.

// createDocumentRequest is the document registration shape. The permission
// flags default to true when absent; asset fields are owned by the upload
// path and anything else in the payload is ignored.
type createDocumentRequest struct {
	ID              models.DocumentID `json:"id"`
	CourseID        models.CourseID   `json:"course_id"`
	DisplayName     string            `json:"display_name"`
	SourceURL       string            `json:"source_url"`
	AllowDownload   *bool             `json:"allow_download"`
	AllowAnnotation *bool             `json:"allow_annotation"`
}

func (a *App) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	ident, ok := a.requireStaff(w, r)
	if !ok {
		return
	}

	var req createDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if req.DisplayName == "" {
		req.DisplayName = models.DefaultDisplayName
	}
	if err := assets.ValidateSourceURL(req.SourceURL); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	doc := models.Document{
		ID:              req.ID,
		CourseID:        req.CourseID,
		DisplayName:     req.DisplayName,
		SourceURL:       req.SourceURL,
		AllowDownload:   true,
		AllowAnnotation: true,
		CreatedBy:       ident.UserID,
	}
	if req.AllowDownload != nil {
		doc.AllowDownload = *req.AllowDownload
	}
	if req.AllowAnnotation != nil {
		doc.AllowAnnotation = *req.AllowAnnotation
	}
	if doc.ID.IsZero() {
		doc.ID = models.NewDocumentID()
	}

	if err := a.store.CreateDocument(r.Context(), &doc); err != nil {
		a.respondStoreError(w, err)
		return
	}

	a.log.Info().
		Str("document", doc.ID.String()).
		Str("created_by", ident.UserID.String()).
		Msg("document created")
	respondJSON(w, http.StatusCreated, doc)
}

func (a *App) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireIdentity(w, r); !ok {
		return
	}

	doc, ok := a.fetchDocument(w, r)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, doc)
}

// updateDocumentRequest is the partial-update shape for documents. Absent
// fields leave the stored value untouched. A blank source_url is also a
// no-op: clearing configured content requires deleting the document, so a
// form round-trip with an empty URL field can never orphan an uploaded
// asset.
type updateDocumentRequest struct {
	DisplayName     *string `json:"display_name,omitempty"`
	SourceURL       *string `json:"source_url,omitempty"`
	AllowDownload   *bool   `json:"allow_download,omitempty"`
	AllowAnnotation *bool   `json:"allow_annotation,omitempty"`
}

func (a *App) handleUpdateDocument(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireStaff(w, r); !ok {
		return
	}

	doc, ok := a.fetchDocument(w, r)
	if !ok {
		return
	}

	var req updateDocumentRequest
	if err := decodeStrict(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload: "+err.Error())
		return
	}

	if req.DisplayName != nil && *req.DisplayName != "" {
		doc.DisplayName = *req.DisplayName
	}
	if req.SourceURL != nil && *req.SourceURL != "" {
		if err := assets.ValidateSourceURL(*req.SourceURL); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		doc.SourceURL = *req.SourceURL
	}
	if req.AllowDownload != nil {
		doc.AllowDownload = *req.AllowDownload
	}
	if req.AllowAnnotation != nil {
		doc.AllowAnnotation = *req.AllowAnnotation
	}

	if err := a.store.UpdateDocument(r.Context(), doc); err != nil {
		a.respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, doc)
}

func (a *App) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	ident, ok := a.requireStaff(w, r)
	if !ok {
		return
	}

	doc, ok := a.fetchDocument(w, r)
	if !ok {
		return
	}

	if err := a.store.DeleteDocument(r.Context(), doc.ID); err != nil {
		a.respondStoreError(w, err)
		return
	}

	a.log.Info().
		Str("document", doc.ID.String()).
		Str("deleted_by", ident.UserID.String()).
		Msg("document deleted")
	respondJSON(w, http.StatusNoContent, nil)
}

func (a *App) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireIdentity(w, r); !ok {
		return
	}

	courseID, err := models.ParseCourseID(mux.Vars(r)["courseId"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid course ID")
		return
	}

	docs, err := a.store.ListDocuments(r.Context(), courseID)
	if err != nil {
		a.respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, docs)
}

// fetchDocument parses the {id} route variable and loads the document,
// writing the error response itself when either step fails.
func (a *App) fetchDocument(w http.ResponseWriter, r *http.Request) (*models.Document, bool) {
	id, err := models.ParseDocumentID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid document ID")
		return nil, false
	}

	doc, err := a.store.GetDocument(r.Context(), id)
	if err != nil {
		a.respondStoreError(w, err)
		return nil, false
	}
	if doc == nil {
		respondError(w, http.StatusNotFound, "document not found")
		return nil, false
	}
	return doc, true
}

// respondStoreError handles errors surfaced directly from the store layer.
// Maintenance-mode rejections become 503 so clients know to retry later;
// everything else is an internal error.
func (a *App) respondStoreError(w http.ResponseWriter, err error) {
	if a.IsReadOnly() {
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	a.log.Error().Err(err).Msg("store operation failed")
	respondError(w, http.StatusInternalServerError, "internal server error")
}

// Admin handlers control runtime maintenance state.

type readOnlyRequest struct {
	ReadOnly bool `json:"read_only"`
}

func (a *App) handleGetReadOnly(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireStaff(w, r); !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"result":    "success",
		"read_only": a.IsReadOnly(),
	})
}

func (a *App) handleSetReadOnly(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireStaff(w, r); !ok {
		return
	}

	var req readOnlyRequest
	if err := decodeStrict(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload: "+err.Error())
		return
	}

	a.SetReadOnly(req.ReadOnly)
	respondJSON(w, http.StatusOK, map[string]any{
		"result":    "success",
		"read_only": a.IsReadOnly(),
	})
}

// handleHealth reports service status for load balancers and monitoring.
// It never touches the database so it stays cheap under load.
func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"backend":   a.config.Backend,
		"read_only": a.IsReadOnly(),
		"time":      time.Now().Unix(),
	})
}
