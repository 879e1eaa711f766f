package pdfx

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/abconlinecourses/pdfx-xblock/pkg/annotations"
)

// maxSavePayloadBytes caps an annotation save request. A full document's
// worth of strokes fits comfortably; anything larger is a runaway client.
const maxSavePayloadBytes = 10 << 20

// Annotation handlers are the endpoints the viewer plugin calls. They
// resolve the caller's identity, hand the typed payload to the annotation
// service, and translate service errors onto the protocol's status codes.
// Success responses carry result "success" alongside the operation's data:
//
//	save:  {"result":"success","saved_kinds":[...],"deletions_processed":n}
//	load:  {"result":"success","drawing_strokes":{...},...,"view_settings":{...}}
//	clear: {"result":"success","removed":n}

type saveResponse struct {
	Result string `json:"result"`
	*annotations.SaveResult
}

type loadResponse struct {
	Result string `json:"result"`
	*annotations.Bundle
}

type clearResponse struct {
	Result  string `json:"result"`
	Removed int    `json:"removed"`
}

func (a *App) handleSaveAnnotations(w http.ResponseWriter, r *http.Request) {
	ident, ok := a.requireIdentity(w, r)
	if !ok {
		return
	}

	doc, ok := a.fetchDocument(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxSavePayloadBytes)
	var req annotations.SaveRequest
	if err := decodeStrict(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid save payload: "+err.Error())
		return
	}

	result, err := a.annotations.Save(r.Context(), ident, doc.ID, &req)
	if err != nil {
		a.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, saveResponse{Result: "success", SaveResult: result})
}

func (a *App) handleLoadAnnotations(w http.ResponseWriter, r *http.Request) {
	ident, ok := a.requireIdentity(w, r)
	if !ok {
		return
	}

	doc, ok := a.fetchDocument(w, r)
	if !ok {
		return
	}

	q := r.URL.Query().Get("aggregate")
	includeAggregate := q == "1" || q == "true"

	bundle, err := a.annotations.Load(r.Context(), ident, doc.ID, includeAggregate)
	if err != nil {
		a.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, loadResponse{Result: "success", Bundle: bundle})
}

func (a *App) handleClearPage(w http.ResponseWriter, r *http.Request) {
	ident, ok := a.requireIdentity(w, r)
	if !ok {
		return
	}

	doc, ok := a.fetchDocument(w, r)
	if !ok {
		return
	}

	page, err := strconv.Atoi(mux.Vars(r)["page"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid page number")
		return
	}

	removed, err := a.annotations.ClearPage(r.Context(), ident, doc.ID, page)
	if err != nil {
		a.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, clearResponse{Result: "success", Removed: removed})
}

func (a *App) handleClearAll(w http.ResponseWriter, r *http.Request) {
	ident, ok := a.requireIdentity(w, r)
	if !ok {
		return
	}

	doc, ok := a.fetchDocument(w, r)
	if !ok {
		return
	}

	removed, err := a.annotations.ClearAll(r.Context(), ident, doc.ID)
	if err != nil {
		a.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, clearResponse{Result: "success", Removed: removed})
}
