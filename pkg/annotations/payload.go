package annotations

import (
	"encoding/json"

	"github.com/abconlinecourses/pdfx-xblock/pkg/models"
)

// Collection keys for the two shared tiers. The five private tiers take
// their keys from [models.Kind.CollectionKey].
const (
	StaffHighlightsKey = "staff_highlights"
	CourseNotesKey     = "course_notes"
)

// MaxAnnotationsPerCollection caps how many annotations one collection may
// hold, both as submitted in a single save and as stored after merge.
// Oversized collections fail validation instead of ballooning a record.
const MaxAnnotationsPerCollection = 1000

// SaveRequest is the save payload. Collection payloads stay raw so each one
// is parsed strictly on its own: a malformed collection is skipped while the
// rest of the call proceeds.
//
// UserID is the identity some clients embed in the payload. It is never
// trusted as the author; it only has to agree with the session identity, and
// a disagreement aborts the save as an [OwnershipError].
type SaveRequest struct {
	UserID       string          `json:"user_id,omitempty"`
	DeletionOnly bool            `json:"deletion_only,omitempty"`
	Deletions    []DeletionEntry `json:"deletions,omitempty"`

	DrawingStrokes   json.RawMessage `json:"drawing_strokes,omitempty"`
	Highlights       json.RawMessage `json:"highlights,omitempty"`
	TextAnnotations  json.RawMessage `json:"text_annotations,omitempty"`
	ShapeAnnotations json.RawMessage `json:"shape_annotations,omitempty"`
	MarkerStrokes    json.RawMessage `json:"marker_strokes,omitempty"`
	StaffHighlights  json.RawMessage `json:"staff_highlights,omitempty"`
	CourseNotes      json.RawMessage `json:"course_notes,omitempty"`

	ViewSettings *ViewSettingsPatch `json:"view_settings,omitempty"`
}

// DeletionEntry names one annotation to remove. Scope is empty for the
// caller's own tier; staff may address the shared tiers explicitly.
type DeletionEntry struct {
	ID         string       `json:"id"`
	Kind       models.Kind  `json:"kind"`
	PageNumber int          `json:"pageNumber"`
	Scope      models.Scope `json:"scope,omitempty"`
}

// ViewSettingsPatch carries the view settings fields present in a save.
// Pointer fields distinguish "absent" from zero values; absent fields leave
// the stored value untouched.
type ViewSettingsPatch struct {
	Page       *int  `json:"page,omitempty"`
	Brightness *int  `json:"brightness,omitempty"`
	Grayscale  *bool `json:"grayscale,omitempty"`
}

// SaveResult reports what a save actually did: the collection keys written
// by upserts and how many annotations the deletion pass removed.
type SaveResult struct {
	SavedKinds         []string `json:"saved_kinds"`
	DeletionsProcessed int      `json:"deletions_processed"`
}

// Bundle is the load response body. The five private collections and
// course_notes are always present, empty maps when nothing is stored.
// StaffHighlights carries the raw broadcast tier for staff callers, and
// AllUsers the aggregate view when explicitly requested.
type Bundle struct {
	DrawingStrokes   models.PageMap `json:"drawing_strokes"`
	Highlights       models.PageMap `json:"highlights"`
	TextAnnotations  models.PageMap `json:"text_annotations"`
	ShapeAnnotations models.PageMap `json:"shape_annotations"`
	MarkerStrokes    models.PageMap `json:"marker_strokes"`
	CourseNotes      models.PageMap `json:"course_notes"`

	StaffHighlights models.PageMap `json:"staff_highlights,omitempty"`
	AllUsers        Aggregate      `json:"all_users,omitempty"`

	ViewSettings models.ViewSettings `json:"view_settings"`
}

// Aggregate is the staff-only cross-user view: user ID, then collection key,
// then the user's page map for that collection.
type Aggregate map[string]map[string]models.PageMap

// submittedCollection pairs one present collection payload with its storage
// key. Shared marks the two staff-authored tiers.
type submittedCollection struct {
	Key    string
	Kind   models.Kind
	Scope  models.Scope // filled by the service; shared tiers are fixed
	Shared bool
	Raw    json.RawMessage
}

// collections lists the collection payloads present in the request, private
// tiers first, in a fixed order so savedKinds is deterministic.
func (r *SaveRequest) collections() []submittedCollection {
	out := []submittedCollection{}
	add := func(key string, kind models.Kind, scope models.Scope, shared bool, raw json.RawMessage) {
		if len(raw) == 0 {
			return
		}
		out = append(out, submittedCollection{Key: key, Kind: kind, Scope: scope, Shared: shared, Raw: raw})
	}
	add(models.KindDrawing.CollectionKey(), models.KindDrawing, "", false, r.DrawingStrokes)
	add(models.KindHighlight.CollectionKey(), models.KindHighlight, "", false, r.Highlights)
	add(models.KindText.CollectionKey(), models.KindText, "", false, r.TextAnnotations)
	add(models.KindShape.CollectionKey(), models.KindShape, "", false, r.ShapeAnnotations)
	add(models.KindNote.CollectionKey(), models.KindNote, "", false, r.MarkerStrokes)
	add(StaffHighlightsKey, models.KindHighlight, models.ScopeStaffBroadcast, true, r.StaffHighlights)
	add(CourseNotesKey, models.KindNote, models.ScopeCourseWide, true, r.CourseNotes)
	return out
}

// parseCollection strictly decodes one collection payload into a normalized
// page map. The shape must be {pageKey: [annotation, ...]}: page keys must
// parse as integers >= 1, every annotation needs an id, and per-annotation
// type and pageNumber fields must agree with the collection and page they
// arrived under. Page keys are canonicalized ("01" stores as "1") and empty
// page lists are dropped rather than stored.
//
// Any violation fails the whole collection with a [ValidationError]; there
// is no partial acceptance within a collection.
func parseCollection(key string, kind models.Kind, raw json.RawMessage) (models.PageMap, error) {
	var pages map[string][]models.Annotation
	if err := json.Unmarshal(raw, &pages); err != nil {
		return nil, &ValidationError{Collection: key, Reason: "must map page keys to annotation lists"}
	}

	total := 0
	out := make(models.PageMap, len(pages))
	for pageKey, list := range pages {
		n, err := models.ParsePageKey(pageKey)
		if err != nil {
			return nil, &ValidationError{Collection: key, Reason: err.Error()}
		}
		for i := range list {
			ann := &list[i]
			if ann.ID == "" {
				return nil, &ValidationError{Collection: key, Reason: "annotation id is required"}
			}
			if ann.PageNumber == 0 {
				ann.PageNumber = n
			} else if ann.PageNumber != n {
				return nil, &ValidationError{Collection: key, Reason: "annotation pageNumber disagrees with its page key"}
			}
			if ann.Kind == "" {
				ann.Kind = kind
			} else if ann.Kind != kind {
				return nil, &ValidationError{Collection: key, Reason: "annotation type disagrees with its collection"}
			}
		}
		total += len(list)
		if len(list) > 0 {
			out[models.PageKey(n)] = list
		}
	}
	if total > MaxAnnotationsPerCollection {
		return nil, &ValidationError{Collection: key, Reason: "too many annotations in one save"}
	}
	return out, nil
}
