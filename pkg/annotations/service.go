// Package annotations reconciles client-submitted annotation deltas into
// durable per-user, per-page state and serves merged views by role.
//
// The unit of storage is one [models.AnnotationRecord] per (document, kind,
// scope): a student's drawings live in the user scope, staff-broadcast
// highlights and course-wide notes in the two shared scopes. A save applies
// deletions first, then folds each submitted collection into its record by
// id union (never a whole-page overwrite), then patches the caller's view
// settings. A load assembles the caller's own tiers, appends broadcast
// highlights onto the student view, and on explicit request gives staff the
// cross-user aggregate.
//
// Permission and ownership failures abort a call before any write. A
// malformed collection only skips itself: the other collections in the same
// save still land, and the response's saved_kinds names exactly the ones
// that did.
package annotations

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/abconlinecourses/pdfx-xblock/pkg/models"
	"github.com/abconlinecourses/pdfx-xblock/pkg/store"
)

// Service implements the annotation operations on top of a Store. All
// methods are safe for concurrent use; concurrent saves to the same record
// resolve last-write-wins at whole-save granularity, which is the documented
// contract for one user saving from multiple tabs.
type Service struct {
	store store.Store
	log   zerolog.Logger
}

// NewService creates an annotation service backed by the given store.
func NewService(st store.Store, log zerolog.Logger) *Service {
	return &Service{store: st, log: log}
}

// Save reconciles one save payload for the caller.
//
// Order of operations: permission and ownership checks (no writes on
// failure), strict parsing of each submitted collection (failures skip that
// collection), the deletion pass, the upsert pass, then the view settings
// patch. A request flagged deletion_only, or containing no collection
// payloads, skips the upsert pass entirely and leaves unrelated records
// untouched. A collection whose merged record would exceed
// [MaxAnnotationsPerCollection] is skipped the same way a malformed one is.
//
// An empty payload is not an error; it returns an empty SaveResult.
func (s *Service) Save(ctx context.Context, ident models.Identity, documentID models.DocumentID, req *SaveRequest) (*SaveResult, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, &NotFoundError{Resource: "document"}
	}
	if !doc.AllowAnnotation {
		return nil, &PermissionError{Action: "annotation is disabled for this document"}
	}

	if err := s.checkIdentity(ident, documentID, req); err != nil {
		return nil, err
	}

	submitted := req.collections()
	for _, col := range submitted {
		if col.Shared && !ident.IsStaff {
			return nil, &PermissionError{Action: "only staff may write " + col.Key}
		}
	}
	for _, entry := range req.Deletions {
		if entry.Scope != "" && entry.Scope.Shared() && !ident.IsStaff {
			return nil, &PermissionError{Action: "only staff may delete from " + string(entry.Scope)}
		}
	}

	// Parse everything before writing anything so an OwnershipError can
	// still abort with stored state untouched.
	parsed := make([]submittedCollection, 0, len(submitted))
	pagesByKey := make(map[string]models.PageMap, len(submitted))
	for _, col := range submitted {
		pages, err := parseCollection(col.Key, col.Kind, col.Raw)
		if err != nil {
			s.log.Warn().Err(err).
				Str("collection", col.Key).
				Str("document", documentID.String()).
				Msg("skipping collection that failed validation")
			continue
		}
		if col.Scope == "" {
			col.Scope = models.UserScope(ident.UserID)
		}
		parsed = append(parsed, col)
		pagesByKey[col.Key] = pages
	}

	now := time.Now()
	for _, col := range parsed {
		if err := s.stampAuthor(ident, documentID, col.Key, pagesByKey[col.Key], now); err != nil {
			return nil, err
		}
	}

	processed, err := s.processDeletions(ctx, ident, documentID, req.Deletions)
	if err != nil {
		return nil, err
	}

	savedKinds := []string{}
	skipUpserts := req.DeletionOnly || len(parsed) == 0
	if !skipUpserts {
		for _, col := range parsed {
			incoming := pagesByKey[col.Key]
			if len(incoming) == 0 {
				continue
			}
			record, err := s.store.GetAnnotationRecord(ctx, documentID, col.Kind, col.Scope)
			if err != nil {
				return nil, err
			}
			var existing models.PageMap
			if record != nil {
				existing = record.Pages
			}
			merged := mergePages(existing, incoming)
			if n := merged.Count(); n > MaxAnnotationsPerCollection {
				s.log.Warn().
					Str("collection", col.Key).
					Str("document", documentID.String()).
					Int("count", n).
					Msg("skipping save that would push a record past the annotation cap")
				continue
			}
			if err := s.store.PutAnnotationRecord(ctx, &models.AnnotationRecord{
				DocumentID: documentID,
				Kind:       col.Kind,
				Scope:      col.Scope,
				Pages:      merged,
			}); err != nil {
				return nil, err
			}
			savedKinds = append(savedKinds, col.Key)
		}
	} else if req.DeletionOnly && len(parsed) > 0 {
		s.log.Warn().
			Str("document", documentID.String()).
			Msg("deletion-only save carried collection payloads; ignoring them")
	}

	if req.ViewSettings != nil {
		if err := s.patchViewSettings(ctx, ident, documentID, req.ViewSettings); err != nil {
			return nil, err
		}
	}

	s.log.Debug().
		Str("user", ident.UserID.String()).
		Str("document", documentID.String()).
		Strs("saved_kinds", savedKinds).
		Int("deletions", processed).
		Msg("save reconciled")

	return &SaveResult{SavedKinds: savedKinds, DeletionsProcessed: processed}, nil
}

// checkIdentity enforces the ownership guard: any identity embedded in the
// payload, top-level or per annotation, must match the session identity.
// Mismatches are logged as tamper signals.
func (s *Service) checkIdentity(ident models.Identity, documentID models.DocumentID, req *SaveRequest) error {
	if req.UserID == "" {
		return nil
	}
	claimed, err := models.ParseUserID(req.UserID)
	if err != nil || claimed != ident.UserID {
		s.log.Warn().
			Str("claimed", req.UserID).
			Str("caller", ident.UserID.String()).
			Str("document", documentID.String()).
			Msg("rejected save with mismatched payload identity")
		return &OwnershipError{Claimed: req.UserID, Actual: ident.UserID.String()}
	}
	return nil
}

// stampAuthor fills server-side fields on parsed annotations: author from
// the session, timestamp from the clock. An annotation claiming a different
// author is the per-record form of the tamper guard.
func (s *Service) stampAuthor(ident models.Identity, documentID models.DocumentID, key string, pages models.PageMap, now time.Time) error {
	for pageKey, list := range pages {
		for i := range list {
			ann := &list[i]
			if ann.UserID == nil {
				owner := ident.UserID
				ann.UserID = &owner
			} else if *ann.UserID != ident.UserID {
				s.log.Warn().
					Str("claimed", ann.UserID.String()).
					Str("caller", ident.UserID.String()).
					Str("collection", key).
					Str("page", pageKey).
					Str("document", documentID.String()).
					Msg("rejected annotation with mismatched author")
				return &OwnershipError{Claimed: ann.UserID.String(), Actual: ident.UserID.String()}
			}
			if ann.Timestamp == 0 {
				ann.Timestamp = now.UnixMilli()
			}
		}
	}
	return nil
}

// recordRef addresses one annotation record during the deletion pass.
type recordRef struct {
	Kind  models.Kind
	Scope models.Scope
}

// processDeletions removes the named annotations, grouped per record so each
// record is read and written once. Returns the number of annotations
// actually removed. Entries naming unknown kinds or pages below 1 are
// dropped with a warning; entries whose id or page is simply absent are
// silent no-ops.
func (s *Service) processDeletions(ctx context.Context, ident models.Identity, documentID models.DocumentID, entries []DeletionEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	order := []recordRef{}
	groups := map[recordRef][]DeletionEntry{}
	for _, entry := range entries {
		if !entry.Kind.Valid() || entry.PageNumber < 1 || entry.ID == "" {
			s.log.Warn().
				Str("kind", string(entry.Kind)).
				Int("page", entry.PageNumber).
				Str("document", documentID.String()).
				Msg("dropping malformed deletion entry")
			continue
		}
		scope := entry.Scope
		if scope == "" {
			scope = models.UserScope(ident.UserID)
		} else if !scope.Shared() {
			// Explicit scopes are limited to the shared tiers; a caller
			// cannot address another user's records by scope string.
			s.log.Warn().
				Str("scope", string(scope)).
				Str("document", documentID.String()).
				Msg("dropping deletion entry with unsupported scope")
			continue
		}
		ref := recordRef{Kind: entry.Kind, Scope: scope}
		if _, ok := groups[ref]; !ok {
			order = append(order, ref)
		}
		groups[ref] = append(groups[ref], entry)
	}

	removed := 0
	for _, ref := range order {
		record, err := s.store.GetAnnotationRecord(ctx, documentID, ref.Kind, ref.Scope)
		if err != nil {
			return removed, err
		}
		if record == nil {
			continue
		}
		n := applyDeletions(record.Pages, groups[ref])
		if n == 0 {
			continue
		}
		removed += n
		if len(record.Pages) == 0 {
			if err := s.store.DeleteAnnotationRecord(ctx, documentID, ref.Kind, ref.Scope); err != nil {
				return removed, err
			}
			continue
		}
		if err := s.store.PutAnnotationRecord(ctx, record); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

// patchViewSettings overwrites only the fields present in the patch.
// Values are clamped into their documented ranges rather than rejected;
// range drift is a client bug, not a reason to lose the rest of the save.
func (s *Service) patchViewSettings(ctx context.Context, ident models.Identity, documentID models.DocumentID, patch *ViewSettingsPatch) error {
	current, err := s.store.GetViewSettings(ctx, ident.UserID, documentID)
	if err != nil {
		return err
	}
	settings := models.DefaultViewSettings()
	if current != nil {
		settings = *current
	}
	settings.UserID = ident.UserID
	settings.DocumentID = documentID

	if patch.Page != nil {
		settings.Page = *patch.Page
		if settings.Page < models.DefaultPage {
			settings.Page = models.DefaultPage
		}
	}
	if patch.Brightness != nil {
		settings.Brightness = clamp(*patch.Brightness, models.MinBrightness, models.MaxBrightness)
	}
	if patch.Grayscale != nil {
		settings.Grayscale = *patch.Grayscale
	}

	return s.store.PutViewSettings(ctx, &settings)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Load assembles the annotation bundle for the caller.
//
// Students receive their own five collections with broadcast highlights
// appended onto matching pages, plus course notes and their view settings.
// Staff additionally receive the raw broadcast tier under staff_highlights,
// and the cross-user aggregate when includeAggregate is set. A student
// requesting the aggregate gets a PermissionError.
//
// Load never mutates state and never fails on absent data: a brand-new
// (user, document) pair yields empty maps and default view settings.
func (s *Service) Load(ctx context.Context, ident models.Identity, documentID models.DocumentID, includeAggregate bool) (*Bundle, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, &NotFoundError{Resource: "document"}
	}
	if includeAggregate && !ident.IsStaff {
		return nil, &PermissionError{Action: "the aggregate view is staff-only"}
	}

	bundle := &Bundle{
		DrawingStrokes:   models.PageMap{},
		Highlights:       models.PageMap{},
		TextAnnotations:  models.PageMap{},
		ShapeAnnotations: models.PageMap{},
		MarkerStrokes:    models.PageMap{},
		CourseNotes:      models.PageMap{},
	}

	own, err := s.store.ListAnnotationRecordsByScope(ctx, documentID, models.UserScope(ident.UserID))
	if err != nil {
		return nil, err
	}
	for _, record := range own {
		pages := record.Pages.Clone()
		switch record.Kind {
		case models.KindDrawing:
			bundle.DrawingStrokes = pages
		case models.KindHighlight:
			bundle.Highlights = pages
		case models.KindText:
			bundle.TextAnnotations = pages
		case models.KindShape:
			bundle.ShapeAnnotations = pages
		case models.KindNote:
			bundle.MarkerStrokes = pages
		}
	}

	broadcast, err := s.store.GetAnnotationRecord(ctx, documentID, models.KindHighlight, models.ScopeStaffBroadcast)
	if err != nil {
		return nil, err
	}
	if broadcast != nil {
		bundle.Highlights = appendPages(bundle.Highlights, broadcast.Pages)
		if ident.IsStaff {
			bundle.StaffHighlights = broadcast.Pages.Clone()
		}
	}

	courseNotes, err := s.store.GetAnnotationRecord(ctx, documentID, models.KindNote, models.ScopeCourseWide)
	if err != nil {
		return nil, err
	}
	if courseNotes != nil {
		bundle.CourseNotes = courseNotes.Pages.Clone()
	}

	settings, err := s.store.GetViewSettings(ctx, ident.UserID, documentID)
	if err != nil {
		return nil, err
	}
	if settings != nil {
		bundle.ViewSettings = *settings
	} else {
		bundle.ViewSettings = models.DefaultViewSettings()
	}

	if includeAggregate {
		aggregate, err := s.loadAggregate(ctx, documentID)
		if err != nil {
			return nil, err
		}
		bundle.AllUsers = aggregate
	}

	return bundle, nil
}

// loadAggregate builds the read-only cross-user view from every user-scope
// record of the document: user id, then collection key, then pages.
func (s *Service) loadAggregate(ctx context.Context, documentID models.DocumentID) (Aggregate, error) {
	records, err := s.store.ListAnnotationRecords(ctx, documentID)
	if err != nil {
		return nil, err
	}
	aggregate := Aggregate{}
	for _, record := range records {
		owner, ok := record.Scope.Owner()
		if !ok {
			continue
		}
		byUser, ok := aggregate[owner.String()]
		if !ok {
			byUser = map[string]models.PageMap{}
			aggregate[owner.String()] = byUser
		}
		byUser[record.Kind.CollectionKey()] = record.Pages.Clone()
	}
	return aggregate, nil
}

// ClearPage removes every annotation the caller owns on one page of a
// document, across all five kinds, and returns how many were removed. The
// shared tiers are untouched; a record that empties is deleted rather than
// stored empty.
func (s *Service) ClearPage(ctx context.Context, ident models.Identity, documentID models.DocumentID, pageNumber int) (int, error) {
	if pageNumber < 1 {
		return 0, &ValidationError{Reason: "page number must be >= 1"}
	}
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return 0, err
	}
	if doc == nil {
		return 0, &NotFoundError{Resource: "document"}
	}

	records, err := s.store.ListAnnotationRecordsByScope(ctx, documentID, models.UserScope(ident.UserID))
	if err != nil {
		return 0, err
	}

	pageKey := models.PageKey(pageNumber)
	removed := 0
	for _, record := range records {
		list, ok := record.Pages[pageKey]
		if !ok {
			continue
		}
		removed += len(list)
		delete(record.Pages, pageKey)
		if len(record.Pages) == 0 {
			if err := s.store.DeleteAnnotationRecord(ctx, documentID, record.Kind, record.Scope); err != nil {
				return removed, err
			}
			continue
		}
		if err := s.store.PutAnnotationRecord(ctx, record); err != nil {
			return removed, err
		}
	}

	s.log.Info().
		Str("user", ident.UserID.String()).
		Str("document", documentID.String()).
		Int("page", pageNumber).
		Int("removed", removed).
		Msg("cleared page")
	return removed, nil
}

// ClearAll removes every annotation the caller owns in a document, across
// all five kinds, and returns how many were removed. The shared tiers and
// other users' collections are untouched.
func (s *Service) ClearAll(ctx context.Context, ident models.Identity, documentID models.DocumentID) (int, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return 0, err
	}
	if doc == nil {
		return 0, &NotFoundError{Resource: "document"}
	}

	records, err := s.store.ListAnnotationRecordsByScope(ctx, documentID, models.UserScope(ident.UserID))
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, record := range records {
		removed += record.Pages.Count()
		if err := s.store.DeleteAnnotationRecord(ctx, documentID, record.Kind, record.Scope); err != nil {
			return removed, err
		}
	}

	s.log.Info().
		Str("user", ident.UserID.String()).
		Str("document", documentID.String()).
		Int("removed", removed).
		Msg("cleared document")
	return removed, nil
}
