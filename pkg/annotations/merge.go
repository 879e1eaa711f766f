package annotations

import (
	"github.com/abconlinecourses/pdfx-xblock/pkg/models"
)

// mergePages folds an incoming page map into an existing one by id union.
// Per page: existing annotations not mentioned by the incoming list are
// kept, incoming annotations with a known id replace the existing entry in
// its list position, and new ids are appended in submission order. The
// existing map is not modified; the result is a fresh map safe to persist.
//
// A whole-page overwrite never happens here. Clients submit deltas, and a
// client that has only part of a page loaded must not wipe the rest.
func mergePages(existing, incoming models.PageMap) models.PageMap {
	merged := existing.Clone()
	if merged == nil {
		merged = models.PageMap{}
	}
	for pageKey, additions := range incoming {
		list := merged[pageKey]
		for _, ann := range additions {
			if i := indexByID(list, ann.ID); i >= 0 {
				list[i] = ann.Clone()
			} else {
				list = append(list, ann.Clone())
			}
		}
		if len(list) == 0 {
			// Never store an empty page list.
			delete(merged, pageKey)
			continue
		}
		merged[pageKey] = list
	}
	return merged
}

// applyDeletions removes the named annotations from a page map in place and
// returns how many it removed. A page whose list empties loses its key
// entirely. Entries naming unknown pages or ids are no-ops.
func applyDeletions(pages models.PageMap, entries []DeletionEntry) int {
	removed := 0
	for _, entry := range entries {
		pageKey := models.PageKey(entry.PageNumber)
		list, ok := pages[pageKey]
		if !ok {
			continue
		}
		kept := make([]models.Annotation, 0, len(list))
		for _, ann := range list {
			if ann.ID == entry.ID {
				removed++
				continue
			}
			kept = append(kept, ann)
		}
		if len(kept) == 0 {
			delete(pages, pageKey)
			continue
		}
		pages[pageKey] = kept
	}
	return removed
}

// appendPages appends extra annotations onto base per page without
// replacing anything, preserving base order first. Used to merge the
// broadcast tier onto a student's own highlights.
func appendPages(base, extra models.PageMap) models.PageMap {
	if len(extra) == 0 {
		return base
	}
	out := base.Clone()
	if out == nil {
		out = models.PageMap{}
	}
	for pageKey, list := range extra {
		if len(list) == 0 {
			continue
		}
		merged := make([]models.Annotation, 0, len(out[pageKey])+len(list))
		merged = append(merged, out[pageKey]...)
		for _, ann := range list {
			merged = append(merged, ann.Clone())
		}
		out[pageKey] = merged
	}
	return out
}

// indexByID returns the position of the annotation with the given id, or -1.
func indexByID(list []models.Annotation, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}
