package annotations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abconlinecourses/pdfx-xblock/pkg/models"
)

func ann(id string, page int) models.Annotation {
	return models.Annotation{ID: id, Kind: models.KindDrawing, PageNumber: page}
}

func annWith(id string, page int, color string) models.Annotation {
	a := ann(id, page)
	a.Data = models.JSONMap{"color": color}
	return a
}

func pageIDs(t *testing.T, pages models.PageMap, key string) []string {
	t.Helper()
	ids := []string{}
	for _, a := range pages[key] {
		ids = append(ids, a.ID)
	}
	return ids
}

func TestMergePages(t *testing.T) {
	t.Run("union keeps unmentioned, replaces known, appends new", func(t *testing.T) {
		existing := models.PageMap{
			"1": []models.Annotation{annWith("a1", 1, "black"), annWith("a2", 1, "red")},
		}
		incoming := models.PageMap{
			"1": []models.Annotation{annWith("a2", 1, "blue"), annWith("a3", 1, "green")},
		}

		merged := mergePages(existing, incoming)

		require.Equal(t, []string{"a1", "a2", "a3"}, pageIDs(t, merged, "1"))
		assert.Equal(t, "blue", merged["1"][1].Data["color"], "a2 must be replaced in its original position")
		assert.Equal(t, "black", merged["1"][0].Data["color"], "a1 must survive untouched")
	})

	t.Run("existing map is not mutated", func(t *testing.T) {
		existing := models.PageMap{
			"1": []models.Annotation{annWith("a1", 1, "black")},
		}
		_ = mergePages(existing, models.PageMap{
			"1": []models.Annotation{annWith("a1", 1, "blue"), ann("a2", 1)},
			"2": []models.Annotation{ann("b1", 2)},
		})

		require.Len(t, existing["1"], 1)
		assert.Equal(t, "black", existing["1"][0].Data["color"])
		assert.NotContains(t, existing, "2")
	})

	t.Run("new pages are added", func(t *testing.T) {
		merged := mergePages(
			models.PageMap{"1": []models.Annotation{ann("a1", 1)}},
			models.PageMap{"3": []models.Annotation{ann("c1", 3)}},
		)
		assert.Equal(t, []string{"a1"}, pageIDs(t, merged, "1"))
		assert.Equal(t, []string{"c1"}, pageIDs(t, merged, "3"))
	})

	t.Run("nil existing starts fresh", func(t *testing.T) {
		merged := mergePages(nil, models.PageMap{"1": []models.Annotation{ann("a1", 1)}})
		assert.Equal(t, []string{"a1"}, pageIDs(t, merged, "1"))
	})

	t.Run("empty incoming page list never stores a key", func(t *testing.T) {
		merged := mergePages(nil, models.PageMap{"1": []models.Annotation{}})
		assert.Empty(t, merged)
	})

	t.Run("same id twice in one submission collapses to the last", func(t *testing.T) {
		merged := mergePages(nil, models.PageMap{
			"1": []models.Annotation{annWith("a1", 1, "black"), annWith("a1", 1, "blue")},
		})
		require.Equal(t, []string{"a1"}, pageIDs(t, merged, "1"))
		assert.Equal(t, "blue", merged["1"][0].Data["color"])
	})

	t.Run("merged annotations are deep copies", func(t *testing.T) {
		incoming := models.PageMap{"1": []models.Annotation{annWith("a1", 1, "black")}}
		merged := mergePages(nil, incoming)

		incoming["1"][0].Data["color"] = "mutated"
		assert.Equal(t, "black", merged["1"][0].Data["color"])
	})
}

func TestApplyDeletions(t *testing.T) {
	t.Run("removes ids and counts them", func(t *testing.T) {
		pages := models.PageMap{
			"1": []models.Annotation{ann("a1", 1), ann("a2", 1), ann("a3", 1)},
		}
		n := applyDeletions(pages, []DeletionEntry{
			{ID: "a1", Kind: models.KindDrawing, PageNumber: 1},
			{ID: "a3", Kind: models.KindDrawing, PageNumber: 1},
		})
		assert.Equal(t, 2, n)
		assert.Equal(t, []string{"a2"}, pageIDs(t, pages, "1"))
	})

	t.Run("emptied page loses its key", func(t *testing.T) {
		pages := models.PageMap{
			"1": []models.Annotation{ann("a1", 1)},
			"2": []models.Annotation{ann("b1", 2)},
		}
		n := applyDeletions(pages, []DeletionEntry{
			{ID: "a1", Kind: models.KindDrawing, PageNumber: 1},
		})
		assert.Equal(t, 1, n)
		assert.NotContains(t, pages, "1")
		assert.Contains(t, pages, "2")
	})

	t.Run("unknown page and unknown id are no-ops", func(t *testing.T) {
		pages := models.PageMap{"1": []models.Annotation{ann("a1", 1)}}
		n := applyDeletions(pages, []DeletionEntry{
			{ID: "a1", Kind: models.KindDrawing, PageNumber: 9},
			{ID: "ghost", Kind: models.KindDrawing, PageNumber: 1},
		})
		assert.Zero(t, n)
		assert.Equal(t, []string{"a1"}, pageIDs(t, pages, "1"))
	})
}

func TestAppendPages(t *testing.T) {
	t.Run("appends after base order", func(t *testing.T) {
		base := models.PageMap{"1": []models.Annotation{ann("own1", 1)}}
		extra := models.PageMap{
			"1": []models.Annotation{ann("staff1", 1)},
			"2": []models.Annotation{ann("staff2", 2)},
		}
		out := appendPages(base, extra)
		assert.Equal(t, []string{"own1", "staff1"}, pageIDs(t, out, "1"))
		assert.Equal(t, []string{"staff2"}, pageIDs(t, out, "2"))
	})

	t.Run("empty extra returns base unchanged", func(t *testing.T) {
		base := models.PageMap{"1": []models.Annotation{ann("own1", 1)}}
		out := appendPages(base, models.PageMap{})
		assert.Equal(t, []string{"own1"}, pageIDs(t, out, "1"))
	})

	t.Run("base is not mutated", func(t *testing.T) {
		base := models.PageMap{"1": []models.Annotation{ann("own1", 1)}}
		_ = appendPages(base, models.PageMap{"1": []models.Annotation{ann("staff1", 1)}})
		assert.Equal(t, []string{"own1"}, pageIDs(t, base, "1"))
	})
}

func TestIndexByID(t *testing.T) {
	list := []models.Annotation{ann("a1", 1), ann("a2", 1)}
	assert.Equal(t, 0, indexByID(list, "a1"))
	assert.Equal(t, 1, indexByID(list, "a2"))
	assert.Equal(t, -1, indexByID(list, "zz"))
	assert.Equal(t, -1, indexByID(nil, "a1"))
}
