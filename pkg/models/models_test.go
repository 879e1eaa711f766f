package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindValid(t *testing.T) {
	for _, k := range AllKinds {
		assert.True(t, k.Valid(), "kind %q", k)
	}
	assert.False(t, Kind("").Valid())
	assert.False(t, Kind("sculpture").Valid())
}

func TestKindCollectionKey(t *testing.T) {
	tests := []struct {
		kind Kind
		key  string
	}{
		{KindDrawing, "drawing_strokes"},
		{KindHighlight, "highlights"},
		{KindText, "text_annotations"},
		{KindShape, "shape_annotations"},
		{KindNote, "marker_strokes"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.key, tt.kind.CollectionKey())
	}
}

func TestScopes(t *testing.T) {
	userID := NewUserID()
	scope := UserScope(userID)

	assert.True(t, scope.IsUser())
	assert.False(t, scope.Shared())

	owner, ok := scope.Owner()
	require.True(t, ok)
	assert.Equal(t, userID, owner)

	for _, shared := range []Scope{ScopeStaffBroadcast, ScopeCourseWide} {
		assert.True(t, shared.Shared(), "scope %q", shared)
		assert.False(t, shared.IsUser(), "scope %q", shared)
		_, ok := shared.Owner()
		assert.False(t, ok, "scope %q", shared)
	}

	// A user prefix with a broken uuid has no owner.
	_, ok = Scope("user:not-a-uuid").Owner()
	assert.False(t, ok)
}

func TestPageKeys(t *testing.T) {
	assert.Equal(t, "1", PageKey(1))
	assert.Equal(t, "42", PageKey(42))

	n, err := ParsePageKey("7")
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	for _, key := range []string{"", "abc", "1.5", "0", "-3", "1e2"} {
		_, err := ParsePageKey(key)
		assert.Error(t, err, "key %q", key)
	}
}

func TestJSONMapClone(t *testing.T) {
	original := JSONMap{
		"color": "black",
		"style": map[string]any{"width": 2.5},
		"paths": []any{
			map[string]any{"x": 1.0},
		},
	}

	clone := original.Clone()
	clone["color"] = "red"
	clone["style"].(map[string]any)["width"] = 9.0
	clone["paths"].([]any)[0].(map[string]any)["x"] = 99.0

	assert.Equal(t, "black", original["color"])
	assert.Equal(t, 2.5, original["style"].(map[string]any)["width"])
	assert.Equal(t, 1.0, original["paths"].([]any)[0].(map[string]any)["x"])

	assert.Nil(t, JSONMap(nil).Clone())
}

func TestAnnotationClone(t *testing.T) {
	author := NewUserID()
	original := Annotation{
		ID:         "a1",
		Kind:       KindDrawing,
		PageNumber: 3,
		UserID:     &author,
		Timestamp:  1000,
		Data:       JSONMap{"color": "black"},
	}

	clone := original.Clone()
	*clone.UserID = NewUserID()
	clone.Data["color"] = "red"

	assert.Equal(t, author, *original.UserID)
	assert.Equal(t, "black", original.Data["color"])
}

func TestPageMapCloneAndCount(t *testing.T) {
	original := PageMap{
		"1": []Annotation{{ID: "a1", Data: JSONMap{"color": "black"}}, {ID: "a2"}},
		"3": []Annotation{{ID: "b1"}},
	}
	assert.Equal(t, 3, original.Count())
	assert.Zero(t, PageMap{}.Count())

	clone := original.Clone()
	clone["1"][0].Data["color"] = "red"
	clone["3"] = append(clone["3"], Annotation{ID: "b2"})

	assert.Equal(t, "black", original["1"][0].Data["color"])
	assert.Len(t, original["3"], 1)

	assert.Nil(t, PageMap(nil).Clone())
}

func TestDefaultViewSettings(t *testing.T) {
	settings := DefaultViewSettings()
	assert.Equal(t, DefaultPage, settings.Page)
	assert.Equal(t, DefaultBrightness, settings.Brightness)
	assert.False(t, settings.Grayscale)
}

func TestUserIsStaff(t *testing.T) {
	assert.True(t, (&User{Role: RoleStaff}).IsStaff())
	assert.False(t, (&User{Role: RoleStudent}).IsStaff())
	assert.False(t, (&User{}).IsStaff())
}
