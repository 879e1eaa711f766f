package models

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserIDJSON(t *testing.T) {
	id := NewUserID()

	data, err := json.Marshal(id)
	require.NoError(t, err)
	assert.Equal(t, `"`+id.String()+`"`, string(data))

	var decoded UserID
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, id, decoded)

	assert.Error(t, json.Unmarshal([]byte(`"not-a-uuid"`), &decoded))
	assert.Error(t, json.Unmarshal([]byte(`42`), &decoded))
}

// The CBOR form is SurrealDB's tag-8 RecordID. Round-tripping through the
// raw codec is what the websocket connection does on every query parameter.
func TestUserIDCBOR(t *testing.T) {
	id := NewUserID()

	data, err := id.MarshalCBOR()
	require.NoError(t, err)

	var decoded UserID
	require.NoError(t, decoded.UnmarshalCBOR(data))
	assert.Equal(t, id, decoded)

	t.Run("rejects a record id from another table", func(t *testing.T) {
		docData, err := NewDocumentID().MarshalCBOR()
		require.NoError(t, err)

		var u UserID
		err = u.UnmarshalCBOR(docData)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expected table users")
	})

	t.Run("rejects plain values", func(t *testing.T) {
		var u UserID
		assert.Error(t, u.UnmarshalCBOR([]byte{}))
		// 0x63 is a three-byte text string, not a tag.
		assert.Error(t, u.UnmarshalCBOR([]byte{0x63, 'a', 'b', 'c'}))
	})
}

func TestRecordIDTables(t *testing.T) {
	u := uuid.New()
	assert.Equal(t, "users", NewUserIDFromUUID(u).RecordID().Table)
	assert.Equal(t, "documents", NewDocumentIDFromUUID(u).RecordID().Table)
	assert.Equal(t, "courses", NewCourseIDFromUUID(u).RecordID().Table)
	assert.Equal(t, "annotation_records", NewAnnotationRecordIDFromUUID(u).RecordID().Table)
	assert.Equal(t, "view_settings", NewViewSettingsIDFromUUID(u).RecordID().Table)
}

func TestParseUserID(t *testing.T) {
	id := NewUserID()
	parsed, err := ParseUserID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = ParseUserID("not-a-uuid")
	assert.Error(t, err)
}

func TestIDZeroValues(t *testing.T) {
	assert.True(t, UserID{}.IsZero())
	assert.True(t, DocumentID{}.IsZero())
	assert.False(t, NewUserID().IsZero())
	assert.NotEqual(t, NewUserID(), NewUserID())

	// Zero IDs store as NULL.
	v, err := UserID{}.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = NewDocumentID().Value()
	require.NoError(t, err)
	assert.IsType(t, "", v)
}

func TestIDScan(t *testing.T) {
	id := NewDocumentID()

	var fromString DocumentID
	require.NoError(t, fromString.Scan(id.String()))
	assert.Equal(t, id, fromString)

	var fromBytes DocumentID
	require.NoError(t, fromBytes.Scan([]byte(id.String())))
	assert.Equal(t, id, fromBytes)

	var fromNil DocumentID
	require.NoError(t, fromNil.Scan(nil))
	assert.True(t, fromNil.IsZero())

	var bad DocumentID
	assert.Error(t, bad.Scan(42))
	assert.Error(t, bad.Scan("not-a-uuid"))
}
