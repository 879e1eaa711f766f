package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abconlinecourses/pdfx-xblock/pkg/models"
)

func TestUsers(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	user := &models.User{Email: "rikka@test.example.com", Name: "Rikka", Role: models.RoleStudent}
	require.NoError(t, st.CreateUser(ctx, user))
	assert.False(t, user.ID.IsZero(), "create assigns an id")

	found, err := st.GetUser(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "rikka@test.example.com", found.Email)

	byEmail, err := st.GetUserByEmail(ctx, "rikka@test.example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, user.ID, byEmail.ID)

	missing, err := st.GetUser(ctx, models.NewUserID())
	require.NoError(t, err)
	assert.Nil(t, missing, "missing rows are nil, not errors")

	missing, err = st.GetUserByEmail(ctx, "nobody@test.example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)

	err = st.CreateUser(ctx, &models.User{Email: "rikka@test.example.com", Name: "Dup"})
	assert.Error(t, err, "emails are unique")
}

func TestDocumentLifecycle(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	doc := &models.Document{
		DisplayName:     "Week 1",
		CourseID:        models.NewCourseID(),
		AllowAnnotation: true,
		CreatedBy:       models.NewUserID(),
	}
	require.NoError(t, st.CreateDocument(ctx, doc))
	require.False(t, doc.ID.IsZero())

	found, err := st.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Week 1", found.DisplayName)

	found.DisplayName = "Renamed"
	require.NoError(t, st.UpdateDocument(ctx, found))

	found, err = st.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", found.DisplayName)

	assert.Error(t, st.UpdateDocument(ctx, &models.Document{ID: models.NewDocumentID()}))

	// Soft delete: invisible to reads, id still reserved.
	require.NoError(t, st.DeleteDocument(ctx, doc.ID))
	found, err = st.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Nil(t, found)
	assert.Error(t, st.CreateDocument(ctx, &models.Document{ID: doc.ID, DisplayName: "Zombie"}))

	// Deleting a missing document is a no-op.
	assert.NoError(t, st.DeleteDocument(ctx, models.NewDocumentID()))
}

func TestListDocuments(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	course := models.NewCourseID()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	older := &models.Document{CourseID: course, DisplayName: "Older", CreatedAt: base}
	newer := &models.Document{CourseID: course, DisplayName: "Newer", CreatedAt: base.Add(time.Hour)}
	elsewhere := &models.Document{CourseID: models.NewCourseID(), DisplayName: "Elsewhere", CreatedAt: base}
	for _, d := range []*models.Document{older, newer, elsewhere} {
		require.NoError(t, st.CreateDocument(ctx, d))
	}
	require.NoError(t, st.DeleteDocument(ctx, elsewhere.ID))

	docs, err := st.ListDocuments(ctx, course)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "Newer", docs[0].DisplayName, "newest first")
	assert.Equal(t, "Older", docs[1].DisplayName)

	docs, err = st.ListDocuments(ctx, models.NewCourseID())
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestAnnotationRecords(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	docID := models.NewDocumentID()
	scope := models.UserScope(models.NewUserID())

	missing, err := st.GetAnnotationRecord(ctx, docID, models.KindDrawing, scope)
	require.NoError(t, err)
	assert.Nil(t, missing)

	record := &models.AnnotationRecord{
		DocumentID: docID,
		Kind:       models.KindDrawing,
		Scope:      scope,
		Pages:      models.PageMap{"1": []models.Annotation{{ID: "a1"}}},
	}
	require.NoError(t, st.PutAnnotationRecord(ctx, record))
	require.False(t, record.ID.IsZero())
	firstID, firstCreated := record.ID, record.CreatedAt

	// Put replaces by (document, kind, scope); identity and creation time
	// survive the replacement.
	replacement := &models.AnnotationRecord{
		DocumentID: docID,
		Kind:       models.KindDrawing,
		Scope:      scope,
		Pages:      models.PageMap{"2": []models.Annotation{{ID: "b1"}}},
	}
	require.NoError(t, st.PutAnnotationRecord(ctx, replacement))
	assert.Equal(t, firstID, replacement.ID)
	assert.Equal(t, firstCreated, replacement.CreatedAt)

	stored, err := st.GetAnnotationRecord(ctx, docID, models.KindDrawing, scope)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotContains(t, stored.Pages, "1")
	assert.Contains(t, stored.Pages, "2")

	require.NoError(t, st.DeleteAnnotationRecord(ctx, docID, models.KindDrawing, scope))
	stored, err = st.GetAnnotationRecord(ctx, docID, models.KindDrawing, scope)
	require.NoError(t, err)
	assert.Nil(t, stored)

	assert.NoError(t, st.DeleteAnnotationRecord(ctx, docID, models.KindDrawing, scope), "repeat delete is a no-op")
}

func TestAnnotationRecordIsolation(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	docID := models.NewDocumentID()
	scope := models.UserScope(models.NewUserID())

	record := &models.AnnotationRecord{
		DocumentID: docID,
		Kind:       models.KindDrawing,
		Scope:      scope,
		Pages:      models.PageMap{"1": []models.Annotation{{ID: "a1", Data: models.JSONMap{"color": "black"}}}},
	}
	require.NoError(t, st.PutAnnotationRecord(ctx, record))

	// Mutating the record we passed in must not reach stored state.
	record.Pages["1"][0].Data["color"] = "red"

	stored, err := st.GetAnnotationRecord(ctx, docID, models.KindDrawing, scope)
	require.NoError(t, err)
	assert.Equal(t, "black", stored.Pages["1"][0].Data["color"])

	// Nor may mutating what Get returned.
	stored.Pages["1"][0].Data["color"] = "green"
	again, err := st.GetAnnotationRecord(ctx, docID, models.KindDrawing, scope)
	require.NoError(t, err)
	assert.Equal(t, "black", again.Pages["1"][0].Data["color"])
}

func TestListAnnotationRecords(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	docID := models.NewDocumentID()
	otherDoc := models.NewDocumentID()
	alice := models.UserScope(models.NewUserID())

	seed := []*models.AnnotationRecord{
		{DocumentID: docID, Kind: models.KindHighlight, Scope: alice, Pages: models.PageMap{"1": []models.Annotation{{ID: "h1"}}}},
		{DocumentID: docID, Kind: models.KindDrawing, Scope: alice, Pages: models.PageMap{"1": []models.Annotation{{ID: "d1"}}}},
		{DocumentID: docID, Kind: models.KindHighlight, Scope: models.ScopeStaffBroadcast, Pages: models.PageMap{"1": []models.Annotation{{ID: "s1"}}}},
		{DocumentID: otherDoc, Kind: models.KindDrawing, Scope: alice, Pages: models.PageMap{"1": []models.Annotation{{ID: "x1"}}}},
	}
	for _, r := range seed {
		require.NoError(t, st.PutAnnotationRecord(ctx, r))
	}

	all, err := st.ListAnnotationRecords(ctx, docID)
	require.NoError(t, err)
	assert.Len(t, all, 3, "other documents' records stay out")

	mine, err := st.ListAnnotationRecordsByScope(ctx, docID, alice)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	// Stable kind order within a scope.
	assert.Equal(t, models.KindDrawing, mine[0].Kind)
	assert.Equal(t, models.KindHighlight, mine[1].Kind)

	none, err := st.ListAnnotationRecordsByScope(ctx, docID, models.UserScope(models.NewUserID()))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestViewSettings(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	userID := models.NewUserID()
	docID := models.NewDocumentID()

	missing, err := st.GetViewSettings(ctx, userID, docID)
	require.NoError(t, err)
	assert.Nil(t, missing)

	settings := &models.ViewSettings{UserID: userID, DocumentID: docID, Page: 4, Brightness: 120}
	require.NoError(t, st.PutViewSettings(ctx, settings))
	require.False(t, settings.ID.IsZero())
	firstID := settings.ID

	update := &models.ViewSettings{UserID: userID, DocumentID: docID, Page: 9, Brightness: 120, Grayscale: true}
	require.NoError(t, st.PutViewSettings(ctx, update))
	assert.Equal(t, firstID, update.ID, "upsert keeps the row identity")

	stored, err := st.GetViewSettings(ctx, userID, docID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 9, stored.Page)
	assert.True(t, stored.Grayscale)
}

func TestThumbnails(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	docID := models.NewDocumentID()

	missing, err := st.GetThumbnail(ctx, docID)
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, st.PutThumbnail(ctx, &models.Thumbnail{DocumentID: docID, Data: "data:image/png;base64,AAAA"}))

	first, err := st.GetThumbnail(ctx, docID)
	require.NoError(t, err)
	require.NotNil(t, first)

	require.NoError(t, st.PutThumbnail(ctx, &models.Thumbnail{DocumentID: docID, Data: "data:image/png;base64,BBBB"}))

	stored, err := st.GetThumbnail(ctx, docID)
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,BBBB", stored.Data)
	assert.Equal(t, first.CreatedAt, stored.CreatedAt, "replacement keeps the original creation time")
}

func TestMigrateAndClose(t *testing.T) {
	st := NewMemoryStore()
	assert.NoError(t, st.Migrate(context.Background()))
	assert.NoError(t, st.Close())
}
