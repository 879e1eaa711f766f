// Package pdfxtesting provides testing utilities for the pdfx backend.
//
// This package contains tools for exercising the annotation protocol the way
// real course traffic does: many students annotating the same document at
// once, each from their own session, with their own private collections. It
// enables end-to-end tests to simulate realistic student behavior, validate
// per-user isolation under concurrency, and load-test the save/load/clear
// endpoints through the public API.
//
// # Virtual Student Simulation
//
// [VirtualStudent] is a stateful simulated user driving the typed
// [github.com/abconlinecourses/pdfx-xblock/pkg/client.Client]:
//   - Authentication: sign up, sign in, and sign out
//   - Annotation: save batches of drawings, highlights, text notes, shapes,
//     and marker strokes across pages
//   - Revision: re-submit existing annotations with new payloads (upsert)
//   - Deletion: remove tracked annotations and whole pages
//   - View state: page position and display settings through the save call
//
// Each virtual student tracks every annotation id it believes the server
// holds, so [VirtualStudent.VerifyOwnData] can load the document back and
// compare the server's view against local expectations, including the
// absence of anything deleted and the absence of anything another student
// wrote.
//
// # Deterministic Behavior
//
// Virtual students seed a random number generator with their index, so a
// given student always performs the same operation sequence. Failures
// reproduce exactly by re-running with the same index and document, while a
// group of students still exercises diverse payload shapes and page spreads.
//
// # Concurrent Groups
//
// [Group] launches students against one shared document with
// [golang.org/x/sync/errgroup], mirroring a class session where everyone
// annotates the same reading. Because private collections are per-user,
// every student must come back out of a group run with exactly its own data;
// any cross-user bleed is a correctness bug, not a tolerable race.
//
//	g := pdfxtesting.NewGroup(baseURL, docID, 25)
//	if err := g.Run(ctx); err != nil {
//		t.Fatal(err)
//	}
//	if err := g.Verify(ctx); err != nil {
//		t.Fatal(err)
//	}
package pdfxtesting

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/abconlinecourses/pdfx-xblock/pkg/annotations"
	"github.com/abconlinecourses/pdfx-xblock/pkg/client"
	"github.com/abconlinecourses/pdfx-xblock/pkg/models"
)

// annotationColors are the pen colors students cycle through. Values only
// matter for payload variety; the server stores them opaquely.
var annotationColors = []string{"#000000", "#e53935", "#1e88e5", "#43a047", "#fdd835"}

// VirtualStudent is a stateful simulated student driving the pdfx API.
//
// The student signs up through the public API, annotates with the same
// payload shapes the browser viewer submits, and remembers which annotation
// ids it placed on which pages of which kinds. Verification methods compare
// that memory against a fresh load.
//
// Methods are not safe for concurrent use on one instance; concurrency comes
// from running many students, which is also the realistic workload. The
// internal mutex only guards the tracking maps so a Group's verification
// goroutine can read them.
type VirtualStudent struct {
	Index  int // Virtual student index (0, 1, 2...) - NOT the account user ID
	Name   string
	Email  string
	Role   models.Role
	Client *client.Client
	RNG    *rand.Rand // Deterministic generator seeded with Index

	// Session state
	User      *models.User
	AuthToken string

	// expected tracks the annotation ids this student believes the server
	// holds: kind -> page key -> ids in list order.
	expected map[models.Kind]map[string][]string

	// seq numbers the annotations this student has created, so ids are
	// unique per student without coordination.
	seq int

	mu sync.RWMutex
}

// NewVirtualStudent creates a virtual student for the given index.
func NewVirtualStudent(index int, baseURL string) *VirtualStudent {
	return newVirtualActor(index, baseURL, models.RoleStudent)
}

// NewVirtualStaff creates a virtual staff member. Staff actors register
// documents, broadcast highlights, and read the aggregate view in tests.
func NewVirtualStaff(index int, baseURL string) *VirtualStudent {
	return newVirtualActor(index, baseURL, models.RoleStaff)
}

func newVirtualActor(index int, baseURL string, role models.Role) *VirtualStudent {
	// Timestamped emails keep repeated test runs from colliding on the
	// unique email index.
	timestamp := time.Now().UnixNano()

	return &VirtualStudent{
		Index:    index,
		Name:     fmt.Sprintf("Virtual %s %d", role, index),
		Email:    fmt.Sprintf("%s%d-%d@test.example.com", role, index, timestamp),
		Role:     role,
		Client:   client.NewClient(baseURL),
		RNG:      rand.New(rand.NewSource(int64(index))),
		expected: make(map[models.Kind]map[string][]string),
	}
}

// SignUp creates an account for this virtual student and stores the session.
func (vs *VirtualStudent) SignUp(ctx context.Context) error {
	authResp, err := vs.Client.SignUp(ctx, vs.Email, fmt.Sprintf("password%d", vs.Index), vs.Name, vs.Role)
	if err != nil {
		return fmt.Errorf("virtual student %d signup failed: %w", vs.Index, err)
	}

	vs.mu.Lock()
	vs.User = authResp.User
	vs.AuthToken = authResp.Token
	vs.mu.Unlock()

	return nil
}

// SignIn re-authenticates this virtual student.
func (vs *VirtualStudent) SignIn(ctx context.Context) error {
	authResp, err := vs.Client.SignIn(ctx, vs.Email, fmt.Sprintf("password%d", vs.Index))
	if err != nil {
		return fmt.Errorf("virtual student %d signin failed: %w", vs.Index, err)
	}

	vs.mu.Lock()
	vs.User = authResp.User
	vs.AuthToken = authResp.Token
	vs.mu.Unlock()

	return nil
}

// SignOut ends the current session.
func (vs *VirtualStudent) SignOut(ctx context.Context) error {
	if err := vs.Client.SignOut(ctx); err != nil {
		return fmt.Errorf("virtual student %d signout failed: %w", vs.Index, err)
	}

	vs.mu.Lock()
	vs.User = nil
	vs.AuthToken = ""
	vs.mu.Unlock()

	return nil
}

// RegisterDocument creates a document through the API. Requires a staff
// actor; student sessions get a 403 from the server.
func (vs *VirtualStudent) RegisterDocument(ctx context.Context, courseID models.CourseID, name, sourceURL string) (*models.Document, error) {
	doc, err := vs.Client.CreateDocument(ctx, &models.Document{
		CourseID:        courseID,
		DisplayName:     name,
		SourceURL:       sourceURL,
		AllowDownload:   true,
		AllowAnnotation: true,
	})
	if err != nil {
		return nil, fmt.Errorf("virtual staff %d failed to register document: %w", vs.Index, err)
	}
	return doc, nil
}

// nextID returns a fresh annotation id unique to this student.
func (vs *VirtualStudent) nextID(kind models.Kind) string {
	vs.seq++
	return fmt.Sprintf("vs%d-%s-%d", vs.Index, kind, vs.seq)
}

// makeAnnotation builds one annotation with kind-appropriate geometry, the
// same shapes the browser viewer submits.
func (vs *VirtualStudent) makeAnnotation(kind models.Kind, page int, id string) models.Annotation {
	color := annotationColors[vs.RNG.Intn(len(annotationColors))]
	x := float64(vs.RNG.Intn(500))
	y := float64(vs.RNG.Intn(700))

	var data models.JSONMap
	switch kind {
	case models.KindDrawing, models.KindNote:
		data = models.JSONMap{
			"paths": []any{[]any{x, y, x + 10, y + 4, x + 22, y + 9}},
			"color": color,
			"width": float64(1 + vs.RNG.Intn(4)),
		}
	case models.KindHighlight:
		data = models.JSONMap{
			"rects": []any{map[string]any{"x": x, "y": y, "width": 120.0, "height": 14.0}},
			"color": color,
		}
	case models.KindText:
		data = models.JSONMap{
			"text":     fmt.Sprintf("note %s from student %d", id, vs.Index),
			"position": map[string]any{"x": x, "y": y},
			"color":    color,
			"fontSize": float64(10 + vs.RNG.Intn(8)),
		}
	case models.KindShape:
		data = models.JSONMap{
			"shapeType": "rectangle",
			"points":    []any{x, y, x + 60, y + 40},
			"color":     color,
			"width":     2.0,
			"fill":      false,
		}
	}

	return models.Annotation{
		ID:         id,
		Kind:       kind,
		PageNumber: page,
		Data:       data,
	}
}

// track records that the server should now hold id on the given kind/page.
func (vs *VirtualStudent) track(kind models.Kind, page int, id string) {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	pages, ok := vs.expected[kind]
	if !ok {
		pages = make(map[string][]string)
		vs.expected[kind] = pages
	}
	key := models.PageKey(page)
	for _, existing := range pages[key] {
		if existing == id {
			return
		}
	}
	pages[key] = append(pages[key], id)
}

// untrack records a deletion from the local expectation.
func (vs *VirtualStudent) untrack(kind models.Kind, page int, id string) {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	key := models.PageKey(page)
	list := vs.expected[kind][key]
	for i, existing := range list {
		if existing != id {
			continue
		}
		list = append(list[:i], list[i+1:]...)
		break
	}
	if len(list) == 0 {
		delete(vs.expected[kind], key)
		return
	}
	vs.expected[kind][key] = list
}

// Annotate creates count annotations of one kind on one page and saves them
// in a single request.
func (vs *VirtualStudent) Annotate(ctx context.Context, doc models.DocumentID, kind models.Kind, page, count int) error {
	list := make([]models.Annotation, 0, count)
	for i := 0; i < count; i++ {
		id := vs.nextID(kind)
		list = append(list, vs.makeAnnotation(kind, page, id))
	}

	pages := models.PageMap{models.PageKey(page): list}
	req := &annotations.SaveRequest{}
	if err := setCollection(req, kind, pages); err != nil {
		return err
	}

	result, err := vs.Client.SaveAnnotations(ctx, doc, req)
	if err != nil {
		return fmt.Errorf("virtual student %d failed to save %s: %w", vs.Index, kind, err)
	}
	if len(result.SavedKinds) != 1 || result.SavedKinds[0] != kind.CollectionKey() {
		return fmt.Errorf("virtual student %d: save reported kinds %v, want [%s]", vs.Index, result.SavedKinds, kind.CollectionKey())
	}

	for _, ann := range list {
		vs.track(kind, page, ann.ID)
	}
	return nil
}

// Revise re-submits one tracked annotation with fresh geometry, exercising
// the in-place upsert path. Choosing which annotation is RNG-driven.
func (vs *VirtualStudent) Revise(ctx context.Context, doc models.DocumentID) error {
	kind, key, id, ok := vs.pickTracked()
	if !ok {
		return nil
	}
	page, err := models.ParsePageKey(key)
	if err != nil {
		return err
	}

	pages := models.PageMap{key: []models.Annotation{vs.makeAnnotation(kind, page, id)}}
	req := &annotations.SaveRequest{}
	if err := setCollection(req, kind, pages); err != nil {
		return err
	}

	if _, err := vs.Client.SaveAnnotations(ctx, doc, req); err != nil {
		return fmt.Errorf("virtual student %d failed to revise %s %s: %w", vs.Index, kind, id, err)
	}
	return nil
}

// DeleteOne removes one tracked annotation through a deletion-only save.
func (vs *VirtualStudent) DeleteOne(ctx context.Context, doc models.DocumentID) error {
	kind, key, id, ok := vs.pickTracked()
	if !ok {
		return nil
	}
	page, err := models.ParsePageKey(key)
	if err != nil {
		return err
	}

	result, err := vs.Client.SaveAnnotations(ctx, doc, &annotations.SaveRequest{
		DeletionOnly: true,
		Deletions: []annotations.DeletionEntry{
			{ID: id, Kind: kind, PageNumber: page},
		},
	})
	if err != nil {
		return fmt.Errorf("virtual student %d failed to delete %s %s: %w", vs.Index, kind, id, err)
	}
	if result.DeletionsProcessed != 1 {
		return fmt.Errorf("virtual student %d: deletion of %s processed %d entries, want 1", vs.Index, id, result.DeletionsProcessed)
	}

	vs.untrack(kind, page, id)
	return nil
}

// ClearPage removes this student's annotations from one page across all
// kinds and reconciles local expectations against the reported count.
func (vs *VirtualStudent) ClearPage(ctx context.Context, doc models.DocumentID, page int) error {
	removed, err := vs.Client.ClearPage(ctx, doc, page)
	if err != nil {
		return fmt.Errorf("virtual student %d failed to clear page %d: %w", vs.Index, page, err)
	}

	vs.mu.Lock()
	expected := 0
	key := models.PageKey(page)
	for kind := range vs.expected {
		expected += len(vs.expected[kind][key])
		delete(vs.expected[kind], key)
	}
	vs.mu.Unlock()

	if removed != expected {
		return fmt.Errorf("virtual student %d: clear page %d removed %d annotations, expected %d", vs.Index, page, removed, expected)
	}
	return nil
}

// SetViewSettings saves the student's viewer state.
func (vs *VirtualStudent) SetViewSettings(ctx context.Context, doc models.DocumentID, page, brightness int, grayscale bool) error {
	_, err := vs.Client.SaveAnnotations(ctx, doc, &annotations.SaveRequest{
		ViewSettings: &annotations.ViewSettingsPatch{
			Page:       &page,
			Brightness: &brightness,
			Grayscale:  &grayscale,
		},
	})
	if err != nil {
		return fmt.Errorf("virtual student %d failed to save view settings: %w", vs.Index, err)
	}
	return nil
}

// pickTracked selects one tracked annotation deterministically via the RNG.
func (vs *VirtualStudent) pickTracked() (models.Kind, string, string, bool) {
	vs.mu.RLock()
	defer vs.mu.RUnlock()

	// Flatten in fixed kind order so the RNG pick is reproducible.
	type entry struct {
		kind models.Kind
		key  string
		id   string
	}
	var all []entry
	for _, kind := range models.AllKinds {
		pages := vs.expected[kind]
		for _, key := range sortedKeys(pages) {
			for _, id := range pages[key] {
				all = append(all, entry{kind, key, id})
			}
		}
	}
	if len(all) == 0 {
		return "", "", "", false
	}
	picked := all[vs.RNG.Intn(len(all))]
	return picked.kind, picked.key, picked.id, true
}

func sortedKeys(pages map[string][]string) []string {
	keys := make([]string, 0, len(pages))
	for key := range pages {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// marshalPages encodes a page map for a save request collection field.
func marshalPages(pages models.PageMap) (json.RawMessage, error) {
	raw, err := json.Marshal(pages)
	if err != nil {
		return nil, fmt.Errorf("failed to encode page map: %w", err)
	}
	return raw, nil
}

// setCollection places a page map under the request field for its kind.
func setCollection(req *annotations.SaveRequest, kind models.Kind, pages models.PageMap) error {
	raw, err := marshalPages(pages)
	if err != nil {
		return err
	}
	switch kind {
	case models.KindDrawing:
		req.DrawingStrokes = raw
	case models.KindHighlight:
		req.Highlights = raw
	case models.KindText:
		req.TextAnnotations = raw
	case models.KindShape:
		req.ShapeAnnotations = raw
	case models.KindNote:
		req.MarkerStrokes = raw
	default:
		return fmt.Errorf("unknown annotation kind %q", kind)
	}
	return nil
}

// VerifyOwnData loads the document and checks the server's view against this
// student's tracked expectations: every tracked id present on its page in
// order, nothing extra in the private collections, and no annotation
// authored by anyone else outside the shared highlight tier.
func (vs *VirtualStudent) VerifyOwnData(ctx context.Context, doc models.DocumentID) error {
	bundle, err := vs.Client.LoadAnnotations(ctx, doc, false)
	if err != nil {
		return fmt.Errorf("virtual student %d failed to load annotations: %w", vs.Index, err)
	}

	vs.mu.RLock()
	defer vs.mu.RUnlock()

	collections := map[models.Kind]models.PageMap{
		models.KindDrawing:   bundle.DrawingStrokes,
		models.KindHighlight: bundle.Highlights,
		models.KindText:      bundle.TextAnnotations,
		models.KindShape:     bundle.ShapeAnnotations,
		models.KindNote:      bundle.MarkerStrokes,
	}

	for kind, got := range collections {
		want := vs.expected[kind]
		for key, ids := range want {
			gotIDs := ownIDs(got[key], vs.User.ID)
			if len(gotIDs) != len(ids) {
				return fmt.Errorf("virtual student %d: %s page %s has %d own annotations, want %d",
					vs.Index, kind, key, len(gotIDs), len(ids))
			}
			for i, id := range ids {
				if gotIDs[i] != id {
					return fmt.Errorf("virtual student %d: %s page %s position %d holds %s, want %s",
						vs.Index, kind, key, i, gotIDs[i], id)
				}
			}
		}
		// Anything the server returns beyond our expectations must be
		// someone else's broadcast highlight, never a private leak.
		for key, list := range got {
			extra := len(ownIDs(list, vs.User.ID)) - len(want[key])
			if extra > 0 {
				return fmt.Errorf("virtual student %d: %s page %s holds %d unexpected own annotations",
					vs.Index, kind, key, extra)
			}
			if kind != models.KindHighlight {
				for _, ann := range list {
					if ann.UserID != nil && *ann.UserID != vs.User.ID {
						return fmt.Errorf("virtual student %d: %s page %s leaked annotation %s owned by %s",
							vs.Index, kind, key, ann.ID, ann.UserID)
					}
				}
			}
		}
	}

	return nil
}

// ownIDs filters a page list down to the ids authored by the given user,
// preserving order. Broadcast highlights carry staff author ids and are
// excluded here.
func ownIDs(list []models.Annotation, owner models.UserID) []string {
	ids := []string{}
	for _, ann := range list {
		if ann.UserID != nil && *ann.UserID == owner {
			ids = append(ids, ann.ID)
		}
	}
	return ids
}

// RunScenario executes a complete student session: sign up, annotate several
// pages across kinds, revise a few annotations, delete a few, and save view
// settings. Operation counts are driven by the seeded RNG. The student is
// left signed in with tracked state for a later VerifyOwnData.
func (vs *VirtualStudent) RunScenario(ctx context.Context, doc models.DocumentID) error {
	if vs.User == nil {
		if err := vs.SignUp(ctx); err != nil {
			return err
		}
	}

	pageCount := 2 + vs.RNG.Intn(3)
	for p := 0; p < pageCount; p++ {
		page := 1 + vs.RNG.Intn(20)
		for _, kind := range models.AllKinds {
			if vs.RNG.Intn(2) == 0 {
				continue
			}
			if err := vs.Annotate(ctx, doc, kind, page, 1+vs.RNG.Intn(3)); err != nil {
				return err
			}
		}
	}
	// Ensure at least one annotation exists even if the RNG skipped
	// every kind above.
	if err := vs.Annotate(ctx, doc, models.KindDrawing, 1, 1); err != nil {
		return err
	}

	for i := 0; i < 2; i++ {
		if err := vs.Revise(ctx, doc); err != nil {
			return err
		}
	}
	if err := vs.DeleteOne(ctx, doc); err != nil {
		return err
	}

	brightness := models.MinBrightness + vs.RNG.Intn(models.MaxBrightness-models.MinBrightness+1)
	if err := vs.SetViewSettings(ctx, doc, 1+vs.RNG.Intn(20), brightness, vs.RNG.Intn(2) == 0); err != nil {
		return err
	}

	return nil
}

// Group runs a set of virtual students concurrently against one document.
type Group struct {
	BaseURL  string
	Document models.DocumentID
	Students []*VirtualStudent
}

// NewGroup creates size virtual students aimed at the given document.
func NewGroup(baseURL string, doc models.DocumentID, size int) *Group {
	students := make([]*VirtualStudent, size)
	for i := range students {
		students[i] = NewVirtualStudent(i, baseURL)
	}
	return &Group{BaseURL: baseURL, Document: doc, Students: students}
}

// Run executes every student's scenario concurrently and returns the first
// error. A failed student cancels the rest through the errgroup context.
func (g *Group) Run(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)
	for _, vs := range g.Students {
		eg.Go(func() error {
			return vs.RunScenario(ctx, g.Document)
		})
	}
	return eg.Wait()
}

// Verify checks every student's server-side data against its tracked
// expectations, concurrently.
func (g *Group) Verify(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)
	for _, vs := range g.Students {
		eg.Go(func() error {
			return vs.VerifyOwnData(ctx, g.Document)
		})
	}
	return eg.Wait()
}
