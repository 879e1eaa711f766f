package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Kind represents the type of an annotation
type Kind string

const (
	KindDrawing   Kind = "drawing"
	KindHighlight Kind = "highlight"
	KindText      Kind = "text"
	KindShape     Kind = "shape"
	KindNote      Kind = "note"
)

// AllKinds lists every annotation kind in the order collections are
// assembled and cleared.
var AllKinds = []Kind{KindDrawing, KindHighlight, KindText, KindShape, KindNote}

// Valid reports whether k is a known annotation kind.
func (k Kind) Valid() bool {
	switch k {
	case KindDrawing, KindHighlight, KindText, KindShape, KindNote:
		return true
	}
	return false
}

// CollectionKey returns the wire key under which this kind's page map is
// submitted and served. The note kind holds the freehand marker layer, hence
// the historical "marker_strokes" name.
func (k Kind) CollectionKey() string {
	switch k {
	case KindDrawing:
		return "drawing_strokes"
	case KindHighlight:
		return "highlights"
	case KindText:
		return "text_annotations"
	case KindShape:
		return "shape_annotations"
	case KindNote:
		return "marker_strokes"
	}
	return string(k)
}

// Role represents the access level of a platform user
type Role string

const (
	RoleStudent Role = "student"
	RoleStaff   Role = "staff"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleStaff
}

// Identity is the resolved identity of the requesting user. Handlers trust
// it fully and never re-derive identity from payload content.
type Identity struct {
	UserID  UserID `json:"user_id"`
	Role    Role   `json:"role"`
	IsStaff bool   `json:"is_staff"`
}

// Scope identifies which visibility tier an annotation record belongs to.
// Private collections use "user:<uuid>"; the shared tiers are fixed strings.
type Scope string

const (
	ScopeStaffBroadcast Scope = "staff-broadcast"
	ScopeCourseWide     Scope = "course-wide"
)

// UserScope returns the private scope for a user's own collections.
func UserScope(id UserID) Scope {
	return Scope("user:" + id.String())
}

// IsUser reports whether s is a private per-user scope.
func (s Scope) IsUser() bool {
	return strings.HasPrefix(string(s), "user:")
}

// Owner returns the user a private scope belongs to.
func (s Scope) Owner() (UserID, bool) {
	if !s.IsUser() {
		return UserID{}, false
	}
	id, err := ParseUserID(strings.TrimPrefix(string(s), "user:"))
	if err != nil {
		return UserID{}, false
	}
	return id, true
}

// Shared reports whether s is one of the document-wide tiers.
func (s Scope) Shared() bool {
	return s == ScopeStaffBroadcast || s == ScopeCourseWide
}

// View settings bounds. Brightness is a percentage applied by the viewer.
const (
	DefaultPage       = 1
	DefaultBrightness = 100
	MinBrightness     = 50
	MaxBrightness     = 150
)

// PageKey formats a 1-based page number as a page-map key.
func PageKey(n int) string {
	return strconv.Itoa(n)
}

// ParsePageKey parses a page-map key. Keys are stringified 1-based integers;
// anything else is rejected.
func ParsePageKey(key string) (int, error) {
	n, err := strconv.Atoi(key)
	if err != nil {
		return 0, fmt.Errorf("page key %q is not an integer", key)
	}
	if n < 1 {
		return 0, fmt.Errorf("page key %q is not a positive page number", key)
	}
	return n, nil
}

// JSONMap is a flexible key-value map for kind-specific annotation geometry
// and style data. The shape varies by kind (drawings carry paths and stroke
// width, highlights carry rect lists, text notes carry position and font
// size), so it is stored as a schemaless object: PostgreSQL JSONB on one
// backend, a native SurrealDB object on the other.
type JSONMap map[string]any

// Value implements the driver.Valuer interface for database storage
func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements the sql.Scanner interface for database retrieval
func (j *JSONMap) Scan(value any) error {
	if value == nil {
		*j = make(map[string]any)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		bytes = []byte(value.(string))
	}
	return json.Unmarshal(bytes, j)
}

// Clone returns a deep copy of the map.
func (j JSONMap) Clone() JSONMap {
	if j == nil {
		return nil
	}
	out := make(JSONMap, len(j))
	for k, v := range j {
		out[k] = copyJSONValue(v)
	}
	return out
}

func copyJSONValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = copyJSONValue(e)
		}
		return out
	case JSONMap:
		return map[string]any(t.Clone())
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyJSONValue(e)
		}
		return out
	default:
		return t
	}
}

// Annotation is a single client-authored mark on a document page. The id is
// generated by the client and is unique within its page list; re-submission
// with an existing id replaces the stored entry in place.
type Annotation struct {
	ID         string  `json:"id"`
	Kind       Kind    `json:"type,omitempty"`
	PageNumber int     `json:"pageNumber"`
	UserID     *UserID `json:"userId,omitempty"`
	Timestamp  int64   `json:"timestamp,omitempty"`
	Data       JSONMap `json:"data,omitempty"`
}

// Clone returns a deep copy of the annotation.
func (a Annotation) Clone() Annotation {
	if a.UserID != nil {
		id := *a.UserID
		a.UserID = &id
	}
	a.Data = a.Data.Clone()
	return a
}

// PageMap maps stringified 1-based page numbers to ordered annotation lists.
// Empty lists are never stored; a page with no annotations has no key.
type PageMap map[string][]Annotation

// Value implements the driver.Valuer interface for database storage
func (p PageMap) Value() (driver.Value, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}

// Scan implements the sql.Scanner interface for database retrieval
func (p *PageMap) Scan(value any) error {
	if value == nil {
		*p = make(PageMap)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		bytes = []byte(value.(string))
	}
	return json.Unmarshal(bytes, p)
}

// Clone returns a deep copy of the page map.
func (p PageMap) Clone() PageMap {
	if p == nil {
		return nil
	}
	out := make(PageMap, len(p))
	for key, list := range p {
		copied := make([]Annotation, len(list))
		for i, a := range list {
			copied[i] = a.Clone()
		}
		out[key] = copied
	}
	return out
}

// Count returns the total number of annotations across all pages.
func (p PageMap) Count() int {
	n := 0
	for _, list := range p {
		n += len(list)
	}
	return n
}

// User represents a platform user account using typed IDs
type User struct {
	ID        UserID         `gorm:"type:uuid;primary_key" json:"id"`
	Email     string         `gorm:"unique;not null" json:"email"`
	Name      string         `gorm:"not null" json:"name"`
	Role      Role           `gorm:"not null;default:'student'" json:"role"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// BeforeCreate hook to generate ID if not set
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID.IsZero() {
		u.ID = NewUserID()
	}
	return nil
}

// IsStaff reports whether the user holds the staff role.
func (u *User) IsStaff() bool {
	return u.Role == RoleStaff
}

// DefaultDisplayName names a document registered without a title.
const DefaultDisplayName = "PDF Document"

// Document represents one PDF resource. The source is either an external URL
// (http(s), file, or an inline data URI) or an uploaded asset referenced by
// key; an uploaded asset takes precedence when both are set. Documents are
// authored by staff and immutable to students.
//
// The permission flags must not carry gorm default tags: GORM omits
// zero-valued fields that have one, turning an explicit false back into true
// on insert. Absent-means-true is applied at the API boundary instead.
type Document struct {
	ID              DocumentID     `gorm:"type:uuid;primary_key" json:"id"`
	CourseID        CourseID       `gorm:"type:uuid;index" json:"course_id,omitempty"`
	DisplayName     string         `gorm:"not null" json:"display_name"`
	SourceURL       string         `gorm:"type:text" json:"source_url,omitempty"`
	AssetKey        string         `json:"asset_key,omitempty"`
	AssetName       string         `json:"asset_name,omitempty"`
	PageCount       int            `json:"page_count,omitempty"`
	AllowDownload   bool           `gorm:"not null" json:"allow_download"`
	AllowAnnotation bool           `gorm:"not null" json:"allow_annotation"`
	CreatedBy       UserID         `gorm:"type:uuid;not null" json:"created_by"`
	Creator         *User          `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// BeforeCreate hook to generate ID if not set
func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.ID.IsZero() {
		d.ID = NewDocumentID()
	}
	return nil
}

// AnnotationRecord is the persisted unit of annotation state: one record per
// (document, kind, scope) holding that tier's full page map. Records are
// replaced whole on save (last write wins) and deleted when their page map
// becomes empty.
type AnnotationRecord struct {
	ID         AnnotationRecordID `gorm:"type:uuid;primary_key" json:"id"`
	DocumentID DocumentID         `gorm:"type:uuid;not null;uniqueIndex:idx_record_document_kind_scope" json:"document_id"`
	Kind       Kind               `gorm:"not null;uniqueIndex:idx_record_document_kind_scope" json:"kind"`
	Scope      Scope              `gorm:"not null;uniqueIndex:idx_record_document_kind_scope" json:"scope"`
	Pages      PageMap            `gorm:"type:jsonb" json:"pages"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// BeforeCreate hook to generate ID if not set
func (r *AnnotationRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID.IsZero() {
		r.ID = NewAnnotationRecordID()
	}
	return nil
}

// ViewSettings is per-user, per-document display state. Only the three
// viewer fields go over the wire; defaults apply when no row exists.
type ViewSettings struct {
	ID         ViewSettingsID `gorm:"type:uuid;primary_key" json:"-"`
	UserID     UserID         `gorm:"type:uuid;not null;uniqueIndex:idx_view_settings_user_document" json:"-"`
	DocumentID DocumentID     `gorm:"type:uuid;not null;uniqueIndex:idx_view_settings_user_document" json:"-"`
	Page       int            `gorm:"not null;default:1" json:"page"`
	Brightness int            `gorm:"not null;default:100" json:"brightness"`
	Grayscale  bool           `gorm:"not null" json:"grayscale"`
	CreatedAt  time.Time      `json:"-"`
	UpdatedAt  time.Time      `json:"-"`
}

// BeforeCreate hook to generate ID if not set
func (v *ViewSettings) BeforeCreate(tx *gorm.DB) error {
	if v.ID.IsZero() {
		v.ID = NewViewSettingsID()
	}
	return nil
}

// DefaultViewSettings returns the settings served when a user has never
// saved any: first page, neutral brightness, color rendering.
func DefaultViewSettings() ViewSettings {
	return ViewSettings{
		Page:       DefaultPage,
		Brightness: DefaultBrightness,
		Grayscale:  false,
	}
}

// Thumbnail is a per-document preview image submitted by the authoring
// client as a base64 data URI and stored whole.
type Thumbnail struct {
	DocumentID DocumentID `gorm:"type:uuid;primary_key" json:"document_id"`
	Data       string     `gorm:"type:text;not null" json:"data"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
