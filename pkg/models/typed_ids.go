package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	surrealdb_models "github.com/surrealdb/surrealdb.go/pkg/models"
)

// UserID is a typed ID for users
type UserID struct {
	uuid uuid.UUID
}

func NewUserID() UserID {
	return UserID{uuid: uuid.New()}
}

func NewUserIDFromUUID(id uuid.UUID) UserID {
	return UserID{uuid: id}
}

func ParseUserID(s string) (UserID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return UserID{}, fmt.Errorf("invalid user ID: %w", err)
	}
	return UserID{uuid: id}, nil
}

func (u UserID) UUID() uuid.UUID { return u.uuid }
func (u UserID) String() string  { return u.uuid.String() }
func (u UserID) IsZero() bool    { return u.uuid == uuid.Nil }

func (u UserID) RecordID() surrealdb_models.RecordID {
	return surrealdb_models.RecordID{
		Table: "users",
		ID:    u.uuid.String(),
	}
}

func (u UserID) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.uuid.String())
}

func (u *UserID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	u.uuid = id
	return nil
}

func (u UserID) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(cbor.Tag{
		Number:  8,
		Content: []any{"users", u.uuid.String()},
	})
}

func (u *UserID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, "users", &u.uuid)
}

func (u UserID) Value() (driver.Value, error) {
	if u.IsZero() {
		return nil, nil
	}
	return u.uuid.String(), nil
}

func (u *UserID) Scan(value any) error {
	return scanUUID(value, &u.uuid)
}

func (UserID) GormDataType() string { return "uuid" }

// DocumentID is a typed ID for documents
type DocumentID struct {
	uuid uuid.UUID
}

func NewDocumentID() DocumentID {
	return DocumentID{uuid: uuid.New()}
}

func NewDocumentIDFromUUID(id uuid.UUID) DocumentID {
	return DocumentID{uuid: id}
}

func ParseDocumentID(s string) (DocumentID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return DocumentID{}, fmt.Errorf("invalid document ID: %w", err)
	}
	return DocumentID{uuid: id}, nil
}

func (d DocumentID) UUID() uuid.UUID { return d.uuid }
func (d DocumentID) String() string  { return d.uuid.String() }
func (d DocumentID) IsZero() bool    { return d.uuid == uuid.Nil }

func (d DocumentID) RecordID() surrealdb_models.RecordID {
	return surrealdb_models.RecordID{
		Table: "documents",
		ID:    d.uuid.String(),
	}
}

func (d DocumentID) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.uuid.String())
}

func (d *DocumentID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	d.uuid = id
	return nil
}

func (d DocumentID) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(cbor.Tag{
		Number:  8,
		Content: []any{"documents", d.uuid.String()},
	})
}

func (d *DocumentID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, "documents", &d.uuid)
}

func (d DocumentID) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.uuid.String(), nil
}

func (d *DocumentID) Scan(value any) error {
	return scanUUID(value, &d.uuid)
}

func (DocumentID) GormDataType() string { return "uuid" }

// CourseID is a typed ID for courses. Courses live in the host platform;
// this service only stores the reference for grouping documents.
type CourseID struct {
	uuid uuid.UUID
}

func NewCourseID() CourseID {
	return CourseID{uuid: uuid.New()}
}

func NewCourseIDFromUUID(id uuid.UUID) CourseID {
	return CourseID{uuid: id}
}

func ParseCourseID(s string) (CourseID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return CourseID{}, fmt.Errorf("invalid course ID: %w", err)
	}
	return CourseID{uuid: id}, nil
}

func (c CourseID) UUID() uuid.UUID { return c.uuid }
func (c CourseID) String() string  { return c.uuid.String() }
func (c CourseID) IsZero() bool    { return c.uuid == uuid.Nil }

func (c CourseID) RecordID() surrealdb_models.RecordID {
	return surrealdb_models.RecordID{
		Table: "courses",
		ID:    c.uuid.String(),
	}
}

func (c CourseID) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.uuid.String())
}

func (c *CourseID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	c.uuid = id
	return nil
}

func (c CourseID) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(cbor.Tag{
		Number:  8,
		Content: []any{"courses", c.uuid.String()},
	})
}

func (c *CourseID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, "courses", &c.uuid)
}

func (c CourseID) Value() (driver.Value, error) {
	if c.IsZero() {
		return nil, nil
	}
	return c.uuid.String(), nil
}

func (c *CourseID) Scan(value any) error {
	return scanUUID(value, &c.uuid)
}

func (CourseID) GormDataType() string { return "uuid" }

// AnnotationRecordID is a typed ID for annotation records
type AnnotationRecordID struct {
	uuid uuid.UUID
}

func NewAnnotationRecordID() AnnotationRecordID {
	return AnnotationRecordID{uuid: uuid.New()}
}

func NewAnnotationRecordIDFromUUID(id uuid.UUID) AnnotationRecordID {
	return AnnotationRecordID{uuid: id}
}

func ParseAnnotationRecordID(s string) (AnnotationRecordID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return AnnotationRecordID{}, fmt.Errorf("invalid annotation record ID: %w", err)
	}
	return AnnotationRecordID{uuid: id}, nil
}

func (a AnnotationRecordID) UUID() uuid.UUID { return a.uuid }
func (a AnnotationRecordID) String() string  { return a.uuid.String() }
func (a AnnotationRecordID) IsZero() bool    { return a.uuid == uuid.Nil }

func (a AnnotationRecordID) RecordID() surrealdb_models.RecordID {
	return surrealdb_models.RecordID{
		Table: "annotation_records",
		ID:    a.uuid.String(),
	}
}

func (a AnnotationRecordID) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.uuid.String())
}

func (a *AnnotationRecordID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	a.uuid = id
	return nil
}

func (a AnnotationRecordID) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(cbor.Tag{
		Number:  8,
		Content: []any{"annotation_records", a.uuid.String()},
	})
}

func (a *AnnotationRecordID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, "annotation_records", &a.uuid)
}

func (a AnnotationRecordID) Value() (driver.Value, error) {
	if a.IsZero() {
		return nil, nil
	}
	return a.uuid.String(), nil
}

func (a *AnnotationRecordID) Scan(value any) error {
	return scanUUID(value, &a.uuid)
}

func (AnnotationRecordID) GormDataType() string { return "uuid" }

// ViewSettingsID is a typed ID for per-user view settings rows
type ViewSettingsID struct {
	uuid uuid.UUID
}

func NewViewSettingsID() ViewSettingsID {
	return ViewSettingsID{uuid: uuid.New()}
}

func NewViewSettingsIDFromUUID(id uuid.UUID) ViewSettingsID {
	return ViewSettingsID{uuid: id}
}

func ParseViewSettingsID(s string) (ViewSettingsID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return ViewSettingsID{}, fmt.Errorf("invalid view settings ID: %w", err)
	}
	return ViewSettingsID{uuid: id}, nil
}

func (v ViewSettingsID) UUID() uuid.UUID { return v.uuid }
func (v ViewSettingsID) String() string  { return v.uuid.String() }
func (v ViewSettingsID) IsZero() bool    { return v.uuid == uuid.Nil }

func (v ViewSettingsID) RecordID() surrealdb_models.RecordID {
	return surrealdb_models.RecordID{
		Table: "view_settings",
		ID:    v.uuid.String(),
	}
}

func (v ViewSettingsID) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.uuid.String())
}

func (v *ViewSettingsID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	v.uuid = id
	return nil
}

func (v ViewSettingsID) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(cbor.Tag{
		Number:  8,
		Content: []any{"view_settings", v.uuid.String()},
	})
}

func (v *ViewSettingsID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, "view_settings", &v.uuid)
}

func (v ViewSettingsID) Value() (driver.Value, error) {
	if v.IsZero() {
		return nil, nil
	}
	return v.uuid.String(), nil
}

func (v *ViewSettingsID) Scan(value any) error {
	return scanUUID(value, &v.uuid)
}

func (ViewSettingsID) GormDataType() string { return "uuid" }

// Helper functions

// scanUUID is a helper for implementing sql.Scanner interface for PostgreSQL/GORM
func scanUUID(value any, target *uuid.UUID) error {
	if value == nil {
		*target = uuid.Nil
		return nil
	}

	switch v := value.(type) {
	case string:
		id, err := uuid.Parse(v)
		if err != nil {
			return err
		}
		*target = id
	case []byte:
		id, err := uuid.ParseBytes(v)
		if err != nil {
			return err
		}
		*target = id
	default:
		return fmt.Errorf("cannot scan type %T into UUID", value)
	}
	return nil
}

// unmarshalCBORID is a helper for unmarshaling SurrealDB RecordID from CBOR.
// SurrealDB uses CBOR tag 8 to identify RecordID types in its binary protocol.
// The RecordID is encoded as [table_name, id_string] within the tag.
func unmarshalCBORID(data []byte, expectedTable string, target *uuid.UUID) error {
	if len(data) == 0 {
		return fmt.Errorf("empty CBOR data")
	}

	// Check if this is a CBOR tag (major type 6)
	majorType := data[0] >> 5
	if majorType != 6 {
		return fmt.Errorf("expected CBOR tag for RecordID, got major type %d", majorType)
	}

	var tag cbor.Tag
	if err := cbor.Unmarshal(data, &tag); err != nil {
		return fmt.Errorf("failed to unmarshal CBOR tag: %w", err)
	}

	// SurrealDB uses tag 8 for RecordID
	if tag.Number != 8 {
		return fmt.Errorf("expected RecordID tag (8), got %d", tag.Number)
	}

	arr, ok := tag.Content.([]any)
	if !ok || len(arr) != 2 {
		return fmt.Errorf("invalid RecordID format: expected [table, id] array")
	}

	table, ok := arr[0].(string)
	if !ok {
		return fmt.Errorf("invalid RecordID format: table name must be string")
	}

	if table != expectedTable {
		return fmt.Errorf("expected table %s, got %s", expectedTable, table)
	}

	idStr, ok := arr[1].(string)
	if !ok {
		return fmt.Errorf("invalid RecordID format: ID must be string")
	}

	parsedUUID, err := uuid.Parse(idStr)
	if err != nil {
		return fmt.Errorf("invalid UUID in RecordID: %w", err)
	}

	*target = parsedUUID
	return nil
}
