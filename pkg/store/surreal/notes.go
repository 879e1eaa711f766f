package surreal

// One Model Set, Two Backends
// ===========================
//
// An earlier draft of this store used separate SDB types (DocumentSDB,
// AnnotationRecordSDB, etc.) as a translation layer between the application
// models and SurrealDB. That layer turned out to be unnecessary once the
// typed IDs gained proper CBOR marshaling:
//
// 1. Typed IDs handle RecordID conversion automatically via MarshalCBOR/UnmarshalCBOR
// 2. Foreign keys stored as RecordIDs still work as WHERE parameters
// 3. IDs are never nil (always generated if zero)
// 4. Extra GORM fields don't hurt SurrealDB
//
// So the [github.com/abconlinecourses/pdfx-xblock/pkg/models] structs are
// stored directly:
//
//   record.DocumentID        -> marshals to a documents RecordID
//   record.Pages (PageMap)   -> nests as a document, queryable per page key
//   Query: SELECT * FROM annotation_records WHERE document_id = $document
//
// COMMON MISTAKES TO AVOID:
// -------------------------
// 1. DON'T create wrapper types just for RecordID - typed IDs handle this
// 2. DON'T store foreign keys as strings - use typed IDs that marshal to RecordID
// 3. DON'T use string interpolation in queries - use parameterized queries
// 4. DON'T filter on gorm.DeletedAt in SurrealQL - the field CBOR-marshals as
//    a struct, not NONE, so `deleted_at IS NONE` silently matches nothing.
//    This backend hard-deletes documents instead; PostgreSQL keeps the soft
//    delete. Annotation records are separate rows in both, so a document
//    delete never destroys student work.
//
// KEY INSIGHT:
// ------------
// The same models work for both PostgreSQL and SurrealDB when typed IDs
// implement CBOR marshaling for the RecordID format and queries pass them as
// parameters instead of interpolating strings. The page map is the one place
// the backends genuinely differ in representation: JSONB text in PostgreSQL,
// a native nested document here.
