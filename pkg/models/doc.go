// Package models defines the domain entities for the PDF annotation backend.
//
// The model centers on per-document annotation state with three visibility
// tiers. Each entity serves a specific purpose:
//
//   - [Document]: one PDF resource with a display name and a resolvable
//     source (external URL, uploaded asset key, or inline data URI), plus the
//     per-document allow_download and allow_annotation flags. Authored by
//     staff, immutable to students.
//   - [AnnotationRecord]: the persisted unit of annotation state, one record
//     per (document, kind, scope) holding a full [PageMap]. Private
//     collections use the "user:<uuid>" scope; staff-broadcast highlights and
//     course-wide notes use the shared scopes.
//   - [Annotation]: a single client-authored mark with a client-generated id
//     that is unique within its page list, the author's user id, a millisecond
//     timestamp, and kind-specific geometry in a [JSONMap].
//   - [ViewSettings]: per-user, per-document viewer state (current page,
//     brightness, grayscale) with fixed defaults when absent.
//   - [User]: a platform account carrying the student or staff [Role];
//     [Identity] is the resolved per-request form handlers trust.
//   - [Thumbnail]: a per-document preview image stored as a data URI.
//
// # Typed IDs
//
// [UserID], [DocumentID], [CourseID], [AnnotationRecordID], and
// [ViewSettingsID] are strongly-typed UUID wrappers. Each knows its database
// table: in PostgreSQL they store standard UUIDs through the SQL driver
// interfaces, and in SurrealDB they marshal to RecordIDs through custom CBOR
// encoding (tag 8, [table, id]). The compiler prevents mixing a UserID with a
// DocumentID, and a single model definition serves both backends.
//
// Annotation ids are deliberately not typed IDs: they are opaque strings
// minted by the drawing client and only need uniqueness within one page list.
//
// # Page maps
//
// A [PageMap] keys ordered annotation lists by stringified 1-based page
// number. Two invariants hold everywhere: an id appears at most once per page
// list (re-submission replaces in place), and empty lists are pruned rather
// than stored. [ParsePageKey] is the single gatekeeper for page-key syntax.
package models
