package annotations

import "fmt"

// The error taxonomy mirrors how failures are reported to clients:
// validation failures skip the offending collection, permission and
// ownership failures abort the whole call before any state changes, and
// not-found surfaces as a 404 at the transport layer. Handlers match these
// with errors.As, so each type implements Is for type-level matching.

// ValidationError reports a payload shape that failed strict parsing, such
// as a non-integer page key or an annotation without an id. When raised for
// one collection of a save it skips that collection; other collections in
// the same call still save.
type ValidationError struct {
	Collection string // collection key, empty when the error is not tied to one
	Reason     string
}

func (e *ValidationError) Error() string {
	if e.Collection == "" {
		return fmt.Sprintf("invalid payload: %s", e.Reason)
	}
	return fmt.Sprintf("invalid %s payload: %s", e.Collection, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)
	return ok
}

// PermissionError reports an operation the caller's role does not allow:
// annotating a document with annotation disabled, a student writing to a
// shared tier, or a student requesting the aggregate view. No state is
// mutated.
type PermissionError struct {
	Action string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: %s", e.Action)
}

func (e *PermissionError) Is(target error) bool {
	_, ok := target.(*PermissionError)
	return ok
}

// OwnershipError reports a save whose payload embeds a user identity other
// than the caller's. It aborts the call before any writes and is logged as
// a tamper signal.
type OwnershipError struct {
	Claimed string
	Actual  string
}

func (e *OwnershipError) Error() string {
	return fmt.Sprintf("payload identity %q does not match caller %q", e.Claimed, e.Actual)
}

func (e *OwnershipError) Is(target error) bool {
	_, ok := target.(*OwnershipError)
	return ok
}

// NotFoundError reports a missing entity, usually the document a call is
// addressed to.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}
