// Package form implements the form state engine shared by every form shape:
// a Controller tracks which fields are mounted, mediates cached (uncommitted)
// edits and their commit into a host-owned Source, propagates single-level
// effects between fields, recomputes calculated values, and keeps an error
// map that always covers exactly the visible fields.
//
// Committed values never live inside the controller. The host owns them
// behind the Source interface and the controller only asks for writes. Field
// edits can be staged with SetCachedFieldValue, which feeds validation
// immediately without touching committed values, and promoted later with
// CommitFieldValue or ProcessSubmit.
//
// Validation runs on two triggers that share one routine: right after any
// operation that changes committed, cached or extra values, and after a
// quiet period (100ms by default) following visibility changes, so a form
// that mounts many fields at once is validated a single time.
//
// Calling into a nil or closed controller, or resolving one from a context
// that carries none, is a wiring mistake and panics with ErrNoController or
// ErrClosed.
package form
