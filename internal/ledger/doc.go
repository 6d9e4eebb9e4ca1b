// Package ledger tracks the transient image handles produced during one
// workflow run.
//
// A Handle wraps encoded image bytes behind a revocable display URI. The
// Ledger is a weak registry keyed by that URI: it does not decide when a
// handle should die, it only guarantees that every handle it was told about
// is revoked exactly once, either when a same-tag successor replaces it or
// when the workflow resets. Ledger is not safe for concurrent use; the
// session host touches it from a single goroutine.
package ledger
