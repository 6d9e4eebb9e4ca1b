// Package workflow drives one image from upload to export.
//
// The Controller is a small state machine (idle, loading, converted,
// cropping, result) that owns the conversion and crop stages, the active
// crop session, and the ledger of live image handles. Handles are only
// registered or retired inside the controller's transition path, so a
// handle is never both retired and reachable through Preview or Status.
//
// Operations invoked in a state that does not accept them do nothing and
// return nil. The controller is not safe for concurrent use; the session
// host serializes calls onto a single goroutine.
package workflow
