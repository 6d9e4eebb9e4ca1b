// Package ipc exposes a running heicrop session over JSON-RPC on a Unix
// socket and ships the matching client used by the CLI.
//
// Every workflow call goes through the session host's event loop, so RPC
// clients never touch the controller concurrently. Stage failures travel back
// inside ActionResponse; only transport and host failures surface as RPC
// errors, encoded as RemoteError so callers can branch on the failure kind.
package ipc
