// Package session hosts one interactive workflow controller.
//
// A Host holds a file lock next to its socket so only one interactive session
// exists per socket, and runs a single event loop that executes every request
// in arrival order. The controller is only ever touched from that loop, so a
// conversion or crop-surface decode finishes before the next request is seen.
package session
