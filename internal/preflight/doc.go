// Package preflight provides readiness checks for the filesystem paths and
// converters heicrop depends on.
//
// The session host runs RunAll before it starts accepting requests and
// refuses to start when a check fails; "heicrop deps" prints the same checks
// alongside CheckSystemDeps.
package preflight
