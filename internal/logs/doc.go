// Package logs tails the session host's log file for "heicrop session logs".
//
// A negative offset returns the last Limit lines; a non-negative offset
// resumes where the previous call stopped. Follow mode polls until new lines
// arrive, Wait elapses, or the context ends.
package logs
