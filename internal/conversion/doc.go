// Package conversion turns an uploaded HEIC/HEIF file into a pair of image
// handles: the untouched original and a JPEG rendition suitable for display
// and cropping.
//
// The stage validates size limits, gates on the format detector, and runs the
// configured transcoder under a deadline. Every failure is classified through
// the services markers so the workflow controller can decide where to go next.
package conversion
