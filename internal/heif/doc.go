// Package heif classifies and transcodes HEIC/HEIF images.
//
// Detector sniffs the ISO-BMFF ftyp box to decide whether an upload is HEIF
// at all. Transcoder turns a HEIF file into JPEG bytes through one of two
// backends: the native decoder (goheif, cgo builds only) which preserves
// EXIF, or the external heif-convert tool from libheif.
package heif
