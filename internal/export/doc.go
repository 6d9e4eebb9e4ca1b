// Package export writes finished crops to disk.
//
// Every export decodes the handle's JPEG and re-encodes it at the configured
// export quality, so a download never shares bytes with the in-memory crop.
package export
