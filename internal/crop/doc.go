// Package crop binds a crop widget to a converted image handle for the
// duration of one cropping session and turns the final selection into a
// cropped JPEG handle.
package crop
