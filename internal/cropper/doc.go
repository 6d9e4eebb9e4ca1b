// Package cropper is an interactive crop surface over a decoded JPEG.
//
// A Widget decodes its source asynchronously; Wait is the completion signal.
// Once ready, the caller manipulates a selection rectangle and an image
// transform (rotation, per-axis scale and flips, zoom) and finally asks for
// the cropped raster. Selection coordinates are always expressed in pixels of
// the transformed image, the way a crop box laid over the displayed canvas
// would measure them, and the selection never leaves that image.
//
// Widget is not safe for concurrent use.
package cropper
