//go:build cgo

package heif

import (
	"bytes"
	"image"

	"github.com/jdeng/goheif"
)

func nativeReady() error { return nil }

// decodeHEIF decodes the primary image. Missing EXIF is not an error.
func decodeHEIF(data []byte) (image.Image, []byte, error) {
	exif, err := goheif.ExtractExif(bytes.NewReader(data))
	if err != nil {
		exif = nil
	}
	img, err := goheif.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, err
	}
	return img, exif, nil
}
