//go:build !cgo

package heif

import (
	"errors"
	"image"
)

var errNativeUnavailable = errors.New("native HEIF decoder requires a cgo build; set conversion.backend = \"command\"")

func nativeReady() error { return errNativeUnavailable }

func decodeHEIF([]byte) (image.Image, []byte, error) {
	return nil, nil, errNativeUnavailable
}
