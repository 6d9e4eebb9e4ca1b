package heif

import (
	"bytes"
	"context"
	"encoding/binary"
)

// Detector decides whether a file is HEIC/HEIF. Its answer gates transcoding.
type Detector interface {
	IsHEIC(ctx context.Context, file File) (bool, error)
}

// heifBrands are the ftyp brands registered for HEIF image content.
var heifBrands = map[string]struct{}{
	"heic": {}, "heix": {}, "hevc": {}, "hevx": {},
	"heim": {}, "heis": {}, "hevm": {}, "hevs": {},
	"mif1": {}, "msf1": {},
}

// genericBrands only declare the HEIF container; AVIF uses them too, so a
// file whose major brand is generic must not be AVIF to count.
var genericBrands = map[string]struct{}{
	"mif1": {}, "msf1": {},
}

// BrandDetector classifies files by the brands in their leading ftyp box.
type BrandDetector struct{}

// IsHEIC implements Detector.
func (BrandDetector) IsHEIC(ctx context.Context, file File) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	major, compatible, ok := parseFtyp(file.Data)
	if !ok {
		return false, nil
	}
	if _, ok := heifBrands[major]; !ok {
		return false, nil
	}
	if _, generic := genericBrands[major]; generic {
		for _, brand := range compatible {
			if brand == "avif" || brand == "avis" {
				return false, nil
			}
		}
	}
	return true, nil
}

// parseFtyp reads the first box and returns its major and compatible brands.
func parseFtyp(data []byte) (string, []string, bool) {
	if len(data) < 16 || !bytes.Equal(data[4:8], []byte("ftyp")) {
		return "", nil, false
	}
	size := int(binary.BigEndian.Uint32(data[0:4]))
	if size < 16 || size > len(data) {
		return "", nil, false
	}
	major := string(data[8:12])
	var compatible []string
	for off := 16; off+4 <= size; off += 4 {
		compatible = append(compatible, string(data[off:off+4]))
	}
	return major, compatible, true
}
