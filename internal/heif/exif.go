package heif

import "bytes"

var exifHeader = []byte("Exif\x00\x00")

// maxSegmentPayload is the largest APP1 body a JPEG marker length can describe.
const maxSegmentPayload = 0xffff - 2

// spliceExif inserts exif as an APP1 segment right after the SOI marker.
// Oversized or absent EXIF leaves the JPEG untouched.
func spliceExif(jpegData, exif []byte) []byte {
	if len(exif) == 0 || len(jpegData) < 2 || jpegData[0] != 0xff || jpegData[1] != 0xd8 {
		return jpegData
	}
	if !bytes.HasPrefix(exif, exifHeader) {
		exif = append(append([]byte(nil), exifHeader...), exif...)
	}
	if len(exif) > maxSegmentPayload {
		return jpegData
	}

	segLen := len(exif) + 2
	out := make([]byte, 0, len(jpegData)+len(exif)+4)
	out = append(out, 0xff, 0xd8)
	out = append(out, 0xff, 0xe1, byte(segLen>>8), byte(segLen&0xff))
	out = append(out, exif...)
	out = append(out, jpegData[2:]...)
	return out
}
