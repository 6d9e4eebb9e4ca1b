package testsupport

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
)

// JPEG encodes a width x height gradient so tests can assert on geometry
// without shipping binary fixtures.
func JPEG(t testing.TB, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(x * 255 / max(width-1, 1)),
				G: uint8(y * 255 / max(height-1, 1)),
				B: 0x80,
				A: 0xff,
			})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

// OrientedJPEG is JPEG with an EXIF APP1 segment carrying the given
// Orientation tag. The stored pixels stay width x height.
func OrientedJPEG(t testing.TB, width, height int, orientation uint16) []byte {
	t.Helper()

	var tiff bytes.Buffer
	tiff.WriteString("Exif\x00\x00II")
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(42))
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(8))
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(1))
	_ = binary.Write(&tiff, binary.LittleEndian, []uint16{0x0112, 3})
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(1))
	_ = binary.Write(&tiff, binary.LittleEndian, []uint16{orientation, 0})
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(0))

	plain := JPEG(t, width, height)
	segLen := tiff.Len() + 2
	out := make([]byte, 0, len(plain)+segLen+2)
	out = append(out, plain[:2]...)
	out = append(out, 0xff, 0xe1, byte(segLen>>8), byte(segLen))
	out = append(out, tiff.Bytes()...)
	return append(out, plain[2:]...)
}

// HEICHeader returns the leading ftyp box of an ISO-BMFF file with the given
// major brand, followed by a few bytes of filler so it looks like a real file
// to format sniffers.
func HEICHeader(brand string) []byte {
	const boxSize = 24
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, uint32(boxSize))
	buf.WriteString("ftyp")
	buf.WriteString(fourCC(brand))
	_ = binary.Write(&buf, binary.BigEndian, uint32(0))
	buf.WriteString("mif1")
	buf.WriteString(fourCC(brand))
	buf.Write(bytes.Repeat([]byte{0}, 32))
	return buf.Bytes()
}

func fourCC(s string) string {
	for len(s) < 4 {
		s += " "
	}
	return s[:4]
}

// WriteBytes writes data to dir/name and returns the path.
func WriteBytes(t testing.TB, dir, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
