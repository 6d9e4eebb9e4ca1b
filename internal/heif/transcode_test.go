package heif

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
	"time"

	"heicrop/internal/config"
)

func solid(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	return img
}

func TestNativeTranscodeSplicesExif(t *testing.T) {
	exif := append([]byte("Exif\x00\x00"), []byte("MM\x00\x2a")...)
	n := &Native{decode: func([]byte) (image.Image, []byte, error) {
		return solid(8, 6), exif, nil
	}}

	out, err := n.Transcode(context.Background(), File{Name: "a.heic"}, Options{Format: FormatJPEG, Quality: 0.8})
	if err != nil {
		t.Fatalf("Transcode: %v", err)
	}
	if !bytes.Equal(out[:4], []byte{0xff, 0xd8, 0xff, 0xe1}) {
		t.Fatalf("expected APP1 right after SOI, got % x", out[:4])
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not a JPEG: %v", err)
	}
	if cfg.Width != 8 || cfg.Height != 6 {
		t.Fatalf("unexpected dimensions %dx%d", cfg.Width, cfg.Height)
	}
}

func TestNativeTranscodeDecodeFailure(t *testing.T) {
	boom := errors.New("bad hvcC")
	n := &Native{decode: func([]byte) (image.Image, []byte, error) { return nil, nil, boom }}
	_, err := n.Transcode(context.Background(), File{}, Options{Format: FormatJPEG, Quality: 0.8})
	if !errors.Is(err, boom) {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestNativeTranscodeRespectsDeadline(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	n := &Native{decode: func([]byte) (image.Image, []byte, error) {
		<-release
		return solid(1, 1), nil, nil
	}}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := n.Transcode(ctx, File{}, Options{Format: FormatJPEG, Quality: 0.8})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestOptionsValidate(t *testing.T) {
	cases := []struct {
		opts Options
		ok   bool
	}{
		{Options{Format: "jpeg", Quality: 0.8}, true},
		{Options{Format: "JPG", Quality: 1}, true},
		{Options{Format: "png", Quality: 0.8}, false},
		{Options{Format: "jpeg", Quality: 0}, false},
		{Options{Format: "jpeg", Quality: 1.1}, false},
	}
	for _, tc := range cases {
		if err := tc.opts.validate(); (err == nil) != tc.ok {
			t.Errorf("validate(%+v) = %v, want ok=%v", tc.opts, err, tc.ok)
		}
	}
}

func TestJPEGQuality(t *testing.T) {
	for q, want := range map[float64]int{0.8: 80, 0.9: 90, 1: 100, 0.001: 1} {
		if got := JPEGQuality(q); got != want {
			t.Errorf("JPEGQuality(%v) = %d, want %d", q, got, want)
		}
	}
}

func TestSpliceExif(t *testing.T) {
	jpegData := []byte{0xff, 0xd8, 0xff, 0xdb, 0x00}

	if got := spliceExif(jpegData, nil); !bytes.Equal(got, jpegData) {
		t.Fatal("absent exif should leave jpeg untouched")
	}
	if got := spliceExif([]byte("nope"), []byte("x")); string(got) != "nope" {
		t.Fatal("non-jpeg input should be returned unchanged")
	}

	got := spliceExif(jpegData, []byte("II*\x00"))
	want := append([]byte{0xff, 0xd8, 0xff, 0xe1, 0x00, 0x0c}, []byte("Exif\x00\x00II*\x00")...)
	want = append(want, 0xff, 0xdb, 0x00)
	if !bytes.Equal(got, want) {
		t.Fatalf("spliceExif = % x, want % x", got, want)
	}

	huge := make([]byte, maxSegmentPayload+1)
	if got := spliceExif(jpegData, huge); !bytes.Equal(got, jpegData) {
		t.Fatal("oversized exif should be dropped")
	}
}

func TestNewTranscoderSelectsBackend(t *testing.T) {
	cfg := config.Default()
	tr, err := NewTranscoder(&cfg, nil)
	if err != nil || tr.Name() != "native" {
		t.Fatalf("expected native backend, got %v, %v", tr, err)
	}
	cfg.Conversion.Backend = config.BackendCommand
	tr, err = NewTranscoder(&cfg, nil)
	if err != nil || tr.Name() != "command" {
		t.Fatalf("expected command backend, got %v, %v", tr, err)
	}
	cfg.Conversion.Backend = "bogus"
	if _, err := NewTranscoder(&cfg, nil); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
