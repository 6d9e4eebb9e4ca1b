package heif_test

import (
	"context"
	"testing"

	"heicrop/internal/heif"
	"heicrop/internal/testsupport"
)

func TestBrandDetector(t *testing.T) {
	avif := testsupport.HEICHeader("mif1")
	copy(avif[20:24], "avif")

	cases := []struct {
		name string
		data []byte
		want bool
	}{
		{"heic", testsupport.HEICHeader("heic"), true},
		{"heix", testsupport.HEICHeader("heix"), true},
		{"generic heif", testsupport.HEICHeader("mif1"), true},
		{"avif major", testsupport.HEICHeader("avif"), false},
		{"avif via generic", avif, false},
		{"mp4", testsupport.HEICHeader("isom"), false},
		{"jpeg", testsupport.JPEG(t, 4, 4), false},
		{"short", []byte("ftyp"), false},
		{"empty", nil, false},
	}

	detector := heif.BrandDetector{}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := detector.IsHEIC(context.Background(), heif.File{Name: "x", Data: tc.data})
			if err != nil {
				t.Fatalf("IsHEIC returned error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("IsHEIC = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestBrandDetectorHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (heif.BrandDetector{}).IsHEIC(ctx, heif.File{Data: testsupport.HEICHeader("heic")}); err == nil {
		t.Fatal("expected context error")
	}
}

func TestFileBaseName(t *testing.T) {
	cases := map[string]string{
		"photo.heic":      "photo",
		"IMG_0001.HEIC":   "IMG_0001",
		"dir/holiday.hif": "holiday",
		"noext":           "noext",
		".hidden":         ".hidden",
		"":                "image",
	}
	for name, want := range cases {
		if got := (heif.File{Name: name}).BaseName(); got != want {
			t.Errorf("BaseName(%q) = %q, want %q", name, got, want)
		}
	}
}
