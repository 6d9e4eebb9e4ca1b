package export_test

import (
	"bytes"
	"context"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"heicrop/internal/export"
	"heicrop/internal/ledger"
	"heicrop/internal/logging"
	"heicrop/internal/services"
	"heicrop/internal/testsupport"
)

func TestExportWritesReencodedJPEG(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	exp := export.NewExporter(cfg, logging.NewNop())
	src := testsupport.JPEG(t, 50, 30)
	h := ledger.NewHandle(ledger.TagCropped, "cropped-image.jpg", "image/jpeg", src)

	for _, name := range []string{"cropped-image.jpg", "final-image.jpg"} {
		path, err := exp.Export(context.Background(), h, name)
		if err != nil {
			t.Fatalf("Export(%s): %v", name, err)
		}
		if path != filepath.Join(cfg.Paths.ExportDir, name) {
			t.Fatalf("unexpected path %q", path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		dc, err := jpeg.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("exported file is not JPEG: %v", err)
		}
		if dc.Width != 50 || dc.Height != 30 {
			t.Fatalf("exported dimensions %dx%d", dc.Width, dc.Height)
		}
	}
}

func TestExportDefaultsToHandleName(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	exp := export.NewExporter(cfg, nil)
	h := ledger.NewHandle(ledger.TagCropped, "cropped-image.jpg", "image/jpeg", testsupport.JPEG(t, 8, 8))

	path, err := exp.Export(context.Background(), h, "  ")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "cropped-image.jpg" {
		t.Fatalf("expected handle name, got %q", path)
	}
}

func TestExportRejectsBadInput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	exp := export.NewExporter(cfg, nil)
	good := ledger.NewHandle(ledger.TagCropped, "cropped-image.jpg", "image/jpeg", testsupport.JPEG(t, 8, 8))

	tests := []struct {
		name   string
		handle *ledger.Handle
		file   string
	}{
		{"nil handle", nil, "final-image.jpg"},
		{"directory in name", good, "../escape.jpg"},
		{"wrong extension", good, "final-image.png"},
		{"not a jpeg", ledger.NewHandle(ledger.TagCropped, "x.jpg", "image/jpeg", []byte("junk")), "x.jpg"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := exp.Export(context.Background(), tc.handle, tc.file); services.KindOf(err) != services.KindValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	entries, _ := os.ReadDir(cfg.Paths.ExportDir)
	for _, e := range entries {
		t.Fatalf("failed exports left %q behind", e.Name())
	}
}

func TestExportRevokedHandle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	exp := export.NewExporter(cfg, nil)
	h := ledger.NewHandle(ledger.TagCropped, "cropped-image.jpg", "image/jpeg", testsupport.JPEG(t, 8, 8))
	l := ledger.New()
	if err := l.Register(h); err != nil {
		t.Fatal(err)
	}
	l.Release(h)

	if _, err := exp.Export(context.Background(), h, ""); err == nil {
		t.Fatal("expected revoked handle to be refused")
	}
}

func TestWriteToStreamsJPEG(t *testing.T) {
	exp := export.NewExporter(testsupport.NewConfig(t), nil)
	h := ledger.NewHandle(ledger.TagCropped, "cropped-image.jpg", "image/jpeg", testsupport.JPEG(t, 12, 7))

	var buf bytes.Buffer
	if err := exp.WriteTo(&buf, h); err != nil {
		t.Fatal(err)
	}
	if _, err := jpeg.Decode(&buf); err != nil {
		t.Fatalf("stream is not JPEG: %v", err)
	}
}
