package conversion_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"heicrop/internal/conversion"
	"heicrop/internal/heif"
	"heicrop/internal/ledger"
	"heicrop/internal/logging"
	"heicrop/internal/services"
	"heicrop/internal/testsupport"
)

type stubTranscoder struct {
	out      []byte
	err      error
	delay    time.Duration
	calls    int
	lastOpts heif.Options
	ready    error
}

func (s *stubTranscoder) Name() string { return "stub" }

func (s *stubTranscoder) Ready(context.Context) error { return s.ready }

func (s *stubTranscoder) Transcode(ctx context.Context, _ heif.File, opts heif.Options) ([]byte, error) {
	s.calls++
	s.lastOpts = opts
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.delay):
		}
	}
	return s.out, s.err
}

func newStage(t *testing.T, tr *stubTranscoder) *conversion.Stage {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	return conversion.NewStageWithDependencies(cfg, logging.NewNop(), heif.BrandDetector{}, tr)
}

func heicFile(name string) heif.File {
	return heif.File{Name: name, Data: testsupport.HEICHeader("heic")}
}

func TestConvertProducesTwoHandles(t *testing.T) {
	tr := &stubTranscoder{out: testsupport.JPEG(t, 64, 48)}
	st := newStage(t, tr)

	res, err := st.Convert(context.Background(), heicFile("photo.heic"))
	if err != nil {
		t.Fatalf("Convert returned error: %v", err)
	}
	if res.Original == nil || res.Converted == nil {
		t.Fatal("expected both handles")
	}
	if res.Original.Tag() != ledger.TagOriginal || res.Converted.Tag() != ledger.TagConverted {
		t.Fatalf("unexpected tags %s/%s", res.Original.Tag(), res.Converted.Tag())
	}
	if res.Original.MediaType() != conversion.MediaTypeHEIC || res.Converted.MediaType() != conversion.MediaTypeJPEG {
		t.Fatalf("unexpected media types %s/%s", res.Original.MediaType(), res.Converted.MediaType())
	}
	if res.Converted.Name() != "photo.jpg" {
		t.Fatalf("unexpected converted name %q", res.Converted.Name())
	}
	if w, h := res.Converted.Dimensions(); w != 64 || h != 48 {
		t.Fatalf("unexpected dimensions %dx%d", w, h)
	}
	if tr.lastOpts.Format != heif.FormatJPEG || tr.lastOpts.Quality != 0.8 {
		t.Fatalf("unexpected transcode options %+v", tr.lastOpts)
	}
}

func TestConvertRejectsNonHEIC(t *testing.T) {
	tr := &stubTranscoder{out: testsupport.JPEG(t, 4, 4)}
	st := newStage(t, tr)

	res, err := st.Convert(context.Background(), heif.File{Name: "photo.jpg", Data: testsupport.JPEG(t, 4, 4)})
	if !errors.Is(err, services.ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format, got %v", err)
	}
	if res.Original != nil || res.Converted != nil {
		t.Fatal("expected no handles on failure")
	}
	if tr.calls != 0 {
		t.Fatal("transcoder must not run for non-HEIC input")
	}
	if services.Details(err).Hint != "Please upload a HEIC/HEIF image" {
		t.Fatalf("unexpected hint %q", services.Details(err).Hint)
	}
}

func TestConvertTranscodeFailureIncludesReason(t *testing.T) {
	tr := &stubTranscoder{err: errors.New("hvcC box missing")}
	st := newStage(t, tr)

	res, err := st.Convert(context.Background(), heicFile("broken.heic"))
	if !errors.Is(err, services.ErrTranscodeFailed) {
		t.Fatalf("expected transcode failure, got %v", err)
	}
	if res.Original != nil || res.Converted != nil {
		t.Fatal("expected no handles on failure")
	}
	if !strings.Contains(services.Details(err).Message, "hvcC box missing") {
		t.Fatalf("expected underlying reason in message, got %q", services.Details(err).Message)
	}
}

func TestConvertRejectsUndecodableOutput(t *testing.T) {
	st := newStage(t, &stubTranscoder{out: []byte("not a jpeg")})
	_, err := st.Convert(context.Background(), heicFile("odd.heic"))
	if services.KindOf(err) != services.KindTranscodeFailed {
		t.Fatalf("expected transcode_failed, got %v", err)
	}
}

func TestConvertClassifiesBeforeSizeLimit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Conversion.MaxInputMiB = 1
	tr := &stubTranscoder{out: testsupport.JPEG(t, 4, 4)}
	st := conversion.NewStageWithDependencies(cfg, nil, heif.BrandDetector{}, tr)
	oversized := make([]byte, 2<<20)

	tests := []struct {
		name string
		file heif.File
		want services.Kind
	}{
		{"empty", heif.File{Name: "empty.png"}, services.KindUnsupportedFormat},
		{"empty heic name", heif.File{Name: "empty.heic"}, services.KindUnsupportedFormat},
		{"oversized non-heic", heif.File{Name: "huge.png", Data: oversized}, services.KindUnsupportedFormat},
		{"oversized heic", heif.File{Name: "big.heic", Data: append(testsupport.HEICHeader("heic"), oversized...)}, services.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := st.Convert(context.Background(), tt.file)
			if got := services.KindOf(err); got != tt.want {
				t.Fatalf("expected %s, got %s (%v)", tt.want, got, err)
			}
			if res.Original != nil || res.Converted != nil {
				t.Fatal("expected no handles on failure")
			}
		})
	}
	if tr.calls != 0 {
		t.Fatal("transcoder must not run for rejected input")
	}
}

func TestConvertRecordsDisplayedDimensions(t *testing.T) {
	tr := &stubTranscoder{out: testsupport.OrientedJPEG(t, 64, 32, 6)}
	st := newStage(t, tr)

	res, err := st.Convert(context.Background(), heicFile("portrait.heic"))
	if err != nil {
		t.Fatalf("Convert returned error: %v", err)
	}
	if w, h := res.Converted.Dimensions(); w != 32 || h != 64 {
		t.Fatalf("expected rotated dimensions 32x64, got %dx%d", w, h)
	}
}

func TestConvertTimeout(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Conversion.TimeoutSeconds = 1
	tr := &stubTranscoder{out: testsupport.JPEG(t, 4, 4), delay: 5 * time.Second}
	st := conversion.NewStageWithDependencies(cfg, nil, heif.BrandDetector{}, tr)

	_, err := st.Convert(context.Background(), heicFile("slow.heic"))
	if !errors.Is(err, services.ErrTranscodeFailed) || !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected transcode timeout, got %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	st := newStage(t, &stubTranscoder{})
	if h := st.HealthCheck(context.Background()); !h.Ready {
		t.Fatalf("expected healthy stage, got %+v", h)
	}

	st = newStage(t, &stubTranscoder{ready: errors.New("binary \"heif-convert\" not found")})
	h := st.HealthCheck(context.Background())
	if h.Ready || !strings.Contains(h.Detail, "heif-convert") {
		t.Fatalf("expected unhealthy stage with detail, got %+v", h)
	}
}
