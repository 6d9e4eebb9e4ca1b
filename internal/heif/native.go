package heif

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
)

// Native decodes HEIF in-process and re-encodes it as JPEG, carrying EXIF
// across when the source has it.
type Native struct {
	decode func([]byte) (image.Image, []byte, error)
}

// NewNative constructs the in-process backend.
func NewNative() *Native {
	return &Native{decode: decodeHEIF}
}

func (n *Native) Name() string { return "native" }

func (n *Native) Ready(context.Context) error {
	return nativeReady()
}

// Transcode runs the decode on a worker goroutine so a context deadline can
// abandon it; the decoder itself cannot be interrupted.
func (n *Native) Transcode(ctx context.Context, file File, opts Options) ([]byte, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	type outcome struct {
		data []byte
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		data, err := n.encode(file.Data, opts)
		done <- outcome{data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case out := <-done:
		return out.data, out.err
	}
}

func (n *Native) encode(data []byte, opts Options) ([]byte, error) {
	img, exif, err := n.decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode heif: %w", err)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality(opts.Quality)}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return spliceExif(buf.Bytes(), exif), nil
}
