package workflow

import (
	"context"
	"io"

	"heicrop/internal/conversion"
	"heicrop/internal/crop"
	"heicrop/internal/heif"
	"heicrop/internal/ledger"
	"heicrop/internal/stage"
)

// Converter turns an upload into original and converted handles.
type Converter interface {
	stage.HealthChecker
	Convert(ctx context.Context, file heif.File) (conversion.Result, error)
}

// Cropper manages crop sessions over a converted handle.
type Cropper interface {
	stage.HealthChecker
	Begin(ctx context.Context, converted *ledger.Handle) (*crop.Session, error)
	Commit(ctx context.Context, sess *crop.Session) (*ledger.Handle, error)
	Render(ctx context.Context, sess *crop.Session) (*ledger.Handle, error)
	Reset(sess *crop.Session) error
	Adjust(sess *crop.Session, adj crop.Adjustment) error
	End(sess *crop.Session)
}

// Exporter writes handles out as JPEG files.
type Exporter interface {
	stage.HealthChecker
	Export(ctx context.Context, h *ledger.Handle, name string) (string, error)
	WriteTo(w io.Writer, h *ledger.Handle) error
}

// MessageKind classifies the user-facing status line.
type MessageKind string

const (
	MessageNone    MessageKind = ""
	MessageLoading MessageKind = "loading"
	MessageSuccess MessageKind = "success"
	MessageError   MessageKind = "error"
	MessageInfo    MessageKind = "info"
)

// Message is the status line shown to the user after each operation.
type Message struct {
	Kind MessageKind `json:"kind,omitempty"`
	Text string      `json:"text,omitempty"`
}

const (
	msgProcessing    = "Processing, please wait..."
	msgConverting    = "Converting HEIC image..."
	msgConverted     = "Converted successfully!"
	msgCropReady     = "Adjust the crop region and apply when ready"
	msgCropped       = "Crop applied"
	msgUploadHEIC    = "Please upload a HEIC/HEIF image"
	msgErrorTemplate = "Error processing image: %s"
)
