package ipc

import (
	"heicrop/internal/crop"
	"heicrop/internal/deps"
	"heicrop/internal/session"
	"heicrop/internal/workflow"
)

// SubmitRequest carries an uploaded file.
type SubmitRequest struct {
	Name string `json:"name"`
	Data []byte `json:"data"`
}

// StartCropRequest opens a crop session on the converted image.
type StartCropRequest struct{}

// ApplyCropRequest commits the current selection.
type ApplyCropRequest struct{}

// ResetCropRequest restores the widget to its initial state.
type ResetCropRequest struct{}

// NewImageRequest discards every image and returns to idle.
type NewImageRequest struct{}

// AdjustRequest applies one widget adjustment.
type AdjustRequest struct {
	Adjustment crop.Adjustment `json:"adjustment"`
}

// ActionResponse reports the workflow after an action. Error is set when the
// action failed inside a stage.
type ActionResponse struct {
	State   workflow.State         `json:"state"`
	Message workflow.Message       `json:"message"`
	Error   *workflow.ErrorSummary `json:"error,omitempty"`
}

// DownloadRequest exports the crop; an empty name selects the default.
type DownloadRequest struct {
	Name string `json:"name"`
}

// DownloadResponse holds the written path, empty when the call was ignored.
type DownloadResponse struct {
	ActionResponse
	Path string `json:"path"`
}

// StatusRequest fetches session status.
type StatusRequest struct{}

// StatusResponse combines host, workflow, and dependency status.
type StatusResponse struct {
	Session      session.Info           `json:"session"`
	Workflow     workflow.StatusSummary `json:"workflow"`
	Dependencies []deps.Status          `json:"dependencies"`
	LogPath      string                 `json:"log_path"`
}

// PreviewRequest selects a live image by tag.
type PreviewRequest struct {
	Tag string `json:"tag"`
}

// PreviewResponse returns the image bytes and their description.
type PreviewResponse struct {
	Handle workflow.HandleSummary `json:"handle"`
	Data   []byte                 `json:"data"`
}

// LogTailRequest requests session log lines.
type LogTailRequest struct {
	Offset     int64  `json:"offset"`
	Limit      int    `json:"limit"`
	Follow     bool   `json:"follow"`
	WaitMillis int    `json:"wait_millis"`
	Contains   string `json:"contains,omitempty"`
}

// LogTailResponse carries log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// ShutdownRequest asks the session process to exit.
type ShutdownRequest struct{}

// ShutdownResponse acknowledges a shutdown request.
type ShutdownResponse struct {
	Stopping bool `json:"stopping"`
}
