package workflow

import (
	"context"
	"fmt"
	"strings"

	"heicrop/internal/logging"
	"heicrop/internal/services"
)

// handleStageFailure records err as the last error, sets the error status
// line, logs it, and returns it unchanged.
func (c *Controller) handleStageFailure(ctx context.Context, stageName string, stageErr error) error {
	logger := logging.WithContext(services.WithStage(ctx, stageName), c.logger)

	details := services.Details(stageErr)
	c.lastErr = stageErr
	c.setMessage(MessageError, failureMessage(details))

	attrs := []logging.Attr{
		logging.String("state", c.state.String()),
		logging.String("error_message", strings.TrimSpace(details.Message)),
		logging.String(logging.FieldErrorKind, string(details.Kind)),
		logging.String(logging.FieldErrorOperation, details.Operation),
		logging.String(logging.FieldErrorHint, details.Hint),
		logging.String(logging.FieldEventType, "stage_failure"),
	}
	if details.Cause != nil {
		attrs = append(attrs, logging.Error(details.Cause))
	} else {
		attrs = append(attrs, logging.Error(stageErr))
	}
	if details.Kind == services.KindEmptySelection || details.Kind == services.KindUnsupportedFormat {
		logger.Warn("stage failed", logging.Args(attrs...)...)
	} else {
		logger.Error("stage failed", logging.Args(attrs...)...)
	}
	return stageErr
}

func failureMessage(details services.ErrorDetails) string {
	if details.Kind == services.KindUnsupportedFormat {
		return msgUploadHEIC
	}
	message := strings.TrimSpace(details.Message)
	if message == "" {
		message = "unknown failure"
	}
	return fmt.Sprintf(msgErrorTemplate, message)
}
