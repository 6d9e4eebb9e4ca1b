package ipc

import (
	"errors"
	"fmt"
	"net/rpc"
	"strings"

	"heicrop/internal/services"
	"heicrop/internal/session"
)

// RemoteError is a failure reported by the session process.
type RemoteError struct {
	Kind    services.Kind
	Message string
}

func (e *RemoteError) Error() string {
	if e.Kind == services.KindNone {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NotRunning reports whether the session host had stopped.
func (e *RemoteError) NotRunning() bool {
	return e.Message == session.ErrNotRunning.Error()
}

// encodeError flattens err into "[kind] message" for the wire.
func encodeError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, session.ErrNotRunning) {
		return errors.New(err.Error())
	}
	details := services.Details(err)
	msg := details.Message
	if msg == "" {
		msg = err.Error()
	}
	return fmt.Errorf("[%s] %s", details.Kind, msg)
}

// decodeError turns an rpc.ServerError back into a RemoteError; other errors
// pass through.
func decodeError(err error) error {
	var serverErr rpc.ServerError
	if !errors.As(err, &serverErr) {
		return err
	}
	text := string(serverErr)
	if rest, ok := strings.CutPrefix(text, "["); ok {
		if kind, msg, ok := strings.Cut(rest, "] "); ok {
			return &RemoteError{Kind: services.Kind(kind), Message: msg}
		}
	}
	return &RemoteError{Message: text}
}
