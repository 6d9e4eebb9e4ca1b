package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"heicrop/internal/workflow"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"

	statusLabelWidth = 18
	statusIndent     = "  "
)

var statusStyles = map[statusKind]struct{ label, color string }{
	statusInfo:  {"INFO", ansiBlue},
	statusOK:    {"OK", ansiGreen},
	statusWarn:  {"WARN", ansiYellow},
	statusError: {"ERROR", ansiRed},
}

// printer writes status lines, colorized when attached to a terminal.
type printer struct {
	w        io.Writer
	colorize bool
}

func newPrinter(w io.Writer) printer {
	return printer{w: w, colorize: shouldColorize(w)}
}

func (p printer) line(label string, kind statusKind, message string) {
	style := statusStyles[kind]
	text := "[" + style.label + "]"
	if message != "" {
		text += " " + message
	}
	out := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", text)
	if p.colorize {
		out = style.color + out + ansiReset
	}
	fmt.Fprintln(p.w, out)
}

func (p printer) section(title string) {
	head := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(head))
	if p.colorize {
		head, rule = ansiBlue+head+ansiReset, ansiBlue+rule+ansiReset
	}
	fmt.Fprintln(p.w, head)
	fmt.Fprintln(p.w, rule)
}

func statusKindFromSeverity(severity string) statusKind {
	switch strings.ToLower(strings.TrimSpace(severity)) {
	case "ok":
		return statusOK
	case "warn":
		return statusWarn
	case "error":
		return statusError
	default:
		return statusInfo
	}
}

func statusKindFromMessage(kind workflow.MessageKind) statusKind {
	switch kind {
	case workflow.MessageSuccess:
		return statusOK
	case workflow.MessageError:
		return statusError
	default:
		return statusInfo
	}
}

func shouldColorize(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
