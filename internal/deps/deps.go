// Package deps reports the availability of external executables heicrop can
// delegate to.
package deps

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const versionProbeTimeout = 3 * time.Second

// Requirement is an external executable. When VersionArg is set the binary is
// run with it and the first line of output is kept as Status.Detail.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	VersionArg  string
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// HeifConvert describes the libheif converter used by the command backend.
func HeifConvert(command string, optional bool) Requirement {
	return Requirement{
		Name:        "heif-convert",
		Command:     command,
		Description: "libheif converter used by conversion.backend = \"command\"",
		Optional:    optional,
		VersionArg:  "--version",
	}
}

// Check resolves each requirement on PATH and probes its version.
func Check(ctx context.Context, requirements ...Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		results = append(results, check(ctx, req))
	}
	return results
}

func check(ctx context.Context, req Requirement) Status {
	status := Status{
		Name:        req.Name,
		Command:     strings.TrimSpace(req.Command),
		Description: strings.TrimSpace(req.Description),
		Optional:    req.Optional,
	}
	if status.Command == "" {
		status.Detail = "command not configured"
		return status
	}
	resolved, err := exec.LookPath(status.Command)
	if err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", status.Command)
		return status
	}
	status.Command = resolved
	status.Available = true
	if req.VersionArg != "" {
		status.Detail = probeVersion(ctx, resolved, req.VersionArg)
	}
	return status
}

// probeVersion returns "" when the binary exits non-zero.
func probeVersion(ctx context.Context, binary, arg string) string {
	probeCtx, cancel := context.WithTimeout(ctx, versionProbeTimeout)
	defer cancel()
	out, err := exec.CommandContext(probeCtx, binary, arg).CombinedOutput()
	if err != nil {
		return ""
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	return strings.TrimSpace(line)
}

// Missing returns the required dependencies that are unavailable.
func Missing(statuses []Status) []Status {
	var out []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			out = append(out, s)
		}
	}
	return out
}
