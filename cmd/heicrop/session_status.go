package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"heicrop/internal/config"
	"heicrop/internal/deps"
	"heicrop/internal/fileutil"
	"heicrop/internal/ipc"
	"heicrop/internal/sessionctl"
	"heicrop/internal/workflow"
)

func newSessionStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session, image, and dependency status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			snap, err := sessionctl.BuildSnapshot(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if ctx.jsonFlag {
				return writeJSON(cmd, snap)
			}
			renderSnapshot(newPrinter(cmd.OutOrStdout()), snap)
			return nil
		},
	}
}

func renderSnapshot(p printer, snap sessionctl.Snapshot) {
	p.section("Session")
	if !snap.Running || snap.Status == nil {
		p.line("heicrop", statusWarn, "Not running (run `heicrop session start`)")
	} else {
		info := snap.Status.Session
		p.line("heicrop", statusOK, fmt.Sprintf("Running (pid %d, up %s)", info.PID, time.Since(info.Started).Round(time.Second)))
		p.line("Session ID", statusInfo, info.ID)
		p.line("Log", statusInfo, snap.Status.LogPath)
		fmt.Fprintln(p.w)
		renderWorkflow(p, snap.Status.Workflow)
	}
	fmt.Fprintln(p.w)

	p.section("Dependencies")
	renderDependencies(p, snap.Dependencies, snap.DependencySummary)
}

func renderWorkflow(p printer, wf workflow.StatusSummary) {
	p.section("Workflow")
	p.line("State", statusInfo, string(wf.State))
	if wf.Message.Text != "" {
		p.line("Message", statusKindFromMessage(wf.Message.Kind), wf.Message.Text)
	}
	if wf.LastError != nil {
		p.line("Last error", statusError, fmt.Sprintf("%s (%s)", wf.LastError.Message, wf.LastError.Kind))
	}
	for _, h := range wf.StageHealth {
		kind, detail := statusOK, strings.TrimSpace("Ready "+h.Detail)
		if !h.Ready {
			kind, detail = statusError, h.Detail
		}
		p.line("Stage "+h.Name, kind, detail)
	}
	if s := wf.Session; s != nil {
		sel := s.Selection
		p.line("Selection", statusInfo, fmt.Sprintf("%.0fx%.0f at %.0f,%.0f of %dx%d",
			sel.Width, sel.Height, sel.X, sel.Y, s.ImageWidth, s.ImageHeight))
		t := s.Transform
		p.line("Transform", statusInfo, fmt.Sprintf("rotate %.1f, scale %.2f,%.2f, zoom %.2f",
			t.Rotation, t.ScaleX, t.ScaleY, t.Zoom))
	}

	if len(wf.Handles) == 0 {
		fmt.Fprintln(p.w, "No images loaded")
		return
	}
	rows := make([][]string, 0, len(wf.Handles))
	for _, h := range wf.Handles {
		dims := ""
		if h.Width > 0 && h.Height > 0 {
			dims = fmt.Sprintf("%dx%d", h.Width, h.Height)
		}
		rows = append(rows, []string{string(h.Tag), h.Name, dims, formatBytes(h.Size), h.URI})
	}
	fmt.Fprint(p.w, renderTable([]string{"Image", "Name", "Size", "Bytes", "URI"}, rows, 3))
}

func renderDependencies(p printer, statuses []deps.Status, summary sessionctl.DependencySummary) {
	p.line("Summary", statusKindFromSeverity(summary.Severity), summary.Detail)
	for _, dep := range statuses {
		switch {
		case dep.Available:
			p.line(dep.Name, statusOK, strings.TrimSpace("Ready "+dep.Detail))
		case dep.Optional:
			p.line(dep.Name, statusWarn, "Optional: "+dep.Detail)
		default:
			p.line(dep.Name, statusError, dep.Detail)
		}
	}
}

func newSessionPreviewCommand(ctx *commandContext) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:       "preview <original|converted|cropped>",
		Short:     "Fetch one of the live images",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"original", "converted", "cropped"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Preview(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if target := strings.TrimSpace(output); target != "" {
					path, err := config.ExpandPath(target)
					if err != nil {
						return err
					}
					if err := fileutil.WriteFileAtomic(path, resp.Data, 0o644); err != nil {
						return fmt.Errorf("write preview: %w", err)
					}
				}
				if ctx.jsonFlag {
					return writeJSON(cmd, resp.Handle)
				}
				h := resp.Handle
				p := newPrinter(cmd.OutOrStdout())
				p.line("Image", statusInfo, string(h.Tag))
				p.line("Name", statusInfo, h.Name)
				p.line("Type", statusInfo, h.MediaType)
				p.line("Bytes", statusInfo, formatBytes(h.Size))
				if h.Width > 0 {
					p.line("Dimensions", statusInfo, fmt.Sprintf("%dx%d", h.Width, h.Height))
				}
				p.line("URI", statusInfo, h.URI)
				if output != "" {
					p.line("Written", statusOK, output)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the image bytes to this path")
	return cmd
}

func newSessionLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		lines    int
		follow   bool
		contains string
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the session log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				out := cmd.OutOrStdout()
				req := ipc.LogTailRequest{Offset: -1, Limit: lines, Contains: contains}
				for {
					resp, err := client.LogTail(cmd.Context(), req)
					if errors.Is(err, context.Canceled) {
						return nil
					}
					if err != nil {
						return err
					}
					for _, line := range resp.Lines {
						fmt.Fprintln(out, line)
					}
					if !follow {
						return nil
					}
					req = ipc.LogTailRequest{Offset: resp.Offset, Follow: true, WaitMillis: 5000, Contains: contains}
				}
			})
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep streaming new lines")
	cmd.Flags().StringVar(&contains, "grep", "", "Only show lines containing this text")
	return cmd
}
