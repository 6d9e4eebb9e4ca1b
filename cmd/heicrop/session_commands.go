package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"heicrop/internal/crop"
	"heicrop/internal/ipc"
	"heicrop/internal/sessionctl"
	"heicrop/internal/sessionrun"
)

const (
	sessionStartTimeout = 10 * time.Second
	sessionStopGrace    = 5 * time.Second
)

func newSessionCommand(ctx *commandContext) *cobra.Command {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Run and drive an interactive crop session",
	}

	sessionCmd.AddCommand(
		newSessionServeCommand(ctx),
		newSessionStartCommand(ctx),
		newSessionStopCommand(ctx),
		newSessionStatusCommand(ctx),
		newSessionLogsCommand(ctx),
		newSessionPreviewCommand(ctx),
		newSessionDownloadCommand(ctx),
		newSessionSubmitCommand(ctx),
	)
	for _, cmd := range newSessionActionCommands(ctx) {
		sessionCmd.AddCommand(cmd)
	}
	for _, cmd := range newSessionAdjustCommands(ctx) {
		sessionCmd.AddCommand(cmd)
	}
	return sessionCmd
}

func newSessionServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the session in the foreground",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return sessionrun.Run(cmd.Context(), cfg, sessionrun.Options{LogLevel: ctx.logLevelFlag})
		},
	}
}

func newSessionStartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start a background session if none is running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve executable: %w", err)
			}
			result, err := sessionctl.EnsureStarted(cmd.Context(), ctx.socketPath(), exe,
				sessionctl.LaunchOptions{ConfigPath: ctx.configFlag, LogLevel: ctx.logLevelFlag},
				sessionStartTimeout)
			if err != nil {
				return err
			}
			if ctx.jsonFlag {
				return writeJSON(cmd, result)
			}
			out := cmd.OutOrStdout()
			switch result.State {
			case sessionctl.StartStateStarted:
				fmt.Fprintf(out, "Session started (id %s, pid %d)\n", result.SessionID, result.PID)
			case sessionctl.StartStateAlreadyRunning:
				fmt.Fprintf(out, "Session already running (id %s, pid %d)\n", result.SessionID, result.PID)
			}
			return nil
		},
	}
}

func newSessionStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the background session and discard its images",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			result, err := sessionctl.Stop(cmd.Context(), ctx.socketPath(), sessionStopGrace)
			if errors.Is(err, sessionctl.ErrNotRunning) {
				fmt.Fprintln(out, "Session is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill {
				fmt.Fprintf(out, "Session did not exit in time; killed pid %d\n", result.PID)
			}
			fmt.Fprintln(out, "Session stopped")
			return nil
		},
	}
}

func newSessionSubmitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "submit <file.heic>",
		Short: "Upload a HEIC/HEIF photo and convert it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := readInput(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Submit(cmd.Context(), file.Name, file.Data)
				if err != nil {
					return err
				}
				return printAction(cmd, ctx, resp, nil)
			})
		},
	}
}

// newSessionActionCommands builds the argument-less workflow actions.
func newSessionActionCommands(ctx *commandContext) []*cobra.Command {
	actions := []struct {
		use, short string
		call       func(*ipc.Client, context.Context) (*ipc.ActionResponse, error)
	}{
		{"start-crop", "Open the crop surface on the converted image", (*ipc.Client).StartCrop},
		{"apply", "Commit the current selection", (*ipc.Client).ApplyCrop},
		{"reset", "Restore the full-frame selection and original transform", (*ipc.Client).ResetCrop},
		{"new", "Discard every image and start over", (*ipc.Client).NewImage},
	}
	cmds := make([]*cobra.Command, 0, len(actions))
	for _, action := range actions {
		cmds = append(cmds, &cobra.Command{
			Use:   action.use,
			Short: action.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return ctx.withClient(func(client *ipc.Client) error {
					resp, err := action.call(client, cmd.Context())
					if err != nil {
						return err
					}
					return printAction(cmd, ctx, resp, nil)
				})
			},
		})
	}
	return cmds
}

// newSessionAdjustCommands builds one subcommand per crop-surface adjustment.
func newSessionAdjustCommands(ctx *commandContext) []*cobra.Command {
	adjusters := []struct {
		use, short string
		args       cobra.PositionalArgs
		parse      func([]string) (crop.Adjustment, error)
	}{
		{"select <x,y,width,height>", "Set the crop rectangle in source pixels", cobra.RangeArgs(1, 4),
			func(args []string) (crop.Adjustment, error) {
				rect, err := parseRect(args)
				return crop.Adjustment{Op: crop.OpSelect, Selection: rect}, err
			}},
		{"move <dx,dy>", "Pan the image under the selection", cobra.RangeArgs(1, 2),
			func(args []string) (crop.Adjustment, error) {
				dx, dy, err := parsePair(args, "move")
				return crop.Adjustment{Op: crop.OpMove, DX: dx, DY: dy}, err
			}},
		{"zoom <ratio>", "Zoom by a relative ratio (0.1 in, -0.1 out)", cobra.ExactArgs(1),
			func(args []string) (crop.Adjustment, error) {
				ratio, err := strconv.ParseFloat(args[0], 64)
				return crop.Adjustment{Op: crop.OpZoom, Ratio: ratio}, err
			}},
		{"rotate <degrees>", "Rotate the image clockwise", cobra.ExactArgs(1),
			func(args []string) (crop.Adjustment, error) {
				deg, err := strconv.ParseFloat(args[0], 64)
				return crop.Adjustment{Op: crop.OpRotate, Degrees: deg}, err
			}},
		{"scale <sx,sy>", "Set scale factors (-1 flips an axis)", cobra.RangeArgs(1, 2),
			func(args []string) (crop.Adjustment, error) {
				sx, sy, err := parsePair(args, "scale")
				return crop.Adjustment{Op: crop.OpScale, ScaleX: sx, ScaleY: sy}, err
			}},
	}
	cmds := make([]*cobra.Command, 0, len(adjusters))
	for _, adj := range adjusters {
		cmds = append(cmds, &cobra.Command{
			Use:   adj.use,
			Short: adj.short,
			Args:  adj.args,
			Example: "  heicrop session " + strings.Fields(adj.use)[0] + " -- -10,5  # use -- before negative values",
			RunE: func(cmd *cobra.Command, args []string) error {
				adjustment, err := adj.parse(args)
				if err != nil {
					return err
				}
				return ctx.withClient(func(client *ipc.Client) error {
					resp, err := client.Adjust(cmd.Context(), adjustment)
					if err != nil {
						return err
					}
					return printAction(cmd, ctx, resp, nil)
				})
			},
		})
	}
	return cmds
}

func newSessionDownloadCommand(ctx *commandContext) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Export the crop to the export directory",
		Long: `While cropping, exports the live selection as the cropped image without
committing it. After apply, exports the committed crop as the final image.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Download(cmd.Context(), name)
				if err != nil {
					return err
				}
				if err := printAction(cmd, ctx, &resp.ActionResponse, resp); err != nil {
					return err
				}
				if resp.Path == "" {
					return fmt.Errorf("nothing to download while %s", resp.State)
				}
				if !ctx.jsonFlag {
					fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", resp.Path)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "File name inside export_dir (default depends on state)")
	return cmd
}
