package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"heicrop/internal/crop"
	"heicrop/internal/workflow"
)

type cropFlags struct {
	selection string
	rotate    float64
	zoom      float64
	move      string
	scale     string
	output    string
	stdout    bool
}

// adjustments orders the flags the way a user would work the widget:
// transform the image first, then frame it.
func (f cropFlags) adjustments() ([]crop.Adjustment, error) {
	var adjs []crop.Adjustment
	if f.rotate != 0 {
		adjs = append(adjs, crop.Adjustment{Op: crop.OpRotate, Degrees: f.rotate})
	}
	if s := strings.TrimSpace(f.scale); s != "" {
		sx, sy, err := parsePair([]string{s}, "scale")
		if err != nil {
			return nil, err
		}
		adjs = append(adjs, crop.Adjustment{Op: crop.OpScale, ScaleX: sx, ScaleY: sy})
	}
	if f.zoom != 0 {
		adjs = append(adjs, crop.Adjustment{Op: crop.OpZoom, Ratio: f.zoom})
	}
	if m := strings.TrimSpace(f.move); m != "" {
		dx, dy, err := parsePair([]string{m}, "move")
		if err != nil {
			return nil, err
		}
		adjs = append(adjs, crop.Adjustment{Op: crop.OpMove, DX: dx, DY: dy})
	}
	if s := strings.TrimSpace(f.selection); s != "" {
		rect, err := parseRect([]string{s})
		if err != nil {
			return nil, err
		}
		adjs = append(adjs, crop.Adjustment{Op: crop.OpSelect, Selection: rect})
	}
	return adjs, nil
}

func newCropCommand(ctx *commandContext) *cobra.Command {
	var flags cropFlags

	cmd := &cobra.Command{
		Use:   "crop <file.heic>",
		Short: "Convert a HEIC/HEIF photo, crop it, and export the result",
		Long: `Runs the whole workflow once: convert, open the crop surface, apply the
requested transforms and selection, commit, and export. Without --select the
full frame is kept.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.stdout && ctx.jsonFlag {
				return errors.New("--stdout and --json are mutually exclusive")
			}
			adjs, err := flags.adjustments()
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			file, err := readInput(args[0])
			if err != nil {
				return err
			}

			ctrl, err := workflow.NewController(cfg, logger)
			if err != nil {
				return err
			}
			runCtx := cmd.Context()
			defer ctrl.Close(runCtx)

			if err := ctrl.SubmitFile(runCtx, file); err != nil {
				return err
			}
			if err := ctrl.StartCrop(runCtx); err != nil {
				return err
			}
			for _, adj := range adjs {
				if err := ctrl.Adjust(runCtx, adj); err != nil {
					return fmt.Errorf("%s: %w", adj, err)
				}
			}
			if err := ctrl.ApplyCrop(runCtx); err != nil {
				return err
			}

			if flags.stdout {
				return ctrl.WriteResult(cmd.OutOrStdout())
			}
			path, err := ctrl.Download(runCtx, flags.output)
			if err != nil {
				return err
			}
			if ctx.jsonFlag {
				return writeJSON(cmd, struct {
					Path   string                 `json:"path"`
					Status workflow.StatusSummary `json:"status"`
				}{Path: path, Status: ctrl.Status(runCtx)})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", path)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.selection, "select", "", "Crop rectangle x,y,width,height in source pixels")
	f.Float64Var(&flags.rotate, "rotate", 0, "Rotate the image by degrees before cropping")
	f.Float64Var(&flags.zoom, "zoom", 0, "Relative zoom ratio (0.1 zooms in 10%, -0.1 out)")
	f.StringVar(&flags.move, "move", "", "Pan the image by dx,dy")
	f.StringVar(&flags.scale, "scale", "", "Scale factors sx,sy (-1 flips)")
	f.StringVarP(&flags.output, "output", "o", "", "Export file name inside export_dir (default: final name)")
	f.BoolVar(&flags.stdout, "stdout", false, "Write the JPEG to stdout instead of export_dir")
	return cmd
}
