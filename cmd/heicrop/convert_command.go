package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"heicrop/internal/config"
	"heicrop/internal/conversion"
	"heicrop/internal/fileutil"
	"heicrop/internal/heif"
)

type convertOutput struct {
	Input     string `json:"input"`
	Output    string `json:"output"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Bytes     int    `json:"bytes"`
	ElapsedMS int64  `json:"elapsed_ms"`
}

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "convert <file.heic>",
		Short: "Convert one HEIC/HEIF photo to JPEG without cropping",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			stage, err := conversion.NewStage(cfg, logger)
			if err != nil {
				return err
			}
			result, err := stage.Convert(cmd.Context(), file)
			if err != nil {
				return err
			}

			target := strings.TrimSpace(outputPath)
			if target == "" {
				target = filepath.Join(cfg.Paths.ExportDir, file.BaseName()+".jpg")
			} else if target, err = config.ExpandPath(target); err != nil {
				return err
			}
			data, err := result.Converted.Bytes()
			if err != nil {
				return err
			}
			if err := fileutil.WriteFileAtomic(target, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", target, err)
			}

			w, h := result.Converted.Dimensions()
			out := convertOutput{
				Input:     args[0],
				Output:    target,
				Width:     w,
				Height:    h,
				Bytes:     len(data),
				ElapsedMS: result.Elapsed.Milliseconds(),
			}
			if ctx.jsonFlag {
				return writeJSON(cmd, out)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Converted %s to %s (%dx%d, %s) in %s\n",
				filepath.Base(args[0]), target, w, h, formatBytes(len(data)), result.Elapsed.Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output path (default: <export_dir>/<name>.jpg)")
	return cmd
}

// readInput loads a file for submission. "-" reads stdin.
func readInput(path string) (heif.File, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return heif.File{}, fmt.Errorf("read stdin: %w", err)
		}
		return heif.File{Name: "stdin.heic", Data: data}, nil
	}
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return heif.File{}, err
	}
	return heif.ReadFile(expanded)
}
