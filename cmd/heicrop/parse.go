package main

import (
	"fmt"
	"strconv"
	"strings"

	"heicrop/internal/cropper"
)

// parseFloats accepts either one comma-separated argument or n separate
// arguments and returns exactly n numbers.
func parseFloats(args []string, n int, what string) ([]float64, error) {
	parts := args
	if len(args) == 1 {
		parts = strings.Split(args[0], ",")
	}
	if len(parts) != n {
		return nil, fmt.Errorf("%s needs %d numbers, got %d", what, n, len(parts))
	}
	out := make([]float64, n)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not a number", what, part)
		}
		out[i] = v
	}
	return out, nil
}

func parseRect(args []string) (cropper.Rect, error) {
	v, err := parseFloats(args, 4, "selection (x,y,width,height)")
	if err != nil {
		return cropper.Rect{}, err
	}
	return cropper.Rect{X: v[0], Y: v[1], Width: v[2], Height: v[3]}, nil
}

func parsePair(args []string, what string) (float64, float64, error) {
	v, err := parseFloats(args, 2, what)
	if err != nil {
		return 0, 0, err
	}
	return v[0], v[1], nil
}

func formatBytes(n int) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := unit, 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGT"[exp])
}
