package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateConversion(); err != nil {
		return err
	}
	if err := c.validateCrop(); err != nil {
		return err
	}
	if err := c.validateExport(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateConversion() error {
	switch c.Conversion.Backend {
	case BackendNative, BackendCommand:
	default:
		return fmt.Errorf("conversion.backend must be %q or %q, got %q", BackendNative, BackendCommand, c.Conversion.Backend)
	}
	if err := ensureQuality("conversion.quality", c.Conversion.Quality); err != nil {
		return err
	}
	return ensurePositiveMap(map[string]int{
		"conversion.timeout_seconds": c.Conversion.TimeoutSeconds,
		"conversion.max_input_mib":   c.Conversion.MaxInputMiB,
	})
}

func (c *Config) validateCrop() error {
	if err := ensureQuality("crop.quality", c.Crop.Quality); err != nil {
		return err
	}
	switch c.Crop.SmoothingQuality {
	case "low", "medium", "high":
	default:
		return fmt.Errorf("crop.smoothing_quality must be low, medium, or high, got %q", c.Crop.SmoothingQuality)
	}
	if !c.Crop.FreeAspect && c.Crop.AspectRatio <= 0 {
		return errors.New("crop.aspect_ratio must be positive when crop.free_aspect is false")
	}
	if c.Crop.AspectRatio < 0 {
		return errors.New("crop.aspect_ratio must be >= 0")
	}
	if c.Crop.InitialCoverage <= 0 || c.Crop.InitialCoverage > 1 {
		return errors.New("crop.initial_coverage must be in (0, 1]")
	}
	return nil
}

func (c *Config) validateExport() error {
	if err := ensureQuality("export.quality", c.Export.Quality); err != nil {
		return err
	}
	for key, name := range map[string]string{
		"export.cropped_name": c.Export.CroppedName,
		"export.final_name":   c.Export.FinalName,
	} {
		if err := ValidateExportName(name); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
}

// ValidateExportName checks that name is a bare JPEG file name.
func ValidateExportName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return errors.New("file name must be set")
	}
	if filepath.Base(trimmed) != trimmed || trimmed == "." || trimmed == ".." {
		return fmt.Errorf("file name %q must not contain directories", name)
	}
	ext := strings.ToLower(filepath.Ext(trimmed))
	if ext != ".jpg" && ext != ".jpeg" {
		return fmt.Errorf("file name %q must end in .jpg", name)
	}
	return nil
}

func ensureQuality(key string, value float64) error {
	if value <= 0 || value > 1 {
		return fmt.Errorf("%s must be in (0, 1]", key)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
