package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.applyEnvironment()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeConversion()
	c.normalizeCrop()
	c.normalizeExport()
	c.normalizeLogging()
	return nil
}

// applyEnvironment lets HEICROP_* variables override file values.
func (c *Config) applyEnvironment() {
	if value, ok := os.LookupEnv(envExportDir); ok && strings.TrimSpace(value) != "" {
		c.Paths.ExportDir = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv(envLogLevel); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.ExportDir) == "" {
		c.Paths.ExportDir = defaultExportDir
	}
	if c.Paths.ExportDir, err = ExpandPath(c.Paths.ExportDir); err != nil {
		return fmt.Errorf("paths.export_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = ExpandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.SocketPath) == "" {
		c.Paths.SocketPath = defaultSocketPath
	}
	if c.Paths.SocketPath, err = ExpandPath(c.Paths.SocketPath); err != nil {
		return fmt.Errorf("paths.socket_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeConversion() {
	c.Conversion.Backend = strings.ToLower(strings.TrimSpace(c.Conversion.Backend))
	if c.Conversion.Backend == "" {
		c.Conversion.Backend = defaultConversionBackend
	}
	c.Conversion.Command = strings.TrimSpace(c.Conversion.Command)
	if c.Conversion.Command == "" {
		c.Conversion.Command = defaultConversionCommand
	}
}

func (c *Config) normalizeCrop() {
	c.Crop.SmoothingQuality = strings.ToLower(strings.TrimSpace(c.Crop.SmoothingQuality))
	if c.Crop.SmoothingQuality == "" {
		c.Crop.SmoothingQuality = defaultCropSmoothingQuality
	}
}

func (c *Config) normalizeExport() {
	c.Export.CroppedName = strings.TrimSpace(c.Export.CroppedName)
	if c.Export.CroppedName == "" {
		c.Export.CroppedName = defaultExportCroppedName
	}
	c.Export.FinalName = strings.TrimSpace(c.Export.FinalName)
	if c.Export.FinalName == "" {
		c.Export.FinalName = defaultExportFinalName
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
