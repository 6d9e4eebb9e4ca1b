package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"heicrop/internal/fileutil"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and socket configuration.
type Paths struct {
	ExportDir  string `toml:"export_dir"`
	LogDir     string `toml:"log_dir"`
	SocketPath string `toml:"socket_path"`
}

// Conversion contains configuration for HEIC to JPEG transcoding.
type Conversion struct {
	Backend        string  `toml:"backend"` // native | command
	Command        string  `toml:"command"`
	Quality        float64 `toml:"quality"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	MaxInputMiB    int     `toml:"max_input_mib"`
}

// Crop contains crop widget defaults and the rasterization settings used when
// a selection is applied.
type Crop struct {
	Quality          float64 `toml:"quality"`
	Smoothing        bool    `toml:"smoothing"`
	SmoothingQuality string  `toml:"smoothing_quality"`
	ShowGuides       bool    `toml:"show_guides"`
	FreeAspect       bool    `toml:"free_aspect"`
	// AspectRatio is width/height; only enforced when FreeAspect is false.
	AspectRatio     float64 `toml:"aspect_ratio"`
	InitialCoverage float64 `toml:"initial_coverage"`
	Movable         bool    `toml:"movable"`
	Zoomable        bool    `toml:"zoomable"`
	Rotatable       bool    `toml:"rotatable"`
	Scalable        bool    `toml:"scalable"`
}

// Export contains configuration for downloads.
type Export struct {
	Quality     float64 `toml:"quality"`
	CroppedName string  `toml:"cropped_name"`
	FinalName   string  `toml:"final_name"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for heicrop.
//
// Configuration sections by subsystem:
//   - Paths: export directory, log directory, session socket
//   - Conversion: transcoder backend, JPEG quality, limits
//   - Crop: widget defaults and rasterization quality
//   - Export: download quality and file names
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Conversion Conversion `toml:"conversion"`
	Crop       Crop       `toml:"crop"`
	Export     Export     `toml:"export"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path of the per-user config file.
func DefaultConfigPath() (string, error) {
	return ExpandPath(defaultConfigPath)
}

// Load reads the config at path, or the first existing candidate when path is
// empty: the per-user file, then ./heicrop.toml. A missing file is not an
// error; defaults apply and exists is false. Unknown keys are rejected.
func Load(path string) (cfg *Config, resolved string, exists bool, err error) {
	resolved, exists, err = locate(path)
	if err != nil {
		return nil, "", false, err
	}

	loaded := Default()
	if exists {
		data, err := os.ReadFile(resolved)
		if err != nil {
			return nil, "", false, fmt.Errorf("read config: %w", err)
		}
		if err := decode(data, &loaded); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolved, err)
		}
	}
	if err := loaded.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := loaded.Validate(); err != nil {
		return nil, "", false, err
	}
	return &loaded, resolved, exists, nil
}

func decode(data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	err := dec.Decode(cfg)

	var strict *toml.StrictMissingError
	var syntax *toml.DecodeError
	switch {
	case errors.As(err, &strict):
		return errors.New(strings.TrimSpace(strict.String()))
	case errors.As(err, &syntax):
		row, col := syntax.Position()
		return fmt.Errorf("line %d column %d: %w", row, col, err)
	}
	return err
}

func locate(path string) (string, bool, error) {
	candidates := []string{path}
	if path == "" {
		candidates = []string{defaultConfigPath, projectConfigName}
	}
	var first string
	for i, candidate := range candidates {
		expanded, err := ExpandPath(candidate)
		if err != nil {
			return "", false, err
		}
		if i == 0 {
			first = expanded
		}
		info, err := os.Stat(expanded)
		switch {
		case err == nil && !info.IsDir():
			return expanded, true, nil
		case err != nil && !errors.Is(err, fs.ErrNotExist):
			return "", false, fmt.Errorf("stat config: %w", err)
		}
	}
	return first, false, nil
}

// EnsureDirectories creates the directories the session host writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.ExportDir, c.Paths.LogDir}
	if c.Paths.SocketPath != "" {
		dirs = append(dirs, filepath.Dir(c.Paths.SocketPath))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath returns the single-instance lock file that sits next to the socket.
func (c *Config) LockPath() string {
	return c.Paths.SocketPath + ".lock"
}

// ConversionTimeout returns the transcode deadline.
func (c *Config) ConversionTimeout() time.Duration {
	return time.Duration(c.Conversion.TimeoutSeconds) * time.Second
}

// MaxInputBytes returns the largest accepted upload in bytes.
func (c *Config) MaxInputBytes() int64 {
	return int64(c.Conversion.MaxInputMiB) << 20
}

// ConverterBinary returns the external transcoder executable name.
func (c *Config) ConverterBinary() string {
	if cmd := strings.TrimSpace(c.Conversion.Command); cmd != "" {
		return cmd
	}
	return defaultConversionCommand
}

// ExpandPath resolves a leading "~" and makes the path absolute. An empty
// path stays empty.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", path, err)
	}
	return abs, nil
}

// CreateSample writes the commented sample configuration to path.
func CreateSample(path string) error {
	return fileutil.WriteFileAtomic(path, []byte(sampleConfig), 0o644)
}
