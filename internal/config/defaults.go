package config

const (
	defaultConfigPath           = "~/.config/heicrop/config.toml"
	projectConfigName           = "heicrop.toml"
	defaultExportDir            = "~/Pictures/heicrop"
	defaultLogDir               = "~/.local/share/heicrop/logs"
	defaultSocketPath           = "~/.local/share/heicrop/heicrop.sock"
	defaultConversionBackend    = BackendNative
	defaultConversionCommand    = "heif-convert"
	defaultConversionQuality    = 0.8
	defaultConversionTimeout    = 120
	defaultMaxInputMiB          = 64
	defaultCropQuality          = 0.9
	defaultCropSmoothingQuality = "high"
	defaultCropInitialCoverage  = 1.0
	defaultExportQuality        = 0.9
	defaultExportCroppedName    = "cropped-image.jpg"
	defaultExportFinalName      = "final-image.jpg"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	envExportDir                = "HEICROP_EXPORT_DIR"
	envLogLevel                 = "HEICROP_LOG_LEVEL"
)

// Transcoder backends.
const (
	BackendNative  = "native"
	BackendCommand = "command"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ExportDir:  defaultExportDir,
			LogDir:     defaultLogDir,
			SocketPath: defaultSocketPath,
		},
		Conversion: Conversion{
			Backend:        defaultConversionBackend,
			Command:        defaultConversionCommand,
			Quality:        defaultConversionQuality,
			TimeoutSeconds: defaultConversionTimeout,
			MaxInputMiB:    defaultMaxInputMiB,
		},
		Crop: Crop{
			Quality:          defaultCropQuality,
			Smoothing:        true,
			SmoothingQuality: defaultCropSmoothingQuality,
			ShowGuides:       true,
			FreeAspect:       true,
			InitialCoverage:  defaultCropInitialCoverage,
			Movable:          true,
			Zoomable:         true,
			Rotatable:        true,
			Scalable:         true,
		},
		Export: Export{
			Quality:     defaultExportQuality,
			CroppedName: defaultExportCroppedName,
			FinalName:   defaultExportFinalName,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
