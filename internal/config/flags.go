package config

import "flag"

var (
	flagConfig    = flag.String("config", "", "Path to config file (.yaml or .toml)")
	flagDebug     = flag.Bool("debug", false, "Enable debug logging")
	flagModel     = flag.String("model", "", "Model file to load (.gltf or .glb)")
	flagEnv       = flag.String("env", "", "Equirectangular environment image to bake")
	flagOutSize   = flag.Int("out-size", 0, "Cube face size for baked environment maps")
	flagLevels    = flag.Int("levels", 0, "Specular prefilter mip levels")
	flagPipelines = flag.String("pipelines", "", "Directory with pipeline descriptions overriding the embedded ones")
	flagFallback  = flag.Bool("fallback-adapter", false, "Force the software fallback adapter")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via -config.
func ConfigPath() string {
	return *flagConfig
}

func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagModel != "" {
		cfg.Bake.Model = *flagModel
	}
	if *flagEnv != "" {
		cfg.Bake.Env = *flagEnv
	}
	if *flagOutSize > 0 {
		cfg.Bake.OutSize = *flagOutSize
	}
	if *flagLevels > 0 {
		cfg.Bake.Levels = *flagLevels
	}
	if *flagPipelines != "" {
		cfg.ImageProcessing.PipelineDir = *flagPipelines
	}
	if *flagFallback {
		cfg.GPU.ForceFallbackAdapter = true
	}
}
