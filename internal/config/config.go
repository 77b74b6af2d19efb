// Package config holds engine and tool configuration loaded from YAML or TOML.
package config

import "time"

// Config is the root configuration.
type Config struct {
	GPU             GPUConfig             `yaml:"gpu" toml:"gpu"`
	ImageProcessing ImageProcessingConfig `yaml:"image_processing" toml:"image_processing"`
	Loader          LoaderConfig          `yaml:"loader" toml:"loader"`
	Animator        AnimatorConfig        `yaml:"animator" toml:"animator"`
	Bake            BakeConfig            `yaml:"bake" toml:"bake"`
	Logging         LoggingConfig         `yaml:"logging" toml:"logging"`
}

// GPUConfig selects the device the engine runs compute work on.
type GPUConfig struct {
	ForceFallbackAdapter bool `yaml:"force_fallback_adapter" toml:"force_fallback_adapter"`
	// Family is "generic" or "d3d12" and picks the layout rules used for barriers.
	Family string `yaml:"family" toml:"family"`
}

// ImageProcessingConfig controls the compute precompute passes.
type ImageProcessingConfig struct {
	// PipelineDir overrides the embedded pipeline descriptions when set.
	PipelineDir    string `yaml:"pipeline_dir" toml:"pipeline_dir"`
	FenceTimeoutMS int    `yaml:"fence_timeout_ms" toml:"fence_timeout_ms"`
	WatchPipelines bool   `yaml:"watch_pipelines" toml:"watch_pipelines"`
}

// FenceTimeout returns the fence wait as a duration.
func (c ImageProcessingConfig) FenceTimeout() time.Duration {
	return time.Duration(c.FenceTimeoutMS) * time.Millisecond
}

// LoaderConfig controls model import.
type LoaderConfig struct {
	// DuplicateNames is "warn" or "reject".
	DuplicateNames  string `yaml:"duplicate_names" toml:"duplicate_names"`
	DecodeWorkers   int    `yaml:"decode_workers" toml:"decode_workers"`
	GenerateMipMaps bool   `yaml:"generate_mipmaps" toml:"generate_mipmaps"`
}

// AnimatorConfig controls keyframe playback.
type AnimatorConfig struct {
	Looping bool `yaml:"looping" toml:"looping"`
}

// BakeConfig drives the gearbake tool.
type BakeConfig struct {
	Model   string `yaml:"model" toml:"model"`
	Env     string `yaml:"env" toml:"env"`
	OutSize int    `yaml:"out_size" toml:"out_size"`
	Levels  int    `yaml:"levels" toml:"levels"`
	LUTSize int    `yaml:"lut_size" toml:"lut_size"`
	Frames  int    `yaml:"frames" toml:"frames"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level" toml:"level"`
	LogFile string `yaml:"log_file" toml:"log_file"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		GPU: GPUConfig{
			Family: "generic",
		},
		ImageProcessing: ImageProcessingConfig{
			FenceTimeoutMS: 10000,
		},
		Loader: LoaderConfig{
			DuplicateNames:  "warn",
			DecodeWorkers:   4,
			GenerateMipMaps: true,
		},
		Animator: AnimatorConfig{
			Looping: true,
		},
		Bake: BakeConfig{
			OutSize: 512,
			Levels:  5,
			LUTSize: 512,
			Frames:  60,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
