package loader

import (
	"github.com/Carmen-Shannon/oxy-gear/engine/gpu"
	"github.com/Carmen-Shannon/oxy-gear/engine/imageproc"
	"github.com/Carmen-Shannon/oxy-gear/engine/material"
	"github.com/Carmen-Shannon/oxy-gear/engine/model"
	"github.com/Carmen-Shannon/oxy-gear/internal/config"

	"go.uber.org/zap"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithRegistry is an option builder that injects the material registry. The loader
// does not release an injected registry.
//
// Parameters:
//   - r: the registry shared with other loaders or consumers
//
// Returns:
//   - LoaderBuilderOption: a function that applies the registry option to a loader
func WithRegistry(r *material.Registry) LoaderBuilderOption {
	return func(l *loader) {
		l.registry = r
	}
}

// WithDevice is an option builder that sets the device material textures are uploaded to.
//
// Parameters:
//   - d: the device
//
// Returns:
//   - LoaderBuilderOption: a function that applies the device option to a loader
func WithDevice(d gpu.Device) LoaderBuilderOption {
	return func(l *loader) {
		l.device = d
	}
}

// WithImageProcessing is an option builder that sets the image processing used to
// generate mip maps for uploaded textures.
//
// Parameters:
//   - ip: the image processing instance, on the same device as WithDevice
//
// Returns:
//   - LoaderBuilderOption: a function that applies the image processing option to a loader
func WithImageProcessing(ip imageproc.ImageProcessing) LoaderBuilderOption {
	return func(l *loader) {
		l.ip = ip
	}
}

// WithGenerateMipMaps is an option builder that toggles mip generation for uploaded
// textures. Defaults to true; has no effect without WithImageProcessing.
//
// Parameters:
//   - enabled: whether textures get a full mip chain
//
// Returns:
//   - LoaderBuilderOption: a function that applies the mip option to a loader
func WithGenerateMipMaps(enabled bool) LoaderBuilderOption {
	return func(l *loader) {
		l.mips = enabled
	}
}

// WithDecodeWorkers is an option builder that sets the number of texture decode workers.
//
// Parameters:
//   - n: the maximum number of concurrent decodes
//
// Returns:
//   - LoaderBuilderOption: a function that applies the worker option to a loader
func WithDecodeWorkers(n int) LoaderBuilderOption {
	return func(l *loader) {
		if n > 0 {
			l.decodeWorkers = n
		}
	}
}

// WithDuplicatePolicy is an option builder that sets how duplicate node names are handled.
//
// Parameters:
//   - p: DuplicateWarn or DuplicateReject
//
// Returns:
//   - LoaderBuilderOption: a function that applies the policy option to a loader
func WithDuplicatePolicy(p DuplicatePolicy) LoaderBuilderOption {
	return func(l *loader) {
		l.policy = p
	}
}

// WithConfig is an option builder that applies the loader section of the configuration.
// An unknown duplicate name policy falls back to DuplicateWarn.
//
// Parameters:
//   - cfg: the loader configuration
//
// Returns:
//   - LoaderBuilderOption: a function that applies the configuration to a loader
func WithConfig(cfg config.LoaderConfig) LoaderBuilderOption {
	return func(l *loader) {
		l.policy, _ = ParseDuplicatePolicy(cfg.DuplicateNames)
		l.mips = cfg.GenerateMipMaps
		if cfg.DecodeWorkers > 0 {
			l.decodeWorkers = cfg.DecodeWorkers
		}
	}
}

// WithLogger is an option builder that sets the logger.
//
// Parameters:
//   - log: the logger
//
// Returns:
//   - LoaderBuilderOption: a function that applies the logger option to a loader
func WithLogger(log *zap.Logger) LoaderBuilderOption {
	return func(l *loader) {
		if log != nil {
			l.log = log
		}
	}
}

// WithModel is an option builder that pre-populates the model cache with a model.
//
// Parameters:
//   - key: the cache key for the model
//   - m: the model to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the model option to a loader
func WithModel(key string, m *model.Model) LoaderBuilderOption {
	return func(l *loader) {
		l.modelCache[key] = m
	}
}
