package imageproc

import (
	"io/fs"
	"os"
	"time"

	"github.com/Carmen-Shannon/oxy-gear/internal/logger"
	"go.uber.org/zap"
)

// DefaultFenceTimeout bounds every fence wait unless WithFenceTimeout overrides it.
const DefaultFenceTimeout = 10 * time.Second

// ImageProcessingBuilderOption is a function that configures ImageProcessing during construction.
type ImageProcessingBuilderOption func(*imageProcessing)

func (ip *imageProcessing) defaults() {
	ip.fenceTimeout = DefaultFenceTimeout
	ip.log = logger.Named("imageproc")
	ip.assets = embeddedAssets()
}

// WithFenceTimeout sets how long an operation waits for its fence.
// Non-positive values keep the default.
//
// Parameters:
//   - timeout: the fence timeout
//
// Returns:
//   - ImageProcessingBuilderOption: a function that applies the timeout option
func WithFenceTimeout(timeout time.Duration) ImageProcessingBuilderOption {
	return func(ip *imageProcessing) {
		if timeout > 0 {
			ip.fenceTimeout = timeout
		}
	}
}

// WithPipelineDir loads pipeline descriptions and shaders from a directory instead of the
// embedded defaults. The directory has the same layout: pipelines/*.yaml and the shaders
// they reference. An empty dir keeps the embedded assets.
//
// Parameters:
//   - dir: the pipeline directory
//
// Returns:
//   - ImageProcessingBuilderOption: a function that applies the directory option
func WithPipelineDir(dir string) ImageProcessingBuilderOption {
	return func(ip *imageProcessing) {
		if dir == "" {
			return
		}
		ip.pipelineDir = dir
		ip.assets = os.DirFS(dir)
	}
}

// WithPipelineFS loads pipeline descriptions and shaders from fsys.
//
// Parameters:
//   - fsys: the file system holding pipelines/*.yaml and the shaders
//
// Returns:
//   - ImageProcessingBuilderOption: a function that applies the file system option
func WithPipelineFS(fsys fs.FS) ImageProcessingBuilderOption {
	return func(ip *imageProcessing) {
		ip.assets = fsys
	}
}

// WithLogger sets the logger.
//
// Parameters:
//   - log: the logger
//
// Returns:
//   - ImageProcessingBuilderOption: a function that applies the logger option
func WithLogger(log *zap.Logger) ImageProcessingBuilderOption {
	return func(ip *imageProcessing) {
		if log != nil {
			ip.log = log
		}
	}
}
