package loader

import (
	"io"

	"github.com/Carmen-Shannon/oxy-gear/engine/model"
)

// loaderBackend defines the generic interface for importing models from files or streams.
// Concrete implementations (e.g., gltfLoaderBackend) handle format-specific details.
type loaderBackend interface {
	// Import performs a full model import from the given file path.
	//
	// Parameters:
	//   - path: the file path to load
	//
	// Returns:
	//   - *model.Model: the imported model
	//   - error: error if loading fails
	Import(path string) (*model.Model, error)

	// ImportReader imports a model from a reader stream.
	//
	// Parameters:
	//   - name: the model name used when the asset does not name its scene
	//   - r: the reader providing model data
	//   - isGLB: true if the reader provides GLB binary data, false for text-based formats
	//
	// Returns:
	//   - *model.Model: the imported model
	//   - error: error if loading fails
	ImportReader(name string, r io.Reader, isGLB bool) (*model.Model, error)
}
