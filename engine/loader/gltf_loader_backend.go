package loader

import (
	"fmt"
	"io"

	"github.com/Carmen-Shannon/oxy-gear/engine/model"
)

// gltfLoaderBackendImpl is the implementation of gltfLoaderBackend.
type gltfLoaderBackendImpl struct {
	cfg importConfig
}

// gltfLoaderBackend is a loaderBackend implementation for glTF/GLB files.
// Every import gets its own parser and importer, so imports may run concurrently.
type gltfLoaderBackend interface {
	loaderBackend
}

var _ gltfLoaderBackend = &gltfLoaderBackendImpl{}

// newGLTFLoaderBackend creates a new glTF loader backend.
//
// Parameters:
//   - cfg: the import state shared with the owning loader
//
// Returns:
//   - gltfLoaderBackend: the loader backend for glTF/GLB files
func newGLTFLoaderBackend(cfg importConfig) gltfLoaderBackend {
	return &gltfLoaderBackendImpl{cfg: cfg}
}

func (b *gltfLoaderBackendImpl) Import(path string) (*model.Model, error) {
	parser := newGLTFParser()
	if err := parser.Parse(path); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return newGLTFImporter(parser, b.cfg).Import(modelNameFromPath(path))
}

func (b *gltfLoaderBackendImpl) ImportReader(name string, r io.Reader, isGLB bool) (*model.Model, error) {
	parser := newGLTFParser()
	if err := parser.ParseReader(r, isGLB); err != nil {
		return nil, fmt.Errorf("failed to parse from reader: %w", err)
	}
	return newGLTFImporter(parser, b.cfg).Import(name)
}
