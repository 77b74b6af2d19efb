// Package loader imports glTF 2.0 assets into node-tree models and registers their
// materials.
package loader

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-gear/engine/gpu"
	"github.com/Carmen-Shannon/oxy-gear/engine/imageproc"
	"github.com/Carmen-Shannon/oxy-gear/engine/material"
	"github.com/Carmen-Shannon/oxy-gear/engine/model"
	"github.com/Carmen-Shannon/oxy-gear/internal/logger"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"go.uber.org/zap"
)

var (
	// ErrLoadFailed wraps every error returned by Load and LoadReader.
	ErrLoadFailed = errors.New("loader: load failed")

	// ErrDuplicateNodeName is returned under DuplicateReject when two nodes share a name.
	ErrDuplicateNodeName = errors.New("loader: duplicate node name")

	errUnsupportedFormat = errors.New("unsupported model format")
)

// LoaderBackendType identifies the model file format backend to use.
type LoaderBackendType int

const (
	// BackendTypeGLTF selects the glTF/GLB loader backend.
	BackendTypeGLTF LoaderBackendType = iota
)

// DuplicatePolicy decides what happens when two nodes of one asset share a name.
type DuplicatePolicy int

const (
	// DuplicateWarn logs each duplicated name and loads the asset.
	DuplicateWarn DuplicatePolicy = iota
	// DuplicateReject fails the load with ErrDuplicateNodeName.
	DuplicateReject
)

// ParseDuplicatePolicy converts a config value ("warn" or "reject") to a policy.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch strings.ToLower(s) {
	case "", "warn":
		return DuplicateWarn, nil
	case "reject":
		return DuplicateReject, nil
	}
	return DuplicateWarn, fmt.Errorf("loader: unknown duplicate name policy %q", s)
}

// decodeQueueSize bounds the texture decode backlog.
const decodeQueueSize = 256

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	registry      *material.Registry
	ownsRegistry  bool
	device        gpu.Device
	ip            imageproc.ImageProcessing
	mips          bool
	decodeWorkers int
	policy        DuplicatePolicy
	log           *zap.Logger

	// pool lives as long as the loader; its workers do not exit on their own.
	pool worker.DynamicWorkerPool

	modelCache map[string]*model.Model

	backendType LoaderBackendType
	backend     loaderBackend
}

// Loader imports model files into node-tree models and caches them by path.
// Materials are shared across every model through the loader's Registry.
type Loader interface {
	// Load imports a .gltf or .glb file and caches the result by path.
	// If the model is already cached, the cached model is returned.
	// On failure the loader logs a warning and returns an empty model together with
	// an error wrapping ErrLoadFailed. Failed loads are not cached.
	//
	// Parameters:
	//   - path: the file path to the model file
	//
	// Returns:
	//   - *model.Model: the loaded model, or an empty model on failure
	//   - error: error wrapping ErrLoadFailed if loading fails
	Load(path string) (*model.Model, error)

	// LoadReader imports a model from a reader stream and caches it by the given name.
	// External URIs resolve against the working directory.
	//
	// Parameters:
	//   - name: the cache key and fallback model name
	//   - r: the reader providing model data
	//   - isGLB: true if the reader provides GLB binary data
	//
	// Returns:
	//   - *model.Model: the loaded model, or an empty model on failure
	//   - error: error wrapping ErrLoadFailed if loading fails
	LoadReader(name string, r io.Reader, isGLB bool) (*model.Model, error)

	// Get retrieves a cached model by name. Returns nil if not found.
	//
	// Parameters:
	//   - name: the cache key to look up
	//
	// Returns:
	//   - *model.Model: the cached model or nil
	Get(name string) *model.Model

	// Models returns a copy of the model cache.
	//
	// Returns:
	//   - map[string]*model.Model: all cached models keyed by path or name
	Models() map[string]*model.Model

	// Registry returns the material registry imports resolve through.
	Registry() *material.Registry

	// Release stops the decode workers and drops the cache. A registry created by the
	// loader is released with it; an injected one is left to its owner.
	Release()
}

var _ Loader = &loader{}

// NewLoader creates a new Loader instance with the specified backend type and options applied.
// Without WithRegistry the loader creates and owns its registry. Textures are only
// uploaded when WithDevice is given.
//
// Parameters:
//   - backendType: the type of loader backend to use (e.g., BackendTypeGLTF)
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader configured with the provided backend and options
func NewLoader(backendType LoaderBackendType, options ...LoaderBuilderOption) Loader {
	l := &loader{
		mu:            sync.RWMutex{},
		modelCache:    make(map[string]*model.Model),
		backendType:   backendType,
		decodeWorkers: 4,
		mips:          true,
		log:           logger.Named("loader"),
	}

	for _, option := range options {
		option(l)
	}

	if l.registry == nil {
		l.registry = material.NewRegistry()
		l.ownsRegistry = true
	}

	var decoder textureDecoder
	if l.device != nil {
		l.pool = worker.NewDynamicWorkerPool(max(l.decodeWorkers, 1), decodeQueueSize, 1*time.Second)
		decoder = newTextureDecoder(l.pool, l.device, l.ip, l.mips, l.log)
	}

	cfg := importConfig{
		registry: l.registry,
		decoder:  decoder,
		policy:   l.policy,
		log:      l.log,
	}
	switch backendType {
	case BackendTypeGLTF:
		l.backend = newGLTFLoaderBackend(cfg)
	default:
		panic(fmt.Sprintf("loader: unknown backend type %d", backendType))
	}
	return l
}

func (l *loader) Load(path string) (*model.Model, error) {
	if cached := l.Get(path); cached != nil {
		return cached, nil
	}

	name := modelNameFromPath(path)
	backend, err := l.resolveBackend(path)
	if err != nil {
		return l.fail(path, name, err)
	}

	m, err := backend.Import(path)
	if err != nil {
		return l.fail(path, name, err)
	}

	return l.store(path, m), nil
}

func (l *loader) LoadReader(name string, r io.Reader, isGLB bool) (*model.Model, error) {
	if cached := l.Get(name); cached != nil {
		return cached, nil
	}

	m, err := l.backend.ImportReader(name, r, isGLB)
	if err != nil {
		return l.fail(name, name, err)
	}

	return l.store(name, m), nil
}

func (l *loader) Get(name string) *model.Model {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.modelCache[name]
}

func (l *loader) Models() map[string]*model.Model {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make(map[string]*model.Model, len(l.modelCache))
	for k, v := range l.modelCache {
		result[k] = v
	}
	return result
}

func (l *loader) Registry() *material.Registry {
	return l.registry
}

func (l *loader) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pool != nil {
		l.pool.Stop()
		l.pool = nil
	}
	if l.ownsRegistry {
		l.registry.Release()
	}
	clear(l.modelCache)
}

// store caches m unless a concurrent load of the same key got there first, and returns
// the cached entry either way.
func (l *loader) store(key string, m *model.Model) *model.Model {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cached, ok := l.modelCache[key]; ok {
		return cached
	}
	l.modelCache[key] = m
	return m
}

// fail logs a failed load and returns the empty model callers receive in its place.
func (l *loader) fail(source, name string, err error) (*model.Model, error) {
	l.log.Warn("failed to load model", zap.String("source", source), zap.Error(err))
	return model.NewModel(model.WithName(name)), fmt.Errorf("%w: %s: %w", ErrLoadFailed, source, err)
}

// resolveBackend selects an appropriate loader backend based on the file extension.
// Currently only glTF/GLB is supported.
func (l *loader) resolveBackend(path string) (loaderBackend, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".gltf", ".glb":
		return l.backend, nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnsupportedFormat, ext)
	}
}

// modelNameFromPath returns the file name without its extension.
func modelNameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
