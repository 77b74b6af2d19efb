// Package shader reflects WGSL compute shaders into the binding layouts the gpu package builds pipelines from.
package shader

import (
	"fmt"
	"io/fs"

	"github.com/Carmen-Shannon/oxy-gear/engine/gpu"
)

// shader is the implementation of the Shader interface.
type shader struct {
	key           string
	source        string
	entryPoint    string
	workgroupSize [3]uint32
	bindings      []gpu.BindingLayout
}

// Shader is a parsed WGSL compute shader.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used for caching and diagnostics.
	//
	// Returns:
	//   - string: the shader's key
	Key() string

	// Source retrieves the WGSL source code.
	//
	// Returns:
	//   - string: the WGSL source
	Source() string

	// EntryPoint retrieves the name of the @compute function.
	//
	// Returns:
	//   - string: the entry point name
	EntryPoint() string

	// WorkgroupSize retrieves the @workgroup_size of the entry point, with omitted dimensions set to 1.
	//
	// Returns:
	//   - [3]uint32: the workgroup size as [x, y, z]
	WorkgroupSize() [3]uint32

	// Bindings retrieves the resource bindings of group 0, sorted by binding index.
	//
	// Returns:
	//   - []gpu.BindingLayout: the binding layouts
	Bindings() []gpu.BindingLayout

	// PipelineDescriptor builds the descriptor a gpu.Device compiles this shader from.
	//
	// Parameters:
	//   - label: the pipeline label
	//
	// Returns:
	//   - gpu.ComputePipelineDescriptor: the pipeline descriptor
	PipelineDescriptor(label string) gpu.ComputePipelineDescriptor
}

var _ Shader = &shader{}

// NewShader parses WGSL source into a Shader.
//
// Parameters:
//   - key: the identifier for the shader
//   - source: the WGSL source code
//
// Returns:
//   - Shader: the parsed shader
//   - error: error if the source has no @compute entry point or uses unsupported bindings
func NewShader(key, source string) (Shader, error) {
	entry := parseEntryPoint(source)
	if entry == "" {
		return nil, fmt.Errorf("shader %s: no @compute entry point", key)
	}
	bindings, err := parseBindings(source)
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", key, err)
	}
	return &shader{
		key:           key,
		source:        source,
		entryPoint:    entry,
		workgroupSize: parseWorkgroupSize(source),
		bindings:      bindings,
	}, nil
}

// LoadShader reads and parses a WGSL file from fsys.
//
// Parameters:
//   - fsys: the file system to read from
//   - path: the slash-separated path of the WGSL file
//
// Returns:
//   - Shader: the parsed shader keyed by path
//   - error: error if the file cannot be read or parsed
func LoadShader(fsys fs.FS, path string) (Shader, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read shader %s: %w", path, err)
	}
	return NewShader(path, string(data))
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) WorkgroupSize() [3]uint32 {
	return s.workgroupSize
}

func (s *shader) Bindings() []gpu.BindingLayout {
	out := make([]gpu.BindingLayout, len(s.bindings))
	copy(out, s.bindings)
	return out
}

func (s *shader) PipelineDescriptor(label string) gpu.ComputePipelineDescriptor {
	return gpu.ComputePipelineDescriptor{
		Label:         label,
		Source:        s.source,
		EntryPoint:    s.entryPoint,
		Bindings:      s.Bindings(),
		WorkgroupSize: s.workgroupSize,
	}
}
