package loader

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-gear/common"
	"github.com/Carmen-Shannon/oxy-gear/engine/model"

	"go.uber.org/zap"
)

// errUnsupportedPrimitive is returned for point and line topologies.
var errUnsupportedPrimitive = errors.New("unsupported primitive mode")

// gltfPrimitiveData is one triangulated primitive before it is attached to a node.
type gltfPrimitiveData struct {
	name     string
	vertices []model.Vertex
	indices  []uint32

	// material is the glTF material index, or -1 for the default material.
	material int

	// joints and weights are per vertex, nil for unskinned primitives.
	joints  [][4]uint32
	weights [][4]float32
}

// gltfMeshExtractorImpl is the implementation of the gltfMeshExtractor interface.
type gltfMeshExtractorImpl struct {
	parser gltfParser
	log    *zap.Logger

	mu    sync.Mutex
	cache map[int][]gltfPrimitiveData
}

// gltfMeshExtractor converts glTF meshes into triangle lists with a full tangent frame.
type gltfMeshExtractor interface {
	// ExtractMesh extracts every supported primitive of a mesh. Point and line primitives
	// are skipped with a warning. Results are cached per mesh index, so nodes sharing a
	// mesh share its vertex and index slices.
	//
	// Parameters:
	//   - meshIndex: the index of the mesh to extract
	//
	// Returns:
	//   - []gltfPrimitiveData: one entry per supported primitive
	//   - error: error if an accessor cannot be read
	ExtractMesh(meshIndex int) ([]gltfPrimitiveData, error)
}

var _ gltfMeshExtractor = &gltfMeshExtractorImpl{}

// newGLTFMeshExtractor creates a new mesh extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//   - log: logger for skipped primitives
//
// Returns:
//   - gltfMeshExtractor: the mesh extractor
func newGLTFMeshExtractor(parser gltfParser, log *zap.Logger) gltfMeshExtractor {
	return &gltfMeshExtractorImpl{
		parser: parser,
		log:    log,
		cache:  make(map[int][]gltfPrimitiveData),
	}
}

func (e *gltfMeshExtractorImpl) ExtractMesh(meshIndex int) ([]gltfPrimitiveData, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if cached, ok := e.cache[meshIndex]; ok {
		return cached, nil
	}

	doc := e.parser.Document()
	if meshIndex < 0 || meshIndex >= len(doc.Meshes) {
		return nil, fmt.Errorf("mesh index %d out of range", meshIndex)
	}

	mesh := &doc.Meshes[meshIndex]
	result := make([]gltfPrimitiveData, 0, len(mesh.Primitives))
	for primIdx := range mesh.Primitives {
		prim, err := e.extractPrimitive(&mesh.Primitives[primIdx])
		if errors.Is(err, errUnsupportedPrimitive) {
			e.log.Warn("skipping primitive",
				zap.String("mesh", mesh.Name),
				zap.Int("primitive", primIdx),
				zap.Error(err),
			)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("mesh %d primitive %d: %w", meshIndex, primIdx, err)
		}

		prim.name = mesh.Name
		if prim.name == "" {
			prim.name = fmt.Sprintf("mesh_%d", meshIndex)
		}
		if primIdx > 0 {
			prim.name = fmt.Sprintf("%s_prim%d", prim.name, primIdx)
		}
		result = append(result, *prim)
	}

	e.cache[meshIndex] = result
	return result, nil
}

// extractPrimitive reads, triangulates and completes one primitive.
func (e *gltfMeshExtractorImpl) extractPrimitive(prim *gltfPrimitive) (*gltfPrimitiveData, error) {
	mode := gltfModeTriangles
	if prim.Mode != nil {
		mode = *prim.Mode
	}
	if mode != gltfModeTriangles && mode != gltfModeTriangleStrip && mode != gltfModeTriangleFan {
		return nil, fmt.Errorf("%w: %d", errUnsupportedPrimitive, mode)
	}

	posAccessor, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil, fmt.Errorf("primitive has no POSITION attribute")
	}
	flat, err := e.parser.ReadFloats(posAccessor, gltfTypeVec3)
	if err != nil {
		return nil, fmt.Errorf("failed to read positions: %w", err)
	}
	positions := toVec3(flat)
	count := len(positions)

	var indices []uint32
	if prim.Indices != nil {
		if indices, err = e.parser.ReadIndices(*prim.Indices); err != nil {
			return nil, fmt.Errorf("failed to read indices: %w", err)
		}
	} else {
		indices = make([]uint32, count)
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	if indices, err = triangulate(mode, indices); err != nil {
		return nil, err
	}

	uvs := make([][2]float32, count)
	if a, ok := prim.Attributes["TEXCOORD_0"]; ok {
		if flat, err = e.parser.ReadFloats(a, gltfTypeVec2); err != nil {
			return nil, fmt.Errorf("failed to read texcoords: %w", err)
		}
		copy(uvs, toVec2(flat))
	}

	var normals [][3]float32
	if a, ok := prim.Attributes["NORMAL"]; ok {
		if flat, err = e.parser.ReadFloats(a, gltfTypeVec3); err != nil {
			return nil, fmt.Errorf("failed to read normals: %w", err)
		}
		normals = make([][3]float32, count)
		copy(normals, toVec3(flat))
	} else {
		normals = generateNormals(positions, indices)
	}

	var tangents [][4]float32
	if a, ok := prim.Attributes["TANGENT"]; ok {
		if flat, err = e.parser.ReadFloats(a, gltfTypeVec4); err != nil {
			return nil, fmt.Errorf("failed to read tangents: %w", err)
		}
		tangents = make([][4]float32, count)
		copy(tangents, toVec4(flat))
	} else {
		// generated from the file's UVs, before the flip below
		tangents = generateTangents(positions, normals, uvs, indices)
	}

	colors, err := e.readColors(prim)
	if err != nil {
		return nil, err
	}

	out := &gltfPrimitiveData{
		vertices: make([]model.Vertex, count),
		indices:  indices,
		material: -1,
	}
	if prim.Material != nil {
		out.material = *prim.Material
	}

	for i := range count {
		n := normals[i]
		t := tangents[i]
		b := common.Cross3(n, [3]float32{t[0], t[1], t[2]})
		handedness := t[3]
		if handedness == 0 {
			handedness = 1
		}

		v := &out.vertices[i]
		v.Position = [4]float32{positions[i][0], positions[i][1], positions[i][2], 1}
		v.Normal = [4]float32{n[0], n[1], n[2], 0}
		v.Tangent = [4]float32{t[0], t[1], t[2], handedness}
		v.Binormal = [4]float32{b[0] * handedness, b[1] * handedness, b[2] * handedness, 0}
		v.Color = [4]float32{1, 1, 1, 1}
		if i < len(colors) {
			v.Color = colors[i]
		}
		v.UV = [2]float32{uvs[i][0], 1 - uvs[i][1]}
	}

	if a, ok := prim.Attributes["JOINTS_0"]; ok {
		if out.joints, err = e.parser.ReadJoints(a); err != nil {
			return nil, fmt.Errorf("failed to read joints: %w", err)
		}
		if w, ok := prim.Attributes["WEIGHTS_0"]; ok {
			if flat, err = e.parser.ReadFloats(w, gltfTypeVec4); err != nil {
				return nil, fmt.Errorf("failed to read weights: %w", err)
			}
			out.weights = toVec4(flat)
		}
	}

	return out, nil
}

// readColors reads COLOR_0 as RGBA. RGB colors get an alpha of 1.
func (e *gltfMeshExtractorImpl) readColors(prim *gltfPrimitive) ([][4]float32, error) {
	a, ok := prim.Attributes["COLOR_0"]
	if !ok {
		return nil, nil
	}

	if flat, err := e.parser.ReadFloats(a, gltfTypeVec4); err == nil {
		return toVec4(flat), nil
	}
	flat, err := e.parser.ReadFloats(a, gltfTypeVec3)
	if err != nil {
		return nil, fmt.Errorf("failed to read colors: %w", err)
	}
	rgb := toVec3(flat)
	colors := make([][4]float32, len(rgb))
	for i, c := range rgb {
		colors[i] = [4]float32{c[0], c[1], c[2], 1}
	}
	return colors, nil
}

// triangulate converts strip and fan index lists into triangle lists.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#meshes-overview
func triangulate(mode int, indices []uint32) ([]uint32, error) {
	n := len(indices)
	switch mode {
	case gltfModeTriangles:
		if n%3 != 0 {
			return nil, fmt.Errorf("triangle list of %d indices", n)
		}
		return indices, nil
	case gltfModeTriangleStrip:
		out := make([]uint32, 0, max(n-2, 0)*3)
		for i := 0; i+2 < n; i++ {
			out = append(out, indices[i], indices[i+1+i%2], indices[i+2-i%2])
		}
		return out, nil
	case gltfModeTriangleFan:
		out := make([]uint32, 0, max(n-2, 0)*3)
		for i := 0; i+2 < n; i++ {
			out = append(out, indices[i+1], indices[i+2], indices[0])
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %d", errUnsupportedPrimitive, mode)
}

// generateNormals computes smooth vertex normals by accumulating area-weighted face normals
// onto each vertex of a triangle.
//
// Parameters:
//   - positions: vertex positions
//   - indices: a triangle list
//
// Returns:
//   - [][3]float32: one unit normal per vertex, +Y where degenerate
func generateNormals(positions [][3]float32, indices []uint32) [][3]float32 {
	n := len(positions)
	accum := make([][3]float32, n)

	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		if int(i0) >= n || int(i1) >= n || int(i2) >= n {
			continue
		}

		p0, p1, p2 := positions[i0], positions[i1], positions[i2]
		edge1 := [3]float32{p1[0] - p0[0], p1[1] - p0[1], p1[2] - p0[2]}
		edge2 := [3]float32{p2[0] - p0[0], p2[1] - p0[1], p2[2] - p0[2]}
		face := common.Cross3(edge1, edge2)

		for _, idx := range []uint32{i0, i1, i2} {
			accum[idx][0] += face[0]
			accum[idx][1] += face[1]
			accum[idx][2] += face[2]
		}
	}

	for i := range accum {
		if common.Length3(accum[i]) < 1e-6 {
			accum[i] = [3]float32{0, 1, 0}
			continue
		}
		accum[i] = common.Normalize3(accum[i])
	}
	return accum
}

// generateTangents computes per-vertex tangents from per-triangle UV gradients, then
// orthonormalizes them against the normal. W holds the handedness (±1).
//
// Parameters:
//   - positions: vertex positions
//   - normals: unit vertex normals
//   - uvs: texture coordinates
//   - indices: a triangle list
//
// Returns:
//   - [][4]float32: one tangent per vertex, +X where degenerate
func generateTangents(positions, normals [][3]float32, uvs [][2]float32, indices []uint32) [][4]float32 {
	n := len(positions)
	tan := make([][3]float32, n)
	btan := make([][3]float32, n)

	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		if int(i0) >= n || int(i1) >= n || int(i2) >= n {
			continue
		}

		p0, p1, p2 := positions[i0], positions[i1], positions[i2]
		uv0, uv1, uv2 := uvs[i0], uvs[i1], uvs[i2]

		edge1 := [3]float32{p1[0] - p0[0], p1[1] - p0[1], p1[2] - p0[2]}
		edge2 := [3]float32{p2[0] - p0[0], p2[1] - p0[1], p2[2] - p0[2]}
		duv1 := [2]float32{uv1[0] - uv0[0], uv1[1] - uv0[1]}
		duv2 := [2]float32{uv2[0] - uv0[0], uv2[1] - uv0[1]}

		det := duv1[0]*duv2[1] - duv1[1]*duv2[0]
		if det == 0 {
			continue
		}
		r := 1 / det

		t := [3]float32{
			r * (duv2[1]*edge1[0] - duv1[1]*edge2[0]),
			r * (duv2[1]*edge1[1] - duv1[1]*edge2[1]),
			r * (duv2[1]*edge1[2] - duv1[1]*edge2[2]),
		}
		b := [3]float32{
			r * (duv1[0]*edge2[0] - duv2[0]*edge1[0]),
			r * (duv1[0]*edge2[1] - duv2[0]*edge1[1]),
			r * (duv1[0]*edge2[2] - duv2[0]*edge1[2]),
		}

		for _, idx := range []uint32{i0, i1, i2} {
			for c := range 3 {
				tan[idx][c] += t[c]
				btan[idx][c] += b[c]
			}
		}
	}

	out := make([][4]float32, n)
	for i := range out {
		normal := normals[i]
		t := tan[i]

		// Gram-Schmidt: T' = normalize(T - N * dot(N, T))
		d := common.Dot3(normal, t)
		ortho := [3]float32{t[0] - normal[0]*d, t[1] - normal[1]*d, t[2] - normal[2]*d}
		if common.Length3(ortho) < 1e-6 {
			out[i] = [4]float32{1, 0, 0, 1}
			continue
		}
		ortho = common.Normalize3(ortho)

		w := float32(1)
		if common.Dot3(common.Cross3(normal, ortho), btan[i]) < 0 {
			w = -1
		}
		out[i] = [4]float32{ortho[0], ortho[1], ortho[2], w}
	}
	return out
}
