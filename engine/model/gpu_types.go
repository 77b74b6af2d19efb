package model

import (
	"encoding/binary"
	"fmt"
	"math"
)

// VertexSize is the packed size of a Vertex in bytes.
const VertexSize = 96

// Vertex is one mesh vertex. Position has w=1; Normal, Tangent and Binormal have w=0.
type Vertex struct {
	Position [4]float32
	Normal   [4]float32
	Tangent  [4]float32
	Binormal [4]float32
	Color    [4]float32
	UV       [2]float32
}

// Marshal packs the vertex for GPU upload.
// Layout: position, normal, tangent, binormal, color (16 bytes each), uv (8 bytes), 8 bytes padding.
//
// Returns:
//   - []byte: a VertexSize byte buffer
func (v *Vertex) Marshal() []byte {
	buf := make([]byte, VertexSize)
	v.put(buf)
	return buf
}

func (v *Vertex) put(buf []byte) {
	off := 0
	for _, vec := range [][]float32{v.Position[:], v.Normal[:], v.Tangent[:], v.Binormal[:], v.Color[:], v.UV[:]} {
		for _, f := range vec {
			binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(f))
			off += 4
		}
	}
}

// VertexData packs every vertex of the mesh.
func (m *MeshData) VertexData() []byte {
	buf := make([]byte, len(m.Vertices)*VertexSize)
	for i := range m.Vertices {
		m.Vertices[i].put(buf[i*VertexSize:])
	}
	return buf
}

// IndexData packs the index list as little-endian uint32.
func (m *MeshData) IndexData() []byte {
	buf := make([]byte, len(m.Indices)*4)
	for i, idx := range m.Indices {
		binary.LittleEndian.PutUint32(buf[i*4:], idx)
	}
	return buf
}

// Validate checks that the indices form whole triangles over the vertex list and that
// every bone weight names a vertex of the mesh.
func (m *MeshData) Validate() error {
	if len(m.Indices)%3 != 0 {
		return fmt.Errorf("mesh %s: %d indices is not a triangle list", m.Name, len(m.Indices))
	}
	n := uint32(len(m.Vertices))
	for i, idx := range m.Indices {
		if idx >= n {
			return fmt.Errorf("mesh %s: index %d at %d out of range for %d vertices", m.Name, idx, i, n)
		}
	}
	for _, b := range m.Bones {
		for _, w := range b.Weights {
			if w.Vertex >= n {
				return fmt.Errorf("mesh %s: bone %s weights vertex %d of %d", m.Name, b.Name, w.Vertex, n)
			}
		}
	}
	return nil
}

// ComputeBounds sets BoundingMin and BoundingMax from the vertex positions.
func (m *MeshData) ComputeBounds() {
	if len(m.Vertices) == 0 {
		m.BoundingMin, m.BoundingMax = [3]float32{}, [3]float32{}
		return
	}
	lo := [3]float32{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	hi := [3]float32{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}
	for _, v := range m.Vertices {
		for a := 0; a < 3; a++ {
			lo[a] = min(lo[a], v.Position[a])
			hi[a] = max(hi[a], v.Position[a])
		}
	}
	m.BoundingMin, m.BoundingMax = lo, hi
}
