package model

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-gear/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func translation(x, y, z float32) [16]float32 {
	return common.ComposeTRS([3]float32{x, y, z}, common.QuatIdentity(), [3]float32{1, 1, 1})
}

func sampleTree(t *testing.T) *Model {
	t.Helper()
	b := NewTreeBuilder()
	root := b.Merge(NoNode, &Subtree{
		Name:      "Root",
		Transform: translation(1, 0, 0),
		Children: []*Subtree{
			{Name: "Body", Transform: translation(0, 2, 0), Meshes: []int{0}, Children: []*Subtree{
				{Name: "Arm", Transform: translation(0, 0, 3), Meshes: []int{1}},
			}},
			{Name: "Arm", Transform: common.IdentityMatrix()},
		},
	})
	nodes, gotRoot, err := b.Build()
	require.NoError(t, err)
	require.Equal(t, root, gotRoot)
	return NewModel(
		WithName("sample"),
		WithTree(nodes, gotRoot),
		WithMeshes(make([]MeshData, 2)),
	)
}

func TestTreeBuilderMerge(t *testing.T) {
	m := sampleTree(t)
	require.NoError(t, m.Validate())
	require.Len(t, m.Nodes, 4)

	assert.Equal(t, NodeID(0), m.Root)
	assert.Equal(t, []NodeID{1, 3}, m.Nodes[0].Children)
	assert.Equal(t, NodeID(1), m.Nodes[2].Parent)
	assert.Equal(t, []int{1}, m.Nodes[2].Meshes)
	assert.True(t, m.HasMesh(1))
	assert.False(t, m.HasMesh(3))
	assert.False(t, m.HasMesh(NoNode))
}

func TestTreeBuilderDuplicateNames(t *testing.T) {
	b := NewTreeBuilder()
	root := b.Add(NoNode, "Root", common.IdentityMatrix())
	b.Add(root, "Arm", common.IdentityMatrix())
	b.Add(root, "Arm", common.IdentityMatrix())
	b.Add(root, "Leg", common.IdentityMatrix())

	assert.Equal(t, map[string][]NodeID{"Arm": {1, 2}}, b.DuplicateNames())
	assert.Equal(t, 4, b.Len())
}

func TestTreeBuilderRoots(t *testing.T) {
	_, _, err := NewTreeBuilder().Build()
	assert.ErrorIs(t, err, ErrInvalidTree)

	b := NewTreeBuilder()
	b.Add(NoNode, "A", common.IdentityMatrix())
	b.Add(NoNode, "B", common.IdentityMatrix())
	_, _, err = b.Build()
	assert.ErrorIs(t, err, ErrInvalidTree)
}

func TestFindNodeReturnsFirstLabel(t *testing.T) {
	m := sampleTree(t)
	id, ok := m.FindNode("Arm")
	assert.True(t, ok)
	assert.Equal(t, NodeID(2), id)

	_, ok = m.FindNode("Tail")
	assert.False(t, ok)
}

func TestWalkOrder(t *testing.T) {
	m := sampleTree(t)
	var names []string
	var depths []int
	m.Walk(func(n *Node, depth int) bool {
		names = append(names, n.Name)
		depths = append(depths, depth)
		return n.Name != "Body"
	})
	assert.Equal(t, []string{"Root", "Body", "Arm"}, names)
	assert.Equal(t, []int{0, 1, 1}, depths)

	NewModel().Walk(func(*Node, int) bool {
		t.Fatal("empty model has no nodes")
		return true
	})
}

func TestWorldMatrix(t *testing.T) {
	m := sampleTree(t)
	w := m.WorldMatrix(2)
	assert.InDelta(t, 1, w[12], 1e-6)
	assert.InDelta(t, 2, w[13], 1e-6)
	assert.InDelta(t, 3, w[14], 1e-6)
}

func TestSetPose(t *testing.T) {
	m := sampleTree(t)
	pose := IdentityTransform()
	pose.Translation = [3]float32{5, 0, 0}
	m.SetPose(3, pose)
	assert.Equal(t, pose, m.Nodes[3].Pose)
	assert.Equal(t, float32(5), m.Nodes[3].Transform[12])

	m.SetPose(99, pose)
}

func TestValidateDetectsBrokenLinks(t *testing.T) {
	m := sampleTree(t)
	m.Nodes[3].Parent = 1
	assert.ErrorIs(t, m.Validate(), ErrInvalidTree)

	m = sampleTree(t)
	m.Nodes[1].Meshes = []int{7}
	assert.ErrorIs(t, m.Validate(), ErrInvalidTree)

	m = sampleTree(t)
	m.Nodes[3].Parent = NoNode
	assert.ErrorIs(t, m.Validate(), ErrInvalidTree)

	assert.NoError(t, NewModel().Validate())
	assert.True(t, NewModel().Empty())
}

func TestTransformRoundTrip(t *testing.T) {
	tr := Transform{
		Translation: [3]float32{1, 2, 3},
		Rotation:    common.QuatNormalize([4]float32{0, 0.7071068, 0, 0.7071068}),
		Scale:       [3]float32{2, 2, 2},
	}
	back := TransformFromMatrix(tr.Matrix())
	for i := 0; i < 3; i++ {
		assert.InDelta(t, tr.Translation[i], back.Translation[i], 1e-5)
		assert.InDelta(t, tr.Scale[i], back.Scale[i], 1e-5)
	}
	assert.InDelta(t, 1, math.Abs(float64(common.QuatDot(tr.Rotation, back.Rotation))), 1e-5)
}

func TestSortKeyframesIsStable(t *testing.T) {
	track := NodeAnimation{Keyframes: []Keyframe{
		{Time: 2},
		{Time: 1, Vector: [3]float32{1}},
		{Time: 1, Vector: [3]float32{2}},
		{Time: 0},
	}}
	track.SortKeyframes()
	assert.Equal(t, []float64{0, 1, 1, 2}, []float64{track.Keyframes[0].Time, track.Keyframes[1].Time, track.Keyframes[2].Time, track.Keyframes[3].Time})
	assert.Equal(t, float32(1), track.Keyframes[1].Vector[0])
	assert.Equal(t, float32(2), track.Keyframes[2].Vector[0])
}

func TestMeshValidateAndPack(t *testing.T) {
	mesh := MeshData{
		Name: "tri",
		Vertices: []Vertex{
			{Position: [4]float32{0, 0, 0, 1}, UV: [2]float32{0.5, 1}},
			{Position: [4]float32{1, -1, 0, 1}},
			{Position: [4]float32{0, 2, 4, 1}},
		},
		Indices: []uint32{0, 1, 2},
	}
	require.NoError(t, mesh.Validate())

	mesh.ComputeBounds()
	assert.Equal(t, [3]float32{0, -1, 0}, mesh.BoundingMin)
	assert.Equal(t, [3]float32{1, 2, 4}, mesh.BoundingMax)

	data := mesh.VertexData()
	require.Len(t, data, 3*VertexSize)
	assert.Equal(t, float32(1), math.Float32frombits(binary.LittleEndian.Uint32(data[12:16])))
	// uv follows position, normal, tangent, binormal and color
	assert.Equal(t, float32(0.5), math.Float32frombits(binary.LittleEndian.Uint32(data[80:84])))
	assert.Equal(t, data[:VertexSize], mesh.Vertices[0].Marshal())

	idx := mesh.IndexData()
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(idx[8:12]))

	mesh.Indices = []uint32{0, 1, 3}
	assert.Error(t, mesh.Validate())
	mesh.Indices = []uint32{0, 1}
	assert.Error(t, mesh.Validate())
}

func TestMeshValidateBoneWeights(t *testing.T) {
	mesh := MeshData{
		Name:     "skinned",
		Vertices: make([]Vertex, 3),
		Indices:  []uint32{0, 1, 2},
		Bones: []Bone{
			{Name: "hip", Node: 0, Weights: []VertexWeight{{Vertex: 0, Weight: 1}, {Vertex: 2, Weight: 0.5}}},
		},
	}
	require.NoError(t, mesh.Validate())

	mesh.Bones = append(mesh.Bones, Bone{Name: "knee", Node: 1, Weights: []VertexWeight{{Vertex: 3, Weight: 0.5}}})
	err := mesh.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "knee")
}
