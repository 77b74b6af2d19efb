package model

import (
	"sort"

	"github.com/Carmen-Shannon/oxy-gear/common"
	"github.com/Carmen-Shannon/oxy-gear/engine/material"
)

// NodeID is an index into a model's node arena.
type NodeID int32

// NoNode marks the absence of a node, such as the parent of the root.
const NoNode NodeID = -1

// --- Transform ---

// Transform is a decomposed local transform.
type Transform struct {
	// Translation is the position offset.
	Translation [3]float32

	// Rotation is the orientation as a quaternion (x, y, z, w).
	Rotation [4]float32

	// Scale is the scale factor along each axis.
	Scale [3]float32
}

// IdentityTransform returns the transform that leaves points unchanged.
func IdentityTransform() Transform {
	return Transform{Rotation: common.QuatIdentity(), Scale: [3]float32{1, 1, 1}}
}

// TransformFromMatrix decomposes a column-major affine matrix.
func TransformFromMatrix(m [16]float32) Transform {
	t, r, s := common.DecomposeTRS(m)
	return Transform{Translation: t, Rotation: r, Scale: s}
}

// Matrix composes the transform into a column-major matrix.
func (t Transform) Matrix() [16]float32 {
	return common.ComposeTRS(t.Translation, t.Rotation, t.Scale)
}

// --- Node ---

// AnimationRef points at one track of one animation.
type AnimationRef struct {
	Animation int
	Track     int
}

// Node is one entry of a model's node arena.
type Node struct {
	ID NodeID

	// Name is a display label. Names are not unique and are never used for joins.
	Name string

	Parent   NodeID
	Children []NodeID

	// Transform is the local matrix, column-major.
	Transform [16]float32

	// Pose is Transform decomposed, kept in sync by SetPose.
	Pose Transform

	// Meshes are indices into Model.Meshes.
	Meshes []int

	// Animations are the tracks that target this node.
	Animations []AnimationRef
}

// --- Mesh ---

// VertexWeight is the influence of a bone on one vertex.
type VertexWeight struct {
	Vertex uint32
	Weight float32
}

// Bone binds a joint node to the vertices it deforms.
type Bone struct {
	Name string

	// Node is the joint node the bone follows.
	Node NodeID

	// InverseBind transforms from mesh space to bone space at bind pose.
	InverseBind [16]float32

	// Weights are the vertices with a non-zero weight for this bone.
	Weights []VertexWeight
}

// MeshData is one triangle list with its material.
type MeshData struct {
	Name string

	// Node is the node the mesh is attached to; NodeName is its label.
	Node     NodeID
	NodeName string

	Vertices []Vertex
	Indices  []uint32
	Bones    []Bone

	// Material is shared with every other mesh using the same material name.
	Material *material.Material

	BoundingMin [3]float32
	BoundingMax [3]float32
}

// --- Animation ---

// SequenceType is the kind of data an animation drives.
type SequenceType int

const (
	// SequenceAnimation drives node transforms.
	SequenceAnimation SequenceType = iota
	// SequenceMorph drives morph target weights, which the animator ignores.
	SequenceMorph
)

// TrackType is the transform component a track drives.
type TrackType int

const (
	TrackTranslation TrackType = iota
	TrackRotation
	TrackScale
)

func (t TrackType) String() string {
	switch t {
	case TrackTranslation:
		return "Translation"
	case TrackRotation:
		return "Rotation"
	case TrackScale:
		return "Scale"
	}
	return "Unknown"
}

// Keyframe is one sample of a track. Vector holds translation or scale, Rotation a
// quaternion (x, y, z, w).
type Keyframe struct {
	Time     float64
	Vector   [3]float32
	Rotation [4]float32
}

// NodeAnimation is the keyframes of one transform component of one node.
type NodeAnimation struct {
	// Name is the channel label, such as "Hips_Rotation".
	Name string

	Node     NodeID
	NodeName string

	Type      TrackType
	Keyframes []Keyframe
}

// SortKeyframes orders the keyframes by time, keeping the order of equal times.
func (a *NodeAnimation) SortKeyframes() {
	sort.SliceStable(a.Keyframes, func(i, j int) bool {
		return a.Keyframes[i].Time < a.Keyframes[j].Time
	})
}

// Animation is a named set of tracks sharing one clock.
type Animation struct {
	Name         string
	SequenceType SequenceType

	// Duration is the length in ticks.
	Duration float64

	// TicksPerSecond converts seconds to ticks. 0 means 1.
	TicksPerSecond float64

	Tracks []NodeAnimation
}
