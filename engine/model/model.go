// Package model holds a loaded scene as a node arena with its meshes and animations.
package model

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-gear/common"
)

// ErrInvalidTree is returned by Validate when the node arena is not a single tree.
var ErrInvalidTree = errors.New("model: invalid node tree")

// Model is a loaded scene. Nodes are stored in an arena and joined by NodeID.
// A model with no nodes is empty and is what the loader returns on failure.
type Model struct {
	Name       string
	Nodes      []Node
	Root       NodeID
	Meshes     []MeshData
	Animations []Animation
}

// NewModel creates a Model configured with the provided options.
//
// Parameters:
//   - options: variadic list of ModelBuilderOption functions to configure the model
//
// Returns:
//   - *Model: the new model
func NewModel(options ...ModelBuilderOption) *Model {
	m := &Model{Root: NoNode}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// Empty reports whether the model has no nodes.
func (m *Model) Empty() bool {
	return len(m.Nodes) == 0
}

// Node returns the node with the given id, or nil if the id is out of range.
func (m *Model) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(m.Nodes) {
		return nil
	}
	return &m.Nodes[id]
}

// FindNode returns the first node, in arena order, labelled name.
//
// Parameters:
//   - name: the label to look for
//
// Returns:
//   - NodeID: the node, or NoNode
//   - bool: true if a node was found
func (m *Model) FindNode(name string) (NodeID, bool) {
	for i := range m.Nodes {
		if m.Nodes[i].Name == name {
			return NodeID(i), true
		}
	}
	return NoNode, false
}

// HasMesh reports whether any mesh is attached to id.
func (m *Model) HasMesh(id NodeID) bool {
	n := m.Node(id)
	return n != nil && len(n.Meshes) > 0
}

// AnimationIndex returns the index of the animation named name, or -1.
func (m *Model) AnimationIndex(name string) int {
	for i := range m.Animations {
		if m.Animations[i].Name == name {
			return i
		}
	}
	return -1
}

// Walk visits the tree depth-first from the root, parents before children in child order.
// Returning false from fn skips the node's children.
//
// Parameters:
//   - fn: called with each node and its depth below the root
func (m *Model) Walk(fn func(n *Node, depth int) bool) {
	if m.Node(m.Root) == nil {
		return
	}
	var visit func(id NodeID, depth int)
	visit = func(id NodeID, depth int) {
		n := &m.Nodes[id]
		if !fn(n, depth) {
			return
		}
		for _, c := range n.Children {
			visit(c, depth+1)
		}
	}
	visit(m.Root, 0)
}

// WorldMatrix returns the product of the local matrices from the root down to id.
func (m *Model) WorldMatrix(id NodeID) [16]float32 {
	world := common.IdentityMatrix()
	for n := m.Node(id); n != nil; n = m.Node(n.Parent) {
		common.Mul4(world[:], n.Transform[:], world[:])
	}
	return world
}

// SetPose replaces the pose of a node and recomposes its local matrix.
//
// Parameters:
//   - id: the node
//   - pose: the new decomposed transform
func (m *Model) SetPose(id NodeID, pose Transform) {
	n := m.Node(id)
	if n == nil {
		return
	}
	n.Pose = pose
	n.Transform = pose.Matrix()
}

// Validate checks the tree invariants: ids match positions, exactly one root, parent and
// child links agree, every node is reachable from the root, and mesh indices are valid.
//
// Returns:
//   - error: an error wrapping ErrInvalidTree, or nil
func (m *Model) Validate() error {
	if m.Empty() {
		return nil
	}
	root := m.Node(m.Root)
	if root == nil {
		return fmt.Errorf("%w: root %d out of range", ErrInvalidTree, m.Root)
	}
	if root.Parent != NoNode {
		return fmt.Errorf("%w: root %q has a parent", ErrInvalidTree, root.Name)
	}

	for i := range m.Nodes {
		n := &m.Nodes[i]
		if n.ID != NodeID(i) {
			return fmt.Errorf("%w: node at %d has id %d", ErrInvalidTree, i, n.ID)
		}
		if n.Parent == NoNode && n.ID != m.Root {
			return fmt.Errorf("%w: second root %q", ErrInvalidTree, n.Name)
		}
		for _, c := range n.Children {
			child := m.Node(c)
			if child == nil || child.Parent != n.ID {
				return fmt.Errorf("%w: %q lists child %d that does not point back", ErrInvalidTree, n.Name, c)
			}
		}
		for _, mesh := range n.Meshes {
			if mesh < 0 || mesh >= len(m.Meshes) {
				return fmt.Errorf("%w: %q references mesh %d of %d", ErrInvalidTree, n.Name, mesh, len(m.Meshes))
			}
		}
	}

	seen := make([]bool, len(m.Nodes))
	count := 0
	cycle := false
	m.Walk(func(n *Node, _ int) bool {
		if seen[n.ID] {
			cycle = true
			return false
		}
		seen[n.ID] = true
		count++
		return true
	})
	if cycle {
		return fmt.Errorf("%w: cycle", ErrInvalidTree)
	}
	if count != len(m.Nodes) {
		return fmt.Errorf("%w: %d of %d nodes reachable from the root", ErrInvalidTree, count, len(m.Nodes))
	}
	return nil
}
