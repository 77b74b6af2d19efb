package model

import "fmt"

// ModelBuilderOption is a functional option for configuring a Model via NewModel.
type ModelBuilderOption func(*Model)

// WithName is an option builder that sets the name of the Model.
//
// Parameters:
//   - name: the model identifier
//
// Returns:
//   - ModelBuilderOption: a function that applies the name option to a model
func WithName(name string) ModelBuilderOption {
	return func(m *Model) {
		m.Name = name
	}
}

// WithTree is an option builder that sets the node arena and its root.
//
// Parameters:
//   - nodes: the node arena
//   - root: the root node
//
// Returns:
//   - ModelBuilderOption: a function that applies the tree option to a model
func WithTree(nodes []Node, root NodeID) ModelBuilderOption {
	return func(m *Model) {
		m.Nodes = nodes
		m.Root = root
	}
}

// WithMeshes is an option builder that sets the mesh list.
//
// Parameters:
//   - meshes: the meshes, indexed by Node.Meshes
//
// Returns:
//   - ModelBuilderOption: a function that applies the meshes option to a model
func WithMeshes(meshes []MeshData) ModelBuilderOption {
	return func(m *Model) {
		m.Meshes = meshes
	}
}

// WithAnimations is an option builder that sets the animations.
//
// Parameters:
//   - animations: the animations
//
// Returns:
//   - ModelBuilderOption: a function that applies the animations option to a model
func WithAnimations(animations []Animation) ModelBuilderOption {
	return func(m *Model) {
		m.Animations = animations
	}
}

// --- Tree Builder ---

// Subtree is an owned node hierarchy produced by an importer before it is merged into an
// arena.
type Subtree struct {
	Name      string
	Transform [16]float32
	Meshes    []int
	Children  []*Subtree
}

// TreeBuilder assembles a node arena. Nodes are appended depth-first, so a parent always
// precedes its children.
type TreeBuilder struct {
	nodes []Node
}

// NewTreeBuilder creates an empty builder.
func NewTreeBuilder() *TreeBuilder {
	return &TreeBuilder{}
}

// Add appends a node under parent, or a root when parent is NoNode.
//
// Parameters:
//   - parent: the parent node, or NoNode
//   - name: the node label
//   - transform: the local matrix
//
// Returns:
//   - NodeID: the new node
func (b *TreeBuilder) Add(parent NodeID, name string, transform [16]float32) NodeID {
	id := NodeID(len(b.nodes))
	b.nodes = append(b.nodes, Node{
		ID:        id,
		Name:      name,
		Parent:    parent,
		Transform: transform,
		Pose:      TransformFromMatrix(transform),
	})
	if parent != NoNode {
		b.nodes[parent].Children = append(b.nodes[parent].Children, id)
	}
	return id
}

// Merge appends an owned subtree under parent, depth-first.
//
// Parameters:
//   - parent: the node to attach to, or NoNode for a root
//   - sub: the subtree
//
// Returns:
//   - NodeID: the node created for sub itself
func (b *TreeBuilder) Merge(parent NodeID, sub *Subtree) NodeID {
	id := b.Add(parent, sub.Name, sub.Transform)
	b.nodes[id].Meshes = append(b.nodes[id].Meshes, sub.Meshes...)
	for _, c := range sub.Children {
		b.Merge(id, c)
	}
	return id
}

// Len returns the number of nodes added so far.
func (b *TreeBuilder) Len() int {
	return len(b.nodes)
}

// DuplicateNames returns every label used by more than one node, with the nodes using it.
func (b *TreeBuilder) DuplicateNames() map[string][]NodeID {
	byName := make(map[string][]NodeID)
	for _, n := range b.nodes {
		byName[n.Name] = append(byName[n.Name], n.ID)
	}
	for name, ids := range byName {
		if len(ids) < 2 {
			delete(byName, name)
		}
	}
	return byName
}

// Build returns the arena and its root. It fails unless exactly one root was added.
//
// Returns:
//   - []Node: the node arena
//   - NodeID: the root
//   - error: error if there is no root or more than one
func (b *TreeBuilder) Build() ([]Node, NodeID, error) {
	root := NoNode
	for _, n := range b.nodes {
		if n.Parent != NoNode {
			continue
		}
		if root != NoNode {
			return nil, NoNode, fmt.Errorf("%w: roots %q and %q", ErrInvalidTree, b.nodes[root].Name, n.Name)
		}
		root = n.ID
	}
	if root == NoNode {
		return nil, NoNode, fmt.Errorf("%w: no root", ErrInvalidTree)
	}
	return b.nodes, root, nil
}
