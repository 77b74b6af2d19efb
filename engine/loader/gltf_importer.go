package loader

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-gear/common"
	"github.com/Carmen-Shannon/oxy-gear/engine/material"
	"github.com/Carmen-Shannon/oxy-gear/engine/model"

	"go.uber.org/zap"
)

var (
	errNoDocument      = errors.New("no document after parsing")
	errNoRootNode      = errors.New("scene has no root node")
	errIncompleteScene = errors.New("scene is incomplete")
)

// importConfig is the state shared by every import of one loader.
type importConfig struct {
	registry *material.Registry

	// decoder uploads material textures, nil when the loader has no device.
	decoder textureDecoder

	policy DuplicatePolicy
	log    *zap.Logger
}

// gltfImporterImpl is the implementation of the gltfImporter interface.
type gltfImporterImpl struct {
	parser gltfParser
	cfg    importConfig

	meshes    gltfMeshExtractor
	skeletons gltfSkeletonExtractor
	anims     gltfAnimationExtractor
}

// gltfImporter turns one parsed glTF document into a model.
type gltfImporter interface {
	// Import walks the default scene into a node tree, attaches one mesh per primitive,
	// extracts bones and animations and resolves materials through the registry.
	// Materials are only registered once everything else has succeeded.
	//
	// Parameters:
	//   - fallbackName: the model name used when the scene is unnamed
	//
	// Returns:
	//   - *model.Model: the imported model
	//   - error: error if the scene is incomplete, has no root or any part fails to import
	Import(fallbackName string) (*model.Model, error)
}

var _ gltfImporter = &gltfImporterImpl{}

// newGLTFImporter creates an importer for a parser that has already loaded a document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//   - cfg: the loader's shared import state
//
// Returns:
//   - gltfImporter: the importer
func newGLTFImporter(parser gltfParser, cfg importConfig) gltfImporter {
	return &gltfImporterImpl{
		parser:    parser,
		cfg:       cfg,
		meshes:    newGLTFMeshExtractor(parser, cfg.log),
		skeletons: newGLTFSkeletonExtractor(parser),
		anims:     newGLTFAnimationExtractor(parser, cfg.log),
	}
}

func (imp *gltfImporterImpl) Import(fallbackName string) (*model.Model, error) {
	doc := imp.parser.Document()
	if doc == nil {
		return nil, errNoDocument
	}
	if err := gltfCheckRequiredExtensions(doc); err != nil {
		return nil, err
	}

	roots, sceneName, err := gltfSceneRoots(doc)
	if err != nil {
		return nil, err
	}
	name := common.Coalesce(sceneName, fallbackName, "unnamed_model")

	// --- Node tree ---

	w := &sceneWalker{
		doc:    doc,
		meshes: imp.meshes,
		ids:    make(map[int]model.NodeID, len(doc.Nodes)),
	}
	tree, err := w.walkScene(name, roots)
	if err != nil {
		return nil, err
	}

	b := model.NewTreeBuilder()
	b.Merge(model.NoNode, tree)
	if b.Len() != int(w.next) {
		return nil, fmt.Errorf("%w: walked %d nodes but merged %d", model.ErrInvalidTree, w.next, b.Len())
	}
	if err := imp.checkDuplicates(b.DuplicateNames()); err != nil {
		return nil, err
	}
	nodes, root, err := b.Build()
	if err != nil {
		return nil, err
	}

	// --- Meshes ---

	meshes := make([]model.MeshData, len(w.placed))
	for i, p := range w.placed {
		mesh := &meshes[i]
		mesh.Name = p.data.name
		mesh.Node = p.node
		mesh.NodeName = p.nodeName
		mesh.Vertices = p.data.vertices
		mesh.Indices = p.data.indices

		if p.skin >= 0 && len(p.data.joints) > 0 {
			bones, err := imp.skeletons.ExtractBones(p.skin, p.data, w.ids)
			if err != nil {
				return nil, fmt.Errorf("mesh %q: %w", mesh.Name, err)
			}
			mesh.Bones = bones
		}

		if err := mesh.Validate(); err != nil {
			return nil, err
		}
		mesh.ComputeBounds()
	}

	// --- Animations ---

	animations, err := imp.anims.ExtractAll(nodes, w.ids)
	if err != nil {
		return nil, err
	}
	for a := range animations {
		for t, track := range animations[a].Tracks {
			n := &nodes[track.Node]
			n.Animations = append(n.Animations, model.AnimationRef{Animation: a, Track: t})
		}
	}

	// --- Materials ---

	var indices []int
	for _, p := range w.placed {
		if !slices.Contains(indices, p.data.material) {
			indices = append(indices, p.data.material)
		}
	}
	materials := newGLTFMaterialExtractor(imp.parser, imp.cfg.registry, imp.cfg.decoder, name, imp.cfg.log)
	resolved, err := materials.Resolve(indices)
	if err != nil {
		return nil, err
	}
	for i, p := range w.placed {
		meshes[i].Material = resolved[p.data.material]
	}

	m := model.NewModel(
		model.WithName(name),
		model.WithTree(nodes, root),
		model.WithMeshes(meshes),
		model.WithAnimations(animations),
	)
	if err := m.Validate(); err != nil {
		return nil, err
	}

	imp.cfg.log.Debug("imported model",
		zap.String("model", name),
		zap.Int("nodes", len(nodes)),
		zap.Int("meshes", len(meshes)),
		zap.Int("animations", len(animations)),
	)
	return m, nil
}

// checkDuplicates applies the duplicate name policy. Names are labels only, so the
// warning is informational; the reject policy fails on the first name in sorted order.
func (imp *gltfImporterImpl) checkDuplicates(dups map[string][]model.NodeID) error {
	if len(dups) == 0 {
		return nil
	}
	names := make([]string, 0, len(dups))
	for name := range dups {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		if imp.cfg.policy == DuplicateReject {
			return fmt.Errorf("%w: %q is used by %d nodes", ErrDuplicateNodeName, name, len(dups[name]))
		}
		imp.cfg.log.Warn("duplicate node name",
			zap.String("name", name),
			zap.Int("nodes", len(dups[name])),
		)
	}
	return nil
}

// --- Scene Walk ---

// placedPrimitive is a primitive attached to the node that owns its mesh.
type placedPrimitive struct {
	node     model.NodeID
	nodeName string

	// skin is the glTF skin of the owning node, or -1.
	skin int
	data *gltfPrimitiveData
}

// sceneWalker builds an owned subtree from the glTF node graph. Ids are handed out in
// pre-order, which is the order TreeBuilder.Merge appends nodes in.
type sceneWalker struct {
	doc    *gltfDocument
	meshes gltfMeshExtractor

	ids    map[int]model.NodeID
	next   model.NodeID
	placed []placedPrimitive
}

// walkScene walks every root. Several roots are attached to a synthetic root named name.
func (w *sceneWalker) walkScene(name string, roots []int) (*model.Subtree, error) {
	if len(roots) == 1 {
		return w.walk(roots[0])
	}

	sub := &model.Subtree{Name: name, Transform: common.IdentityMatrix()}
	w.next++
	for _, r := range roots {
		child, err := w.walk(r)
		if err != nil {
			return nil, err
		}
		sub.Children = append(sub.Children, child)
	}
	return sub, nil
}

func (w *sceneWalker) walk(nodeIdx int) (*model.Subtree, error) {
	if nodeIdx < 0 || nodeIdx >= len(w.doc.Nodes) {
		return nil, fmt.Errorf("node index %d out of range", nodeIdx)
	}
	if _, seen := w.ids[nodeIdx]; seen {
		return nil, fmt.Errorf("%w: node %d is reachable twice", model.ErrInvalidTree, nodeIdx)
	}
	id := w.next
	w.next++
	w.ids[nodeIdx] = id

	src := &w.doc.Nodes[nodeIdx]
	sub := &model.Subtree{
		Name:      gltfNodeName(w.doc, nodeIdx),
		Transform: gltfNodeMatrix(src),
	}

	if src.Mesh != nil {
		prims, err := w.meshes.ExtractMesh(*src.Mesh)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", sub.Name, err)
		}
		skin := -1
		if src.Skin != nil {
			skin = *src.Skin
		}
		for i := range prims {
			sub.Meshes = append(sub.Meshes, len(w.placed))
			w.placed = append(w.placed, placedPrimitive{
				node:     id,
				nodeName: sub.Name,
				skin:     skin,
				data:     &prims[i],
			})
		}
	}

	for _, c := range src.Children {
		child, err := w.walk(c)
		if err != nil {
			return nil, err
		}
		sub.Children = append(sub.Children, child)
	}
	return sub, nil
}

// --- Helper Functions ---

// gltfCheckRequiredExtensions fails when the asset requires an extension the loader cannot honor.
func gltfCheckRequiredExtensions(doc *gltfDocument) error {
	for _, ext := range doc.ExtensionsRequired {
		if !supportedExtensions[ext] {
			return fmt.Errorf("%w: unsupported required extension %s", errIncompleteScene, ext)
		}
	}
	return nil
}

// gltfSceneRoots returns the root nodes and name of the default scene. Documents
// without scenes use every node that is nobody's child.
func gltfSceneRoots(doc *gltfDocument) ([]int, string, error) {
	if len(doc.Scenes) > 0 {
		idx := 0
		if doc.Scene != nil {
			idx = *doc.Scene
		}
		if idx < 0 || idx >= len(doc.Scenes) {
			return nil, "", fmt.Errorf("default scene %d out of range", idx)
		}
		s := &doc.Scenes[idx]
		if len(s.Nodes) == 0 {
			return nil, "", errNoRootNode
		}
		return s.Nodes, s.Name, nil
	}

	hasParent := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			if c >= 0 && c < len(hasParent) {
				hasParent[c] = true
			}
		}
	}
	var roots []int
	for i, p := range hasParent {
		if !p {
			roots = append(roots, i)
		}
	}
	if len(roots) == 0 {
		return nil, "", errNoRootNode
	}
	return roots, "", nil
}
