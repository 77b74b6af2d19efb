package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-gear/common"
	"github.com/Carmen-Shannon/oxy-gear/engine/model"
)

// gltfSkeletonExtractorImpl is the implementation of the gltfSkeletonExtractor interface.
type gltfSkeletonExtractorImpl struct {
	parser gltfParser

	// inverseBinds caches the inverse bind matrices per skin.
	inverseBinds map[int][][16]float32
}

// gltfSkeletonExtractor builds per-mesh bone lists from glTF skins.
type gltfSkeletonExtractor interface {
	// ExtractBones creates one bone per joint of a skin, holding the joint's inverse bind
	// matrix and every (vertex, weight) pair of prim where that joint has a non-zero weight.
	//
	// Parameters:
	//   - skinIndex: the skin bound to the mesh's node
	//   - prim: the primitive whose joints and weights are read
	//   - nodeIDs: glTF node index to tree node
	//
	// Returns:
	//   - []model.Bone: the bones, in joint order
	//   - error: error if the skin or its matrices cannot be read
	ExtractBones(skinIndex int, prim *gltfPrimitiveData, nodeIDs map[int]model.NodeID) ([]model.Bone, error)
}

var _ gltfSkeletonExtractor = &gltfSkeletonExtractorImpl{}

// newGLTFSkeletonExtractor creates a new skeleton extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//
// Returns:
//   - gltfSkeletonExtractor: the skeleton extractor
func newGLTFSkeletonExtractor(parser gltfParser) gltfSkeletonExtractor {
	return &gltfSkeletonExtractorImpl{
		parser:       parser,
		inverseBinds: make(map[int][][16]float32),
	}
}

func (e *gltfSkeletonExtractorImpl) ExtractBones(skinIndex int, prim *gltfPrimitiveData, nodeIDs map[int]model.NodeID) ([]model.Bone, error) {
	doc := e.parser.Document()
	if skinIndex < 0 || skinIndex >= len(doc.Skins) {
		return nil, fmt.Errorf("skin index %d out of range", skinIndex)
	}
	skin := &doc.Skins[skinIndex]

	ibm, err := e.inverseBindMatrices(skinIndex)
	if err != nil {
		return nil, err
	}

	bones := make([]model.Bone, len(skin.Joints))
	for j, nodeIdx := range skin.Joints {
		if nodeIdx < 0 || nodeIdx >= len(doc.Nodes) {
			return nil, fmt.Errorf("skin %d joint %d: node %d out of range", skinIndex, j, nodeIdx)
		}

		bone := &bones[j]
		bone.Name = gltfNodeName(doc, nodeIdx)
		bone.Node = model.NoNode
		if id, ok := nodeIDs[nodeIdx]; ok {
			bone.Node = id
		}
		bone.InverseBind = common.IdentityMatrix()
		if j < len(ibm) {
			bone.InverseBind = ibm[j]
		}
	}

	// JOINTS_0 and WEIGHTS_0 may be longer than POSITION; extra entries have no vertex
	for v, joints := range prim.joints {
		if v >= len(prim.weights) || v >= len(prim.vertices) {
			break
		}
		for k, j := range joints {
			w := prim.weights[v][k]
			if w <= 0 || int(j) >= len(bones) {
				continue
			}
			bones[j].Weights = append(bones[j].Weights, model.VertexWeight{Vertex: uint32(v), Weight: w})
		}
	}

	return bones, nil
}

// inverseBindMatrices reads a skin's inverse bind matrices. A skin without them binds
// every joint with the identity.
func (e *gltfSkeletonExtractorImpl) inverseBindMatrices(skinIndex int) ([][16]float32, error) {
	if cached, ok := e.inverseBinds[skinIndex]; ok {
		return cached, nil
	}

	var ibm [][16]float32
	if a := e.parser.Document().Skins[skinIndex].InverseBindMatrices; a != nil {
		flat, err := e.parser.ReadFloats(*a, gltfTypeMat4)
		if err != nil {
			return nil, fmt.Errorf("skin %d: failed to read inverse bind matrices: %w", skinIndex, err)
		}
		ibm = toMat4(flat)
	}

	e.inverseBinds[skinIndex] = ibm
	return ibm, nil
}

// gltfNodeName returns a node's name, or a positional name for unnamed nodes.
func gltfNodeName(doc *gltfDocument, nodeIdx int) string {
	if name := doc.Nodes[nodeIdx].Name; name != "" {
		return name
	}
	return fmt.Sprintf("node_%d", nodeIdx)
}

// gltfNodeMatrix returns a node's local transform, composing TRS when no matrix is given.
func gltfNodeMatrix(node *gltfNode) [16]float32 {
	if node.Matrix != nil {
		return *node.Matrix
	}

	t := [3]float32{0, 0, 0}
	r := common.QuatIdentity()
	s := [3]float32{1, 1, 1}
	if node.Translation != nil {
		t = *node.Translation
	}
	if node.Rotation != nil {
		r = *node.Rotation
	}
	if node.Scale != nil {
		s = *node.Scale
	}
	return common.ComposeTRS(t, r, s)
}
