package loader

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-gear/engine/model"

	"go.uber.org/zap"
)

// gltfAnimationExtractorImpl is the implementation of the gltfAnimationExtractor interface.
type gltfAnimationExtractorImpl struct {
	parser gltfParser
	log    *zap.Logger
}

// gltfAnimationExtractor converts glTF animations into per-node keyframe tracks.
type gltfAnimationExtractor interface {
	// ExtractAll extracts every animation of the document. Channels that target nodes
	// outside the tree, or properties other than translation, rotation and scale, are dropped.
	//
	// Parameters:
	//   - nodes: the built node arena, for labels
	//   - nodeIDs: glTF node index to tree node
	//
	// Returns:
	//   - []model.Animation: the animations, in document order
	//   - error: error if a sampler or accessor is invalid
	ExtractAll(nodes []model.Node, nodeIDs map[int]model.NodeID) ([]model.Animation, error)
}

var _ gltfAnimationExtractor = &gltfAnimationExtractorImpl{}

// newGLTFAnimationExtractor creates a new animation extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//   - log: logger for dropped channels
//
// Returns:
//   - gltfAnimationExtractor: the animation extractor
func newGLTFAnimationExtractor(parser gltfParser, log *zap.Logger) gltfAnimationExtractor {
	return &gltfAnimationExtractorImpl{parser: parser, log: log}
}

// channelSuffixes label a channel after its node, as "<node>_<suffix>".
var channelSuffixes = map[string]string{
	gltfPathTranslation: "Translation",
	gltfPathRotation:    "Rotation",
	gltfPathScale:       "Scaling",
	gltfPathWeights:     "Weights",
}

// classifyChannel maps a channel property label to a track type by substring, checking
// Translation, then Rotation, then Scaling.
func classifyChannel(label string) (model.TrackType, bool) {
	switch {
	case strings.Contains(label, "Translation"):
		return model.TrackTranslation, true
	case strings.Contains(label, "Rotation"):
		return model.TrackRotation, true
	case strings.Contains(label, "Scaling"):
		return model.TrackScale, true
	}
	return 0, false
}

func (e *gltfAnimationExtractorImpl) ExtractAll(nodes []model.Node, nodeIDs map[int]model.NodeID) ([]model.Animation, error) {
	doc := e.parser.Document()
	animations := make([]model.Animation, 0, len(doc.Animations))
	for i := range doc.Animations {
		anim, err := e.extract(i, nodes, nodeIDs)
		if err != nil {
			return nil, fmt.Errorf("animation %d: %w", i, err)
		}
		animations = append(animations, anim)
	}
	return animations, nil
}

func (e *gltfAnimationExtractorImpl) extract(animIndex int, nodes []model.Node, nodeIDs map[int]model.NodeID) (model.Animation, error) {
	src := &e.parser.Document().Animations[animIndex]

	// glTF times are in seconds
	anim := model.Animation{
		Name:           src.Name,
		SequenceType:   model.SequenceAnimation,
		TicksPerSecond: 1,
	}
	if anim.Name == "" {
		anim.Name = fmt.Sprintf("animation_%d", animIndex)
	}

	morph := false
	for i := range src.Channels {
		ch := &src.Channels[i]
		if ch.Target.Node == nil {
			continue
		}
		id, ok := nodeIDs[*ch.Target.Node]
		if !ok {
			e.log.Debug("dropping channel for node outside the scene",
				zap.String("animation", anim.Name),
				zap.Int("node", *ch.Target.Node),
			)
			continue
		}

		suffix := channelSuffixes[ch.Target.Path]
		trackType, ok := classifyChannel(suffix)
		if !ok {
			morph = morph || ch.Target.Path == gltfPathWeights
			continue
		}

		if ch.Sampler < 0 || ch.Sampler >= len(src.Samplers) {
			return model.Animation{}, fmt.Errorf("channel %d: invalid sampler index %d", i, ch.Sampler)
		}
		keyframes, err := e.readKeyframes(&src.Samplers[ch.Sampler], trackType)
		if err != nil {
			return model.Animation{}, fmt.Errorf("channel %d: %w", i, err)
		}

		track := model.NodeAnimation{
			Name:      nodes[id].Name + "_" + suffix,
			Node:      id,
			NodeName:  nodes[id].Name,
			Type:      trackType,
			Keyframes: keyframes,
		}
		track.SortKeyframes()
		if n := len(track.Keyframes); n > 0 {
			anim.Duration = max(anim.Duration, track.Keyframes[n-1].Time)
		}
		anim.Tracks = append(anim.Tracks, track)
	}

	if len(anim.Tracks) == 0 && morph {
		anim.SequenceType = model.SequenceMorph
	}
	return anim, nil
}

// readKeyframes reads a sampler's times and values. Cubic spline samplers store an
// in-tangent, a value and an out-tangent per key; only the value is kept.
func (e *gltfAnimationExtractorImpl) readKeyframes(s *gltfAnimSampler, trackType model.TrackType) ([]model.Keyframe, error) {
	times, err := e.parser.ReadFloats(s.Input, gltfTypeScalar)
	if err != nil {
		return nil, fmt.Errorf("failed to read times: %w", err)
	}

	elementType := gltfTypeVec3
	if trackType == model.TrackRotation {
		elementType = gltfTypeVec4
	}
	flat, err := e.parser.ReadFloats(s.Output, elementType)
	if err != nil {
		return nil, fmt.Errorf("failed to read values: %w", err)
	}

	width := gltfComponentCount(elementType)
	stride, offset := 1, 0
	if s.Interpolation == gltfInterpolationCubicSpline {
		stride, offset = 3, 1
	}

	count := min(len(times), len(flat)/width/stride)
	keyframes := make([]model.Keyframe, count)
	for k := range keyframes {
		v := flat[(k*stride+offset)*width:]
		kf := &keyframes[k]
		kf.Time = float64(times[k])
		if trackType == model.TrackRotation {
			kf.Rotation = [4]float32{v[0], v[1], v[2], v[3]}
		} else {
			kf.Vector = [3]float32{v[0], v[1], v[2]}
		}
	}
	return keyframes, nil
}
