package animator

import (
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-gear/common"
	"github.com/Carmen-Shannon/oxy-gear/engine/model"
	"github.com/Carmen-Shannon/oxy-gear/internal/config"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	rootNode  model.NodeID = 0
	armNode   model.NodeID = 1
	emptyNode model.NodeID = 2
)

// rig builds Root(mesh 0) -> Arm(mesh 1), Root -> Empty(no mesh).
func rig(t *testing.T, animations ...model.Animation) *model.Model {
	t.Helper()
	b := model.NewTreeBuilder()
	b.Merge(model.NoNode, &model.Subtree{
		Name:      "Root",
		Transform: common.IdentityMatrix(),
		Meshes:    []int{0},
		Children: []*model.Subtree{
			{Name: "Arm", Transform: common.IdentityMatrix(), Meshes: []int{1}},
			{Name: "Empty", Transform: common.IdentityMatrix()},
		},
	})
	nodes, root, err := b.Build()
	require.NoError(t, err)
	return model.NewModel(
		model.WithName("rig"),
		model.WithTree(nodes, root),
		model.WithMeshes(make([]model.MeshData, 2)),
		model.WithAnimations(animations),
	)
}

func vecTrack(node model.NodeID, typ model.TrackType, kfs ...model.Keyframe) model.NodeAnimation {
	return model.NodeAnimation{Name: "track", Node: node, Type: typ, Keyframes: kfs}
}

func vecKey(time float64, x, y, z float32) model.Keyframe {
	return model.Keyframe{Time: time, Vector: [3]float32{x, y, z}}
}

func clip(tracks ...model.NodeAnimation) model.Animation {
	return model.Animation{Name: "clip", SequenceType: model.SequenceAnimation, Tracks: tracks}
}

// at drives an animator to the given elapsed time.
func at(a Animator, elapsed time.Duration) []Update {
	t0 := time.Unix(1000, 0)
	a.Update(t0)
	return a.Update(t0.Add(elapsed))
}

func assertQuat(t *testing.T, want, got [4]float32) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-5, "component %d", i)
	}
}

// --- Interpolation ---

func TestLerpEndpointsExact(t *testing.T) {
	a := [3]float32{0.1, -3.7, 12.25}
	b := [3]float32{0.3, 8.9, -1}
	assert.Equal(t, a, Lerp(a, b, 0))
	assert.Equal(t, b, Lerp(a, b, 1))
	assert.Equal(t, [3]float32{5, 0, 0}, Lerp([3]float32{}, [3]float32{10, 0, 0}, 0.5))
}

func TestSlerpEndpointsAndMidpoint(t *testing.T) {
	id := common.QuatIdentity()
	quarter := [4]float32{0, 0, math32.Sin(math32.Pi / 4), math32.Cos(math32.Pi / 4)}

	assertQuat(t, id, Slerp(id, quarter, 0))
	assertQuat(t, quarter, Slerp(id, quarter, 1))

	eighth := [4]float32{0, 0, math32.Sin(math32.Pi / 8), math32.Cos(math32.Pi / 8)}
	assertQuat(t, eighth, Slerp(id, quarter, 0.5))
}

func TestSlerpTakesShorterArc(t *testing.T) {
	id := common.QuatIdentity()
	quarter := [4]float32{0, 0, math32.Sin(math32.Pi / 4), math32.Cos(math32.Pi / 4)}
	negated := [4]float32{-quarter[0], -quarter[1], -quarter[2], -quarter[3]}

	for _, tt := range []float32{0.25, 0.5, 0.75} {
		assertQuat(t, Slerp(id, quarter, tt), Slerp(id, negated, tt))
	}
}

func TestSlerpNormalizesInputs(t *testing.T) {
	got := Slerp([4]float32{0, 0, 0, 2}, [4]float32{0, 0, 0, 5}, 0.5)
	assertQuat(t, common.QuatIdentity(), got)
}

func TestSlerpNearlyParallelFallsBackToLerp(t *testing.T) {
	a := common.QuatIdentity()
	b := common.QuatNormalize([4]float32{0, 0, 1e-7, 1})

	got := Slerp(a, b, 0.5)
	for _, c := range got {
		assert.False(t, math32.IsNaN(c))
	}
	assert.InDelta(t, 1, common.QuatDot(got, got), 1e-5)
	assertQuat(t, a, got)
}

// --- Keyframe Selection ---

func TestSegmentInsideRange(t *testing.T) {
	kfs := []model.Keyframe{vecKey(0, 0, 0, 0), vecKey(1, 1, 0, 0), vecKey(2, 2, 0, 0)}

	a, b, f := segment(kfs, 1.25, 3)
	assert.Equal(t, 1.0, a.Time)
	assert.Equal(t, 2.0, b.Time)
	assert.InDelta(t, 0.25, f, 1e-6)

	a, b, f = segment(kfs, 1, 3)
	assert.Equal(t, 1.0, a.Time, "a timepoint equal to a keyframe starts its interval")
	assert.Equal(t, 2.0, b.Time)
	assert.Zero(t, f)
}

func TestSegmentWrapsAfterLastKeyframe(t *testing.T) {
	kfs := []model.Keyframe{vecKey(0, 0, 0, 0), vecKey(1, 1, 0, 0), vecKey(2, 2, 0, 0)}

	a, b, f := segment(kfs, 2.5, 3)
	assert.Equal(t, 2.0, a.Time)
	assert.Equal(t, 0.0, b.Time)
	assert.InDelta(t, 0.5, f, 1e-6)
}

func TestSegmentWrapsBeforeFirstKeyframe(t *testing.T) {
	kfs := []model.Keyframe{vecKey(1, 1, 0, 0), vecKey(2, 2, 0, 0)}

	a, b, f := segment(kfs, 0.5, 3)
	assert.Equal(t, 2.0, a.Time)
	assert.Equal(t, 1.0, b.Time)
	assert.InDelta(t, 0.75, f, 1e-6)
}

func TestSegmentHoldsWithoutPeriod(t *testing.T) {
	kfs := []model.Keyframe{vecKey(1, 1, 0, 0), vecKey(2, 2, 0, 0)}

	a, b, _ := segment(kfs, 0, 0)
	assert.Equal(t, 1.0, a.Time)
	assert.Equal(t, 1.0, b.Time)

	a, b, _ = segment(kfs, 7, 0)
	assert.Equal(t, 2.0, a.Time)
	assert.Equal(t, 2.0, b.Time)
}

func TestSegmentSingleKeyframe(t *testing.T) {
	kfs := []model.Keyframe{vecKey(4, 1, 2, 3)}
	a, b, f := segment(kfs, 100, 4)
	assert.Equal(t, kfs[0], a)
	assert.Equal(t, kfs[0], b)
	assert.Zero(t, f)
}

func TestLoopPeriod(t *testing.T) {
	kfs := []model.Keyframe{vecKey(0, 0, 0, 0), vecKey(1, 0, 0, 0), vecKey(2, 0, 0, 0)}
	assert.Equal(t, 5.0, loopPeriod(kfs, 5))
	assert.Equal(t, 3.0, loopPeriod(kfs, 0))
	assert.Equal(t, 3.0, loopPeriod(kfs, 2))
}

// --- Animator ---

func TestUpdateInterpolatesTranslation(t *testing.T) {
	m := rig(t, clip(vecTrack(armNode, model.TrackTranslation, vecKey(0, 0, 0, 0), vecKey(1, 10, 0, 0))))
	a := NewAnimator(m)

	updates := at(a, 500*time.Millisecond)
	require.Len(t, updates, 1)
	assert.Equal(t, armNode, updates[0].Node)
	assert.Equal(t, MaskTranslation, updates[0].Mask)
	assert.Equal(t, [3]float32{5, 0, 0}, updates[0].Transform.Translation)
}

func TestUpdateLoopsAcrossLastKeyframe(t *testing.T) {
	m := rig(t, clip(vecTrack(armNode, model.TrackTranslation,
		vecKey(0, 0, 0, 0), vecKey(1, 1, 0, 0), vecKey(2, 2, 0, 0))))
	a := NewAnimator(m)

	updates := at(a, 2500*time.Millisecond)
	require.Len(t, updates, 1)
	assert.Equal(t, [3]float32{1, 0, 0}, updates[0].Transform.Translation)
}

func TestUpdateTicksPerSecond(t *testing.T) {
	anim := clip(vecTrack(armNode, model.TrackTranslation, vecKey(0, 0, 0, 0), vecKey(10, 10, 0, 0)))
	anim.TicksPerSecond = 10
	anim.Duration = 20
	a := NewAnimator(rig(t, anim))

	updates := at(a, 500*time.Millisecond)
	require.Len(t, updates, 1)
	assert.Equal(t, [3]float32{5, 0, 0}, updates[0].Transform.Translation)
}

func TestUpdateWithoutLoopingHoldsLastKeyframe(t *testing.T) {
	m := rig(t, clip(vecTrack(armNode, model.TrackScale, vecKey(0, 1, 1, 1), vecKey(1, 2, 2, 2))))
	a := NewAnimator(m, WithLooping(false))

	updates := at(a, 5*time.Second)
	require.Len(t, updates, 1)
	assert.Equal(t, MaskScale, updates[0].Mask)
	assert.Equal(t, [3]float32{2, 2, 2}, updates[0].Transform.Scale)
}

func TestUpdateFirstTrackWins(t *testing.T) {
	quarter := [4]float32{0, 0, math32.Sin(math32.Pi / 4), math32.Cos(math32.Pi / 4)}
	m := rig(t,
		clip(
			vecTrack(armNode, model.TrackTranslation, vecKey(0, 1, 2, 3)),
			vecTrack(armNode, model.TrackTranslation, vecKey(0, 9, 9, 9)),
			model.NodeAnimation{Node: armNode, Type: model.TrackRotation, Keyframes: []model.Keyframe{
				{Time: 0, Rotation: quarter},
			}},
		),
		clip(vecTrack(armNode, model.TrackTranslation, vecKey(0, 7, 7, 7))),
	)
	a := NewAnimator(m)

	updates := at(a, 250*time.Millisecond)
	require.Len(t, updates, 1, "tracks on one node share an update")
	u := updates[0]
	assert.Equal(t, MaskTranslation|MaskRotation, u.Mask)
	assert.Equal(t, [3]float32{1, 2, 3}, u.Transform.Translation)
	assertQuat(t, quarter, u.Transform.Rotation)
	assert.Equal(t, [3]float32{1, 1, 1}, u.Transform.Scale)
}

func TestUpdateSkipsNodesWithoutMesh(t *testing.T) {
	m := rig(t, clip(
		vecTrack(emptyNode, model.TrackTranslation, vecKey(0, 1, 0, 0)),
		vecTrack(rootNode, model.TrackTranslation, vecKey(0, 2, 0, 0)),
		vecTrack(model.NodeID(42), model.TrackTranslation, vecKey(0, 3, 0, 0)),
	))
	a := NewAnimator(m)

	updates := at(a, time.Second)
	require.Len(t, updates, 1)
	assert.Equal(t, rootNode, updates[0].Node)
}

func TestUpdateIgnoresMorphSequences(t *testing.T) {
	morph := clip(vecTrack(armNode, model.TrackTranslation, vecKey(0, 1, 0, 0)))
	morph.SequenceType = model.SequenceMorph
	a := NewAnimator(rig(t, morph))

	assert.Empty(t, at(a, time.Second))
}

func TestUpdateSequencesUsesGivenClips(t *testing.T) {
	m := rig(t, clip(vecTrack(armNode, model.TrackTranslation, vecKey(0, 1, 0, 0))))
	a := NewAnimator(m)

	other := []model.Animation{clip(vecTrack(rootNode, model.TrackScale, vecKey(0, 3, 3, 3)))}
	updates := a.UpdateSequences(time.Unix(0, 0), other)
	require.Len(t, updates, 1)
	assert.Equal(t, rootNode, updates[0].Node)
	assert.Equal(t, [3]float32{3, 3, 3}, updates[0].Transform.Scale)
}

func TestTimerIsMonotonic(t *testing.T) {
	a := NewAnimator(rig(t))
	t0 := time.Unix(50, 0)

	a.Update(t0)
	assert.Zero(t, a.Elapsed())
	a.Update(t0.Add(2 * time.Second))
	a.Update(t0.Add(time.Second))
	assert.Equal(t, 2*time.Second, a.Elapsed())

	a.Reset()
	assert.Zero(t, a.Elapsed())
	a.Update(t0.Add(10 * time.Second))
	assert.Zero(t, a.Elapsed(), "the first update after a reset restarts the timer")
}

func TestWithConfig(t *testing.T) {
	a := NewAnimator(rig(t), WithConfig(config.AnimatorConfig{Looping: false}))
	assert.False(t, a.Looping())
	assert.True(t, NewAnimator(rig(t)).Looping())
}

func TestNewAnimatorNilModelPanics(t *testing.T) {
	assert.PanicsWithValue(t, "animator: nil model", func() { NewAnimator(nil) })
}

func TestApplyWritesMaskedComponents(t *testing.T) {
	m := rig(t)
	m.SetPose(armNode, model.Transform{
		Translation: [3]float32{1, 1, 1},
		Rotation:    common.QuatIdentity(),
		Scale:       [3]float32{2, 2, 2},
	})

	Apply(m, []Update{{
		Node:      armNode,
		Transform: model.Transform{Translation: [3]float32{5, 0, 0}},
		Mask:      MaskTranslation,
	}, {
		Node: model.NodeID(99),
		Mask: MaskTranslation,
	}})

	arm := m.Node(armNode)
	assert.Equal(t, [3]float32{5, 0, 0}, arm.Pose.Translation)
	assert.Equal(t, [3]float32{2, 2, 2}, arm.Pose.Scale)
	assert.Equal(t, common.QuatIdentity(), arm.Pose.Rotation)
	assert.Equal(t, float32(5), arm.Transform[12])
	assert.Equal(t, float32(2), arm.Transform[0])
}
