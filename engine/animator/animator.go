// Package animator samples keyframe animations of a model and writes the result into
// node poses.
package animator

import (
	"math"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-gear/engine/model"
	"github.com/Carmen-Shannon/oxy-gear/internal/logger"

	"go.uber.org/zap"
)

// Mask selects the transform components an Update carries.
type Mask uint8

const (
	MaskTranslation Mask = 1 << iota
	MaskRotation
	MaskScale
)

// maskFor maps a track type to the component it drives.
func maskFor(t model.TrackType) Mask {
	switch t {
	case model.TrackTranslation:
		return MaskTranslation
	case model.TrackRotation:
		return MaskRotation
	case model.TrackScale:
		return MaskScale
	}
	return 0
}

// Update is the sampled pose of one node for one frame. Components outside Mask hold
// identity values and must not be applied.
type Update struct {
	Node     model.NodeID
	NodeName string

	Transform model.Transform
	Mask      Mask
}

// animator is the implementation of the Animator interface.
type animator struct {
	mu sync.Mutex

	model   *model.Model
	looping bool
	log     *zap.Logger

	started bool
	start   time.Time
	elapsed time.Duration
}

// Animator plays the animations of one model against a single timer.
//
// The timer starts at the first Update or UpdateSequences call and never runs backwards.
// Only SequenceAnimation clips are sampled, and only tracks whose node carries a mesh
// produce updates. When several tracks drive the same component of the same node, the
// first one in clip and track order wins.
type Animator interface {
	// Update advances the timer to now and samples every animation of the model.
	//
	// Parameters:
	//   - now: the current time
	//
	// Returns:
	//   - []Update: one update per animated node, in the order the nodes were first reached
	Update(now time.Time) []Update

	// UpdateSequences advances the timer to now and samples the given animations instead
	// of the model's own. Track node ids must refer to the animator's model.
	//
	// Parameters:
	//   - now: the current time
	//   - animations: the clips to sample
	//
	// Returns:
	//   - []Update: one update per animated node
	UpdateSequences(now time.Time, animations []model.Animation) []Update

	// Elapsed returns the time since the first update.
	Elapsed() time.Duration

	// Reset stops the timer; the next update starts it again.
	Reset()

	// Looping reports whether playback wraps at the end of each clip.
	Looping() bool

	// Model returns the animated model.
	Model() *model.Model
}

var _ Animator = &animator{}

// NewAnimator creates an Animator for m. Looping is enabled by default.
//
// Parameters:
//   - m: the model to animate
//   - options: a variadic list of AnimatorBuilderOption functions
//
// Returns:
//   - Animator: the new animator
func NewAnimator(m *model.Model, options ...AnimatorBuilderOption) Animator {
	if m == nil {
		panic("animator: nil model")
	}
	a := &animator{
		mu:      sync.Mutex{},
		model:   m,
		looping: true,
		log:     logger.Named("animator"),
	}
	for _, option := range options {
		option(a)
	}
	a.log.Debug("animator created",
		zap.String("model", m.Name),
		zap.Int("animations", len(m.Animations)),
		zap.Bool("looping", a.looping),
	)
	return a
}

func (a *animator) Update(now time.Time) []Update {
	return a.UpdateSequences(now, a.model.Animations)
}

func (a *animator) UpdateSequences(now time.Time, animations []model.Animation) []Update {
	elapsed := a.advance(now).Seconds()

	var (
		updates []Update
		index   = make(map[model.NodeID]int)
	)
	for ai := range animations {
		anim := &animations[ai]
		if anim.SequenceType != model.SequenceAnimation {
			continue
		}
		tps := anim.TicksPerSecond
		if tps <= 0 {
			tps = 1
		}
		ticks := elapsed * tps

		for ti := range anim.Tracks {
			track := &anim.Tracks[ti]
			bit := maskFor(track.Type)
			if bit == 0 || len(track.Keyframes) == 0 || !a.model.HasMesh(track.Node) {
				continue
			}

			ui, ok := index[track.Node]
			if !ok {
				ui = len(updates)
				index[track.Node] = ui
				updates = append(updates, Update{
					Node:      track.Node,
					NodeName:  track.NodeName,
					Transform: model.IdentityTransform(),
				})
			}
			u := &updates[ui]
			if u.Mask&bit != 0 {
				continue
			}
			u.Mask |= bit
			a.sample(track, ticks, anim.Duration, &u.Transform)
		}
	}
	return updates
}

func (a *animator) Elapsed() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.elapsed
}

func (a *animator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.started = false
	a.elapsed = 0
}

func (a *animator) Looping() bool {
	return a.looping
}

func (a *animator) Model() *model.Model {
	return a.model
}

// advance moves the timer to now and returns the elapsed time. A now earlier than the
// last update leaves the timer where it was.
func (a *animator) advance(now time.Time) time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.started {
		a.started = true
		a.start = now
		a.elapsed = 0
		return 0
	}
	if d := now.Sub(a.start); d > a.elapsed {
		a.elapsed = d
	}
	return a.elapsed
}

// sample evaluates one track at ticks and writes the component it drives into out.
func (a *animator) sample(track *model.NodeAnimation, ticks, duration float64, out *model.Transform) {
	local, period := ticks, 0.0
	if a.looping {
		period = loopPeriod(track.Keyframes, duration)
		if period > 0 {
			local = math.Mod(ticks, period)
		}
	}

	k1, k2, t := segment(track.Keyframes, local, period)
	switch track.Type {
	case model.TrackTranslation:
		out.Translation = Lerp(k1.Vector, k2.Vector, t)
	case model.TrackRotation:
		out.Rotation = Slerp(k1.Rotation, k2.Rotation, t)
	case model.TrackScale:
		out.Scale = Lerp(k1.Vector, k2.Vector, t)
	}
}

// Apply writes the masked components of each update into the node poses of m and
// recomposes their local matrices.
//
// Parameters:
//   - m: the model the updates were sampled for
//   - updates: the updates returned by Update or UpdateSequences
func Apply(m *model.Model, updates []Update) {
	for _, u := range updates {
		n := m.Node(u.Node)
		if n == nil {
			continue
		}
		pose := n.Pose
		if u.Mask&MaskTranslation != 0 {
			pose.Translation = u.Transform.Translation
		}
		if u.Mask&MaskRotation != 0 {
			pose.Rotation = u.Transform.Rotation
		}
		if u.Mask&MaskScale != 0 {
			pose.Scale = u.Transform.Scale
		}
		m.SetPose(u.Node, pose)
	}
}
