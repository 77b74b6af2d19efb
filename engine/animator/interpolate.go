package animator

import (
	"sort"

	"github.com/Carmen-Shannon/oxy-gear/common"
	"github.com/Carmen-Shannon/oxy-gear/engine/model"

	"github.com/chewxy/math32"
)

// slerpEpsilon is the smallest sin of the half angle SLERP divides by.
const slerpEpsilon = 1e-6

// Lerp linearly interpolates a translation or scale. t is not clamped.
//
// Parameters:
//   - a: the value at t == 0
//   - b: the value at t == 1
//   - t: the interpolation factor
//
// Returns:
//   - [3]float32: the interpolated value
func Lerp(a, b [3]float32, t float32) [3]float32 {
	return common.Lerp3(a, b, t)
}

// Slerp spherically interpolates two rotations (x, y, z, w) along the shorter arc.
// Both inputs are normalized first. Nearly parallel rotations fall back to a normalized
// lerp. t is not clamped.
//
// Parameters:
//   - a: the rotation at t == 0
//   - b: the rotation at t == 1
//   - t: the interpolation factor
//
// Returns:
//   - [4]float32: the interpolated unit quaternion
func Slerp(a, b [4]float32, t float32) [4]float32 {
	a = common.QuatNormalize(a)
	b = common.QuatNormalize(b)

	dot := common.QuatDot(a, b)
	if dot < 0 {
		b = [4]float32{-b[0], -b[1], -b[2], -b[3]}
		dot = -dot
	}
	dot = min(max(dot, -1), 1)

	theta := math32.Acos(dot)
	sinTheta := math32.Sin(theta)
	if sinTheta < slerpEpsilon {
		return nlerp(a, b, t)
	}

	wa := math32.Sin((1-t)*theta) / sinTheta
	wb := math32.Sin(t*theta) / sinTheta
	return common.QuatNormalize([4]float32{
		wa*a[0] + wb*b[0],
		wa*a[1] + wb*b[1],
		wa*a[2] + wb*b[2],
		wa*a[3] + wb*b[3],
	})
}

func nlerp(a, b [4]float32, t float32) [4]float32 {
	s := 1 - t
	return common.QuatNormalize([4]float32{
		a[0]*s + b[0]*t,
		a[1]*s + b[1]*t,
		a[2]*s + b[2]*t,
		a[3]*s + b[3]*t,
	})
}

// --- Keyframe Selection ---

// loopPeriod is the length of one loop of a track in ticks: the animation duration when
// it covers every keyframe, otherwise the last keyframe plus the mean keyframe spacing.
func loopPeriod(kfs []model.Keyframe, duration float64) float64 {
	last := kfs[len(kfs)-1].Time
	if duration > last {
		return duration
	}
	if len(kfs) < 2 {
		return last
	}
	step := (last - kfs[0].Time) / float64(len(kfs)-1)
	return last + step
}

// segment picks the two keyframes surrounding local and the factor between them.
// Inside the keyframe range the pair is (i-1, i) for the first i with local < kfs[i].Time.
// Outside it the pair is (last, first) and the timepoints are shifted by one period so t
// keeps increasing across the wrap. Without a usable period, time outside the range holds
// the nearest end keyframe.
func segment(kfs []model.Keyframe, local, period float64) (a, b model.Keyframe, t float32) {
	n := len(kfs)
	if n == 1 {
		return kfs[0], kfs[0], 0
	}

	i := sort.Search(n, func(i int) bool { return local < kfs[i].Time })
	if i > 0 && i < n {
		return kfs[i-1], kfs[i], factor(local, kfs[i-1].Time, kfs[i].Time)
	}

	first, last := kfs[0], kfs[n-1]
	if period <= 0 {
		if i == 0 {
			return first, first, 0
		}
		return last, last, 0
	}
	if i == n {
		return last, first, factor(local, last.Time, first.Time+period)
	}
	return last, first, factor(local, last.Time-period, first.Time)
}

// factor is the position of local between from and to. Coincident timepoints give 0.
func factor(local, from, to float64) float32 {
	span := to - from
	if span == 0 {
		return 0
	}
	return float32((local - from) / span)
}
