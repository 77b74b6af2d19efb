package common

import (
	"unsafe"

	"github.com/chewxy/math32"
)

// Identity resets a 4x4 matrix (flat slice) to the identity matrix.
// The matrix is stored in column-major order.
//
// Parameters:
//   - m: destination slice (must be at least 16 elements)
func Identity(m []float32) {
	for i := range m {
		m[i] = 0
	}
	m[0], m[5], m[10], m[15] = 1, 1, 1, 1
}

// IdentityMatrix returns a column-major 4x4 identity matrix by value.
func IdentityMatrix() [16]float32 {
	var m [16]float32
	Identity(m[:])
	return m
}

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// The returned slice shares memory with the input.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), int(size)*len(data))
}

// StructToBytes reinterprets a pointer to a struct as a raw byte slice.
//
// Parameters:
//   - v: pointer to the struct to reinterpret
//
// Returns:
//   - []byte: byte slice view of the struct's memory
func StructToBytes[T any](v *T) []byte {
	size := unsafe.Sizeof(*v)
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), int(size))
}

// Mul4 multiplies two column-major 4x4 matrices, out = a * b.
// out may alias a or b.
func Mul4(out, a, b []float32) {
	var buf [16]float32
	for i := 0; i < 4; i++ { // column of B
		for j := 0; j < 4; j++ { // row of A
			sum := float32(0)
			for k := 0; k < 4; k++ {
				sum += a[k*4+j] * b[i*4+k]
			}
			buf[i*4+j] = sum
		}
	}
	copy(out, buf[:])
}

// ComposeTRS builds a column-major local matrix from translation, rotation
// (quaternion x, y, z, w) and scale, applied in scale, rotate, translate order.
//
// Parameters:
//   - t: translation
//   - q: rotation quaternion, normalized before use
//   - s: per-axis scale
//
// Returns:
//   - [16]float32: the composed matrix
func ComposeTRS(t [3]float32, q [4]float32, s [3]float32) [16]float32 {
	q = QuatNormalize(q)
	x, y, z, w := q[0], q[1], q[2], q[3]
	xx, yy, zz := x*x, y*y, z*z
	xy, xz, yz := x*y, x*z, y*z
	wx, wy, wz := w*x, w*y, w*z

	return [16]float32{
		(1 - 2*(yy+zz)) * s[0], 2 * (xy + wz) * s[0], 2 * (xz - wy) * s[0], 0,
		2 * (xy - wz) * s[1], (1 - 2*(xx+zz)) * s[1], 2 * (yz + wx) * s[1], 0,
		2 * (xz + wy) * s[2], 2 * (yz - wx) * s[2], (1 - 2*(xx+yy)) * s[2], 0,
		t[0], t[1], t[2], 1,
	}
}

// DecomposeTRS splits a column-major affine matrix into translation, rotation
// and scale. A negative determinant is folded into the x scale. Shear is lost.
//
// Parameters:
//   - m: the matrix to decompose
//
// Returns:
//   - [3]float32: translation
//   - [4]float32: rotation quaternion (x, y, z, w)
//   - [3]float32: scale
func DecomposeTRS(m [16]float32) ([3]float32, [4]float32, [3]float32) {
	t := [3]float32{m[12], m[13], m[14]}
	s := [3]float32{
		Length3([3]float32{m[0], m[1], m[2]}),
		Length3([3]float32{m[4], m[5], m[6]}),
		Length3([3]float32{m[8], m[9], m[10]}),
	}
	if det3(m) < 0 {
		s[0] = -s[0]
	}

	// r(row, col) of the pure rotation
	r := func(row, col int) float32 {
		if s[col] == 0 {
			return 0
		}
		return m[col*4+row] / s[col]
	}

	var q [4]float32
	trace := r(0, 0) + r(1, 1) + r(2, 2)
	switch {
	case trace > 0:
		k := math32.Sqrt(trace+1) * 2
		q = [4]float32{(r(2, 1) - r(1, 2)) / k, (r(0, 2) - r(2, 0)) / k, (r(1, 0) - r(0, 1)) / k, 0.25 * k}
	case r(0, 0) > r(1, 1) && r(0, 0) > r(2, 2):
		k := math32.Sqrt(1+r(0, 0)-r(1, 1)-r(2, 2)) * 2
		q = [4]float32{0.25 * k, (r(0, 1) + r(1, 0)) / k, (r(0, 2) + r(2, 0)) / k, (r(2, 1) - r(1, 2)) / k}
	case r(1, 1) > r(2, 2):
		k := math32.Sqrt(1+r(1, 1)-r(0, 0)-r(2, 2)) * 2
		q = [4]float32{(r(0, 1) + r(1, 0)) / k, 0.25 * k, (r(1, 2) + r(2, 1)) / k, (r(0, 2) - r(2, 0)) / k}
	default:
		k := math32.Sqrt(1+r(2, 2)-r(0, 0)-r(1, 1)) * 2
		q = [4]float32{(r(0, 2) + r(2, 0)) / k, (r(1, 2) + r(2, 1)) / k, 0.25 * k, (r(1, 0) - r(0, 1)) / k}
	}

	return t, QuatNormalize(q), s
}

func det3(m [16]float32) float32 {
	return m[0]*(m[5]*m[10]-m[9]*m[6]) -
		m[4]*(m[1]*m[10]-m[9]*m[2]) +
		m[8]*(m[1]*m[6]-m[5]*m[2])
}

// --- Vector Helpers ---

// Dot3 returns the dot product of a and b.
func Dot3(a, b [3]float32) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

// Cross3 returns a x b.
func Cross3(a, b [3]float32) [3]float32 {
	return [3]float32{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

// Length3 returns the euclidean length of v.
func Length3(v [3]float32) float32 {
	return math32.Sqrt(Dot3(v, v))
}

// Normalize3 returns v scaled to unit length, or v unchanged if it has zero length.
func Normalize3(v [3]float32) [3]float32 {
	l := Length3(v)
	if l == 0 {
		return v
	}
	return [3]float32{v[0] / l, v[1] / l, v[2] / l}
}

// Lerp3 linearly interpolates between a and b. t is not clamped; t == 0 returns a and
// t == 1 returns b exactly.
func Lerp3(a, b [3]float32, t float32) [3]float32 {
	s := 1 - t
	return [3]float32{
		a[0]*s + b[0]*t,
		a[1]*s + b[1]*t,
		a[2]*s + b[2]*t,
	}
}

// --- Quaternion Helpers ---

// QuatIdentity returns the identity rotation (0, 0, 0, 1).
func QuatIdentity() [4]float32 {
	return [4]float32{0, 0, 0, 1}
}

// QuatDot returns the 4D dot product of two quaternions.
func QuatDot(a, b [4]float32) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] + a[3]*b[3]
}

// QuatNormalize returns q scaled to unit length. A zero quaternion becomes the identity.
func QuatNormalize(q [4]float32) [4]float32 {
	l := math32.Sqrt(QuatDot(q, q))
	if l == 0 {
		return QuatIdentity()
	}
	return [4]float32{q[0] / l, q[1] / l, q[2] / l, q[3] / l}
}
