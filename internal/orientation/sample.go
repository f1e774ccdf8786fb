// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Sample is one head-view transform as delivered by the sensor-fusion side.
//
// Layout is column-major, OpenGL style: element (row r, column c) lives at
// index c*4+r, so the translation occupies indices 12, 13, 14. This is the
// layout of mgl64.Mat4, which makes the conversion a plain copy.
type Sample [16]float64

// rotationTolerance bounds how far the 3×3 part may drift from orthonormal
// before the sample is rejected.
const rotationTolerance = 0.01

// ErrMalformedSample is returned by ParseSample and Validate.
var ErrMalformedSample = errors.New("malformed orientation sample")

// Identity is the neutral sample: no head rotation.
func Identity() Sample {
	return Sample(mgl64.Ident4())
}

// ParseSample builds a Sample from a flat slice, rejecting wrong lengths and
// non-finite values.
func ParseSample(v []float64) (Sample, error) {
	if len(v) != 16 {
		return Sample{}, fmt.Errorf("%w: want 16 values, got %d", ErrMalformedSample, len(v))
	}
	var s Sample
	copy(s[:], v)
	if err := s.Validate(); err != nil {
		return Sample{}, err
	}
	return s, nil
}

// FromQuat returns the sample whose rotation part is q.
func FromQuat(q mgl64.Quat) Sample {
	return Sample(q.Normalize().Mat4())
}

// FromPose converts a device attitude into a head-view sample. The view
// rotation is the inverse of the device-to-world rotation.
func FromPose(p Pose) Sample {
	return FromQuat(p.Quat().Conjugate())
}

// Mat4 returns s as a matrix.
func (s Sample) Mat4() mgl64.Mat4 {
	return mgl64.Mat4(s)
}

// Validate checks that s is finite, that its last row is (0 0 0 1) and that
// its upper 3×3 block is a proper rotation within rotationTolerance.
// Translation is allowed.
func (s Sample) Validate() error {
	for i, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: element %d is %v", ErrMalformedSample, i, v)
		}
	}

	m := s.Mat4()
	if math.Abs(m.At(3, 0)) > rotationTolerance || math.Abs(m.At(3, 1)) > rotationTolerance ||
		math.Abs(m.At(3, 2)) > rotationTolerance || math.Abs(m.At(3, 3)-1) > rotationTolerance {
		return fmt.Errorf("%w: last row is not (0 0 0 1)", ErrMalformedSample)
	}

	r := m.Mat3()
	rtr := r.Transpose().Mul3(r)
	ident := mgl64.Ident3()
	for i := range rtr {
		if math.Abs(rtr[i]-ident[i]) > rotationTolerance {
			return fmt.Errorf("%w: rotation block is not orthonormal", ErrMalformedSample)
		}
	}
	if math.Abs(r.Det()-1) > rotationTolerance {
		return fmt.Errorf("%w: rotation determinant %.4f", ErrMalformedSample, r.Det())
	}
	return nil
}

// Rotation extracts the rotation-only part of s as a unit quaternion. Each
// basis column is normalised first so that a small uniform scale in the
// sample does not leak into the quaternion.
func (s Sample) Rotation() mgl64.Quat {
	m := s.Mat4()
	c0 := m.Col(0).Vec3().Normalize()
	c1 := m.Col(1).Vec3().Normalize()
	c2 := m.Col(2).Vec3().Normalize()

	r := mgl64.Mat4FromCols(c0.Vec4(0), c1.Vec4(0), c2.Vec4(0), mgl64.Vec4{0, 0, 0, 1})
	return mgl64.Mat4ToQuat(r).Normalize()
}
