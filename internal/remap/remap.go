// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package remap maps rotations from the sensor's axis frame into the scene's
// axis frame with a fixed signed permutation of X, Y and Z.
package remap

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrInvalidRemap is returned for remaps that are not a proper signed
// permutation (repeated axes, unknown letters, or a reflection).
var ErrInvalidRemap = errors.New("invalid axis remap")

var axisNames = [3]string{"x", "y", "z"}

// AxisRemap sends sensor component Perm[i], multiplied by Sign[i], to scene
// component i. The quaternion scalar part is unchanged.
type AxisRemap struct {
	Perm [3]int
	Sign [3]float64
}

// Default is the sensor-to-scene remap used by the device this renderer was
// built for: (x, y, z, w) → (-z, y, x, w).
func Default() AxisRemap {
	return AxisRemap{Perm: [3]int{2, 1, 0}, Sign: [3]float64{-1, 1, 1}}
}

// Identity leaves components untouched.
func Identity() AxisRemap {
	return AxisRemap{Perm: [3]int{0, 1, 2}, Sign: [3]float64{1, 1, 1}}
}

// Parse reads the config syntax, three comma separated signed axis letters
// such as "-z,y,x".
func Parse(s string) (AxisRemap, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), ",")
	if len(parts) != 3 {
		return AxisRemap{}, fmt.Errorf("%w: %q: want 3 components", ErrInvalidRemap, s)
	}

	var r AxisRemap
	for i, p := range parts {
		p = strings.TrimSpace(p)
		sign := 1.0
		switch {
		case strings.HasPrefix(p, "-"):
			sign = -1
			p = p[1:]
		case strings.HasPrefix(p, "+"):
			p = p[1:]
		}
		idx := -1
		for j, name := range axisNames {
			if p == name {
				idx = j
			}
		}
		if idx < 0 {
			return AxisRemap{}, fmt.Errorf("%w: %q: unknown axis %q", ErrInvalidRemap, s, p)
		}
		r.Perm[i] = idx
		r.Sign[i] = sign
	}

	if err := r.Validate(); err != nil {
		return AxisRemap{}, fmt.Errorf("%q: %w", s, err)
	}
	return r, nil
}

// MustParse is Parse for constants.
func MustParse(s string) AxisRemap {
	r, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return r
}

// Validate checks that r is a permutation with unit signs and determinant +1.
func (r AxisRemap) Validate() error {
	var seen [3]bool
	for i, p := range r.Perm {
		if p < 0 || p > 2 {
			return fmt.Errorf("%w: axis index %d", ErrInvalidRemap, p)
		}
		if seen[p] {
			return fmt.Errorf("%w: axis %s used twice", ErrInvalidRemap, axisNames[p])
		}
		seen[p] = true
		if r.Sign[i] != 1 && r.Sign[i] != -1 {
			return fmt.Errorf("%w: sign %v", ErrInvalidRemap, r.Sign[i])
		}
	}
	if d := r.Matrix().Det(); d < 0 {
		return fmt.Errorf("%w: reflection (det %.0f)", ErrInvalidRemap, d)
	}
	return nil
}

// String renders r in the config syntax.
func (r AxisRemap) String() string {
	parts := make([]string, 3)
	for i := range parts {
		if r.Sign[i] < 0 {
			parts[i] = "-" + axisNames[r.Perm[i]]
		} else {
			parts[i] = axisNames[r.Perm[i]]
		}
	}
	return strings.Join(parts, ",")
}

// Matrix returns r as a 3×3 rotation M such that scene = M · sensor.
func (r AxisRemap) Matrix() mgl64.Mat3 {
	var m mgl64.Mat3
	for row := 0; row < 3; row++ {
		m.Set(row, r.Perm[row], r.Sign[row])
	}
	return m
}

// ApplyVec maps a sensor-frame vector into the scene frame.
func (r AxisRemap) ApplyVec(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{
		r.Sign[0] * v[r.Perm[0]],
		r.Sign[1] * v[r.Perm[1]],
		r.Sign[2] * v[r.Perm[2]],
	}
}

// ApplyQuat maps a sensor-frame rotation into the scene frame. For a proper
// remap M this is the conjugation M·R·Mᵀ, which for a quaternion only moves
// the vector part.
func (r AxisRemap) ApplyQuat(q mgl64.Quat) mgl64.Quat {
	return mgl64.Quat{W: q.W, V: r.ApplyVec(q.V)}
}

// All returns the 24 proper signed permutations.
func All() []AxisRemap {
	perms := [][3]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}
	out := make([]AxisRemap, 0, 24)
	for _, p := range perms {
		for bits := 0; bits < 8; bits++ {
			r := AxisRemap{Perm: p}
			for i := 0; i < 3; i++ {
				r.Sign[i] = 1
				if bits&(1<<i) != 0 {
					r.Sign[i] = -1
				}
			}
			if r.Matrix().Det() > 0 {
				out = append(out, r)
			}
		}
	}
	return out
}
