// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package remap

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRemap(t *testing.T) {
	t.Parallel()

	r := Default()
	require.NoError(t, r.Validate())
	assert.Equal(t, "-z,y,x", r.String())
	assert.InDelta(t, 1.0, r.Matrix().Det(), 1e-12)

	q := mgl64.Quat{W: 0.5, V: mgl64.Vec3{1, 2, 3}}
	got := r.ApplyQuat(q)
	assert.Equal(t, mgl64.Quat{W: 0.5, V: mgl64.Vec3{-3, 2, 1}}, got)
}

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"-z,y,x", "-z,y,x", false},
		{" X , Y , Z ", "x,y,z", false},
		{"+x,-y,-z", "x,-y,-z", false},
		{"x,x,z", "", true},
		{"x,y", "", true},
		{"x,y,w", "", true},
		{"-x,y,z", "", true}, // reflection
		{"z,y,x", "", true},  // reflection
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			r, err := Parse(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidRemap)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.String())
		})
	}
}

func TestApplyQuatMatchesMatrixConjugation(t *testing.T) {
	t.Parallel()

	q := mgl64.QuatRotate(0.7, mgl64.Vec3{0.2, -0.5, 0.8}.Normalize())
	for _, r := range All() {
		m := r.Matrix()
		want := m.Mul3(q.Mat4().Mat3()).Mul3(m.Transpose())
		got := r.ApplyQuat(q).Mat4().Mat3()
		assert.InDeltaSlice(t, want[:], got[:], 1e-9, "remap %s", r)
	}
}

func TestAllIsTwentyFourProperPermutations(t *testing.T) {
	t.Parallel()

	all := All()
	require.Len(t, all, 24)
	seen := map[string]bool{}
	for _, r := range all {
		require.NoError(t, r.Validate())
		seen[r.String()] = true
	}
	assert.Len(t, seen, 24)
}

func TestMustParsePanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { MustParse("nope") })
	assert.Equal(t, Default(), MustParse("-z,y,x"))
}
