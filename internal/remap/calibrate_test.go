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

func TestCalibrateRecoversEveryRemap(t *testing.T) {
	t.Parallel()

	sensor := []mgl64.Vec3{{1, 0, 0}, {0, 1, 0}, {0.3, 0.4, 0.8}}
	for _, want := range All() {
		t.Run(want.String(), func(t *testing.T) {
			pairs := make([]VectorPair, len(sensor))
			for i, s := range sensor {
				pairs[i] = VectorPair{Sensor: s, Scene: want.ApplyVec(s)}
			}
			res, err := Calibrate(pairs)
			require.NoError(t, err)
			assert.Equal(t, want, res.Remap)
			assert.InDelta(t, 0.0, res.Residual, 1e-6)
		})
	}
}

func TestCalibrateNoisy(t *testing.T) {
	t.Parallel()

	want := Default()
	noise := mgl64.QuatRotate(mgl64.DegToRad(4), mgl64.Vec3{1, 1, 0}.Normalize())
	sensor := []mgl64.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 1, 1}}

	pairs := make([]VectorPair, len(sensor))
	for i, s := range sensor {
		pairs[i] = VectorPair{Sensor: s, Scene: noise.Rotate(want.ApplyVec(s))}
	}

	res, err := Calibrate(pairs)
	require.NoError(t, err)
	assert.Equal(t, want, res.Remap)
	assert.Greater(t, res.Residual, 0.0)
	assert.InDelta(t, 1.0, res.Fit.Det(), 1e-9)
}

func TestCalibrateNeedsTwoDirections(t *testing.T) {
	t.Parallel()

	_, err := Calibrate([]VectorPair{{Sensor: [3]float64{1, 0, 0}, Scene: [3]float64{0, 0, 1}}})
	require.ErrorIs(t, err, ErrNotEnoughPairs)

	_, err = Calibrate([]VectorPair{
		{Sensor: [3]float64{1, 0, 0}, Scene: [3]float64{0, 0, 1}},
		{Sensor: [3]float64{2, 0, 0}, Scene: [3]float64{0, 0, 2}},
	})
	require.ErrorIs(t, err, ErrNotEnoughPairs)
}
