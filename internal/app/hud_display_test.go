// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/relabs-tech/headview/internal/geo"
	"github.com/relabs-tech/headview/internal/orientation"
	"github.com/relabs-tech/headview/internal/scene"
)

func sampleFrame() scene.FrameSummary {
	return scene.FrameSummary{
		Frame:       7,
		FieldOfView: 81,
		Objects: []scene.ObjectState{
			{Name: "tower", Placed: true, InRange: true, Visible: true, OnScreen: true, ScreenX: 640, ScreenY: 360, Label: "tower 111.2 m"},
			{Name: "hill", Placed: true, InRange: true, Label: "hill 1.20 km", Indicator: &scene.Indicator{AngleDeg: -90, Label: "hill 1.20 km"}},
			{Name: "mast", Placed: true, InRange: false, Label: "mast 9.00 km"},
			{Name: "buoy"},
			{Name: "extra", Placed: true, InRange: true, OnScreen: true, Label: "extra 1.0 m"},
		},
	}
}

func TestHUDLines(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"Head View", "Waiting..."}, hudLinesFor(scene.FrameSummary{}, false))

	lines := hudLinesFor(sampleFrame(), true)
	assert.Equal(t, []string{
		"FOV 81  vis 1/5",
		"* tower 111.2 m",
		"< hill 1.20 km",
		"- mast 9.00 km",
	}, lines)

	right := scene.FrameSummary{Objects: []scene.ObjectState{
		{Name: "a", Placed: true, InRange: true, Label: "a 5.0 m", Indicator: &scene.Indicator{AngleDeg: 120}},
		{Name: "b"},
	}}
	assert.Equal(t, []string{"FOV 0  vis 0/2", "> a 5.0 m", "b ?"}, hudLinesFor(right, true))
}

func TestRenderHUDDrawsText(t *testing.T) {
	t.Parallel()

	blank := renderHUD(nil)
	assert.Equal(t, 128, blank.Bounds().Dx())
	assert.Equal(t, 64, blank.Bounds().Dy())
	for _, b := range blank.Pix {
		require.Zero(t, b)
	}

	img := renderHUD([]string{"FOV 81"})
	lit := 0
	for y := 0; y < 13; y++ {
		for x := 0; x < 128; x++ {
			if img.BitAt(x, y) == image1bit.On {
				lit++
			}
		}
	}
	assert.Positive(t, lit)
}

func TestFormatFrame(t *testing.T) {
	t.Parallel()

	s := sampleFrame()
	s.SampleFallback = true
	out := formatFrame(s)

	assert.Contains(t, out, "[FRAME] #7 fov=81.0° visible=1/5 (no head sample)")
	assert.Contains(t, out, "tower: at (640, 360)")
	assert.Contains(t, out, "hill 1.20 km: off screen, turn -90°")
	assert.Contains(t, out, "mast: out of range (mast 9.00 km)")
	assert.Contains(t, out, "buoy: waiting for location")
}

func TestFormatFrameCenterRayAndPlacementError(t *testing.T) {
	t.Parallel()

	s := sampleFrame()
	s.CenterRay = &geo.Coordinate{Lat: 45.009, Lon: 15, Alt: 0.08}
	s.PlacementError = `scene: object "buoy": unsupported displacement mode`
	out := formatFrame(s)

	assert.Contains(t, out, "looking at "+s.CenterRay.String())
	assert.Contains(t, out, `placement failed: scene: object "buoy"`)
}

func TestHeadViewMessageIsValidSample(t *testing.T) {
	t.Parallel()

	at := time.Unix(1700000000, 0)
	msg := headViewMessage(orientation.Pose{Roll: 10, Pitch: -5, Yaw: 45}, at, "mock")
	require.Len(t, msg.HeadView, 16)
	assert.Equal(t, "mock", msg.Source)
	assert.Equal(t, at, msg.Time)

	s, err := orientation.ParseSample(msg.HeadView)
	require.NoError(t, err)
	assert.Equal(t, orientation.FromPose(orientation.Pose{Roll: 10, Pitch: -5, Yaw: 45}), s)
}
