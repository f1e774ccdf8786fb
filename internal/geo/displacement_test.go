// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package geo

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisplacementAntisymmetric(t *testing.T) {
	t.Parallel()

	pairs := []struct {
		name     string
		cam, obj Coordinate
	}{
		{"north", Coordinate{45, 15, 0}, Coordinate{45.001, 15, 0}},
		{"diagonal with altitude", Coordinate{45.8150, 15.9819, 120}, Coordinate{45.8132, 15.9770, 180}},
		{"southern hemisphere", Coordinate{-33.8688, 151.2093, 5}, Coordinate{-33.8570, 151.2150, 0}},
		{"antimeridian", Coordinate{0.5, 179.9995, 0}, Coordinate{0.5, -179.9995, 0}},
		{"same point", Coordinate{10, 10, 10}, Coordinate{10, 10, 10}},
	}

	for _, mode := range []DisplacementMode{ModeGeodesic, ModeDegrees} {
		cfg := DefaultDisplacementConfig()
		cfg.Mode = mode
		for _, p := range pairs {
			t.Run(mode.String()+"/"+p.name, func(t *testing.T) {
				ab, err := Displacement(p.cam, p.obj, cfg)
				require.NoError(t, err)
				ba, err := Displacement(p.obj, p.cam, cfg)
				require.NoError(t, err)

				for i := 0; i < 3; i++ {
					assert.InDelta(t, -ba[i], ab[i], 1e-9, "axis %d", i)
				}
			})
		}
	}
}

func TestDisplacementObjectNorthOfCamera(t *testing.T) {
	t.Parallel()

	cam := Coordinate{Lat: 45.000, Lon: 15.000}
	obj := Coordinate{Lat: 45.001, Lon: 15.000}

	d, err := Displacement(cam, obj, DefaultDisplacementConfig())
	require.NoError(t, err)

	// North is -Z: the object sits in front of a camera facing north.
	assert.Less(t, d.Z(), 0.0)
	assert.Greater(t, math.Abs(d.Z()), math.Abs(d.X()), "north must dominate east")
	assert.Greater(t, math.Abs(d.Z()), math.Abs(d.Y()), "north must dominate up")
	// 0.001 degrees of latitude is roughly 111 m.
	assert.InDelta(t, 111.19, -d.Z(), 0.05)
}

func TestDisplacementObjectEastOfCamera(t *testing.T) {
	t.Parallel()

	cam := Coordinate{Lat: 45.000, Lon: 15.000}
	obj := Coordinate{Lat: 45.000, Lon: 15.001}

	d, err := Displacement(cam, obj, DefaultDisplacementConfig())
	require.NoError(t, err)

	assert.Greater(t, d.X(), 0.0)
	assert.Greater(t, math.Abs(d.X()), math.Abs(d.Z()))
}

func TestDisplacementLegacyDegreesMatchesPlaceholder(t *testing.T) {
	t.Parallel()

	cfg := DefaultDisplacementConfig()
	cfg.Mode = ModeDegrees

	d, err := Displacement(Coordinate{45, 15, 0}, Coordinate{45.001, 15, 0}, cfg)
	require.NoError(t, err)

	assert.InDelta(t, 0, d.X(), 1e-9)
	assert.InDelta(t, 0, d.Y(), 1e-9)
	assert.InDelta(t, -10, d.Z(), 1e-6)
}

func TestDisplacementMetersPerUnit(t *testing.T) {
	t.Parallel()

	cam := Coordinate{Lat: 45, Lon: 15}
	obj := Coordinate{Lat: 45.001, Lon: 15}

	one, err := Displacement(cam, obj, DefaultDisplacementConfig())
	require.NoError(t, err)

	cfg := DefaultDisplacementConfig()
	cfg.MetersPerUnit = 10
	ten, err := Displacement(cam, obj, cfg)
	require.NoError(t, err)

	assert.InDelta(t, one.Len()/10, ten.Len(), 1e-9)
}

func TestDisplacementRejectsBadInput(t *testing.T) {
	t.Parallel()

	_, err := Displacement(Coordinate{Lat: 91}, Coordinate{}, DefaultDisplacementConfig())
	assert.ErrorIs(t, err, ErrInvalidCoordinate)

	_, err = Displacement(Coordinate{}, Coordinate{Lon: math.NaN()}, DefaultDisplacementConfig())
	assert.ErrorIs(t, err, ErrInvalidCoordinate)

	cfg := DefaultDisplacementConfig()
	cfg.MetersPerUnit = 0
	_, err = Displacement(Coordinate{}, Coordinate{Lat: 1}, cfg)
	assert.ErrorIs(t, err, ErrInvalidScale)
}

func TestDisplacementConfigValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, DefaultDisplacementConfig().Validate())

	tests := []struct {
		name string
		edit func(*DisplacementConfig)
	}{
		{"zero meters per unit", func(c *DisplacementConfig) { c.MetersPerUnit = 0 }},
		{"negative meters per unit", func(c *DisplacementConfig) { c.MetersPerUnit = -1 }},
		{"nan meters per unit", func(c *DisplacementConfig) { c.MetersPerUnit = math.NaN() }},
		{"infinite meters per unit", func(c *DisplacementConfig) { c.MetersPerUnit = math.Inf(1) }},
		{"zero degree scale", func(c *DisplacementConfig) { c.Mode = ModeDegrees; c.DegreeScale = 0 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultDisplacementConfig()
			tc.edit(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidScale)
		})
	}

	cfg := DefaultDisplacementConfig()
	cfg.Mode = DisplacementMode(7)
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported displacement mode")

	// the inactive mode's scale is not used
	cfg = DefaultDisplacementConfig()
	cfg.DegreeScale = 0
	assert.NoError(t, cfg.Validate())
}

func TestDegreesModeWrapsAntimeridian(t *testing.T) {
	t.Parallel()

	cfg := DefaultDisplacementConfig()
	cfg.Mode = ModeDegrees

	d, err := Displacement(Coordinate{0, 179.9995, 0}, Coordinate{0, -179.9995, 0}, cfg)
	require.NoError(t, err)
	// the object is 0.001 degrees east across the antimeridian
	assert.InDelta(t, 10, d.X(), 1e-6)
	assert.InDelta(t, 0, d.Z(), 1e-9)
}

func TestWrapLon(t *testing.T) {
	t.Parallel()

	for in, want := range map[float64]float64{
		0: 0, 179: 179, 180: 180, -180: 180, 181: -179, -181: 179, 359.999: -0.001, 720: 0,
	} {
		assert.InDelta(t, want, wrapLon(in), 1e-9, "wrapLon(%v)", in)
	}
}

func TestOffsetInvertsDisplacement(t *testing.T) {
	t.Parallel()

	cams := []Coordinate{
		{45, 15, 0},
		{-33.8688, 151.2093, 5},
		{0.5, 179.999, 0},
	}
	deltas := []Coordinate{
		{0.001, 0, 0},
		{-0.05, 0.07, 300},
		{0.02, 0.003, -40},
	}
	for _, mode := range []DisplacementMode{ModeGeodesic, ModeDegrees} {
		cfg := DefaultDisplacementConfig()
		cfg.Mode = mode
		for _, cam := range cams {
			for _, dl := range deltas {
				obj := Coordinate{Lat: cam.Lat + dl.Lat, Lon: wrapLon(cam.Lon + dl.Lon), Alt: cam.Alt + dl.Alt}
				d, err := Displacement(cam, obj, cfg)
				require.NoError(t, err)

				got, err := Offset(cam, d, cfg)
				require.NoError(t, err)
				assert.InDelta(t, obj.Lat, got.Lat, 1e-8, "%v %v -> %v", mode, cam, obj)
				assert.InDelta(t, obj.Lon, got.Lon, 1e-8, "%v %v -> %v", mode, cam, obj)
				assert.InDelta(t, obj.Alt, got.Alt, 1e-3, "%v %v -> %v", mode, cam, obj)
			}
		}
	}
}

func TestOffsetRejectsBadInput(t *testing.T) {
	t.Parallel()

	_, err := Offset(Coordinate{Lat: 95}, mgl64.Vec3{}, DefaultDisplacementConfig())
	assert.ErrorIs(t, err, ErrInvalidCoordinate)

	_, err = Offset(Coordinate{}, mgl64.Vec3{math.NaN(), 0, 0}, DefaultDisplacementConfig())
	assert.Error(t, err)

	cfg := DefaultDisplacementConfig()
	cfg.MetersPerUnit = -2
	_, err = Offset(Coordinate{}, mgl64.Vec3{}, cfg)
	assert.ErrorIs(t, err, ErrInvalidScale)

	cfg = DefaultDisplacementConfig()
	cfg.Mode = ModeDegrees
	_, err = Offset(Coordinate{Lat: 89.9}, mgl64.Vec3{0, 0, -10000}, cfg)
	assert.ErrorIs(t, err, ErrInvalidCoordinate, "one degree north of 89.9")
}

func TestCurvatureDropAndVerticalUnits(t *testing.T) {
	t.Parallel()

	assert.Zero(t, CurvatureDrop(0))
	assert.InDelta(t, 0.0785, CurvatureDrop(1000), 1e-4)
	assert.InDelta(t, 7.85, CurvatureDrop(10000), 0.01)

	cfg := DefaultDisplacementConfig()
	cfg.MetersPerUnit = 4
	assert.Equal(t, 2.5, cfg.VerticalUnits(10))

	cfg.Mode = ModeDegrees
	assert.Equal(t, 10*LegacyDegreeScale, cfg.VerticalUnits(10))
}

func TestParseDisplacementMode(t *testing.T) {
	t.Parallel()

	m, err := ParseDisplacementMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeGeodesic, m)

	m, err = ParseDisplacementMode(" Degrees ")
	require.NoError(t, err)
	assert.Equal(t, ModeDegrees, m)

	_, err = ParseDisplacementMode("mercator")
	assert.Error(t, err)
}
