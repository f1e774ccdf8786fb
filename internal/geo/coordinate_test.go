// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package geo

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
)

func TestECEFRoundTrip(t *testing.T) {
	t.Parallel()

	for _, c := range []Coordinate{
		{45.815, 15.9819, 120},
		{-33.8688, 151.2093, 0},
		{0, -179.5, 2500},
	} {
		got := FromECEF(ToECEF(c))
		assert.InDelta(t, c.Lat, got.Lat, 1e-9)
		assert.InDelta(t, c.Lon, got.Lon, 1e-9)
		assert.InDelta(t, c.Alt, got.Alt, 1e-6)
	}
}

func TestENURoundTrip(t *testing.T) {
	t.Parallel()

	d := mgl64.Vec3{12.5, -40, 3}
	e, n, u := ECEFToENU(d, 45, 15)
	back := ENUToECEF(e, n, u, 45, 15)
	assert.InDeltaSlice(t, d[:], back[:], 1e-9)
}

func TestENUUpIsRadial(t *testing.T) {
	t.Parallel()

	c := Coordinate{Lat: 30, Lon: -60}
	radial := ToECEF(c).Normalize()
	e, n, u := ECEFToENU(radial, c.Lat, c.Lon)

	assert.InDelta(t, 0, e, 1e-12)
	assert.InDelta(t, 0, n, 1e-12)
	assert.InDelta(t, 1, u, 1e-12)
}

func TestHaversine(t *testing.T) {
	t.Parallel()

	a := Coordinate{Lat: 45, Lon: 15}
	b := Coordinate{Lat: 45.001, Lon: 15}
	assert.InDelta(t, 111.19, Haversine(a, b), 0.01)
	assert.InDelta(t, Haversine(a, b), Haversine(b, a), 1e-9)
	assert.Zero(t, Haversine(a, a))
}

func TestBearing(t *testing.T) {
	t.Parallel()

	origin := Coordinate{Lat: 45, Lon: 15}
	assert.InDelta(t, 0, Bearing(origin, Coordinate{Lat: 45.01, Lon: 15}), 1e-6)
	assert.InDelta(t, 90, Bearing(origin, Coordinate{Lat: 45, Lon: 15.01}), 0.01)
	assert.InDelta(t, 180, Bearing(origin, Coordinate{Lat: 44.99, Lon: 15}), 1e-6)
	assert.InDelta(t, 270, Bearing(origin, Coordinate{Lat: 45, Lon: 14.99}), 0.01)
}

func TestSceneENUInverse(t *testing.T) {
	t.Parallel()

	v := SceneFromENU(3, 4, 5)
	assert.Equal(t, mgl64.Vec3{3, 5, -4}, v)

	e, n, u := ENUFromScene(v)
	assert.Equal(t, []float64{3, 4, 5}, []float64{e, n, u})
}

func TestValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Coordinate{Lat: 90, Lon: -180}.Validate())
	assert.ErrorIs(t, Coordinate{Lat: -90.1}.Validate(), ErrInvalidCoordinate)
	assert.ErrorIs(t, Coordinate{Lon: 180.5}.Validate(), ErrInvalidCoordinate)
}
