// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package geo

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// Scene axis convention used by the renderer:
//
//	+X = East, +Y = Up, -Z = North (camera forward at zero heading)
//
// Displacement is defined as scale * axisRemap(camera - object) where
// camera - object is expressed as (dEast, dNorth, dUp) and
//
//	axisRemap(dE, dN, dU) = (-dE, -dU, +dN)
//
// The sign flip on every axis except north makes the result the position of
// the object relative to the camera, in scene axes: an object north of the
// camera ends up on -Z, an object east of it on +X. Swapping any entry
// silently mirrors the rendered scene, so this mapping is fixed here and
// nowhere else.

// DisplacementMode selects how camera - object is measured.
type DisplacementMode int

const (
	// ModeGeodesic measures the difference in meters in a local ENU frame
	// and divides by MetersPerUnit.
	ModeGeodesic DisplacementMode = iota
	// ModeDegrees reproduces the legacy behaviour: raw degree (and meter,
	// for altitude) differences multiplied by DegreeScale. It is an
	// uncalibrated approximation, not a distance.
	ModeDegrees
)

// LegacyDegreeScale is the placeholder multiplier used by ModeDegrees.
const LegacyDegreeScale = 10000.0

// ErrInvalidScale is returned for a displacement scale that is not a
// positive finite number.
var ErrInvalidScale = errors.New("displacement scale must be positive")

// offsetIterations refines the ENU reference point in Offset; each pass
// shrinks the error by the angular separation of the two points.
const offsetIterations = 6

func (m DisplacementMode) String() string {
	switch m {
	case ModeGeodesic:
		return "geodesic"
	case ModeDegrees:
		return "degrees"
	default:
		return fmt.Sprintf("DisplacementMode(%d)", int(m))
	}
}

// ParseDisplacementMode parses the config spelling of a mode.
func ParseDisplacementMode(s string) (DisplacementMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "geodesic":
		return ModeGeodesic, nil
	case "degrees":
		return ModeDegrees, nil
	default:
		return 0, fmt.Errorf("unknown displacement mode %q (want geodesic or degrees)", s)
	}
}

// DisplacementConfig tunes Displacement.
type DisplacementConfig struct {
	Mode          DisplacementMode
	MetersPerUnit float64 // ModeGeodesic: meters represented by one scene unit
	DegreeScale   float64 // ModeDegrees: multiplier applied to degree differences
}

// DefaultDisplacementConfig is one scene unit per meter.
func DefaultDisplacementConfig() DisplacementConfig {
	return DisplacementConfig{
		Mode:          ModeGeodesic,
		MetersPerUnit: 1,
		DegreeScale:   LegacyDegreeScale,
	}
}

// Validate reports whether cfg has a known mode and a usable scale for it.
func (cfg DisplacementConfig) Validate() error {
	var scale float64
	switch cfg.Mode {
	case ModeGeodesic:
		scale = cfg.MetersPerUnit
	case ModeDegrees:
		scale = cfg.DegreeScale
	default:
		return fmt.Errorf("unsupported displacement mode %v", cfg.Mode)
	}
	if !(scale > 0) || math.IsInf(scale, 0) {
		return fmt.Errorf("%w: %v mode, got %v", ErrInvalidScale, cfg.Mode, scale)
	}
	return nil
}

// VerticalUnits converts a height in meters to scene units. Both modes
// carry altitude differences in meters.
func (cfg DisplacementConfig) VerticalUnits(meters float64) float64 {
	if cfg.Mode == ModeDegrees {
		return meters * cfg.DegreeScale
	}
	return meters / cfg.MetersPerUnit
}

// Displacement returns scale * axisRemap(camera - object) in scene units.
// The result is exactly antisymmetric: Displacement(a, b) == -Displacement(b, a).
func Displacement(camera, object Coordinate, cfg DisplacementConfig) (mgl64.Vec3, error) {
	if err := camera.Validate(); err != nil {
		return mgl64.Vec3{}, fmt.Errorf("camera: %w", err)
	}
	if err := object.Validate(); err != nil {
		return mgl64.Vec3{}, fmt.Errorf("object: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return mgl64.Vec3{}, err
	}

	if cfg.Mode == ModeDegrees {
		// Legacy: latitude stands in for north, longitude for east.
		dN := camera.Lat - object.Lat
		dE := wrapLon(camera.Lon - object.Lon)
		dU := camera.Alt - object.Alt
		return AxisRemap(dE, dN, dU).Mul(cfg.DegreeScale), nil
	}

	d := ToECEF(camera).Sub(ToECEF(object))
	lat, lon := midpoint(camera, object)
	dE, dN, dU := ECEFToENU(d, lat, lon)
	return AxisRemap(dE, dN, dU).Mul(1 / cfg.MetersPerUnit), nil
}

// Offset is the inverse of Displacement: the coordinate whose displacement
// from camera is v, in scene units.
func Offset(camera Coordinate, v mgl64.Vec3, cfg DisplacementConfig) (Coordinate, error) {
	if err := camera.Validate(); err != nil {
		return Coordinate{}, fmt.Errorf("camera: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Coordinate{}, err
	}
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return Coordinate{}, fmt.Errorf("offset %v is not finite", v)
		}
	}

	if cfg.Mode == ModeDegrees {
		e, n, u := ENUFromScene(v.Mul(1 / cfg.DegreeScale))
		c := Coordinate{Lat: camera.Lat + n, Lon: wrapLon(camera.Lon + e), Alt: camera.Alt + u}
		if err := c.Validate(); err != nil {
			return Coordinate{}, err
		}
		return c, nil
	}

	// Displacement rotates into ENU at the midpoint, which depends on the
	// answer; iterate from the camera's own frame.
	e, n, u := ENUFromScene(v.Mul(cfg.MetersPerUnit))
	origin := ToECEF(camera)
	c := camera
	for i := 0; i < offsetIterations; i++ {
		lat, lon := midpoint(camera, c)
		c = FromECEF(origin.Add(ENUToECEF(e, n, u, lat, lon)))
	}
	return c, nil
}

// CurvatureDrop is how far the sphere's surface falls below the tangent
// plane at a ground distance of meters: d²/2R.
func CurvatureDrop(meters float64) float64 {
	return meters * meters / (2 * EarthRadiusMeters)
}

// wrapLon maps a longitude or longitude difference into (-180, 180].
func wrapLon(d float64) float64 {
	d = math.Mod(d, 360)
	switch {
	case d > 180:
		d -= 360
	case d <= -180:
		d += 360
	}
	return d
}

// AxisRemap maps a camera - object difference given as (east, north, up)
// onto scene axes. See the package comment above for the convention.
func AxisRemap(dEast, dNorth, dUp float64) mgl64.Vec3 {
	return mgl64.Vec3{-dEast, -dUp, dNorth}
}

// SceneFromENU places a point given in ENU meters relative to the camera
// into scene axes (no scaling).
func SceneFromENU(east, north, up float64) mgl64.Vec3 {
	return mgl64.Vec3{east, up, -north}
}

// ENUFromScene is the inverse of SceneFromENU.
func ENUFromScene(v mgl64.Vec3) (east, north, up float64) {
	return v[0], -v[2], v[1]
}
