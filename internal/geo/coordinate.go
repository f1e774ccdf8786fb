// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// EarthRadiusMeters is the spherical earth radius used for every conversion
// in this package. No ellipsoid is modelled.
const EarthRadiusMeters = 6_371_000.0

// ErrInvalidCoordinate is returned when a coordinate is outside the valid
// latitude/longitude range or contains NaN/Inf.
var ErrInvalidCoordinate = errors.New("invalid geographic coordinate")

// Coordinate is a geographic position: latitude and longitude in degrees,
// altitude in meters (0 when unknown). It is a value type and is never
// mutated once captured.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
	Alt float64 `json:"alt"`
}

// Validate reports whether c can be used for displacement math.
func (c Coordinate) Validate() error {
	for _, v := range []float64{c.Lat, c.Lon, c.Alt} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %+v", ErrInvalidCoordinate, c)
		}
	}
	if c.Lat < -90 || c.Lat > 90 || c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("%w: lat=%.6f lon=%.6f", ErrInvalidCoordinate, c.Lat, c.Lon)
	}
	return nil
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%.6f, %.6f, %.1fm)", c.Lat, c.Lon, c.Alt)
}

// ToECEF converts c to earth-centred earth-fixed cartesian meters on a
// sphere of radius EarthRadiusMeters.
func ToECEF(c Coordinate) mgl64.Vec3 {
	lat := mgl64.DegToRad(c.Lat)
	lon := mgl64.DegToRad(c.Lon)
	r := EarthRadiusMeters + c.Alt

	return mgl64.Vec3{
		r * math.Cos(lat) * math.Cos(lon),
		r * math.Cos(lat) * math.Sin(lon),
		r * math.Sin(lat),
	}
}

// FromECEF is the inverse of ToECEF.
func FromECEF(v mgl64.Vec3) Coordinate {
	x, y, z := v[0], v[1], v[2]
	return Coordinate{
		Lat: mgl64.RadToDeg(math.Atan2(z, math.Sqrt(x*x+y*y))),
		Lon: mgl64.RadToDeg(math.Atan2(y, x)),
		Alt: math.Sqrt(x*x+y*y+z*z) - EarthRadiusMeters,
	}
}

// ECEFToENU rotates an ECEF difference vector d into the local
// East-North-Up frame tangent to the sphere at (latDeg, lonDeg).
func ECEFToENU(d mgl64.Vec3, latDeg, lonDeg float64) (east, north, up float64) {
	sinLat, cosLat := math.Sincos(mgl64.DegToRad(latDeg))
	sinLon, cosLon := math.Sincos(mgl64.DegToRad(lonDeg))

	east = -sinLon*d[0] + cosLon*d[1]
	north = -sinLat*cosLon*d[0] - sinLat*sinLon*d[1] + cosLat*d[2]
	up = cosLat*cosLon*d[0] + cosLat*sinLon*d[1] + sinLat*d[2]
	return east, north, up
}

// ENUToECEF is the transpose of ECEFToENU.
func ENUToECEF(east, north, up, latDeg, lonDeg float64) mgl64.Vec3 {
	sinLat, cosLat := math.Sincos(mgl64.DegToRad(latDeg))
	sinLon, cosLon := math.Sincos(mgl64.DegToRad(lonDeg))

	return mgl64.Vec3{
		-sinLon*east - sinLat*cosLon*north + cosLat*cosLon*up,
		cosLon*east - sinLat*sinLon*north + cosLat*sinLon*up,
		cosLat*north + sinLat*up,
	}
}

// Haversine returns the great-circle ground distance in meters between a
// and b. Altitude is ignored.
func Haversine(a, b Coordinate) float64 {
	lat1 := mgl64.DegToRad(a.Lat)
	lat2 := mgl64.DegToRad(b.Lat)
	dLat := mgl64.DegToRad(b.Lat - a.Lat)
	dLon := mgl64.DegToRad(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Bearing returns the initial great-circle bearing from a to b in degrees,
// 0 = north, clockwise, in [0, 360).
func Bearing(a, b Coordinate) float64 {
	lat1 := mgl64.DegToRad(a.Lat)
	lat2 := mgl64.DegToRad(b.Lat)
	dLon := mgl64.DegToRad(b.Lon - a.Lon)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	deg := mgl64.RadToDeg(math.Atan2(y, x))
	if deg < 0 {
		deg += 360
	}
	return deg
}

// midpoint returns a reference latitude/longitude between a and b that does
// not depend on argument order. Longitudes are unwrapped across the
// antimeridian before averaging.
func midpoint(a, b Coordinate) (lat, lon float64) {
	lo, hi := a.Lon, b.Lon
	if lo > hi {
		lo, hi = hi, lo
	}
	if hi-lo > 180 {
		lo += 360
	}
	lon = (lo + hi) / 2
	if lon > 180 {
		lon -= 360
	}
	return (a.Lat + b.Lat) / 2, lon
}
