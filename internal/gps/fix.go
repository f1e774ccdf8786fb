// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"errors"
	"fmt"

	"github.com/relabs-tech/headview/internal/geo"
)

// ErrNoFix is returned for a fix whose receiver status is not "A" (valid).
var ErrNoFix = errors.New("gps: fix not valid")

// Fix represents a single combined GPS fix suitable for JSON and MQTT.
type Fix struct {
	Time       string  `json:"time"`        // e.g. "12:34:56.0000"
	Date       string  `json:"date"`        // e.g. "13/06/94"
	Latitude   float64 `json:"lat"`         // decimal degrees
	Longitude  float64 `json:"lon"`         // decimal degrees
	Altitude   float64 `json:"alt"`         // meters above mean sea level, from GGA
	SpeedKnots float64 `json:"speed_knots"` // speed over ground
	CourseDeg  float64 `json:"course_deg"`  // course over ground
	Validity   string  `json:"validity"`    // "A" (valid) / "V" (void)
}

// Valid reports whether the receiver flagged the fix as usable.
func (f Fix) Valid() bool {
	return f.Validity == "A"
}

// Coordinate converts a valid fix into a geographic coordinate.
func (f Fix) Coordinate() (geo.Coordinate, error) {
	if !f.Valid() {
		return geo.Coordinate{}, fmt.Errorf("%w (validity %q)", ErrNoFix, f.Validity)
	}
	c := geo.Coordinate{Lat: f.Latitude, Lon: f.Longitude, Alt: f.Altitude}
	if err := c.Validate(); err != nil {
		return geo.Coordinate{}, err
	}
	return c, nil
}
