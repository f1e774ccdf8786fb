// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package scene

import (
	"fmt"
	"time"

	"github.com/relabs-tech/headview/internal/geo"
)

// Indicator points at an object that is outside the viewport.
type Indicator struct {
	// AngleDeg is the horizontal angle from camera forward, positive right.
	AngleDeg float64 `json:"angle_deg"`
	Label    string  `json:"label"`
}

// ObjectState is one object's per-frame result.
type ObjectState struct {
	Name           string     `json:"name"`
	Placed         bool       `json:"placed"`
	Estimated      bool       `json:"estimated"` // forward offset, no coordinates yet
	InRange        bool       `json:"in_range"`
	Visible        bool       `json:"visible"`
	OnScreen       bool       `json:"on_screen"`
	Clamped        bool       `json:"clamped"`
	ScreenX        float64    `json:"screen_x"`
	ScreenY        float64    `json:"screen_y"`
	DistanceMeters float64    `json:"distance_m"`
	BearingDeg     float64    `json:"bearing_deg"` // from north, clockwise
	Label          string     `json:"label"`
	Indicator      *Indicator `json:"indicator,omitempty"`
}

// FrameSummary describes one rendered frame.
type FrameSummary struct {
	Frame          uint64        `json:"frame"`
	Time           time.Time     `json:"time"`
	DeltaTime      float64       `json:"dt"`
	Duration       time.Duration `json:"duration_ns"`
	FieldOfView    float64       `json:"fov"`
	SampleFallback bool          `json:"sample_fallback"`
	// SampleAge is how old the head sample was, zero when unknown.
	SampleAge      time.Duration `json:"sample_age_ns"`
	FrustumSkipped bool          `json:"frustum_skipped"`
	// PlacementError is set while the last placement pass failed for at
	// least one object.
	PlacementError string `json:"placement_error,omitempty"`
	// CenterRay is the point CenterRayDistance along the view centre.
	CenterRay *geo.Coordinate `json:"center_ray,omitempty"`
	Objects   []ObjectState   `json:"objects"`
}

// VisibleCount is the number of objects drawn in the frame.
func (s FrameSummary) VisibleCount() int {
	n := 0
	for _, o := range s.Objects {
		if o.Visible {
			n++
		}
	}
	return n
}

// FormatDistance renders meters as "12.3 m" below one kilometre and as
// "1.23 km" above.
func FormatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%.1f m", meters)
	}
	return fmt.Sprintf("%.2f km", meters/1000)
}
