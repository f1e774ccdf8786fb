// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package scene

import (
	"fmt"
	"strings"
)

// MissingCoordinatePolicy decides what happens to an object while the camera
// or object coordinate is unknown.
type MissingCoordinatePolicy int

const (
	// ForwardOffset places the object ForwardDistance units along the camera
	// direction until coordinates arrive.
	ForwardOffset MissingCoordinatePolicy = iota
	// Defer leaves the object undrawn until coordinates arrive.
	Defer
)

func (p MissingCoordinatePolicy) String() string {
	switch p {
	case ForwardOffset:
		return "forward"
	case Defer:
		return "defer"
	default:
		return fmt.Sprintf("MissingCoordinatePolicy(%d)", int(p))
	}
}

// ParseMissingCoordinatePolicy accepts "forward" or "defer".
func ParseMissingCoordinatePolicy(s string) (MissingCoordinatePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "forward", "forward_offset":
		return ForwardOffset, nil
	case "defer":
		return Defer, nil
	default:
		return 0, fmt.Errorf("unknown missing coordinate policy %q (want forward|defer)", s)
	}
}

// HeadRotationTarget chooses where the head rotation enters the frame. With
// the camera at the origin looking down -Z both give the same image; they
// differ in which matrices carry the rotation.
type HeadRotationTarget int

const (
	// RotateObjects applies the head rotation to each object transform and
	// keeps only the sample's translation in the view.
	RotateObjects HeadRotationTarget = iota
	// RotateView left-multiplies the look-at view by the full head-view
	// transform and leaves object transforms unrotated.
	RotateView
)

func (t HeadRotationTarget) String() string {
	switch t {
	case RotateObjects:
		return "object"
	case RotateView:
		return "view"
	default:
		return fmt.Sprintf("HeadRotationTarget(%d)", int(t))
	}
}

// ParseHeadRotationTarget accepts "object" or "view".
func ParseHeadRotationTarget(s string) (HeadRotationTarget, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "object", "objects":
		return RotateObjects, nil
	case "view":
		return RotateView, nil
	default:
		return 0, fmt.Errorf("unknown head rotation target %q (want object|view)", s)
	}
}
