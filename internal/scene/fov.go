// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package scene

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"
)

// ErrInvalidFieldOfView is returned for angles outside (0, 180).
var ErrInvalidFieldOfView = errors.New("field of view must be in (0, 180) degrees")

// DefaultFieldOfView is the vertical field of view in degrees.
const DefaultFieldOfView = 81.0

// FieldOfView is a live-tunable vertical field of view in degrees. It is set
// from any goroutine and read once per frame by the renderer.
type FieldOfView struct {
	bits atomic.Uint64
}

// NewFieldOfView returns a FieldOfView holding deg, or DefaultFieldOfView if
// deg is out of range.
func NewFieldOfView(deg float64) *FieldOfView {
	f := &FieldOfView{}
	if err := f.Set(deg); err != nil {
		f.bits.Store(math.Float64bits(DefaultFieldOfView))
	}
	return f
}

// Set stores deg. Out of range values are rejected and the previous value is
// kept.
func (f *FieldOfView) Set(deg float64) error {
	if math.IsNaN(deg) || deg <= 0 || deg >= 180 {
		return fmt.Errorf("%w: got %v", ErrInvalidFieldOfView, deg)
	}
	f.bits.Store(math.Float64bits(deg))
	return nil
}

// Get returns the current value.
func (f *FieldOfView) Get() float64 {
	return math.Float64frombits(f.bits.Load())
}
