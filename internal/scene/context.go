// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package scene is the head-relative renderer: it owns the camera, the
// geographic placement of scene objects and the per-frame pipeline that turns
// the latest head-view sample into camera and object matrices.
package scene

import (
	"image/color"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// Model is a graphics resource owned by the renderer. Dispose is called
// exactly once.
type Model interface {
	Dispose() error
}

// GraphicsDevice is the drawing backend. Calls are made only from the render
// goroutine, between Begin and End.
type GraphicsDevice interface {
	NewBoxModel(size float64, c color.RGBA) (Model, error)
	Begin(width, height int, background color.RGBA)
	DrawModel(m Model, transform mgl64.Mat4, cam *Camera, env Environment)
	// DrawPolyline strokes connected world-space points.
	DrawPolyline(points []mgl64.Vec3, cam *Camera, c color.RGBA)
	DrawLabel(x, y float64, text string, c color.RGBA)
	End()
}

// Clock supplies frame timestamps.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Context carries the collaborators a renderer needs. It is passed in
// explicitly; nothing in this package reaches for globals.
type Context struct {
	Graphics GraphicsDevice
	Clock    Clock
}

// Environment is the lighting applied to every model.
type Environment struct {
	Ambient     float64    `json:"ambient"`
	Directional float64    `json:"directional"`
	LightDir    mgl64.Vec3 `json:"light_dir"`
}

// DefaultEnvironment is a grey ambient light plus one white directional
// light shining down and to the left.
func DefaultEnvironment() Environment {
	return Environment{
		Ambient:     0.4,
		Directional: 0.8,
		LightDir:    mgl64.Vec3{-1, -0.8, -0.2},
	}
}

// Shade returns the light intensity for a surface with the given world
// normal, clamped to [0, 1].
func (e Environment) Shade(normal mgl64.Vec3) float64 {
	l := e.LightDir
	if l.Len() > 0 {
		l = l.Normalize()
	}
	n := normal
	if n.Len() > 0 {
		n = n.Normalize()
	}
	diffuse := -n.Dot(l)
	if diffuse < 0 {
		diffuse = 0
	}
	v := e.Ambient + e.Directional*diffuse
	if v > 1 {
		v = 1
	}
	return v
}
