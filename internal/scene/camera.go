// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// minCombinedDet is the smallest |det| of the combined matrix treated as
// invertible.
const minCombinedDet = 1e-12

// Camera is a perspective camera. Position, Direction and Up describe the
// base look-at; every Update rebuilds all derived matrices from scratch.
type Camera struct {
	Position  mgl64.Vec3
	Direction mgl64.Vec3
	Up        mgl64.Vec3

	Near        float64
	Far         float64
	FieldOfView float64 // vertical, degrees

	ViewportWidth  float64
	ViewportHeight float64

	Projection  mgl64.Mat4
	View        mgl64.Mat4
	Combined    mgl64.Mat4
	InvCombined mgl64.Mat4
	Frustum     Frustum
}

// NewPerspectiveCamera returns a camera at the origin looking north (-Z)
// with +Y up.
func NewPerspectiveCamera(fov, viewportWidth, viewportHeight float64) *Camera {
	c := &Camera{
		Position:       mgl64.Vec3{0, 0, 0},
		Direction:      mgl64.Vec3{0, 0, -1},
		Up:             mgl64.Vec3{0, 1, 0},
		Near:           1,
		Far:            300,
		FieldOfView:    fov,
		ViewportWidth:  viewportWidth,
		ViewportHeight: viewportHeight,
	}
	c.Update(mgl64.Ident4())
	return c
}

// Aspect is viewport width over height.
func (c *Camera) Aspect() float64 {
	if c.ViewportHeight == 0 {
		return 0
	}
	return c.ViewportWidth / c.ViewportHeight
}

// Update recomputes projection, view (headView · lookAt) and combined, and
// refreshes the frustum from the inverse of combined. It returns false when
// combined is not invertible; the frustum then keeps its previous planes.
func (c *Camera) Update(headView mgl64.Mat4) bool {
	c.Projection = mgl64.Perspective(mgl64.DegToRad(c.FieldOfView), c.Aspect(), c.Near, c.Far)
	lookAt := mgl64.LookAtV(c.Position, c.Position.Add(c.Direction), c.Up)
	c.View = headView.Mul4(lookAt)
	c.Combined = c.Projection.Mul4(c.View)

	det := c.Combined.Det()
	if math.IsNaN(det) || math.IsInf(det, 0) || math.Abs(det) < minCombinedDet {
		return false
	}
	inv := c.Combined.Inv()
	for _, v := range inv {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	c.InvCombined = inv
	c.Frustum.Update(inv)
	return true
}

// Project maps a world point to screen pixels (origin top-left, y down). ok
// is false when the point is behind the camera.
func (c *Camera) Project(p mgl64.Vec3) (x, y, depth float64, ok bool) {
	clip := c.Combined.Mul4x1(p.Vec4(1))
	if clip.W() <= 0 {
		return 0, 0, 0, false
	}
	ndc := clip.Vec3().Mul(1 / clip.W())
	x = (ndc.X() + 1) / 2 * c.ViewportWidth
	y = (1 - ndc.Y()) / 2 * c.ViewportHeight
	return x, y, ndc.Z(), true
}

// PickRay returns the world-space ray from the eye through screen pixel
// (x, y), origin top-left. dir is unit length.
func (c *Camera) PickRay(x, y float64) (origin, dir mgl64.Vec3) {
	ndcX := 2*x/c.ViewportWidth - 1
	ndcY := 1 - 2*y/c.ViewportHeight
	near := mgl64.TransformCoordinate(mgl64.Vec3{ndcX, ndcY, -1}, c.InvCombined)
	far := mgl64.TransformCoordinate(mgl64.Vec3{ndcX, ndcY, 1}, c.InvCombined)
	origin = mgl64.TransformCoordinate(mgl64.Vec3{}, c.View.Inv())
	return origin, far.Sub(near).Normalize()
}

// ToEye maps a world point into view space.
func (c *Camera) ToEye(p mgl64.Vec3) mgl64.Vec3 {
	return mgl64.TransformCoordinate(p, c.View)
}
