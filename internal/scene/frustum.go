// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package scene

import "github.com/go-gl/mathgl/mgl64"

// Plane is n·p + D = 0 with N pointing into the frustum.
type Plane struct {
	N mgl64.Vec3
	D float64
}

// Distance is the signed distance of p from the plane, positive inside.
func (pl Plane) Distance(p mgl64.Vec3) float64 {
	return pl.N.Dot(p) + pl.D
}

// Frustum planes in the order near, far, left, right, top, bottom.
type Frustum struct {
	Planes  [6]Plane
	corners [8]mgl64.Vec3
	valid   bool
}

var ndcCorners = [8]mgl64.Vec3{
	{-1, -1, -1}, {1, -1, -1}, {1, 1, -1}, {-1, 1, -1},
	{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1},
}

// corner indices of each plane, same order as Planes
var planeCorners = [6][3]int{
	{1, 0, 2}, // near
	{4, 5, 7}, // far
	{0, 4, 3}, // left
	{5, 1, 6}, // right
	{2, 3, 6}, // top
	{4, 0, 1}, // bottom
}

// Update rebuilds the planes from the inverse of the combined matrix by
// unprojecting the eight NDC cube corners into world space.
func (f *Frustum) Update(invCombined mgl64.Mat4) {
	var centroid mgl64.Vec3
	for i, c := range ndcCorners {
		f.corners[i] = mgl64.TransformCoordinate(c, invCombined)
		centroid = centroid.Add(f.corners[i])
	}
	centroid = centroid.Mul(1.0 / 8)

	for i, idx := range planeCorners {
		p1, p2, p3 := f.corners[idx[0]], f.corners[idx[1]], f.corners[idx[2]]
		n := p1.Sub(p2).Cross(p2.Sub(p3))
		if n.Len() > 0 {
			n = n.Normalize()
		}
		pl := Plane{N: n, D: -n.Dot(p1)}
		// a reflected combined matrix flips the winding; keep normals inward
		if pl.Distance(centroid) < 0 {
			pl = Plane{N: n.Mul(-1), D: -pl.D}
		}
		f.Planes[i] = pl
	}
	f.valid = true
}

// SphereIn reports whether a sphere intersects the frustum. An un-updated
// frustum contains everything.
func (f *Frustum) SphereIn(center mgl64.Vec3, radius float64) bool {
	if !f.valid {
		return true
	}
	for _, pl := range f.Planes {
		if pl.Distance(center) < -radius {
			return false
		}
	}
	return true
}
