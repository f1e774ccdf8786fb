// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package scene

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectionMatchesPerspectiveFormula(t *testing.T) {
	t.Parallel()

	const (
		fov  = 81.0
		near = 1.0
		far  = 300.0
	)
	c := NewPerspectiveCamera(fov, 1600, 900)
	c.Near, c.Far = near, far
	require.True(t, c.Update(mgl64.Ident4()))

	aspect := 16.0 / 9.0
	f := 1 / math.Tan(fov*math.Pi/180/2)
	want := mgl64.Mat4{
		f / aspect, 0, 0, 0,
		0, f, 0, 0,
		0, 0, (far + near) / (near - far), -1,
		0, 0, 2 * far * near / (near - far), 0,
	}
	for i := range want {
		assert.InDelta(t, want[i], c.Projection[i], 1e-12, "element %d", i)
	}
	ident := mgl64.Ident4()
	assert.InDeltaSlice(t, ident[:], c.View[:], 1e-15)
}

func TestCombinedIsProjectionTimesView(t *testing.T) {
	t.Parallel()

	heads := []mgl64.Mat4{
		mgl64.Ident4(),
		mgl64.HomogRotate3DY(0.8),
		mgl64.Translate3D(0.1, -0.2, 0.05),
		mgl64.QuatRotate(1.1, mgl64.Vec3{1, 2, 3}.Normalize()).Mat4(),
	}
	for _, fov := range []float64{10, 45, 81, 120, 170} {
		for i, h := range heads {
			c := NewPerspectiveCamera(fov, 1280, 720)
			require.True(t, c.Update(h), "fov %v head %d", fov, i)

			pv := c.Projection.Mul4(c.View)
			assert.InDeltaSlice(t, pv[:], c.Combined[:], 1e-12, "fov %v head %d", fov, i)

			ident := mgl64.Ident4()
			round := c.InvCombined.Mul4(c.Combined)
			assert.InDeltaSlice(t, ident[:], round[:], 1e-9, "fov %v head %d", fov, i)
		}
	}
}

func TestDegenerateCombinedSkipsFrustum(t *testing.T) {
	t.Parallel()

	c := NewPerspectiveCamera(81, 1280, 720)
	before := c.Frustum
	beforeInv := c.InvCombined

	c.Far = 0
	assert.False(t, c.Update(mgl64.Ident4()))
	assert.Equal(t, before, c.Frustum)
	assert.Equal(t, beforeInv, c.InvCombined)

	c.Far = 300
	c.Near = 300
	assert.False(t, c.Update(mgl64.Ident4()))
	for _, v := range c.InvCombined {
		assert.False(t, math.IsNaN(v))
	}

	c.Near = 1
	c.ViewportHeight = 0
	assert.False(t, c.Update(mgl64.Ident4()))
}

func TestFrustumContainment(t *testing.T) {
	t.Parallel()

	c := NewPerspectiveCamera(81, 1280, 720)
	require.True(t, c.Frustum.valid)

	assert.True(t, c.Frustum.SphereIn(mgl64.Vec3{0, 0, -10}, 0))
	assert.True(t, c.Frustum.SphereIn(mgl64.Vec3{0, 0, -299}, 0))
	assert.False(t, c.Frustum.SphereIn(mgl64.Vec3{0, 0, 10}, 0), "behind")
	assert.False(t, c.Frustum.SphereIn(mgl64.Vec3{0, 0, -0.5}, 0), "before near")
	assert.False(t, c.Frustum.SphereIn(mgl64.Vec3{0, 0, -301}, 0), "past far")
	assert.False(t, c.Frustum.SphereIn(mgl64.Vec3{100, 0, -10}, 0), "right")
	assert.False(t, c.Frustum.SphereIn(mgl64.Vec3{0, 100, -10}, 0), "above")

	assert.True(t, c.Frustum.SphereIn(mgl64.Vec3{0, 0, -302}, 5), "sphere straddles far")
}

func TestUnupdatedFrustumContainsEverything(t *testing.T) {
	t.Parallel()

	var f Frustum
	assert.False(t, f.valid)
	assert.True(t, f.SphereIn(mgl64.Vec3{1e9, 0, 0}, 0))
}

func TestProject(t *testing.T) {
	t.Parallel()

	c := NewPerspectiveCamera(81, 1280, 720)
	x, y, _, ok := c.Project(mgl64.Vec3{0, 0, -50})
	require.True(t, ok)
	assert.InDelta(t, 640, x, 1e-9)
	assert.InDelta(t, 360, y, 1e-9)

	_, y, _, ok = c.Project(mgl64.Vec3{0, 10, -50})
	require.True(t, ok)
	assert.Less(t, y, 360.0, "up is towards the top of the screen")

	_, _, _, ok = c.Project(mgl64.Vec3{0, 0, 50})
	assert.False(t, ok)
}

func TestFieldOfView(t *testing.T) {
	t.Parallel()

	f := NewFieldOfView(200)
	assert.Equal(t, DefaultFieldOfView, f.Get())

	require.NoError(t, f.Set(70))
	assert.Equal(t, 70.0, f.Get())

	for _, bad := range []float64{0, -5, 180, math.NaN()} {
		require.ErrorIs(t, f.Set(bad), ErrInvalidFieldOfView)
	}
	assert.Equal(t, 70.0, f.Get())
}

func TestEnvironmentShade(t *testing.T) {
	t.Parallel()

	env := DefaultEnvironment()
	lit := env.LightDir.Mul(-1)
	assert.Equal(t, 1.0, env.Shade(lit))
	assert.InDelta(t, 0.4, env.Shade(env.LightDir), 1e-12)
	assert.InDelta(t, 0.4, env.Shade(mgl64.Vec3{0, 0, 1}.Cross(env.LightDir)), 1e-9)
}

func TestPickRayThroughProjectedPoint(t *testing.T) {
	t.Parallel()

	c := NewPerspectiveCamera(81, 1280, 720)
	origin, dir := c.PickRay(640, 360)
	assert.InDeltaSlice(t, []float64{0, 0, 0}, origin[:], 1e-9)
	assert.InDeltaSlice(t, []float64{0, 0, -1}, dir[:], 1e-9)

	require.True(t, c.Update(mgl64.HomogRotate3DY(0.3).Mul4(mgl64.Translate3D(1, -2, 0.5))))
	p := mgl64.Vec3{20, 5, -60}
	x, y, _, ok := c.Project(p)
	require.True(t, ok)

	origin, dir = c.PickRay(x, y)
	assert.InDelta(t, 1.0, dir.Len(), 1e-12)
	want := p.Sub(origin).Normalize()
	assert.InDeltaSlice(t, want[:], dir[:], 1e-9)
}
