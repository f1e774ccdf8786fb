// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package scene

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/relabs-tech/headview/internal/geo"
)

// DefaultObjectSize is the box edge length in scene units.
const DefaultObjectSize = 5.0

// ObjectSpec describes one marker to place in the scene.
type ObjectSpec struct {
	Name string `json:"name"`
	// Coordinate is nil while the object's location is unknown.
	Coordinate *geo.Coordinate `json:"coordinate,omitempty"`
	Size       float64         `json:"size"`
	RotationX  float64         `json:"rotation_x"` // degrees
	RotationY  float64         `json:"rotation_y"` // degrees
	Color      color.RGBA      `json:"color"`
	Hidden     bool            `json:"hidden"`
}

// Object is a placed marker. Base is the unrotated placement transform;
// Transform is rebuilt from identity every frame.
type Object struct {
	Spec ObjectSpec

	Base      mgl64.Mat4
	Transform mgl64.Mat4

	model     Model
	placement mgl64.Vec3
	placed    bool
	estimated bool
	clamped   bool
	distance  float64 // meters, NaN when unknown
	bearing   float64 // degrees from north, NaN when unknown
	arc       []mgl64.Vec3
}

func newObject(spec ObjectSpec) *Object {
	if spec.Size <= 0 {
		spec.Size = DefaultObjectSize
	}
	if spec.Color == (color.RGBA{}) {
		spec.Color = color.RGBA{R: 0, G: 200, B: 0, A: 255}
	}
	return &Object{
		Spec:      spec,
		Base:      mgl64.Ident4(),
		Transform: mgl64.Ident4(),
		distance:  math.NaN(),
		bearing:   math.NaN(),
	}
}

// Placement is the object's position in scene units relative to the camera.
func (o *Object) Placement() mgl64.Vec3 { return o.placement }

// place computes the placement from coordinates, or applies the missing
// coordinate policy when either end is unknown.
func (o *Object) place(camera *geo.Coordinate, cfg Config) error {
	o.placed, o.estimated, o.clamped = false, false, false
	o.distance, o.bearing = math.NaN(), math.NaN()
	o.arc = nil

	if camera == nil || o.Spec.Coordinate == nil {
		if cfg.MissingCoordinate == Defer {
			o.placement = mgl64.Vec3{}
			o.Base = mgl64.Ident4()
			return nil
		}
		o.placement = geo.SceneFromENU(0, cfg.ForwardDistance, 0)
		o.placed, o.estimated = true, true
		o.Base = o.baseTransform()
		return nil
	}

	d, err := geo.Displacement(*camera, *o.Spec.Coordinate, cfg.Displacement)
	if err != nil {
		return fmt.Errorf("object %q: %w", o.Spec.Name, err)
	}
	o.distance = geo.Haversine(*camera, *o.Spec.Coordinate)
	o.bearing = geo.Bearing(*camera, *o.Spec.Coordinate)
	if cfg.FarClampDistance > 0 && d.Len() > cfg.FarClampDistance {
		d = d.Normalize().Mul(cfg.FarClampDistance)
		o.clamped = true
		if cfg.ArcSegments > 0 {
			o.arc = CurvatureArc(d, o.distance, cfg.ArcSegments, cfg.Displacement)
		}
	}
	o.placement = d
	o.placed = true
	o.Base = o.baseTransform()
	return nil
}

// CurvatureArc returns segments+1 points running straight from the camera
// foot (the origin) to end, each lowered by the earth's curvature drop at
// its share of groundMeters. The last point sits below end by the drop over
// the whole distance.
func CurvatureArc(end mgl64.Vec3, groundMeters float64, segments int, d geo.DisplacementConfig) []mgl64.Vec3 {
	if segments < 1 {
		return nil
	}
	pts := make([]mgl64.Vec3, 0, segments+1)
	for i := 0; i <= segments; i++ {
		f := float64(i) / float64(segments)
		drop := d.VerticalUnits(geo.CurvatureDrop(groundMeters * f))
		pts = append(pts, end.Mul(f).Sub(mgl64.Vec3{0, drop, 0}))
	}
	return pts
}

func (o *Object) baseTransform() mgl64.Mat4 {
	return mgl64.Translate3D(o.placement.X(), o.placement.Y(), o.placement.Z()).
		Mul4(mgl64.HomogRotate3DY(mgl64.DegToRad(o.Spec.RotationY))).
		Mul4(mgl64.HomogRotate3DX(mgl64.DegToRad(o.Spec.RotationX)))
}

// inRange applies the distance filter. Estimated placements always pass.
func (o *Object) inRange(minMeters, maxMeters float64) bool {
	if math.IsNaN(o.distance) {
		return true
	}
	if minMeters > 0 && o.distance < minMeters {
		return false
	}
	if maxMeters > 0 && o.distance > maxMeters {
		return false
	}
	return true
}

func (o *Object) label() string {
	if math.IsNaN(o.distance) {
		return o.Spec.Name
	}
	if o.Spec.Name == "" {
		return FormatDistance(o.distance)
	}
	return o.Spec.Name + " " + FormatDistance(o.distance)
}

// boundingRadius of the box.
func (o *Object) boundingRadius() float64 {
	return o.Spec.Size * math.Sqrt(3) / 2
}

func (o *Object) dispose() error {
	if o.model == nil {
		return nil
	}
	m := o.model
	o.model = nil
	if err := m.Dispose(); err != nil {
		return fmt.Errorf("dispose %q: %w", o.Spec.Name, err)
	}
	return nil
}

var errNoModel = errors.New("graphics device returned no model")
