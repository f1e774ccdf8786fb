// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package scene

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/relabs-tech/headview/internal/geo"
	"github.com/relabs-tech/headview/internal/orientation"
	"github.com/relabs-tech/headview/internal/remap"
)

var (
	// ErrNoGraphics is returned by NewRenderer for a context without a
	// graphics device.
	ErrNoGraphics = errors.New("scene: context has no graphics device")
	// ErrAlreadyInitialized is returned by a second Init.
	ErrAlreadyInitialized = errors.New("scene: renderer already initialized")
	// ErrDisposed is returned by Init after Dispose.
	ErrDisposed = errors.New("scene: renderer disposed")
	// ErrCameraAlreadySet is returned when the camera coordinate is supplied
	// a second time.
	ErrCameraAlreadySet = errors.New("scene: camera coordinate already set")
	// ErrNotInitialized is returned by queries that need a camera before
	// Init has run.
	ErrNotInitialized = errors.New("scene: renderer not initialized")
	// ErrNoCameraCoordinate is returned by ray queries while the viewer
	// location is unknown.
	ErrNoCameraCoordinate = errors.New("scene: camera coordinate not set")
)

// Config is everything the renderer needs besides its collaborators.
type Config struct {
	// Camera is the viewer location; nil until known (see SetCameraCoordinate).
	Camera  *geo.Coordinate
	Objects []ObjectSpec

	Displacement geo.DisplacementConfig
	Remap        remap.AxisRemap

	Near           float64
	Far            float64
	ViewportWidth  int
	ViewportHeight int

	// Heading is a compass correction in degrees, a rotation about +Y applied
	// to the world before the head rotation.
	Heading float64

	// HeadRotation selects whether the head rotation rotates the objects or
	// the view.
	HeadRotation HeadRotationTarget

	// CameraHeight raises the viewpoint this many meters above the camera
	// coordinate, along local up.
	CameraHeight float64
	// CenterRayDistance is how far along the view centre, in scene units,
	// the frame summary's CenterRay coordinate is taken; zero disables.
	CenterRayDistance float64

	MissingCoordinate MissingCoordinatePolicy
	ForwardDistance   float64 // scene units

	// MinDistance and MaxDistance filter objects by distance in meters;
	// zero disables a bound.
	MinDistance float64
	MaxDistance float64
	// FarClampDistance pulls objects farther than this (scene units) in to
	// this distance along their true direction; zero disables.
	FarClampDistance float64
	// ArcSegments is the number of segments in the curvature arc drawn from
	// the camera foot to each far-clamped object; zero disables.
	ArcSegments int

	Background  color.RGBA
	ArcColor    color.RGBA
	LabelColor  color.RGBA
	Environment Environment
}

// DefaultConfig returns the renderer defaults: 1 m per unit geodesic
// placement, near 1, far 300, 1280×720, default axis remap.
func DefaultConfig() Config {
	return Config{
		Displacement:      geo.DefaultDisplacementConfig(),
		Remap:             remap.Default(),
		Near:              1,
		Far:               300,
		ViewportWidth:     1280,
		ViewportHeight:    720,
		MissingCoordinate: ForwardOffset,
		ForwardDistance:   100,
		FarClampDistance:  250,
		CenterRayDistance: 100,
		ArcSegments:       16,
		Background:        color.RGBA{A: 255},
		ArcColor:          color.RGBA{R: 255, G: 200, B: 0, A: 255},
		LabelColor:        color.RGBA{R: 255, G: 255, B: 255, A: 255},
		Environment:       DefaultEnvironment(),
	}
}

// FrameRecorder receives every frame summary on the render goroutine. It
// must not block.
type FrameRecorder interface {
	RecordFrame(FrameSummary)
}

// Renderer draws geographically placed objects relative to the viewer's
// head. Init, OnFrame, OnResize and Dispose are called from a single host
// goroutine; SetCameraCoordinate, Latest and Frames are safe from anywhere.
type Renderer struct {
	ctx     Context
	cfg     Config
	samples orientation.Reader
	fov     *FieldOfView

	camera   *Camera
	objects  []*Object
	cameraAt *geo.Coordinate
	// world takes the geographic scene frame into the render frame for
	// the current frame: head rotation, heading, then camera height.
	world    mgl64.Mat4
	placeErr error
	arcBuf   []mgl64.Vec3

	pendingCamera atomic.Pointer[geo.Coordinate]
	cameraSet     atomic.Bool

	recorder FrameRecorder
	frames   chan FrameSummary
	latest   atomic.Pointer[FrameSummary]
	frame    uint64

	initialized bool
	disposed    bool
	disposeOnce sync.Once
	disposeErr  error
}

// NewRenderer validates cfg and computes every object's placement. samples
// may be nil (the head never moves); fov may be nil (DefaultFieldOfView).
func NewRenderer(ctx Context, cfg Config, samples orientation.Reader, fov *FieldOfView) (*Renderer, error) {
	if ctx.Graphics == nil {
		return nil, ErrNoGraphics
	}
	if ctx.Clock == nil {
		ctx.Clock = SystemClock{}
	}
	if fov == nil {
		fov = NewFieldOfView(DefaultFieldOfView)
	}
	if err := cfg.Remap.Validate(); err != nil {
		return nil, fmt.Errorf("scene: %w", err)
	}
	if err := cfg.Displacement.Validate(); err != nil {
		return nil, fmt.Errorf("scene: %w", err)
	}
	if math.IsNaN(cfg.CameraHeight) || math.IsInf(cfg.CameraHeight, 0) {
		return nil, fmt.Errorf("scene: camera height %v is not finite", cfg.CameraHeight)
	}
	if cfg.ArcSegments < 0 || cfg.CenterRayDistance < 0 {
		return nil, fmt.Errorf("scene: negative arc segments (%d) or center ray distance (%v)", cfg.ArcSegments, cfg.CenterRayDistance)
	}
	if cfg.Near <= 0 || cfg.Far <= cfg.Near {
		return nil, fmt.Errorf("scene: need 0 < near < far, got near=%v far=%v", cfg.Near, cfg.Far)
	}
	if cfg.ViewportWidth <= 0 || cfg.ViewportHeight <= 0 {
		return nil, fmt.Errorf("scene: invalid viewport %dx%d", cfg.ViewportWidth, cfg.ViewportHeight)
	}
	if cfg.Camera != nil {
		if err := cfg.Camera.Validate(); err != nil {
			return nil, fmt.Errorf("scene: camera: %w", err)
		}
	}

	r := &Renderer{
		ctx:     ctx,
		cfg:     cfg,
		samples: samples,
		fov:     fov,
		world:   mgl64.Ident4(),
		frames:  make(chan FrameSummary, 1),
	}

	for _, spec := range cfg.Objects {
		if spec.Coordinate != nil {
			if err := spec.Coordinate.Validate(); err != nil {
				return nil, fmt.Errorf("scene: object %q: %w", spec.Name, err)
			}
		}
		r.objects = append(r.objects, newObject(spec))
	}

	if cfg.Camera != nil {
		c := *cfg.Camera
		r.cameraAt = &c
		r.cameraSet.Store(true)
	}
	if err := r.placeAll(); err != nil {
		return nil, err
	}
	return r, nil
}

// SetRecorder installs a recorder. Call before the host loop starts.
func (r *Renderer) SetRecorder(rec FrameRecorder) {
	r.recorder = rec
}

// FieldOfView is the live field of view used by this renderer.
func (r *Renderer) FieldOfView() *FieldOfView { return r.fov }

// Camera returns the renderer's camera; nil before Init.
func (r *Renderer) Camera() *Camera { return r.camera }

// Objects returns the scene objects.
func (r *Renderer) Objects() []*Object { return r.objects }

// SetCameraCoordinate supplies the viewer location once, typically from the
// first valid GPS fix. Placements are recomputed on the next frame; a
// failure there is reported in that frame's summary.
func (r *Renderer) SetCameraCoordinate(c geo.Coordinate) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("scene: camera: %w", err)
	}
	if !r.cameraSet.CompareAndSwap(false, true) {
		return ErrCameraAlreadySet
	}
	r.pendingCamera.Store(&c)
	return nil
}

// Init creates one model per object. On failure every model created so far
// is released and the error is returned.
func (r *Renderer) Init() error {
	if r.disposed {
		return ErrDisposed
	}
	if r.initialized {
		return ErrAlreadyInitialized
	}

	r.camera = NewPerspectiveCamera(r.fov.Get(), float64(r.cfg.ViewportWidth), float64(r.cfg.ViewportHeight))
	r.camera.Near = r.cfg.Near
	r.camera.Far = r.cfg.Far
	r.camera.Update(mgl64.Ident4())

	for _, o := range r.objects {
		m, err := r.ctx.Graphics.NewBoxModel(o.Spec.Size, o.Spec.Color)
		if err == nil && m == nil {
			err = errNoModel
		}
		if err != nil {
			r.releaseModels()
			return fmt.Errorf("scene: create model for %q: %w", o.Spec.Name, err)
		}
		o.model = m
	}
	r.initialized = true
	return nil
}

// OnResize changes the viewport; non-positive sizes are ignored.
func (r *Renderer) OnResize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	r.cfg.ViewportWidth, r.cfg.ViewportHeight = width, height
	if r.camera != nil {
		r.camera.ViewportWidth = float64(width)
		r.camera.ViewportHeight = float64(height)
	}
}

// OnFrame runs the per-frame pipeline and draws the scene. It never blocks
// and never fails: a missing or malformed head sample renders with the
// identity rotation, and a degenerate camera keeps last frame's frustum.
func (r *Renderer) OnFrame(dt float64) {
	if !r.initialized || r.disposed {
		return
	}
	start := r.ctx.Clock.Now()
	r.frame++

	if c := r.pendingCamera.Swap(nil); c != nil {
		r.cameraAt = c
		r.placeErr = r.placeAll()
	}

	sample, fallback, age := r.latestSample(start)
	head := r.cfg.Remap.ApplyQuat(sample.Rotation()).Mat4()
	heading := mgl64.HomogRotate3DY(mgl64.DegToRad(r.cfg.Heading))
	lift := mgl64.Translate3D(0, -r.cfg.Displacement.VerticalUnits(r.cfg.CameraHeight), 0)

	r.camera.FieldOfView = r.fov.Get()
	headView := mgl64.Translate3D(sample[12], sample[13], sample[14])
	objectRot := head
	if r.cfg.HeadRotation == RotateView {
		headView = headView.Mul4(head)
		objectRot = mgl64.Ident4()
	}
	frustumOK := r.camera.Update(headView)
	r.world = objectRot.Mul4(heading).Mul4(lift)

	summary := FrameSummary{
		Frame:          r.frame,
		Time:           start,
		DeltaTime:      dt,
		FieldOfView:    r.camera.FieldOfView,
		SampleFallback: fallback,
		SampleAge:      age,
		FrustumSkipped: !frustumOK,
		Objects:        make([]ObjectState, 0, len(r.objects)),
	}
	if r.placeErr != nil {
		summary.PlacementError = r.placeErr.Error()
	}
	if frustumOK && r.cfg.CenterRayDistance > 0 && r.cameraAt != nil {
		c, err := r.ScreenCoordinate(r.camera.ViewportWidth/2, r.camera.ViewportHeight/2, r.cfg.CenterRayDistance)
		if err == nil {
			summary.CenterRay = &c
		}
	}

	g := r.ctx.Graphics
	g.Begin(int(r.camera.ViewportWidth), int(r.camera.ViewportHeight), r.cfg.Background)
	for _, o := range r.objects {
		o.Transform = mgl64.Ident4().Mul4(r.world).Mul4(o.Base)
		st := r.evaluate(o)
		if st.InRange && len(o.arc) > 0 {
			r.arcBuf = r.arcBuf[:0]
			for _, p := range o.arc {
				r.arcBuf = append(r.arcBuf, mgl64.TransformCoordinate(p, r.world))
			}
			g.DrawPolyline(r.arcBuf, r.camera, r.cfg.ArcColor)
		}
		if st.Visible {
			g.DrawModel(o.model, o.Transform, r.camera, r.cfg.Environment)
		}
		summary.Objects = append(summary.Objects, st)
	}
	for _, st := range summary.Objects {
		switch {
		case st.Visible && st.OnScreen:
			g.DrawLabel(st.ScreenX, st.ScreenY+labelOffset, st.Label, r.cfg.LabelColor)
		case st.Indicator != nil:
			r.drawIndicator(st)
		}
	}
	g.End()

	summary.Duration = r.ctx.Clock.Now().Sub(start)
	r.publish(summary)
}

// labelOffset puts labels just below the object centre, in pixels.
const labelOffset = 24

func (r *Renderer) drawIndicator(st ObjectState) {
	h := r.camera.ViewportHeight / 2
	if st.Indicator.AngleDeg < 0 {
		r.ctx.Graphics.DrawLabel(0, h, "< "+st.Indicator.Label, r.cfg.LabelColor)
		return
	}
	r.ctx.Graphics.DrawLabel(r.camera.ViewportWidth, h, st.Indicator.Label+" >", r.cfg.LabelColor)
}

// latestSample returns the sample to render with, whether it is the identity
// fallback, and its age at now when the reader timestamps samples.
func (r *Renderer) latestSample(now time.Time) (orientation.Sample, bool, time.Duration) {
	if r.samples == nil {
		return orientation.Identity(), true, 0
	}
	var (
		s   orientation.Sample
		at  time.Time
		ok  bool
		age time.Duration
	)
	if sr, stamped := r.samples.(orientation.StampedReader); stamped {
		s, at, ok = sr.LatestAt()
		if ok && now.After(at) {
			age = now.Sub(at)
		}
	} else {
		s, ok = r.samples.Latest()
	}
	if !ok {
		return orientation.Identity(), true, 0
	}
	if err := s.Validate(); err != nil {
		return orientation.Identity(), true, age
	}
	return s, false, age
}

// ScreenCoordinate returns the geographic point dist scene units along the
// pick ray through viewport pixel (x, y), origin top-left, as of the last
// frame. Call it from the host goroutine.
func (r *Renderer) ScreenCoordinate(x, y, dist float64) (geo.Coordinate, error) {
	if r.camera == nil {
		return geo.Coordinate{}, ErrNotInitialized
	}
	if r.cameraAt == nil {
		return geo.Coordinate{}, ErrNoCameraCoordinate
	}
	origin, dir := r.camera.PickRay(x, y)
	p := origin.Add(dir.Mul(dist))
	c, err := geo.Offset(*r.cameraAt, mgl64.TransformCoordinate(p, r.world.Inv()), r.cfg.Displacement)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("scene: screen ray: %w", err)
	}
	return c, nil
}

func (r *Renderer) evaluate(o *Object) ObjectState {
	st := ObjectState{
		Name:           o.Spec.Name,
		Placed:         o.placed,
		Estimated:      o.estimated,
		Clamped:        o.clamped,
		DistanceMeters: o.distance,
		BearingDeg:     o.bearing,
		Label:          o.label(),
	}
	if math.IsNaN(st.DistanceMeters) {
		st.DistanceMeters = 0
	}
	if math.IsNaN(st.BearingDeg) {
		st.BearingDeg = 0
	}
	if !o.placed || o.Spec.Hidden {
		return st
	}
	st.InRange = o.inRange(r.cfg.MinDistance, r.cfg.MaxDistance)
	if !st.InRange {
		return st
	}

	center := mgl64.TransformCoordinate(mgl64.Vec3{}, o.Transform)
	st.Visible = r.camera.Frustum.SphereIn(center, o.boundingRadius())

	if x, y, _, ok := r.camera.Project(center); ok {
		st.ScreenX, st.ScreenY = x, y
		st.OnScreen = x >= 0 && x <= r.camera.ViewportWidth && y >= 0 && y <= r.camera.ViewportHeight
	}
	if !st.OnScreen {
		eye := r.camera.ToEye(center)
		st.Indicator = &Indicator{
			AngleDeg: mgl64.RadToDeg(math.Atan2(eye.X(), -eye.Z())),
			Label:    st.Label,
		}
	}
	return st
}

func (r *Renderer) publish(s FrameSummary) {
	r.latest.Store(&s)
	if r.recorder != nil {
		r.recorder.RecordFrame(s)
	}
	select {
	case r.frames <- s:
		return
	default:
	}
	// replace the unread summary with the newer one
	select {
	case <-r.frames:
	default:
	}
	select {
	case r.frames <- s:
	default:
	}
}

// Frames delivers frame summaries. Only the newest unread summary is kept.
func (r *Renderer) Frames() <-chan FrameSummary { return r.frames }

// Latest returns the most recent frame summary.
func (r *Renderer) Latest() (FrameSummary, bool) {
	p := r.latest.Load()
	if p == nil {
		return FrameSummary{}, false
	}
	return *p, true
}

// placeAll places every object it can and joins the failures.
func (r *Renderer) placeAll() error {
	var errs []error
	for _, o := range r.objects {
		if err := o.place(r.cameraAt, r.cfg); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("scene: %w", err)
	}
	return nil
}

func (r *Renderer) releaseModels() error {
	var errs []error
	for _, o := range r.objects {
		if err := o.dispose(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Dispose releases every model exactly once. It is safe to call more than
// once and after a failed Init. The host must stop calling OnFrame first.
func (r *Renderer) Dispose() error {
	r.disposeOnce.Do(func() {
		r.disposed = true
		r.initialized = false
		if err := r.releaseModels(); err != nil {
			r.disposeErr = fmt.Errorf("scene: %w", err)
		}
	})
	return r.disposeErr
}
