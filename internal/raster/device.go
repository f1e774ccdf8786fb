// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package raster is a headless scene.GraphicsDevice: it fills projected box
// faces into an RGBA image with golang.org/x/image/vector and keeps the last
// finished frame for snapshots.
package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"sort"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/relabs-tech/headview/internal/scene"
)

var (
	ErrInvalidSize   = errors.New("raster: box size must be positive")
	ErrModelDisposed = errors.New("raster: model already disposed")
	ErrNoFrame       = errors.New("raster: no frame rendered yet")
)

// face is one quad ready to fill, depth is eye-space distance for sorting.
type face struct {
	pts   [4]mgl64.Vec2
	depth float64
	color color.RGBA
}

// lineWidth is the polyline stroke width in pixels.
const lineWidth = 2.0

type line struct {
	pts   [4]mgl64.Vec2
	color color.RGBA
}

type label struct {
	x, y float64
	text string
	c    color.RGBA
}

// Device renders into an in-memory image. Drawing happens on the render
// goroutine; Snapshot and WritePNG may be called from anywhere.
type Device struct {
	back  *image.RGBA
	faces []face
	lines []line
	texts []label
	rast  *vector.Rasterizer

	mu    sync.RWMutex
	front *image.RGBA
	live  int
}

// NewDevice returns a device with no frame yet.
func NewDevice() *Device {
	return &Device{}
}

type box struct {
	dev      *Device
	half     float64
	color    color.RGBA
	disposed bool
}

// Dispose releases the model. A second call returns ErrModelDisposed.
func (b *box) Dispose() error {
	if b.disposed {
		return ErrModelDisposed
	}
	b.disposed = true
	b.dev.mu.Lock()
	b.dev.live--
	b.dev.mu.Unlock()
	return nil
}

// NewBoxModel implements scene.GraphicsDevice.
func (d *Device) NewBoxModel(size float64, c color.RGBA) (scene.Model, error) {
	if !(size > 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSize, size)
	}
	d.mu.Lock()
	d.live++
	d.mu.Unlock()
	return &box{dev: d, half: size / 2, color: c}, nil
}

// LiveModels is the number of models created and not yet disposed.
func (d *Device) LiveModels() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.live
}

// Begin implements scene.GraphicsDevice: it clears the back buffer.
func (d *Device) Begin(width, height int, background color.RGBA) {
	if d.back == nil || d.back.Bounds().Dx() != width || d.back.Bounds().Dy() != height {
		d.back = image.NewRGBA(image.Rect(0, 0, width, height))
		d.rast = vector.NewRasterizer(width, height)
	}
	draw.Draw(d.back, d.back.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)
	d.faces = d.faces[:0]
	d.lines = d.lines[:0]
	d.texts = d.texts[:0]
}

// box corners in model space, unit half-size
var corners = [8]mgl64.Vec3{
	{-1, -1, -1}, {1, -1, -1}, {1, 1, -1}, {-1, 1, -1},
	{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1},
}

// faces as corner indices, counter-clockwise seen from outside
var quads = [6]struct {
	idx    [4]int
	normal mgl64.Vec3
}{
	{[4]int{4, 5, 6, 7}, mgl64.Vec3{0, 0, 1}},
	{[4]int{1, 0, 3, 2}, mgl64.Vec3{0, 0, -1}},
	{[4]int{5, 1, 2, 6}, mgl64.Vec3{1, 0, 0}},
	{[4]int{0, 4, 7, 3}, mgl64.Vec3{-1, 0, 0}},
	{[4]int{7, 6, 2, 3}, mgl64.Vec3{0, 1, 0}},
	{[4]int{0, 1, 5, 4}, mgl64.Vec3{0, -1, 0}},
}

// DrawModel implements scene.GraphicsDevice. Back faces and faces crossing
// the near plane are dropped; the rest are shaded and queued for End.
func (d *Device) DrawModel(m scene.Model, transform mgl64.Mat4, cam *scene.Camera, env scene.Environment) {
	b, ok := m.(*box)
	if !ok || b.disposed || d.back == nil {
		return
	}
	modelView := cam.View.Mul4(transform)
	normalMat := transform.Mat3().Inv().Transpose()

	for _, q := range quads {
		var eye [4]mgl64.Vec3
		var center mgl64.Vec3
		behind := false
		for i, ci := range q.idx {
			local := corners[ci].Mul(b.half)
			eye[i] = mgl64.TransformCoordinate(local, modelView)
			center = center.Add(eye[i])
			if -eye[i].Z() < cam.Near {
				behind = true
			}
		}
		if behind {
			continue
		}
		center = center.Mul(0.25)
		eyeNormal := eye[1].Sub(eye[0]).Cross(eye[2].Sub(eye[1]))
		if eyeNormal.Dot(center) >= 0 {
			continue
		}

		var f face
		for i := range eye {
			clip := cam.Projection.Mul4x1(eye[i].Vec4(1))
			ndc := clip.Vec3().Mul(1 / clip.W())
			f.pts[i] = mgl64.Vec2{
				(ndc.X() + 1) / 2 * cam.ViewportWidth,
				(1 - ndc.Y()) / 2 * cam.ViewportHeight,
			}
		}
		f.depth = center.Len()
		f.color = shade(b.color, env.Shade(normalMat.Mul3x1(q.normal)))
		d.faces = append(d.faces, f)
	}
}

// DrawPolyline implements scene.GraphicsDevice. Segments are clipped to the
// near plane and queued as thin quads drawn over the faces.
func (d *Device) DrawPolyline(points []mgl64.Vec3, cam *scene.Camera, c color.RGBA) {
	if d.back == nil || len(points) < 2 {
		return
	}
	toScreen := func(eye mgl64.Vec3) mgl64.Vec2 {
		clip := cam.Projection.Mul4x1(eye.Vec4(1))
		ndc := clip.Vec3().Mul(1 / clip.W())
		return mgl64.Vec2{(ndc.X() + 1) / 2 * cam.ViewportWidth, (1 - ndc.Y()) / 2 * cam.ViewportHeight}
	}

	prev := mgl64.TransformCoordinate(points[0], cam.View)
	for _, p := range points[1:] {
		a, b := prev, mgl64.TransformCoordinate(p, cam.View)
		prev = b

		da, db := -a.Z()-cam.Near, -b.Z()-cam.Near
		if da < 0 && db < 0 {
			continue
		}
		if da < 0 {
			a = a.Add(b.Sub(a).Mul(da / (da - db)))
		} else if db < 0 {
			b = b.Add(a.Sub(b).Mul(db / (db - da)))
		}

		sa, sb := toScreen(a), toScreen(b)
		dir := sb.Sub(sa)
		if dir.Len() == 0 {
			continue
		}
		n := mgl64.Vec2{-dir.Y(), dir.X()}.Normalize().Mul(lineWidth / 2)
		d.lines = append(d.lines, line{
			pts:   [4]mgl64.Vec2{sa.Add(n), sb.Add(n), sb.Sub(n), sa.Sub(n)},
			color: c,
		})
	}
}

func shade(c color.RGBA, k float64) color.RGBA {
	scale := func(v uint8) uint8 {
		x := float64(v) * k
		if x > 255 {
			x = 255
		}
		return uint8(x)
	}
	return color.RGBA{R: scale(c.R), G: scale(c.G), B: scale(c.B), A: c.A}
}

// DrawLabel implements scene.GraphicsDevice. (x, y) is the label centre; the
// label is kept inside the viewport.
func (d *Device) DrawLabel(x, y float64, text string, c color.RGBA) {
	if text == "" {
		return
	}
	d.texts = append(d.texts, label{x: x, y: y, text: text, c: c})
}

// End fills queued faces back to front, draws labels and publishes the
// frame.
func (d *Device) End() {
	if d.back == nil {
		return
	}
	sort.SliceStable(d.faces, func(i, j int) bool { return d.faces[i].depth > d.faces[j].depth })

	for _, f := range d.faces {
		d.fillQuad(f.pts, f.color)
	}
	for _, l := range d.lines {
		d.fillQuad(l.pts, l.color)
	}

	for _, l := range d.texts {
		drawLabel(d.back, l)
	}

	frame := image.NewRGBA(d.back.Bounds())
	copy(frame.Pix, d.back.Pix)
	d.mu.Lock()
	d.front = frame
	d.mu.Unlock()
}

func (d *Device) fillQuad(pts [4]mgl64.Vec2, c color.RGBA) {
	bounds := d.back.Bounds()
	d.rast.Reset(bounds.Dx(), bounds.Dy())
	d.rast.DrawOp = draw.Over
	d.rast.MoveTo(float32(pts[0].X()), float32(pts[0].Y()))
	for _, p := range pts[1:] {
		d.rast.LineTo(float32(p.X()), float32(p.Y()))
	}
	d.rast.ClosePath()
	d.rast.Draw(d.back, bounds, image.NewUniform(c), image.Point{})
}

func drawLabel(dst *image.RGBA, l label) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, l.text).Ceil()
	b := dst.Bounds()

	x := int(l.x) - width/2
	if x > b.Max.X-width-2 {
		x = b.Max.X - width - 2
	}
	if x < 2 {
		x = 2
	}
	y := int(l.y)
	if y > b.Max.Y-3 {
		y = b.Max.Y - 3
	}
	if y < face.Ascent+2 {
		y = face.Ascent + 2
	}

	dr := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(l.c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	dr.DrawString(l.text)
}

// Snapshot returns a copy of the last finished frame.
func (d *Device) Snapshot() (*image.RGBA, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.front == nil {
		return nil, ErrNoFrame
	}
	img := image.NewRGBA(d.front.Bounds())
	copy(img.Pix, d.front.Pix)
	return img, nil
}

// WritePNG encodes the last finished frame.
func (d *Device) WritePNG(w io.Writer) error {
	img, err := d.Snapshot()
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("raster: encode png: %w", err)
	}
	return nil
}
