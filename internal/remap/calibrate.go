// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package remap

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/mat"
)

// ErrNotEnoughPairs is returned when calibration data cannot pin down a
// rotation.
var ErrNotEnoughPairs = errors.New("calibration needs at least two non-parallel pairs")

// VectorPair is one calibration observation: the same physical direction
// measured in the sensor frame and in the scene frame.
type VectorPair struct {
	Sensor [3]float64 `json:"sensor"`
	Scene  [3]float64 `json:"scene"`
}

// Result is the outcome of a calibration.
type Result struct {
	Remap AxisRemap
	// Fit is the unconstrained best rotation before snapping.
	Fit mgl64.Mat3
	// Residual is the Frobenius distance between Fit and Remap.Matrix().
	Residual float64
}

// Calibrate fits the rotation M minimising Σ|M·sensor − scene|² with the
// Kabsch method and snaps it to the nearest proper signed permutation.
func Calibrate(pairs []VectorPair) (Result, error) {
	if len(pairs) < 2 {
		return Result{}, ErrNotEnoughPairs
	}

	// H = Σ sensor · sceneᵀ
	h := mat.NewDense(3, 3, nil)
	for _, p := range pairs {
		s := mgl64.Vec3(p.Sensor)
		d := mgl64.Vec3(p.Scene)
		if s.Len() == 0 || d.Len() == 0 {
			continue
		}
		s = s.Normalize()
		d = d.Normalize()
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				h.Set(i, j, h.At(i, j)+s[i]*d[j])
			}
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(h, mat.SVDFull); !ok {
		return Result{}, fmt.Errorf("remap calibration: SVD did not converge")
	}
	values := svd.Values(nil)
	if values[1] < 1e-9 {
		return Result{}, ErrNotEnoughPairs
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	// R = V · diag(1, 1, d) · Uᵀ, d fixing a reflection.
	var vut mat.Dense
	vut.Mul(&v, u.T())
	d := 1.0
	if mat.Det(&vut) < 0 {
		d = -1
	}
	diag := mat.NewDiagDense(3, []float64{1, 1, d})
	var vd, rot mat.Dense
	vd.Mul(&v, diag)
	rot.Mul(&vd, u.T())

	var fit mgl64.Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			fit.Set(i, j, rot.At(i, j))
		}
	}

	best, residual := Snap(fit)
	return Result{Remap: best, Fit: fit, Residual: residual}, nil
}

// Snap returns the proper signed permutation closest to m in the Frobenius
// norm, and that distance.
func Snap(m mgl64.Mat3) (AxisRemap, float64) {
	var best AxisRemap
	bestDist := math.Inf(1)
	for _, r := range All() {
		diff := m.Sub(r.Matrix())
		var sum float64
		for _, x := range diff {
			sum += x * x
		}
		if dist := math.Sqrt(sum); dist < bestDist {
			best, bestDist = r, dist
		}
	}
	return best, bestDist
}
