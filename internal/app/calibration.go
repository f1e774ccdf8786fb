// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/relabs-tech/headview/internal/orientation"
	"github.com/relabs-tech/headview/internal/remap"
)

// calibrationSamples is how many accelerometer readings are averaged per
// pose.
const calibrationSamples = 50

// maxStillStdDev rejects a pose if the readings move more than this
// fraction of the mean magnitude.
const maxStillStdDev = 0.05

var errNotStill = errors.New("device moved during capture")

// RemapCalibration is the stored outcome of an axis-remap calibration.
type RemapCalibration struct {
	Version   int                `json:"version"`
	Timestamp time.Time          `json:"timestamp"`
	Pairs     []remap.VectorPair `json:"pairs"`
	Remap     string             `json:"remap"`
	Fit       [9]float64         `json:"fit"` // column-major 3x3
	Residual  float64            `json:"residual"`
}

// calibrationPose is one guided step: what the user does, and where the
// accelerometer's "up" then points in scene axes.
type calibrationPose struct {
	prompt string
	scene  [3]float64
}

// Holding the head level puts scene up (+Y) on the gravity reaction; looking
// straight down puts the head's back (+Z) there; tilting the right ear to the
// shoulder puts the head's left (-X) there.
var calibrationPoses = []calibrationPose{
	{"Look straight ahead, head level", [3]float64{0, 1, 0}},
	{"Look straight down at your feet", [3]float64{0, 0, 1}},
	{"Tilt your right ear down to your right shoulder", [3]float64{-1, 0, 0}},
}

// averageGravity averages n readings and checks the device stayed still.
func averageGravity(read func() ([3]float64, error), n int) ([3]float64, error) {
	var sum mgl64.Vec3
	samples := make([]mgl64.Vec3, 0, n)
	for i := 0; i < n; i++ {
		g, err := read()
		if err != nil {
			return [3]float64{}, err
		}
		v := mgl64.Vec3(g)
		samples = append(samples, v)
		sum = sum.Add(v)
	}
	mean := sum.Mul(1 / float64(n))

	var variance float64
	for _, v := range samples {
		d := v.Sub(mean)
		variance += d.Dot(d)
	}
	std := math.Sqrt(variance / float64(n))
	if mean.Len() == 0 || std/mean.Len() > maxStillStdDev {
		return [3]float64{}, fmt.Errorf("%w (std %.3f of %.3f)", errNotStill, std, mean.Len())
	}
	return [3]float64(mean), nil
}

// guidedRemap walks the user through calibrationPoses and returns one pair
// per pose.
func guidedRemap(in *bufio.Reader, out io.Writer, read func() ([3]float64, error)) ([]remap.VectorPair, error) {
	pairs := make([]remap.VectorPair, 0, len(calibrationPoses))
	for i, p := range calibrationPoses {
		fmt.Fprintf(out, "\nStep %d/%d: %s.\n", i+1, len(calibrationPoses), p.prompt)
		waitEnterOn(in, out, "Hold still and press ENTER to capture...")

		g, err := averageGravity(read, calibrationSamples)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		fmt.Fprintf(out, "Sensor up: X=%.3f Y=%.3f Z=%.3f\n", g[0], g[1], g[2])
		pairs = append(pairs, remap.VectorPair{Sensor: g, Scene: p.scene})
	}
	return pairs, nil
}

// solveRemap fits the pairs and builds the stored result.
func solveRemap(pairs []remap.VectorPair, at time.Time) (RemapCalibration, error) {
	res, err := remap.Calibrate(pairs)
	if err != nil {
		return RemapCalibration{}, err
	}
	return RemapCalibration{
		Version:   1,
		Timestamp: at,
		Pairs:     pairs,
		Remap:     res.Remap.String(),
		Fit:       [9]float64(res.Fit),
		Residual:  res.Residual,
	}, nil
}

// loadPairs reads a JSON array of remap.VectorPair.
func loadPairs(path string) ([]remap.VectorPair, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pairs: %w", err)
	}
	var pairs []remap.VectorPair
	if err := json.Unmarshal(b, &pairs); err != nil {
		return nil, fmt.Errorf("parse pairs %s: %w", path, err)
	}
	return pairs, nil
}

func writeCalibration(dir string, res RemapCalibration) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := filepath.Join(dir, fmt.Sprintf("%s_headview_remap.json", res.Timestamp.Format("2006-01-02T15-04-05Z07-00")))
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(name, b, 0o644); err != nil {
		return "", err
	}
	return name, nil
}

func waitEnterOn(in *bufio.Reader, out io.Writer, prompt string) {
	fmt.Fprint(out, prompt)
	_, _ = in.ReadString('\n')
}

// RunRemapCalibration finds the sensor-to-scene axis remap. With pairsPath
// set the pairs come from that JSON file; otherwise the user is guided
// through the poses with the head IMU. The result is written under outDir
// and the AXIS_REMAP line to put in the config is printed.
func RunRemapCalibration(in io.Reader, out io.Writer, pairsPath, outDir string, imu func() (orientation.GravitySensor, error)) error {
	var pairs []remap.VectorPair
	if pairsPath != "" {
		p, err := loadPairs(pairsPath)
		if err != nil {
			return err
		}
		pairs = p
	} else {
		sensor, err := imu()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "=== Guided axis-remap calibration ===")
		fmt.Fprintln(out, "Wear the headset and follow the prompts.")
		p, err := guidedRemap(bufio.NewReader(in), out, sensor.Gravity)
		if err != nil {
			return err
		}
		pairs = p
	}

	res, err := solveRemap(pairs, time.Now())
	if err != nil {
		return err
	}

	name, err := writeCalibration(outDir, res)
	if err != nil {
		return fmt.Errorf("write calibration: %w", err)
	}

	fmt.Fprintf(out, "\nFit residual: %.3f\n", res.Residual)
	if res.Residual > 0.5 {
		fmt.Fprintln(out, "WARNING: residual is high, the poses may not have been held as prompted.")
	}
	fmt.Fprintf(out, "Wrote: %s\n", name)
	fmt.Fprintf(out, "AXIS_REMAP=%s\n", res.Remap)
	return nil
}
