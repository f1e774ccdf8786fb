// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/headview/internal/orientation"
	"github.com/relabs-tech/headview/internal/remap"
)

// scriptedSensor replays one gravity vector per pose, advancing every
// calibrationSamples reads.
type scriptedSensor struct {
	vectors [][3]float64
	reads   int
}

func (s *scriptedSensor) Gravity() ([3]float64, error) {
	v := s.vectors[s.reads/calibrationSamples]
	s.reads++
	return v, nil
}

// sensorFor returns the sensor reading for a scene direction under r.
func sensorFor(r remap.AxisRemap, scene [3]float64) [3]float64 {
	v := r.Matrix().Transpose().Mul3x1(mgl64.Vec3(scene)).Mul(9.81)
	return [3]float64(v)
}

func TestGuidedRemapRecoversDefault(t *testing.T) {
	t.Parallel()

	want := remap.Default()
	sensor := &scriptedSensor{}
	for _, p := range calibrationPoses {
		sensor.vectors = append(sensor.vectors, sensorFor(want, p.scene))
	}

	var out bytes.Buffer
	dir := t.TempDir()
	err := RunRemapCalibration(strings.NewReader("\n\n\n"), &out, "", dir, func() (orientation.GravitySensor, error) {
		return sensor, nil
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "AXIS_REMAP=-z,y,x")
	assert.Contains(t, out.String(), "Step 3/3")

	files, err := filepath.Glob(filepath.Join(dir, "*_headview_remap.json"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	b, err := os.ReadFile(files[0])
	require.NoError(t, err)
	var stored RemapCalibration
	require.NoError(t, json.Unmarshal(b, &stored))
	assert.Equal(t, "-z,y,x", stored.Remap)
	assert.Len(t, stored.Pairs, 3)
	assert.InDelta(t, 0, stored.Residual, 1e-6)
}

func TestRemapCalibrationFromFile(t *testing.T) {
	t.Parallel()

	r := remap.MustParse("y,-x,z")
	pairs := []remap.VectorPair{
		{Sensor: sensorFor(r, [3]float64{1, 0, 0}), Scene: [3]float64{1, 0, 0}},
		{Sensor: sensorFor(r, [3]float64{0, 1, 0}), Scene: [3]float64{0, 1, 0}},
	}
	b, err := json.Marshal(pairs)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "pairs.json")
	require.NoError(t, os.WriteFile(path, b, 0o600))

	var out bytes.Buffer
	err = RunRemapCalibration(strings.NewReader(""), &out, path, t.TempDir(), func() (orientation.GravitySensor, error) {
		return nil, errors.New("no IMU in file mode")
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "AXIS_REMAP=y,-x,z")
}

func TestRemapCalibrationErrors(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	err := RunRemapCalibration(strings.NewReader(""), &out, "", t.TempDir(), func() (orientation.GravitySensor, error) {
		return nil, errors.New("spi: no device")
	})
	require.ErrorContains(t, err, "spi: no device")

	path := filepath.Join(t.TempDir(), "one.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"sensor":[0,0,1],"scene":[0,1,0]}]`), 0o600))
	err = RunRemapCalibration(strings.NewReader(""), &out, path, t.TempDir(), nil)
	require.ErrorIs(t, err, remap.ErrNotEnoughPairs)
}

func TestAverageGravityRejectsMotion(t *testing.T) {
	t.Parallel()

	i := 0
	read := func() ([3]float64, error) {
		i++
		if i%2 == 0 {
			return [3]float64{0, 0, 9.81}, nil
		}
		return [3]float64{9.81, 0, 0}, nil
	}
	_, err := averageGravity(read, 10)
	require.ErrorIs(t, err, errNotStill)

	still := func() ([3]float64, error) { return [3]float64{0, 9.8, 0}, nil }
	g, err := averageGravity(still, 10)
	require.NoError(t, err)
	assert.InDelta(t, 9.8, g[1], 1e-9)
}

func TestSolveRemapTimestamp(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	res, err := solveRemap([]remap.VectorPair{
		{Sensor: [3]float64{1, 0, 0}, Scene: [3]float64{1, 0, 0}},
		{Sensor: [3]float64{0, 1, 0}, Scene: [3]float64{0, 1, 0}},
	}, at)
	require.NoError(t, err)
	assert.Equal(t, "x,y,z", res.Remap)
	assert.Equal(t, at, res.Timestamp)
	assert.Equal(t, 1, res.Version)
}
