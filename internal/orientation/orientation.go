// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Pose is device attitude as Euler angles in degrees, sensor body axes:
// roll about X, pitch about Y, yaw about Z.
type Pose struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// Source is anything that can provide poses over time: the mock source, the
// IMU source, a replay.
type Source interface {
	Next() (Pose, error)
}

// GravitySensor is a source that can also report the raw accelerometer
// vector, used to calibrate the sensor-to-scene axis remap.
type GravitySensor interface {
	Gravity() ([3]float64, error)
}

// gyroCountsPerDegPerSec is the MPU-9250 gyro sensitivity at the ±250°/s
// full-scale range.
const gyroCountsPerDegPerSec = 131.0

// complementaryAlpha weights the integrated gyro estimate against the
// accelerometer tilt estimate.
const complementaryAlpha = 0.98

// ComputePoseFromAccel computes roll and pitch from accelerometer data only.
// Yaw is 0.
//
//	roll  = atan2(ay, az)
//	pitch = atan2(-ax, sqrt(ay² + az²))
func ComputePoseFromAccel(ax, ay, az float64) Pose {
	rollRad := math.Atan2(ay, az)
	pitchRad := math.Atan2(-ax, math.Sqrt(ay*ay+az*az))

	return Pose{
		Roll:  mgl64.RadToDeg(rollRad),
		Pitch: mgl64.RadToDeg(pitchRad),
		Yaw:   0,
	}
}

// ComputePoseFromIMURaw fuses accelerometer tilt with integrated gyro rates
// (raw counts at ±250°/s) using a complementary filter. Yaw is pure gyro
// integration and drifts; it is wrapped to (-180, 180].
func ComputePoseFromIMURaw(ax, ay, az, gx, gy, gz float64, prev Pose, dt float64) Pose {
	accel := ComputePoseFromAccel(ax, ay, az)
	if dt <= 0 {
		accel.Yaw = prev.Yaw
		return accel
	}

	rollGyro := prev.Roll + gx/gyroCountsPerDegPerSec*dt
	pitchGyro := prev.Pitch + gy/gyroCountsPerDegPerSec*dt
	yaw := prev.Yaw + gz/gyroCountsPerDegPerSec*dt

	return Pose{
		Roll:  complementaryAlpha*rollGyro + (1-complementaryAlpha)*accel.Roll,
		Pitch: complementaryAlpha*pitchGyro + (1-complementaryAlpha)*accel.Pitch,
		Yaw:   wrapDegrees(yaw),
	}
}

// Quat returns the rotation taking sensor body axes to the world frame:
// Rz(yaw) · Ry(pitch) · Rx(roll).
func (p Pose) Quat() mgl64.Quat {
	qz := mgl64.QuatRotate(mgl64.DegToRad(p.Yaw), mgl64.Vec3{0, 0, 1})
	qy := mgl64.QuatRotate(mgl64.DegToRad(p.Pitch), mgl64.Vec3{0, 1, 0})
	qx := mgl64.QuatRotate(mgl64.DegToRad(p.Roll), mgl64.Vec3{1, 0, 0})
	return qz.Mul(qy).Mul(qx).Normalize()
}

func wrapDegrees(d float64) float64 {
	d = math.Mod(d+180, 360)
	if d <= 0 {
		d += 360
	}
	return d - 180
}
