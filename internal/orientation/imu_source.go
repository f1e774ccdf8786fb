// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"
)

type imuSource struct {
	name string
	imu  *mpu9250.MPU9250
	prev Pose
	last time.Time
}

// NewIMUSource initializes an MPU9250 over SPI and returns a Source that
// fuses accelerometer tilt with gyro rates. Yaw comes from gyro integration
// only; there is no magnetometer correction.
func NewIMUSource(spiDevice, csPin string) (Source, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}

	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("head IMU CS pin %q not found", csPin)
	}

	tr, err := mpu9250.NewSpiTransport(spiDevice, cs)
	if err != nil {
		return nil, fmt.Errorf("head IMU SPI transport (%s): %w", spiDevice, err)
	}

	imu, err := mpu9250.New(tr)
	if err != nil {
		return nil, fmt.Errorf("head IMU new device: %w", err)
	}

	if err := imu.Init(); err != nil {
		return nil, fmt.Errorf("head IMU init: %w", err)
	}
	if err := imu.Calibrate(); err != nil {
		return nil, fmt.Errorf("head IMU calibrate: %w", err)
	}

	return &imuSource{name: spiDevice, imu: imu}, nil
}

// Next reads one accelerometer + gyro sample and advances the fused pose.
func (s *imuSource) Next() (Pose, error) {
	ax, err := s.imu.GetAccelerationX()
	if err != nil {
		return Pose{}, fmt.Errorf("head IMU acc X: %w", err)
	}
	ay, err := s.imu.GetAccelerationY()
	if err != nil {
		return Pose{}, fmt.Errorf("head IMU acc Y: %w", err)
	}
	az, err := s.imu.GetAccelerationZ()
	if err != nil {
		return Pose{}, fmt.Errorf("head IMU acc Z: %w", err)
	}
	gx, err := s.imu.GetRotationX()
	if err != nil {
		return Pose{}, fmt.Errorf("head IMU gyro X: %w", err)
	}
	gy, err := s.imu.GetRotationY()
	if err != nil {
		return Pose{}, fmt.Errorf("head IMU gyro Y: %w", err)
	}
	gz, err := s.imu.GetRotationZ()
	if err != nil {
		return Pose{}, fmt.Errorf("head IMU gyro Z: %w", err)
	}

	now := time.Now()
	var dt float64
	if !s.last.IsZero() {
		dt = now.Sub(s.last).Seconds()
	}
	s.last = now

	s.prev = ComputePoseFromIMURaw(
		float64(ax), float64(ay), float64(az),
		float64(gx), float64(gy), float64(gz),
		s.prev, dt,
	)
	return s.prev, nil
}

// Gravity reads the accelerometer once. At rest it points up in the sensor
// frame.
func (s *imuSource) Gravity() ([3]float64, error) {
	ax, err := s.imu.GetAccelerationX()
	if err != nil {
		return [3]float64{}, fmt.Errorf("head IMU acc X: %w", err)
	}
	ay, err := s.imu.GetAccelerationY()
	if err != nil {
		return [3]float64{}, fmt.Errorf("head IMU acc Y: %w", err)
	}
	az, err := s.imu.GetAccelerationZ()
	if err != nil {
		return [3]float64{}, fmt.Errorf("head IMU acc Z: %w", err)
	}
	return [3]float64{float64(ax), float64(ay), float64(az)}, nil
}
