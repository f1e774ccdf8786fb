// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Guided axis-remap calibration for the head IMU.
//
// The headset is held in three known poses (level, looking down, head
// tilted right). The accelerometer's up vector in each pose, paired with the
// scene direction it should map to, is fitted to the nearest signed axis
// permutation.
//
// Output:
//
//	Writes a JSON file under ./calibration/ and prints the AXIS_REMAP line
//	for headview_config.txt.
//
// Run:
//
//	go run ./cmd/calibration                      # guided, needs the IMU
//	go run ./cmd/calibration -pairs pairs.json    # offline, from recorded pairs
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/relabs-tech/headview/internal/app"
	"github.com/relabs-tech/headview/internal/config"
	"github.com/relabs-tech/headview/internal/orientation"
)

func main() {
	configPath := flag.String("config", "./headview_config.txt", "path to configuration file")
	pairsPath := flag.String("pairs", "", "JSON file of recorded sensor/scene vector pairs (skips the guided capture)")
	outDir := flag.String("out", "./calibration", "directory for the calibration result")
	flag.Parse()

	openIMU := func() (orientation.GravitySensor, error) {
		if err := config.InitGlobal(*configPath); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", *configPath, err)
		}
		cfg := config.Get()
		src, err := orientation.NewIMUSource(cfg.IMUSPIDevice, cfg.IMUCSPin)
		if err != nil {
			return nil, err
		}
		g, ok := src.(orientation.GravitySensor)
		if !ok {
			return nil, fmt.Errorf("head IMU source cannot report gravity")
		}
		return g, nil
	}

	if err := app.RunRemapCalibration(os.Stdin, os.Stdout, *pairsPath, *outDir, openIMU); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}
