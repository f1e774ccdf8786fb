// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"errors"
	"io"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/headview/internal/config"
	"github.com/relabs-tech/headview/internal/gps"
)

// RunGPSProducer opens the GPS serial port, parses NMEA sentences, and
// publishes combined fixes as JSON to TOPIC_GPS.
func RunGPSProducer() error {
	cfg := config.Get()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDGPS, "gps")
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	port, err := gps.OpenSerial(cfg.GPSSerialPort, uint(cfg.GPSBaudRate))
	if err != nil {
		return err
	}
	defer port.Close()
	log.Printf("gps: serial port opened on %s at %d baud", cfg.GPSSerialPort, cfg.GPSBaudRate)

	return forwardFixes(gps.NewReader(port), client, cfg.TopicGPS)
}

// forwardFixes publishes every fix from r, retained, until the stream ends.
func forwardFixes(r *gps.Reader, client mqtt.Client, topic string) error {
	for {
		fix, err := r.Next()
		if errors.Is(err, io.EOF) {
			log.Printf("gps: stream closed (%d lines skipped)", r.Skipped())
			return nil
		}
		if err != nil {
			return err
		}

		if err := publishJSON(client, topic, true, fix); err != nil {
			log.Printf("gps: %v", err)
			continue
		}
		log.Printf("gps: published fix: lat=%.6f lon=%.6f validity=%s", fix.Latitude, fix.Longitude, fix.Validity)
	}
}
