// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relabs-tech/headview/internal/config"
	"github.com/relabs-tech/headview/internal/orientation"
)

// headViewMessage converts a head pose into the published head-view matrix.
func headViewMessage(p orientation.Pose, at time.Time, source string) HeadViewMessage {
	s := orientation.FromPose(p)
	return HeadViewMessage{HeadView: s[:], Time: at, Source: source}
}

func newHeadSource(cfg *config.Config) (orientation.Source, error) {
	switch cfg.HeadSource {
	case "mock":
		log.Println("producer: using mock head source")
		return orientation.NewMockSource(), nil
	case "imu":
		log.Printf("producer: using IMU head source on %s (CS %s)", cfg.IMUSPIDevice, cfg.IMUCSPin)
		return orientation.NewIMUSource(cfg.IMUSPIDevice, cfg.IMUCSPin)
	default:
		return nil, fmt.Errorf("producer: unknown head source %q", cfg.HeadSource)
	}
}

// RunHeadProducer reads head poses at HEAD_SAMPLE_INTERVAL and publishes
// them as head-view matrices on TOPIC_HEAD_VIEW until Ctrl+C.
func RunHeadProducer() error {
	cfg := config.Get()

	src, err := newHeadSource(cfg)
	if err != nil {
		return err
	}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDProducer, "producer")
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	ticker := time.NewTicker(time.Duration(cfg.HeadSampleInterval) * time.Millisecond)
	defer ticker.Stop()

	log.Printf("producer: publishing head view to %s every %dms", cfg.TopicHeadView, cfg.HeadSampleInterval)

	var published uint64
	for {
		select {
		case <-sigCh:
			log.Printf("producer: shutting down after %d samples", published)
			return nil
		case t := <-ticker.C:
			pose, err := src.Next()
			if err != nil {
				log.Printf("producer: head source error: %v", err)
				continue
			}
			if err := publishJSON(client, cfg.TopicHeadView, false, headViewMessage(pose, t, cfg.HeadSource)); err != nil {
				log.Printf("producer: %v", err)
				continue
			}
			published++
		}
	}
}
