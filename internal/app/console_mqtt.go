// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/relabs-tech/headview/internal/config"
	"github.com/relabs-tech/headview/internal/gps"
	"github.com/relabs-tech/headview/internal/scene"
)

// formatFrame renders one frame summary as a console line.
func formatFrame(s scene.FrameSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[FRAME] #%d fov=%.1f° visible=%d/%d", s.Frame, s.FieldOfView, s.VisibleCount(), len(s.Objects))
	if s.SampleFallback {
		b.WriteString(" (no head sample)")
	}
	if s.FrustumSkipped {
		b.WriteString(" (frustum skipped)")
	}
	if s.CenterRay != nil {
		fmt.Fprintf(&b, "\n        looking at %s", s.CenterRay)
	}
	if s.PlacementError != "" {
		fmt.Fprintf(&b, "\n        placement failed: %s", s.PlacementError)
	}
	for _, o := range s.Objects {
		switch {
		case !o.Placed:
			fmt.Fprintf(&b, "\n        %s: waiting for location", o.Name)
		case !o.InRange:
			fmt.Fprintf(&b, "\n        %s: out of range (%s)", o.Name, o.Label)
		case o.OnScreen:
			fmt.Fprintf(&b, "\n        %s: at (%.0f, %.0f)", o.Name, o.ScreenX, o.ScreenY)
		case o.Indicator != nil:
			fmt.Fprintf(&b, "\n        %s: off screen, turn %+.0f°", o.Label, o.Indicator.AngleDeg)
		}
	}
	return b.String()
}

// RunConsoleMQTT prints frame summaries, field-of-view changes and GPS
// fixes until Ctrl+C.
func RunConsoleMQTT() error {
	cfg := config.Get()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole, "console")
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	if err := subscribe(client, cfg.TopicFrame, "console", func(payload []byte) {
		var s scene.FrameSummary
		if err := json.Unmarshal(payload, &s); err != nil {
			log.Printf("console: frame unmarshal error: %v", err)
			return
		}
		fmt.Println(formatFrame(s))
	}); err != nil {
		return err
	}

	if err := subscribe(client, cfg.TopicFOV, "console", func(payload []byte) {
		var m FOVMessage
		if err := json.Unmarshal(payload, &m); err != nil {
			log.Printf("console: fov unmarshal error: %v", err)
			return
		}
		fmt.Printf("[FOV ]  %.1f°\n", m.FOVDeg)
	}); err != nil {
		return err
	}

	if err := subscribe(client, cfg.TopicGPS, "console", func(payload []byte) {
		var f gps.Fix
		if err := json.Unmarshal(payload, &f); err != nil {
			log.Printf("console: gps unmarshal error: %v", err)
			return
		}
		fmt.Printf(
			"[GPS ]  time=%s date=%s lat=%.6f lon=%.6f alt=%.1f speed=%.1fkn course=%.1f° validity=%s\n",
			f.Time, f.Date, f.Latitude, f.Longitude, f.Altitude, f.SpeedKnots, f.CourseDeg, f.Validity,
		)
	}); err != nil {
		return err
	}

	waitForSignal()
	log.Println("console: shutting down")
	return nil
}
