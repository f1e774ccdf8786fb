// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/headview/internal/config"
	"github.com/relabs-tech/headview/internal/scene"
)

const (
	hudWidth  = 128
	hudHeight = 64
	// lines of basicfont.Face7x13 that fit on the panel
	hudLines = 4
)

// hudData holds the latest frame summary for the display loop.
type hudData struct {
	mu    sync.RWMutex
	frame scene.FrameSummary
	have  bool
}

func (d *hudData) set(s scene.FrameSummary) {
	d.mu.Lock()
	d.frame = s
	d.have = true
	d.mu.Unlock()
}

func (d *hudData) get() (scene.FrameSummary, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.frame, d.have
}

// hudLinesFor picks what the panel shows for one frame: a header, then one
// line per object, on-screen objects marked with '*' and off-screen ones
// with an arrow towards them.
func hudLinesFor(s scene.FrameSummary, have bool) []string {
	if !have {
		return []string{"Head View", "Waiting..."}
	}
	lines := []string{fmt.Sprintf("FOV %.0f  vis %d/%d", s.FieldOfView, s.VisibleCount(), len(s.Objects))}
	for _, o := range s.Objects {
		if len(lines) == hudLines {
			break
		}
		switch {
		case !o.Placed:
			lines = append(lines, o.Name+" ?")
		case !o.InRange:
			lines = append(lines, "- "+o.Label)
		case o.OnScreen:
			lines = append(lines, "* "+o.Label)
		case o.Indicator != nil && o.Indicator.AngleDeg < 0:
			lines = append(lines, "< "+o.Label)
		case o.Indicator != nil:
			lines = append(lines, "> "+o.Label)
		default:
			lines = append(lines, "  "+o.Label)
		}
	}
	return lines
}

func renderHUD(lines []string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, hudWidth, hudHeight))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		drawer.Dot = fixed.P(0, 13*(i+1))
		drawer.DrawString(line)
	}
	return img
}

// RunHUDDisplay shows the latest frame summary from TOPIC_FRAME on an
// SSD1306 OLED until Ctrl+C.
func RunHUDDisplay() error {
	cfg := config.Get()

	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	// Open I2C bus
	bus, err := i2creg.Open(cfg.DisplayI2CBus)
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	// the driver always talks to address 0x3C
	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Printf("hud: display initialized on %s", bus)

	if err := dev.Draw(dev.Bounds(), renderHUD([]string{"Head View", "Looking for", "the horizon"}), image.Point{}); err != nil {
		log.Printf("hud: error showing splash: %v", err)
	}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDHUD, "hud")
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	data := &hudData{}
	if err := subscribe(client, cfg.TopicFrame, "hud", func(payload []byte) {
		var s scene.FrameSummary
		if err := json.Unmarshal(payload, &s); err != nil {
			log.Printf("hud: frame unmarshal error: %v", err)
			return
		}
		data.set(s)
	}); err != nil {
		return err
	}

	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	stop := make(chan struct{})
	go func() {
		waitForSignal()
		close(stop)
	}()

	log.Println("hud: starting update loop")
	for {
		select {
		case <-stop:
			log.Println("hud: shutting down")
			return dev.Halt()
		case <-ticker.C:
			s, have := data.get()
			if err := dev.Draw(dev.Bounds(), renderHUD(hudLinesFor(s, have)), image.Point{}); err != nil {
				log.Printf("hud: error updating display: %v", err)
			}
		}
	}
}
