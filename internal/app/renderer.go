// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/relabs-tech/headview/internal/capture"
	"github.com/relabs-tech/headview/internal/config"
	"github.com/relabs-tech/headview/internal/geo"
	"github.com/relabs-tech/headview/internal/gps"
	"github.com/relabs-tech/headview/internal/host"
	"github.com/relabs-tech/headview/internal/metrics"
	"github.com/relabs-tech/headview/internal/orientation"
	"github.com/relabs-tech/headview/internal/raster"
	"github.com/relabs-tech/headview/internal/scene"
)

// captureStepInterval paces the capture state machine, one transition per
// tick.
const captureStepInterval = 50 * time.Millisecond

// Renderer wires the scene renderer to its inputs (head samples, field of
// view, GPS fixes) and outputs (raster frames, summaries, metrics).
type Renderer struct {
	cfg *config.Config

	Slot    *orientation.Slot
	FOV     *scene.FieldOfView
	Device  *raster.Device
	Scene   *scene.Renderer
	Metrics *metrics.FrameCollector
	Capture *capture.Controller

	hub *frameHub
}

// SceneConfig maps the key/value configuration onto the renderer config.
// With no objects configured a single object without coordinates is
// created, placed by the missing-coordinate policy.
func SceneConfig(cfg *config.Config) scene.Config {
	sc := scene.DefaultConfig()
	if cfg.HasCamera() {
		c := cfg.CameraCoordinate()
		sc.Camera = &c
	}

	objects := cfg.ObjectList()
	for _, o := range objects {
		c := geo.Coordinate{Lat: o.Lat, Lon: o.Lon, Alt: o.Alt}
		sc.Objects = append(sc.Objects, scene.ObjectSpec{Name: o.Name, Coordinate: &c})
	}
	if len(objects) == 0 {
		name := cfg.ObjectName
		if name == "" {
			name = "object"
		}
		sc.Objects = append(sc.Objects, scene.ObjectSpec{Name: name})
	}

	sc.Displacement.Mode = cfg.DisplacementMode
	sc.Displacement.MetersPerUnit = cfg.MetersPerUnit
	sc.Remap = cfg.AxisRemap
	sc.Near = cfg.Near
	sc.Far = cfg.Far
	sc.ViewportWidth = cfg.ViewportWidth
	sc.ViewportHeight = cfg.ViewportHeight
	sc.Heading = cfg.HeadingDeg
	sc.HeadRotation = cfg.HeadRotation
	sc.MissingCoordinate = cfg.MissingCoordinatePolicy
	sc.ForwardDistance = cfg.ForwardDistance
	sc.MinDistance = cfg.MinDistance
	sc.MaxDistance = cfg.MaxDistance
	sc.FarClampDistance = cfg.FarClampDistance
	sc.CameraHeight = cfg.CameraHeight
	sc.CenterRayDistance = cfg.CenterRayDistance
	sc.ArcSegments = cfg.ArcSegments
	return sc
}

// NewRenderer builds the renderer service. Metrics register against reg,
// or the default registerer when reg is nil.
func NewRenderer(cfg *config.Config, reg prometheus.Registerer) (*Renderer, error) {
	collector, err := metrics.NewFrameCollector(reg)
	if err != nil {
		return nil, fmt.Errorf("renderer: metrics: %w", err)
	}

	fov := scene.NewFieldOfView(cfg.FOVDeg)
	slot := orientation.NewSlot()
	dev := raster.NewDevice()

	r, err := scene.NewRenderer(scene.Context{Graphics: dev, Clock: scene.SystemClock{}}, SceneConfig(cfg), slot, fov)
	if err != nil {
		return nil, fmt.Errorf("renderer: %w", err)
	}
	r.SetRecorder(collector)

	return &Renderer{
		cfg:     cfg,
		Slot:    slot,
		FOV:     fov,
		Device:  dev,
		Scene:   r,
		Metrics: collector,
		Capture: capture.NewController(cfg.CaptureDir, dev),
		hub:     newFrameHub(),
	}, nil
}

// HandleHeadView ingests one TOPIC_HEAD_VIEW payload. Rejected samples leave
// the previous sample in place.
func (a *Renderer) HandleHeadView(payload []byte) error {
	var msg HeadViewMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		a.Metrics.ObserveSample(false)
		return fmt.Errorf("head view: %w", err)
	}
	s, err := orientation.ParseSample(msg.HeadView)
	if err == nil {
		err = a.Slot.Publish(s)
	}
	a.Metrics.ObserveSample(err == nil)
	if err != nil {
		return fmt.Errorf("head view: %w", err)
	}
	return nil
}

// HandleFOV ingests one TOPIC_FOV payload.
func (a *Renderer) HandleFOV(payload []byte) error {
	var msg FOVMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("fov: %w", err)
	}
	if err := a.FOV.Set(msg.FOVDeg); err != nil {
		return fmt.Errorf("fov: %w", err)
	}
	return nil
}

// HandleGPS ingests one TOPIC_GPS fix. With CAMERA_SOURCE=gps the first
// valid fix becomes the camera location; every later fix is ignored.
func (a *Renderer) HandleGPS(payload []byte) error {
	if a.cfg.CameraSource != "gps" {
		return nil
	}
	var fix gps.Fix
	if err := json.Unmarshal(payload, &fix); err != nil {
		return fmt.Errorf("gps: %w", err)
	}
	c, err := fix.Coordinate()
	if errors.Is(err, gps.ErrNoFix) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("gps: %w", err)
	}
	switch err := a.Scene.SetCameraCoordinate(c); {
	case errors.Is(err, scene.ErrCameraAlreadySet):
		return nil
	case err != nil:
		return fmt.Errorf("gps: %w", err)
	}
	log.Printf("renderer: camera location set from GPS: %s", c)
	return nil
}

// pumpFrames forwards every frame summary to WebSocket clients and to
// publish until ctx is done.
func (a *Renderer) pumpFrames(ctx context.Context, publish func(scene.FrameSummary)) {
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-a.Scene.Frames():
			a.hub.broadcast(s)
			if publish != nil {
				publish(s)
			}
		}
	}
}

// RunRenderer runs the renderer until Ctrl+C: MQTT ingest, the render loop,
// capture, frame publishing and the web server.
func RunRenderer() error {
	cfg := config.Get()

	svc, err := NewRenderer(cfg, nil)
	if err != nil {
		return err
	}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDRenderer, "renderer")
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	handlers := []struct {
		topic  string
		handle func([]byte) error
	}{
		{cfg.TopicHeadView, svc.HandleHeadView},
		{cfg.TopicFOV, svc.HandleFOV},
		{cfg.TopicGPS, svc.HandleGPS},
	}
	for _, h := range handlers {
		handle, topic := h.handle, h.topic
		if err := subscribe(client, topic, "renderer", func(payload []byte) {
			if err := handle(payload); err != nil {
				log.Printf("renderer: %s: %v", topic, err)
			}
		}); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loop := host.NewLoop(svc.Scene, time.Duration(cfg.FrameInterval)*time.Millisecond)
	if err := loop.Start(ctx); err != nil {
		return fmt.Errorf("renderer: %w", err)
	}

	go svc.Capture.Run(ctx, captureStepInterval)
	go svc.pumpFrames(ctx, func(s scene.FrameSummary) {
		if err := publishJSON(client, cfg.TopicFrame, false, s); err != nil {
			log.Printf("renderer: %v", err)
		}
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler:           svc.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("renderer: web server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("renderer: web server: %v", err)
		}
	}()

	waitForSignal()
	log.Println("renderer: shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("renderer: web server shutdown: %v", err)
	}
	cancel()
	return loop.Stop()
}
