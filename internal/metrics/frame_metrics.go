// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package metrics exposes renderer and ingest metrics to Prometheus.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relabs-tech/headview/internal/scene"
)

// FrameCollector records per-frame renderer metrics. All methods are safe on
// a nil receiver.
type FrameCollector struct {
	gatherer prometheus.Gatherer

	Frames               prometheus.Counter
	FrameDuration        prometheus.Histogram
	OrientationFallbacks prometheus.Counter
	FrustumSkips         prometheus.Counter
	VisibleObjects       prometheus.Gauge
	FieldOfView          prometheus.Gauge
	SampleAge            prometheus.Gauge
	PlacementFailed      prometheus.Gauge
	Samples              *prometheus.CounterVec
}

// NewFrameCollector registers the metrics against reg, or the default
// registerer when reg is nil.
func NewFrameCollector(reg prometheus.Registerer) (*FrameCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	frames, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "headview_frames_total",
		Help: "Frames rendered.",
	}), "headview_frames_total")
	if err != nil {
		return nil, err
	}

	duration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "headview_frame_duration_seconds",
		Help:    "Wall time spent in one OnFrame call.",
		Buckets: []float64{0.0005, 0.001, 0.002, 0.005, 0.01, 0.016, 0.033, 0.05, 0.1},
	}), "headview_frame_duration_seconds")
	if err != nil {
		return nil, err
	}

	fallbacks, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "headview_orientation_fallbacks_total",
		Help: "Frames rendered with the identity rotation because no valid head sample was available.",
	}), "headview_orientation_fallbacks_total")
	if err != nil {
		return nil, err
	}

	skips, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "headview_frustum_skips_total",
		Help: "Frames whose combined matrix was not invertible.",
	}), "headview_frustum_skips_total")
	if err != nil {
		return nil, err
	}

	visible, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "headview_visible_objects",
		Help: "Objects drawn in the last frame.",
	}), "headview_visible_objects")
	if err != nil {
		return nil, err
	}

	fov, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "headview_field_of_view_degrees",
		Help: "Vertical field of view used for the last frame.",
	}), "headview_field_of_view_degrees")
	if err != nil {
		return nil, err
	}

	age, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "headview_sample_age_seconds",
		Help: "Age of the head sample used for the last frame.",
	}), "headview_sample_age_seconds")
	if err != nil {
		return nil, err
	}

	placement, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "headview_placement_failed",
		Help: "1 while the last object placement reported an error.",
	}), "headview_placement_failed")
	if err != nil {
		return nil, err
	}

	samples := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "headview_samples_received_total",
		Help: "Head-view samples received, by result.",
	}, []string{"result"})
	if err := reg.Register(samples); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, err
		}
		existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, fmt.Errorf("collector headview_samples_received_total already registered with incompatible type")
		}
		samples = existing
	}

	return &FrameCollector{
		gatherer:             gatherer,
		Frames:               frames,
		FrameDuration:        duration,
		OrientationFallbacks: fallbacks,
		FrustumSkips:         skips,
		VisibleObjects:       visible,
		FieldOfView:          fov,
		SampleAge:            age,
		PlacementFailed:      placement,
		Samples:              samples,
	}, nil
}

// RecordFrame implements scene.FrameRecorder.
func (c *FrameCollector) RecordFrame(s scene.FrameSummary) {
	if c == nil {
		return
	}
	c.Frames.Inc()
	c.FrameDuration.Observe(s.Duration.Seconds())
	if s.SampleFallback {
		c.OrientationFallbacks.Inc()
	}
	if s.FrustumSkipped {
		c.FrustumSkips.Inc()
	}
	c.VisibleObjects.Set(float64(s.VisibleCount()))
	c.FieldOfView.Set(s.FieldOfView)
	c.SampleAge.Set(s.SampleAge.Seconds())
	if s.PlacementError != "" {
		c.PlacementFailed.Set(1)
	} else {
		c.PlacementFailed.Set(0)
	}
}

// ObserveSample counts one received head-view sample.
func (c *FrameCollector) ObserveSample(accepted bool) {
	if c == nil || c.Samples == nil {
		return
	}
	if accepted {
		c.Samples.WithLabelValues("accepted").Inc()
		return
	}
	c.Samples.WithLabelValues("rejected").Inc()
}

// Gatherer returns the gatherer the collector was registered with.
func (c *FrameCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *FrameCollector) Handler() http.Handler {
	g := c.Gatherer()
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
