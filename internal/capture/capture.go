// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package capture drives the picture-taking workflow that runs beside the
// render loop:
//
//	normal → prepare → preview → takePicture → waitForPictureReady → normal
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Mode is the capture state.
type Mode int

const (
	Normal Mode = iota
	Prepare
	Preview
	TakePicture
	WaitForPictureReady
)

func (m Mode) String() string {
	switch m {
	case Normal:
		return "normal"
	case Prepare:
		return "prepare"
	case Preview:
		return "preview"
	case TakePicture:
		return "takePicture"
	case WaitForPictureReady:
		return "waitForPictureReady"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ErrBusy is returned when a capture is already in progress.
var ErrBusy = errors.New("capture: already in progress")

// Snapshotter encodes the current frame as PNG.
type Snapshotter interface {
	WritePNG(w io.Writer) error
}

// Result is the outcome of one capture.
type Result struct {
	Path string    `json:"path,omitempty"`
	Time time.Time `json:"time"`
	Err  error     `json:"-"`
}

// Controller owns the capture state. Step advances it; Run calls Step on a
// ticker.
type Controller struct {
	dir  string
	snap Snapshotter
	now  func() time.Time

	mu      sync.Mutex
	mode    Mode
	done    chan Result
	waiters []chan Result
	last    *Result
}

// NewController saves pictures from snap into dir.
func NewController(dir string, snap Snapshotter) *Controller {
	return &Controller{dir: dir, snap: snap, now: time.Now}
}

// Mode returns the current state.
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Last returns the most recent finished capture.
func (c *Controller) Last() (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return Result{}, false
	}
	return *c.last, true
}

// Request starts a capture. It fails with ErrBusy unless the controller is
// in Normal.
func (c *Controller) Request() error {
	_, err := c.request()
	return err
}

func (c *Controller) request() (chan Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != Normal {
		return nil, ErrBusy
	}
	ch := make(chan Result, 1)
	c.waiters = append(c.waiters, ch)
	c.setMode(Prepare)
	return ch, nil
}

// Step advances the state machine by at most one transition and returns the
// new mode. The picture is written on its own goroutine; Step never blocks.
func (c *Controller) Step() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.mode {
	case Prepare:
		c.setMode(Preview)
	case Preview:
		c.setMode(TakePicture)
	case TakePicture:
		c.done = make(chan Result, 1)
		go func(done chan<- Result, at time.Time) {
			done <- c.save(at)
		}(c.done, c.now())
		c.setMode(WaitForPictureReady)
	case WaitForPictureReady:
		select {
		case res := <-c.done:
			c.done = nil
			c.last = &res
			for _, w := range c.waiters {
				w <- res
			}
			c.waiters = nil
			if res.Err != nil {
				log.Printf("capture: picture failed: %v", res.Err)
			} else {
				log.Printf("capture: saved %s", res.Path)
			}
			c.setMode(Normal)
		default:
		}
	}
	return c.mode
}

func (c *Controller) setMode(m Mode) {
	if c.mode != m {
		log.Printf("capture: %s -> %s", c.mode, m)
	}
	c.mode = m
}

func (c *Controller) save(at time.Time) Result {
	res := Result{Time: at}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		res.Err = fmt.Errorf("capture: create dir: %w", err)
		return res
	}
	path := filepath.Join(c.dir, fmt.Sprintf("capture-%s.png", at.UTC().Format("20060102-150405.000")))
	f, err := os.Create(path)
	if err != nil {
		res.Err = fmt.Errorf("capture: create file: %w", err)
		return res
	}
	if err := c.snap.WritePNG(f); err != nil {
		f.Close()
		os.Remove(path)
		res.Err = fmt.Errorf("capture: snapshot: %w", err)
		return res
	}
	if err := f.Close(); err != nil {
		res.Err = fmt.Errorf("capture: close file: %w", err)
		return res
	}
	res.Path = path
	return res
}

// Run steps the controller every interval until ctx is done.
func (c *Controller) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Step()
		}
	}
}

// Capture requests a picture and waits for it. Something must be calling
// Step (usually Run).
func (c *Controller) Capture(ctx context.Context) (Result, error) {
	ch, err := c.request()
	if err != nil {
		return Result{}, err
	}
	select {
	case res := <-ch:
		return res, res.Err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}
