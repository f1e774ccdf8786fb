// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package host drives a render lifecycle on a single goroutine.
package host

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// Lifecycle is what a host drives. OnFrame and OnResize are only ever
// called from the loop goroutine, never after Dispose.
type Lifecycle interface {
	Init() error
	OnFrame(dt float64)
	OnResize(width, height int)
	Dispose() error
}

var (
	ErrRunning    = errors.New("host: loop already running")
	ErrNotRunning = errors.New("host: loop not running")
)

type size struct{ w, h int }

// Loop calls OnFrame on a ticker and applies resize requests between
// frames.
type Loop struct {
	app      Lifecycle
	interval time.Duration

	resize chan size

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	frames  uint64
	stopped bool
}

// NewLoop returns a loop ticking at interval.
func NewLoop(app Lifecycle, interval time.Duration) *Loop {
	if interval <= 0 {
		interval = time.Second / 30
	}
	return &Loop{
		app:      app,
		interval: interval,
		resize:   make(chan size, 1),
	}
}

// Start initialises the app and starts the frame goroutine. If Init fails
// the app is disposed and the error returned.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done != nil || l.stopped {
		return ErrRunning
	}

	if err := l.app.Init(); err != nil {
		if derr := l.app.Dispose(); derr != nil {
			log.Printf("host: dispose after failed init: %v", derr)
		}
		l.stopped = true
		return fmt.Errorf("host: init: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})
	go l.run(ctx, l.done)
	log.Printf("host: render loop started (%v per frame)", l.interval)
	return nil
}

func (l *Loop) run(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-l.resize:
			l.app.OnResize(s.w, s.h)
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			l.app.OnFrame(dt)
			l.mu.Lock()
			l.frames++
			l.mu.Unlock()
		}
	}
}

// Resize queues a viewport change for the loop goroutine. Only the newest
// pending request is kept.
func (l *Loop) Resize(width, height int) {
	select {
	case <-l.resize:
	default:
	}
	select {
	case l.resize <- size{width, height}:
	default:
	}
}

// Frames is the number of OnFrame calls so far.
func (l *Loop) Frames() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.frames
}

// Done is closed when the frame goroutine exits.
func (l *Loop) Done() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done
}

// Stop deregisters the frame callback, waits for the loop goroutine to
// exit, then disposes the app. It is safe to call more than once.
func (l *Loop) Stop() error {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return nil
	}
	if l.done == nil {
		l.mu.Unlock()
		return ErrNotRunning
	}
	l.stopped = true
	cancel, done := l.cancel, l.done
	l.mu.Unlock()

	cancel()
	<-done

	if err := l.app.Dispose(); err != nil {
		return fmt.Errorf("host: dispose: %w", err)
	}
	log.Printf("host: render loop stopped after %d frames", l.Frames())
	return nil
}
