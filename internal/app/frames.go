// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"sync"

	"github.com/relabs-tech/headview/internal/scene"
)

// frameHub fans frame summaries out to WebSocket clients. Each subscriber
// holds at most one unread summary; a slow client sees only the newest.
type frameHub struct {
	mu   sync.Mutex
	subs map[chan scene.FrameSummary]struct{}
}

func newFrameHub() *frameHub {
	return &frameHub{subs: make(map[chan scene.FrameSummary]struct{})}
}

func (h *frameHub) subscribe() chan scene.FrameSummary {
	ch := make(chan scene.FrameSummary, 1)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *frameHub) unsubscribe(ch chan scene.FrameSummary) {
	h.mu.Lock()
	delete(h.subs, ch)
	h.mu.Unlock()
}

func (h *frameHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *frameHub) broadcast(s scene.FrameSummary) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- s:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}
