// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"sync/atomic"
	"time"
)

// Reader is the render side of the sample handoff. Latest never blocks and
// reports false when nothing has been published yet, in which case the
// returned sample is Identity.
type Reader interface {
	Latest() (Sample, bool)
}

// StampedReader is a Reader that also reports when its sample was
// published.
type StampedReader interface {
	Reader
	LatestAt() (Sample, time.Time, bool)
}

type stamped struct {
	sample Sample
	at     time.Time
}

// Slot is a single-slot, last-writer-wins cell for orientation samples.
// Writers (an MQTT callback, a sensor goroutine) publish complete copies;
// the render loop reads the most recent one. There is no queue: samples
// published between two reads are dropped.
type Slot struct {
	cur atomic.Pointer[stamped]
	now func() time.Time
}

// NewSlot returns an empty slot.
func NewSlot() *Slot {
	return &Slot{now: time.Now}
}

// Publish stores s as the latest sample. Malformed samples are dropped so
// that the previous good sample stays visible.
func (sl *Slot) Publish(s Sample) error {
	if err := s.Validate(); err != nil {
		return err
	}
	sl.cur.Store(&stamped{sample: s, at: sl.now()})
	return nil
}

// Latest implements Reader.
func (sl *Slot) Latest() (Sample, bool) {
	s, _, ok := sl.LatestAt()
	return s, ok
}

// LatestAt implements StampedReader.
func (sl *Slot) LatestAt() (Sample, time.Time, bool) {
	p := sl.cur.Load()
	if p == nil {
		return Identity(), time.Time{}, false
	}
	return p.sample, p.at, true
}
