// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	nmea "github.com/adrianmo/go-nmea"
)

// Reader turns a stream of NMEA sentences into fixes. Position, speed and
// course come from RMC; altitude is taken from the most recent GGA.
type Reader struct {
	r       *bufio.Reader
	current Fix
	skipped int
}

// NewReader wraps an NMEA byte stream such as a serial port.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Next blocks until the next RMC sentence and returns the combined fix.
// Unparseable lines are skipped. The error is the underlying read error,
// io.EOF included.
func (g *Reader) Next() (Fix, error) {
	for {
		line, err := g.r.ReadString('\n')
		line = strings.TrimSpace(line)
		if line != "" {
			if fix, ok := g.handle(line); ok {
				return fix, nil
			}
		}
		if err != nil {
			return Fix{}, fmt.Errorf("gps: read: %w", err)
		}
	}
}

// Skipped is the number of lines that were not valid NMEA.
func (g *Reader) Skipped() int {
	return g.skipped
}

func (g *Reader) handle(line string) (Fix, bool) {
	// NMEA sentences usually start with '$'
	if !strings.HasPrefix(line, "$") {
		g.skipped++
		return Fix{}, false
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		// noisy GPS or partial sentences
		g.skipped++
		return Fix{}, false
	}

	switch m := sentence.(type) {
	case nmea.GGA:
		g.current.Altitude = m.Altitude
	case nmea.RMC:
		g.current.Time = m.Time.String()
		g.current.Date = m.Date.String()
		g.current.Latitude = m.Latitude
		g.current.Longitude = m.Longitude
		g.current.SpeedKnots = m.Speed
		g.current.CourseDeg = m.Course
		g.current.Validity = m.Validity
		return g.current, true
	}
	return Fix{}, false
}
