// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package capture

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSnap struct{ err error }

func (f fakeSnap) WritePNG(w io.Writer) error {
	if f.err != nil {
		return f.err
	}
	_, err := w.Write([]byte("\x89PNG fake"))
	return err
}

func stepUntil(t *testing.T, c *Controller, want Mode) {
	t.Helper()
	require.Eventually(t, func() bool { return c.Step() == want }, time.Second, time.Millisecond)
}

func TestCaptureTransitions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c := NewController(dir, fakeSnap{})
	c.now = func() time.Time { return time.Date(2026, 4, 2, 10, 30, 0, 0, time.UTC) }

	assert.Equal(t, Normal, c.Step(), "idle controller stays normal")

	require.NoError(t, c.Request())
	assert.Equal(t, Prepare, c.Mode())
	require.ErrorIs(t, c.Request(), ErrBusy)

	assert.Equal(t, Preview, c.Step())
	assert.Equal(t, TakePicture, c.Step())
	assert.Equal(t, WaitForPictureReady, c.Step())
	stepUntil(t, c, Normal)

	res, ok := c.Last()
	require.True(t, ok)
	require.NoError(t, res.Err)
	assert.Equal(t, filepath.Join(dir, "capture-20260402-103000.000.png"), res.Path)

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG fake", string(data))
}

func TestCaptureSnapshotError(t *testing.T) {
	t.Parallel()

	c := NewController(t.TempDir(), fakeSnap{err: errors.New("no frame")})
	ch, err := c.request()
	require.NoError(t, err)

	stepUntil(t, c, Normal)

	res := <-ch
	require.Error(t, res.Err)
	assert.Empty(t, res.Path)
	assert.Contains(t, res.Err.Error(), "no frame")
	require.NoError(t, c.Request(), "controller is usable again")
}

func TestCaptureWithRun(t *testing.T) {
	t.Parallel()

	c := NewController(t.TempDir(), fakeSnap{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go c.Run(ctx, time.Millisecond)

	res, err := c.Capture(ctx)
	require.NoError(t, err)
	assert.FileExists(t, res.Path)
	assert.Equal(t, Normal, c.Mode())
}

func TestCaptureContextCancelled(t *testing.T) {
	t.Parallel()

	c := NewController(t.TempDir(), fakeSnap{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Capture(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestModeString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "waitForPictureReady", WaitForPictureReady.String())
	assert.Equal(t, "Mode(9)", Mode(9).String())
}
