// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotEmptyReturnsIdentity(t *testing.T) {
	t.Parallel()

	sl := NewSlot()
	s, ok := sl.Latest()
	assert.False(t, ok)
	assert.Equal(t, Identity(), s)
}

func TestSlotLastWriterWins(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sl := NewSlot()
	sl.now = func() time.Time { return fixed }

	first := FromQuat(mgl64.QuatRotate(0.1, mgl64.Vec3{0, 1, 0}))
	second := FromQuat(mgl64.QuatRotate(0.2, mgl64.Vec3{0, 1, 0}))
	require.NoError(t, sl.Publish(first))
	require.NoError(t, sl.Publish(second))

	got, at, ok := sl.LatestAt()
	require.True(t, ok)
	assert.Equal(t, second, got)
	assert.Equal(t, fixed, at)

	var _ StampedReader = sl
}

func TestSlotRejectsMalformedAndKeepsPrevious(t *testing.T) {
	t.Parallel()

	sl := NewSlot()
	good := FromQuat(mgl64.QuatRotate(0.5, mgl64.Vec3{1, 0, 0}))
	require.NoError(t, sl.Publish(good))

	bad := Sample(mgl64.Scale3D(3, 3, 3))
	require.Error(t, sl.Publish(bad))

	got, ok := sl.Latest()
	require.True(t, ok)
	assert.Equal(t, good, got)
}

func TestSlotConcurrentPublish(t *testing.T) {
	t.Parallel()

	sl := NewSlot()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				q := mgl64.QuatRotate(float64(i*100+j)*0.001, mgl64.Vec3{0, 0, 1})
				assert.NoError(t, sl.Publish(FromQuat(q)))
				s, ok := sl.Latest()
				assert.True(t, ok)
				assert.NoError(t, s.Validate())
			}
		}(i)
	}
	wg.Wait()
}
