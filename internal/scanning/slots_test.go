package scanning

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anstrom/rangescan/internal/errors"
)

func TestScanSlots_Acquire(t *testing.T) {
	t.Run("successful acquisition", func(t *testing.T) {
		s := NewScanSlots(5)
		require.NoError(t, s.Acquire(context.Background(), "scan-1"))
		assert.Equal(t, 1, s.Active())
		assert.Equal(t, 4, s.Available())

		s.Release("scan-1")
		assert.Equal(t, 0, s.Active())
		assert.Equal(t, 5, s.Available())
	})

	t.Run("exhaustion waits for context", func(t *testing.T) {
		s := NewScanSlots(2)
		require.NoError(t, s.Acquire(context.Background(), "scan-1"))
		require.NoError(t, s.Acquire(context.Background(), "scan-2"))

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		err := s.Acquire(ctx, "scan-3")
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.CodeCanceled))
		assert.Equal(t, 2, s.Active())
	})

	t.Run("release unblocks a waiter", func(t *testing.T) {
		s := NewScanSlots(1)
		require.NoError(t, s.Acquire(context.Background(), "first"))

		acquired := make(chan error, 1)
		go func() { acquired <- s.Acquire(context.Background(), "second") }()

		time.Sleep(20 * time.Millisecond)
		s.Release("first")

		select {
		case err := <-acquired:
			require.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("waiter was not released")
		}
		assert.Equal(t, 1, s.Active())
	})

	t.Run("zero capacity means one", func(t *testing.T) {
		s := NewScanSlots(0)
		assert.Equal(t, 1, s.Available())
	})
}

func TestScanSlots_ReleaseUnknown(t *testing.T) {
	s := NewScanSlots(1)
	s.Release("never-acquired")
	assert.Equal(t, 1, s.Available())

	require.NoError(t, s.Acquire(context.Background(), "a"))
	s.Release("a")
	s.Release("a")
	assert.Equal(t, 1, s.Available())
}

func TestScanSlots_Concurrent(t *testing.T) {
	s := NewScanSlots(3)
	var wg sync.WaitGroup
	var mu sync.Mutex
	peak := 0

	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := fmt.Sprintf("scan-%d", i)
			require.NoError(t, s.Acquire(context.Background(), id))

			mu.Lock()
			peak = max(peak, s.Active())
			mu.Unlock()

			time.Sleep(time.Millisecond)
			s.Release(id)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak, 3)
	assert.Equal(t, 0, s.Active())
	assert.Equal(t, time.Duration(0), s.Oldest())
}
