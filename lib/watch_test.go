package lib

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchEmitsOnChange(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var value atomic.Int64
	ch := Watch(ctx, 5*time.Millisecond, func(context.Context) (int64, error) {
		return value.Load(), nil
	})

	first := <-ch
	assert.Equal(t, int64(0), first)

	value.Store(7)
	select {
	case snapshot := <-ch:
		assert.Equal(t, int64(7), snapshot)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for changed snapshot")
	}
}

func TestWatchClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	ch := Watch(ctx, 5*time.Millisecond, func(context.Context) (int, error) {
		return 1, nil
	})
	<-ch

	cancel()
	select {
	case _, open := <-ch:
		require.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("channel did not close after cancel")
	}
}
