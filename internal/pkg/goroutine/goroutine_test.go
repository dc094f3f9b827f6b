package goroutine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGroup_AllSucceed(t *testing.T) {
	g := NewGroup(context.Background(), 2)

	var count atomic.Int32
	for range 5 {
		g.Go(func(context.Context) error {
			count.Add(1)
			return nil
		})
	}

	require.NoError(t, g.Wait())
	require.Equal(t, int32(5), count.Load())
}

func TestGroup_LimitOneRunsInSubmissionOrder(t *testing.T) {
	g := NewGroup(context.Background(), 1)

	var (
		mu    sync.Mutex
		order []int
	)
	for i := range 4 {
		g.Go(func(context.Context) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		})
	}

	require.NoError(t, g.Wait())
	require.Equal(t, []int{0, 1, 2, 3}, order)
}

func TestGroup_FirstErrorWins(t *testing.T) {
	g := NewGroup(context.Background(), 1)

	boom := errors.New("boom")
	g.Go(func(context.Context) error { return boom })
	g.Go(func(context.Context) error { return errors.New("later") })

	// Limit 1 serializes the tasks, so the first error is deterministic.
	require.ErrorIs(t, g.Wait(), boom)
}

func TestGroup_ErrorCancelsRemaining(t *testing.T) {
	g := NewGroup(context.Background(), 2)

	started := make(chan struct{})
	g.Go(func(context.Context) error {
		<-started
		return errors.New("boom")
	})

	var ran atomic.Bool
	g.Go(func(ctx context.Context) error {
		close(started)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
			ran.Store(true)
			return nil
		}
	})

	require.Error(t, g.Wait())
	require.False(t, ran.Load())
}

func TestGroup_RecoversPanic(t *testing.T) {
	g := NewGroup(context.Background(), 2)

	g.Go(func(context.Context) error {
		panic("unexpected state")
	})

	err := g.Wait()
	require.Error(t, err)
	require.Contains(t, err.Error(), "panic in goroutine")
}

func TestGroup_ParentContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := NewGroup(ctx, 2)
	g.Go(func(ctx context.Context) error {
		return ctx.Err()
	})

	require.Error(t, g.Wait())
}
