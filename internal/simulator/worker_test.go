package simulator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FairForge/kvbench/internal/models"
)

func TestWorker_StopsOnSignal(t *testing.T) {
	st := seededStore(t, nil, "k1", "k2")
	sim := newTestSimulator(st, testCatalog(t, "k1", "k2"), 3)
	out := make(chan models.SimulationMetrics, 10)
	signal := NewSignal()
	w := NewWorker(1, sim, models.ScenarioCrud, out, signal, nil)

	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background()) }()

	received := 0
	for range out {
		received++
		if received == 5 {
			signal.Cancel()
			break
		}
	}

	// drain whatever was in flight
	var err error
	for finished := false; !finished; {
		select {
		case <-out:
			received++
		case err = <-done:
			finished = true
		}
	}
	for len(out) > 0 {
		<-out
		received++
	}

	require.NoError(t, err)
	assert.Equal(t, received, w.Iterations())
}

func TestWorker_SignalAlreadyCancelled(t *testing.T) {
	sim := newTestSimulator(seededStore(t, nil, "k1"), testCatalog(t, "k1"), 1)
	out := make(chan models.SimulationMetrics, 1)
	signal := NewSignal()
	signal.Cancel()

	err := NewWorker(0, sim, models.ScenarioReadOnly, out, signal, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestWorker_Backpressure(t *testing.T) {
	sim := newTestSimulator(seededStore(t, nil, "k1"), testCatalog(t, "k1"), 1)
	out := make(chan models.SimulationMetrics, 1)
	signal := NewSignal()
	w := NewWorker(0, sim, models.ScenarioReadOnly, out, signal, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return len(out) == 1 }, time.Second, time.Millisecond)

	// the signal alone cannot release a blocked send
	signal.Cancel()
	select {
	case err := <-done:
		t.Fatalf("worker returned while blocked on a full channel: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(time.Second):
		t.Fatal("worker did not return after context cancellation")
	}
	assert.Len(t, out, 1)
}

func TestWorker_RecoversPanic(t *testing.T) {
	st := seededStore(t, nil, "k1")
	sim := New(st, panicFactory{}, testCatalog(t, "k1"), 2,
		WithMaxJitter(0),
		WithOperationChooser(always(models.OperationWrite)))
	out := make(chan models.SimulationMetrics, 1)

	err := NewWorker(3, sim, models.ScenarioCrud, out, NewSignal(), nil).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWorkerPanic)
	assert.Contains(t, err.Error(), "generator exploded")
	assert.Empty(t, out)
}

func TestSignal(t *testing.T) {
	s := NewSignal()
	assert.False(t, s.Cancelled())

	select {
	case <-s.Done():
		t.Fatal("done closed before cancel")
	default:
	}

	s.Cancel()
	s.Cancel()
	assert.True(t, s.Cancelled())
	<-s.Done()
}
