package persist

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWriterKeepsLatestRequest(t *testing.T) {
	f := newFixture()
	w := NewWriter(f.svc)
	var saved []Request
	w.OnSaved(func(req Request, err error) {
		require.NoError(t, err)
		saved = append(saved, req)
	})

	for i := 1; i <= 3; i++ {
		st := sampleState()
		st.Horde.SpawnDelay = i
		w.Submit(Request{WorldID: "room-1", Meta: Meta{Seed: "s"}, State: st})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.Run(ctx)

	require.Len(t, saved, 1)
	got, err := f.svc.Load(context.Background(), "room-1")
	require.NoError(t, err)
	require.Equal(t, 3, got.State.Horde.SpawnDelay)
}

func TestWriterSavesWhileRunning(t *testing.T) {
	f := newFixture()
	w := NewWriter(f.svc)
	done := make(chan Request, 4)
	w.OnSaved(func(req Request, _ error) { done <- req })

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(stopped)
	}()

	w.Submit(Request{WorldID: "room-1", Meta: Meta{Seed: "s"}, State: sampleState()})
	select {
	case req := <-done:
		require.Equal(t, "room-1", req.WorldID)
	case <-time.After(2 * time.Second):
		t.Fatalf("writer did not save")
	}
	cancel()
	<-stopped
}
