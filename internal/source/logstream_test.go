package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hypeflow/internal/solana"
)

type fakeWS struct {
	ch     chan solana.LogNotification
	err    error
	filter solana.LogsFilter
}

func (f *fakeWS) SubscribeLogs(_ context.Context, filter solana.LogsFilter) (<-chan solana.LogNotification, error) {
	f.filter = filter
	if f.err != nil {
		return nil, f.err
	}
	return f.ch, nil
}

func (f *fakeWS) Close() error { return nil }

func TestLogStream_BuffersSuccessfulSignatures(t *testing.T) {
	ws := &fakeWS{ch: make(chan solana.LogNotification, 4)}
	ws.ch <- solana.LogNotification{Signature: "a"}
	ws.ch <- solana.LogNotification{Signature: "failed", Err: map[string]interface{}{"InstructionError": 1}}
	ws.ch <- solana.LogNotification{Signature: "b"}
	close(ws.ch)

	s := NewLogStream(ws, 0, nil)
	require.NoError(t, s.Run(context.Background()))

	assert.Equal(t, []string{solana.MetaplexProgramID}, ws.filter.Mentions)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"b", "a"}, s.Drain(10))
	assert.Zero(t, s.Len())
}

func TestLogStream_SubscribeError(t *testing.T) {
	s := NewLogStream(&fakeWS{err: errors.New("dial")}, 0, nil)
	assert.Error(t, s.Run(context.Background()))
}

func TestLogStream_DropsOldestWhenFull(t *testing.T) {
	s := NewLogStream(nil, 2, nil)
	s.push("1")
	s.push("2")
	s.push("3")

	assert.Equal(t, []string{"3"}, s.Drain(1))
	assert.Equal(t, []string{"2"}, s.Drain(0))
}

func TestLogStream_StopsWithContext(t *testing.T) {
	ws := &fakeWS{ch: make(chan solana.LogNotification)}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	s := NewLogStream(ws, 0, nil)
	go func() { done <- s.Run(ctx) }()

	cancel()
	close(ws.ch) // the real client closes its channel once ctx is done

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
}
