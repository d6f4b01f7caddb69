package source

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hypeflow/internal/scheduler"
	"hypeflow/internal/storage/memory"
	"hypeflow/internal/throttle"
)

var testNow = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func testEnv() (Env, *memory.SeenSet) {
	seen := memory.NewSeenSet()
	return Env{
		Limiter: throttle.New(throttle.WithInterval(0), throttle.WithPenalty(0)),
		Seen:    seen,
		Now:     func() time.Time { return testNow },
	}, seen
}

// routes serves JSON bodies by path; an int value is written as a status.
func routes(t *testing.T, m map[string]interface{}) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		body, ok := m[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if code, ok := body.(int); ok {
			w.WriteHeader(code)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}
}

type fixedAdapter struct {
	name string
	d    Discovery
	err  error
	runs int
}

func (f *fixedAdapter) Name() string { return f.name }

func (f *fixedAdapter) Discover(context.Context) (Discovery, error) {
	f.runs++
	return f.d, f.err
}

func TestMintSet(t *testing.T) {
	env, seen := testEnv()
	seen.MarkSeen("old")

	s := newMintSet(env.Seen, 2)
	assert.True(t, s.add("a"))
	assert.True(t, s.add("a"))
	assert.True(t, s.add("old"))
	assert.True(t, s.add(""))
	assert.False(t, s.add("b"))
	assert.False(t, s.add("c"))

	assert.Equal(t, []string{"a", "b"}, s.mints)
	assert.True(t, s.full())
}

func TestRotation(t *testing.T) {
	a := &fixedAdapter{name: "a"}
	b := &fixedAdapter{name: "b"}
	r := NewRotation(scheduler.NewRoundRobin(), a, b)

	assert.Equal(t, []string{"a", "b"}, r.Names())
	assert.Equal(t, "a", r.Next().Name())
	assert.Equal(t, "b", r.Next().Name())
	assert.Equal(t, "a", r.Next().Name())

	assert.Nil(t, NewRotation(scheduler.NewRoundRobin()).Next())
}

func TestKnownMints(t *testing.T) {
	env, seen := testEnv()
	seen.MarkSeen("K2")

	d, err := NewKnownMints([]string{"K1", "K2", "K3", "K1"}, env).Discover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "known", d.Source.String())
	assert.Equal(t, []string{"K1", "K3"}, d.Mints)
	assert.False(t, d.Empty())
}
