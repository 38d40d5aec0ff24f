package keylisten

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource feeds preloaded bytes to the session loop.
type fakeSource struct {
	mu      sync.Mutex
	pending []byte
}

func (f *fakeSource) push(b ...byte) {
	f.mu.Lock()
	f.pending = append(f.pending, b...)
	f.mu.Unlock()
}

func (f *fakeSource) ReadAvailable(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := copy(p, f.pending)
	f.pending = f.pending[n:]
	return n, nil
}

// fakeClock drives the session's notion of time.
type fakeClock struct {
	cur time.Time
}

func (c *fakeClock) now() time.Time          { return c.cur }
func (c *fakeClock) advance(d time.Duration) { c.cur = c.cur.Add(d) }

// recorder collects dispatched key names.
type recorder struct {
	mu       sync.Mutex
	presses  []string
	releases []string
}

func (r *recorder) press(k string) {
	r.mu.Lock()
	r.presses = append(r.presses, k)
	r.mu.Unlock()
}

func (r *recorder) release(k string) {
	r.mu.Lock()
	r.releases = append(r.releases, k)
	r.mu.Unlock()
}

func (r *recorder) snapshot() (presses, releases []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.presses...), append([]string(nil), r.releases...)
}

func newTestSession(t *testing.T, src *fakeSource, clk *fakeClock, rec *recorder, extra ...Option) *Session {
	t.Helper()
	opts := append([]Option{
		WithSource(src),
		WithSequential(),
		WithOnPress(rec.press),
		WithOnRelease(rec.release),
	}, extra...)

	s, err := NewSession(opts...)
	require.NoError(t, err)
	s.now = clk.now
	return s
}

func TestSessionPressAndInferredRelease(t *testing.T) {
	src := &fakeSource{}
	clk := &fakeClock{cur: time.Now()}
	rec := &recorder{}
	s := newTestSession(t, src, clk, rec)

	ctx := context.Background()
	require.NoError(t, s.Start(ctx))
	defer s.Finish(ctx)

	src.push('a')
	require.NoError(t, s.Tick(ctx))

	presses, releases := rec.snapshot()
	assert.Equal(t, []string{"a"}, presses)
	assert.Empty(t, releases, "release is inferred only after the repeat gap")

	// Quiet ticks inside the first-repeat window keep the key held.
	clk.advance(200 * time.Millisecond)
	require.NoError(t, s.Tick(ctx))
	_, releases = rec.snapshot()
	assert.Empty(t, releases)

	// Past both thresholds the release fires.
	clk.advance(time.Second)
	require.NoError(t, s.Tick(ctx))
	presses, releases = rec.snapshot()
	assert.Equal(t, []string{"a"}, presses)
	assert.Equal(t, []string{"a"}, releases)
}

func TestSessionRepeatsCollapseToOnePress(t *testing.T) {
	src := &fakeSource{}
	clk := &fakeClock{cur: time.Now()}
	rec := &recorder{}
	s := newTestSession(t, src, clk, rec)

	ctx := context.Background()
	require.NoError(t, s.Start(ctx))
	defer s.Finish(ctx)

	for i := 0; i < 5; i++ {
		src.push('a')
		require.NoError(t, s.Tick(ctx))
		clk.advance(40 * time.Millisecond)
	}

	presses, releases := rec.snapshot()
	assert.Equal(t, []string{"a"}, presses, "key repeat must not re-fire the press")
	assert.Empty(t, releases)
}

func TestSessionUntilKeyStopsAfterItsPress(t *testing.T) {
	src := &fakeSource{}
	clk := &fakeClock{cur: time.Now()}
	rec := &recorder{}
	s := newTestSession(t, src, clk, rec, WithUntil("q"))

	ctx := context.Background()
	require.NoError(t, s.Start(ctx))

	// The byte after the until key must be discarded, not dispatched.
	src.push('q', 'x')
	err := s.Tick(ctx)
	assert.ErrorIs(t, err, ErrStopRequested)
	assert.Equal(t, StopReasonUntilKey, s.StopReason())

	require.NoError(t, s.Finish(ctx))
	assert.Equal(t, StateStopped, s.State())

	presses, releases := rec.snapshot()
	assert.Equal(t, []string{"q"}, presses, "the until key's own press callback fires")
	assert.Equal(t, []string{"q"}, releases, "the held key is released on shutdown")
}

func TestSessionManualStop(t *testing.T) {
	src := &fakeSource{}
	clk := &fakeClock{cur: time.Now()}
	rec := &recorder{}
	s := newTestSession(t, src, clk, rec)

	ctx := context.Background()
	require.NoError(t, s.Start(ctx))

	s.Stop()
	s.Stop()
	assert.ErrorIs(t, s.Tick(ctx), ErrStopRequested)
	assert.Equal(t, StopReasonManual, s.StopReason(), "the first stop reason wins")

	require.NoError(t, s.Finish(ctx))
	assert.Equal(t, StateStopped, s.State())
}

func TestSessionFinishReleasesHeldKey(t *testing.T) {
	src := &fakeSource{}
	clk := &fakeClock{cur: time.Now()}
	rec := &recorder{}
	s := newTestSession(t, src, clk, rec)

	ctx := context.Background()
	require.NoError(t, s.Start(ctx))

	src.push('z')
	require.NoError(t, s.Tick(ctx))
	require.NoError(t, s.Finish(ctx))

	presses, releases := rec.snapshot()
	assert.Equal(t, []string{"z"}, presses)
	assert.Equal(t, []string{"z"}, releases, "shutdown must pair the open press with a release")
}

func TestSessionFinishResolvesHeldEscapePrefix(t *testing.T) {
	src := &fakeSource{}
	clk := &fakeClock{cur: time.Now()}
	rec := &recorder{}
	s := newTestSession(t, src, clk, rec, WithHoldTimeout(time.Hour), WithUntil(""))

	ctx := context.Background()
	require.NoError(t, s.Start(ctx))

	// A lone ESC stays buffered as an ambiguous prefix.
	src.push(0x1b)
	require.NoError(t, s.Tick(ctx))
	presses, _ := rec.snapshot()
	require.Empty(t, presses)

	require.NoError(t, s.Finish(ctx))
	presses, releases := rec.snapshot()
	assert.Equal(t, []string{"esc"}, presses, "a trailing ESC still becomes a key")
	assert.Equal(t, []string{"esc"}, releases)
}

func TestSessionLowercaseFolding(t *testing.T) {
	ctx := context.Background()

	src := &fakeSource{}
	clk := &fakeClock{cur: time.Now()}
	rec := &recorder{}
	s := newTestSession(t, src, clk, rec)

	require.NoError(t, s.Start(ctx))
	src.push('A')
	require.NoError(t, s.Tick(ctx))
	require.NoError(t, s.Finish(ctx))

	presses, _ := rec.snapshot()
	assert.Equal(t, []string{"a"}, presses)

	src2 := &fakeSource{}
	rec2 := &recorder{}
	s2 := newTestSession(t, src2, clk, rec2, WithLower(false))

	require.NoError(t, s2.Start(ctx))
	src2.push('A')
	require.NoError(t, s2.Tick(ctx))
	require.NoError(t, s2.Finish(ctx))

	presses, _ = rec2.snapshot()
	assert.Equal(t, []string{"A"}, presses)
}

func TestSessionIsSingleUse(t *testing.T) {
	src := &fakeSource{}
	clk := &fakeClock{cur: time.Now()}
	rec := &recorder{}
	s := newTestSession(t, src, clk, rec)

	ctx := context.Background()
	require.NoError(t, s.Start(ctx))
	assert.ErrorIs(t, s.Start(ctx), ErrSessionUsed)

	require.NoError(t, s.Finish(ctx))
	assert.ErrorIs(t, s.Start(ctx), ErrSessionUsed)
	assert.ErrorIs(t, s.Tick(ctx), ErrNotRunning)
}

func TestSessionSlotIsExclusive(t *testing.T) {
	clk := &fakeClock{cur: time.Now()}
	ctx := context.Background()

	first := newTestSession(t, &fakeSource{}, clk, &recorder{})
	require.NoError(t, first.Start(ctx))

	second := newTestSession(t, &fakeSource{}, clk, &recorder{})
	assert.ErrorIs(t, second.Start(ctx), ErrAlreadyListening)

	require.NoError(t, first.Finish(ctx))

	// The slot is free again once the first session finishes.
	third := newTestSession(t, &fakeSource{}, clk, &recorder{})
	require.NoError(t, third.Start(ctx))
	require.NoError(t, third.Finish(ctx))
}

func TestSessionTickBeforeStart(t *testing.T) {
	src := &fakeSource{}
	clk := &fakeClock{cur: time.Now()}
	s := newTestSession(t, src, clk, &recorder{})
	assert.ErrorIs(t, s.Tick(context.Background()), ErrNotRunning)
}

func TestSessionRunStopsOnUntilKey(t *testing.T) {
	src := &fakeSource{}
	src.push('q')
	rec := &recorder{}

	s, err := NewSession(
		WithSource(src),
		WithSequential(),
		WithOnPress(rec.press),
		WithOnRelease(rec.release),
		WithUntil("q"),
		WithPollInterval(time.Millisecond),
	)
	require.NoError(t, err)

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, StateStopped, s.State())
	assert.Equal(t, StopReasonUntilKey, s.StopReason())

	presses, releases := rec.snapshot()
	assert.Equal(t, []string{"q"}, presses)
	assert.Equal(t, []string{"q"}, releases)
}

func TestSessionContextCancelReleasesHeldKey(t *testing.T) {
	src := &fakeSource{}
	rec := &recorder{}

	s, err := NewSession(
		WithSource(src),
		WithSequential(),
		WithOnPress(rec.press),
		WithOnRelease(rec.release),
		WithPollInterval(time.Millisecond),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	src.push('a')

	// Wait until the press has reached the handler.
	deadline := time.Now().Add(2 * time.Second)
	for {
		presses, _ := rec.snapshot()
		if len(presses) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("press never observed")
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}

	presses, releases := rec.snapshot()
	assert.Equal(t, []string{"a"}, presses)
	assert.Equal(t, []string{"a"}, releases,
		"the held key's final release must reach the handler even after cancellation")
}

func TestSessionRunStopsOnContextCancel(t *testing.T) {
	src := &fakeSource{}
	rec := &recorder{}

	s, err := NewSession(
		WithSource(src),
		WithSequential(),
		WithOnPress(rec.press),
		WithPollInterval(time.Millisecond),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
	assert.Equal(t, StateStopped, s.State())
	assert.Equal(t, StopReasonManual, s.StopReason())
}
