// Package infer turns a stream of key observations into press and release
// events.
//
// A raw terminal only ever reports that a character arrived; it never says
// a key was let go. The engine treats OS key-repeat as the sole signal that
// a key is still held: while repeats keep arriving the key stays pressed,
// and a long enough quiet gap is read as the release.
//
// Two thresholds absorb the repeat acceleration curve: terminals emit the
// second character of a hold noticeably later than the steady-state repeats
// that follow, so the gap after the initial press is compared against a
// larger delay than the gaps between later repeats.
//
// The engine tracks at most one held key. Observing a different key while
// one is held releases the old key immediately before pressing the new one;
// overlapping holds are not detected.
package infer

import (
	"time"

	"github.com/dshills/keylisten/key"
)

// Default thresholds, tuned for common terminal repeat rates.
const (
	// DefaultDelaySecondChar is the longest expected gap between a press
	// and the first repeat.
	DefaultDelaySecondChar = 750 * time.Millisecond

	// DefaultDelayOtherChars is the longest expected gap between
	// steady-state repeats.
	DefaultDelayOtherChars = 50 * time.Millisecond
)

// Engine infers press and release events from observed key tokens.
// It is not safe for concurrent use; the session loop is its only caller.
type Engine struct {
	delaySecondChar time.Duration
	delayOtherChars time.Duration

	// active is the currently-held key, empty when none.
	active       string
	initialPress time.Time
	lastSeen     time.Time
}

// New creates an engine with the given release thresholds.
// Negative thresholds select the defaults; an explicit zero is honored
// and releases the key on the first quiet tick after it.
func New(delaySecondChar, delayOtherChars time.Duration) *Engine {
	if delaySecondChar < 0 {
		delaySecondChar = DefaultDelaySecondChar
	}
	if delayOtherChars < 0 {
		delayOtherChars = DefaultDelayOtherChars
	}
	return &Engine{
		delaySecondChar: delaySecondChar,
		delayOtherChars: delayOtherChars,
	}
}

// Active returns the currently-held key name, or "" when none.
func (e *Engine) Active() string {
	return e.active
}

// Advance feeds one tick into the engine. token is the key observed this
// tick, or "" when no input arrived. The returned events preserve order:
// a release for a replaced key always precedes the press of its successor.
func (e *Engine) Advance(token string, now time.Time) []key.Event {
	if token == "" {
		return e.advanceIdle(now)
	}

	// Same key still arriving: the hold continues, no new event.
	if token == e.active {
		e.lastSeen = now
		return nil
	}

	var events []key.Event
	if e.active != "" {
		// A second key while one is held forces the first released.
		events = append(events, key.NewRelease(e.active, now))
	}
	events = append(events, key.NewPress(token, now))
	e.active = token
	e.initialPress = now
	e.lastSeen = now
	return events
}

// advanceIdle handles a tick with no observed input. The held key is
// released only once both thresholds have been exceeded: the gap since the
// initial press must outlast the slow first repeat, and the gap since the
// last observation must outlast the steady repeat rate.
func (e *Engine) advanceIdle(now time.Time) []key.Event {
	if e.active == "" {
		return nil
	}
	if now.Sub(e.initialPress) <= e.delaySecondChar {
		return nil
	}
	if now.Sub(e.lastSeen) <= e.delayOtherChars {
		return nil
	}

	released := e.active
	e.active = ""
	return []key.Event{key.NewRelease(released, now)}
}

// Flush releases the held key, if any, regardless of elapsed time.
// Called once when the session stops so every press is eventually matched
// by a release.
func (e *Engine) Flush(now time.Time) []key.Event {
	if e.active == "" {
		return nil
	}
	released := e.active
	e.active = ""
	return []key.Event{key.NewRelease(released, now)}
}
