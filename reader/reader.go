// Package reader assembles canonical key tokens from a raw terminal byte
// stream.
//
// A Reader drains whatever bytes its source currently has available and
// resolves them front-first against a key table. Complete matches are
// emitted as tokens; partial escape sequences are retained across polls;
// bytes that cannot start any key are dropped so decoding resynchronizes.
// Poll never blocks.
package reader

import (
	"time"

	"github.com/dshills/keylisten/key"
)

// ByteSource supplies whatever input bytes are currently available without
// blocking. Implementations return (0, nil) when nothing is pending.
type ByteSource interface {
	ReadAvailable(p []byte) (int, error)
}

// DefaultHoldTimeout is how long an ambiguous escape prefix is retained
// before the reader commits to the shorter match. A lone ESC byte resolves
// to the "esc" key once this much time passes without further bytes.
const DefaultHoldTimeout = 25 * time.Millisecond

const readChunkSize = 256

// Anomaly describes a byte that matched no table entry and was discarded.
type Anomaly struct {
	// Byte is the discarded byte.
	Byte byte

	// Time is when the byte was discarded.
	Time time.Time
}

// Reader turns a byte source into a stream of key tokens.
// It is not safe for concurrent use; the session loop is its only caller.
type Reader struct {
	source      ByteSource
	table       *key.Table
	holdTimeout time.Duration

	pending  []byte
	lastByte time.Time

	// onAnomaly, when set, receives each discarded byte.
	onAnomaly func(Anomaly)
}

// Option configures a Reader.
type Option func(*Reader)

// WithHoldTimeout sets how long an ambiguous escape prefix is held before
// the reader commits to the shorter match.
func WithHoldTimeout(d time.Duration) Option {
	return func(r *Reader) {
		if d >= 0 {
			r.holdTimeout = d
		}
	}
}

// WithAnomalyHandler sets a callback invoked for every discarded byte.
func WithAnomalyHandler(fn func(Anomaly)) Option {
	return func(r *Reader) {
		r.onAnomaly = fn
	}
}

// New creates a Reader over the given source and table.
// A nil table selects the default key table.
func New(source ByteSource, table *key.Table, opts ...Option) *Reader {
	if table == nil {
		table = key.DefaultTable()
	}
	r := &Reader{
		source:      source,
		table:       table,
		holdTimeout: DefaultHoldTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Poll reads available bytes and returns the key tokens resolved so far.
// It returns an empty slice when nothing resolved this tick. Read errors
// from the source are returned after any already-buffered bytes have been
// resolved.
func (r *Reader) Poll(now time.Time) ([]string, error) {
	readErr := r.fill(now)
	tokens := r.resolve(now, false)
	return tokens, readErr
}

// Flush resolves whatever remains in the buffer without waiting out the
// hold timeout. Called once when the session stops so a trailing ESC still
// becomes a token.
func (r *Reader) Flush(now time.Time) []string {
	return r.resolve(now, true)
}

// Buffered returns the number of bytes retained as a partial sequence.
func (r *Reader) Buffered() int {
	return len(r.pending)
}

// fill drains the source into the pending buffer.
func (r *Reader) fill(now time.Time) error {
	var chunk [readChunkSize]byte
	for {
		n, err := r.source.ReadAvailable(chunk[:])
		if n > 0 {
			r.pending = append(r.pending, chunk[:n]...)
			r.lastByte = now
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
	}
}

// resolve repeatedly matches the front of the pending buffer against the
// table. When flush is false, a buffer that is still a valid prefix of a
// longer sequence is retained until the hold timeout expires.
func (r *Reader) resolve(now time.Time, flush bool) []string {
	var tokens []string

	for len(r.pending) > 0 {
		name, matched, extendable := r.match()

		if extendable && !flush && now.Sub(r.lastByte) < r.holdTimeout {
			break
		}

		switch {
		case matched > 0:
			tokens = append(tokens, name)
			r.pending = r.pending[matched:]
		default:
			if r.onAnomaly != nil {
				r.onAnomaly(Anomaly{Byte: r.pending[0], Time: now})
			}
			r.pending = r.pending[1:]
		}
	}

	if len(r.pending) == 0 {
		r.pending = nil
	}
	return tokens
}

// match scans the pending buffer for its longest complete front match.
// It returns the matched name and length, and whether the entire buffer is
// still a valid prefix of a longer sequence.
func (r *Reader) match() (name string, matched int, extendable bool) {
	for l := 1; l <= len(r.pending); l++ {
		res := r.table.Lookup(r.pending[:l])
		if res.Complete {
			name = res.Name
			matched = l
		}
		if !res.Complete && !res.Prefix {
			// Nothing longer can match either: table prefixes are
			// closed under extension.
			return name, matched, false
		}
		if l == len(r.pending) {
			extendable = res.Prefix
		}
	}
	return name, matched, extendable
}
