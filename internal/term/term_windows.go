//go:build windows

package term

import (
	"os"
	"sync/atomic"

	"golang.org/x/term"
)

// Guard holds exclusive raw-mode ownership of a console until released.
//
// The Windows console cannot be switched to non-blocking reads, so the
// guard runs a pump goroutine that performs blocking reads and buffers
// chunks on a channel. ReadAvailable drains that channel without
// blocking. After Release the pump exits on its next wakeup; until then
// it may sit in one final blocking read, which is harmless.
type Guard struct {
	f        *os.File
	state    *term.State
	released atomic.Bool

	chunks   chan []byte
	leftover []byte
}

func acquire(f *os.File) (*Guard, error) {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return nil, ErrNotTerminal
	}

	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}

	g := &Guard{
		f:      f,
		state:  state,
		chunks: make(chan []byte, 64),
	}
	go g.pump()
	return g, nil
}

// pump performs blocking reads and hands chunks to ReadAvailable.
func (g *Guard) pump() {
	for {
		buf := make([]byte, 256)
		n, err := g.f.Read(buf)
		if g.released.Load() {
			return
		}
		if n > 0 {
			g.chunks <- buf[:n]
		}
		if err != nil {
			close(g.chunks)
			return
		}
	}
}

// ReadAvailable returns buffered console input without blocking.
// It returns (0, nil) when no input is pending.
func (g *Guard) ReadAvailable(p []byte) (int, error) {
	if len(g.leftover) > 0 {
		n := copy(p, g.leftover)
		g.leftover = g.leftover[n:]
		return n, nil
	}

	select {
	case chunk, ok := <-g.chunks:
		if !ok {
			return 0, os.ErrClosed
		}
		n := copy(p, chunk)
		g.leftover = chunk[n:]
		return n, nil
	default:
		return 0, nil
	}
}

// Release restores the captured console state.
// It is idempotent; only the first call does the restore.
func (g *Guard) Release() error {
	if !g.released.CompareAndSwap(false, true) {
		return nil
	}
	if err := term.Restore(int(g.f.Fd()), g.state); err != nil {
		return &ReleaseError{Err: err}
	}
	return nil
}
