//go:build !windows

package term

import (
	"io"
	"os"
	"sync/atomic"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// Guard holds exclusive raw-mode ownership of a terminal until released.
type Guard struct {
	fd       int
	state    *term.State
	released atomic.Bool
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

	if err := unix.SetNonblock(fd, true); err != nil {
		// Undo the partial acquisition before reporting.
		_ = term.Restore(fd, state)
		return nil, err
	}

	return &Guard{fd: fd, state: state}, nil
}

// ReadAvailable reads the bytes currently pending on the terminal without
// blocking. It returns (0, nil) when no input is available and io.EOF when
// the input has been closed.
func (g *Guard) ReadAvailable(p []byte) (int, error) {
	n, err := unix.Read(g.fd, p)
	switch {
	case err == unix.EAGAIN || err == unix.EWOULDBLOCK:
		return 0, nil
	case err != nil:
		return 0, err
	case n == 0:
		return 0, io.EOF
	default:
		return n, nil
	}
}

// Release restores the captured terminal attributes and blocking mode.
// It is idempotent; only the first call does the restore.
func (g *Guard) Release() error {
	if !g.released.CompareAndSwap(false, true) {
		return nil
	}

	restoreErr := term.Restore(g.fd, g.state)
	blockErr := unix.SetNonblock(g.fd, false)

	if restoreErr != nil {
		return &ReleaseError{Err: restoreErr}
	}
	if blockErr != nil {
		return &ReleaseError{Err: blockErr}
	}
	return nil
}
