package keylisten

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/keylisten/dispatch"
	"github.com/dshills/keylisten/infer"
	"github.com/dshills/keylisten/internal/logging"
	"github.com/dshills/keylisten/internal/term"
	"github.com/dshills/keylisten/key"
	"github.com/dshills/keylisten/reader"
)

// State is a session's lifecycle state.
type State int32

const (
	// StateIdle means the session has not started yet.
	StateIdle State = iota

	// StateRunning means the loop is ticking.
	StateRunning

	// StateStopping means a stop was accepted and the session is
	// draining: final release, handler shutdown, terminal restore.
	StateStopping

	// StateStopped means the session is finished. Sessions do not
	// restart.
	StateStopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// StopReason records why a session stopped.
type StopReason int32

const (
	// StopReasonNone means the session has not stopped.
	StopReasonNone StopReason = iota

	// StopReasonUntilKey means the configured until key was pressed.
	StopReasonUntilKey

	// StopReasonManual means Stop or StopListening was called.
	StopReasonManual

	// StopReasonError means a fatal error ended the session.
	StopReasonError
)

// String returns the reason name.
func (r StopReason) String() string {
	switch r {
	case StopReasonNone:
		return "none"
	case StopReasonUntilKey:
		return "until-key"
	case StopReasonManual:
		return "manual"
	case StopReasonError:
		return "error"
	default:
		return "unknown"
	}
}

// Session is one run of the listening loop: acquire the terminal, tick
// (read, infer, dispatch), stop on the termination condition, restore the
// terminal. Sessions are single-use.
//
// Most callers use Listen or Session.Run. Callers driving their own loop
// use Start, then Tick until it returns ErrStopRequested, then Finish.
type Session struct {
	cfg    Config
	until  string
	logger *logging.Logger

	state         atomic.Int32
	stopRequested atomic.Bool
	stopReason    atomic.Int32

	fatalMu  sync.Mutex
	fatalErr error

	guard  *term.Guard
	source reader.ByteSource
	rd     *reader.Reader
	eng    *infer.Engine
	disp   *dispatch.Dispatcher

	// now is replaceable in tests.
	now func() time.Time
}

// NewSession validates the options and builds a session. No terminal
// state is touched until Start.
func NewSession(opts ...Option) (*Session, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := logging.Discard()
	if cfg.Debug {
		logger = logging.New(cfg.DebugOutput, logging.LevelDebug)
	}

	s := &Session{
		cfg:    cfg,
		until:  cfg.untilKey(),
		logger: logger,
		eng:    infer.New(cfg.DelaySecondChar, cfg.DelayOtherChars),
		now:    time.Now,
	}

	dispLogger := logger.WithComponent("dispatch")
	disp, err := dispatch.New(dispatch.Config{
		Policy:          cfg.Policy,
		OnPress:         cfg.OnPress,
		OnRelease:       cfg.OnRelease,
		Until:           s.until,
		MaxWorkers:      cfg.MaxWorkers,
		WaitForHandlers: cfg.WaitForHandlers,
		RequestStop: func() {
			s.requestStop(StopReasonUntilKey)
		},
		OnError: func(keyName string, err error) {
			dispLogger.Error("handler failed: key=%s err=%v", keyName, err)
		},
		OnPanic: func(keyName string, panicValue any, stack []byte) {
			dispLogger.Error("handler panicked: key=%s panic=%v\r\n%s", keyName, panicValue, stack)
		},
	})
	if err != nil {
		return nil, err
	}
	s.disp = disp
	return s, nil
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// StopReason returns why the session stopped, or StopReasonNone.
func (s *Session) StopReason() StopReason {
	return StopReason(s.stopReason.Load())
}

// Stop requests a manual stop. It is idempotent and safe to call from
// handlers, other goroutines, or before the session has seen any input.
// The stop takes effect at the next loop iteration.
func (s *Session) Stop() {
	s.requestStop(StopReasonManual)
}

// requestStop records the first stop reason. All stop paths converge
// here, so exactly one stopping transition happens per session.
func (s *Session) requestStop(reason StopReason) {
	if s.stopRequested.CompareAndSwap(false, true) {
		s.stopReason.Store(int32(reason))
	}
}

// fatal records a fatal error and requests a stop.
func (s *Session) fatal(err error) {
	s.fatalMu.Lock()
	if s.fatalErr == nil {
		s.fatalErr = err
	}
	s.fatalMu.Unlock()
	s.requestStop(StopReasonError)
}

// Err returns the fatal error that stopped the session, if any.
func (s *Session) Err() error {
	s.fatalMu.Lock()
	defer s.fatalMu.Unlock()
	return s.fatalErr
}

// Start claims the process-wide listening slot and acquires the terminal.
// On any failure nothing is left behind: the slot is released and the
// terminal stays in its original mode.
func (s *Session) Start(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return ErrSessionUsed
	}

	if err := claimSlot(s); err != nil {
		s.state.Store(int32(StateStopped))
		return err
	}

	if s.cfg.Source != nil {
		s.source = s.cfg.Source
	} else {
		input := s.cfg.Input
		if input == nil {
			input = os.Stdin
		}
		guard, err := term.Acquire(input)
		if err != nil {
			releaseSlot(s)
			s.state.Store(int32(StateStopped))
			return err
		}
		s.guard = guard
		s.source = guard
	}

	s.rd = reader.New(s.source, key.DefaultTable(),
		reader.WithHoldTimeout(s.cfg.HoldTimeout),
		reader.WithAnomalyHandler(func(a reader.Anomaly) {
			s.logger.Debug("dropped unsupported byte 0x%02x", a.Byte)
		}),
	)

	if err := s.disp.Start(); err != nil {
		s.finishAfterStartFailure()
		return err
	}
	return nil
}

// finishAfterStartFailure unwinds a partial acquisition.
func (s *Session) finishAfterStartFailure() {
	if s.guard != nil {
		if err := s.guard.Release(); err != nil {
			s.logger.Error("terminal restore failed: %v", err)
		}
	}
	releaseSlot(s)
	s.state.Store(int32(StateStopped))
}

// Tick runs one iteration of the loop: poll the reader, advance the
// inference engine, dispatch the resulting events. It returns
// ErrStopRequested once a stop has been accepted; the caller should then
// call Finish. Tick never blocks on input.
func (s *Session) Tick(ctx context.Context) error {
	if s.State() != StateRunning {
		return ErrNotRunning
	}

	now := s.now()
	tokens, readErr := s.rd.Poll(now)

	if len(tokens) == 0 {
		s.submit(ctx, s.eng.Advance("", now))
	}
	for _, token := range tokens {
		if s.cfg.Lower {
			token = strings.ToLower(token)
		}
		s.submit(ctx, s.eng.Advance(token, now))
		if s.stopRequested.Load() {
			// The until key fired; remaining tokens are discarded.
			break
		}
	}

	if readErr != nil {
		s.fatal(readErr)
	}
	if s.stopRequested.Load() {
		return ErrStopRequested
	}
	return nil
}

// submit hands events to the dispatcher in order.
func (s *Session) submit(ctx context.Context, events []key.Event) {
	for _, ev := range events {
		if err := s.disp.Submit(ctx, ev); err != nil {
			s.logger.Error("submit failed: %v", err)
		}
	}
}

// Finish drains and stops the session: the held key's final synthetic
// release is dispatched, handler shutdown honors WaitForHandlers, and the
// terminal is restored unconditionally. A terminal restore failure is
// returned even when draining succeeded, since it leaves the shell
// unusable.
func (s *Session) Finish(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) {
		return ErrNotRunning
	}
	s.requestStop(StopReasonManual)

	// Cancellation stops the loop, not the shutdown: the final release
	// and the drain must still reach the handlers.
	ctx = context.WithoutCancel(ctx)

	// Resolve bytes still held as a partial sequence, then make sure
	// every press gets its matching release before the session ends.
	now := s.now()
	for _, token := range s.rd.Flush(now) {
		if s.cfg.Lower {
			token = strings.ToLower(token)
		}
		s.submit(ctx, s.eng.Advance(token, now))
	}
	s.submit(ctx, s.eng.Flush(now))

	drainErr := s.disp.Drain(ctx)

	var releaseErr error
	if s.guard != nil {
		releaseErr = s.guard.Release()
		if releaseErr != nil {
			s.logger.Error("terminal restore failed: %v", releaseErr)
		}
	}

	releaseSlot(s)
	s.state.Store(int32(StateStopped))

	return errors.Join(releaseErr, drainErr)
}

// Run executes the whole session: Start, tick until stopped, Finish.
// It blocks until the session ends and returns the first fatal error,
// if any. Cancelling the context stops the session cleanly.
func (s *Session) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}

	ticker := time.NewTimer(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := s.Tick(ctx); err != nil {
			break
		}

		if !ticker.Stop() {
			select {
			case <-ticker.C:
			default:
			}
		}
		ticker.Reset(s.cfg.PollInterval)

		select {
		case <-ctx.Done():
			s.requestStop(StopReasonManual)
		case <-ticker.C:
		}
	}

	finishErr := s.Finish(ctx)
	if err := s.Err(); err != nil {
		return errors.Join(err, finishErr)
	}
	return finishErr
}
