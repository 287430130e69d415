// Package terminal runs a program attached to a pseudo-terminal and turns
// its output into lines.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tatianab/buckshot/internal/screen"
)

// Lifecycle is the state of a Session.
type Lifecycle int

const (
	Created Lifecycle = iota
	Running
	Closed
	Crashed // the program exited without Close
)

func (l Lifecycle) String() string {
	switch l {
	case Created:
		return "created"
	case Running:
		return "running"
	case Closed:
		return "closed"
	case Crashed:
		return "crashed"
	}
	return fmt.Sprintf("lifecycle(%d)", int(l))
}

var ErrAlreadyRunning = errors.New("terminal: session already running")

// LineFunc receives every line the program prints, in order, from the
// session's reader goroutine.
type LineFunc func(line string)

// Session owns a child process and the master end of its pseudo-terminal.
type Session struct {
	name   string
	opts   options
	onLine LineFunc

	lifecycle sync.Mutex // serializes Start, Close and Reset

	mu     sync.Mutex
	id     string
	state  Lifecycle
	cmd    *exec.Cmd
	ptmx   *os.File
	exited chan struct{}
	group  *errgroup.Group
	log    *zap.Logger
}

// New returns a session for the named program. Nothing runs until Start.
func New(name string, onLine LineFunc, userOpts ...Option) *Session {
	opts := defaultOptions()
	for _, o := range userOpts {
		o(&opts)
	}
	if opts.idleFlush < minIdleFlush {
		opts.idleFlush = minIdleFlush
	}
	if onLine == nil {
		onLine = func(string) {}
	}
	return &Session{
		name:   name,
		opts:   opts,
		onLine: onLine,
		log:    opts.logger,
	}
}

// Start launches the program on a fresh pseudo-terminal and starts the
// reader. The slave end is closed in this process once the child holds it.
func (s *Session) Start(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	return s.start(ctx)
}

func (s *Session) start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	state, leftover := s.state, s.cmd != nil
	s.mu.Unlock()
	if state == Running {
		return ErrAlreadyRunning
	}
	if leftover {
		// a crashed run still holds its pty and reader
		if err := s.close(); err != nil {
			s.logger().Warn("Cleanup of crashed run failed", zap.Error(err))
		}
	}

	cmd := exec.Command(s.name, s.opts.args...)
	cmd.Dir = s.opts.dir
	if len(s.opts.env) > 0 {
		cmd.Env = append(os.Environ(), s.opts.env...)
	}

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: s.opts.cols, Rows: s.opts.rows})
	if err != nil {
		return fmt.Errorf("terminal: start %s: %w", s.name, err)
	}

	id := uuid.NewString()
	log := s.opts.logger.With(zap.String("session", id))
	exited := make(chan struct{})
	chunks := make(chan []byte, 64)
	group := new(errgroup.Group)

	s.mu.Lock()
	s.id = id
	s.log = log
	s.state = Running
	s.cmd = cmd
	s.ptmx = ptmx
	s.exited = exited
	s.group = group
	s.mu.Unlock()

	group.Go(func() error { return s.read(ptmx, chunks) })
	group.Go(func() error {
		s.assemble(chunks)
		return nil
	})
	group.Go(func() error {
		err := cmd.Wait()
		close(exited)
		s.markExited(cmd, err)
		return nil
	})

	log.Info("Started program",
		zap.String("program", s.name),
		zap.Strings("args", s.opts.args),
		zap.Int("pid", cmd.Process.Pid))
	return nil
}

// read copies raw output into chunks until the master end fails, which
// happens once the child side is gone or the master is closed.
func (s *Session) read(r io.Reader, chunks chan<- []byte) error {
	defer close(chunks)
	buf := make([]byte, 1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunks <- append([]byte(nil), buf[:n]...)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) && !errors.Is(err, syscall.EIO) {
				s.logger().Warn("Terminal read failed", zap.Error(err))
			}
			return nil
		}
	}
}

// assemble splits chunks into lines. A partial line is flushed after
// idleFlush without new data so prompts without a newline still arrive.
func (s *Session) assemble(chunks <-chan []byte) {
	var asm screen.Assembler
	timer := time.NewTimer(s.opts.idleFlush)
	defer timer.Stop()

	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				if line, ok := asm.Flush(); ok {
					s.onLine(line)
				}
				return
			}
			for _, line := range asm.Write(chunk) {
				s.onLine(line)
			}
			timer.Reset(s.opts.idleFlush)
		case <-timer.C:
			if line, ok := asm.Flush(); ok {
				s.onLine(line)
			}
			timer.Reset(s.opts.idleFlush)
		}
	}
}

func (s *Session) markExited(cmd *exec.Cmd, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd != cmd {
		// Close already took this process down
		return
	}
	s.state = Crashed
	s.log.Warn("Program exited unexpectedly", zap.Error(err))
}

// Send writes command and a newline to the program. It reports false
// instead of failing when the program is not running or the write fails.
func (s *Session) Send(command string) bool {
	s.mu.Lock()
	ptmx, state, log := s.ptmx, s.state, s.log
	s.mu.Unlock()

	if state != Running || ptmx == nil {
		log.Debug("Dropped input, program not running", zap.String("input", command), zap.Stringer("state", state))
		return false
	}
	if _, err := io.WriteString(ptmx, command+"\n"); err != nil {
		log.Warn("Failed to send input", zap.String("input", command), zap.Error(err))
		return false
	}
	log.Debug("Sent input", zap.String("input", command))
	return true
}

// Close stops the program and the reader. It is idempotent and safe to
// call from any goroutine.
func (s *Session) Close() error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	return s.close()
}

func (s *Session) close() error {
	s.mu.Lock()
	cmd, ptmx, exited, group, log := s.cmd, s.ptmx, s.exited, s.group, s.log
	s.cmd, s.ptmx, s.exited, s.group = nil, nil, nil, nil
	if cmd == nil {
		s.state = Closed
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	timeout := s.opts.closeTimeout
	_ = cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-exited:
	case <-time.After(timeout):
		log.Warn("Program ignored SIGTERM, killing", zap.Duration("grace", timeout))
		_ = cmd.Process.Kill()
		select {
		case <-exited:
		case <-time.After(timeout):
			log.Error("Program did not exit after SIGKILL")
		}
	}

	closeErr := ptmx.Close()

	done := make(chan struct{})
	go func() {
		_ = group.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		log.Warn("Reader did not stop in time", zap.Duration("timeout", timeout))
	}

	s.mu.Lock()
	s.state = Closed
	s.mu.Unlock()
	log.Info("Closed program")

	if closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
		return fmt.Errorf("terminal: close pty: %w", closeErr)
	}
	return nil
}

// Reset closes the session and starts the program again.
func (s *Session) Reset(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if err := s.close(); err != nil {
		s.logger().Warn("Close during reset failed", zap.Error(err))
	}
	return s.start(ctx)
}

// State returns the lifecycle state.
func (s *Session) State() Lifecycle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Alive reports whether the program is running.
func (s *Session) Alive() bool {
	return s.State() == Running
}

// ID identifies the current run; it changes on every Start.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

func (s *Session) logger() *zap.Logger {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log
}
