// Package tracker owns the reconstructed game: the current frame, the
// structured state and the protocol flags. One goroutine holds all of it.
// The pty reader feeds lines in and the action driver reads and updates
// through closures queued behind those lines, so every observation is
// applied in arrival order and nothing is shared without the actor.
package tracker

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tatianab/buckshot/internal/extract"
	"github.com/tatianab/buckshot/internal/models"
	"github.com/tatianab/buckshot/internal/screen"
)

const (
	inboxSize  = 1024
	outputSize = 4096
)

// Tracker is the single owner of GameState, the frame and the flags.
type Tracker struct {
	inbox   chan func()
	output  chan string
	turn    chan struct{}
	quit    chan struct{}
	stopped chan struct{}
	once    sync.Once
	log     *zap.Logger

	// owned by run
	proc    *screen.Processor
	state   models.GameState
	flags   extract.Flags
	drained strings.Builder
}

// New starts a tracker mirroring raw lines to rawLog (nil discards them).
func New(rawLog io.Writer, log *zap.Logger) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	t := &Tracker{
		inbox:   make(chan func(), inboxSize),
		output:  make(chan string, outputSize),
		turn:    make(chan struct{}, 1),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
		log:     log,
		proc:    screen.NewProcessor(rawLog),
	}
	go t.run()
	return t
}

func (t *Tracker) run() {
	defer close(t.stopped)
	for {
		select {
		case fn := <-t.inbox:
			fn()
		case <-t.quit:
			return
		}
	}
}

// Close stops the actor. Later calls return zero values.
func (t *Tracker) Close() {
	t.once.Do(func() { close(t.quit) })
	<-t.stopped
}

// Feed queues a raw terminal line. It has the terminal.LineFunc shape.
func (t *Tracker) Feed(line string) {
	select {
	case t.inbox <- func() { t.process(line) }:
	case <-t.stopped:
	}
}

// do runs fn on the actor and waits for it. It reports false when the
// tracker is closed.
func (t *Tracker) do(fn func()) bool {
	done := make(chan struct{})
	select {
	case t.inbox <- func() { fn(); close(done) }:
	case <-t.stopped:
		return false
	}
	select {
	case <-done:
		return true
	case <-t.stopped:
		return false
	}
}

func (t *Tracker) process(raw string) {
	res, err := t.proc.Process(raw)
	if err != nil {
		t.log.Warn("Failed to mirror game output", zap.Error(err))
	}
	if res.Cleared {
		t.log.Debug("Screen cleared", zap.Int("generation", t.proc.Generation()))
		return
	}
	if !res.Published() {
		return
	}

	t.publish(res.Line)

	ev := extract.ApplyLine(&t.state, &t.flags, res.Line)
	if ev == 0 {
		return
	}
	if ev.Has(extract.EventTurn) {
		select {
		case t.turn <- struct{}{}:
		default:
		}
	}
	if ev.Has(extract.EventUnderflow) {
		t.log.Warn("Shell reported with none left of that kind", zap.String("line", res.Line))
	}
	t.log.Debug("State updated",
		zap.String("line", res.Line),
		zap.Int("live", t.state.Bullets.Live),
		zap.Int("blank", t.state.Bullets.Blank),
		zap.Bool("inverted", t.flags.Inverted),
		zap.Bool("self_turn", t.flags.SelfTurn))
}

// publish queues a line for Output, dropping the oldest when nobody
// drains the queue.
func (t *Tracker) publish(line string) {
	select {
	case t.output <- line:
		return
	default:
	}
	select {
	case <-t.output:
	default:
	}
	select {
	case t.output <- line:
	default:
	}
}

// TurnSignal is pulsed whenever the target prompt is seen.
func (t *Tracker) TurnSignal() <-chan struct{} {
	return t.turn
}

// Output drains published lines for up to timeout, returning early once
// lines were seen and none arrived for idle.
func (t *Tracker) Output(ctx context.Context, timeout, idle time.Duration) []string {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	var idleC <-chan time.Time
	var idleTimer *time.Timer
	defer func() {
		if idleTimer != nil {
			idleTimer.Stop()
		}
	}()

	var lines []string
loop:
	for {
		select {
		case line := <-t.output:
			lines = append(lines, line)
			if idleTimer == nil {
				idleTimer = time.NewTimer(idle)
				idleC = idleTimer.C
			} else {
				idleTimer.Reset(idle)
			}
		case <-idleC:
			break loop
		case <-deadline.C:
			break loop
		case <-ctx.Done():
			break loop
		}
	}

	if len(lines) > 0 {
		t.do(func() {
			for _, l := range lines {
				t.drained.WriteString(l)
				t.drained.WriteByte('\n')
			}
		})
	}
	return lines
}

// Log returns every line drained through Output since the last reset.
func (t *Tracker) Log() string {
	var s string
	t.do(func() { s = t.drained.String() })
	return s
}

// Snapshot returns a copy of the game state.
func (t *Tracker) Snapshot() models.GameState {
	var s models.GameState
	t.do(func() { s = t.state.Clone() })
	return s
}

// Screen returns the current frame joined with newlines.
func (t *Tracker) Screen() string {
	s, _ := t.ScreenGeneration()
	return s
}

// ScreenGeneration returns the current frame and the number of clears
// seen so far, read together.
func (t *Tracker) ScreenGeneration() (string, int) {
	var s string
	var gen int
	t.do(func() {
		s = t.proc.Text()
		gen = t.proc.Generation()
	})
	return s, gen
}

// Frame returns the lines of the current frame.
func (t *Tracker) Frame() []string {
	var f []string
	t.do(func() { f = t.proc.Frame() })
	return f
}

// Generation returns the number of clears seen so far.
func (t *Tracker) Generation() int {
	_, gen := t.ScreenGeneration()
	return gen
}

// SelfTurn reports whether the target prompt has been seen since the last
// dispatched action.
func (t *Tracker) SelfTurn() bool {
	var v bool
	t.do(func() { v = t.flags.SelfTurn })
	return v
}

// ClearTurn marks the turn as handed over; an action is being dispatched.
func (t *Tracker) ClearTurn() {
	t.do(func() {
		t.flags.SelfTurn = false
		select {
		case <-t.turn:
		default:
		}
	})
}

// Inverted reports whether the next resolved shell is inverted.
func (t *Tracker) Inverted() bool {
	var v bool
	t.do(func() { v = t.flags.Inverted })
	return v
}

// ToggleInversion flips the inversion flag.
func (t *Tracker) ToggleInversion() {
	t.do(func() { t.flags.Inverted = !t.flags.Inverted })
}

// ConsumeBullet applies one resolved shell of the given kind.
func (t *Tracker) ConsumeBullet(kind models.BulletKind) error {
	var err error
	t.do(func() {
		var clamped bool
		clamped, err = extract.ConsumeBullet(&t.state, &t.flags, kind)
		if clamped {
			t.log.Warn("Shell consumed with none left of that kind", zap.String("kind", string(kind)))
		}
	})
	return err
}

// AppendUseInfo adds an item note.
func (t *Tracker) AppendUseInfo(note string) {
	t.do(func() { extract.AppendUseInfo(&t.state, note) })
}

// FilterUseInfoAfterShoot prunes item notes once a shell has resolved.
func (t *Tracker) FilterUseInfoAfterShoot(isBeer, selfTurnNext bool) error {
	var err error
	t.do(func() { err = extract.FilterUseInfoAfterShoot(&t.state, isBeer, selfTurnNext) })
	return err
}

// Rescan rederives health and items from the current frame.
func (t *Tracker) Rescan() models.GameState {
	var s models.GameState
	t.do(func() {
		extract.RescanFrame(&t.state, t.proc.Frame())
		s = t.state.Clone()
	})
	return s
}

// ClearState zeroes the game state and both flags. The frame is kept.
func (t *Tracker) ClearState() {
	t.do(func() {
		t.state = models.GameState{}
		t.flags = extract.Flags{}
		select {
		case <-t.turn:
		default:
		}
	})
}

// Reset prepares for a fresh game: state, flags, frame, queued output and
// the drained log are all dropped.
func (t *Tracker) Reset() {
	t.do(func() {
		t.state = models.GameState{}
		t.flags = extract.Flags{}
		t.proc.Reset()
		t.drained.Reset()
		for {
			select {
			case <-t.output:
				continue
			case <-t.turn:
				continue
			default:
			}
			break
		}
	})
}
