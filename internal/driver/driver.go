// Package driver turns the two high-level actions, shooting and using
// items, into keystrokes for the game and waits for the table to settle
// before handing control back.
package driver

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tatianab/buckshot/internal/extract"
	"github.com/tatianab/buckshot/internal/models"
	"github.com/tatianab/buckshot/internal/terminal"
	"github.com/tatianab/buckshot/internal/tracker"
)

var (
	ErrInvalidTarget     = errors.New("driver: target must be \"dealer\" or \"self\"")
	ErrInvalidItem       = errors.New("driver: invalid item")
	ErrUnrecognizedFrame = errors.New("driver: unrecognized screen")
	ErrSessionCrashed    = errors.New("driver: game exited unexpectedly")
	ErrClosed            = errors.New("driver: session closed")
	ErrTurnTimeout       = errors.New("driver: timed out waiting for the turn")
)

// Target keys of the shooting prompt.
const (
	TargetDealer = "dealer"
	TargetSelf   = "self"
)

// Terminal is the process the driver types into.
type Terminal interface {
	Start(ctx context.Context) error
	Send(command string) bool
	Close() error
	State() terminal.Lifecycle
}

// Phase is where the driver is in the turn protocol.
type Phase int

const (
	WaitingForCommand Phase = iota
	AwaitingResolution
	RoundOver
	SessionOver
)

func (p Phase) String() string {
	switch p {
	case WaitingForCommand:
		return "waiting_for_command"
	case AwaitingResolution:
		return "awaiting_resolution"
	case RoundOver:
		return "round_over"
	case SessionOver:
		return "session_over"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Driver plays the game through a terminal and a tracker fed by it.
type Driver struct {
	term    Terminal
	trk     *tracker.Tracker
	timings Timings
	menu    []string
	log     *zap.Logger

	mu     sync.Mutex
	phase  Phase
	closed bool
}

// New returns a driver. trk must be the tracker receiving term's lines.
func New(term Terminal, trk *tracker.Tracker, userOpts ...Option) *Driver {
	opts := defaultOptions()
	for _, o := range userOpts {
		o(&opts)
	}
	return &Driver{
		term:    term,
		trk:     trk,
		timings: opts.timings.withDefaults(),
		menu:    opts.menuInputs,
		log:     opts.logger,
	}
}

// Start launches the game, walks through the menu and waits for the first
// turn prompt (or the boot ceiling) before reading the table.
func (d *Driver) Start(ctx context.Context) error {
	d.trk.Reset()
	if err := d.term.Start(ctx); err != nil {
		return err
	}
	d.mu.Lock()
	d.closed = false
	d.phase = AwaitingResolution
	d.mu.Unlock()

	if err := sleep(ctx, d.timings.Startup); err != nil {
		return err
	}
	for i, input := range d.menu {
		d.send(input)
		if i < len(d.menu)-1 {
			if err := sleep(ctx, d.timings.MenuStep); err != nil {
				return err
			}
		}
	}
	if err := d.waitTurnUpTo(ctx, d.timings.Boot); err != nil {
		return err
	}

	state := d.trk.Rescan()
	d.setPhase(WaitingForCommand)
	d.log.Info("Game started",
		zap.Int("max_health", state.MaxHealth),
		zap.Int("live", state.Bullets.Live),
		zap.Int("blank", state.Bullets.Blank))
	return nil
}

// Shoot fires at the dealer or at yourself and blocks until the turn comes
// back, the game offers double-or-nothing (declined, state cleared) or the
// game ends (session closed).
func (d *Driver) Shoot(ctx context.Context, target string) error {
	var key string
	var selfTurnNext bool
	switch target {
	case TargetDealer:
		key = "0"
	case TargetSelf:
		key, selfTurnNext = "1", true
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidTarget, target)
	}
	if d.IsClosed() {
		return ErrClosed
	}

	log := d.log.With(zap.String("target", target))
	log.Info("Shooting")
	d.setPhase(AwaitingResolution)

	d.send("+")
	if err := sleep(ctx, d.timings.Key); err != nil {
		return err
	}
	d.trk.ClearTurn()
	d.send(key)
	if err := d.trk.FilterUseInfoAfterShoot(false, selfTurnNext); err != nil {
		return err
	}

	return d.awaitTurn(ctx, log)
}

// awaitTurn polls until the target prompt returns, handling the end of
// round and end of game prompts on the way.
func (d *Driver) awaitTurn(ctx context.Context, log *zap.Logger) error {
	waitCtx, cancel := context.WithTimeout(ctx, d.timings.TurnTimeout)
	defer cancel()
	ticker := time.NewTicker(d.timings.TurnPoll)
	defer ticker.Stop()

	declined := -1
	for !d.trk.SelfTurn() {
		text, gen := d.trk.ScreenGeneration()
		if strings.Contains(text, extract.RestartPrompt) {
			log.Info("Game over, leaving")
			d.send("1")
			if err := d.Close(); err != nil {
				log.Warn("Close after game over failed", zap.Error(err))
			}
			return nil
		}
		if strings.Contains(text, extract.DoubleOrNothingPrompt) && gen != declined {
			log.Info("Round won, declining double or nothing")
			d.trk.ClearState()
			d.send("0")
			declined = gen
			d.setPhase(RoundOver)
		}

		switch d.term.State() {
		case terminal.Crashed:
			return ErrSessionCrashed
		case terminal.Closed:
			return ErrClosed
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w after %v", ErrTurnTimeout, d.timings.TurnTimeout)
		case <-d.trk.TurnSignal():
		case <-ticker.C:
		}
	}

	state := d.trk.Rescan()
	d.setPhase(WaitingForCommand)
	log.Info("Turn returned",
		zap.Int("player_health", state.PlayerHealth),
		zap.Int("dealer_health", state.DealerHealth),
		zap.Int("live", state.Bullets.Live),
		zap.Int("blank", state.Bullets.Blank))
	return nil
}

// Use uses the item at indices[0] from the player's side. With two indices
// the first must be adrenaline and the second is the dealer item to steal;
// itemName is then the stolen item. isDealerItem skips the confirmation.
func (d *Driver) Use(ctx context.Context, indices []string, itemName string, isDealerItem bool) error {
	if len(indices) == 0 || len(indices) > 2 {
		return fmt.Errorf("%w: want 1 or 2 indices, got %d", ErrInvalidItem, len(indices))
	}
	for _, idx := range indices {
		if n, err := strconv.Atoi(idx); err != nil || n < 0 {
			return fmt.Errorf("%w: bad index %q", ErrInvalidItem, idx)
		}
	}
	kind, err := models.ParseItemKind(itemName)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidItem, err)
	}
	if d.IsClosed() {
		return ErrClosed
	}

	d.setPhase(AwaitingResolution)
	d.trk.ClearTurn()
	return d.use(ctx, indices, kind, isDealerItem)
}

func (d *Driver) use(ctx context.Context, indices []string, kind models.ItemKind, isDealerItem bool) error {
	log := d.log.With(zap.String("item", string(kind)), zap.Bool("dealer_item", isDealerItem))
	log.Info("Using item", zap.Strings("indices", indices))

	gen := d.trk.Generation()
	d.send(indices[0])
	if !isDealerItem {
		if err := sleep(ctx, d.timings.Key); err != nil {
			return err
		}
		d.send("1")
	}
	if len(indices) == 2 {
		if err := sleep(ctx, d.timings.Steal); err != nil {
			return err
		}
		return d.use(ctx, indices[1:], kind, true)
	}

	switch kind {
	case models.MagnifyingGlass:
		frame, err := d.waitFrame(ctx, gen, d.timings.Magnifier, revealed)
		if err != nil {
			return err
		}
		shell, ok := extract.RevealKind(frame)
		if !ok {
			return fmt.Errorf("%w: magnifying glass showed no shell:\n%s", ErrUnrecognizedFrame, frame)
		}
		d.trk.AppendUseInfo(extract.MagnifierNote(shell))

	case models.Beer:
		frame, err := d.waitFrame(ctx, gen, d.timings.Beer, revealed)
		if err != nil {
			return err
		}
		shell, ok := extract.RevealKind(frame)
		if !ok {
			return fmt.Errorf("%w: beer ejected no shell:\n%s", ErrUnrecognizedFrame, frame)
		}
		if err := d.trk.ConsumeBullet(shell); err != nil {
			return err
		}
		if err := d.trk.FilterUseInfoAfterShoot(true, true); err != nil {
			return err
		}

	case models.Handsaw:
		d.trk.AppendUseInfo(extract.NoteHandsaw)

	case models.Handcuffs:
		d.trk.AppendUseInfo(extract.NoteHandcuffs)

	case models.Inverter:
		d.trk.AppendUseInfo(extract.NoteInverter)
		d.trk.ToggleInversion()

	case models.BurnerPhone:
		frame, err := d.waitFrame(ctx, gen, d.timings.Phone, phoneAnswered)
		if err != nil {
			return err
		}
		slot, shell, none, ok := extract.PhoneReveal(frame)
		switch {
		case !ok:
			log.Warn("Burner phone answer not recognized", zap.String("screen", frame))
		case none:
			d.trk.AppendUseInfo(extract.NotePhoneNone)
		default:
			d.trk.AppendUseInfo(extract.PhoneNote(slot, shell))
		}

	default:
		// adrenaline, expired_medicine and cigarette_pack only change what
		// the rescan sees.
	}

	if err := d.waitTurnUpTo(ctx, d.timings.Settle); err != nil {
		return err
	}
	state := d.trk.Rescan()
	d.setPhase(WaitingForCommand)
	log.Info("Item resolved",
		zap.Int("player_health", state.PlayerHealth),
		zap.Int("live", state.Bullets.Live),
		zap.Int("blank", state.Bullets.Blank))
	return nil
}

func revealed(frame string) bool {
	_, ok := extract.RevealKind(frame)
	return ok
}

func phoneAnswered(frame string) bool {
	_, _, _, ok := extract.PhoneReveal(frame)
	return ok
}

// waitFrame polls the frame until the screen has been redrawn since gen
// and match accepts it, or until ceiling. At the ceiling the current
// frame is returned as is, so callers judge whatever the game shows.
func (d *Driver) waitFrame(ctx context.Context, gen int, ceiling time.Duration, match func(string) bool) (string, error) {
	deadline := time.NewTimer(ceiling)
	defer deadline.Stop()
	ticker := time.NewTicker(d.timings.FramePoll)
	defer ticker.Stop()

	for {
		text, g := d.trk.ScreenGeneration()
		if g != gen && match(text) {
			return text, nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-deadline.C:
			return d.trk.Screen(), nil
		case <-ticker.C:
		}
	}
}

// waitTurnUpTo waits for the target prompt for at most ceiling. Running
// out of time is not an error; the game simply had nothing to prompt.
func (d *Driver) waitTurnUpTo(ctx context.Context, ceiling time.Duration) error {
	deadline := time.NewTimer(ceiling)
	defer deadline.Stop()
	ticker := time.NewTicker(d.timings.FramePoll)
	defer ticker.Stop()

	for !d.trk.SelfTurn() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			d.log.Debug("No turn prompt before ceiling", zap.Duration("ceiling", ceiling))
			return nil
		case <-d.trk.TurnSignal():
		case <-ticker.C:
		}
	}
	return nil
}

func (d *Driver) send(input string) {
	if !d.term.Send(input) {
		d.log.Warn("Input not delivered", zap.String("input", input))
	}
}

// State returns a snapshot of the reconstructed game state.
func (d *Driver) State() models.GameState {
	return d.trk.Snapshot()
}

// Screen returns the current frame.
func (d *Driver) Screen() string {
	return d.trk.Screen()
}

// IsSelfTurn reports whether the game is waiting for the player's action.
func (d *Driver) IsSelfTurn() bool {
	return d.trk.SelfTurn()
}

// Output drains lines the game printed, for up to timeout.
func (d *Driver) Output(ctx context.Context, timeout time.Duration) string {
	return strings.Join(d.trk.Output(ctx, timeout, d.timings.OutputIdle), "\n")
}

// GameLog returns everything drained through Output since the last start.
func (d *Driver) GameLog() string {
	return d.trk.Log()
}

// Phase returns the turn protocol phase.
func (d *Driver) Phase() Phase {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.phase
}

func (d *Driver) setPhase(p Phase) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	if d.phase != p {
		d.log.Debug("Phase changed", zap.Stringer("from", d.phase), zap.Stringer("to", p))
	}
	d.phase = p
}

// Reset closes the game and starts a fresh one.
func (d *Driver) Reset(ctx context.Context) error {
	if err := d.Close(); err != nil {
		d.log.Warn("Close during reset failed", zap.Error(err))
	}
	return d.Start(ctx)
}

// Close stops the game. It is idempotent.
func (d *Driver) Close() error {
	d.mu.Lock()
	d.closed = true
	d.phase = SessionOver
	d.mu.Unlock()
	return d.term.Close()
}

// IsClosed reports whether the session has been closed.
func (d *Driver) IsClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
