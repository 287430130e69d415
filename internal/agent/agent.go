// Package agent runs the play loop: it shows the table to a decision
// policy, turns its reply into driver calls and keeps a record of the game.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tatianab/buckshot/internal/driver"
	"github.com/tatianab/buckshot/internal/engine"
	"github.com/tatianab/buckshot/internal/extract"
	"github.com/tatianab/buckshot/internal/models"
)

var (
	ErrUnknownCommand   = errors.New("commands are \"shoot dealer\", \"shoot self\" or \"use <item> [dealer item]\"")
	ErrItemOutOfRange   = errors.New("no item at that number")
	ErrAdrenalineTarget = errors.New("adrenaline needs a dealer item to steal")
	ErrNotAdrenaline    = errors.New("only adrenaline can steal a dealer item")
	ErrStealAdrenaline  = errors.New("adrenaline cannot be stolen")
)

// Outcomes recorded when the loop stops.
const (
	OutcomeFinished = "finished"
	OutcomeMaxTurns = "max_turns"
	OutcomeError    = "error"
)

// Policy picks the next move.
type Policy interface {
	Decide(ctx context.Context, state models.GameState, feedback string) (string, error)
}

// Driver is the part of the action driver the loop needs.
type Driver interface {
	State() models.GameState
	Shoot(ctx context.Context, target string) error
	Use(ctx context.Context, indices []string, itemName string, isDealerItem bool) error
	Output(ctx context.Context, timeout time.Duration) string
	GameLog() string
	IsClosed() bool
}

// Command is a parsed policy action.
type Command struct {
	Verb    string // "shoot" or "use"
	Target  string
	Indices []string
}

// ParseCommand reads "shoot <target>" or "use <i> [j]".
func ParseCommand(action string) (Command, error) {
	fields := strings.Fields(strings.ToLower(action))
	if len(fields) < 2 {
		return Command{}, fmt.Errorf("%w: got %q", ErrUnknownCommand, action)
	}
	switch fields[0] {
	case "shoot":
		if len(fields) != 2 {
			return Command{}, fmt.Errorf("%w: got %q", ErrUnknownCommand, action)
		}
		return Command{Verb: "shoot", Target: fields[1]}, nil
	case "use":
		if len(fields) > 3 {
			return Command{}, fmt.Errorf("%w: got %q", ErrUnknownCommand, action)
		}
		return Command{Verb: "use", Indices: fields[1:]}, nil
	}
	return Command{}, fmt.Errorf("%w: got %q", ErrUnknownCommand, action)
}

// ResolveItem names the item a use command acts on and checks it against
// the table: with one index it is the player's item, with two the first
// must be adrenaline and the second names the dealer item to steal.
func ResolveItem(indices []string, state models.GameState) (string, error) {
	switch len(indices) {
	case 1:
		item, err := itemAt(state.PlayerItems, indices[0])
		if err != nil {
			return "", err
		}
		if item == models.Adrenaline {
			return "", ErrAdrenalineTarget
		}
		return string(item), nil
	case 2:
		first, err := itemAt(state.PlayerItems, indices[0])
		if err != nil {
			return "", err
		}
		if first != models.Adrenaline {
			return "", fmt.Errorf("%w, got %s", ErrNotAdrenaline, first)
		}
		stolen, err := itemAt(state.DealerItems, indices[1])
		if err != nil {
			return "", err
		}
		if stolen == models.Adrenaline {
			return "", ErrStealAdrenaline
		}
		return string(stolen), nil
	}
	return "", fmt.Errorf("%w: want 1 or 2 item numbers", ErrUnknownCommand)
}

func itemAt(items []models.ItemKind, index string) (models.ItemKind, error) {
	i, err := strconv.Atoi(index)
	if err != nil || i < 0 || i >= len(items) {
		return "", fmt.Errorf("%w: %s", ErrItemOutOfRange, index)
	}
	return items[i], nil
}

// Agent plays one session.
type Agent struct {
	drv      Driver
	policy   Policy
	log      *zap.Logger
	maxTurns int
	model    string
	onTurn   func(turn int, state models.GameState)
}

type Option func(*Agent)

// WithMaxTurns stops the loop after n policy decisions. Zero means no limit.
func WithMaxTurns(n int) Option {
	return func(a *Agent) { a.maxTurns = n }
}

func WithLogger(l *zap.Logger) Option {
	return func(a *Agent) { a.log = l }
}

// WithModelName is recorded in the game record.
func WithModelName(name string) Option {
	return func(a *Agent) { a.model = name }
}

// WithTurnHook is called with the table before every decision.
func WithTurnHook(fn func(turn int, state models.GameState)) Option {
	return func(a *Agent) { a.onTurn = fn }
}

func New(drv Driver, policy Policy, opts ...Option) *Agent {
	a := &Agent{drv: drv, policy: policy, log: zap.NewNop()}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Play asks the policy for moves until the game closes, the turn limit is
// reached or something fails that a new command cannot fix. The record is
// returned in every case.
func (a *Agent) Play(ctx context.Context) (*models.GameRecord, error) {
	record := &models.GameRecord{Model: a.model, Outcome: OutcomeFinished}
	defer func() {
		record.Final = a.drv.State()
		record.Output = a.drv.GameLog()
	}()

	var feedback string
	for turn := 1; !a.drv.IsClosed(); turn++ {
		if a.maxTurns > 0 && turn > a.maxTurns {
			record.Outcome = OutcomeMaxTurns
			break
		}

		state := a.drv.State()
		if a.onTurn != nil {
			a.onTurn(turn, state)
		}

		reply, err := a.policy.Decide(ctx, state, feedback)
		if err != nil {
			record.Outcome = OutcomeError
			return record, fmt.Errorf("policy: %w", err)
		}
		action := engine.ParseAction(reply)
		log := a.log.With(zap.Int("turn", turn), zap.String("action", action))
		log.Info("Policy decided")

		err = a.execute(ctx, action, state)
		a.drv.Output(ctx, 100*time.Millisecond)

		entry := models.ActionEntry{Turn: turn, Command: action, State: a.drv.State()}
		feedback = ""
		if err != nil {
			entry.Error = err.Error()
		}
		record.Actions = append(record.Actions, entry)

		if err == nil {
			continue
		}
		if !recoverable(err) {
			log.Error("Action failed", zap.Error(err))
			record.Outcome = OutcomeError
			return record, err
		}
		log.Warn("Action rejected", zap.Error(err))
		feedback = err.Error()
	}
	return record, nil
}

func (a *Agent) execute(ctx context.Context, action string, state models.GameState) error {
	cmd, err := ParseCommand(action)
	if err != nil {
		return err
	}
	if cmd.Verb == "shoot" {
		return a.drv.Shoot(ctx, cmd.Target)
	}
	item, err := ResolveItem(cmd.Indices, state)
	if err != nil {
		return err
	}
	return a.drv.Use(ctx, cmd.Indices, item, false)
}

// recoverable reports whether the policy can carry on with a different
// command after err.
func recoverable(err error) bool {
	for _, e := range []error{
		ErrUnknownCommand,
		ErrItemOutOfRange,
		ErrAdrenalineTarget,
		ErrNotAdrenaline,
		ErrStealAdrenaline,
		driver.ErrInvalidTarget,
		driver.ErrInvalidItem,
		driver.ErrUnrecognizedFrame,
		extract.ErrPhoneInfoFormat,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}
