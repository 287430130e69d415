package driver

import (
	"time"

	"go.uber.org/zap"
)

// Timings are the delays and ceilings the driver uses while the game
// animates. Fixed delays pace keystrokes; ceilings bound waits that end
// early once the expected screen shows up.
type Timings struct {
	Startup     time.Duration `yaml:"startup"`      // after launching, before the first menu input
	MenuStep    time.Duration `yaml:"menu_step"`    // between menu inputs
	Boot        time.Duration `yaml:"boot"`         // ceiling for the first turn prompt
	Key         time.Duration `yaml:"key"`          // between keystrokes of one action
	Steal       time.Duration `yaml:"steal"`        // before picking the dealer item to steal
	Magnifier   time.Duration `yaml:"magnifier"`    // ceiling for the magnifying glass reveal
	Beer        time.Duration `yaml:"beer"`         // ceiling for the ejected shell
	Phone       time.Duration `yaml:"phone"`        // ceiling for the burner phone answer
	Settle      time.Duration `yaml:"settle"`       // ceiling for the table to redraw after an item
	FramePoll   time.Duration `yaml:"frame_poll"`   // screen polling interval
	TurnPoll    time.Duration `yaml:"turn_poll"`    // prompt polling interval while waiting for the turn
	TurnTimeout time.Duration `yaml:"turn_timeout"` // ceiling for the turn to come back after a shot
	OutputIdle  time.Duration `yaml:"output_idle"`  // idle gap that ends an output drain
}

// DefaultTimings match what the game needs on a typical machine.
func DefaultTimings() Timings {
	return Timings{
		Startup:     time.Second,
		MenuStep:    time.Second,
		Boot:        25 * time.Second,
		Key:         time.Second,
		Steal:       3 * time.Second,
		Magnifier:   9 * time.Second,
		Beer:        8 * time.Second,
		Phone:       6500 * time.Millisecond,
		Settle:      10 * time.Second,
		FramePoll:   250 * time.Millisecond,
		TurnPoll:    time.Second,
		TurnTimeout: 5 * time.Minute,
		OutputIdle:  200 * time.Millisecond,
	}
}

// withDefaults fills unset fields from DefaultTimings.
func (t Timings) withDefaults() Timings {
	d := DefaultTimings()
	fill := func(v *time.Duration, def time.Duration) {
		if *v <= 0 {
			*v = def
		}
	}
	fill(&t.Startup, d.Startup)
	fill(&t.MenuStep, d.MenuStep)
	fill(&t.Boot, d.Boot)
	fill(&t.Key, d.Key)
	fill(&t.Steal, d.Steal)
	fill(&t.Magnifier, d.Magnifier)
	fill(&t.Beer, d.Beer)
	fill(&t.Phone, d.Phone)
	fill(&t.Settle, d.Settle)
	fill(&t.FramePoll, d.FramePoll)
	fill(&t.TurnPoll, d.TurnPoll)
	fill(&t.TurnTimeout, d.TurnTimeout)
	fill(&t.OutputIdle, d.OutputIdle)
	return t
}

type options struct {
	timings    Timings
	menuInputs []string
	logger     *zap.Logger
}

// Option configures a Driver created by New.
type Option func(*options)

// WithTimings overrides the timings. Zero fields keep their defaults.
func WithTimings(t Timings) Option {
	return func(o *options) {
		o.timings = t
	}
}

// WithMenuInputs sets the inputs sent after launch to reach the table:
// the menu choice and the player name by default.
func WithMenuInputs(inputs ...string) Option {
	return func(o *options) {
		o.menuInputs = inputs
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func defaultOptions() options {
	return options{
		timings:    DefaultTimings(),
		menuInputs: []string{"2", "SAM"},
		logger:     zap.NewNop(),
	}
}
