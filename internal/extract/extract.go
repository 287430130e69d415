// Package extract updates the structured game state from cleaned screen
// lines. Every function is pure with respect to its arguments; callers
// serialize access to the state.
package extract

import (
	"errors"
	"strconv"
	"strings"

	"github.com/tatianab/buckshot/internal/models"
)

var (
	ErrUnknownBullet   = errors.New("extract: unknown bullet kind")
	ErrPhoneInfoFormat = errors.New("extract: malformed burner phone note")
)

// Flags is the per-session protocol state that is not part of GameState.
type Flags struct {
	// Inverted swaps which counter the next resolved shell decrements.
	Inverted bool
	// SelfTurn is set when the target prompt appears and cleared when an
	// action is dispatched.
	SelfTurn bool
}

// Event reports which updates a line triggered.
type Event uint

const (
	EventBulletTotals Event = 1 << iota
	EventBulletSpent
	EventInversion
	EventTurn
	EventMaxHealth
	EventUnderflow
)

// Has reports whether all bits of f are set.
func (e Event) Has(f Event) bool {
	return e&f == f
}

// ApplyLine runs the incremental extractors over one cleaned line.
func ApplyLine(state *models.GameState, flags *Flags, line string) Event {
	var ev Event

	if strings.Contains(line, markFired) || strings.Contains(line, markRevealed) {
		if kind, ok := RevealKind(line); ok {
			clamped, _ := ConsumeBullet(state, flags, kind)
			ev |= EventBulletSpent
			if clamped {
				ev |= EventUnderflow
			}
		}
	}
	if strings.Contains(line, markSmashed) {
		flags.Inverted = !flags.Inverted
		ev |= EventInversion
	}
	if strings.Contains(line, TurnPrompt) {
		flags.SelfTurn = true
		ev |= EventTurn
	}
	if m := bulletTotalsPattern.FindStringSubmatch(line); m != nil {
		state.Bullets.Live, _ = strconv.Atoi(m[1])
		state.Bullets.Blank, _ = strconv.Atoi(m[2])
		state.UseInfo = ""
		ev |= EventBulletTotals
	}
	if m := maxHealthPattern.FindStringSubmatch(line); m != nil {
		state.MaxHealth, _ = strconv.Atoi(m[1])
		ev |= EventMaxHealth
	}
	return ev
}

// RevealKind finds the shell kind named in text. Live wins when both
// words appear, matching the order the game announces them.
func RevealKind(text string) (models.BulletKind, bool) {
	switch {
	case strings.Contains(text, wordLive):
		return models.Live, true
	case strings.Contains(text, wordBlank):
		return models.Blank, true
	}
	return "", false
}

// ConsumeBullet removes one shell of the reported kind, or of the other
// kind when the inversion is armed, then disarms the inversion. Counters
// never go below zero; clamped reports that a decrement was swallowed.
func ConsumeBullet(state *models.GameState, flags *Flags, kind models.BulletKind) (clamped bool, err error) {
	var counter *int
	switch kind {
	case models.Live:
		counter = &state.Bullets.Live
		if flags.Inverted {
			counter = &state.Bullets.Blank
		}
	case models.Blank:
		counter = &state.Bullets.Blank
		if flags.Inverted {
			counter = &state.Bullets.Live
		}
	default:
		return false, ErrUnknownBullet
	}

	if *counter > 0 {
		*counter--
	} else {
		clamped = true
	}
	flags.Inverted = false
	return clamped, nil
}
