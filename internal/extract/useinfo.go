package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tatianab/buckshot/internal/models"
)

// Notes handed to the decision policy after an item takes effect.
const (
	NoteHandsaw   = "You used the handsaw: the next shot deals 2 damage."
	NoteHandcuffs = "You used the handcuffs: the dealer skips their next turn."
	NoteInverter  = "You used the inverter: the loaded shell's type is flipped."
	NotePhoneNone = "You used the burner phone but learned nothing."

	markHandsaw   = "handsaw"
	markHandcuffs = "handcuffs"
	markPhone     = "burner phone"
)

var phoneNotePattern = regexp.MustCompile(`slot (\d+) is (live|blank)`)

// MagnifierNote describes the shell the magnifying glass showed.
func MagnifierNote(kind models.BulletKind) string {
	return fmt.Sprintf("You used the magnifying glass and saw a %s round.", bulletWord(kind))
}

// PhoneNote describes a shell the burner phone revealed. Slots count from
// the shell that will be fired next.
func PhoneNote(slot int, kind models.BulletKind) string {
	return fmt.Sprintf("You used the burner phone: slot %d is %s.", slot, bulletWord(kind))
}

func bulletWord(kind models.BulletKind) string {
	if kind == models.Live {
		return "live"
	}
	return "blank"
}

// AppendUseInfo adds a note to the pending use info.
func AppendUseInfo(state *models.GameState, note string) {
	state.UseInfo += note + "\n"
}

// FilterUseInfoAfterShoot keeps only the notes that still hold once a
// shell has left the chamber: the handsaw note survives a beer (nothing
// was fired), the handcuffs note survives while the player keeps the
// turn, and phone notes move one slot closer. Everything else is dropped.
// The state is left untouched when a phone note is malformed.
func FilterUseInfoAfterShoot(state *models.GameState, isBeer, selfTurnNext bool) error {
	var kept []string
	for _, line := range strings.Split(state.UseInfo, "\n") {
		switch {
		case strings.Contains(line, markHandsaw):
			if isBeer {
				kept = append(kept, line)
			}
		case strings.Contains(line, markHandcuffs):
			if selfTurnNext {
				kept = append(kept, line)
			}
		case strings.Contains(line, markPhone):
			if line == NotePhoneNone {
				continue
			}
			m := phoneNotePattern.FindStringSubmatch(line)
			if m == nil {
				return fmt.Errorf("%w: %q", ErrPhoneInfoFormat, line)
			}
			slot, _ := strconv.Atoi(m[1])
			if slot-1 < 1 {
				// the revealed shell was the one just fired
				continue
			}
			kind := models.Blank
			if m[2] == "live" {
				kind = models.Live
			}
			kept = append(kept, PhoneNote(slot-1, kind))
		}
	}

	state.UseInfo = ""
	for _, line := range kept {
		AppendUseInfo(state, line)
	}
	return nil
}

// PhoneReveal reads the burner phone's answer from a frame. none is true
// when the phone had nothing to say; ok is false when the frame holds
// neither answer.
func PhoneReveal(frame string) (slot int, kind models.BulletKind, none, ok bool) {
	if strings.Contains(frame, PhoneNoInfo) {
		return 0, "", true, true
	}
	m := phoneRevealPattern.FindStringSubmatch(frame)
	if m == nil {
		return 0, "", false, false
	}
	slot, _ = strconv.Atoi(m[1])
	kind = models.Blank
	if m[2] == wordLive {
		kind = models.Live
	}
	return slot, kind, false, true
}
