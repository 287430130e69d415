package tracker

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tatianab/buckshot/internal/extract"
	"github.com/tatianab/buckshot/internal/models"
)

const clearLine = "\x1b[2J\x1b[H"

var table = []string{
	clearLine,
	"庄家 ⚡⚡",
	"0.handcuffs 1.inverter",
	"──────────",
	"──────────",
	"SAM ⚡⚡⚡",
	"0.magnifying_glass 1.beer",
	extract.TurnPrompt,
}

func newTracker(t *testing.T) *Tracker {
	t.Helper()
	trk := New(nil, nil)
	t.Cleanup(trk.Close)
	return trk
}

func feed(trk *Tracker, lines ...string) {
	for _, l := range lines {
		trk.Feed(l)
	}
}

func TestFeedBuildsState(t *testing.T) {
	defer goleak.VerifyNone(t)
	trk := New(nil, nil)
	defer trk.Close()

	feed(trk, "每人 3 点生命值", "实弹2颗 空包弹1颗")
	feed(trk, table...)

	assert.True(t, trk.SelfTurn())
	select {
	case <-trk.TurnSignal():
	default:
		t.Fatal("turn signal was not pulsed")
	}

	got := trk.Rescan()
	want := models.GameState{
		MaxHealth:    3,
		PlayerHealth: 3,
		DealerHealth: 2,
		Bullets:      models.Bullets{Live: 2, Blank: 1},
		PlayerItems:  []models.ItemKind{models.MagnifyingGlass, models.Beer},
		DealerItems:  []models.ItemKind{models.Handcuffs, models.Inverter},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Rescan() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1, trk.Generation())
	assert.Len(t, trk.Frame(), len(table)-1)
}

func TestShellsAndInversion(t *testing.T) {
	trk := newTracker(t)
	feed(trk, "实弹2颗 空包弹2颗", "庄家打出了一颗实弹")
	assert.Equal(t, models.Bullets{Live: 1, Blank: 2}, trk.Snapshot().Bullets)

	trk.ToggleInversion()
	assert.True(t, trk.Inverted())
	feed(trk, "SAM打出了一颗实弹")
	assert.Equal(t, models.Bullets{Live: 1, Blank: 1}, trk.Snapshot().Bullets)
	assert.False(t, trk.Inverted())

	require.NoError(t, trk.ConsumeBullet(models.Blank))
	require.NoError(t, trk.ConsumeBullet(models.Blank), "clamped, not an error")
	assert.Equal(t, models.Bullets{Live: 1, Blank: 0}, trk.Snapshot().Bullets)
	assert.ErrorIs(t, trk.ConsumeBullet("buckshot"), extract.ErrUnknownBullet)
}

func TestClearTurnDrainsSignal(t *testing.T) {
	trk := newTracker(t)
	feed(trk, extract.TurnPrompt)
	require.True(t, trk.SelfTurn())

	trk.ClearTurn()
	assert.False(t, trk.SelfTurn())
	select {
	case <-trk.TurnSignal():
		t.Fatal("stale turn signal left after ClearTurn")
	default:
	}
}

func TestUseInfo(t *testing.T) {
	trk := newTracker(t)
	trk.AppendUseInfo(extract.NoteHandsaw)
	trk.AppendUseInfo(extract.PhoneNote(2, models.Live))
	require.NoError(t, trk.FilterUseInfoAfterShoot(false, true))
	assert.Equal(t, extract.PhoneNote(1, models.Live)+"\n", trk.Snapshot().UseInfo)

	trk.AppendUseInfo("You used the burner phone: slot two")
	assert.ErrorIs(t, trk.FilterUseInfoAfterShoot(false, true), extract.ErrPhoneInfoFormat)
}

func TestOutputAndLog(t *testing.T) {
	trk := newTracker(t)
	feed(trk, "a", clearLine, "b", "   ", "c")

	lines := trk.Output(context.Background(), time.Second, 20*time.Millisecond)
	assert.Equal(t, []string{"a", "b", "c"}, lines)
	assert.Equal(t, "a\nb\nc\n", trk.Log())

	// nothing queued: waits out the timeout
	start := time.Now()
	assert.Empty(t, trk.Output(context.Background(), 30*time.Millisecond, 10*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestOutputDropsOldest(t *testing.T) {
	trk := newTracker(t)
	for i := 0; i < outputSize+10; i++ {
		trk.Feed(fmt.Sprint(i))
	}
	// make sure every line went through the actor
	trk.Screen()

	lines := trk.Output(context.Background(), 5*time.Second, 50*time.Millisecond)
	require.Len(t, lines, outputSize)
	assert.Equal(t, "10", lines[0])
	assert.Equal(t, fmt.Sprint(outputSize+9), lines[len(lines)-1])
}

func TestRawLogMirror(t *testing.T) {
	var raw bytes.Buffer
	trk := New(&raw, nil)
	defer trk.Close()

	feed(trk, "\x1b[31m红色\x1b[0m", clearLine, "plain")
	trk.Screen()
	assert.Equal(t, "\x1b[31m红色\x1b[0m\nplain\n", raw.String())
	assert.Equal(t, "plain", trk.Screen())
}

func TestClearStateKeepsFrame(t *testing.T) {
	trk := newTracker(t)
	feed(trk, "实弹2颗 空包弹1颗")
	feed(trk, table...)
	trk.ToggleInversion()

	trk.ClearState()
	assert.Equal(t, models.GameState{}, trk.Snapshot())
	assert.False(t, trk.SelfTurn())
	assert.False(t, trk.Inverted())
	assert.Contains(t, trk.Screen(), "SAM ⚡⚡⚡")
}

func TestReset(t *testing.T) {
	trk := newTracker(t)
	feed(trk, "实弹2颗 空包弹1颗")
	feed(trk, table...)
	trk.Output(context.Background(), 100*time.Millisecond, 10*time.Millisecond)
	feed(trk, "queued")

	trk.Reset()
	assert.Equal(t, models.GameState{}, trk.Snapshot())
	assert.False(t, trk.SelfTurn())
	assert.Empty(t, trk.Screen())
	assert.Empty(t, trk.Log())
	assert.Empty(t, trk.Output(context.Background(), 20*time.Millisecond, 10*time.Millisecond))
	select {
	case <-trk.TurnSignal():
		t.Fatal("turn signal survived Reset")
	default:
	}
}

func TestClosedTracker(t *testing.T) {
	defer goleak.VerifyNone(t)
	trk := New(nil, nil)
	trk.Close()
	trk.Close()

	trk.Feed("实弹2颗 空包弹1颗")
	assert.Equal(t, models.GameState{}, trk.Snapshot())
	assert.False(t, trk.SelfTurn())
	assert.Empty(t, trk.Screen())
}
