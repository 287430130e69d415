package extract

import (
	"strings"

	"github.com/tatianab/buckshot/internal/models"
)

// TwoPanelLayout attributes a frame line to a side of the table. The game
// draws the dealer's panel above the player's, so the first half of the
// frame (by line index) belongs to the dealer and the rest to the player.
// Only valid on a complete, stable frame with exactly those two panels.
func TwoPanelLayout(index, total int) (dealer bool) {
	return index < total/2
}

// RescanFrame rederives health and items from the whole frame. Health is
// only overwritten when a health line is present for that side; item
// lists are replaced wholesale.
func RescanFrame(state *models.GameState, lines []string) {
	var dealerItems, playerItems []models.ItemKind

	for i, line := range lines {
		dealer := TwoPanelLayout(i, len(lines))

		if n := strings.Count(line, models.HealthGlyph); n > 0 {
			if dealer {
				state.DealerHealth = n
			} else {
				state.PlayerHealth = n
			}
		}

		for _, m := range itemPattern.FindAllStringSubmatch(line, -1) {
			kind := models.ItemKind(m[1])
			if dealer {
				dealerItems = append(dealerItems, kind)
			} else {
				playerItems = append(playerItems, kind)
			}
		}
	}

	state.DealerItems = dealerItems
	state.PlayerItems = playerItems
}
