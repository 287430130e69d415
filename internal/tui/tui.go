package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tatianab/buckshot/internal/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true).
			Underline(true)

	stateStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#3C3C3C")).
			PaddingLeft(2).
			Foreground(lipgloss.Color("#AAAAAA"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	actionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EEEEEE")).
			Background(lipgloss.Color("#5F5F87")).
			Bold(true).
			PaddingLeft(1)
)

// RenderState draws the table as a side panel: health, shells, both item
// rows and whatever the items revealed.
func RenderState(turn int, state models.GameState) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(fmt.Sprintf("TURN %d", turn)) + "\n\n")

	sb.WriteString(titleStyle.Render("HEALTH") + "\n")
	fmt.Fprintf(&sb, "%s dealer %s\n", models.DealerGlyph, healthBar(state.DealerHealth, state.MaxHealth))
	fmt.Fprintf(&sb, "you %s\n\n", healthBar(state.PlayerHealth, state.MaxHealth))

	sb.WriteString(titleStyle.Render("SHELLS") + "\n")
	fmt.Fprintf(&sb, "%s x%d  %s x%d\n\n",
		models.Live.Glyph(), state.Bullets.Live,
		models.Blank.Glyph(), state.Bullets.Blank)

	sb.WriteString(titleStyle.Render("DEALER ITEMS") + "\n")
	sb.WriteString(itemList(state.DealerItems) + "\n")
	sb.WriteString(titleStyle.Render("YOUR ITEMS") + "\n")
	sb.WriteString(itemList(state.PlayerItems))

	if state.UseInfo != "" {
		sb.WriteString("\n" + titleStyle.Render("KNOWN") + "\n")
		sb.WriteString(helpStyle.Render(strings.TrimSpace(state.UseInfo)))
	}

	return stateStyle.Render(sb.String())
}

// RenderAction highlights the command sent for a turn.
func RenderAction(action string) string {
	return actionStyle.Render("> " + action)
}

func healthBar(health, maxHealth int) string {
	if maxHealth < health {
		maxHealth = health
	}
	return strings.Repeat(models.HealthGlyph, health) + strings.Repeat("·", maxHealth-health)
}

func itemList(items []models.ItemKind) string {
	if len(items) == 0 {
		return "(empty)\n"
	}
	var sb strings.Builder
	for i, item := range items {
		fmt.Fprintf(&sb, "%d. %s %s\n", i, item.Glyph(), item)
	}
	return sb.String()
}
