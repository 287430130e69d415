package models

// Glyphs used by the game to draw items. Only the status panel uses them;
// the extractor matches item names in the rendered text.
var itemGlyphs = map[ItemKind]string{
	MagnifyingGlass: "🔍",
	CigarettePack:   "🚬",
	Beer:            "🍺",
	Handsaw:         "🔪",
	Handcuffs:       "\u26D3\uFE0F\u200D\U0001F4A5",
	BurnerPhone:     "📱",
	Inverter:        "\U0001F504\uFE0F",
	Adrenaline:      "💉",
	ExpiredMedicine: "💊",
}

var bulletGlyphs = map[BulletKind]string{
	Live:  "🔴",
	Blank: "🔵",
}

// HealthGlyph is drawn once per remaining health point.
const HealthGlyph = "⚡"

// DealerGlyph marks the dealer's panel.
const DealerGlyph = "\u2620\uFE0F"

// Glyph returns the display glyph for the item, or the item name when the
// game has none.
func (k ItemKind) Glyph() string {
	if g, ok := itemGlyphs[k]; ok {
		return g
	}
	return string(k)
}

// Glyph returns the display glyph for the bullet kind.
func (b BulletKind) Glyph() string {
	return bulletGlyphs[b]
}

// ItemFromGlyph maps a glyph back to its item. The inverter is drawn with
// the variation selector on either side depending on the terminal.
func ItemFromGlyph(g string) (ItemKind, bool) {
	if g == "\uFE0F\U0001F504" {
		return Inverter, true
	}
	for k, v := range itemGlyphs {
		if v == g {
			return k, true
		}
	}
	return "", false
}
