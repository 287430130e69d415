package extract

import "regexp"

// Text the game prints. The game speaks Chinese; every phrase the
// extractor depends on lives here.
const (
	wordLive  = "实弹"
	wordBlank = "空包弹"

	markFired    = "打出了" // "... fired a live round"
	markRevealed = "是一颗" // "... it is a live round"
	markSmashed  = "拼命砸碎了一个"

	// TurnPrompt asks the player to pick an item or "+" to shoot.
	TurnPrompt = "请输入你的道具编号来使用道具，输入+来选择射击目标:"

	// RestartPrompt is shown when the whole game is over.
	RestartPrompt = "重新开始？"

	// DoubleOrNothingPrompt is shown after a won round.
	DoubleOrNothingPrompt = "加倍还是放弃？"

	// PhoneNoInfo is the burner phone's "nothing to tell" line.
	PhoneNoInfo = "真遗憾..."
)

var (
	bulletTotalsPattern = regexp.MustCompile(`实弹(\d+)颗 空包弹(\d+)颗`)
	maxHealthPattern    = regexp.MustCompile(`每人 (\d+) 点生命值`)
	itemPattern         = regexp.MustCompile(`\d+\.(magnifying_glass|cigarette_pack|beer|handsaw|handcuffs|burner_phone|inverter|adrenaline|expired_medicine)`)

	// "第3发是...\n实弹": the phone prints the slot, pauses, then the kind
	// on the following line.
	phoneRevealPattern = regexp.MustCompile(`第(\d+)发是\.\.\.\n(实弹|空包弹)`)
)
