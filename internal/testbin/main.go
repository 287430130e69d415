// Command testbin is a miniature Buckshot Roulette used as a fixture by
// the terminal and driver tests. It prints the same phrases as the real
// game, redraws the table after clearing the screen, and plays a fixed
// shell sequence so tests can predict every state change.
//
// Behavior:
//   - Menu: "2" starts a game, anything else is rejected; then a name.
//   - Each side has 3 health; the chamber holds live, blank, live.
//   - "+" then "0"/"1" shoots the dealer/yourself. After a shot at the
//     dealer the dealer fires at the player.
//   - An item index followed by "1" uses the item; the redrawn table
//     carries its message (magnifying_glass and beer name the current
//     shell).
//   - When the chamber is empty the game asks to restart and exits on
//     any answer. FAKEGAME_DOUBLE=1 asks double-or-nothing first.
//   - "quit" exits with status 0, "crash" with status 3.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

const (
	clear      = "\x1b[2J\x1b[H"
	turnPrompt = "请输入你的道具编号来使用道具，输入+来选择射击目标:"
)

type game struct {
	in           *bufio.Reader
	name         string
	dealerHealth int
	playerHealth int
	shells       []string
	playerItems  []string
	dealerItems  []string
}

func main() {
	g := &game{
		in:           bufio.NewReader(os.Stdin),
		dealerHealth: 3,
		playerHealth: 3,
		shells:       []string{"实弹", "空包弹", "实弹"},
		playerItems:  []string{"magnifying_glass", "handsaw", "beer"},
		dealerItems:  []string{"handcuffs", "inverter"},
	}

	fmt.Println("1. 游戏规则")
	fmt.Println("2. 开始游戏")
	for {
		fmt.Print("请选择: ")
		if g.read() == "2" {
			break
		}
		fmt.Println("无效选择")
	}
	fmt.Print("请输入你的名字: ")
	g.name = g.read()

	fmt.Println("每人 3 点生命值")
	fmt.Println("实弹2颗 空包弹1颗")
	g.draw("")

	for len(g.shells) > 0 {
		var msg string
		switch input := g.read(); {
		case input == "+":
			fmt.Println("0.庄家 1.自己")
			fmt.Print("请选择目标: ")
			g.shoot(g.read())
		case input == "0" || input == "1" || input == "2":
			fmt.Print("确认使用？1.是 0.否: ")
			if g.read() == "1" {
				msg = g.use(input)
			}
		}
		if len(g.shells) > 0 {
			g.draw(msg)
		}
	}

	if os.Getenv("FAKEGAME_DOUBLE") == "1" {
		fmt.Println(clear)
		fmt.Println("你赢了这一轮")
		fmt.Print("加倍还是放弃？0.放弃 1.加倍: ")
		g.read()
	}
	fmt.Println(clear)
	fmt.Println("游戏结束")
	fmt.Print("重新开始？1.退出: ")
	g.read()
}

func (g *game) read() string {
	line, err := g.in.ReadString('\n')
	if err != nil {
		os.Exit(0)
	}
	line = strings.TrimSpace(line)
	switch line {
	case "quit":
		os.Exit(0)
	case "crash":
		os.Exit(3)
	}
	return line
}

// draw clears the screen and redraws both panels, the dealer's on top.
// msg, when set, is printed between the panels and the prompt.
func (g *game) draw(msg string) {
	fmt.Println(clear)
	fmt.Printf("庄家 %s\n", strings.Repeat("⚡", g.dealerHealth))
	fmt.Println(items(g.dealerItems))
	fmt.Println("──────────")
	fmt.Println("──────────")
	fmt.Printf("%s %s\n", g.name, strings.Repeat("⚡", g.playerHealth))
	fmt.Println(items(g.playerItems))
	if msg != "" {
		fmt.Println(msg)
	}
	fmt.Print(turnPrompt)
}

func items(names []string) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = fmt.Sprintf("%d.%s", i, n)
	}
	return strings.Join(parts, " ")
}

func (g *game) pop() string {
	shell := g.shells[0]
	g.shells = g.shells[1:]
	return shell
}

func (g *game) shoot(target string) {
	shell := g.pop()
	fmt.Printf("%s打出了一颗%s\n", g.name, shell)
	if shell == "实弹" {
		if target == "0" {
			g.dealerHealth--
		} else {
			g.playerHealth--
		}
	}
	if target != "0" || len(g.shells) == 0 {
		return
	}

	// dealer's turn
	shell = g.pop()
	fmt.Printf("庄家打出了一颗%s\n", shell)
	if shell == "实弹" {
		g.playerHealth--
	}
}

func (g *game) use(index string) string {
	i := int(index[0] - '0')
	if i >= len(g.playerItems) {
		return "没有这个道具"
	}
	item := g.playerItems[i]
	g.playerItems = append(g.playerItems[:i:i], g.playerItems[i+1:]...)

	switch item {
	case "magnifying_glass":
		return "你仔细观察了枪膛：" + g.shells[0]
	case "beer":
		return "你退出了一颗" + g.pop()
	case "handsaw":
		return "你锯短了枪管"
	}
	return ""
}
