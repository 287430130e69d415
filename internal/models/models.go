package models

import "fmt"

// ItemKind is one of the items that can sit on either side of the table.
type ItemKind string

const (
	MagnifyingGlass ItemKind = "magnifying_glass"
	CigarettePack   ItemKind = "cigarette_pack"
	Beer            ItemKind = "beer"
	Handsaw         ItemKind = "handsaw"
	Handcuffs       ItemKind = "handcuffs"
	BurnerPhone     ItemKind = "burner_phone"
	Inverter        ItemKind = "inverter"
	Adrenaline      ItemKind = "adrenaline"
	ExpiredMedicine ItemKind = "expired_medicine"
)

// AllItems lists every item kind in the order the game introduces them.
var AllItems = []ItemKind{
	MagnifyingGlass,
	CigarettePack,
	Beer,
	Handsaw,
	Handcuffs,
	BurnerPhone,
	Inverter,
	Adrenaline,
	ExpiredMedicine,
}

// ParseItemKind returns the item kind with the given name.
func ParseItemKind(name string) (ItemKind, error) {
	for _, k := range AllItems {
		if string(k) == name {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown item %q", name)
}

// BulletKind is the physical kind of a shell in the shotgun.
type BulletKind string

const (
	Live  BulletKind = "live_shell"
	Blank BulletKind = "blank"
)

// Bullets counts the shells still loaded.
type Bullets struct {
	Live  int `yaml:"live_shell"`
	Blank int `yaml:"blank"`
}

// Total returns the number of shells left.
func (b Bullets) Total() int {
	return b.Live + b.Blank
}

// GameState is the structured view of the table reconstructed from the
// game's terminal output.
type GameState struct {
	MaxHealth    int        `yaml:"max_health"`
	PlayerHealth int        `yaml:"player_health"`
	DealerHealth int        `yaml:"dealer_health"`
	Bullets      Bullets    `yaml:"bullet_types"`
	PlayerItems  []ItemKind `yaml:"player_items"`
	DealerItems  []ItemKind `yaml:"dealer_items"`
	UseInfo      string     `yaml:"use_info"` // notes accumulated from item effects
}

// Clone returns a deep copy of the state.
func (s GameState) Clone() GameState {
	c := s
	c.PlayerItems = append([]ItemKind(nil), s.PlayerItems...)
	c.DealerItems = append([]ItemKind(nil), s.DealerItems...)
	return c
}

// ActionEntry records a single command sent by the policy.
type ActionEntry struct {
	Turn    int       `yaml:"turn"`
	Command string    `yaml:"command"`
	Error   string    `yaml:"error,omitempty"`
	State   GameState `yaml:"state"` // state after the command resolved
}

// GameRecord aggregates everything kept about a finished play loop.
type GameRecord struct {
	Model   string        `yaml:"model"`
	Outcome string        `yaml:"outcome"` // why the loop stopped
	Final   GameState     `yaml:"final"`
	Actions []ActionEntry `yaml:"actions"`
	Output  string        `yaml:"output,omitempty"`
}
