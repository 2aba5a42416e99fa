// Package osrs provides Old School RuneScape game-data types and
// clients: the skill table, the official hiscore endpoint, the Wiki
// price API, and the companion game-data API.
package osrs

import "strings"

// Skill identifies one OSRS skill in hiscore lite line order.
type Skill int

// Skills, in the order the hiscore lite endpoint lists them.
const (
	Overall Skill = iota
	Attack
	Defence
	Strength
	Hitpoints
	Ranged
	Prayer
	Magic
	Cooking
	Woodcutting
	Fletching
	Fishing
	Firemaking
	Crafting
	Smithing
	Mining
	Herblore
	Agility
	Thieving
	Slayer
	Farming
	Runecraft
	Hunter
	Construction
	Sailing

	skillCount
)

var skillNames = [...]string{
	"Overall", "Attack", "Defence", "Strength", "Hitpoints", "Ranged",
	"Prayer", "Magic", "Cooking", "Woodcutting", "Fletching", "Fishing",
	"Firemaking", "Crafting", "Smithing", "Mining", "Herblore", "Agility",
	"Thieving", "Slayer", "Farming", "Runecraft", "Hunter", "Construction",
	"Sailing",
}

// Common shorthand players actually type.
var skillAliases = map[string]string{
	"wc":     "woodcutting",
	"rc":     "runecraft",
	"hp":     "hitpoints",
	"con":    "construction",
	"fm":     "firemaking",
	"herb":   "herblore",
	"agil":   "agility",
	"thiev":  "thieving",
	"slay":   "slayer",
	"farm":   "farming",
	"hunt":   "hunter",
	"str":    "strength",
	"att":    "attack",
	"def":    "defence",
	"pray":   "prayer",
	"mage":   "magic",
	"cook":   "cooking",
	"fish":   "fishing",
	"fletch": "fletching",
	"smith":  "smithing",
	"mine":   "mining",
	"craft":  "crafting",
}

// String returns the skill's display name.
func (s Skill) String() string {
	if s < 0 || int(s) >= len(skillNames) {
		return "Unknown"
	}
	return skillNames[s]
}

// IsOverall reports whether this is the total-level pseudo-skill.
func (s Skill) IsOverall() bool { return s == Overall }

// Skills returns every skill in hiscore line order.
func Skills() []Skill {
	out := make([]Skill, skillCount)
	for i := range out {
		out[i] = Skill(i)
	}
	return out
}

// SkillNames returns all display names, for "valid skills are..." text.
func SkillNames() []string {
	return append([]string(nil), skillNames[:]...)
}

// FindSkill resolves a skill by display name or common alias,
// case-insensitively. The boolean is false when nothing matches.
func FindSkill(name string) (Skill, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return 0, false
	}
	if full, ok := skillAliases[n]; ok {
		n = full
	}
	for i, display := range skillNames {
		if strings.EqualFold(display, n) {
			return Skill(i), true
		}
	}
	return 0, false
}

// SkillStat is one skill's level and experience for a player.
type SkillStat struct {
	Skill Skill
	Level int
	XP    int64
}
