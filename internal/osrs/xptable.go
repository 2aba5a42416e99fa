package osrs

import "math"

// maxLevel is the virtual level cap used for XP thresholds.
const maxLevel = 120

// xpTable[n] is the total XP required for level n.
var xpTable = buildXPTable()

func buildXPTable() [maxLevel + 1]int64 {
	var table [maxLevel + 1]int64
	var points float64
	for level := 1; level < maxLevel; level++ {
		points += math.Floor(float64(level) + 300.0*math.Pow(2.0, float64(level)/7.0))
		table[level+1] = int64(math.Floor(points / 4.0))
	}
	return table
}

// XPForLevel returns the total XP required to reach a level.
func XPForLevel(level int) int64 {
	if level < 1 {
		return 0
	}
	if level > maxLevel {
		return xpTable[maxLevel]
	}
	return xpTable[level]
}

// XPToNextLevel returns the remaining XP from currentXP to the next
// level. Levels at or past the cap (99, or 120 virtual) return 0.
func XPToNextLevel(level int, currentXP int64) int64 {
	if level < 1 {
		return 0
	}
	cap := 99
	if level >= 99 {
		cap = maxLevel
	}
	if level >= cap {
		return 0
	}
	remaining := xpTable[level+1] - max(currentXP, 0)
	return max(remaining, 0)
}
