package osrs

import "testing"

func TestFindSkill(t *testing.T) {
	tests := []struct {
		in    string
		want  Skill
		found bool
	}{
		{"Woodcutting", Woodcutting, true},
		{"woodcutting", Woodcutting, true},
		{"wc", Woodcutting, true},
		{"  WC  ", Woodcutting, true},
		{"rc", Runecraft, true},
		{"hp", Hitpoints, true},
		{"slay", Slayer, true},
		{"overall", Overall, true},
		{"sailing", Sailing, true},
		{"", 0, false},
		{"cabbage", 0, false},
	}
	for _, tt := range tests {
		got, found := FindSkill(tt.in)
		if found != tt.found || (found && got != tt.want) {
			t.Errorf("FindSkill(%q) = %v, %v; want %v, %v", tt.in, got, found, tt.want, tt.found)
		}
	}
}

func TestSkillString(t *testing.T) {
	if got := Herblore.String(); got != "Herblore" {
		t.Errorf("Herblore.String() = %q", got)
	}
	if got := Skill(99).String(); got != "Unknown" {
		t.Errorf("out-of-range String() = %q", got)
	}
}

func TestSkills_OrderAndCount(t *testing.T) {
	all := Skills()
	if len(all) != 25 {
		t.Fatalf("skill count = %d, want 25", len(all))
	}
	if all[0] != Overall {
		t.Errorf("first skill = %v, want Overall", all[0])
	}
	if all[len(all)-1] != Sailing {
		t.Errorf("last skill = %v, want Sailing", all[len(all)-1])
	}
	if !all[0].IsOverall() || all[1].IsOverall() {
		t.Error("IsOverall misclassifies")
	}
}

func TestXPForLevel(t *testing.T) {
	tests := []struct {
		level int
		want  int64
	}{
		{1, 0},
		{2, 83},
		{10, 1154},
		{50, 101333},
		{92, 6517253}, // half of 99
		{99, 13034431},
	}
	for _, tt := range tests {
		if got := XPForLevel(tt.level); got != tt.want {
			t.Errorf("XPForLevel(%d) = %d, want %d", tt.level, got, tt.want)
		}
	}
}

func TestXPToNextLevel(t *testing.T) {
	// 83 XP to go from fresh level 1 to level 2.
	if got := XPToNextLevel(1, 0); got != 83 {
		t.Errorf("XPToNextLevel(1, 0) = %d, want 83", got)
	}
	// Partway through a level.
	if got := XPToNextLevel(1, 50); got != 33 {
		t.Errorf("XPToNextLevel(1, 50) = %d, want 33", got)
	}
	// 99 with no virtual interest returns 0 only past the virtual cap.
	if got := XPToNextLevel(120, XPForLevel(120)); got != 0 {
		t.Errorf("XPToNextLevel at virtual cap = %d, want 0", got)
	}
	// Level 98 counts toward 99.
	want := XPForLevel(99) - XPForLevel(98)
	if got := XPToNextLevel(98, XPForLevel(98)); got != want {
		t.Errorf("XPToNextLevel(98) = %d, want %d", got, want)
	}
}

func TestIsValidUsername(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"Zezima", true},
		{"a", true},
		{"twelve chars", true}, // 12 with a space
		{"under_score", true},
		{"hyphen-name", true},
		{"", false},
		{"   ", false},
		{"thirteenchars", false},
		{"bad!name", false},
	}
	for _, tt := range tests {
		if got := IsValidUsername(tt.in); got != tt.want {
			t.Errorf("IsValidUsername(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestIsLoreCharacter(t *testing.T) {
	for _, name := range []string{"bob", "Bob", "BOB", "Wise Old Man", "wise_old_man", " bob "} {
		if !IsLoreCharacter(name) {
			t.Errorf("IsLoreCharacter(%q) = false, want true", name)
		}
	}
	if IsLoreCharacter("Zezima") {
		t.Error("Zezima is a real player, not lore")
	}
}
