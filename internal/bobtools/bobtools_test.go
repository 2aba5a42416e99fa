package bobtools

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mheard/bobbot/internal/archive"
	"github.com/mheard/bobbot/internal/osrs"
	"github.com/mheard/bobbot/internal/pagination"
	"github.com/mheard/bobbot/internal/persona"
	"github.com/mheard/bobbot/internal/settings"
	"github.com/mheard/bobbot/internal/storage"
	"github.com/mheard/bobbot/internal/tools"
	"github.com/mheard/bobbot/internal/wiki"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestDeps(t *testing.T) Deps {
	t.Helper()
	st, err := settings.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return Deps{
		Logger:   quietLogger(),
		Settings: st,
		Players:  storage.NewStore(t.TempDir()),
		Pages:    pagination.NewBridge(quietLogger()),
	}
}

func scoped(callerID, guildID string) context.Context {
	return tools.WithScope(context.Background(), &tools.CallScope{CallerID: callerID, GuildID: guildID})
}

// gameDataDeps backs GameData and Wiki with a fake companion service.
func gameDataDeps(t *testing.T) Deps {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/player/{name}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("name") != "Zezima" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"main":{"skills":{
			"Attack":{"level":99,"xp":13034431},
			"Strength":{"level":80,"xp":2000000}
		}}}`))
	})
	mux.HandleFunc("GET /api/quests/{name}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("name") != "Dragon Slayer" {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"Quest not found"}`))
			return
		}
		w.Write([]byte(`{
			"name":"Dragon Slayer",
			"difficulty":"Experienced",
			"length":"Long",
			"requirements":["32 Quest points"],
			"rewards":["18,650 Strength XP"]
		}`))
	})
	mux.HandleFunc("GET /api/slayer/{master}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("master") != "Duradel" {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"Slayer master not found"}`))
			return
		}
		w.Write([]byte(`[
			{"name":"Gargoyles"},
			{"name":"Abyssal demons"},
			{"name":"Gargoyles"}
		]`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	d := newTestDeps(t)
	d.GameData = osrs.NewAPIClient(srv.URL, quietLogger())
	d.Wiki = wiki.New(d.GameData, quietLogger())
	return d
}

func TestRegisterToolSurface(t *testing.T) {
	reg := tools.NewRegistry(quietLogger())
	Register(reg, newTestDeps(t))

	names := reg.Names()
	if len(names) != 23 {
		t.Errorf("registered %d tools, want 23: %v", len(names), names)
	}
	for _, want := range []string{
		"get_item_price", "compare_prices", "get_my_stats", "get_player_stats",
		"get_leaderboard", "get_quest_info", "get_slayer_tasks", "get_wiki_info",
		"update_ai_model", "update_ai_personality", "display_paginated_report",
		"reboot_bot", "stop_bot", "roll_for_pet",
	} {
		if reg.Get(want) == nil {
			t.Errorf("tool %q not registered", want)
		}
	}
}

func TestVetUsername(t *testing.T) {
	tests := []struct {
		username string
		wantOK   bool
		fragment string
	}{
		{"Zezima", true, ""},
		{"a valid name", true, ""},
		{"", false, "not a valid OSRS username"},
		{"name!with@symbols", false, "not a valid OSRS username"},
		{"waytoolongusername", false, "not a valid OSRS username"},
		{"bob", false, "lore character"},
		{"Wise Old Man", false, "lore character"},
	}
	for _, tt := range tests {
		msg, ok := vetUsername(tt.username)
		if ok != tt.wantOK {
			t.Errorf("vetUsername(%q) ok = %v, want %v", tt.username, ok, tt.wantOK)
			continue
		}
		if !ok && !strings.Contains(msg, tt.fragment) {
			t.Errorf("vetUsername(%q) = %q, want fragment %q", tt.username, msg, tt.fragment)
		}
	}
}

func TestGroupDigits(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{7, "7"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{13034431, "13,034,431"},
		{-45000, "-45,000"},
	}
	for _, tt := range tests {
		if got := groupDigits(tt.in); got != tt.want {
			t.Errorf("groupDigits(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatPrice(t *testing.T) {
	high := int64(1_500_000)
	low := int64(1_450_000)

	t.Run("both sides", func(t *testing.T) {
		got := formatPrice(osrs.PriceInfo{
			Item:  osrs.ItemMapping{ID: 4151, Name: "Abyssal whip"},
			Price: &osrs.ItemPrice{High: &high, Low: &low},
		})
		if got != "Abyssal whip: high 1,500,000 gp, low 1,450,000 gp." {
			t.Errorf("formatPrice = %q", got)
		}
	})

	t.Run("high only", func(t *testing.T) {
		got := formatPrice(osrs.PriceInfo{
			Item:  osrs.ItemMapping{Name: "Twisted bow"},
			Price: &osrs.ItemPrice{High: &high},
		})
		if !strings.Contains(got, "high 1,500,000 gp") || strings.Contains(got, "low") {
			t.Errorf("formatPrice = %q", got)
		}
	})

	t.Run("never traded", func(t *testing.T) {
		got := formatPrice(osrs.PriceInfo{Item: osrs.ItemMapping{Name: "Dusty item"}})
		if !strings.Contains(got, "no recorded trades") {
			t.Errorf("formatPrice = %q", got)
		}
	})
}

func TestMidPrice(t *testing.T) {
	high := int64(100)
	low := int64(50)

	if got, ok := midPrice(osrs.PriceInfo{Price: &osrs.ItemPrice{High: &high, Low: &low}}); !ok || got != 75 {
		t.Errorf("midPrice both = %d, %v", got, ok)
	}
	if got, ok := midPrice(osrs.PriceInfo{Price: &osrs.ItemPrice{High: &high}}); !ok || got != 100 {
		t.Errorf("midPrice high = %d, %v", got, ok)
	}
	if got, ok := midPrice(osrs.PriceInfo{Price: &osrs.ItemPrice{Low: &low}}); !ok || got != 50 {
		t.Errorf("midPrice low = %d, %v", got, ok)
	}
	if _, ok := midPrice(osrs.PriceInfo{}); ok {
		t.Error("midPrice on empty info should report false")
	}
}

func TestStringArg(t *testing.T) {
	args := map[string]any{"name": "  whip  ", "count": 3}
	if got := stringArg(args, "name"); got != "whip" {
		t.Errorf("stringArg = %q", got)
	}
	if got := stringArg(args, "count"); got != "" {
		t.Errorf("non-string arg = %q", got)
	}
	if got := stringArg(args, "missing"); got != "" {
		t.Errorf("missing arg = %q", got)
	}
}

func TestGetMyLinkedUsername(t *testing.T) {
	d := newTestDeps(t)
	if err := d.Players.Upsert("user-1", storage.PlayerRecord{Username: "Zezima"}); err != nil {
		t.Fatal(err)
	}

	got, err := d.getMyLinkedUsername(scoped("user-1", ""), nil)
	if err != nil {
		t.Fatalf("getMyLinkedUsername: %v", err)
	}
	if !strings.Contains(got, `"Zezima"`) {
		t.Errorf("result = %q", got)
	}

	got, err = d.getMyLinkedUsername(scoped("user-2", ""), nil)
	if err != nil {
		t.Fatalf("unlinked caller: %v", err)
	}
	if !strings.Contains(got, "hasn't linked") {
		t.Errorf("unlinked result = %q", got)
	}

	got, err = d.getMyLinkedUsername(context.Background(), nil)
	if err != nil {
		t.Fatalf("no scope: %v", err)
	}
	if !strings.Contains(got, "don't know who") {
		t.Errorf("no-scope result = %q", got)
	}
}

func TestGetLeaderboard(t *testing.T) {
	d := newTestDeps(t)

	got, err := d.getLeaderboard(context.Background(), nil)
	if err != nil {
		t.Fatalf("getLeaderboard: %v", err)
	}
	if !strings.Contains(got, "Nobody has linked") {
		t.Errorf("empty leaderboard = %q", got)
	}

	for id, rec := range map[string]storage.PlayerRecord{
		"u1": {Username: "Alice", LastTotalLevel: 2100},
		"u2": {Username: "Bert", LastTotalLevel: 2277},
		"u3": {Username: "Carol", LastTotalLevel: 1500},
	} {
		if err := d.Players.Upsert(id, rec); err != nil {
			t.Fatal(err)
		}
	}

	got, err = d.getLeaderboard(context.Background(), nil)
	if err != nil {
		t.Fatalf("getLeaderboard: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(got), "\n")
	if len(lines) != 4 {
		t.Fatalf("leaderboard = %q", got)
	}
	if !strings.Contains(lines[1], "1. Bert - 2277") {
		t.Errorf("first row = %q", lines[1])
	}
	if !strings.Contains(lines[3], "3. Carol - 1500") {
		t.Errorf("last row = %q", lines[3])
	}
}

func TestAdminGating(t *testing.T) {
	d := newTestDeps(t)
	d.IsAdmin = func(ctx context.Context, userID string) bool { return userID == "admin-1" }

	got, err := d.getAIConfig(scoped("pleb-1", "g"), nil)
	if err != nil {
		t.Fatalf("getAIConfig: %v", err)
	}
	if got != notAdminMsg {
		t.Errorf("non-admin result = %q", got)
	}

	got, err = d.getAIConfig(scoped("admin-1", "g"), nil)
	if err != nil {
		t.Fatalf("getAIConfig admin: %v", err)
	}
	if !strings.Contains(got, "(not set)") {
		t.Errorf("admin result = %q", got)
	}

	// No IsAdmin hook means nobody is an admin.
	d.IsAdmin = nil
	got, err = d.getAIConfig(scoped("admin-1", "g"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != notAdminMsg {
		t.Errorf("nil hook result = %q", got)
	}
}

func TestUpdateAIModel(t *testing.T) {
	d := newTestDeps(t)
	d.IsAdmin = func(ctx context.Context, userID string) bool { return true }

	got, err := d.updateAIModel(scoped("admin-1", "g"), map[string]any{"model": "qwen3:32b"})
	if err != nil {
		t.Fatalf("updateAIModel: %v", err)
	}
	if !strings.Contains(got, "qwen3:32b") {
		t.Errorf("result = %q", got)
	}
	if d.Settings.Snapshot().AIModel != "qwen3:32b" {
		t.Errorf("settings not persisted: %+v", d.Settings.Snapshot())
	}

	if _, err := d.updateAIModel(scoped("admin-1", "g"), map[string]any{}); err == nil {
		t.Error("expected error for missing model")
	}
}

func TestDisplayPaginatedReport(t *testing.T) {
	d := newTestDeps(t)
	scope := &tools.CallScope{CallerID: "user-1"}
	ctx := tools.WithScope(context.Background(), scope)

	items := make([]any, 0, 25)
	for i := range 25 {
		items = append(items, strings.Repeat("x", i+1))
	}
	got, err := d.displayPaginatedReport(ctx, map[string]any{"title": "Drops", "items": items})
	if err != nil {
		t.Fatalf("displayPaginatedReport: %v", err)
	}
	if !strings.Contains(got, `"Drops"`) || !strings.Contains(got, "25 entries") {
		t.Errorf("result = %q", got)
	}

	id := scope.PaginationID()
	if id == "" {
		t.Fatal("pagination id not recorded on scope")
	}
	session, ok := d.Pages.Get(id)
	if !ok {
		t.Fatal("session not found")
	}
	if session.Title != "Drops" || len(session.Pages) != 3 {
		t.Errorf("session = %+v", session)
	}
}

func TestDisplayPaginatedReport_Validation(t *testing.T) {
	d := newTestDeps(t)
	if _, err := d.displayPaginatedReport(context.Background(), map[string]any{"title": "x"}); err == nil {
		t.Error("expected error for missing items")
	}
	if _, err := d.displayPaginatedReport(context.Background(), map[string]any{"items": []any{"a"}}); err == nil {
		t.Error("expected error for missing title")
	}
}

func TestGetQuestInfo(t *testing.T) {
	d := gameDataDeps(t)

	got, err := d.getQuestInfo(context.Background(), map[string]any{"quest_name": "Dragon Slayer"})
	if err != nil {
		t.Fatalf("getQuestInfo: %v", err)
	}
	for _, want := range []string{
		"Quest: Dragon Slayer",
		"Difficulty: Experienced",
		"Length: Long",
		"32 Quest points",
		"18,650 Strength XP",
		"Wiki: https://oldschool.runescape.wiki/w/Dragon_Slayer",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("quest info missing %q:\n%s", want, got)
		}
	}
}

func TestGetQuestInfo_UnknownQuest(t *testing.T) {
	d := gameDataDeps(t)

	got, err := d.getQuestInfo(context.Background(), map[string]any{"quest_name": "Cabbage Caper"})
	if err != nil {
		t.Fatalf("getQuestInfo: %v", err)
	}
	if !strings.Contains(got, "couldn't find a quest") {
		t.Errorf("result = %q", got)
	}

	if _, err := d.getQuestInfo(context.Background(), map[string]any{}); err == nil {
		t.Error("expected error for missing quest_name")
	}
}

func TestGetSlayerTasks(t *testing.T) {
	d := gameDataDeps(t)

	got, err := d.getSlayerTasks(context.Background(), map[string]any{"master": "Duradel"})
	if err != nil {
		t.Fatalf("getSlayerTasks: %v", err)
	}
	// Duplicates collapse and the names come back sorted.
	if !strings.Contains(got, "Abyssal demons, Gargoyles") {
		t.Errorf("result = %q", got)
	}
	if strings.Count(got, "Gargoyles") != 1 {
		t.Errorf("duplicate task kept: %q", got)
	}

	got, err = d.getSlayerTasks(context.Background(), map[string]any{"master": "Vannaka"})
	if err != nil {
		t.Fatalf("unknown master: %v", err)
	}
	if !strings.Contains(got, "Duradel, Nieve and Konar") {
		t.Errorf("unknown master result = %q", got)
	}
}

func TestCompareMySkills(t *testing.T) {
	d := gameDataDeps(t)
	if err := d.Players.Upsert("user-1", storage.PlayerRecord{Username: "Zezima"}); err != nil {
		t.Fatal(err)
	}

	got, err := d.compareMySkills(scoped("user-1", ""),
		map[string]any{"first_skill": "attack", "second_skill": "str"})
	if err != nil {
		t.Fatalf("compareMySkills: %v", err)
	}
	for _, want := range []string{
		"Comparison for Zezima",
		"Attack is level 99 (13,034,431 xp)",
		"Strength is level 80 (2,000,000 xp)",
		"Level diff +19",
		"xp diff +11,034,431",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("comparison missing %q:\n%s", want, got)
		}
	}

	got, err = d.compareMySkills(scoped("user-1", ""),
		map[string]any{"first_skill": "cabbage", "second_skill": "attack"})
	if err != nil {
		t.Fatalf("unknown skill: %v", err)
	}
	if !strings.Contains(got, "not an OSRS skill") {
		t.Errorf("unknown skill result = %q", got)
	}

	got, err = d.compareMySkills(scoped("user-2", ""),
		map[string]any{"first_skill": "attack", "second_skill": "strength"})
	if err != nil {
		t.Fatalf("unlinked caller: %v", err)
	}
	if !strings.Contains(got, "hasn't linked") {
		t.Errorf("unlinked result = %q", got)
	}
}

func TestUpdateAIPersonality(t *testing.T) {
	d := newTestDeps(t)
	dir := t.TempDir()
	d.Persona = persona.NewLoader(dir, "", quietLogger())
	d.IsAdmin = func(ctx context.Context, userID string) bool { return userID == "admin-1" }

	got, err := d.updateAIPersonality(scoped("pleb-1", ""), map[string]any{"content": "# New Bob"})
	if err != nil {
		t.Fatal(err)
	}
	if got != notAdminMsg {
		t.Errorf("non-admin result = %q", got)
	}

	got, err = d.updateAIPersonality(scoped("admin-1", ""), map[string]any{"content": "# New Bob"})
	if err != nil {
		t.Fatalf("updateAIPersonality: %v", err)
	}
	if !strings.Contains(got, "saved") {
		t.Errorf("result = %q", got)
	}

	doc, err := d.getAIPersonality(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(doc, "# New Bob") {
		t.Errorf("personality after save = %q", doc)
	}

	if _, err := d.updateAIPersonality(scoped("admin-1", ""), map[string]any{}); err == nil {
		t.Error("expected error for missing content")
	}
}

func TestRebootAndStopTools(t *testing.T) {
	d := newTestDeps(t)
	d.IsAdmin = func(ctx context.Context, userID string) bool { return userID == "admin-1" }

	var codes []int
	d.Exit = func(code int) { codes = append(codes, code) }

	got, err := d.rebootBot(scoped("pleb-1", ""), nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != notAdminMsg || len(codes) != 0 {
		t.Errorf("non-admin reboot: %q, codes %v", got, codes)
	}

	if _, err := d.rebootBot(scoped("admin-1", ""), nil); err != nil {
		t.Fatalf("rebootBot: %v", err)
	}
	if _, err := d.stopBot(scoped("admin-1", ""), nil); err != nil {
		t.Fatalf("stopBot: %v", err)
	}
	if len(codes) != 2 || codes[0] != rebootExitCode || codes[1] != stopExitCode {
		t.Errorf("exit codes = %v, want [%d %d]", codes, rebootExitCode, stopExitCode)
	}

	// A deployment without an exit hook declines instead of panicking.
	d.Exit = nil
	got, err = d.stopBot(scoped("admin-1", ""), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "isn't wired up") {
		t.Errorf("nil hook result = %q", got)
	}
}

func TestGetBotHealthIncludesArchiveCount(t *testing.T) {
	d := newTestDeps(t)

	got, err := d.getBotHealth(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(got, "prompts so far") {
		t.Errorf("nil archive should omit the count: %q", got)
	}

	store, err := archive.NewStore(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("archive store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.RecordGeneration(context.Background(), "c1", "u1", "q", "a", ""); err != nil {
		t.Fatal(err)
	}

	d.Archive = store
	got, err = d.getBotHealth(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "I've answered 1 prompts so far.") {
		t.Errorf("health = %q", got)
	}
}

func TestRollForPet(t *testing.T) {
	d := newTestDeps(t)
	for range 20 {
		got, err := d.rollForPet(context.Background(), nil)
		if err != nil {
			t.Fatalf("rollForPet: %v", err)
		}
		if !strings.Contains(got, "1 in 3000") {
			t.Errorf("result = %q", got)
		}
	}
}
