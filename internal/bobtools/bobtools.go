// Package bobtools registers Bob's tool surface: item prices, player
// stats, quests, wiki lookups, admin configuration, and paginated
// reports.
package bobtools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"github.com/mheard/bobbot/internal/archive"
	"github.com/mheard/bobbot/internal/buildinfo"
	"github.com/mheard/bobbot/internal/osrs"
	"github.com/mheard/bobbot/internal/pagination"
	"github.com/mheard/bobbot/internal/persona"
	"github.com/mheard/bobbot/internal/settings"
	"github.com/mheard/bobbot/internal/storage"
	"github.com/mheard/bobbot/internal/tools"
	"github.com/mheard/bobbot/internal/wiki"
)

// Report pages hold ten lines each.
const reportPageSize = 10

// One in petDropRate rolls yields a pet.
const petDropRate = 3000

// The container supervisor restarts the process on a nonzero exit and
// stays down on zero.
const (
	rebootExitCode = 2
	stopExitCode   = 0
)

const invalidUsernameMsg = "%q is not a valid OSRS username. Usernames are 1-12 characters of letters, numbers, spaces, hyphens and underscores. Do NOT keep trying variations; tell the user their name looks wrong."

const loreCharacterMsg = "%s is a lore character, not a real player. Their stats aren't on the hiscores. Answer from game lore instead."

const notAdminMsg = "Only admins can do that. Tell the user they need the admin role."

// Deps carries everything the tool handlers need. LookupUser resolves a
// Discord display name to a user id within the caller's guild; IsAdmin
// checks the caller's role at call time. Exit terminates the process
// after in-flight replies flush; nil disables the reboot and stop
// tools. Archive may be nil when conversation archiving is disabled.
type Deps struct {
	Logger     *slog.Logger
	Settings   *settings.Store
	Players    *storage.Store
	Items      *osrs.ItemClient
	GameData   *osrs.APIClient
	Wiki       *wiki.Service
	Persona    *persona.Loader
	Pages      *pagination.Bridge
	Archive    *archive.Store
	IsAdmin    func(ctx context.Context, userID string) bool
	LookupUser func(ctx context.Context, guildID, name string) (string, bool)
	UserName   func(ctx context.Context, userID string) string
	Exit       func(code int)
}

// Register adds all of Bob's tools to the registry. Panics on duplicate
// registration since the tool surface is fixed at startup.
func Register(reg *tools.Registry, d Deps) {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	reg.MustRegister(&tools.Tool{
		Name:        "get_item_price",
		Description: "Get the current Grand Exchange price of an OSRS item.",
		Parameters: objectParams(map[string]any{
			"item_name": stringParam("The item name, e.g. 'twisted bow' or 'tbow'."),
		}, "item_name"),
		Handler: d.getItemPrice,
	})

	reg.MustRegister(&tools.Tool{
		Name:        "compare_prices",
		Description: "Compare the Grand Exchange prices of two OSRS items.",
		Parameters: objectParams(map[string]any{
			"first_item":  stringParam("The first item name."),
			"second_item": stringParam("The second item name."),
		}, "first_item", "second_item"),
		Handler: d.comparePrices,
	})

	reg.MustRegister(&tools.Tool{
		Name:        "get_my_stats",
		Description: "Get the OSRS stats of the user you are talking to, using their linked username.",
		Parameters:  objectParams(nil),
		Handler:     d.getMyStats,
	})

	reg.MustRegister(&tools.Tool{
		Name:        "get_my_skill",
		Description: "Get one OSRS skill for the user you are talking to, using their linked username.",
		Parameters: objectParams(map[string]any{
			"skill": stringParam("The skill name, e.g. 'woodcutting' or 'wc'."),
		}, "skill"),
		Handler: d.getMySkill,
	})

	reg.MustRegister(&tools.Tool{
		Name:        "get_player_stats",
		Description: "Get the full OSRS stats for any player by username.",
		Parameters: objectParams(map[string]any{
			"username": stringParam("The OSRS username to look up."),
		}, "username"),
		Handler: d.getPlayerStats,
	})

	reg.MustRegister(&tools.Tool{
		Name:        "get_player_skill",
		Description: "Get one OSRS skill for any player by username.",
		Parameters: objectParams(map[string]any{
			"username": stringParam("The OSRS username to look up."),
			"skill":    stringParam("The skill name, e.g. 'slayer' or 'hp'."),
		}, "username", "skill"),
		Handler: d.getPlayerSkill,
	})

	reg.MustRegister(&tools.Tool{
		Name:        "get_stats_by_discord_name",
		Description: "Get OSRS stats for a server member by their Discord display name, using their linked username.",
		Parameters: objectParams(map[string]any{
			"discord_name": stringParam("The Discord display name of the member."),
		}, "discord_name"),
		Handler: d.getStatsByDiscordName,
	})

	reg.MustRegister(&tools.Tool{
		Name:        "get_my_linked_username",
		Description: "Get the OSRS username linked to the user you are talking to.",
		Parameters:  objectParams(nil),
		Handler:     d.getMyLinkedUsername,
	})

	reg.MustRegister(&tools.Tool{
		Name:        "get_leaderboard",
		Description: "Get the server's total level leaderboard of linked players.",
		Parameters:  objectParams(nil),
		Handler:     d.getLeaderboard,
	})

	reg.MustRegister(&tools.Tool{
		Name:        "compare_my_skills",
		Description: "Compare two skills of the user you are talking to, using their linked username.",
		Parameters: objectParams(map[string]any{
			"first_skill":  stringParam("The first skill name, e.g. 'attack'."),
			"second_skill": stringParam("The second skill name, e.g. 'strength'."),
		}, "first_skill", "second_skill"),
		Handler: d.compareMySkills,
	})

	reg.MustRegister(&tools.Tool{
		Name:        "get_quest_info",
		Description: "Get detailed information about an OSRS quest by its name, e.g. 'Dragon Slayer'.",
		Parameters: objectParams(map[string]any{
			"quest_name": stringParam("The quest name."),
		}, "quest_name"),
		Handler: d.getQuestInfo,
	})

	reg.MustRegister(&tools.Tool{
		Name:        "get_slayer_tasks",
		Description: "Get the possible slayer tasks for a slayer master. Knows Duradel, Nieve and Konar.",
		Parameters: objectParams(map[string]any{
			"master": stringParam("The slayer master's name."),
		}, "master"),
		Handler: d.getSlayerTasks,
	})

	reg.MustRegister(&tools.Tool{
		Name:        "get_wiki_info",
		Description: "Look up an OSRS wiki page summary for an item, monster, quest or mechanic.",
		Parameters: objectParams(map[string]any{
			"topic": stringParam("What to look up on the wiki."),
		}, "topic"),
		Handler: d.getWikiInfo,
	})

	reg.MustRegister(&tools.Tool{
		Name:        "get_bot_health",
		Description: "Get the bot's uptime and build information.",
		Parameters:  objectParams(nil),
		Handler:     d.getBotHealth,
	})

	reg.MustRegister(&tools.Tool{
		Name:        "get_ai_config",
		Description: "Get the current AI backend URL and model. Admin only.",
		Parameters:  objectParams(nil),
		Handler:     d.getAIConfig,
	})

	reg.MustRegister(&tools.Tool{
		Name:        "get_ai_personality",
		Description: "Get the personality document the bot is currently using.",
		Parameters:  objectParams(nil),
		Handler:     d.getAIPersonality,
	})

	reg.MustRegister(&tools.Tool{
		Name:        "update_ai_model",
		Description: "Change the AI model the bot uses. Admin only.",
		Parameters: objectParams(map[string]any{
			"model": stringParam("The new model name."),
		}, "model"),
		Handler: d.updateAIModel,
	})

	reg.MustRegister(&tools.Tool{
		Name:        "update_ai_url",
		Description: "Change the AI backend URL the bot uses. Admin only.",
		Parameters: objectParams(map[string]any{
			"url": stringParam("The new backend URL."),
		}, "url"),
		Handler: d.updateAIURL,
	})

	reg.MustRegister(&tools.Tool{
		Name:        "update_ai_personality",
		Description: "Replace the personality document the bot uses. Admin only.",
		Parameters: objectParams(map[string]any{
			"content": stringParam("The full new personality document, in markdown."),
		}, "content"),
		Handler: d.updateAIPersonality,
	})

	reg.MustRegister(&tools.Tool{
		Name:        "reboot_bot",
		Description: "Restart the bot process. The container supervisor brings it back up. Admin only.",
		Parameters:  objectParams(nil),
		Handler:     d.rebootBot,
	})

	reg.MustRegister(&tools.Tool{
		Name:        "stop_bot",
		Description: "Stop the bot process and its container. Admin only.",
		Parameters:  objectParams(nil),
		Handler:     d.stopBot,
	})

	reg.MustRegister(&tools.Tool{
		Name:        "display_paginated_report",
		Description: "Display a long list of results as a paginated report with buttons. Use this instead of dumping a long list into chat.",
		Parameters: objectParams(map[string]any{
			"title": stringParam("The title of the report."),
			"items": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "The lines of the report, one entry per line.",
			},
		}, "title", "items"),
		Handler: d.displayPaginatedReport,
	})

	reg.MustRegister(&tools.Tool{
		Name:        "roll_for_pet",
		Description: "Roll the dice for a pet drop. Standard 1 in 3000 rate.",
		Parameters:  objectParams(nil),
		Handler:     d.rollForPet,
	})
}

func (d Deps) getItemPrice(ctx context.Context, args map[string]any) (string, error) {
	name := stringArg(args, "item_name")
	if name == "" {
		return "", fmt.Errorf("item_name is required")
	}

	info, found, err := d.Items.LookupPrice(ctx, name)
	if err != nil {
		return "", fmt.Errorf("price lookup failed: %w", err)
	}
	if !found {
		return fmt.Sprintf("No tradeable item matches %q. It might be untradeable or misspelled.", name), nil
	}
	return formatPrice(info), nil
}

func (d Deps) comparePrices(ctx context.Context, args map[string]any) (string, error) {
	first := stringArg(args, "first_item")
	second := stringArg(args, "second_item")
	if first == "" || second == "" {
		return "", fmt.Errorf("both first_item and second_item are required")
	}

	a, foundA, err := d.Items.LookupPrice(ctx, first)
	if err != nil {
		return "", err
	}
	b, foundB, err := d.Items.LookupPrice(ctx, second)
	if err != nil {
		return "", err
	}
	if !foundA {
		return fmt.Sprintf("No tradeable item matches %q.", first), nil
	}
	if !foundB {
		return fmt.Sprintf("No tradeable item matches %q.", second), nil
	}

	var b1 strings.Builder
	b1.WriteString(formatPrice(a))
	b1.WriteByte('\n')
	b1.WriteString(formatPrice(b))
	if pa, ok1 := midPrice(a); ok1 {
		if pb, ok2 := midPrice(b); ok2 {
			diff := pa - pb
			switch {
			case diff > 0:
				fmt.Fprintf(&b1, "\n%s is %s gp more expensive than %s.", a.Item.Name, groupDigits(diff), b.Item.Name)
			case diff < 0:
				fmt.Fprintf(&b1, "\n%s is %s gp more expensive than %s.", b.Item.Name, groupDigits(-diff), a.Item.Name)
			default:
				b1.WriteString("\nThey cost about the same.")
			}
		}
	}
	return b1.String(), nil
}

func (d Deps) getMyStats(ctx context.Context, args map[string]any) (string, error) {
	username, errMsg := d.linkedUsername(ctx)
	if errMsg != "" {
		return errMsg, nil
	}
	return d.renderStats(ctx, username)
}

func (d Deps) getMySkill(ctx context.Context, args map[string]any) (string, error) {
	username, errMsg := d.linkedUsername(ctx)
	if errMsg != "" {
		return errMsg, nil
	}
	return d.renderSkill(ctx, username, stringArg(args, "skill"))
}

func (d Deps) getPlayerStats(ctx context.Context, args map[string]any) (string, error) {
	username := stringArg(args, "username")
	if msg, ok := vetUsername(username); !ok {
		return msg, nil
	}
	return d.renderStats(ctx, username)
}

func (d Deps) getPlayerSkill(ctx context.Context, args map[string]any) (string, error) {
	username := stringArg(args, "username")
	if msg, ok := vetUsername(username); !ok {
		return msg, nil
	}
	return d.renderSkill(ctx, username, stringArg(args, "skill"))
}

func (d Deps) getStatsByDiscordName(ctx context.Context, args map[string]any) (string, error) {
	name := stringArg(args, "discord_name")
	if name == "" {
		return "", fmt.Errorf("discord_name is required")
	}

	scope := tools.ScopeFrom(ctx)
	if scope == nil || scope.GuildID == "" {
		return "I can only look up server members from inside a server channel.", nil
	}
	if d.LookupUser == nil {
		return "Member lookup isn't available right now.", nil
	}

	userID, ok := d.LookupUser(ctx, scope.GuildID, name)
	if !ok {
		return fmt.Sprintf("I couldn't find a member called %q in this server.", name), nil
	}
	rec, ok := d.Players.Player(userID)
	if !ok || rec.Username == "" {
		return fmt.Sprintf("%s hasn't linked an OSRS username yet.", name), nil
	}
	return d.renderStats(ctx, rec.Username)
}

func (d Deps) getMyLinkedUsername(ctx context.Context, args map[string]any) (string, error) {
	username, errMsg := d.linkedUsername(ctx)
	if errMsg != "" {
		return errMsg, nil
	}
	return fmt.Sprintf("The user's linked OSRS username is %q.", username), nil
}

func (d Deps) getLeaderboard(ctx context.Context, args map[string]any) (string, error) {
	players := d.Players.Players()
	if len(players) == 0 {
		return "Nobody has linked an OSRS username yet. Tell them to use !link.", nil
	}

	type row struct {
		userID string
		rec    storage.PlayerRecord
	}
	rows := make([]row, 0, len(players))
	for id, rec := range players {
		rows = append(rows, row{userID: id, rec: rec})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].rec.LastTotalLevel != rows[j].rec.LastTotalLevel {
			return rows[i].rec.LastTotalLevel > rows[j].rec.LastTotalLevel
		}
		return rows[i].rec.Username < rows[j].rec.Username
	})

	var b strings.Builder
	b.WriteString("Total level leaderboard:\n")
	for i, r := range rows {
		name := r.rec.Username
		if d.UserName != nil {
			if display := d.UserName(ctx, r.userID); display != "" {
				name = fmt.Sprintf("%s (%s)", display, r.rec.Username)
			}
		}
		fmt.Fprintf(&b, "%d. %s - %d total\n", i+1, name, r.rec.LastTotalLevel)
	}
	return b.String(), nil
}

func (d Deps) compareMySkills(ctx context.Context, args map[string]any) (string, error) {
	username, errMsg := d.linkedUsername(ctx)
	if errMsg != "" {
		return errMsg, nil
	}
	firstName := stringArg(args, "first_skill")
	secondName := stringArg(args, "second_skill")
	first, ok := osrs.FindSkill(firstName)
	if !ok {
		return fmt.Sprintf("%q is not an OSRS skill I recognise.", firstName), nil
	}
	second, ok := osrs.FindSkill(secondName)
	if !ok {
		return fmt.Sprintf("%q is not an OSRS skill I recognise.", secondName), nil
	}

	stats, err := d.GameData.PlayerStats(ctx, username)
	if err != nil {
		var notFound *osrs.ErrPlayerNotFound
		if errors.As(err, &notFound) {
			return fmt.Sprintf("%q was not found on the OSRS hiscores. Do NOT keep retrying.", username), nil
		}
		return "", err
	}
	a, okA := stats.Skills[strings.ToLower(first.String())]
	b, okB := stats.Skills[strings.ToLower(second.String())]
	if !okA {
		return fmt.Sprintf("%s is unranked in %s.", username, first), nil
	}
	if !okB {
		return fmt.Sprintf("%s is unranked in %s.", username, second), nil
	}

	xpDiff := groupDigits(a.XP - b.XP)
	if a.XP > b.XP {
		xpDiff = "+" + xpDiff
	}
	return fmt.Sprintf("Comparison for %s: %s is level %d (%s xp), %s is level %d (%s xp). Level diff %+d, xp diff %s.",
		username, first, a.Level, groupDigits(a.XP), second, b.Level, groupDigits(b.XP),
		a.Level-b.Level, xpDiff), nil
}

func (d Deps) getQuestInfo(ctx context.Context, args map[string]any) (string, error) {
	name := stringArg(args, "quest_name")
	if name == "" {
		return "", fmt.Errorf("quest_name is required")
	}
	quest, err := d.GameData.QuestInfo(ctx, name)
	if err != nil {
		if errors.Is(err, osrs.ErrNotFound) {
			return fmt.Sprintf("I couldn't find a quest named %q. Maybe check the spelling.", name), nil
		}
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Quest: %s\n", quest.Name)
	fmt.Fprintf(&b, "Difficulty: %s\n", quest.Difficulty)
	fmt.Fprintf(&b, "Length: %s\n", quest.Length)
	if len(quest.Requirements) > 0 {
		fmt.Fprintf(&b, "Requirements: %s\n", quest.Requirements)
	}
	if len(quest.Rewards) > 0 {
		fmt.Fprintf(&b, "Rewards: %s\n", quest.Rewards)
	}
	fmt.Fprintf(&b, "Wiki: %s", d.Wiki.PageURL(ctx, quest.Name))
	return b.String(), nil
}

func (d Deps) getSlayerTasks(ctx context.Context, args map[string]any) (string, error) {
	master := stringArg(args, "master")
	if master == "" {
		return "", fmt.Errorf("master is required")
	}
	tasks, err := d.GameData.SlayerTasks(ctx, master)
	if err != nil {
		if errors.Is(err, osrs.ErrNotFound) {
			return fmt.Sprintf("I don't know a slayer master called %q. I only know Duradel, Nieve and Konar.", master), nil
		}
		return "", err
	}
	if len(tasks) == 0 {
		return fmt.Sprintf("No tasks recorded for %s.", master), nil
	}

	seen := make(map[string]bool, len(tasks))
	names := make([]string, 0, len(tasks))
	for _, t := range tasks {
		if seen[t.Name] {
			continue
		}
		seen[t.Name] = true
		names = append(names, t.Name)
	}
	sort.Strings(names)
	return fmt.Sprintf("Slayer tasks for %s: %s", master, strings.Join(names, ", ")), nil
}

func (d Deps) getWikiInfo(ctx context.Context, args map[string]any) (string, error) {
	topic := stringArg(args, "topic")
	if topic == "" {
		return "", fmt.Errorf("topic is required")
	}
	summary, err := d.Wiki.Summary(ctx, topic)
	if err != nil {
		return fmt.Sprintf("I couldn't pull a summary, but this should be the page: %s", d.Wiki.PageURL(ctx, topic)), nil
	}
	return summary, nil
}

func (d Deps) getBotHealth(ctx context.Context, args map[string]any) (string, error) {
	info := buildinfo.Info()
	msg := fmt.Sprintf("I'm alive! Version %s (commit %s), up for %s.",
		info["version"], info["git_commit"], buildinfo.Uptime().Round(time.Second))
	if d.Archive != nil {
		if n, err := d.Archive.Count(ctx); err == nil {
			msg += fmt.Sprintf(" I've answered %s prompts so far.", groupDigits(n))
		}
	}
	return msg, nil
}

func (d Deps) getAIConfig(ctx context.Context, args map[string]any) (string, error) {
	if !d.callerIsAdmin(ctx) {
		return notAdminMsg, nil
	}
	snap := d.Settings.Snapshot()
	url := snap.AIURL
	if url == "" {
		url = "(not set)"
	}
	model := snap.AIModel
	if model == "" {
		model = "(not set)"
	}
	return fmt.Sprintf("AI backend: %s\nModel: %s", url, model), nil
}

func (d Deps) getAIPersonality(ctx context.Context, args map[string]any) (string, error) {
	// Prefer the document as written; fall back to the flattened form
	// used in prompts.
	if raw, err := d.Persona.Raw(); err == nil && raw != "" {
		return raw, nil
	}
	text := d.Persona.Load()
	if text == "" {
		return "No personality document is loaded. I'm running on vibes alone.", nil
	}
	return text, nil
}

func (d Deps) updateAIModel(ctx context.Context, args map[string]any) (string, error) {
	if !d.callerIsAdmin(ctx) {
		return notAdminMsg, nil
	}
	model := stringArg(args, "model")
	if model == "" {
		return "", fmt.Errorf("model is required")
	}
	if err := d.Settings.Update(func(s settings.Settings) settings.Settings {
		s.AIModel = model
		return s
	}); err != nil {
		return "", fmt.Errorf("save settings: %w", err)
	}
	d.Logger.Info("AI model updated via tool", "model", model)
	return fmt.Sprintf("Done. I'm now using model %q.", model), nil
}

func (d Deps) updateAIURL(ctx context.Context, args map[string]any) (string, error) {
	if !d.callerIsAdmin(ctx) {
		return notAdminMsg, nil
	}
	url := stringArg(args, "url")
	if url == "" {
		return "", fmt.Errorf("url is required")
	}
	if err := d.Settings.Update(func(s settings.Settings) settings.Settings {
		s.AIURL = url
		return s
	}); err != nil {
		return "", fmt.Errorf("save settings: %w", err)
	}
	d.Logger.Info("AI URL updated via tool", "url", url)
	return fmt.Sprintf("Done. I'm now talking to %s.", url), nil
}

func (d Deps) updateAIPersonality(ctx context.Context, args map[string]any) (string, error) {
	if !d.callerIsAdmin(ctx) {
		return notAdminMsg, nil
	}
	content := stringArg(args, "content")
	if content == "" {
		return "", fmt.Errorf("content is required")
	}
	if err := d.Persona.Save(content); err != nil {
		return "", fmt.Errorf("save personality: %w", err)
	}
	d.Logger.Info("personality updated via tool", "bytes", len(content))
	return "Done. The new personality is saved and takes effect on my next reply.", nil
}

func (d Deps) rebootBot(ctx context.Context, args map[string]any) (string, error) {
	if !d.callerIsAdmin(ctx) {
		return notAdminMsg, nil
	}
	if d.Exit == nil {
		return "Restarting isn't wired up in this deployment.", nil
	}
	d.Logger.Warn("reboot requested via tool")
	d.Exit(rebootExitCode)
	return "Rebooting now. The container supervisor will bring me back up in a tick. Say goodbye to the user.", nil
}

func (d Deps) stopBot(ctx context.Context, args map[string]any) (string, error) {
	if !d.callerIsAdmin(ctx) {
		return notAdminMsg, nil
	}
	if d.Exit == nil {
		return "Shutting down isn't wired up in this deployment.", nil
	}
	d.Logger.Warn("shutdown requested via tool")
	d.Exit(stopExitCode)
	return "Shutting down for good. Say goodbye to the user.", nil
}

func (d Deps) displayPaginatedReport(ctx context.Context, args map[string]any) (string, error) {
	title := stringArg(args, "title")
	rawItems, _ := args["items"].([]any)
	items := make([]string, 0, len(rawItems))
	for _, it := range rawItems {
		if s, ok := it.(string); ok {
			items = append(items, s)
		}
	}
	if title == "" || len(items) == 0 {
		return "", fmt.Errorf("title and items are required")
	}

	id := d.Pages.Open(title, "", items, reportPageSize)
	if scope := tools.ScopeFrom(ctx); scope != nil {
		scope.SetPaginationID(id)
	}
	return fmt.Sprintf("A paginated report titled %q with %d entries will be shown below your reply. Briefly introduce it; do not repeat the entries.", title, len(items)), nil
}

func (d Deps) rollForPet(ctx context.Context, args map[string]any) (string, error) {
	if rand.IntN(petDropRate) == 0 {
		return "JACKPOT! The roll came up 1 in 3000. A pet drop! Celebrate loudly.", nil
	}
	return "No luck, the roll missed the 1 in 3000. Console the user, that's how pet hunting goes.", nil
}

func (d Deps) linkedUsername(ctx context.Context) (string, string) {
	scope := tools.ScopeFrom(ctx)
	if scope == nil || scope.CallerID == "" {
		return "", "I don't know who I'm talking to right now, so I can't look up their account."
	}
	rec, ok := d.Players.Player(scope.CallerID)
	if !ok || rec.Username == "" {
		return "", "The user hasn't linked an OSRS username yet. Tell them to use !link first."
	}
	return rec.Username, ""
}

func (d Deps) renderStats(ctx context.Context, username string) (string, error) {
	stats, err := d.GameData.PlayerStats(ctx, username)
	if err != nil {
		var notFound *osrs.ErrPlayerNotFound
		if errors.As(err, &notFound) {
			return fmt.Sprintf("%q was not found on the OSRS hiscores. They may be unranked or the name may be wrong. Do NOT keep retrying.", username), nil
		}
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Stats for %s:\n", username)
	for _, skill := range osrs.Skills() {
		if stat, ok := stats.Skills[strings.ToLower(skill.String())]; ok {
			fmt.Fprintf(&b, "%s: level %d (%s xp)\n", skill, stat.Level, groupDigits(stat.XP))
		}
	}
	return b.String(), nil
}

func (d Deps) renderSkill(ctx context.Context, username, skillName string) (string, error) {
	if skillName == "" {
		return "", fmt.Errorf("skill is required")
	}
	if _, ok := osrs.FindSkill(skillName); !ok {
		return fmt.Sprintf("%q is not an OSRS skill I recognise.", skillName), nil
	}

	stat, err := d.GameData.Skill(ctx, username, skillName)
	if err != nil {
		var notFound *osrs.ErrPlayerNotFound
		if errors.As(err, &notFound) {
			return fmt.Sprintf("%q was not found on the OSRS hiscores. Do NOT keep retrying.", username), nil
		}
		return "", err
	}

	msg := fmt.Sprintf("%s has level %d %s with %s xp.", username, stat.Level, stat.Skill, groupDigits(stat.XP))
	if stat.Level < 99 {
		msg += fmt.Sprintf(" %s xp to the next level.", groupDigits(osrs.XPToNextLevel(stat.Level, stat.XP)))
	}
	return msg, nil
}

func (d Deps) callerIsAdmin(ctx context.Context) bool {
	scope := tools.ScopeFrom(ctx)
	if scope == nil || scope.CallerID == "" || d.IsAdmin == nil {
		return false
	}
	return d.IsAdmin(ctx, scope.CallerID)
}

// vetUsername rejects invalid usernames and lore characters before any
// network call happens.
func vetUsername(username string) (string, bool) {
	if osrs.IsLoreCharacter(username) {
		return fmt.Sprintf(loreCharacterMsg, username), false
	}
	if !osrs.IsValidUsername(username) {
		return fmt.Sprintf(invalidUsernameMsg, username), false
	}
	return "", true
}

func formatPrice(info osrs.PriceInfo) string {
	if info.Price == nil {
		return fmt.Sprintf("%s has no recorded trades on the Grand Exchange.", info.Item.Name)
	}
	var parts []string
	if info.Price.High != nil {
		parts = append(parts, fmt.Sprintf("high %s gp", groupDigits(*info.Price.High)))
	}
	if info.Price.Low != nil {
		parts = append(parts, fmt.Sprintf("low %s gp", groupDigits(*info.Price.Low)))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%s has no recorded trades on the Grand Exchange.", info.Item.Name)
	}
	return fmt.Sprintf("%s: %s.", info.Item.Name, strings.Join(parts, ", "))
}

// midPrice averages the high and low sides, using whichever exists.
func midPrice(info osrs.PriceInfo) (int64, bool) {
	if info.Price == nil {
		return 0, false
	}
	switch {
	case info.Price.High != nil && info.Price.Low != nil:
		return (*info.Price.High + *info.Price.Low) / 2, true
	case info.Price.High != nil:
		return *info.Price.High, true
	case info.Price.Low != nil:
		return *info.Price.Low, true
	}
	return 0, false
}

// groupDigits renders 1234567 as "1,234,567".
func groupDigits(n int64) string {
	s := fmt.Sprintf("%d", n)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

func objectParams(props map[string]any, required ...string) map[string]any {
	if props == nil {
		props = map[string]any{}
	}
	params := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		params["required"] = required
	}
	return params
}

func stringParam(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return strings.TrimSpace(s)
}
