package osrs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/mheard/bobbot/internal/httpkit"
)

// PlayerStats is the per-skill breakdown from the game data service.
type PlayerStats struct {
	Username string
	Skills   map[string]SkillStat
}

// WikiPage is a wiki lookup result.
type WikiPage struct {
	URL     string `json:"url"`
	Summary string `json:"summary"`
}

// Quest is a single quest entry from the game data service.
// Requirements and Rewards are kept as raw JSON since their shape
// varies per quest.
type Quest struct {
	Name         string          `json:"name"`
	Difficulty   string          `json:"difficulty"`
	Length       string          `json:"length"`
	Requirements json.RawMessage `json:"requirements"`
	Rewards      json.RawMessage `json:"rewards"`
}

// SlayerTask is one entry on a slayer master's assignment list.
type SlayerTask struct {
	Name string `json:"name"`
}

// APIClient talks to the companion game data service, which fronts the
// official hiscores and the wiki with friendlier JSON.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// ErrNotFound is returned when the game data service has no entry for
// the requested resource.
var ErrNotFound = errors.New("no matching entry in the game data service")

// ErrPlayerNotFound is returned when the hiscores have no entry for a
// username.
type ErrPlayerNotFound struct {
	Username string
}

func (e *ErrPlayerNotFound) Error() string {
	return fmt.Sprintf("player %q was not found on the OSRS hiscores", e.Username)
}

// NewAPIClient creates a game data client for the given base URL.
func NewAPIClient(baseURL string, logger *slog.Logger) *APIClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpkit.NewClient(),
		logger:     logger.With("client", "gamedata"),
	}
}

// Configured reports whether a base URL was set.
func (c *APIClient) Configured() bool {
	return c.baseURL != ""
}

// PlayerStats fetches the full skill table for a username.
func (c *APIClient) PlayerStats(ctx context.Context, username string) (*PlayerStats, error) {
	var payload struct {
		Main struct {
			Skills map[string]struct {
				Level int   `json:"level"`
				XP    int64 `json:"xp"`
			} `json:"skills"`
		} `json:"main"`
	}
	if err := c.getJSON(ctx, "/api/player/"+url.PathEscape(username), &payload); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &ErrPlayerNotFound{Username: username}
		}
		return nil, err
	}

	stats := &PlayerStats{Username: username, Skills: make(map[string]SkillStat, len(payload.Main.Skills))}
	for name, s := range payload.Main.Skills {
		key := strings.ToLower(name)
		stat := SkillStat{Level: s.Level, XP: s.XP}
		if skill, ok := FindSkill(key); ok {
			stat.Skill = skill
		}
		stats.Skills[key] = stat
	}
	return stats, nil
}

// Skill returns a single skill for a username, resolving aliases like
// "wc" or "hp".
func (c *APIClient) Skill(ctx context.Context, username, skillName string) (SkillStat, error) {
	skill, ok := FindSkill(skillName)
	if !ok {
		return SkillStat{}, fmt.Errorf("unknown skill %q", skillName)
	}
	stats, err := c.PlayerStats(ctx, username)
	if err != nil {
		return SkillStat{}, err
	}
	stat, ok := stats.Skills[strings.ToLower(skill.String())]
	if !ok {
		return SkillStat{}, fmt.Errorf("no %s data for %q", skill, username)
	}
	stat.Skill = skill
	return stat, nil
}

// QuestInfo looks up a quest by name. Returns ErrNotFound when the
// service knows no quest by that name.
func (c *APIClient) QuestInfo(ctx context.Context, questName string) (*Quest, error) {
	var quest Quest
	if err := c.getJSON(ctx, "/api/quests/"+url.PathEscape(questName), &quest); err != nil {
		return nil, err
	}
	return &quest, nil
}

// SlayerTasks lists the assignment table for a slayer master such as
// Duradel, Nieve, or Konar. Returns ErrNotFound for an unknown master.
func (c *APIClient) SlayerTasks(ctx context.Context, master string) ([]SlayerTask, error) {
	var tasks []SlayerTask
	if err := c.getJSON(ctx, "/api/slayer/"+url.PathEscape(master), &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// WikiSummary looks up an OSRS wiki page by search term.
func (c *APIClient) WikiSummary(ctx context.Context, term string) (*WikiPage, error) {
	var page WikiPage
	if err := c.getJSON(ctx, "/api/wiki/"+url.PathEscape(term), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *APIClient) getJSON(ctx context.Context, path string, out any) error {
	if c.baseURL == "" {
		return fmt.Errorf("game data service is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("game data request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		httpkit.DrainAndClose(resp.Body, 1024)
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		body := httpkit.ReadErrorBody(resp.Body, 512)
		return fmt.Errorf("game data request: status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode game data response: %w", err)
	}
	return nil
}
