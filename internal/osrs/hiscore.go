package osrs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/mheard/bobbot/internal/httpkit"
)

const defaultHiscoreURL = "https://secure.runescape.com/m=hiscore_oldschool/index_lite.ws"

// HiscoreClient reads the official OSRS hiscore lite endpoint.
type HiscoreClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHiscoreClient creates a hiscore client. An empty baseURL uses the
// official endpoint.
func NewHiscoreClient(baseURL string) *HiscoreClient {
	if baseURL == "" {
		baseURL = defaultHiscoreURL
	}
	return &HiscoreClient{
		baseURL:    baseURL,
		httpClient: httpkit.NewClient(),
	}
}

// TotalLevel fetches a player's total level. A 404 means the player is
// not on the hiscores.
func (c *HiscoreClient) TotalLevel(ctx context.Context, username string) (int, error) {
	body, err := c.fetch(ctx, username)
	if err != nil {
		return 0, err
	}

	// Lite format: one CSV line per skill, "rank,level,xp"; the first
	// line is Overall.
	firstLine, _, _ := strings.Cut(body, "\n")
	parts := strings.Split(strings.TrimSpace(firstLine), ",")
	if len(parts) < 2 {
		return 0, fmt.Errorf("unexpected hiscore format: %q", firstLine)
	}
	level, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("parse total level: %w", err)
	}
	return level, nil
}

func (c *HiscoreClient) fetch(ctx context.Context, username string) (string, error) {
	u := c.baseURL + "?player=" + url.QueryEscape(username)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("hiscore request failed: %w", err)
	}
	defer httpkit.DrainAndClose(resp.Body, 4096)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("hiscore lookup failed with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("read hiscore body: %w", err)
	}
	return string(body), nil
}
