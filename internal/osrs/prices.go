package osrs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/mheard/bobbot/internal/httpkit"
)

const defaultPricesURL = "https://prices.runescape.wiki/api/v1/osrs"

// Shorthand item names the community actually uses.
var itemAliases = map[string]string{
	"tbow":     "twisted bow",
	"shadow":   "tumeken's shadow (uncharged)",
	"scythe":   "scythe of vitur (uncharged)",
	"fang":     "osmumten's fang",
	"bcp":      "bandos chestplate",
	"tassets":  "bandos tassets",
	"dfs":      "dragonfire shield",
	"zcb":      "zaryte crossbow",
	"bp":       "toxic blowpipe (empty)",
	"blowpipe": "toxic blowpipe (empty)",
	"ags":      "armadyl godsword",
	"sgs":      "saradomin godsword",
	"bgs":      "bandos godsword",
	"zgs":      "zamorak godsword",
	"dwh":      "dragon warhammer",
	"claws":    "dragon claws",
	"bond":     "old school bond",
}

// ItemMapping is one entry in the Wiki item mapping.
type ItemMapping struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// ItemPrice is the latest high/low price for an item. Nil means the
// side has never traded.
type ItemPrice struct {
	High *int64 `json:"high"`
	Low  *int64 `json:"low"`
}

// PriceInfo couples a resolved item with its latest price.
type PriceInfo struct {
	Item  ItemMapping
	Price *ItemPrice
}

// ItemClient talks to the OSRS Wiki real-time prices API. The item
// mapping (~4000 entries) is fetched once and cached for the process
// lifetime.
type ItemClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	mu      sync.Mutex
	mapping []ItemMapping
}

// NewItemClient creates a price client. An empty baseURL uses the
// public Wiki API.
func NewItemClient(baseURL string, logger *slog.Logger) *ItemClient {
	if baseURL == "" {
		baseURL = defaultPricesURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ItemClient{
		baseURL:    baseURL,
		httpClient: httpkit.NewClient(),
		logger:     logger.With("client", "prices"),
	}
}

// FindItem resolves an item by name or alias: exact match first, then
// the shortest name starting with the query.
func (c *ItemClient) FindItem(ctx context.Context, name string) (ItemMapping, bool, error) {
	mapping, err := c.ensureMapping(ctx)
	if err != nil {
		return ItemMapping{}, false, err
	}

	query := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := itemAliases[query]; ok {
		query = alias
	}

	var best ItemMapping
	found := false
	for _, item := range mapping {
		lower := strings.ToLower(item.Name)
		if lower == query {
			return item, true, nil
		}
		if strings.HasPrefix(lower, query) {
			if !found || len(item.Name) < len(best.Name) {
				best = item
				found = true
			}
		}
	}
	return best, found, nil
}

// SearchItems returns up to limit items whose names contain the query,
// shortest names first.
func (c *ItemClient) SearchItems(ctx context.Context, query string, limit int) ([]ItemMapping, error) {
	mapping, err := c.ensureMapping(ctx)
	if err != nil {
		return nil, err
	}

	lower := strings.ToLower(query)
	var matches []ItemMapping
	for _, item := range mapping {
		if strings.Contains(strings.ToLower(item.Name), lower) {
			matches = append(matches, item)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return len(matches[i].Name) < len(matches[j].Name)
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// FetchPrice returns the latest price for an item id, or false when the
// API has no data for it.
func (c *ItemClient) FetchPrice(ctx context.Context, id int) (ItemPrice, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/latest?id="+strconv.Itoa(id), nil)
	if err != nil {
		return ItemPrice{}, false, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ItemPrice{}, false, fmt.Errorf("price request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		httpkit.DrainAndClose(resp.Body, 1024)
		return ItemPrice{}, false, nil
	}

	var payload struct {
		Data map[string]ItemPrice `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return ItemPrice{}, false, fmt.Errorf("decode price response: %w", err)
	}

	price, ok := payload.Data[strconv.Itoa(id)]
	return price, ok, nil
}

// LookupPrice resolves an item by name (falling back to a substring
// search) and fetches its latest price. The boolean is false when no
// item matches at all.
func (c *ItemClient) LookupPrice(ctx context.Context, itemName string) (PriceInfo, bool, error) {
	item, found, err := c.FindItem(ctx, itemName)
	if err != nil {
		return PriceInfo{}, false, err
	}
	if !found {
		matches, err := c.SearchItems(ctx, itemName, 1)
		if err != nil {
			return PriceInfo{}, false, err
		}
		if len(matches) == 0 {
			return PriceInfo{}, false, nil
		}
		item = matches[0]
	}

	price, ok, err := c.FetchPrice(ctx, item.ID)
	if err != nil {
		return PriceInfo{}, false, err
	}
	info := PriceInfo{Item: item}
	if ok {
		info.Price = &price
	}
	return info, true, nil
}

func (c *ItemClient) ensureMapping(ctx context.Context) ([]ItemMapping, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mapping != nil {
		return c.mapping, nil
	}

	c.logger.Info("fetching OSRS item mapping")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/mapping", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mapping request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		httpkit.DrainAndClose(resp.Body, 1024)
		return nil, fmt.Errorf("fetch item mapping: status %d", resp.StatusCode)
	}

	var mapping []ItemMapping
	if err := json.NewDecoder(resp.Body).Decode(&mapping); err != nil {
		return nil, fmt.Errorf("decode item mapping: %w", err)
	}

	c.mapping = mapping
	c.logger.Info("loaded item mapping", "items", len(mapping))
	return c.mapping, nil
}
