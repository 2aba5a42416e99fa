// Package discord implements the slice of the Discord API the bot
// needs: the REST surface for messages and lookups, and the gateway for
// live events.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/mheard/bobbot/internal/httpkit"
)

const apiBase = "https://discord.com/api/v10"

// Discord rejects message bodies over 2000 chars; we stop a little
// short so edits with a truncation marker still fit.
const MaxMessageLength = 1990

// Message is a Discord message as returned by the REST API.
type Message struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
	Content   string `json:"content"`
	Author    User   `json:"author"`
}

// User is a Discord user.
type User struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
	Bot        bool   `json:"bot"`
}

// Member is a guild member with role ids.
type Member struct {
	User  User     `json:"user"`
	Nick  string   `json:"nick"`
	Roles []string `json:"roles"`
}

// Component is a message component (buttons et al) in Discord's wire
// shape.
type Component map[string]any

// RESTClient calls the Discord REST API with bot authentication.
// Display names resolved for prompts are cached briefly since the model
// asks for the same names on every turn.
type RESTClient struct {
	token      string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	cacheMu sync.Mutex
	names   map[string]cachedName
}

type cachedName struct {
	value   string
	expires time.Time
}

const nameCacheTTL = 5 * time.Minute

// NewRESTClient creates a REST client. An empty baseURL uses the public
// API; tests point it at a local server.
func NewRESTClient(token, baseURL string, logger *slog.Logger) *RESTClient {
	if baseURL == "" {
		baseURL = apiBase
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RESTClient{
		token:      token,
		baseURL:    baseURL,
		httpClient: httpkit.NewClient(),
		logger:     logger.With("client", "discord"),
		names:      make(map[string]cachedName),
	}
}

// SendMessage posts a message to a channel and returns the new message
// id.
func (c *RESTClient) SendMessage(ctx context.Context, channelID, content string) (string, error) {
	return c.createMessage(ctx, channelID, map[string]any{"content": truncate(content)})
}

// SendReply posts a message referencing another message.
func (c *RESTClient) SendReply(ctx context.Context, channelID, replyToID, content string) (string, error) {
	return c.createMessage(ctx, channelID, map[string]any{
		"content":           truncate(content),
		"message_reference": map[string]any{"message_id": replyToID},
	})
}

// SendComponents posts a message carrying interactive components.
func (c *RESTClient) SendComponents(ctx context.Context, channelID, content string, components []Component) (string, error) {
	return c.createMessage(ctx, channelID, map[string]any{
		"content":    truncate(content),
		"components": components,
	})
}

func (c *RESTClient) createMessage(ctx context.Context, channelID string, payload map[string]any) (string, error) {
	var msg Message
	if err := c.do(ctx, http.MethodPost, "/channels/"+channelID+"/messages", payload, &msg); err != nil {
		return "", fmt.Errorf("create message: %w", err)
	}
	return msg.ID, nil
}

// EditMessage replaces the content of an existing message.
func (c *RESTClient) EditMessage(ctx context.Context, channelID, messageID, content string) error {
	err := c.do(ctx, http.MethodPatch, "/channels/"+channelID+"/messages/"+messageID,
		map[string]any{"content": truncate(content)}, nil)
	if err != nil {
		return fmt.Errorf("edit message: %w", err)
	}
	return nil
}

// EditComponents replaces the content and components of a message.
func (c *RESTClient) EditComponents(ctx context.Context, channelID, messageID, content string, components []Component) error {
	err := c.do(ctx, http.MethodPatch, "/channels/"+channelID+"/messages/"+messageID,
		map[string]any{"content": truncate(content), "components": components}, nil)
	if err != nil {
		return fmt.Errorf("edit message: %w", err)
	}
	return nil
}

// TriggerTyping starts the typing indicator in a channel.
func (c *RESTClient) TriggerTyping(ctx context.Context, channelID string) error {
	return c.do(ctx, http.MethodPost, "/channels/"+channelID+"/typing", struct{}{}, nil)
}

// OpenDM opens (or fetches) a DM channel with a user and returns its
// channel id.
func (c *RESTClient) OpenDM(ctx context.Context, userID string) (string, error) {
	var ch struct {
		ID string `json:"id"`
	}
	err := c.do(ctx, http.MethodPost, "/users/@me/channels", map[string]any{"recipient_id": userID}, &ch)
	if err != nil {
		return "", fmt.Errorf("open DM: %w", err)
	}
	return ch.ID, nil
}

// GetUser fetches a user by id.
func (c *RESTClient) GetUser(ctx context.Context, userID string) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/users/"+userID, nil, &u); err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// GetGuildMember fetches a guild member, including their role ids.
func (c *RESTClient) GetGuildMember(ctx context.Context, guildID, userID string) (*Member, error) {
	var m Member
	if err := c.do(ctx, http.MethodGet, "/guilds/"+guildID+"/members/"+userID, nil, &m); err != nil {
		return nil, fmt.Errorf("get guild member: %w", err)
	}
	return &m, nil
}

// SearchMember finds a guild member by display name prefix and returns
// their user id.
func (c *RESTClient) SearchMember(ctx context.Context, guildID, query string) (string, bool) {
	var members []Member
	path := "/guilds/" + guildID + "/members/search?query=" + url.QueryEscape(query) + "&limit=1"
	if err := c.do(ctx, http.MethodGet, path, nil, &members); err != nil {
		c.logger.Debug("member search failed", "guild_id", guildID, "query", query, "error", err)
		return "", false
	}
	if len(members) == 0 {
		return "", false
	}
	return members[0].User.ID, true
}

// HasRole reports whether a guild member carries the given role.
func (c *RESTClient) HasRole(ctx context.Context, guildID, userID, roleID string) bool {
	if guildID == "" || roleID == "" {
		return false
	}
	m, err := c.GetGuildMember(ctx, guildID, userID)
	if err != nil {
		return false
	}
	for _, r := range m.Roles {
		if r == roleID {
			return true
		}
	}
	return false
}

// AckComponentInteraction acknowledges a component click by updating
// the message in place.
func (c *RESTClient) AckComponentInteraction(ctx context.Context, interactionID, token, content string, components []Component) error {
	payload := map[string]any{
		"type": 7, // UPDATE_MESSAGE
		"data": map[string]any{
			"content":    truncate(content),
			"components": components,
		},
	}
	err := c.do(ctx, http.MethodPost, "/interactions/"+interactionID+"/"+token+"/callback", payload, nil)
	if err != nil {
		return fmt.Errorf("interaction callback: %w", err)
	}
	return nil
}

// UserName resolves a user's display name, preferring their global name
// over the raw username.
func (c *RESTClient) UserName(userID string) string {
	return c.cachedLookup("user:"+userID, func(ctx context.Context) string {
		u, err := c.GetUser(ctx, userID)
		if err != nil {
			return ""
		}
		if u.GlobalName != "" {
			return u.GlobalName
		}
		return u.Username
	})
}

// MemberNickname resolves a member's server nickname. Empty when they
// have none or the lookup fails.
func (c *RESTClient) MemberNickname(guildID, userID string) string {
	if guildID == "" {
		return ""
	}
	return c.cachedLookup("member:"+guildID+":"+userID, func(ctx context.Context) string {
		m, err := c.GetGuildMember(ctx, guildID, userID)
		if err != nil {
			return ""
		}
		return m.Nick
	})
}

// GuildName resolves a guild's name.
func (c *RESTClient) GuildName(guildID string) string {
	if guildID == "" {
		return ""
	}
	return c.cachedLookup("guild:"+guildID, func(ctx context.Context) string {
		var g struct {
			Name string `json:"name"`
		}
		if err := c.do(ctx, http.MethodGet, "/guilds/"+guildID, nil, &g); err != nil {
			return ""
		}
		return g.Name
	})
}

// ChannelName resolves a channel's name.
func (c *RESTClient) ChannelName(channelID string) string {
	return c.cachedLookup("channel:"+channelID, func(ctx context.Context) string {
		var ch struct {
			Name string `json:"name"`
		}
		if err := c.do(ctx, http.MethodGet, "/channels/"+channelID, nil, &ch); err != nil {
			return ""
		}
		return ch.Name
	})
}

func (c *RESTClient) cachedLookup(key string, fetch func(ctx context.Context) string) string {
	c.cacheMu.Lock()
	if cached, ok := c.names[key]; ok && time.Now().Before(cached.expires) {
		c.cacheMu.Unlock()
		return cached.value
	}
	c.cacheMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	value := fetch(ctx)

	if value != "" {
		c.cacheMu.Lock()
		c.names[key] = cachedName{value: value, expires: time.Now().Add(nameCacheTTL)}
		c.cacheMu.Unlock()
	}
	return value
}

func (c *RESTClient) do(ctx context.Context, method, path string, payload, out any) error {
	body := &bytes.Buffer{}
	if payload != nil {
		if err := json.NewEncoder(body).Encode(payload); err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("discord request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := httpkit.ReadErrorBody(resp.Body, 512)
		return fmt.Errorf("discord API: %s %s: status %d: %s", method, path, resp.StatusCode, msg)
	}

	if out == nil {
		httpkit.DrainAndClose(resp.Body, 4096)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode discord response: %w", err)
	}
	return nil
}

func truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= MaxMessageLength {
		return s
	}
	return string(runes[:MaxMessageLength-3]) + "..."
}

// StripMentions removes mention markup for a set of user ids, typically
// the bot's own id, so prompts don't carry raw snowflakes.
func StripMentions(content string, userIDs ...string) string {
	for _, id := range userIDs {
		content = strings.ReplaceAll(content, "<@"+id+">", "")
		content = strings.ReplaceAll(content, "<@!"+id+">", "")
	}
	return strings.TrimSpace(content)
}
