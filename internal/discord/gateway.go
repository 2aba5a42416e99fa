package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const defaultGatewayURL = "wss://gateway.discord.gg/?v=10&encoding=json"

// Gateway intents: guilds, guild messages, direct messages, message
// content.
const defaultIntents = 1 | (1 << 9) | (1 << 12) | (1 << 15)

// Gateway opcodes.
const (
	opDispatch       = 0
	opHeartbeat      = 1
	opIdentify       = 2
	opPresenceUpdate = 3
	opReconnect      = 7
	opInvalidSession = 9
	opHello          = 10
	opHeartbeatAck   = 11
)

// MessageEvent is a MESSAGE_CREATE dispatch reduced to what the bot
// cares about.
type MessageEvent struct {
	ID                string
	ChannelID         string
	GuildID           string
	AuthorID          string
	AuthorName        string
	AuthorBot         bool
	Content           string
	MentionIDs        []string
	ReferencedContent string
}

// InteractionEvent is an INTERACTION_CREATE dispatch for a message
// component click.
type InteractionEvent struct {
	ID        string
	Token     string
	CustomID  string
	ChannelID string
	GuildID   string
	MessageID string
	UserID    string
}

// Handlers receives gateway dispatches. Handlers run on the read loop
// goroutine; anything slow should hand off.
type Handlers struct {
	OnReady       func(botUserID string)
	OnMessage     func(ev MessageEvent)
	OnInteraction func(ev InteractionEvent)
}

// Gateway maintains the Discord gateway connection: identify,
// heartbeat, dispatch, and reconnect with backoff.
type Gateway struct {
	token    string
	url      string
	intents  int
	handlers Handlers
	logger   *slog.Logger

	connMu sync.Mutex
	conn   *websocket.Conn

	seqMu sync.Mutex
	seq   *int64
}

type gatewayPayload struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d"`
	S  *int64          `json:"s"`
	T  string          `json:"t"`
}

// NewGateway creates a gateway client. An empty url uses the public
// gateway.
func NewGateway(token, url string, handlers Handlers, logger *slog.Logger) *Gateway {
	if url == "" {
		url = defaultGatewayURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		token:    token,
		url:      url,
		intents:  defaultIntents,
		handlers: handlers,
		logger:   logger.With("component", "gateway"),
	}
}

// A connection that survives this long counts as healthy; the next
// reconnect starts from the minimum backoff again.
const stableConnection = time.Minute

// Run connects and serves dispatches until ctx is cancelled,
// reconnecting with exponential backoff on failure.
func (g *Gateway) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		start := time.Now()
		err := g.connectAndServe(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		backoff = nextBackoff(backoff, time.Since(start))
		g.logger.Warn("gateway connection lost, reconnecting", "error", err, "backoff", backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff + time.Duration(rand.IntN(1000))*time.Millisecond):
		}
	}
}

// nextBackoff doubles the delay on rapid failures, capped at a minute.
// A connection that stayed up past stableConnection resets the ladder
// so one blip after hours of uptime does not wait a full minute.
func nextBackoff(cur, connectedFor time.Duration) time.Duration {
	if connectedFor >= stableConnection {
		return time.Second
	}
	next := cur * 2
	if next > time.Minute {
		next = time.Minute
	}
	return next
}

// UpdatePresence sets the bot's status ("online", "idle", "dnd",
// "invisible").
func (g *Gateway) UpdatePresence(status string) error {
	return g.send(map[string]any{
		"op": opPresenceUpdate,
		"d": map[string]any{
			"since":      nil,
			"activities": []any{},
			"status":     status,
			"afk":        false,
		},
	})
}

func (g *Gateway) connectAndServe(ctx context.Context) error {
	g.logger.Info("connecting to Discord gateway", "url", g.url)

	dialer := websocket.Dialer{
		ReadBufferSize:  64 * 1024,
		WriteBufferSize: 16 * 1024,
	}
	conn, _, err := dialer.DialContext(ctx, g.url, nil)
	if err != nil {
		return fmt.Errorf("dial gateway: %w", err)
	}
	defer conn.Close()

	g.connMu.Lock()
	g.conn = conn
	g.connMu.Unlock()

	// Hello carries the heartbeat interval.
	var hello gatewayPayload
	if err := conn.ReadJSON(&hello); err != nil {
		return fmt.Errorf("read hello: %w", err)
	}
	if hello.Op != opHello {
		return fmt.Errorf("expected hello, got op %d", hello.Op)
	}
	var helloData struct {
		HeartbeatInterval int `json:"heartbeat_interval"`
	}
	if err := json.Unmarshal(hello.D, &helloData); err != nil {
		return fmt.Errorf("decode hello: %w", err)
	}

	if err := g.identify(); err != nil {
		return err
	}

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go g.heartbeatLoop(hbCtx, time.Duration(helloData.HeartbeatInterval)*time.Millisecond)

	return g.readLoop(ctx, conn)
}

func (g *Gateway) identify() error {
	return g.send(map[string]any{
		"op": opIdentify,
		"d": map[string]any{
			"token":   g.token,
			"intents": g.intents,
			"properties": map[string]string{
				"os":      "linux",
				"browser": "bobbot",
				"device":  "bobbot",
			},
		},
	})
}

func (g *Gateway) heartbeatLoop(ctx context.Context, interval time.Duration) {
	// First heartbeat goes out after a random fraction of the interval,
	// as the gateway documentation asks.
	timer := time.NewTimer(time.Duration(rand.Int64N(int64(interval))))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if err := g.sendHeartbeat(); err != nil {
				g.logger.Debug("heartbeat failed", "error", err)
				return
			}
			timer.Reset(interval)
		}
	}
}

func (g *Gateway) sendHeartbeat() error {
	g.seqMu.Lock()
	seq := g.seq
	g.seqMu.Unlock()
	return g.send(map[string]any{"op": opHeartbeat, "d": seq})
}

func (g *Gateway) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		var payload gatewayPayload
		if err := conn.ReadJSON(&payload); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return fmt.Errorf("gateway closed: %w", err)
			}
			return fmt.Errorf("gateway read: %w", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if payload.S != nil {
			g.seqMu.Lock()
			g.seq = payload.S
			g.seqMu.Unlock()
		}

		switch payload.Op {
		case opDispatch:
			g.dispatch(payload.T, payload.D)
		case opHeartbeat:
			if err := g.sendHeartbeat(); err != nil {
				return err
			}
		case opReconnect:
			return fmt.Errorf("gateway requested reconnect")
		case opInvalidSession:
			return fmt.Errorf("gateway invalidated session")
		case opHeartbeatAck:
			// keepalive acknowledged
		default:
			g.logger.Debug("unhandled gateway op", "op", payload.Op)
		}
	}
}

func (g *Gateway) dispatch(event string, data json.RawMessage) {
	switch event {
	case "READY":
		var ready struct {
			User User `json:"user"`
		}
		if err := json.Unmarshal(data, &ready); err != nil {
			g.logger.Error("decode READY", "error", err)
			return
		}
		g.logger.Info("gateway ready", "bot_user_id", ready.User.ID, "username", ready.User.Username)
		if g.handlers.OnReady != nil {
			g.handlers.OnReady(ready.User.ID)
		}

	case "MESSAGE_CREATE":
		var msg struct {
			ID        string `json:"id"`
			ChannelID string `json:"channel_id"`
			GuildID   string `json:"guild_id"`
			Content   string `json:"content"`
			Author    User   `json:"author"`
			Mentions  []User `json:"mentions"`
			Reference *struct {
				Content string `json:"content"`
			} `json:"referenced_message"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			g.logger.Error("decode MESSAGE_CREATE", "error", err)
			return
		}
		if g.handlers.OnMessage == nil {
			return
		}
		ev := MessageEvent{
			ID:         msg.ID,
			ChannelID:  msg.ChannelID,
			GuildID:    msg.GuildID,
			AuthorID:   msg.Author.ID,
			AuthorName: msg.Author.Username,
			AuthorBot:  msg.Author.Bot,
			Content:    msg.Content,
		}
		for _, m := range msg.Mentions {
			ev.MentionIDs = append(ev.MentionIDs, m.ID)
		}
		if msg.Reference != nil {
			ev.ReferencedContent = msg.Reference.Content
		}
		g.handlers.OnMessage(ev)

	case "INTERACTION_CREATE":
		var in struct {
			ID        string `json:"id"`
			Token     string `json:"token"`
			Type      int    `json:"type"`
			ChannelID string `json:"channel_id"`
			GuildID   string `json:"guild_id"`
			Data      struct {
				CustomID string `json:"custom_id"`
			} `json:"data"`
			Message struct {
				ID string `json:"id"`
			} `json:"message"`
			Member *struct {
				User User `json:"user"`
			} `json:"member"`
			User *User `json:"user"`
		}
		if err := json.Unmarshal(data, &in); err != nil {
			g.logger.Error("decode INTERACTION_CREATE", "error", err)
			return
		}
		// Only component interactions carry a custom_id.
		if in.Type != 3 || g.handlers.OnInteraction == nil {
			return
		}
		ev := InteractionEvent{
			ID:        in.ID,
			Token:     in.Token,
			CustomID:  in.Data.CustomID,
			ChannelID: in.ChannelID,
			GuildID:   in.GuildID,
			MessageID: in.Message.ID,
		}
		if in.Member != nil {
			ev.UserID = in.Member.User.ID
		} else if in.User != nil {
			ev.UserID = in.User.ID
		}
		g.handlers.OnInteraction(ev)

	default:
		g.logger.Debug("unhandled gateway event", "event", event)
	}
}

func (g *Gateway) send(v any) error {
	g.connMu.Lock()
	defer g.connMu.Unlock()
	if g.conn == nil {
		return fmt.Errorf("gateway not connected")
	}
	return g.conn.WriteJSON(v)
}
