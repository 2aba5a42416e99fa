package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mheard/bobbot/internal/agent"
	"github.com/mheard/bobbot/internal/discord"
	"github.com/mheard/bobbot/internal/osrs"
	"github.com/mheard/bobbot/internal/storage"
)

// listener turns gateway events into agent runs and replies. Each
// message is handled on its own goroutine; the orchestrator isolates
// concurrent callers from each other.
type listener struct {
	deps    *deps
	gateway *discord.Gateway

	mu    sync.Mutex
	botID string
}

func (l *listener) setBotID(id string) {
	l.mu.Lock()
	l.botID = id
	l.mu.Unlock()
}

func (l *listener) getBotID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.botID
}

func (l *listener) handleMessage(ev discord.MessageEvent) {
	botID := l.getBotID()
	if ev.AuthorBot || ev.AuthorID == botID {
		return
	}

	if cmd, rest, ok := parseCommand(ev.Content); ok {
		go l.handleCommand(ev, cmd, rest)
		return
	}

	if !l.shouldAnswer(ev, botID) {
		return
	}
	go l.answer(ev, botID)
}

// shouldAnswer applies the trigger rules: always answer DMs; in guilds,
// only the configured chat channel, and only when addressed by mention
// or by name.
func (l *listener) shouldAnswer(ev discord.MessageEvent, botID string) bool {
	if ev.GuildID == "" {
		return true
	}

	snap := l.deps.settings.Snapshot()
	if snap.BobsChatChannelID == "" || ev.ChannelID != snap.BobsChatChannelID {
		return false
	}

	for _, id := range ev.MentionIDs {
		if id == botID {
			return true
		}
	}
	return strings.Contains(strings.ToLower(ev.Content), "bob")
}

func (l *listener) answer(ev discord.MessageEvent, botID string) {
	d := l.deps
	ctx, cancel := context.WithTimeout(context.Background(), generateTimeout)
	defer cancel()

	prompt := discord.StripMentions(ev.Content, botID)
	if prompt == "" {
		return
	}

	if err := d.rest.TriggerTyping(ctx, ev.ChannelID); err != nil {
		d.logger.Debug("typing indicator failed", "error", err)
	}

	loadingID, err := d.rest.SendReply(ctx, ev.ChannelID, ev.ID, agent.RandomLoadingMessage())
	if err != nil {
		d.logger.Error("failed to send loading message", "channel_id", ev.ChannelID, "error", err)
		return
	}

	outcome := d.orchestrator.Generate(ctx, agent.Request{
		Prompt:            prompt,
		CallerID:          ev.AuthorID,
		ChannelID:         ev.ChannelID,
		GuildID:           ev.GuildID,
		ReferencedContent: ev.ReferencedContent,
	})

	if err := d.rest.EditMessage(ctx, ev.ChannelID, loadingID, outcome.Content); err != nil {
		d.logger.Error("failed to edit reply", "channel_id", ev.ChannelID, "error", err)
	}

	if outcome.PaginationID != "" {
		// Carry the reply text on every page so the report stays
		// readable after the page turns.
		d.pages.SetPreamble(outcome.PaginationID, outcome.Content)
		l.showReport(ctx, ev.ChannelID, outcome.PaginationID)
	}

	if outcome.Reasoning != "" {
		d.thoughts.Remember(loadingID, prompt, outcome.Reasoning, ev.AuthorID)
		d.thoughts.Deliver(ctx, prompt, outcome.Reasoning)
	}
}

func (l *listener) showReport(ctx context.Context, channelID, paginationID string) {
	d := l.deps
	session, ok := d.pages.Get(paginationID)
	if !ok {
		return
	}
	_, err := d.rest.SendComponents(ctx, channelID,
		discord.FormatPage(session), discord.PageComponents(session, paginationID))
	if err != nil {
		d.logger.Error("failed to send paginated report", "error", err)
	}
}

func (l *listener) handleInteraction(ev discord.InteractionEvent) {
	id, delta, ok := discord.ParsePageCustomID(ev.CustomID)
	if !ok {
		return
	}
	go func() {
		d := l.deps
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		session, ok := d.pages.Turn(id, delta)
		if !ok {
			d.logger.Debug("page turn for expired session", "pagination_id", id)
			return
		}
		err := d.rest.AckComponentInteraction(ctx, ev.ID, ev.Token,
			discord.FormatPage(session), discord.PageComponents(session, id))
		if err == nil {
			return
		}
		// Interaction tokens expire after a few seconds; fall back
		// to editing the report message directly.
		d.logger.Debug("interaction ack failed, editing message instead", "error", err)
		if err := d.rest.EditComponents(ctx, ev.ChannelID, ev.MessageID,
			discord.FormatPage(session), discord.PageComponents(session, id)); err != nil {
			d.logger.Error("failed to update report page", "error", err)
		}
	}()
}

// parseCommand recognizes the few prefix commands that bypass the
// model, like account linking.
func parseCommand(content string) (string, string, bool) {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "!") {
		return "", "", false
	}
	cmd, rest, _ := strings.Cut(content[1:], " ")
	return strings.ToLower(cmd), strings.TrimSpace(rest), cmd != ""
}

func (l *listener) handleCommand(ev discord.MessageEvent, cmd, rest string) {
	d := l.deps
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch cmd {
	case "link":
		l.linkAccount(ctx, ev, rest)
	case "unlink":
		if err := d.players.Upsert(ev.AuthorID, storage.PlayerRecord{}); err != nil {
			d.logger.Error("failed to unlink player", "user_id", ev.AuthorID, "error", err)
			return
		}
		l.reply(ctx, ev, "Done, your OSRS username is unlinked.")
	}
}

func (l *listener) linkAccount(ctx context.Context, ev discord.MessageEvent, username string) {
	d := l.deps

	if !osrs.IsValidUsername(username) {
		l.reply(ctx, ev, fmt.Sprintf("%q doesn't look like a valid OSRS username.", username))
		return
	}

	level, err := d.hiscores.TotalLevel(ctx, username)
	if err != nil {
		l.reply(ctx, ev, fmt.Sprintf("I couldn't find %q on the hiscores. Check the spelling and that the account is ranked.", username))
		return
	}

	rec := storage.PlayerRecord{Username: username}.WithTotalLevel(level)
	if err := d.players.Upsert(ev.AuthorID, rec); err != nil {
		d.logger.Error("failed to save player link", "user_id", ev.AuthorID, "error", err)
		l.reply(ctx, ev, "Something went wrong saving that. Try again in a bit.")
		return
	}
	l.reply(ctx, ev, fmt.Sprintf("Linked! %s is sitting at %d total. I'll remember that.", username, level))
}

func (l *listener) reply(ctx context.Context, ev discord.MessageEvent, content string) {
	if _, err := l.deps.rest.SendReply(ctx, ev.ChannelID, ev.ID, content); err != nil {
		l.deps.logger.Error("failed to send reply", "channel_id", ev.ChannelID, "error", err)
	}
}
