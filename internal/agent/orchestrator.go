// Package agent implements the generation orchestration runtime: one
// inbound utterance becomes one model call, with bounded tool use, a
// private reasoning trace, and a structured outcome on every exit path.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mheard/bobbot/internal/conversation"
	"github.com/mheard/bobbot/internal/llm"
	"github.com/mheard/bobbot/internal/settings"
	"github.com/mheard/bobbot/internal/storage"
	"github.com/mheard/bobbot/internal/tools"
)

// User-presentable messages for the non-success outcomes. The caller
// always has something to send; raw errors stay in the logs.
const (
	msgNoURL       = "My AI backend isn't configured yet. An admin needs to set the AI URL."
	msgNoModel     = "My AI model isn't configured yet. An admin needs to set the AI model."
	msgLoop        = "I'm trying to do too many things at once! I got stuck in a loop trying to find that for you. Maybe try being a bit more specific or check your spelling, mate."
	msgCancel      = "I was interrupted while thinking. Blame it on a world dc."
	msgFailed      = "I'm sorry, but something went wrong while I was thinking. Give it a tick and try again."
	msgOnlyThought = "I've thought about it, but I'm not sure how to put it into words. Could you try asking in a different way?"
	msgNoContent   = "I'm not sure how to respond to that. (Model returned no content)"
)

// FactResolver supplies live display names for the system prompt. The
// Discord client implements it; a nil resolver just degrades context.
type FactResolver interface {
	UserName(userID string) string
	MemberNickname(guildID, userID string) string
	GuildName(guildID string) string
	ChannelName(channelID string) string
}

// PersonaSource supplies the operator personality override text.
type PersonaSource interface {
	Load() string
}

// Recorder archives completed generations for operator forensics.
// Recording is best effort; failures are logged and never surface.
type Recorder interface {
	RecordGeneration(ctx context.Context, conversationID, callerID, prompt, content, reasoning string) error
}

// ClientFactory builds a model client for a normalized base URL.
// Overridable in tests and when pointing at non-HTTP fakes.
type ClientFactory func(baseURL string) llm.Client

// Orchestrator turns utterances into outcomes. It owns the lazily
// rebuilt model client and is safe for concurrent Generate calls.
type Orchestrator struct {
	logger   *slog.Logger
	registry *tools.Registry
	conv     *conversation.Store
	settings *settings.Store
	players  *storage.Store
	persona  PersonaSource
	resolver FactResolver
	recorder Recorder

	newClient ClientFactory

	clientMu  sync.Mutex
	client    llm.Client
	lastURL   string
	lastModel string
}

// Config wires an Orchestrator. Registry, Conversations, and Settings
// are required; everything else degrades gracefully when nil.
type Config struct {
	Logger        *slog.Logger
	Registry      *tools.Registry
	Conversations *conversation.Store
	Settings      *settings.Store
	Players       *storage.Store
	Persona       PersonaSource
	Resolver      FactResolver
	Recorder      Recorder
	NewClient     ClientFactory
}

// New creates an orchestrator.
func New(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		logger:    logger.With("component", "agent"),
		registry:  cfg.Registry,
		conv:      cfg.Conversations,
		settings:  cfg.Settings,
		players:   cfg.Players,
		persona:   cfg.Persona,
		resolver:  cfg.Resolver,
		recorder:  cfg.Recorder,
		newClient: cfg.NewClient,
	}
	if o.newClient == nil {
		o.newClient = func(baseURL string) llm.Client {
			return llm.NewOpenAIClient(baseURL, "", logger)
		}
	}
	return o
}

// Generate runs one end-to-end generation call. It never returns an
// error: every exit path, including cancellation, yields an Outcome the
// caller can present.
func (o *Orchestrator) Generate(ctx context.Context, req Request) Outcome {
	snap := o.settings.Snapshot()
	if snap.AIURL == "" {
		return Outcome{Kind: KindConfigMissing, Content: msgNoURL}
	}
	if snap.AIModel == "" {
		return Outcome{Kind: KindConfigMissing, Content: msgNoModel}
	}

	client := o.clientFor(snap)

	// Fresh call-scoped state. The scope rides the context into every
	// tool handler and is gone when this call returns, so nothing can
	// leak into a concurrent generation for another caller.
	scope := &tools.CallScope{CallerID: req.CallerID, GuildID: req.GuildID}
	ctx = tools.WithScope(ctx, scope)
	guard := NewLoopGuard(MaxToolCalls, MaxRepeatedCalls)
	collector := NewReasoningCollector()

	prompt := req.Prompt
	if req.ReferencedContent != "" {
		prompt = fmt.Sprintf("(Replying to: %q)\n%s", req.ReferencedContent, req.Prompt)
	}

	system := buildSystemPrompt(o.factsFor(req), o.personality())
	userMsg := llm.Message{Role: "user", Content: prompt}

	msgs := make([]llm.Message, 0, conversation.DefaultWindow+2)
	msgs = append(msgs, llm.Message{Role: "system", Content: system})
	msgs = append(msgs, o.conv.Messages(req.ChannelID)...)
	msgs = append(msgs, userMsg)

	specs := o.registry.Specs()

	o.logger.Info("generation started",
		"conversation", req.ChannelID,
		"caller", req.CallerID,
		"history", len(msgs)-2,
		"model", snap.AIModel,
	)

	var final *llm.ChatResponse
	for {
		resp, err := client.Chat(ctx, snap.AIModel, msgs, specs)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				o.logger.Warn("generation cancelled", "conversation", req.ChannelID, "error", err)
				return Outcome{Kind: KindCancelled, Content: msgCancel}
			}
			o.logger.Error("model call failed", "conversation", req.ChannelID, "error", err)
			collector.AddModelError(err)
			return Outcome{Kind: KindTransportFailed, Reasoning: collector.Drain(), Content: msgFailed}
		}

		if reasoning, ok := resp.MaybeReasoning(); ok {
			collector.AddReasoning(reasoning)
		}
		collector.CollectThink(resp.Message.Content)

		if len(resp.Message.ToolCalls) == 0 {
			final = resp
			break
		}

		msgs = append(msgs, resp.Message)
		for _, tc := range resp.Message.ToolCalls {
			name := tc.Function.Name
			args := tc.Function.Arguments

			if err := guard.Check(name, args); err != nil {
				o.logger.Warn("loop guard tripped",
					"conversation", req.ChannelID,
					"tool", name,
					"total_calls", guard.Total(),
					"error", err,
				)
				return Outcome{Kind: KindLoopAborted, Reasoning: collector.Drain(), Content: msgLoop}
			}

			collector.AddToolCall(name, args)
			result := o.registry.Dispatch(ctx, name, args)
			collector.AddToolResult(name, result)

			msgs = append(msgs, llm.Message{
				Role:       "tool",
				Content:    result,
				ToolCallID: tc.ID,
				Name:       name,
			})
		}
	}

	reasoning := collector.Drain()
	content := StripThink(final.Message.Content)
	if content == "" && reasoning != "" {
		content = msgOnlyThought
	} else if content == "" {
		content = msgNoContent
	}

	o.conv.Append(req.ChannelID, userMsg, llm.Message{Role: "assistant", Content: content})

	if o.recorder != nil {
		if err := o.recorder.RecordGeneration(ctx, req.ChannelID, req.CallerID, prompt, content, reasoning); err != nil {
			o.logger.Warn("transcript archive failed", "error", err)
		}
	}

	o.logger.Info("generation completed",
		"conversation", req.ChannelID,
		"tool_calls", guard.Total(),
		"reasoning_len", len(reasoning),
	)

	return Outcome{
		Kind:         KindCompleted,
		Reasoning:    reasoning,
		Content:      content,
		PaginationID: scope.PaginationID(),
	}
}

// clientFor returns the cached model client, rebuilding it when the
// configured endpoint or model changed since the last call.
func (o *Orchestrator) clientFor(snap settings.Settings) llm.Client {
	url := llm.NormalizeBaseURL(snap.AIURL)

	o.clientMu.Lock()
	defer o.clientMu.Unlock()
	if o.client == nil || o.lastURL != url || o.lastModel != snap.AIModel {
		o.logger.Info("building model client", "url", url, "model", snap.AIModel)
		o.client = o.newClient(url)
		o.lastURL = url
		o.lastModel = snap.AIModel
	}
	return o.client
}

func (o *Orchestrator) personality() string {
	if o.persona == nil {
		return ""
	}
	return o.persona.Load()
}

func (o *Orchestrator) factsFor(req Request) promptFacts {
	facts := promptFacts{}
	if o.players != nil {
		if rec, ok := o.players.Player(req.CallerID); ok {
			facts.LinkedName = rec.Username
		}
	}
	if o.resolver == nil {
		return facts
	}
	facts.UserName = o.resolver.UserName(req.CallerID)
	facts.ChannelName = o.resolver.ChannelName(req.ChannelID)
	if req.GuildID != "" {
		facts.GuildName = o.resolver.GuildName(req.GuildID)
		facts.Nickname = o.resolver.MemberNickname(req.GuildID, req.CallerID)
	}
	return facts
}
