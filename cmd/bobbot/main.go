// Bobbot is an OSRS-flavored Discord chat agent.
//
// It connects to the Discord gateway, listens in its chat channel and
// in DMs, and answers with an LLM that can call game data tools: item
// prices, hiscores, quests, slayer tasks, and wiki lookups.
// Configuration is loaded from a single YAML file discovered
// automatically (see [config.DefaultSearchPaths]).
//
// Usage:
//
//	bobbot serve             Connect to Discord and start answering
//	bobbot ask <question>    Ask a single question (for testing)
//	bobbot history [count]   Show recent archived replies
//	bobbot version           Print version and build information
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mheard/bobbot/examples"
	"github.com/mheard/bobbot/internal/agent"
	"github.com/mheard/bobbot/internal/archive"
	"github.com/mheard/bobbot/internal/bobtools"
	"github.com/mheard/bobbot/internal/buildinfo"
	"github.com/mheard/bobbot/internal/config"
	"github.com/mheard/bobbot/internal/conversation"
	"github.com/mheard/bobbot/internal/discord"
	"github.com/mheard/bobbot/internal/health"
	"github.com/mheard/bobbot/internal/osrs"
	"github.com/mheard/bobbot/internal/pagination"
	"github.com/mheard/bobbot/internal/persona"
	"github.com/mheard/bobbot/internal/settings"
	"github.com/mheard/bobbot/internal/storage"
	"github.com/mheard/bobbot/internal/thoughts"
	"github.com/mheard/bobbot/internal/tools"
	"github.com/mheard/bobbot/internal/wiki"
)

// Replies wait at most this long for the model and its tool calls.
const generateTimeout = 5 * time.Minute

func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point. OS-level dependencies are injected so
// the lifecycle can be driven from tests.
func run(ctx context.Context, stdout, stderr io.Writer, args []string) error {
	var configPath string
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			if command != "" {
				cmdArgs = append(cmdArgs, args[i])
			}
		}
	}

	switch command {
	case "", "serve":
		return serve(ctx, stdout, configPath)
	case "ask":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("usage: bobbot ask <question>")
		}
		return ask(ctx, stdout, configPath, strings.Join(cmdArgs, " "))
	case "history":
		limit := 0
		if len(cmdArgs) > 0 {
			n, err := strconv.Atoi(cmdArgs[0])
			if err != nil || n <= 0 {
				return fmt.Errorf("usage: bobbot history [count]")
			}
			limit = n
		}
		return history(ctx, stdout, configPath, limit)
	case "init":
		dir := "."
		if len(cmdArgs) > 0 {
			dir = cmdArgs[0]
		}
		return initDir(stdout, dir)
	case "version":
		fmt.Fprintln(stdout, buildinfo.String())
		return nil
	default:
		return fmt.Errorf("unknown command %q (try -help)", command)
	}
}

func printUsage(w io.Writer) error {
	fmt.Fprint(w, `bobbot - OSRS Discord chat agent

Usage:
  bobbot [serve]           Connect to Discord and start answering
  bobbot init [dir]        Initialize a working directory with defaults
  bobbot ask <question>    Ask a single question (for testing)
  bobbot history [count]   Show recent archived replies
  bobbot version           Print version and build information

Flags:
  -config <path>           Config file (default: search standard paths)
`)
	return nil
}

// deps holds everything serve and ask share.
type deps struct {
	cfg          *config.Config
	logger       *slog.Logger
	settings     *settings.Store
	players      *storage.Store
	pages        *pagination.Bridge
	orchestrator *agent.Orchestrator
	archive      *archive.Store
	rest         *discord.RESTClient
	thoughts     *thoughts.Service
	hiscores     *osrs.HiscoreClient
}

func build(configPath string, logger *slog.Logger, withDiscord bool) (*deps, error) {
	cfgPath, err := config.FindConfig(configPath)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", cfgPath, err)
	}
	logger.Info("loaded configuration", "path", cfgPath)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	settingsStore, err := settings.NewStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	archiveStore, err := archive.NewStore(cfg.ArchiveDB)
	if err != nil {
		return nil, err
	}

	players := storage.NewStore(cfg.DataDir)
	pages := pagination.NewBridge(logger)
	personaLoader := persona.NewLoader(cfg.DataDir, cfg.PersonaFile, logger)
	hiscores := osrs.NewHiscoreClient("")
	items := osrs.NewItemClient("", logger)
	gameData := osrs.NewAPIClient(cfg.GameData.BaseURL, logger)
	wikiSvc := wiki.New(gameData, logger)

	var rest *discord.RESTClient
	if withDiscord {
		rest = discord.NewRESTClient(cfg.Discord.Token, "", logger)
	}

	// The stored admin list works anywhere, including DMs; the role
	// check needs a guild and only applies inside one.
	isAdmin := func(ctx context.Context, userID string) bool {
		if userID == cfg.Discord.SuperuserID {
			return true
		}
		if settingsStore.Snapshot().IsAdminUser(userID) {
			return true
		}
		if rest == nil {
			return false
		}
		scope := tools.ScopeFrom(ctx)
		if scope == nil || scope.GuildID == "" {
			return false
		}
		return rest.HasRole(ctx, scope.GuildID, userID, settingsStore.Snapshot().AdminRoleID)
	}

	registry := tools.NewRegistry(logger)
	bobtools.Register(registry, bobtools.Deps{
		Logger:   logger,
		Settings: settingsStore,
		Players:  players,
		Items:    items,
		GameData: gameData,
		Wiki:     wikiSvc,
		Persona:  personaLoader,
		Pages:    pages,
		Archive:  archiveStore,
		IsAdmin:  isAdmin,
		LookupUser: func(ctx context.Context, guildID, name string) (string, bool) {
			if rest == nil {
				return "", false
			}
			return rest.SearchMember(ctx, guildID, name)
		},
		UserName: func(ctx context.Context, userID string) string {
			if rest == nil {
				return ""
			}
			return rest.UserName(userID)
		},
		// Exit after a short grace period so the goodbye reply
		// reaches Discord before the process dies.
		Exit: func(code int) {
			go func() {
				time.Sleep(2 * time.Second)
				logger.Info("exiting on tool request", "code", code)
				os.Exit(code)
			}()
		},
	})

	var resolver agent.FactResolver
	var messenger thoughts.Messenger
	if rest != nil {
		resolver = rest
		messenger = rest
	}

	orch := agent.New(agent.Config{
		Logger:        logger,
		Registry:      registry,
		Conversations: conversation.NewStore(conversation.DefaultWindow),
		Settings:      settingsStore,
		Players:       players,
		Persona:       personaLoader,
		Resolver:      resolver,
		Recorder:      archiveStore,
	})

	cache := thoughts.NewCache(thoughts.DefaultCacheSize)
	thoughtSvc := thoughts.NewService(cache, messenger, settingsStore, cfg.Discord.SuperuserID, isAdmin, logger)

	return &deps{
		cfg:          cfg,
		logger:       logger,
		settings:     settingsStore,
		players:      players,
		pages:        pages,
		orchestrator: orch,
		archive:      archiveStore,
		rest:         rest,
		thoughts:     thoughtSvc,
		hiscores:     hiscores,
	}, nil
}

func serve(ctx context.Context, stdout io.Writer, configPath string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := newLogger(stdout, slog.LevelInfo)
	d, err := build(configPath, logger, true)
	if err != nil {
		return err
	}
	defer d.archive.Close()

	if lvl, err := config.ParseLogLevel(d.cfg.LogLevel); err == nil && d.cfg.LogLevel != "" {
		logger = newLogger(stdout, lvl)
		d.logger = logger
	}

	if d.cfg.Discord.Token == "" {
		return errors.New("discord token is not configured")
	}

	healthServer := health.NewServer(d.cfg.Health.Address, d.cfg.Health.Port, logger)
	go func() {
		if err := healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("health server failed", "error", err)
		}
	}()

	bot := &listener{deps: d}
	gateway := discord.NewGateway(d.cfg.Discord.Token, "", discord.Handlers{
		OnReady: func(botUserID string) {
			bot.setBotID(botUserID)
			healthServer.SetReady(true)
			if status := d.settings.Snapshot().Status; status != "" {
				if err := bot.gateway.UpdatePresence(status); err != nil {
					logger.Warn("failed to set presence", "error", err)
				}
			}
		},
		OnMessage:     bot.handleMessage,
		OnInteraction: bot.handleInteraction,
	}, logger)
	bot.gateway = gateway

	logger.Info("starting bobbot", "version", buildinfo.Version)
	err = gateway.Run(ctx)

	healthServer.SetReady(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if serr := healthServer.Shutdown(shutdownCtx); serr != nil {
		logger.Warn("health server shutdown", "error", serr)
	}

	if errors.Is(err, context.Canceled) {
		logger.Info("shutdown complete")
		return nil
	}
	return err
}

func ask(ctx context.Context, stdout io.Writer, configPath, question string) error {
	logger := newLogger(io.Discard, slog.LevelWarn)
	d, err := build(configPath, logger, false)
	if err != nil {
		return err
	}
	defer d.archive.Close()

	ctx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	outcome := d.orchestrator.Generate(ctx, agent.Request{
		Prompt:    question,
		CallerID:  d.cfg.Discord.SuperuserID,
		ChannelID: "cli",
	})
	fmt.Fprintln(stdout, outcome.Content)
	if outcome.Reasoning != "" {
		fmt.Fprintf(stdout, "\n--- reasoning ---\n%s\n", outcome.Reasoning)
	}
	return nil
}

// history prints the newest archived generations, most recent first.
func history(ctx context.Context, stdout io.Writer, configPath string, limit int) error {
	logger := newLogger(io.Discard, slog.LevelWarn)
	d, err := build(configPath, logger, false)
	if err != nil {
		return err
	}
	defer d.archive.Close()

	records, err := d.archive.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(stdout, "No archived replies yet.")
		return nil
	}
	for _, rec := range records {
		fmt.Fprintf(stdout, "[%s] %s in %s\n", rec.Timestamp.Format(time.RFC3339), rec.CallerID, rec.ConversationID)
		fmt.Fprintf(stdout, "  Q: %s\n", rec.Prompt)
		fmt.Fprintf(stdout, "  A: %s\n", rec.Content)
	}
	return nil
}

// initDir seeds a working directory with the example config and
// personality files. Existing files are never overwritten.
func initDir(stdout io.Writer, dir string) error {
	if err := os.MkdirAll(filepath.Join(dir, "data"), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	files := map[string][]byte{
		filepath.Join(dir, "config.yaml"):            examples.ConfigYAML,
		filepath.Join(dir, "data", "personality.md"): examples.PersonalityMD,
	}
	for path, content := range files {
		if _, err := os.Stat(path); err == nil {
			fmt.Fprintf(stdout, "skipping %s (already exists)\n", path)
			continue
		}
		if err := os.WriteFile(path, content, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Fprintf(stdout, "created %s\n", path)
	}

	fmt.Fprintln(stdout, "\nEdit config.yaml, set DISCORD_TOKEN, then run: bobbot serve")
	return nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}))
}
