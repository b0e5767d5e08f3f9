// Command daddygpt runs the Telegram chat bot: long-polling dispatch,
// Ollama-backed replies, admin tooling, and the daily backup task.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"daddygpt/internal/backup"
	"daddygpt/internal/bot"
	"daddygpt/internal/config"
	"daddygpt/internal/feature"
	"daddygpt/internal/feature/youtube"
	"daddygpt/internal/ollama"
	"daddygpt/internal/opsserver"
	"daddygpt/internal/secrets"
	"daddygpt/internal/store"
	"daddygpt/internal/sysutil"
	"daddygpt/internal/telegram"
)

func main() {
	_ = godotenv.Load()
	cfg := config.MustLoad()
	sysutil.SetupLogging(cfg.LogLevel, cfg.LogPretty)

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}

	token, err := loadToken(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("bot token unavailable")
	}
	if err := bootstrapAdmins(st); err != nil {
		log.Fatal().Err(err).Msg("admin bootstrap failed")
	}

	registry := feature.NewRegistry(st)
	if yt, err := youtube.New(cfg.YouTube); err != nil {
		registry.AddLoadError("youtube", err)
		log.Warn().Err(err).Msg("youtube feature unavailable")
	} else {
		registry.Register(yt)
	}
	if err := registry.Sync(); err != nil {
		log.Fatal().Err(err).Msg("feature sync failed")
	}

	// The HTTP timeout must outlast the long-poll window.
	tg := telegram.NewClient(
		&http.Client{Timeout: cfg.Telegram.PollTimeout + 15*time.Second},
		cfg.Telegram.APIBaseURL, token)
	llm := ollama.New(cfg.Ollama.URL, cfg.Ollama.Model,
		cfg.Ollama.ConnectTimeout, cfg.Ollama.ReadTimeout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Validates the token before anything else starts.
	me, err := tg.GetMe(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("getMe failed, check the bot token")
	}

	sched, err := backup.NewScheduler(st, tg, cfg.Backup.Dir, cfg.Backup.Timezone, cfg.Backup.Hour)
	if err != nil {
		log.Fatal().Err(err).Msg("backup scheduler init failed")
	}
	go sched.Run(ctx)

	if cfg.Ops.Enabled {
		status := &opsserver.Status{
			BotUsername: me.Username,
			Model:       llm.Model(),
			StartedAt:   time.Now(),
		}
		go opsserver.New(cfg.Ops.Addr, st, status).Start(ctx)
	}

	b := bot.New(cfg, st, tg, llm, registry)
	if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("bot stopped")
	}
	log.Info().Msg("shutdown complete")
}

// loadToken resolves the bot token: environment first, then the encrypted
// file at rest, and on a true first run an interactive prompt. Whatever the
// source, the token ends up encrypted on disk for the next start.
func loadToken(cfg config.Config) (string, error) {
	keeper := secrets.NewKeeper(cfg.TokenFile, cfg.KeyFile)

	if env := strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN")); env != "" {
		if err := keeper.Save(env); err != nil {
			return "", err
		}
		return env, nil
	}

	token, err := keeper.Load()
	if err != nil {
		return "", err
	}
	if token != "" {
		return token, nil
	}

	fmt.Print("Bot token: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && strings.TrimSpace(line) == "" {
		return "", err
	}
	token = strings.TrimSpace(line)
	if token == "" {
		return "", errors.New("empty bot token")
	}
	if err := keeper.Save(token); err != nil {
		return "", err
	}
	return token, nil
}

// bootstrapAdmins seeds the admin table on first run, from ADMIN_IDS or an
// interactive prompt. With admins already present it does nothing.
func bootstrapAdmins(st *store.Store) error {
	n, err := st.AdminCount()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	ids := sysutil.ParseIDList(os.Getenv("ADMIN_IDS"))
	if len(ids) == 0 {
		fmt.Print("Admin user IDs (comma separated): ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && strings.TrimSpace(line) == "" {
			return err
		}
		ids = sysutil.ParseIDList(line)
	}
	if len(ids) == 0 {
		return errors.New("at least one admin id is required")
	}
	for _, id := range ids {
		if err := st.AddAdmin(id); err != nil {
			return err
		}
	}
	log.Info().Ints64("admins", ids).Msg("seeded admins")
	return nil
}
