// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as storage paths, inference backend parameters, transport polling,
// rate limiting, the media feature, backups, and the ops HTTP endpoint.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// OllamaConfig defines the inference backend connection.
type OllamaConfig struct {
	URL            string        // OLLAMA_URL (e.g. "http://127.0.0.1:11434")
	Model          string        // OLLAMA_MODEL (e.g. "gemma3:1b")
	ReadTimeout    time.Duration // OLLAMA_TIMEOUT: whole-request budget for one chat call
	ConnectTimeout time.Duration // OLLAMA_CONNECT_TIMEOUT: dial budget
}

// TelegramConfig defines the transport endpoint and polling behavior.
type TelegramConfig struct {
	APIBaseURL  string        // TELEGRAM_API_URL (override for self-hosted Bot API)
	PollTimeout time.Duration // POLL_TIMEOUT: long-poll window per getUpdates call
	Workers     int           // WORKERS: concurrent update handlers
}

// YouTubeConfig defines the media download feature.
type YouTubeConfig struct {
	DownloadDir string // YT_DOWNLOAD_DIR
	MaxFileMB   int    // YT_MAX_FILE_MB: transport upload guard
	DefaultMode string // YT_DEFAULT_MODE: "audio" or "video"
	BinPath     string // YT_DLP_PATH: yt-dlp executable
}

// BackupConfig defines the daily snapshot task.
type BackupConfig struct {
	Dir      string // BACKUP_DIR
	Timezone string // BACKUP_TZ: IANA zone for the 02:00 schedule
	Hour     int    // BACKUP_HOUR: local hour of day [0..23]
}

// OpsConfig defines the operational HTTP endpoint (health + metrics).
type OpsConfig struct {
	Enabled bool   // OPS_ENABLED
	Addr    string // OPS_ADDR (e.g. ":8090")
}

// Config holds all configuration values for the application.
type Config struct {
	// App
	DBPath    string // SQLite path
	TokenFile string // encrypted bot token at rest
	KeyFile   string // local encryption key (unless BOT_TOKEN_KEY is set)

	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool   // pretty console logs in dev

	// Dispatch
	Cooldown     time.Duration // per-user cooldown between handled messages
	DialogWindow int           // recent turns fed back as context
	ChunkLen     int           // max characters per outbound message chunk

	Ollama   OllamaConfig
	Telegram TelegramConfig
	YouTube  YouTubeConfig
	Backup   BackupConfig
	Ops      OpsConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// App
		DBPath:    getenv("DB_PATH", "database.db"),
		TokenFile: getenv("TOKEN_FILE", "token.txt"),
		KeyFile:   getenv("KEY_FILE", "token.key"),

		// Logging
		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		// Dispatch
		Cooldown:     getdur("RATE_LIMIT_COOLDOWN", 1500*time.Millisecond),
		DialogWindow: getint("DIALOG_WINDOW", 20),
		ChunkLen:     getint("CHUNK_LEN", 3800),

		Ollama: OllamaConfig{
			URL:            strings.TrimRight(getenv("OLLAMA_URL", "http://127.0.0.1:11434"), "/"),
			Model:          getenv("OLLAMA_MODEL", "gemma3:1b"),
			ReadTimeout:    getdur("OLLAMA_TIMEOUT", 180*time.Second),
			ConnectTimeout: getdur("OLLAMA_CONNECT_TIMEOUT", 5*time.Second),
		},
		Telegram: TelegramConfig{
			APIBaseURL:  strings.TrimRight(getenv("TELEGRAM_API_URL", "https://api.telegram.org"), "/"),
			PollTimeout: getdur("POLL_TIMEOUT", 30*time.Second),
			Workers:     getint("WORKERS", 8),
		},
		YouTube: YouTubeConfig{
			DownloadDir: getenv("YT_DOWNLOAD_DIR", "downloads"),
			MaxFileMB:   getint("YT_MAX_FILE_MB", 45),
			DefaultMode: strings.ToLower(getenv("YT_DEFAULT_MODE", "audio")),
			BinPath:     getenv("YT_DLP_PATH", "yt-dlp"),
		},
		Backup: BackupConfig{
			Dir:      getenv("BACKUP_DIR", "backups"),
			Timezone: getenv("BACKUP_TZ", "Asia/Hebron"),
			Hour:     getint("BACKUP_HOUR", 2),
		},
		Ops: OpsConfig{
			Enabled: getbool("OPS_ENABLED", false),
			Addr:    getenv("OPS_ADDR", ":8090"),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	if cfg.YouTube.DefaultMode != "audio" && cfg.YouTube.DefaultMode != "video" {
		cfg.YouTube.DefaultMode = "audio"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if cfg.Cooldown < 0 {
		return cfg, errors.New("RATE_LIMIT_COOLDOWN must be >= 0")
	}
	if cfg.DialogWindow < 1 {
		return cfg, errors.New("DIALOG_WINDOW must be >= 1")
	}
	if cfg.ChunkLen < 1 {
		return cfg, errors.New("CHUNK_LEN must be >= 1")
	}
	if cfg.Ollama.ReadTimeout <= 0 || cfg.Ollama.ConnectTimeout <= 0 {
		return cfg, errors.New("ollama timeouts must be positive durations")
	}
	if cfg.Telegram.PollTimeout <= 0 {
		return cfg, errors.New("POLL_TIMEOUT must be a positive duration")
	}
	if cfg.Telegram.Workers < 1 {
		return cfg, errors.New("WORKERS must be >= 1")
	}
	if cfg.YouTube.MaxFileMB < 1 {
		return cfg, errors.New("YT_MAX_FILE_MB must be >= 1")
	}
	if cfg.Backup.Hour < 0 || cfg.Backup.Hour > 23 {
		return cfg, errors.New("BACKUP_HOUR must be in [0,23]")
	}
	if cfg.Ops.Enabled && strings.TrimSpace(cfg.Ops.Addr) == "" {
		return cfg, errors.New("OPS_ADDR must not be empty when OPS_ENABLED")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
