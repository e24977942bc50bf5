package shared

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// env vars

const (
	// EnvNoDotEnv disables loading of the .env file.
	EnvNoDotEnv = "STUDAI_NO_DOTENV"
	// EnvConfig points to a custom config file.
	EnvConfig = "STUDAI_CONFIG"
	// EnvDir overrides the agent's data dir.
	EnvDir = "STUDAI_DIR"
	// EnvAmLog mirrors slog entries into the machine log.
	EnvAmLog = "STUDAI_AM_LOG"
	// EnvLogPrompts logs full system prompts.
	EnvLogPrompts = "STUDAI_LOG_PROMPTS"
)

type Config struct {
	Agent ConfigAgent
	Log   ConfigLog
	Debug ConfigDebug
}

type ConfigAgent struct {
	// ID is the machine id and args prefix.
	ID string
	// Label is a human-readable name.
	Label string
	// Dir keeps the DB, logs, and prompt dumps.
	Dir string
}

type ConfigLog struct {
	File       string
	Level      string
	MaxSizeMb  int
	MaxBackups int
}

type ConfigDebug struct {
	// DBGAddr is an am-dbg address to connect to.
	DBGAddr string
	// REPL starts an aRPC REPL server.
	REPL bool
}

func ConfigDefault() Config {
	return Config{
		Agent: ConfigAgent{
			ID:    "studai",
			Label: "studai",
			Dir:   "tmp",
		},
		Log: ConfigLog{
			File:       "tmp/studai.log",
			Level:      "info",
			MaxSizeMb:  10,
			MaxBackups: 3,
		},
	}
}

// NewLogger returns a JSON slog writing to a rotated file, or stdout when
// the file is empty.
func NewLogger(cfg *Config) *slog.Logger {
	var out io.Writer = os.Stdout
	if cfg.Log.File != "" {
		_ = os.MkdirAll(filepath.Dir(cfg.Log.File), 0o755)
		out = &lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    cfg.Log.MaxSizeMb,
			MaxBackups: cfg.Log.MaxBackups,
		}
	}

	level := slog.LevelInfo
	switch cfg.Log.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}))
}
