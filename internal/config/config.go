package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DiscordToken          string       `yaml:"discord_token"`
	CommandPrefix         string       `yaml:"command_prefix"`
	DatabasePath          string       `yaml:"database_path"`
	LogLevel              string       `yaml:"log_level"`
	NoticeDeleteSeconds   int          `yaml:"notice_delete_seconds"`
	CooldownSweepMinutes  int          `yaml:"cooldown_sweep_minutes"`
	RegisterSlashCommands bool         `yaml:"register_slash_commands"`
	Health                HealthConfig `yaml:"health"`
	Admin                 AdminConfig  `yaml:"admin"`
	Colors                EmbedColors  `yaml:"embed_colors"`
}

type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type AdminConfig struct {
	Enabled       bool    `yaml:"enabled"`
	Addr          string  `yaml:"addr"`
	Token         string  `yaml:"token"`
	RatePerSecond float64 `yaml:"rate_per_second"`
	RateBurst     int     `yaml:"rate_burst"`
}

type EmbedColors struct {
	Default int `yaml:"default"`
	Error   int `yaml:"error"`
}

func DefaultConfig() Config {
	return Config{
		CommandPrefix:         "!",
		DatabasePath:          "/data/herald.db",
		LogLevel:              "info",
		NoticeDeleteSeconds:   5,
		CooldownSweepMinutes:  5,
		RegisterSlashCommands: true,
		Health:                HealthConfig{Enabled: false, Addr: ":8080"},
		Admin: AdminConfig{
			Enabled:       false,
			Addr:          ":8081",
			RatePerSecond: 10,
			RateBurst:     20,
		},
		Colors: EmbedColors{
			Default: 0x5865F2,
			Error:   0xED4245,
		},
	}
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	if cfg.DiscordToken == "" {
		return Config{}, errors.New("DISCORD_TOKEN is required")
	}
	if cfg.CommandPrefix == "" {
		cfg.CommandPrefix = "!"
	}
	if cfg.NoticeDeleteSeconds <= 0 {
		cfg.NoticeDeleteSeconds = 5
	}
	if cfg.CooldownSweepMinutes <= 0 {
		cfg.CooldownSweepMinutes = 5
	}
	if cfg.Admin.Enabled && cfg.Admin.Token == "" {
		return Config{}, errors.New("ADMIN_TOKEN is required when the admin API is enabled")
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.CommandPrefix = envString("COMMAND_PREFIX", cfg.CommandPrefix)
	cfg.DatabasePath = envString("DATABASE_PATH", cfg.DatabasePath)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.NoticeDeleteSeconds = envInt("NOTICE_DELETE_SECONDS", cfg.NoticeDeleteSeconds)
	cfg.CooldownSweepMinutes = envInt("COOLDOWN_SWEEP_MINUTES", cfg.CooldownSweepMinutes)
	cfg.RegisterSlashCommands = envBool("REGISTER_SLASH_COMMANDS", cfg.RegisterSlashCommands)
	cfg.Health.Enabled = envBool("HEALTH_ENABLED", cfg.Health.Enabled)
	cfg.Health.Addr = envString("HEALTH_ADDR", cfg.Health.Addr)
	cfg.Admin.Enabled = envBool("ADMIN_ENABLED", cfg.Admin.Enabled)
	cfg.Admin.Addr = envString("ADMIN_ADDR", cfg.Admin.Addr)
	cfg.Admin.Token = envString("ADMIN_TOKEN", cfg.Admin.Token)
	cfg.Admin.RatePerSecond = envFloat("ADMIN_RATE_PER_SECOND", cfg.Admin.RatePerSecond)
	cfg.Admin.RateBurst = envInt("ADMIN_RATE_BURST", cfg.Admin.RateBurst)
	cfg.Colors.Default = envInt("EMBED_COLOR_DEFAULT", cfg.Colors.Default)
	cfg.Colors.Error = envInt("EMBED_COLOR_ERROR", cfg.Colors.Error)
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lvl := strings.ToLower(level)
	switch lvl {
	case "debug", "info", "warn", "error":
		cfg.Level = zap.NewAtomicLevelAt(parseLevel(lvl))
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "1" || lower == "true" || lower == "yes"
	}
	return fallback
}
