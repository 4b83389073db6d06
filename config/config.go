package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Profile-management API (the local browser orchestrator)
	ProfileAPI ProfileAPIConfig

	// Wallet extension
	Wallet WalletConfig

	// Target site URLs
	Site SiteConfig

	// Batch runner tuning
	Runner RunnerConfig

	// Completion ledger
	Ledger LedgerConfig

	// Account source file
	Accounts AccountsConfig

	// Control server (log stream + stop switch)
	Control ControlConfig

	// Discord run notifications
	Discord DiscordConfig
}

// ProfileAPIConfig holds the browser profile orchestrator API settings.
type ProfileAPIConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// WalletConfig holds wallet-extension settings.
type WalletConfig struct {
	Password string
	// PopupURL is the extension's internal popup page.
	PopupURL string
}

// SiteConfig holds the target site's page URLs.
type SiteConfig struct {
	MarketURL string
	HomeURL   string
	TasksURL  string
}

// RunnerConfig holds batch execution settings.
type RunnerConfig struct {
	Threads       int
	SubmitSpacing time.Duration // delay between worker submissions
	StallTimeout  time.Duration // max time without progress per account run
	ResetHour     int           // local hour at which the daily cycle resets
}

// LedgerConfig holds completion ledger settings.
type LedgerConfig struct {
	Path string
}

// AccountsConfig holds the account source file settings.
type AccountsConfig struct {
	Path string
}

// ControlConfig holds the control/log-stream server settings.
type ControlConfig struct {
	Enabled bool
	Port    int
}

// DiscordConfig holds Discord notification settings.
type DiscordConfig struct {
	BotToken  string
	ChannelID string
}

// Defaults returns a config with hardcoded default values.
func Defaults() *Config {
	return &Config{
		ProfileAPI: ProfileAPIConfig{
			BaseURL: "http://127.0.0.1:50325",
			Timeout: 60 * time.Second,
		},
		Wallet: WalletConfig{
			PopupURL: "chrome-extension://mcohilncbfahbmgdjkbpemcciiolgcge/popup.html",
		},
		Site: SiteConfig{
			MarketURL: "https://hub.aixcrypto.ai/#prediction-market",
			HomeURL:   "https://hub.aixcrypto.ai/#home",
			TasksURL:  "https://hub.aixcrypto.ai/#tasks",
		},
		Runner: RunnerConfig{
			Threads:       1,
			SubmitSpacing: 3 * time.Second,
			StallTimeout:  900 * time.Second,
			ResetHour:     8,
		},
		Ledger: LedgerConfig{
			Path: "completed_tasks.json",
		},
		Accounts: AccountsConfig{
			Path: "accounts.csv",
		},
		Control: ControlConfig{
			Enabled: false,
			Port:    8080,
		},
		Discord: DiscordConfig{},
	}
}

// Load loads configuration from environment variables with defaults.
func Load() *Config {
	d := Defaults()
	return &Config{
		ProfileAPI: ProfileAPIConfig{
			BaseURL: envString("PROFILE_API_BASE_URL", d.ProfileAPI.BaseURL),
			APIKey:  envString("PROFILE_API_KEY", ""),
			Timeout: envDuration("PROFILE_API_TIMEOUT", d.ProfileAPI.Timeout),
		},
		Wallet: WalletConfig{
			Password: envString("WALLET_PASSWORD", ""),
			PopupURL: envString("WALLET_POPUP_URL", d.Wallet.PopupURL),
		},
		Site: SiteConfig{
			MarketURL: envString("SITE_MARKET_URL", d.Site.MarketURL),
			HomeURL:   envString("SITE_HOME_URL", d.Site.HomeURL),
			TasksURL:  envString("SITE_TASKS_URL", d.Site.TasksURL),
		},
		Runner: RunnerConfig{
			Threads:       envInt("RUNNER_THREADS", d.Runner.Threads),
			SubmitSpacing: envDuration("RUNNER_SUBMIT_SPACING", d.Runner.SubmitSpacing),
			StallTimeout:  envDuration("RUNNER_STALL_TIMEOUT", d.Runner.StallTimeout),
			ResetHour:     envInt("RUNNER_RESET_HOUR", d.Runner.ResetHour),
		},
		Ledger: LedgerConfig{
			Path: envString("LEDGER_FILE", d.Ledger.Path),
		},
		Accounts: AccountsConfig{
			Path: envString("ACCOUNTS_FILE", d.Accounts.Path),
		},
		Control: ControlConfig{
			Enabled: envBool("CONTROL_SERVER_ENABLED", d.Control.Enabled),
			Port:    envInt("CONTROL_SERVER_PORT", d.Control.Port),
		},
		Discord: DiscordConfig{
			BotToken:  envString("DISCORD_BOT_TOKEN", ""),
			ChannelID: envString("DISCORD_CHANNEL_ID", ""),
		},
	}
}

// Helper functions for parsing environment variables

func envString(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	return strings.EqualFold(v, "true") || strings.EqualFold(v, "1") || strings.EqualFold(v, "yes")
}
