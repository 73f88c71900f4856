package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"stash/internal/core"
)

type Config struct {
	// HTTP server
	Port        string
	APIBasePath string
	FrontendURL string

	// Storage backend selection
	DataBackend  string
	SQLiteDBPath string
	PostgresURL  string

	// Server-side sessions
	SessionSecret    string
	SessionLifetime  time.Duration
	SessionSweep     time.Duration
	SessionCookie    string

	// Client-side session guard
	InactivityTimeout     time.Duration
	ActivityCheckInterval time.Duration
	ServerURL             string

	// Known accounts
	AccountsFile string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Sheets export worker
	ExportCron string

	// History
	HistoryLimit int
}

func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "5000"),
		APIBasePath: getEnv("API_BASE_PATH", "/api"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:8080"),

		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/stash.db"),
		PostgresURL:  getEnv("POSTGRES_URL", ""),

		SessionSecret:   getEnv("SESSION_SECRET", ""),
		SessionLifetime: getEnvDuration("SESSION_LIFETIME", 30*time.Minute),
		SessionSweep:    getEnvDuration("SESSION_SWEEP_INTERVAL", time.Minute),
		SessionCookie:   getEnv("SESSION_COOKIE", "stash_session"),

		InactivityTimeout:     getEnvDuration("INACTIVITY_TIMEOUT", 5*time.Minute),
		ActivityCheckInterval: getEnvDuration("ACTIVITY_CHECK_INTERVAL", 10*time.Second),
		ServerURL:             getEnv("SERVER_URL", "http://localhost:5000"),

		AccountsFile: getEnv("ACCOUNTS_FILE", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "stash"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "transaction_export"),

		ExportCron: getEnv("EXPORT_CRON", "0 0 3 * * *"),

		HistoryLimit: getEnvInt("HISTORY_LIMIT", 50),
	}
}

// Validate checks the configuration and returns every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errs = append(errs, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errs = append(errs, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	case "postgres":
		if c.PostgresURL == "" {
			errs = append(errs, "POSTGRES_URL is required when using postgres backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of [sqlite postgres]", c.DataBackend))
	}

	if c.SessionSecret == "" {
		errs = append(errs, "SESSION_SECRET must be set")
	}
	if c.SessionLifetime < time.Minute {
		errs = append(errs, fmt.Sprintf("invalid session lifetime %v: must be at least 1 minute", c.SessionLifetime))
	}
	if c.InactivityTimeout < 10*time.Second {
		errs = append(errs, fmt.Sprintf("invalid inactivity timeout %v: must be at least 10 seconds", c.InactivityTimeout))
	}
	if c.ActivityCheckInterval < time.Second {
		errs = append(errs, fmt.Sprintf("invalid activity check interval %v: must be at least 1 second", c.ActivityCheckInterval))
	}

	if c.AMQPURL != "" {
		if parsed, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsed.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.HistoryLimit < 1 || c.HistoryLimit > 1000 {
		errs = append(errs, fmt.Sprintf("invalid history limit %d: must be between 1 and 1000", c.HistoryLimit))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

type accountsFile struct {
	Accounts []string `yaml:"accounts"`
}

// Accounts returns the known account set. When no accounts file is
// configured the built-in defaults apply.
func (c *Config) Accounts() ([]string, error) {
	if c.AccountsFile == "" {
		return core.DefaultAccounts, nil
	}
	raw, err := os.ReadFile(c.AccountsFile)
	if err != nil {
		return nil, fmt.Errorf("read accounts file: %w", err)
	}
	var f accountsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse accounts file: %w", err)
	}
	var accounts []string
	for _, name := range f.Accounts {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			accounts = append(accounts, trimmed)
		}
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("accounts file %s lists no accounts", c.AccountsFile)
	}
	return accounts, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
