// Package config loads settings for the saldo binaries from the
// environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"saldo/internal/log"
)

type Config struct {
	// Ledger client
	LedgerURL           string
	LedgerTimeout       time.Duration
	SessionFile         string
	CategoryAliasesFile string

	// Ledger store
	Port               string
	DataBackend        string
	SQLiteDBPath       string
	TokenTTL           time.Duration
	RateLimitPerMinute int

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets mirror
	GoogleSpreadsheetID      string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
	// SheetsOwner pins the mirror to one account; empty mirrors every owner.
	SheetsOwner string

	// Logging
	LogLevel string
	LogJSON  bool
}

func Load() *Config {
	cfg := &Config{
		LedgerURL:           getEnv("LEDGER_URL", "http://localhost:8081"),
		LedgerTimeout:       getEnvDuration("LEDGER_TIMEOUT", 15*time.Second),
		SessionFile:         getEnv("SESSION_FILE", defaultSessionFile()),
		CategoryAliasesFile: getEnv("CATEGORY_ALIASES_FILE", ""),

		Port:               getEnv("PORT", "8081"),
		DataBackend:        getEnv("DATA_BACKEND", "memory"),
		SQLiteDBPath:       getEnv("SQLITE_DB_PATH", "./data/saldo.db"),
		TokenTTL:           getEnvDuration("TOKEN_TTL", 24*time.Hour),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "saldo"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_changes"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		SheetsOwner:              getEnv("GOOGLE_SHEETS_OWNER", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogJSON:  getEnvBool("LOG_JSON", false),
	}

	return cfg
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", ".saldo-session.json")
	}
	return filepath.Join(dir, "saldo", "session.json")
}

// Validate checks the settings every binary shares.
func (c *Config) Validate() error {
	return joinErrors(c.commonErrors())
}

// ValidateClient checks the settings of the command line client.
func (c *Config) ValidateClient() error {
	errors := c.commonErrors()

	if parsedURL, err := url.Parse(c.LedgerURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid ledger URL '%s': %v", c.LedgerURL, err))
	} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		errors = append(errors, fmt.Sprintf("invalid ledger URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
	}
	if c.LedgerTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid ledger timeout %v: must be positive", c.LedgerTimeout))
	}
	if c.SessionFile == "" {
		errors = append(errors, "session file path cannot be empty")
	}

	return joinErrors(errors)
}

// ValidateStore checks the settings of the ledger store server.
func (c *Config) ValidateStore() error {
	errors := c.commonErrors()

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.TokenTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid token TTL %v: must be at least 1 minute", c.TokenTTL))
	}
	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1", c.RateLimitPerMinute))
	}

	// AMQP is optional for the store
	if c.AMQPURL != "" {
		errors = append(errors, c.amqpErrors()...)
	}

	return joinErrors(errors)
}

// ValidateWorker checks the settings of the spreadsheet mirror worker.
func (c *Config) ValidateWorker() error {
	errors := c.commonErrors()

	if c.AMQPURL == "" {
		errors = append(errors, "AMQP URL is required for the worker")
	} else {
		errors = append(errors, c.amqpErrors()...)
	}

	if c.DataBackend != "sqlite" || c.SQLiteDBPath == "" {
		errors = append(errors, "the worker reads the sqlite backend: set DATA_BACKEND=sqlite and SQLITE_DB_PATH")
	}

	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "Google Spreadsheet ID is required for the worker")
	}
	hasFile := c.GoogleServiceAccountFile != ""
	hasJSON := c.GoogleServiceAccountJSON != ""
	if !hasFile && !hasJSON {
		errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided")
	}
	if hasFile {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}

	return joinErrors(errors)
}

func (c *Config) commonErrors() []string {
	var errors []string
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}
	if c.CategoryAliasesFile != "" {
		if _, err := os.Stat(c.CategoryAliasesFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("category aliases file does not exist: %s", c.CategoryAliasesFile))
		}
	}
	return errors
}

func (c *Config) amqpErrors() []string {
	var errors []string
	if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
	} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
		errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
	}
	if c.AMQPExchange == "" {
		errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
	}
	if c.AMQPQueue == "" {
		errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
	}
	return errors
}

func joinErrors(errors []string) error {
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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
