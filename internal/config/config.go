package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	CredentialsStorageDB  = "DB"
	CredentialsStorageEnv = "ENV"
)

type Config struct {
	// HTTP Server
	Port string `envconfig:"PORT" default:"7592"`

	// Local state: SQLite database and the settings file
	DataDir string `envconfig:"DATA_DIR" default:"./data"`

	// Where entity credentials live. ENV reads them from
	// FINANZE_CREDENTIALS_<ENTITY>_<FIELD>.
	CredentialsStorageMode string `envconfig:"CREDENTIALS_STORAGE_MODE" default:"DB"`

	// Preconfigured user, logged in at startup when both are set
	LoggedUsername string `envconfig:"LOGGED_USERNAME"`
	LoggedPassword string `envconfig:"LOGGED_PASSWORD"`

	// AMQP, optional. Exports run inline when unset.
	AMQPURL      string `envconfig:"AMQP_URL"`
	AMQPExchange string `envconfig:"AMQP_EXCHANGE" default:"finanze"`
	AMQPQueue    string `envconfig:"AMQP_QUEUE" default:"export_jobs"`

	// Google Sheets service account
	GoogleCredentialsFile string `envconfig:"GOOGLE_CREDENTIALS_FILE"`
	GoogleCredentialsJSON string `envconfig:"GOOGLE_CREDENTIALS_JSON"`

	// Google Sheets as a user, token saved by "finanze sheets-auth"
	GoogleOAuthClientFile string `envconfig:"GOOGLE_OAUTH_CLIENT_FILE"`
	GoogleOAuthClientJSON string `envconfig:"GOOGLE_OAUTH_CLIENT_JSON"`
	GoogleOAuthTokenFile  string `envconfig:"GOOGLE_OAUTH_TOKEN_FILE" default:"token.json"`
	GoogleOAuthTokenJSON  string `envconfig:"GOOGLE_OAUTH_TOKEN_JSON"`

	// Exchange rates
	RatesBaseURL  string        `envconfig:"RATES_BASE_URL" default:"https://api.frankfurter.app"`
	MetalsBaseURL string        `envconfig:"METALS_BASE_URL" default:"https://api.gold-api.com"`
	RatesTTL      time.Duration `envconfig:"RATES_TTL" default:"10m"`
	// Base currencies whose rates are kept
	Currencies []string `envconfig:"CURRENCIES" default:"EUR,USD"`

	// Export workers
	ExportWorkers int `envconfig:"EXPORT_WORKERS" default:"4"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads the configuration from the environment, applying defaults.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("envconfig.Process: %w", err)
	}
	return &cfg, nil
}

// DBPath is the SQLite database file under the data directory.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "finanze.db")
}

// SettingsPath is the user settings file under the data directory.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.DataDir, "config.yml")
}

// HasGoogleCredentials reports whether a service account is configured.
func (c *Config) HasGoogleCredentials() bool {
	return c.GoogleCredentialsFile != "" || c.GoogleCredentialsJSON != ""
}

// GoogleCredentials returns the service account JSON, reading the file when
// only a path is configured.
func (c *Config) GoogleCredentials() ([]byte, error) {
	if c.GoogleCredentialsJSON != "" {
		return []byte(c.GoogleCredentialsJSON), nil
	}
	b, err := os.ReadFile(c.GoogleCredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read google credentials: %w", err)
	}
	return b, nil
}

// HasGoogleOAuth reports whether an OAuth client is configured.
func (c *Config) HasGoogleOAuth() bool {
	return c.GoogleOAuthClientFile != "" || c.GoogleOAuthClientJSON != ""
}

// GoogleOAuthClient returns the OAuth client definition.
func (c *Config) GoogleOAuthClient() ([]byte, error) {
	return inlineOrFile(c.GoogleOAuthClientJSON, c.GoogleOAuthClientFile, "oauth client")
}

// GoogleOAuthToken returns the saved OAuth token.
func (c *Config) GoogleOAuthToken() ([]byte, error) {
	return inlineOrFile(c.GoogleOAuthTokenJSON, c.GoogleOAuthTokenFile, "oauth token")
}

func inlineOrFile(inline, path, what string) ([]byte, error) {
	if inline != "" {
		return []byte(inline), nil
	}
	if path == "" {
		return nil, fmt.Errorf("%s is not configured", what)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", what, err)
	}
	return b, nil
}

// Validate validates the configuration and returns an error listing every
// problem found.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.DataDir == "" {
		errors = append(errors, "data directory cannot be empty")
	} else if _, err := os.Stat(c.DataDir); os.IsNotExist(err) {
		if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
			errors = append(errors, fmt.Sprintf("cannot create data directory '%s': %v", c.DataDir, err))
		}
	}

	switch c.CredentialsStorageMode {
	case CredentialsStorageDB, CredentialsStorageEnv:
	default:
		errors = append(errors, fmt.Sprintf("invalid credentials storage mode '%s': must be one of [DB ENV]", c.CredentialsStorageMode))
	}

	if (c.LoggedUsername == "") != (c.LoggedPassword == "") {
		errors = append(errors, "LOGGED_USERNAME and LOGGED_PASSWORD must be set together")
	}

	if c.AMQPURL != "" {
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
	}

	if c.GoogleCredentialsFile != "" {
		if _, err := os.Stat(c.GoogleCredentialsFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google credentials file does not exist: %s", c.GoogleCredentialsFile))
		}
	}

	if c.GoogleOAuthClientFile != "" {
		if _, err := os.Stat(c.GoogleOAuthClientFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google OAuth client file does not exist: %s", c.GoogleOAuthClientFile))
		}
	}

	for name, raw := range map[string]string{"rates": c.RatesBaseURL, "metals": c.MetalsBaseURL} {
		if raw == "" {
			continue
		}
		if u, err := url.Parse(raw); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errors = append(errors, fmt.Sprintf("invalid %s base URL '%s'", name, raw))
		}
	}
	if len(c.Currencies) == 0 {
		errors = append(errors, "at least one currency is required")
	}
	if c.RatesTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid rates TTL %v: must be at least 1 second", c.RatesTTL))
	}

	if c.ExportWorkers < 1 || c.ExportWorkers > 64 {
		errors = append(errors, fmt.Sprintf("invalid export workers %d: must be between 1 and 64", c.ExportWorkers))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}
