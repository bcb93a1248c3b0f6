// Package config provides environment-variable-first configuration loading
// with optional YAML file fallback for the mailjet-send CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/shineum/mailjet-transport/internal/mailjet"
)

// Provider names accepted in Config.Provider.
const (
	ProviderMailjet = "mailjet"
	ProviderSES     = "ses"
	ProviderStdout  = "stdout"
)

// Config holds the complete application configuration.
type Config struct {
	// Provider selects the delivery backend. Empty means auto-detect from
	// the configured credentials.
	Provider string        `yaml:"provider" validate:"omitempty,oneof=mailjet ses stdout"`
	Mailjet  MailjetConfig `yaml:"mailjet"`
	SES      SESConfig     `yaml:"ses"`
	Logging  LoggingConfig `yaml:"logging"`
}

// MailjetConfig holds Mailjet API credentials and endpoint settings.
type MailjetConfig struct {
	APIKey    string        `yaml:"api_key"`
	APISecret string        `yaml:"api_secret"`
	Version   string        `yaml:"version" validate:"omitempty,oneof=v3 v3.1"`
	URL       string        `yaml:"url"`
	Call      bool          `yaml:"call"`
	Insecure  bool          `yaml:"insecure"`
	Timeout   time.Duration `yaml:"timeout" validate:"gte=0"`
}

// SESConfig holds AWS SES v2 configuration.
type SESConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Sender          string `yaml:"sender"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// Load loads configuration from environment variables with sensible defaults.
// A .env file in the working directory is read first; variables already set
// in the environment win over it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnvVars()
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file as the base layer,
// then overrides with environment variables. Returns an error if the
// specified file path does not exist.
func LoadFromFile(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.applyDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Environment variables always override YAML values
	cfg.applyEnvVars()

	return cfg, nil
}

// Validate checks field values and that the selected provider has the
// credentials it needs.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s=%s)", fe.Namespace(), fe.Tag(), fe.Param()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	switch c.Provider {
	case ProviderMailjet:
		if !c.MailjetConfigured() {
			return errors.New("invalid config: mailjet provider requires api key and secret")
		}
	case ProviderSES:
		if !c.SESConfigured() {
			return errors.New("invalid config: ses provider requires a region")
		}
	}
	return nil
}

// MailjetConfigured returns true if both Mailjet credentials are set.
func (c *Config) MailjetConfigured() bool {
	return c.Mailjet.APIKey != "" && c.Mailjet.APISecret != ""
}

// SESConfigured returns true if an SES region is set. Credentials may come
// from the default AWS chain.
func (c *Config) SESConfigured() bool {
	return c.SES.Region != ""
}

// ResolvedProvider returns the explicit provider, or the first backend with
// credentials: mailjet, then ses, then stdout.
func (c *Config) ResolvedProvider() string {
	switch {
	case c.Provider != "":
		return c.Provider
	case c.MailjetConfigured():
		return ProviderMailjet
	case c.SESConfigured():
		return ProviderSES
	default:
		return ProviderStdout
	}
}

// ClientOptions returns the Mailjet endpoint options.
func (c *Config) ClientOptions() mailjet.Options {
	return mailjet.Options{
		URL:      c.Mailjet.URL,
		Version:  c.Mailjet.Version,
		Insecure: c.Mailjet.Insecure,
		Timeout:  c.Mailjet.Timeout,
	}
}

// applyDefaults sets sensible default values for all configuration fields.
func (c *Config) applyDefaults() {
	c.Mailjet.Version = mailjet.DefaultVersion
	c.Mailjet.URL = mailjet.DefaultURL
	c.Mailjet.Call = true
	c.Mailjet.Timeout = mailjet.DefaultTimeout
	c.Logging.Level = "info"
	c.Logging.Format = "text"
}

// applyEnvVars overrides configuration with environment variable values.
// Only non-empty environment variables override existing values.
func (c *Config) applyEnvVars() {
	if v := os.Getenv("PROVIDER"); v != "" {
		c.Provider = strings.ToLower(v)
	}

	if v := os.Getenv("MJ_APIKEY_PUBLIC"); v != "" {
		c.Mailjet.APIKey = v
	}
	if v := os.Getenv("MJ_APIKEY_PRIVATE"); v != "" {
		c.Mailjet.APISecret = v
	}
	if v := os.Getenv("MAILJET_VERSION"); v != "" {
		c.Mailjet.Version = v
	}
	if v := os.Getenv("MAILJET_URL"); v != "" {
		c.Mailjet.URL = v
	}
	if v := os.Getenv("MAILJET_CALL"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Mailjet.Call = b
		}
	}
	if v := os.Getenv("MAILJET_INSECURE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Mailjet.Insecure = b
		}
	}
	if v := os.Getenv("MAILJET_TIMEOUT"); v != "" {
		if d, ok := parseTimeout(v); ok {
			c.Mailjet.Timeout = d
		}
	}

	if v := os.Getenv("SES_REGION"); v != "" {
		c.SES.Region = v
	}
	if v := os.Getenv("SES_ACCESS_KEY_ID"); v != "" {
		c.SES.AccessKeyID = v
	}
	if v := os.Getenv("SES_SECRET_ACCESS_KEY"); v != "" {
		c.SES.SecretAccessKey = v
	}
	if v := os.Getenv("SES_SENDER"); v != "" {
		c.SES.Sender = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Logging.Format = strings.ToLower(v)
	}
}

// parseTimeout accepts a Go duration ("15s") or a whole number of seconds.
func parseTimeout(v string) (time.Duration, bool) {
	if d, err := time.ParseDuration(v); err == nil {
		return d, true
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, true
	}
	return 0, false
}
