package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Version information - set by GoReleaser during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// GetVersionInfo returns a formatted version string
func GetVersionInfo() string {
	return fmt.Sprintf("gmail-ingest version %s, commit %s, built at %s", version, commit, date)
}

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	OAuth   OAuthConfig   `mapstructure:"oauth"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

type LoggingConfig struct {
	Level             string `mapstructure:"level"`
	Format            string `mapstructure:"format"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

// OAuthConfig holds the Google OAuth app credentials and deployment
// parameters for the install flow.
type OAuthConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	ProjectID    string `mapstructure:"project_id"` // GCP project carrying the gmail-push topic
	BaseURL      string `mapstructure:"base_url"`   // public base URL of this service
}

// Configured reports whether the OAuth app credentials are present.
// The service starts without them; /install refuses to issue redirects.
func (c *OAuthConfig) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// RedirectURL returns the callback target. It must exactly match the URI
// registered with Google for the OAuth client.
func (c *OAuthConfig) RedirectURL() string {
	return strings.TrimSuffix(c.BaseURL, "/") + "/auth/callback"
}

// InitFlags initializes command line flags (without parsing)
func InitFlags() {
	pflag.Int("port", 0, "HTTP listen port")
	pflag.String("base-url", "", "Public base URL used to derive the OAuth redirect target")
	// Note: no pflag.Parse() here as it's called in main.go
}

func Load() (*Config, error) {
	viper.Reset() // Ensure clean state

	viper.SetEnvPrefix("GMAIL_INGEST")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.BindPFlags(pflag.CommandLine); err != nil {
		return nil, err
	}

	// Deployments configure the OAuth app through bare variable names;
	// keep those working alongside the prefixed forms.
	_ = viper.BindEnv("oauth.client_id", "GMAIL_INGEST_OAUTH_CLIENT_ID", "CLIENT_ID")
	_ = viper.BindEnv("oauth.client_secret", "GMAIL_INGEST_OAUTH_CLIENT_SECRET", "CLIENT_SECRET")
	_ = viper.BindEnv("oauth.project_id", "GMAIL_INGEST_OAUTH_PROJECT_ID", "PROJECT_ID")
	_ = viper.BindEnv("oauth.base_url", "GMAIL_INGEST_OAUTH_BASE_URL", "CLOUD_RUN_URL")

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "console")
	viper.SetDefault("oauth.project_id", "ingest-gmail-api")
	viper.SetDefault("oauth.base_url", "http://localhost:8080")

	// Load ./config.yaml if present
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.AddConfigPath("/etc/gmail-ingest")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Set listen port from flag or environment
	if port := viper.GetInt("port"); port != 0 {
		config.Server.Port = port
	}

	// Set public base URL from flag or environment
	if baseURL := viper.GetString("base-url"); baseURL != "" {
		config.OAuth.BaseURL = baseURL
	}

	return &config, nil
}
