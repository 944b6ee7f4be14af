package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/codelist/codelist/internal/domain/codelist"
)

type Config struct {
	Port           string   `mapstructure:"PORT"`
	Env            string   `mapstructure:"ENV"`
	LogLevel       string   `mapstructure:"LOG_LEVEL"`
	AuthSigningKey string   `mapstructure:"AUTH_SIGNING_KEY"`
	AuthIssuer     string   `mapstructure:"AUTH_ISSUER"`
	AuthAudience   string   `mapstructure:"AUTH_AUDIENCE"`
	AuthJWKSURL    string   `mapstructure:"AUTH_JWKS_URL"`
	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	DefaultSource  string   `mapstructure:"DEFAULT_SOURCE"`
	CodeColumn     string   `mapstructure:"CODE_COLUMN"`
	TermColumn     string   `mapstructure:"TERM_COLUMN"`
	CommentColumn  string   `mapstructure:"COMMENT_COLUMN"`
	MaxUploadBytes int64    `mapstructure:"MAX_UPLOAD_BYTES"`
	MetricsEnabled bool     `mapstructure:"METRICS_ENABLED"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL",
	"AUTH_SIGNING_KEY", "AUTH_ISSUER", "AUTH_AUDIENCE", "AUTH_JWKS_URL",
	"CORS_ORIGINS", "DEFAULT_SOURCE",
	"CODE_COLUMN", "TERM_COLUMN", "COMMENT_COLUMN",
	"MAX_UPLOAD_BYTES", "METRICS_ENABLED",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("DEFAULT_SOURCE", string(codelist.SourceManual))
	v.SetDefault("CODE_COLUMN", "code")
	v.SetDefault("TERM_COLUMN", "term")
	v.SetDefault("COMMENT_COLUMN", "comment")
	v.SetDefault("MAX_UPLOAD_BYTES", 10<<20)
	v.SetDefault("METRICS_ENABLED", true)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// .env is optional
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if origins := v.GetString("CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = splitList(origins)
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the configuration is safe to run. Outside
// development a signing key or a JWKS endpoint must be configured so bearer
// tokens are verified.
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthSigningKey == "" && c.AuthJWKSURL == "" {
		return fmt.Errorf("AUTH_SIGNING_KEY or AUTH_JWKS_URL must be set when ENV=%q", c.Env)
	}
	if _, err := codelist.ParseSource(c.DefaultSource); err != nil {
		return fmt.Errorf("DEFAULT_SOURCE: %w", err)
	}
	if c.CodeColumn == "" || c.TermColumn == "" {
		return fmt.Errorf("CODE_COLUMN and TERM_COLUMN must not be empty")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	return nil
}
