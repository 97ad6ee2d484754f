package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FitnessProvider holds the OAuth endpoints and credentials for the
// fitness-tracking provider members can connect their accounts to.
type FitnessProvider struct {
	ClientID     string        `yaml:"client_id"`
	ClientSecret string        `yaml:"client_secret"`
	AuthURL      string        `yaml:"auth_url"`
	TokenURL     string        `yaml:"token_url"`
	RevokeURL    string        `yaml:"revoke_url"`
	RedirectURI  string        `yaml:"redirect_uri"`
	Scopes       []string      `yaml:"scopes"`
	Timeout      time.Duration `yaml:"timeout"`
}

type Config struct {
	DatabaseURL    string
	RedisURL       string
	HTTPListenAddr string
	LogLevel       string
	ServiceName    string
	// SessionJWTSecret verifies session tokens issued by the hosted auth
	// provider (HS256 shared secret).
	SessionJWTSecret string
	SessionJWTIssuer string
	// VerifierTTL bounds how long a stored code verifier stays valid
	// between the authorization redirect and the callback.
	VerifierTTL time.Duration

	Fitness FitnessProvider
}

func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		RedisURL:         getEnv("REDIS_URL", ""),
		HTTPListenAddr:   getEnv("HTTP_LISTEN_ADDR", ":8080"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		ServiceName:      getEnv("SERVICE_NAME", "trailside-api"),
		SessionJWTSecret: getEnv("SESSION_JWT_SECRET", ""),
		SessionJWTIssuer: getEnv("SESSION_JWT_ISSUER", "trailside-auth"),
		VerifierTTL:      getDurationEnv("VERIFIER_TTL", 10*time.Minute),
		Fitness: FitnessProvider{
			ClientID:     getEnv("FITNESS_CLIENT_ID", ""),
			ClientSecret: getEnv("FITNESS_CLIENT_SECRET", ""),
			AuthURL:      getEnv("FITNESS_AUTH_URL", "https://www.strava.com/oauth/authorize"),
			TokenURL:     getEnv("FITNESS_TOKEN_URL", "https://www.strava.com/oauth/token"),
			RevokeURL:    getEnv("FITNESS_REVOKE_URL", "https://www.strava.com/oauth/deauthorize"),
			RedirectURI:  getEnv("FITNESS_REDIRECT_URI", ""),
			Scopes:       splitList(getEnv("FITNESS_SCOPES", "read,activity:read")),
			Timeout:      getDurationEnv("FITNESS_TIMEOUT", 10*time.Second),
		},
	}

	// An optional YAML file can override the provider block, which keeps
	// endpoint churn out of the deployment environment.
	if path := getEnv("FITNESS_PROVIDER_FILE", ""); path != "" {
		if err := cfg.loadProviderFile(path); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func (c *Config) loadProviderFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read provider file: %w", err)
	}

	var p FitnessProvider
	if err := yaml.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("parse provider file: %w", err)
	}

	if p.ClientID != "" {
		c.Fitness.ClientID = p.ClientID
	}
	if p.ClientSecret != "" {
		c.Fitness.ClientSecret = p.ClientSecret
	}
	if p.AuthURL != "" {
		c.Fitness.AuthURL = p.AuthURL
	}
	if p.TokenURL != "" {
		c.Fitness.TokenURL = p.TokenURL
	}
	if p.RevokeURL != "" {
		c.Fitness.RevokeURL = p.RevokeURL
	}
	if p.RedirectURI != "" {
		c.Fitness.RedirectURI = p.RedirectURI
	}
	if len(p.Scopes) > 0 {
		c.Fitness.Scopes = p.Scopes
	}
	if p.Timeout > 0 {
		c.Fitness.Timeout = p.Timeout
	}
	return nil
}

func (c *Config) Validate() error {
	var missing []string
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.SessionJWTSecret == "" {
		missing = append(missing, "SESSION_JWT_SECRET")
	}
	if c.Fitness.ClientID == "" {
		missing = append(missing, "FITNESS_CLIENT_ID")
	}
	if c.Fitness.ClientSecret == "" {
		missing = append(missing, "FITNESS_CLIENT_SECRET")
	}
	if c.Fitness.RedirectURI == "" {
		missing = append(missing, "FITNESS_REDIRECT_URI")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
