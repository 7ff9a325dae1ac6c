package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// DefaultSessionTTLHours is how long a dashboard session stays valid without re-login.
const DefaultSessionTTLHours = 12

// Config holds application configuration
type Config struct {
	BackendURL      string
	BackendToken    string
	DatabaseURL     string
	Port            string
	SecureCookies   bool
	TrustedOrigins  []string
	SessionTTLHours int
}

// Load loads configuration from multiple sources with priority:
// 1. Command flags (set via LoadWithOverrides)
// 2. Config file (XDG config dir or ./jauge.toml)
// 3. Environment variables
func Load() (*Config, error) {
	v := newBaseViper()
	_ = v.ReadInConfig()
	return buildConfig(v, "", "", ""), nil
}

// LoadWithOverrides loads config and applies flag overrides
func LoadWithOverrides(backendURL, databaseURL, port string) (*Config, error) {
	v := newBaseViper()
	_ = v.ReadInConfig()
	return buildConfig(v, backendURL, databaseURL, port), nil
}

func newBaseViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName("jauge")
	v.SetConfigType("toml")
	v.AddConfigPath(".")

	// Use XDG Base Directory specification
	// Manual implementation to support testing (xdg library caches at init)
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		if home, err := os.UserHomeDir(); err == nil {
			configHome = filepath.Join(home, ".config")
		}
	}
	if configHome != "" {
		v.AddConfigPath(filepath.Join(configHome, "jauge"))
	}

	return v
}

func buildConfig(v *viper.Viper, overrideBackendURL, overrideDatabaseURL, overridePort string) *Config {
	cfg := &Config{
		Port:            "3000",
		SecureCookies:   true, // Default to secure (safe for production/HTTPS proxies)
		TrustedOrigins:  []string{"localhost"},
		SessionTTLHours: DefaultSessionTTLHours,
	}

	// Apply config file values
	if v.IsSet("backend_url") {
		cfg.BackendURL = v.GetString("backend_url")
	}
	if v.IsSet("backend_token") {
		cfg.BackendToken = v.GetString("backend_token")
	}
	if v.IsSet("database_url") {
		cfg.DatabaseURL = v.GetString("database_url")
	}
	if v.IsSet("port") {
		cfg.Port = v.GetString("port")
	}
	if v.IsSet("trusted_origins") {
		cfg.TrustedOrigins = parseTrustedOrigins(v.GetString("trusted_origins"))
	}
	if v.IsSet("secure_cookies") {
		cfg.SecureCookies = v.GetBool("secure_cookies")
	}
	if v.IsSet("session_ttl_hours") {
		if ttl := v.GetInt("session_ttl_hours"); ttl > 0 {
			cfg.SessionTTLHours = ttl
		}
	}

	// Environment fallback (only if not configured)
	if cfg.BackendURL == "" {
		cfg.BackendURL = os.Getenv("BACKEND_URL")
	}
	if cfg.BackendToken == "" {
		cfg.BackendToken = os.Getenv("BACKEND_TOKEN")
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if !v.IsSet("port") {
		if envPort := os.Getenv("PORT"); envPort != "" {
			cfg.Port = envPort
		}
	}
	if !v.IsSet("trusted_origins") {
		if envOrigins := os.Getenv("TRUSTED_ORIGINS"); envOrigins != "" {
			cfg.TrustedOrigins = parseTrustedOrigins(envOrigins)
		}
	}
	if !v.IsSet("secure_cookies") {
		if envSecure := os.Getenv("SECURE_COOKIES"); envSecure != "" {
			cfg.SecureCookies = envSecure == "true"
		}
		// Otherwise keep default (true)
	}

	// Apply overrides (flags) last
	if overrideBackendURL != "" {
		cfg.BackendURL = overrideBackendURL
	}
	if overrideDatabaseURL != "" {
		cfg.DatabaseURL = overrideDatabaseURL
	}
	if overridePort != "" {
		cfg.Port = overridePort
	}

	return cfg
}

// parseTrustedOrigins parses a comma-separated string into a slice of trimmed, lowercased origins
func parseTrustedOrigins(originsStr string) []string {
	if originsStr == "" {
		return []string{}
	}

	parts := strings.Split(originsStr, ",")
	origins := make([]string, 0, len(parts))

	for _, part := range parts {
		origin, err := SanitizeTrustedOrigin(part)
		if err != nil {
			continue
		}
		origins = append(origins, origin)
	}

	return origins
}
