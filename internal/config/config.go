package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the audit API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	DatabaseURL            string
	RedisURL               string
	NATSURL                string
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	OpenAIAPIKey           string
	AuditModel             string
	VisionModel            string
	ModelCallTimeout       time.Duration
	CatalogRefreshInterval time.Duration
	DashboardCacheTTL      time.Duration
	EvidenceMaxSizeMB      int
	EventChannel           string
	SeedEnabled            bool
	SeedToken              string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("CIVICLENS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "CivicLens Audit API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("cloudinary.folder", "civiclens/evidence")
	v.SetDefault("audit.model", "gpt-4o-mini")
	v.SetDefault("vision.model", "gpt-4o-mini")
	v.SetDefault("model_call_timeout", "45s")
	v.SetDefault("catalog.refresh_interval", "5m")
	v.SetDefault("dashboard.cache_ttl", "2m")
	v.SetDefault("evidence.max_size_mb", 10)
	v.SetDefault("event.channel", "civiclens:audits")

	callTimeout, err := parseDurationSetting(v.GetString("model_call_timeout"), "45s")
	if err != nil {
		return Config{}, fmt.Errorf("invalid model call timeout: %w", err)
	}

	refreshInterval, err := parseDurationSetting(v.GetString("catalog.refresh_interval"), "5m")
	if err != nil {
		return Config{}, fmt.Errorf("invalid catalog refresh interval: %w", err)
	}

	cacheTTL, err := parseDurationSetting(v.GetString("dashboard.cache_ttl"), "2m")
	if err != nil {
		return Config{}, fmt.Errorf("invalid dashboard cache ttl: %w", err)
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		OpenAIAPIKey:           v.GetString("openai_api_key"),
		AuditModel:             v.GetString("audit.model"),
		VisionModel:            v.GetString("vision.model"),
		ModelCallTimeout:       callTimeout,
		CatalogRefreshInterval: refreshInterval,
		DashboardCacheTTL:      cacheTTL,
		EvidenceMaxSizeMB:      v.GetInt("evidence.max_size_mb"),
		EventChannel:           v.GetString("event.channel"),
		SeedEnabled:            v.GetBool("seed.enabled"),
		SeedToken:              v.GetString("seed.token"),
	}

	if cfg.EvidenceMaxSizeMB <= 0 {
		cfg.EvidenceMaxSizeMB = 10
	}

	if cfg.ModelCallTimeout <= 0 {
		cfg.ModelCallTimeout = 45 * time.Second
	}

	return cfg, nil
}

func parseDurationSetting(value, fallback string) (time.Duration, error) {
	if strings.TrimSpace(value) == "" {
		value = fallback
	}
	return time.ParseDuration(value)
}
