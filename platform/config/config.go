// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
	IsDatabaseEnabled() bool
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetWebhookAPIKey() string
}

// MapsConfig provides settings for the geocoding and building-insight APIs.
type MapsConfig interface {
	GetMapsAPIKey() string
	GetGeocodingBaseURL() string
	GetSolarBaseURL() string
	GetMapsTimeout() time.Duration
}

// CRMConfig provides settings for the CRM contact write-back.
type CRMConfig interface {
	GetCRMBaseURL() string
	GetCRMAPIToken() string
	GetCRMEstimateFieldID() string
	IsCRMEnabled() bool
}

// PricingConfig provides settings for the price book.
type PricingConfig interface {
	GetPricingConfigPath() string
}

// ResultsConfig provides settings for the callback-result store.
type ResultsConfig interface {
	GetRedisURL() string
	GetResultTTL() time.Duration
}

// SchedulerConfig provides settings for the background task queue.
type SchedulerConfig interface {
	GetRedisURL() string
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                string
	HTTPAddr           string
	CORSAllowAll       bool
	CORSOrigins        []string
	WebhookAPIKey      string
	DatabaseURL        string
	MapsAPIKey         string
	GeocodingBaseURL   string
	SolarBaseURL       string
	MapsTimeout        time.Duration
	CRMBaseURL         string
	CRMAPIToken        string
	CRMEstimateFieldID string
	PricingConfigPath  string
	RedisURL           string
	ResultTTL          time.Duration
	AsynqQueueName     string
	AsynqConcurrency   int
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string  { return c.DatabaseURL }
func (c *Config) IsDatabaseEnabled() bool { return c.DatabaseURL != "" }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetWebhookAPIKey() string { return c.WebhookAPIKey }

// MapsConfig implementation
func (c *Config) GetMapsAPIKey() string         { return c.MapsAPIKey }
func (c *Config) GetGeocodingBaseURL() string   { return c.GeocodingBaseURL }
func (c *Config) GetSolarBaseURL() string       { return c.SolarBaseURL }
func (c *Config) GetMapsTimeout() time.Duration { return c.MapsTimeout }

// CRMConfig implementation
func (c *Config) GetCRMBaseURL() string         { return c.CRMBaseURL }
func (c *Config) GetCRMAPIToken() string        { return c.CRMAPIToken }
func (c *Config) GetCRMEstimateFieldID() string { return c.CRMEstimateFieldID }
func (c *Config) IsCRMEnabled() bool {
	return c.CRMBaseURL != "" && c.CRMAPIToken != "" && c.CRMEstimateFieldID != ""
}

// PricingConfig implementation
func (c *Config) GetPricingConfigPath() string { return c.PricingConfigPath }

// ResultsConfig implementation
func (c *Config) GetRedisURL() string         { return c.RedisURL }
func (c *Config) GetResultTTL() time.Duration { return c.ResultTTL }

// SchedulerConfig implementation
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:                getEnv("APP_ENV", "development"),
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		CORSAllowAll:       strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true"),
		CORSOrigins:        splitCSV(getEnv("CORS_ORIGINS", "")),
		WebhookAPIKey:      getEnv("WEBHOOK_API_KEY", ""),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		MapsAPIKey:         getEnv("MAPS_API_KEY", ""),
		GeocodingBaseURL:   getEnv("GEOCODING_BASE_URL", "https://maps.googleapis.com"),
		SolarBaseURL:       getEnv("SOLAR_BASE_URL", "https://solar.googleapis.com"),
		MapsTimeout:        mustDuration(getEnv("MAPS_TIMEOUT", "10s")),
		CRMBaseURL:         getEnv("CRM_BASE_URL", ""),
		CRMAPIToken:        getEnv("CRM_API_TOKEN", ""),
		CRMEstimateFieldID: getEnv("CRM_ESTIMATE_FIELD_ID", ""),
		PricingConfigPath:  getEnv("PRICING_CONFIG", ""),
		RedisURL:           getEnv("REDIS_URL", ""),
		ResultTTL:          mustDuration(getEnv("RESULT_TTL", "24h")),
		AsynqQueueName:     getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:   mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
	}

	if cfg.MapsAPIKey == "" {
		return nil, fmt.Errorf("MAPS_API_KEY is required")
	}
	if cfg.CRMBaseURL != "" && (cfg.CRMAPIToken == "" || cfg.CRMEstimateFieldID == "") {
		return nil, fmt.Errorf("CRM_API_TOKEN and CRM_ESTIMATE_FIELD_ID are required when CRM_BASE_URL is set")
	}
	if cfg.MapsTimeout <= 0 {
		return nil, fmt.Errorf("MAPS_TIMEOUT must be a positive duration")
	}
	if cfg.ResultTTL <= 0 {
		return nil, fmt.Errorf("RESULT_TTL must be a positive duration")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}
