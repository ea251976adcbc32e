package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port          string
	JwtKey        []byte
	SessionSecret string
	// Carrier API
	CarrierAPIURL     string
	CarrierAPITimeout time.Duration
	// SQLite config
	SQLitePath   string
	DatabaseName string
	LogLevel     string
	// SessionIdleTimeout ends operator sessions that made no request for this long
	SessionIdleTimeout time.Duration
	// AllowedOrigins may call the API from a browser; "*" allows any origin without cookies
	AllowedOrigins []string
	Location       LocationPolicy
}

// LocationPolicy controls the location lookup cache and the per-country fetch rules.
type LocationPolicy struct {
	TTLs                      map[string]time.Duration `yaml:"ttls"`
	ErrorTTL                  time.Duration            `yaml:"error_ttl"`
	MaxEntries                int                      `yaml:"max_entries"`
	PruneInterval             time.Duration            `yaml:"prune_interval"`
	LargeCountries            []string                 `yaml:"large_countries"`
	CountryLevelCityCountries []string                 `yaml:"country_level_city_countries"`
}

func DefaultLocationPolicy() LocationPolicy {
	return LocationPolicy{
		TTLs: map[string]time.Duration{
			"countries":         24 * time.Hour,
			"country-structure": 24 * time.Hour,
			"states":            6 * time.Hour,
			"service-areas":     time.Hour,
			"cities":            15 * time.Minute,
			"postal-codes":      10 * time.Minute,
		},
		ErrorTTL:                  30 * time.Second,
		MaxEntries:                10000,
		PruneInterval:             5 * time.Minute,
		LargeCountries:            []string{"US", "CA", "GB", "DE", "FR", "IN", "CN", "BR", "AU", "RU", "JP", "MX"},
		CountryLevelCityCountries: []string{"AE"},
	}
}

func LoadConfig() (*Config, error) {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	carrierURL := os.Getenv("CARRIER_API_URL")
	if carrierURL == "" {
		return nil, fmt.Errorf("CARRIER_API_URL is not set in .env file")
	}

	jwtSecret := os.Getenv("JWT_SECRET_KEY")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY is not set in .env file")
	}

	databaseName := getEnv("DATABASE_NAME", "shipdesk")

	timeout, err := time.ParseDuration(getEnv("CARRIER_API_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid CARRIER_API_TIMEOUT: %w", err)
	}

	idle, err := time.ParseDuration(getEnv("SESSION_IDLE_TIMEOUT", "2h"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_IDLE_TIMEOUT: %w", err)
	}

	config := &Config{
		Port:               getEnv("PORT", "8080"),
		JwtKey:             []byte(jwtSecret),
		SessionSecret:      getEnv("SESSION_SECRET", jwtSecret),
		CarrierAPIURL:      strings.TrimRight(carrierURL, "/"),
		CarrierAPITimeout:  timeout,
		DatabaseName:       databaseName,
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		SessionIdleTimeout: idle,
		AllowedOrigins:     splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		Location:           DefaultLocationPolicy(),
	}

	sqlitePath := os.Getenv("SQLITE_PATH")
	if sqlitePath == "" {
		// Default to a data directory in the current directory
		sqlitePath = filepath.Join("data", fmt.Sprintf("%s.db", databaseName))
	}
	config.SQLitePath = sqlitePath

	if policyFile := os.Getenv("LOCATION_POLICY_FILE"); policyFile != "" {
		policy, err := LoadLocationPolicy(policyFile)
		if err != nil {
			return nil, err
		}
		config.Location = policy
	}
	config.Location.MaxEntries = getEnvInt("LOCATION_CACHE_MAX_ENTRIES", config.Location.MaxEntries)

	return config, nil
}

// LoadLocationPolicy reads a YAML policy file. Keys that are absent keep their defaults.
func LoadLocationPolicy(path string) (LocationPolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return LocationPolicy{}, fmt.Errorf("failed to read location policy: %w", err)
	}
	return ParseLocationPolicy(data)
}

func ParseLocationPolicy(data []byte) (LocationPolicy, error) {
	policy := DefaultLocationPolicy()
	var overlay LocationPolicy
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return LocationPolicy{}, fmt.Errorf("failed to parse location policy: %w", err)
	}

	for category, ttl := range overlay.TTLs {
		if _, ok := policy.TTLs[category]; !ok {
			return LocationPolicy{}, fmt.Errorf("unknown cache category in policy: %s", category)
		}
		if ttl <= 0 {
			return LocationPolicy{}, fmt.Errorf("ttl for %s must be positive", category)
		}
		policy.TTLs[category] = ttl
	}
	if overlay.ErrorTTL > 0 {
		policy.ErrorTTL = overlay.ErrorTTL
	}
	if overlay.MaxEntries != 0 {
		policy.MaxEntries = overlay.MaxEntries
	}
	if overlay.PruneInterval > 0 {
		policy.PruneInterval = overlay.PruneInterval
	}
	if overlay.LargeCountries != nil {
		policy.LargeCountries = upperAll(overlay.LargeCountries)
	}
	if overlay.CountryLevelCityCountries != nil {
		policy.CountryLevelCityCountries = upperAll(overlay.CountryLevelCityCountries)
	}
	return policy, nil
}

func upperAll(codes []string) []string {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if c = strings.ToUpper(strings.TrimSpace(c)); c != "" {
			out = append(out, c)
		}
	}
	return out
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intVal
}
