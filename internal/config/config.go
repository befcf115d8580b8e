package config

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/i474232898/air-quality-aggregation/internal/airquality"
)

const defaultCORSOrigins = "http://localhost:3000,http://localhost:5173,http://127.0.0.1:5173"

type AppConfig struct {
	Port     string
	AppEnv   string
	LogLevel slog.Level

	CPCBAPIKey string
	AQICNToken string

	// Priority is the order in which sources are consulted.
	Priority []airquality.SourceID

	CacheTTL        time.Duration
	RefreshInterval time.Duration
	HTTPTimeout     time.Duration

	Deduplicate bool
	// InterpolationJitter is the relative noise applied to IDW estimates; 0 disables it.
	InterpolationJitter float64

	AQICNCity     string
	AQICNStations []string // nil means the built-in Delhi/NCR list
	CPCBCity      string
	OpenAQCountry string
	OpenAQCity    string

	GeocoderAPIKey  string
	GeocoderCity    string
	GeocoderCountry string

	CORSOrigins string
}

// Dev reports whether the service runs in development mode.
func (c *AppConfig) Dev() bool {
	return c.AppEnv == "dev" || c.AppEnv == "development"
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}
	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.AppEnv = strings.ToLower(getenvDefault("APP_ENV", "dev"))

	level, err := parseLogLevel(getenvDefault("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	cfg.CPCBAPIKey = os.Getenv("CPCB_API_KEY")
	cfg.AQICNToken = os.Getenv("AQICN_TOKEN")

	priority, err := parsePriority(getenvDefault("API_PRIORITY", "aqicn,openaq"))
	if err != nil {
		return nil, err
	}
	cfg.Priority = priority

	if cfg.CacheTTL, err = cacheTTL(); err != nil {
		return nil, err
	}
	if cfg.RefreshInterval, err = getenvDuration("REFRESH_INTERVAL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}

	if cfg.Deduplicate, err = getenvBool("DEDUPLICATE_STATIONS", false); err != nil {
		return nil, err
	}

	jitter, err := strconv.ParseFloat(getenvDefault("INTERPOLATION_JITTER", "0"), 64)
	if err != nil || jitter < 0 || jitter >= 1 {
		return nil, fmt.Errorf("invalid INTERPOLATION_JITTER %q: must be in [0, 1)", os.Getenv("INTERPOLATION_JITTER"))
	}
	cfg.InterpolationJitter = jitter

	cfg.AQICNCity = getenvDefault("AQICN_CITY", "delhi")
	cfg.AQICNStations = getenvList("AQICN_STATIONS")
	cfg.CPCBCity = getenvDefault("CPCB_CITY", "Delhi")
	cfg.OpenAQCountry = getenvDefault("OPENAQ_COUNTRY", "IN")
	cfg.OpenAQCity = getenvDefault("OPENAQ_CITY", "Delhi")

	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")
	cfg.GeocoderCity = getenvDefault("GEOCODER_CITY", "Delhi")
	cfg.GeocoderCountry = getenvDefault("GEOCODER_COUNTRY", "India")

	cfg.CORSOrigins = getenvDefault("CORS_ORIGINS", defaultCORSOrigins)
	// Credentials are always allowed, which the CORS middleware refuses to
	// combine with a wildcard origin.
	if slices.Contains(getenvList("CORS_ORIGINS"), "*") {
		return nil, fmt.Errorf("invalid CORS_ORIGINS %q: wildcard origin is not allowed with credentials", cfg.CORSOrigins)
	}

	return cfg, nil
}

// cacheTTL prefers CACHE_TTL and still honours the older CACHE_TTL_MINUTES.
func cacheTTL() (time.Duration, error) {
	if os.Getenv("CACHE_TTL") == "" {
		if v := os.Getenv("CACHE_TTL_MINUTES"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return 0, fmt.Errorf("invalid CACHE_TTL_MINUTES %q", v)
			}
			return time.Duration(n) * time.Minute, nil
		}
	}
	return getenvDuration("CACHE_TTL", 5*time.Minute)
}

func parsePriority(s string) ([]airquality.SourceID, error) {
	var ids []airquality.SourceID
	for _, part := range strings.Split(s, ",") {
		id := airquality.SourceID(strings.ToLower(strings.TrimSpace(part)))
		switch id {
		case "":
			continue
		case airquality.SourceCPCB, airquality.SourceAQICN, airquality.SourceOpenAQ:
			ids = append(ids, id)
		default:
			return nil, fmt.Errorf("invalid API_PRIORITY entry %q (allowed: cpcb, aqicn, openaq)", part)
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("API_PRIORITY must name at least one source")
	}
	return ids, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}

func getenvBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getenvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
