package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// ScoreWeights are the additive relevance weights used by the search
// predicate builder. They are empirical and tuned via environment.
type ScoreWeights struct {
	ExactCode  int
	PrefixCode int
	NameRegex  int
	FullText   int
	Colour     int
	Fabric     int
	Neckline   int
	Sleeve     int
	Keyword    int
}

// Config holds everything the service reads from the environment.
type Config struct {
	Port        string
	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret   string
	CORSOrigins []string

	// Image storage (R2/S3 compatible)
	ImageBucket    string
	ImageEndpoint  string
	ImageRegion    string
	ImageAccessKey string
	ImageSecretKey string
	ImagePublicURL string

	// Per-client rate limit
	RateLimitRPS   int
	RateLimitBurst int

	// Cache TTLs
	ListingTTL time.Duration
	FacetTTL   time.Duration
	CountTTL   time.Duration
	DetailTTL  time.Duration

	// Statement deadlines
	ListingTimeout time.Duration
	DetailTimeout  time.Duration
	FacetTimeout   time.Duration
	LookupTimeout  time.Duration

	// Lookup/synonym snapshot refresh interval
	LookupRefresh time.Duration

	// Facet behaviour
	FacetLimit       int
	FacetSelfExclude bool

	Weights ScoreWeights
}

// Load reads configuration from the environment. Only DATABASE_URL is
// mandatory; everything else has a sensible default.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	cfg := &Config{
		Port:        envStr("PORT", "8080"),
		DatabaseURL: dbURL,

		RedisAddr:     envStr("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),

		JWTSecret:   os.Getenv("JWT_SECRET"),
		CORSOrigins: []string{envStr("CORS_ORIGIN", "*")},

		ImageBucket:    os.Getenv("IMAGE_BUCKET"),
		ImageEndpoint:  os.Getenv("IMAGE_ENDPOINT"),
		ImageRegion:    envStr("IMAGE_REGION", "auto"),
		ImageAccessKey: os.Getenv("IMAGE_ACCESS_KEY"),
		ImageSecretKey: os.Getenv("IMAGE_SECRET_KEY"),
		ImagePublicURL: os.Getenv("IMAGE_PUBLIC_URL"),

		RateLimitRPS:   envInt("RATE_LIMIT_RPS", 20),
		RateLimitBurst: envInt("RATE_LIMIT_BURST", 40),

		ListingTTL: envDur("CACHE_LISTING_TTL", 60*time.Second),
		FacetTTL:   envDur("CACHE_FACET_TTL", 30*time.Minute),
		CountTTL:   envDur("CACHE_COUNT_TTL", 2*time.Hour),
		DetailTTL:  envDur("CACHE_DETAIL_TTL", 6*time.Hour),

		ListingTimeout: envDur("LISTING_TIMEOUT", 20*time.Second),
		DetailTimeout:  envDur("DETAIL_TIMEOUT", 10*time.Second),
		FacetTimeout:   envDur("FACET_TIMEOUT", 20*time.Second),
		LookupTimeout:  envDur("LOOKUP_TIMEOUT", 5*time.Second),

		LookupRefresh: envDur("LOOKUP_REFRESH", 10*time.Minute),

		FacetLimit:       envInt("FACET_LIMIT", 50),
		FacetSelfExclude: envBool("FACET_SELF_EXCLUDE", false),

		Weights: ScoreWeights{
			ExactCode:  envInt("SCORE_EXACT_CODE", 100),
			PrefixCode: envInt("SCORE_PREFIX_CODE", 80),
			NameRegex:  envInt("SCORE_NAME_REGEX", 70),
			FullText:   envInt("SCORE_FULL_TEXT", 60),
			Colour:     envInt("SCORE_COLOUR", 30),
			Fabric:     envInt("SCORE_FABRIC", 30),
			Neckline:   envInt("SCORE_NECKLINE", 20),
			Sleeve:     envInt("SCORE_SLEEVE", 20),
			Keyword:    envInt("SCORE_KEYWORD", 15),
		},
	}

	return cfg, nil
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func envDur(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}
