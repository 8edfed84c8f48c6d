package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config captures all runtime configuration derived from environment variables.
type Config struct {
	Port               string
	AuthToken          string
	DBURL              string
	TMDBAPIURL         string
	TMDBAccessToken    string
	TMDBImageURL       string
	TMDBLanguage       string
	TMDBTimeoutSecs    int
	ImageTimeoutSecs   int
	PlaceholderSize    int
	PlaceholderMaxSize int
	PlaceholderMaxPix  int
	RefreshBatchSize   int
	RefreshConcurrency int
	RefreshSchedule    string
	RateLimitPerMinute int
	RateLimitBurst     int
	LogFile            string
	LogMaxSizeMB       int
	LogMaxBackups      int
	LogMaxAgeDays      int
	ReadTimeoutSecs    int
	WriteTimeoutSecs   int
	IdleTimeoutSecs    int
	DBMaxConns         int
	DBMinConns         int
	DBMaxIdleSecs      int
	DBMaxLifeSecs      int
	DBConnTimeoutSecs  int
	DBStatementCache   int
}

// Load reads configuration from environment variables, applying defaults and validation.
func Load() (Config, error) {
	cfg := Config{
		Port:               getEnv("PORT", "8080"),
		AuthToken:          os.Getenv("AUTH_TOKEN"),
		DBURL:              os.Getenv("DB_URL"),
		TMDBAPIURL:         getEnv("TMDB_API_URL", "https://api.themoviedb.org/3"),
		TMDBAccessToken:    os.Getenv("TMDB_ACCESS_TOKEN"),
		TMDBImageURL:       getEnv("TMDB_IMAGE_URL", "https://image.tmdb.org/t/p"),
		TMDBLanguage:       getEnv("TMDB_LANGUAGE", "en-US"),
		TMDBTimeoutSecs:    getEnvInt("TMDB_TIMEOUT_SECS", 10),
		ImageTimeoutSecs:   getEnvInt("IMAGE_TIMEOUT_SECS", 15),
		PlaceholderSize:    getEnvInt("PLACEHOLDER_SIZE", 4),
		PlaceholderMaxSize: getEnvInt("PLACEHOLDER_MAX_BYTES", 20<<20),
		PlaceholderMaxPix:  getEnvInt("PLACEHOLDER_MAX_PIXELS", 40_000_000),
		RefreshBatchSize:   getEnvInt("REFRESH_BATCH_SIZE", 25),
		RefreshConcurrency: getEnvInt("REFRESH_CONCURRENCY", 4),
		RefreshSchedule:    os.Getenv("REFRESH_SCHEDULE"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", 10),
		LogFile:            os.Getenv("LOG_FILE"),
		LogMaxSizeMB:       getEnvInt("LOG_MAX_SIZE_MB", 50),
		LogMaxBackups:      getEnvInt("LOG_MAX_BACKUPS", 3),
		LogMaxAgeDays:      getEnvInt("LOG_MAX_AGE_DAYS", 28),
		ReadTimeoutSecs:    getEnvInt("SERVER_READ_TIMEOUT", 15),
		WriteTimeoutSecs:   getEnvInt("SERVER_WRITE_TIMEOUT", 200),
		IdleTimeoutSecs:    getEnvInt("SERVER_IDLE_TIMEOUT", 60),
		DBMaxConns:         getEnvInt("DB_MAX_CONNS", 10),
		DBMinConns:         getEnvInt("DB_MIN_CONNS", 1),
		DBMaxIdleSecs:      getEnvInt("DB_MAX_CONN_IDLE_SECS", 300),
		DBMaxLifeSecs:      getEnvInt("DB_MAX_CONN_LIFETIME_SECS", 3600),
		DBConnTimeoutSecs:  getEnvInt("DB_CONN_TIMEOUT_SECS", 10),
		DBStatementCache:   getEnvInt("DB_STATEMENT_CACHE_CAPACITY", 256),
	}

	if cfg.AuthToken == "" {
		return Config{}, fmt.Errorf("AUTH_TOKEN is required")
	}
	if cfg.DBURL == "" {
		return Config{}, fmt.Errorf("DB_URL is required")
	}
	if cfg.TMDBAccessToken == "" {
		return Config{}, fmt.Errorf("TMDB_ACCESS_TOKEN is required")
	}
	if cfg.TMDBTimeoutSecs <= 0 {
		return Config{}, fmt.Errorf("TMDB_TIMEOUT_SECS must be positive")
	}
	if cfg.ImageTimeoutSecs <= 0 {
		return Config{}, fmt.Errorf("IMAGE_TIMEOUT_SECS must be positive")
	}
	if cfg.PlaceholderSize <= 0 || cfg.PlaceholderSize > 64 {
		return Config{}, fmt.Errorf("PLACEHOLDER_SIZE must be between 1 and 64")
	}
	if cfg.PlaceholderMaxSize <= 0 {
		return Config{}, fmt.Errorf("PLACEHOLDER_MAX_BYTES must be positive")
	}
	if cfg.PlaceholderMaxPix <= 0 {
		return Config{}, fmt.Errorf("PLACEHOLDER_MAX_PIXELS must be positive")
	}
	if cfg.RefreshBatchSize <= 0 {
		return Config{}, fmt.Errorf("REFRESH_BATCH_SIZE must be positive")
	}
	if cfg.RefreshConcurrency <= 0 {
		return Config{}, fmt.Errorf("REFRESH_CONCURRENCY must be positive")
	}
	if cfg.RateLimitPerMinute < 0 || cfg.RateLimitBurst < 0 {
		return Config{}, fmt.Errorf("RATE_LIMIT_PER_MINUTE and RATE_LIMIT_BURST must be non-negative")
	}
	if cfg.DBMaxConns <= 0 {
		return Config{}, fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if cfg.DBMinConns < 0 {
		return Config{}, fmt.Errorf("DB_MIN_CONNS must be non-negative")
	}
	if cfg.DBMaxConns > 0 && cfg.DBMinConns > cfg.DBMaxConns {
		return Config{}, fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
	}
	if cfg.DBStatementCache < 0 {
		return Config{}, fmt.Errorf("DB_STATEMENT_CACHE_CAPACITY must be non-negative")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}
