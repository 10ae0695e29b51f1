package config

import (
	"fmt"
	"os"
	"strconv"
)

// DefaultDatasetURL is the public IMDb ratings dump.
const DefaultDatasetURL = "https://datasets.imdbws.com/title.ratings.tsv.gz"

// Database captures connection-pool settings shared by the job and the server.
type Database struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxIdleSecs     int
	MaxLifeSecs     int
	ConnTimeoutSecs int
	StatementCache  int
	RedisURL        string
	CacheTTLSecs    int
}

// Config captures the lookup server's runtime configuration.
type Config struct {
	Port             string
	ReadTimeoutSecs  int
	WriteTimeoutSecs int
	IdleTimeoutSecs  int
	DB               Database
}

// IngestConfig captures the ingestion job's runtime configuration.
type IngestConfig struct {
	DatasetURL         string
	TempDir            string
	DatasetTimeoutSecs int
	BatchSize          int
	PushgatewayURL     string
	DB                 Database
}

// Load reads the lookup server configuration from environment variables.
func Load() (Config, error) {
	db, err := loadDatabase()
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		Port:             getEnv("PORT", "8080"),
		ReadTimeoutSecs:  getEnvInt("SERVER_READ_TIMEOUT", 15),
		WriteTimeoutSecs: getEnvInt("SERVER_WRITE_TIMEOUT", 15),
		IdleTimeoutSecs:  getEnvInt("SERVER_IDLE_TIMEOUT", 60),
		DB:               db,
	}
	if cfg.ReadTimeoutSecs <= 0 {
		return Config{}, fmt.Errorf("SERVER_READ_TIMEOUT must be positive")
	}
	if cfg.WriteTimeoutSecs <= 0 {
		return Config{}, fmt.Errorf("SERVER_WRITE_TIMEOUT must be positive")
	}
	return cfg, nil
}

// LoadIngest reads the ingestion job configuration from environment variables.
func LoadIngest() (IngestConfig, error) {
	db, err := loadDatabase()
	if err != nil {
		return IngestConfig{}, err
	}
	cfg := IngestConfig{
		DatasetURL:         getEnv("DATASET_URL", DefaultDatasetURL),
		TempDir:            getEnv("DATASET_TEMP_DIR", os.TempDir()),
		DatasetTimeoutSecs: getEnvInt("DATASET_TIMEOUT_SECS", 300),
		BatchSize:          getEnvInt("INGEST_BATCH_SIZE", 500),
		PushgatewayURL:     os.Getenv("PUSHGATEWAY_URL"),
		DB:                 db,
	}
	if cfg.DatasetTimeoutSecs <= 0 {
		return IngestConfig{}, fmt.Errorf("DATASET_TIMEOUT_SECS must be positive")
	}
	if cfg.BatchSize <= 0 {
		return IngestConfig{}, fmt.Errorf("INGEST_BATCH_SIZE must be positive")
	}
	return cfg, nil
}

func loadDatabase() (Database, error) {
	db := Database{
		URL:             getEnv("DATABASE_URL", os.Getenv("POSTGRES_URL")),
		MaxConns:        getEnvInt("DB_MAX_CONNS", 20),
		MinConns:        getEnvInt("DB_MIN_CONNS", 2),
		MaxIdleSecs:     getEnvInt("DB_MAX_CONN_IDLE_SECS", 300),
		MaxLifeSecs:     getEnvInt("DB_MAX_CONN_LIFETIME_SECS", 3600),
		ConnTimeoutSecs: getEnvInt("DB_CONN_TIMEOUT_SECS", 10),
		StatementCache:  getEnvInt("DB_STATEMENT_CACHE_CAPACITY", 256),
		RedisURL:        os.Getenv("REDIS_URL"),
		CacheTTLSecs:    getEnvInt("CACHE_TTL_SECS", 3600),
	}

	if db.URL == "" {
		return Database{}, fmt.Errorf("DATABASE_URL or POSTGRES_URL is required")
	}
	if db.MaxConns <= 0 {
		return Database{}, fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if db.MinConns < 0 {
		return Database{}, fmt.Errorf("DB_MIN_CONNS must be non-negative")
	}
	if db.MinConns > db.MaxConns {
		return Database{}, fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
	}
	if db.StatementCache < 0 {
		return Database{}, fmt.Errorf("DB_STATEMENT_CACHE_CAPACITY must be non-negative")
	}
	if db.CacheTTLSecs <= 0 {
		return Database{}, fmt.Errorf("CACHE_TTL_SECS must be positive")
	}
	return db, nil
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
