package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application settings, sourced from the environment.
type Config struct {
	DatabaseURL string
	ServerPort  int

	RankingChunkSize        int
	RankingDecayRate        float64
	RankingDecayCutoff      int
	RankingCycleInterval    time.Duration
	RankingJobQueueSize     int
	LeaderboardSnapshotTopN int

	// Cloudflare R2 credentials for leaderboard snapshot export. All five must
	// be set together; leaving them empty disables snapshots.
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string
}

// SnapshotsEnabled reports whether the R2 export target is fully configured.
func (c *Config) SnapshotsEnabled() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" &&
		c.R2BucketName != "" && c.R2PublicBaseURL != ""
}

// Load reads the configuration from environment variables. A .env file is
// loaded first if present; its absence is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	port, err := intEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	chunkSize, err := intEnv("RANKING_CHUNK_SIZE", 250)
	if err != nil {
		return nil, err
	}
	decayCutoff, err := intEnv("RANKING_DECAY_CUTOFF_DAYS", 7)
	if err != nil {
		return nil, err
	}
	decayRate, err := floatEnv("RANKING_DECAY_RATE", 0.02)
	if err != nil {
		return nil, err
	}
	if decayRate < 0 || decayRate >= 1 {
		return nil, fmt.Errorf("RANKING_DECAY_RATE must be in [0, 1), got %g", decayRate)
	}
	cycleInterval, err := durationEnv("RANKING_CYCLE_INTERVAL", time.Hour)
	if err != nil {
		return nil, err
	}
	queueSize, err := intEnv("RANKING_JOB_QUEUE_SIZE", 16)
	if err != nil {
		return nil, err
	}
	snapshotTopN, err := intEnv("LEADERBOARD_SNAPSHOT_TOP_N", 100)
	if err != nil {
		return nil, err
	}

	return &Config{
		DatabaseURL: dbURL,
		ServerPort:  port,

		RankingChunkSize:        chunkSize,
		RankingDecayRate:        decayRate,
		RankingDecayCutoff:      decayCutoff,
		RankingCycleInterval:    cycleInterval,
		RankingJobQueueSize:     queueSize,
		LeaderboardSnapshotTopN: snapshotTopN,

		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),
	}, nil
}

func intEnv(name string, defaultValue int) (int, error) {
	value := os.Getenv(name)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", name, err)
	}
	return n, nil
}

func floatEnv(name string, defaultValue float64) (float64, error) {
	value := os.Getenv(name)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", name, err)
	}
	return f, nil
}

func durationEnv(name string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(name)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", name, err)
	}
	return d, nil
}
