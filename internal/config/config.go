package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIURL       string
	PollInterval time.Duration
	HTTPTimeout  time.Duration
	DataDir      string
}

// Load reads configuration from the environment, with a .env file in the
// working directory layered underneath when present.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		APIURL:       getenv("LECTERN_API_URL", "http://localhost:8000"),
		PollInterval: time.Duration(getenvInt("LECTERN_POLL_INTERVAL_SECONDS", 8)) * time.Second,
		HTTPTimeout:  time.Duration(getenvInt("LECTERN_HTTP_TIMEOUT_SECONDS", 15)) * time.Second,
		DataDir:      getenv("LECTERN_DATA_DIR", defaultDataDir()),
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".lectern"
	}
	return filepath.Join(home, ".lectern")
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
