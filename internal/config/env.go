package config

import (
	"os"
	"strconv"
	"strings"

	"AirlineETL/pkg/utils"
)

// AppConfig holds the settings read from the environment at startup.
type AppConfig struct {
	Port            string
	Env             string
	FrontendURL     string
	CORSCredentials bool
	MaxFileBytes    int64
	BatchInsertSize int
	StoreUploads    bool
}

func LoadAppConfig() AppConfig {
	frontendURL := envOrDefault("FRONTEND_URL", "http://localhost:5173")

	return AppConfig{
		Port:        envOrDefault("APP_PORT", "3000"),
		Env:         envOrDefault("APP_ENV", "development"),
		FrontendURL: frontendURL,
		// browsers refuse credentials for a wildcard origin and cors panics on it
		CORSCredentials: !allowsAnyOrigin(frontendURL),
		MaxFileBytes:    int64(envInt("MAX_FILE_BYTES", int(utils.DefaultMaxFileBytes))),
		BatchInsertSize: envInt("BATCH_INSERT_SIZE", 200),
		StoreUploads:    envBool("STORE_UPLOADS"),
	}
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func envBool(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func allowsAnyOrigin(origins string) bool {
	for _, origin := range strings.Split(origins, ",") {
		if strings.TrimSpace(origin) == "*" {
			return true
		}
	}
	return false
}
