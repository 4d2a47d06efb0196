package app

import (
	"os"
	"strconv"
	"time"
)

// Storage backends. Chosen once at startup; nothing above the store
// interface branches on which one is in use.
const (
	BackendSQLite   = "sqlite"
	BackendJSONFile = "jsonfile"
)

type Config struct {
	Issuer string // Issuer claim for session tokens (default: partnerdesk)

	StorageBackend string // sqlite or jsonfile (default: sqlite)
	DatabaseFile   string // SQLite database path (default: ./partnerdesk.db)
	DataFile       string // JSON data file path for the jsonfile backend (default: ./partnerdesk.json)

	SessionSecretFile string // Path to the HMAC secret for session tokens (default: ./session.key)
	PepperFile        string // Path to the password hashing pepper (default: ./pepper)

	BootstrapAdminUsername string // Username for the initial admin (default: admin)
	BootstrapAdminEmail    string // Email for the initial admin (default: admin@localhost)

	ImportDir          string        // Spreadsheet drop directory; importer disabled when empty
	ImportPollInterval time.Duration // Fallback rescan cadence (default: 30s)
	ImportFileTimeout  time.Duration // Per-file processing deadline (default: 2m)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	return Config{
		Issuer: getEnvOrDefault("PD_ISSUER", "partnerdesk"),

		StorageBackend: getEnvOrDefault("PD_STORAGE_BACKEND", BackendSQLite),
		DatabaseFile:   getEnvOrDefault("PD_DATABASE_FILE", "partnerdesk.db"),
		DataFile:       getEnvOrDefault("PD_DATA_FILE", "partnerdesk.json"),

		SessionSecretFile: getEnvOrDefault("PD_SESSION_SECRET_FILE", "session.key"),
		PepperFile:        getEnvOrDefault("PD_PEPPER_FILE", "pepper"),

		BootstrapAdminUsername: getEnvOrDefault("PD_BOOTSTRAP_ADMIN_USERNAME", "admin"),
		BootstrapAdminEmail:    getEnvOrDefault("PD_BOOTSTRAP_ADMIN_EMAIL", "admin@localhost"),

		ImportDir:          os.Getenv("PD_IMPORT_DIR"),
		ImportPollInterval: getEnvDurationOrDefault("PD_IMPORT_POLL_INTERVAL", 30*time.Second),
		ImportFileTimeout:  getEnvDurationOrDefault("PD_IMPORT_FILE_TIMEOUT", 2*time.Minute),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}
	return defaultValue
}
