package config

import "os"

type Config struct {
	// Port is the HTTP listen port.
	Port string
	// DBDriver selects the storage backend: memory, sqlite or postgres.
	DBDriver string
	// DBDSN is the backend-specific connection string.
	DBDSN string
	// AutoMigrate runs goose migrations on startup when truthy.
	AutoMigrate bool
	// AuthEnabled turns on token authentication and RBAC enforcement.
	AuthEnabled bool
	// TelemetryWorker starts the gauge polling worker alongside the server.
	TelemetryWorker bool
}

func truthy(v string) bool {
	return v == "1" || v == "true" || v == "yes"
}

// FromEnv builds a Config from environment variables, with sane defaults.
func FromEnv() Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}
	driver := os.Getenv("AQUAMETER_DB_DRIVER")
	if driver == "" {
		driver = "sqlite"
	}
	dsn := os.Getenv("AQUAMETER_DB_DSN")
	if dsn == "" && driver == "sqlite" {
		dsn = "aquameter.db"
	}
	return Config{
		Port:            port,
		DBDriver:        driver,
		DBDSN:           dsn,
		AutoMigrate:     truthy(os.Getenv("AQUAMETER_AUTO_MIGRATE")),
		AuthEnabled:     truthy(os.Getenv("AQUAMETER_AUTH")),
		TelemetryWorker: truthy(os.Getenv("AQUAMETER_TELEMETRY_WORKER")),
	}
}
