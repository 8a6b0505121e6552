package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string
	LogColor  bool

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL    string
	DBMaxConns     int32
	DBMinConns     int32
	MigrateOnStart bool

	// CORS policy for browser clients. Empty origins means CORS headers are
	// never emitted and cross-origin browser requests fail preflight.
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
	CORSMaxAgeSeconds    int

	// SessionPurgeInterval controls the background sweep that deletes expired
	// refresh-token rows. Zero disables the sweep.
	SessionPurgeInterval time.Duration

	// Security policy:
	// If true, TASKBOARD_TOKEN_HMAC_KEY MUST be set (>= 32 bytes) so stored
	// refresh-token hashes are keyed.
	RequireTokenHMAC bool

	// First-run bootstrap: when the users table holds no admin and these are
	// set, an admin account is created at startup.
	BootstrapAdminName     string
	BootstrapAdminEmail    string
	BootstrapAdminPassword string
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("TASKBOARD_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("TASKBOARD_LOG_LEVEL", "info"),
		LogFormat: EnvString("TASKBOARD_LOG_FORMAT", "json"),
		LogColor:  EnvBool("TASKBOARD_LOG_COLOR", false),

		ReadHeaderTimeout: EnvDuration("TASKBOARD_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("TASKBOARD_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("TASKBOARD_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("TASKBOARD_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("TASKBOARD_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL:    EnvString("TASKBOARD_DATABASE_URL", ""),
		DBMaxConns:     EnvInt32("TASKBOARD_DB_MAX_CONNS", 10),
		DBMinConns:     EnvInt32("TASKBOARD_DB_MIN_CONNS", 0),
		MigrateOnStart: EnvBool("TASKBOARD_DB_MIGRATE", true),

		CORSAllowedOrigins:   EnvCSV("TASKBOARD_CORS_ALLOWED_ORIGINS", nil),
		CORSAllowCredentials: EnvBool("TASKBOARD_CORS_ALLOW_CREDENTIALS", false),
		CORSMaxAgeSeconds:    EnvInt("TASKBOARD_CORS_MAX_AGE_SECONDS", 600),

		SessionPurgeInterval: EnvDuration("TASKBOARD_SESSION_PURGE_INTERVAL", time.Hour),

		RequireTokenHMAC: EnvBool("TASKBOARD_REQUIRE_TOKEN_HMAC", false),

		BootstrapAdminName:     EnvString("TASKBOARD_BOOTSTRAP_ADMIN_NAME", "Administrator"),
		BootstrapAdminEmail:    EnvString("TASKBOARD_BOOTSTRAP_ADMIN_EMAIL", ""),
		BootstrapAdminPassword: EnvString("TASKBOARD_BOOTSTRAP_ADMIN_PASSWORD", ""),
	}
}
