package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort              string
	ServerReadHeaderTimeout time.Duration
	ServerWriteTimeout      time.Duration
	ServerIdleTimeout       time.Duration
	RequestTimeout          time.Duration

	FrontendOrigin string

	SessionSecret string
	SessionTTL    time.Duration
	UsersFile     string

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	RateLimitRPM     int
	AuthRateLimitRPM int

	Databricks DatabricksConfig
}

// DatabricksConfig holds the coordinates of the external analytics platform.
// It is not validated at load time: the token minter checks the values it
// needs before making any network call, so a login-only demo still boots
// without a workspace configured.
type DatabricksConfig struct {
	WorkspaceURL    string
	ClientID        string
	ClientSecret    string
	DashboardID     string
	WorkspaceID     string
	WarehouseID     string
	UpstreamTimeout time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:              getEnv("SERVER_PORT", "8080"),
		ServerReadHeaderTimeout: getDuration("SERVER_READ_HEADER_TIMEOUT", 15*time.Second),
		ServerWriteTimeout:      getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		ServerIdleTimeout:       getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout:          getDuration("REQUEST_TIMEOUT", 60*time.Second),
		FrontendOrigin:          getEnv("FRONTEND_ORIGIN", "http://localhost:3000"),
		SessionSecret:           strings.TrimSpace(os.Getenv("SESSION_SECRET")),
		SessionTTL:              getDuration("SESSION_TTL", 12*time.Hour),
		UsersFile:               getEnv("USERS_FILE", "./users.json"),
		DatabaseURL:             strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:              int32(getInt("DB_MAX_CONNS", 8)),
		DBMinConns:              int32(getInt("DB_MIN_CONNS", 0)),
		RateLimitRPM:            getInt("RATE_LIMIT_RPM", 100),
		AuthRateLimitRPM:        getInt("AUTH_RATE_LIMIT_RPM", 10),
		Databricks: DatabricksConfig{
			WorkspaceURL:    strings.TrimRight(getEnv("DATABRICKS_WORKSPACE_URL", ""), "/"),
			ClientID:        getEnv("DATABRICKS_CLIENT_ID", ""),
			ClientSecret:    getEnv("DATABRICKS_CLIENT_SECRET", ""),
			DashboardID:     getEnv("DATABRICKS_DASHBOARD_ID", ""),
			WorkspaceID:     getEnv("DATABRICKS_WORKSPACE_ID", ""),
			WarehouseID:     getEnv("DATABRICKS_WAREHOUSE_ID", ""),
			UpstreamTimeout: getDuration("UPSTREAM_TIMEOUT", 30*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.SessionSecret) == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}

	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT cannot be empty")
	}

	if strings.TrimSpace(c.FrontendOrigin) == "" {
		return fmt.Errorf("FRONTEND_ORIGIN cannot be empty")
	}

	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}

	if strings.TrimSpace(c.UsersFile) == "" {
		return fmt.Errorf("USERS_FILE cannot be empty")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	return nil
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}
