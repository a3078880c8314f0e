package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// envFile is read when present; a missing file is fine.
var envFile = ".env"

// applyEnv loads .env into the process environment (without overriding
// variables already set) and applies WORKTIME_* overrides.
func (c *Config) applyEnv() error {
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	var err error
	if v, ok := lookup("WORKTIME_PORT"); ok {
		if c.Server.Port, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("WORKTIME_PORT: %w", err)
		}
	}
	if v, ok := lookup("WORKTIME_DB_PATH"); ok {
		c.Storage.DBPath = v
	}
	if v, ok := lookup("WORKTIME_NOTIFICATION_BACKEND"); ok {
		c.Storage.NotificationBackend = strings.ToLower(v)
	}
	if v, ok := lookup("WORKTIME_REDIS_ADDR"); ok {
		c.Storage.RedisAddr = v
	}
	if v, ok := lookup("WORKTIME_CORS_ORIGINS"); ok {
		c.Server.CORSOrigins = splitList(v)
	}
	if v, ok := lookup("WORKTIME_WORK_WEEK"); ok {
		c.Compliance.WorkWeek = splitList(v)
	}
	if v, ok := lookup("WORKTIME_INCLUDE_MISSING_DAYS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("WORKTIME_INCLUDE_MISSING_DAYS: %w", err)
		}
		c.Compliance.IncludeMissingDays = b
		c.Flex.IncludeMissingDays = b
	}
	if v, ok := lookup("WORKTIME_SCHEDULER_ENABLED"); ok {
		if c.Scheduler.Enabled, err = strconv.ParseBool(v); err != nil {
			return fmt.Errorf("WORKTIME_SCHEDULER_ENABLED: %w", err)
		}
	}
	if v, ok := lookup("WORKTIME_LOG_LEVEL"); ok {
		c.Logging.Level = strings.ToLower(v)
	}
	if v, ok := lookup("WORKTIME_LOG_FORMAT"); ok {
		c.Logging.Format = strings.ToLower(v)
	}
	return nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
