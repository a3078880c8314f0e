package config

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateCompliance(); err != nil {
		return err
	}
	if err := c.validateFlex(); err != nil {
		return err
	}
	if err := c.validateScheduler(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	return nil
}

func (c *Config) validateStorage() error {
	if c.Storage.DBPath == "" {
		return errors.New("storage.db_path must be set")
	}
	switch c.Storage.NotificationBackend {
	case "sqlite":
	case "redis":
		if c.Storage.RedisAddr == "" {
			return errors.New("storage.redis_addr must be set for the redis backend")
		}
	default:
		return fmt.Errorf("storage.notification_backend must be sqlite or redis, got %q", c.Storage.NotificationBackend)
	}
	return nil
}

func (c *Config) validateCompliance() error {
	week, err := c.WorkWeek()
	if err != nil {
		return fmt.Errorf("compliance.work_week: %w", err)
	}
	if week.Len() == 0 {
		return errors.New("compliance.work_week must name at least one day")
	}
	return nil
}

func (c *Config) validateFlex() error {
	if c.Flex.GreenHours < 0 {
		return fmt.Errorf("flex.green_hours must be non-negative, got %v", c.Flex.GreenHours)
	}
	if c.Flex.RedHours < c.Flex.GreenHours {
		return fmt.Errorf("flex.red_hours (%v) must not be below flex.green_hours (%v)", c.Flex.RedHours, c.Flex.GreenHours)
	}
	return nil
}

func (c *Config) validateScheduler() error {
	if !c.Scheduler.Enabled {
		return nil
	}
	if c.Scheduler.IntervalMinutes <= 0 {
		return errors.New("scheduler.interval_minutes must be positive")
	}
	if c.Scheduler.LookbackDays <= 0 {
		return errors.New("scheduler.lookback_days must be positive")
	}
	if c.Scheduler.Workers <= 0 {
		return errors.New("scheduler.workers must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch c.Logging.Format {
	case "text", "json":
		return nil
	}
	return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
}
