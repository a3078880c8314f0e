package config

const (
	defaultPort                = 8080
	defaultDBPath              = "./data/worktime.db"
	defaultNotificationBackend = "sqlite"
	defaultRedisAddr           = "localhost:6379"
	defaultGreenHours          = 5
	defaultRedHours            = 10
	defaultSchedulerInterval   = 60
	defaultSchedulerLookback   = 7
	defaultSchedulerWorkers    = 4
	defaultLogLevel            = "info"
	defaultLogFormat           = "text"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Server: Server{
			Port:        defaultPort,
			CORSOrigins: []string{"http://localhost:5173", "http://localhost:3000"},
		},
		Storage: Storage{
			DBPath:              defaultDBPath,
			NotificationBackend: defaultNotificationBackend,
			RedisAddr:           defaultRedisAddr,
		},
		Compliance: Compliance{
			WorkWeek:           []string{"mon", "tue", "wed", "thu", "fri"},
			IncludeMissingDays: true,
		},
		Flex: Flex{
			GreenHours:         defaultGreenHours,
			RedHours:           defaultRedHours,
			IncludeMissingDays: true,
		},
		Scheduler: Scheduler{
			Enabled:         true,
			IntervalMinutes: defaultSchedulerInterval,
			LookbackDays:    defaultSchedulerLookback,
			Workers:         defaultSchedulerWorkers,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
