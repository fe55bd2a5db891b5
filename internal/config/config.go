// internal/config/config.go
package config

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Watch    WatchConfig
	Transfer TransferConfig
}

type WatchConfig struct {
	Interval time.Duration
}

type TransferConfig struct {
	PartSize        int64
	Concurrency     int
	PartConcurrency int
	RequestTimeout  time.Duration
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		// Set default values
		viper.SetDefault("S4_WATCH_INTERVAL", "60s")
		viper.SetDefault("S4_PART_SIZE", 8<<20)
		viper.SetDefault("S4_CONCURRENCY", 4)
		viper.SetDefault("S4_PART_CONCURRENCY", 4)
		viper.SetDefault("S4_REQUEST_TIMEOUT", "5m")

		// Read from environment variables
		viper.AutomaticEnv()

		interval, err := ParseDuration(viper.GetString("S4_WATCH_INTERVAL"))
		if err != nil {
			interval = 60 * time.Second
		}

		instance = &Config{
			Watch: WatchConfig{
				Interval: interval,
			},
			Transfer: TransferConfig{
				PartSize:        viper.GetInt64("S4_PART_SIZE"),
				Concurrency:     viper.GetInt("S4_CONCURRENCY"),
				PartConcurrency: viper.GetInt("S4_PART_CONCURRENCY"),
				RequestTimeout:  viper.GetDuration("S4_REQUEST_TIMEOUT"),
			},
		}

		if instance.Watch.Interval <= 0 {
			instance.Watch.Interval = 60 * time.Second
		}
		if instance.Transfer.PartSize <= 0 {
			instance.Transfer.PartSize = 8 << 20
		}
		if instance.Transfer.Concurrency <= 0 {
			instance.Transfer.Concurrency = 4
		}
		if instance.Transfer.PartConcurrency <= 0 {
			instance.Transfer.PartConcurrency = 4
		}
	})

	return instance
}

// ParseDuration accepts Go duration syntax plus a whole-day "Nd" form
// that time.ParseDuration lacks, so "365d" means 365×24h.
func ParseDuration(s string) (time.Duration, error) {
	if strings.HasSuffix(s, "d") {
		if n, err := strconv.Atoi(strings.TrimSuffix(s, "d")); err == nil {
			return time.Duration(n) * 24 * time.Hour, nil
		}
	}
	return time.ParseDuration(s)
}
