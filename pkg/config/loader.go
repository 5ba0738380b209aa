package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/app/configs")

	viper.SetEnvPrefix("STATION")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.BindEnv("tcp.port", "TCP_PORT", "STATION_TCP_PORT")
	viper.BindEnv("http.port", "HTTP_PORT", "STATION_HTTP_PORT")
	viper.BindEnv("database.url", "DATABASE_URL", "STATION_DATABASE_URL")
	viper.BindEnv("redis.url", "REDIS_URL", "STATION_REDIS_URL")
	viper.BindEnv("event_bus.url", "EVENT_BUS_URL", "STATION_EVENT_BUS_URL")
	viper.BindEnv("jwt.secret", "JWT_SECRET", "STATION_JWT_SECRET")
	viper.BindEnv("vault.token", "VAULT_TOKEN")
	viper.BindEnv("app.environment", "STATION_ENVIRONMENT")
	viper.BindEnv("logging.level", "LOG_LEVEL")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("tcp.port", 8888)
	viper.SetDefault("tcp.max_connections", 64)
	viper.SetDefault("http.port", 3000)
	viper.SetDefault("station.main_queue_capacity", 10)
	viper.SetDefault("station.fast_pile_count", 2)
	viper.SetDefault("station.trickle_pile_count", 3)
	viper.SetDefault("station.fast_power_kw", 30.0)
	viper.SetDefault("station.trickle_power_kw", 10.0)
	viper.SetDefault("station.scheduler_tick", "5s")
	viper.SetDefault("station.persistence_dir", "./data")
	viper.SetDefault("station.persistence_backups", 5)
	viper.SetDefault("event_bus.backend", "nats")
	viper.SetDefault("email.provider", "smtp")
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}
