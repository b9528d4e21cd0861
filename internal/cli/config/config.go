// Package config loads the taskflow binary's configuration: connection
// strings for its infrastructure (Postgres, Redis, Kafka), and the
// scheduling envelope (working hours, slot pool, per-day cap) the core
// treats as immutable for the process lifetime.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/adil-adysh/plan-flow/internal/domain"
)

// TimeSlotConfig is the YAML/env shape of a domain.TimeSlot.
type TimeSlotConfig struct {
	Name  string `mapstructure:"name"`
	Start string `mapstructure:"start"`
	End   string `mapstructure:"end"`
}

// WorkingHoursConfig is the YAML/env shape of a domain.WorkingHours.
type WorkingHoursConfig struct {
	Day          string   `mapstructure:"day"`
	Start        string   `mapstructure:"start"`
	End          string   `mapstructure:"end"`
	AllowedSlots []string `mapstructure:"allowed_slots"`
}

// Config holds typed configuration for the taskflow service.
type Config struct {
	LogLevel     string
	HTTPPort     string
	MetricsAddr  string
	KafkaBrokers string
	RedisAddr    string
	PostgresDSN  string
	OTelEndpoint string

	SMTPHost     string
	SMTPPort     int
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	RateLimitPerMinute int

	MaxPerDay    int
	WorkingHours []domain.WorkingHours
	SlotPool     []domain.TimeSlot
}

// Load reads all values from the given viper instance, parsing the
// scheduling envelope's time-of-day strings ("HH:MM:SS" or "HH:MM") into
// domain.TimeOfDay values.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		LogLevel:           v.GetString("log_level"),
		HTTPPort:           v.GetString("http_port"),
		MetricsAddr:        v.GetString("metrics_addr"),
		KafkaBrokers:       v.GetString("kafka_brokers"),
		RedisAddr:          v.GetString("redis_addr"),
		PostgresDSN:        v.GetString("postgres_dsn"),
		OTelEndpoint:       v.GetString("otel_endpoint"),
		SMTPHost:           v.GetString("smtp_host"),
		SMTPPort:           v.GetInt("smtp_port"),
		SMTPFrom:           v.GetString("smtp_from"),
		SMTPUsername:       v.GetString("smtp_username"),
		SMTPPassword:       v.GetString("smtp_password"),
		RateLimitPerMinute: v.GetInt("rate_limit_per_minute"),
		MaxPerDay:          v.GetInt("max_per_day"),
	}

	var slots []TimeSlotConfig
	if err := v.UnmarshalKey("slot_pool", &slots); err != nil {
		return Config{}, fmt.Errorf("parse slot_pool: %w", err)
	}
	for _, s := range slots {
		start, err := parseTimeOfDay(s.Start)
		if err != nil {
			return Config{}, fmt.Errorf("slot %q start: %w", s.Name, err)
		}
		end, err := parseTimeOfDay(s.End)
		if err != nil {
			return Config{}, fmt.Errorf("slot %q end: %w", s.Name, err)
		}
		cfg.SlotPool = append(cfg.SlotPool, domain.TimeSlot{Name: s.Name, Start: start, End: end})
	}

	var hours []WorkingHoursConfig
	if err := v.UnmarshalKey("working_hours", &hours); err != nil {
		return Config{}, fmt.Errorf("parse working_hours: %w", err)
	}
	for _, h := range hours {
		start, err := parseTimeOfDay(h.Start)
		if err != nil {
			return Config{}, fmt.Errorf("working hours %q start: %w", h.Day, err)
		}
		end, err := parseTimeOfDay(h.End)
		if err != nil {
			return Config{}, fmt.Errorf("working hours %q end: %w", h.Day, err)
		}
		cfg.WorkingHours = append(cfg.WorkingHours, domain.WorkingHours{
			Day:          domain.Weekday(strings.ToLower(h.Day)),
			Start:        start,
			End:          end,
			AllowedSlots: h.AllowedSlots,
		})
	}

	return cfg, nil
}

func parseTimeOfDay(s string) (domain.TimeOfDay, error) {
	layouts := []string{"15:04:05", "15:04"}
	var lastErr error
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return domain.TimeOfDayFrom(t), nil
		} else {
			lastErr = err
		}
	}
	return 0, fmt.Errorf("parse time-of-day %q: %w", s, lastErr)
}
