// Package config loads service and tracker settings from an env file and the
// process environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds every setting read by cmd/api and cmd/tracker.
type Config struct {
	ServerPort   string `mapstructure:"SERVER_PORT" validate:"required,numeric"`
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	JWTSecret    string `mapstructure:"JWT_SECRET" validate:"required,min=16"`
	ClientOrigin string `mapstructure:"CLIENT_ORIGIN" validate:"omitempty,url"`

	GoogleMapsAPIKey string  `mapstructure:"GOOGLE_MAPS_API_KEY"`
	AverageSpeedKMH  float64 `mapstructure:"AVERAGE_SPEED_KMH" validate:"gt=0"`

	AMQPURL       string `mapstructure:"AMQP_URL" validate:"omitempty,url"`
	LocationQueue string `mapstructure:"LOCATION_QUEUE" validate:"required"`
	AWSRegion     string `mapstructure:"AWS_REGION"`
	EmailFrom     string `mapstructure:"EMAIL_FROM" validate:"omitempty,email"`

	Tracker TrackerConfig `mapstructure:",squash"`
}

// TrackerConfig tunes the live tracking widget.
type TrackerConfig struct {
	APIURL               string        `mapstructure:"TRACKER_API_URL" validate:"omitempty,url"`
	FeedURL              string        `mapstructure:"TRACKER_FEED_URL" validate:"omitempty,url"`
	PollInterval         time.Duration `mapstructure:"TRACKER_POLL_INTERVAL" validate:"gt=0"`
	ReconnectBackoff     time.Duration `mapstructure:"TRACKER_RECONNECT_BACKOFF" validate:"gt=0"`
	MaxReconnectAttempts int           `mapstructure:"TRACKER_MAX_RECONNECT_ATTEMPTS" validate:"gte=0"`
	PushIdleTimeout      time.Duration `mapstructure:"TRACKER_PUSH_IDLE_TIMEOUT" validate:"gte=0"`
	AnimationDuration    time.Duration `mapstructure:"TRACKER_ANIMATION_DURATION" validate:"gt=0"`
	FitPaddingPx         int           `mapstructure:"TRACKER_FIT_PADDING_PX" validate:"gte=0"`
}

var defaults = map[string]interface{}{
	"SERVER_PORT":                    "8080",
	"AVERAGE_SPEED_KMH":              30.0,
	"LOCATION_QUEUE":                 "driver.location",
	"AWS_REGION":                     "us-east-1",
	"TRACKER_API_URL":                "http://localhost:8080",
	"TRACKER_FEED_URL":               "ws://localhost:8080",
	"TRACKER_POLL_INTERVAL":          "5s",
	"TRACKER_RECONNECT_BACKOFF":      "5s",
	"TRACKER_MAX_RECONNECT_ATTEMPTS": 12,
	"TRACKER_PUSH_IDLE_TIMEOUT":      "0s",
	"TRACKER_ANIMATION_DURATION":     "1s",
	"TRACKER_FIT_PADDING_PX":         100,
}

// LoadConfig reads app.env from path (if present) and overlays environment
// variables. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	// AutomaticEnv only covers keys viper already knows about.
	for _, key := range []string{"DATABASE_URL", "JWT_SECRET", "CLIENT_ORIGIN", "GOOGLE_MAPS_API_KEY", "AMQP_URL", "EMAIL_FROM"} {
		v.SetDefault(key, "")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config.LoadConfig read: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config.LoadConfig unmarshal: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config.LoadConfig validate: %w", err)
	}
	return &cfg, nil
}
