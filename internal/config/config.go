// Package config loads the tracker's file configuration: feed connection
// settings, stop catalog source, and animation tuning overrides. Values
// omitted from the file keep their defaults, so partial configs are safe.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/psford/t-tracker/internal/animation"
	"github.com/psford/t-tracker/internal/stream"
)

// FeedConfig selects the vehicle stream.
type FeedConfig struct {
	URL        string `yaml:"url" validate:"required,url"`
	APIKey     string `yaml:"apiKey"`
	RouteTypes string `yaml:"routeTypes"`
}

// CatalogConfig selects the GTFS static source for the stop catalog.
type CatalogConfig struct {
	Source string `yaml:"source" validate:"required"`
}

// AnimationConfig overrides animation tuning. Durations are Go duration
// strings like "500ms".
type AnimationConfig struct {
	FadeIn               string   `yaml:"fadeIn"`
	FadeOut              string   `yaml:"fadeOut"`
	Interpolate          string   `yaml:"interpolate"`
	SnapThresholdMeters  *float64 `yaml:"snapThresholdMeters" validate:"omitempty,gt=0"`
	MinMovementMeters    *float64 `yaml:"minMovementMeters" validate:"omitempty,gte=0"`
	SpeedFloor           *float64 `yaml:"speedFloorMetersPerSec" validate:"omitempty,gte=0"`
	ExtrapolationHorizon string   `yaml:"extrapolationHorizon"`
}

// NotificationsConfig tunes the matcher.
type NotificationsConfig struct {
	RulesDBPath     string `yaml:"rulesDbPath"`
	StrictDirection bool   `yaml:"strictDirection"`
}

// AppConfig is the root configuration structure.
type AppConfig struct {
	Feed          FeedConfig          `yaml:"feed" validate:"required"`
	Catalog       CatalogConfig       `yaml:"catalog" validate:"required"`
	Animation     AnimationConfig     `yaml:"animation"`
	Notifications NotificationsConfig `yaml:"notifications"`
}

// Load reads and validates the configuration file at path.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.Notifications.RulesDBPath == "" {
		cfg.Notifications.RulesDBPath = "tracker_rules.db"
	}
	return &cfg, nil
}

// StreamConfig converts the feed section into the stream client's config.
func (c *AppConfig) StreamConfig() stream.Config {
	return stream.Config{
		FeedURL:    c.Feed.URL,
		APIKey:     c.Feed.APIKey,
		RouteTypes: c.Feed.RouteTypes,
	}
}

// AnimationConfig merges the file's overrides onto the animation defaults.
func (c *AppConfig) AnimationConfig() (animation.Config, error) {
	out := animation.DefaultConfig()

	apply := func(value string, dst *time.Duration) error {
		if value == "" {
			return nil
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		*dst = d
		return nil
	}

	if err := apply(c.Animation.FadeIn, &out.FadeIn); err != nil {
		return out, err
	}
	if err := apply(c.Animation.FadeOut, &out.FadeOut); err != nil {
		return out, err
	}
	if err := apply(c.Animation.Interpolate, &out.Interpolate); err != nil {
		return out, err
	}
	if err := apply(c.Animation.ExtrapolationHorizon, &out.ExtrapolationHorizon); err != nil {
		return out, err
	}
	if c.Animation.SnapThresholdMeters != nil {
		out.SnapThresholdMeters = *c.Animation.SnapThresholdMeters
	}
	if c.Animation.MinMovementMeters != nil {
		out.MinMovementMeters = *c.Animation.MinMovementMeters
	}
	if c.Animation.SpeedFloor != nil {
		out.SpeedFloorMetersPerSec = *c.Animation.SpeedFloor
	}
	return out, nil
}
