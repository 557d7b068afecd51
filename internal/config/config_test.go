package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psford/t-tracker/internal/animation"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
feed:
  url: https://api-v3.mbta.com/vehicles
  apiKey: secret
  routeTypes: "0,1"
catalog:
  source: https://cdn.mbta.com/MBTA_GTFS.zip
animation:
  fadeIn: 250ms
  interpolate: 2s
  snapThresholdMeters: 750
notifications:
  rulesDbPath: /tmp/rules.db
  strictDirection: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://api-v3.mbta.com/vehicles", cfg.Feed.URL)
	assert.Equal(t, "secret", cfg.Feed.APIKey)
	assert.Equal(t, "0,1", cfg.Feed.RouteTypes)
	assert.Equal(t, "/tmp/rules.db", cfg.Notifications.RulesDBPath)
	assert.True(t, cfg.Notifications.StrictDirection)

	sc := cfg.StreamConfig()
	assert.Equal(t, cfg.Feed.URL, sc.FeedURL)
	assert.Equal(t, "secret", sc.APIKey)

	ac, err := cfg.AnimationConfig()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, ac.FadeIn)
	assert.Equal(t, 2*time.Second, ac.Interpolate)
	assert.Equal(t, 750.0, ac.SnapThresholdMeters)
	// Untouched fields keep their defaults.
	assert.Equal(t, animation.DefaultConfig().FadeOut, ac.FadeOut)
	assert.Equal(t, animation.DefaultConfig().ExtrapolationHorizon, ac.ExtrapolationHorizon)
}

func TestLoadMinimalConfigAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
feed:
  url: https://api-v3.mbta.com/vehicles
catalog:
  source: ./gtfs.zip
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tracker_rules.db", cfg.Notifications.RulesDBPath)

	ac, err := cfg.AnimationConfig()
	require.NoError(t, err)
	assert.Equal(t, animation.DefaultConfig(), ac)
}

func TestLoadRejectsMissingFeedURL(t *testing.T) {
	path := writeConfig(t, `
catalog:
  source: ./gtfs.zip
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsInvalidFeedURL(t *testing.T) {
	path := writeConfig(t, `
feed:
  url: not-a-url
catalog:
  source: ./gtfs.zip
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	assert.Error(t, err)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeConfig(t, "feed: [unbalanced")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestAnimationConfigRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, `
feed:
  url: https://api-v3.mbta.com/vehicles
catalog:
  source: ./gtfs.zip
animation:
  fadeIn: sideways
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	_, err = cfg.AnimationConfig()
	assert.Error(t, err)
}
