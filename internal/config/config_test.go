package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chTempDir(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(origDir) })
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "geodata/census", cfg.Boundary.CacheDir)
	assert.Equal(t, "https://www2.census.gov/geo/tiger/TIGER2020", cfg.Boundary.BaseURL)
	assert.Equal(t, "tl_2020_us_state.zip", cfg.Boundary.StatesFilename)
	assert.Equal(t, "tl_2020_us_zcta510.zip", cfg.Boundary.ZipcodeFilename)
	assert.Equal(t, 600, cfg.Boundary.TimeoutSecs)
	assert.Equal(t, "STUSPS", cfg.Fields.State)
	assert.Equal(t, "ZCTA5CE10", cfg.Fields.Zipcode)
	assert.Equal(t, "", cfg.Fields.Tract)
	assert.Equal(t, "skip", cfg.Fields.OnNoMatch)
	assert.Equal(t, "nominatim", cfg.Geocode.Provider)
	assert.Equal(t, "census-cli/1.0", cfg.Geocode.UserAgent)
	assert.Equal(t, 5, cfg.Geocode.TimeoutSecs)
	assert.Equal(t, 5, cfg.Geocode.Retries)
	assert.InDelta(t, 1.0, cfg.Geocode.RatePerSec, 0.001)
	assert.Equal(t, "geodata/geocode.db", cfg.Geocode.CachePath)
	assert.Equal(t, "https://nominatim.openstreetmap.org", cfg.Geocode.NominatimURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	chTempDir(t)

	yaml := `
boundary:
  cache_dir: /var/cache/census
fields:
  state: "*"
  on_no_match: fail
log:
  level: debug
  format: console
`
	wd, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(wd, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/var/cache/census", cfg.Boundary.CacheDir)
	assert.Equal(t, "*", cfg.Fields.State)
	assert.Equal(t, "fail", cfg.Fields.OnNoMatch)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Defaults still apply for unset values
	assert.Equal(t, "tl_2020_us_state.zip", cfg.Boundary.StatesFilename)
	assert.Equal(t, "ZCTA5CE10", cfg.Fields.Zipcode)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	chTempDir(t)

	wd, _ := os.Getwd()
	yaml := "fields:\n  state: STUSPS\n"
	require.NoError(t, os.WriteFile(filepath.Join(wd, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("CENSUS_FIELDS_STATE", "NAME")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "NAME", cfg.Fields.State)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	assert.Error(t, InitLogger(LogConfig{Level: "nonsense"}))
}
