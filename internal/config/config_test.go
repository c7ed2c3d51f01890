package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jpravetz/stravaexport/internal/errs"
)

const sampleSettings = `{
	"bikes": {"b123": "Cannondale", "b456": "KTM 390"},
	"motoBikes": ["KTM.*", "Husqvarna"],
	"segmentAliases": {"Foo": "Foo Hill"},
	"lineStyles": {"Ride": {"color": "FF112233", "width": 2}},
	"blackoutZones": [
		{"name": "home", "cornerA": {"lat": 46.6, "lng": 7.3}, "cornerB": {"lat": 46.5, "lng": 7.2}}
	]
}`

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func setCredentials(t *testing.T) {
	t.Setenv("STRAVA_CLIENT_ID", "123")
	t.Setenv("STRAVA_CLIENT_SECRET", "secret")
	t.Setenv("STRAVA_REFRESH_TOKEN", "token")
	t.Setenv("STRAVAEXPORT_DB", filepath.Join(t.TempDir(), "segments.db"))
}

func TestLoadSettings(t *testing.T) {
	setCredentials(t)
	cfg, err := Load(writeSettings(t, sampleSettings))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Settings.Bikes["b123"] != "Cannondale" {
		t.Errorf("bikes not loaded: %v", cfg.Settings.Bikes)
	}
	if cfg.Settings.SegmentAliases["Foo"] != "Foo Hill" {
		t.Errorf("aliases not loaded")
	}
	if len(cfg.Zones) != 1 {
		t.Fatalf("expected 1 zone, got %d", len(cfg.Zones))
	}
	// Corners given in reversed order still contain interior points.
	if !cfg.Zones[0].Contains(46.55, 7.25) {
		t.Errorf("zone does not contain interior point")
	}

	moto := cfg.MotoGear()
	if !moto["b456"] || moto["b123"] {
		t.Errorf("moto gear detection wrong: %v", moto)
	}
}

func TestLoadMissingSettingsFileIsEmpty(t *testing.T) {
	setCredentials(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("missing settings file must not fail: %v", err)
	}
	if len(cfg.Settings.Bikes) != 0 || len(cfg.Zones) != 0 {
		t.Errorf("expected empty settings, got %+v", cfg.Settings)
	}
}

func TestLoadMalformedSettings(t *testing.T) {
	setCredentials(t)
	_, err := Load(writeSettings(t, "{not json"))

	var ce *errs.ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestLoadMissingCredentials(t *testing.T) {
	t.Setenv("STRAVA_CLIENT_ID", "")
	t.Setenv("STRAVA_CLIENT_SECRET", "secret")
	t.Setenv("STRAVA_REFRESH_TOKEN", "token")

	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	var ce *errs.ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigError for missing client id, got %v", err)
	}
	if ce.Field != "STRAVA_CLIENT_ID" {
		t.Errorf("wrong field reported: %s", ce.Field)
	}
}

func TestBadMotoPattern(t *testing.T) {
	setCredentials(t)
	_, err := Load(writeSettings(t, `{"motoBikes": ["[unclosed"]}`))

	var ce *errs.ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigError for bad pattern, got %v", err)
	}
}

func TestOutOfRangeZone(t *testing.T) {
	setCredentials(t)
	_, err := Load(writeSettings(t,
		`{"blackoutZones": [{"name": "bad", "cornerA": {"lat": 99, "lng": 0}, "cornerB": {"lat": 0, "lng": 0}}]}`))

	var ce *errs.ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigError for out-of-range zone, got %v", err)
	}
}
