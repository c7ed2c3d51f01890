// Package config loads credentials from the environment and user
// settings from the JSON settings file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"

	"github.com/jpravetz/stravaexport/internal/errs"
	"github.com/jpravetz/stravaexport/internal/models"
	"github.com/jpravetz/stravaexport/internal/spatial"
	"github.com/jpravetz/stravaexport/internal/strava"
)

const settingsDir = ".stravaexport"

// Config is the fully resolved application configuration.
type Config struct {
	Credentials strava.Credentials
	AthleteID   string
	DBPath      string

	Settings Settings

	// MotoPattern matches bike labels that mark motorized gear.
	MotoPattern *regexp.Regexp
	// Zones are the compiled blackout rectangles.
	Zones []spatial.Zone
}

// Settings is the on-disk shape of ~/.stravaexport/settings.json.
type Settings struct {
	// Bikes maps Strava gear IDs to display labels.
	Bikes map[string]string `json:"bikes"`
	// MotoBikes are regexp patterns; a bike label matching any of them
	// is treated as motorized.
	MotoBikes []string `json:"motoBikes"`
	// SegmentAliases maps raw segment names to friendly ones.
	SegmentAliases map[string]string `json:"segmentAliases"`
	// LineStyles overrides the built-in KML styles per category.
	LineStyles map[string]models.LineStyle `json:"lineStyles"`
	// BlackoutZones are privacy rectangles given by two opposite
	// corners in any order.
	BlackoutZones []ZoneConfig `json:"blackoutZones"`
}

// ZoneConfig is one blackout rectangle in the settings file.
type ZoneConfig struct {
	Name    string `json:"name"`
	CornerA LatLng `json:"cornerA"`
	CornerB LatLng `json:"cornerB"`
}

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Load reads the environment (honoring a .env file when present) and
// the settings file. A missing settings file yields empty settings; a
// malformed one is an error.
func Load(settingsPath string) (*Config, error) {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg := &Config{
		Credentials: strava.Credentials{
			ClientID:     os.Getenv("STRAVA_CLIENT_ID"),
			ClientSecret: os.Getenv("STRAVA_CLIENT_SECRET"),
			RefreshToken: os.Getenv("STRAVA_REFRESH_TOKEN"),
		},
		AthleteID: os.Getenv("STRAVA_ATHLETE_ID"),
		DBPath:    os.Getenv("STRAVAEXPORT_DB"),
	}

	if cfg.Credentials.ClientID == "" {
		return nil, &errs.ConfigError{Field: "STRAVA_CLIENT_ID", Reason: "not set"}
	}
	if cfg.Credentials.ClientSecret == "" {
		return nil, &errs.ConfigError{Field: "STRAVA_CLIENT_SECRET", Reason: "not set"}
	}
	if cfg.Credentials.RefreshToken == "" {
		return nil, &errs.ConfigError{Field: "STRAVA_REFRESH_TOKEN", Reason: "not set"}
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(homeDir(), settingsDir, "segments.db")
	}

	if settingsPath == "" {
		settingsPath = filepath.Join(homeDir(), settingsDir, "settings.json")
	}
	settings, err := loadSettings(settingsPath)
	if err != nil {
		return nil, err
	}
	cfg.Settings = settings

	if cfg.MotoPattern, err = compileMotoPattern(settings.MotoBikes); err != nil {
		return nil, err
	}
	if cfg.Zones, err = compileZones(settings.BlackoutZones); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MotoGear returns the gear IDs whose labels match the moto pattern.
func (c *Config) MotoGear() map[string]bool {
	out := make(map[string]bool)
	if c.MotoPattern == nil {
		return out
	}
	for gearID, label := range c.Settings.Bikes {
		if c.MotoPattern.MatchString(label) {
			out[gearID] = true
		}
	}
	return out
}

func loadSettings(path string) (Settings, error) {
	var s Settings
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("read settings %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, &errs.ConfigError{Field: path, Reason: err.Error()}
	}
	return s, nil
}

// compileMotoPattern joins the individual patterns into one
// alternation.
func compileMotoPattern(patterns []string) (*regexp.Regexp, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	joined := "(?:" + strings.Join(patterns, ")|(?:") + ")"
	re, err := regexp.Compile(joined)
	if err != nil {
		return nil, &errs.ConfigError{Field: "motoBikes", Reason: err.Error()}
	}
	return re, nil
}

func compileZones(zones []ZoneConfig) ([]spatial.Zone, error) {
	out := make([]spatial.Zone, 0, len(zones))
	for _, z := range zones {
		if !validLat(z.CornerA.Lat) || !validLat(z.CornerB.Lat) ||
			!validLng(z.CornerA.Lng) || !validLng(z.CornerB.Lng) {
			return nil, &errs.ConfigError{
				Field:  "blackoutZones",
				Reason: fmt.Sprintf("zone %q has out-of-range coordinates", z.Name),
			}
		}
		out = append(out, spatial.NewZone(z.CornerA.Lat, z.CornerA.Lng, z.CornerB.Lat, z.CornerB.Lng))
	}
	return out, nil
}

func validLat(v float64) bool { return v >= -90 && v <= 90 }
func validLng(v float64) bool { return v >= -180 && v <= 180 }

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
