package export

import (
	"log"
	"regexp"
	"sort"

	"github.com/jpravetz/stravaexport/internal/errs"
	"github.com/jpravetz/stravaexport/internal/models"
)

// colors are KML AABBGGRR hex.
var defaultStyles = map[string]models.LineStyle{
	models.StyleDefault:         {Color: "C00000FF", Width: 4},
	models.StyleCommute:         {Color: "C085C2C2", Width: 4},
	models.StyleMoto:            {Color: "C06414FA", Width: 4},
	models.StyleSegment:         {Color: "C0FFFB00", Width: 6},
	string(models.Ride):         {Color: "C00000A5", Width: 4},
	string(models.EBikeRide):    {Color: "C00000A5", Width: 4},
	string(models.VirtualRide):  {Color: "C0FF0000", Width: 4},
	string(models.Run):          {Color: "C000FF00", Width: 4},
	string(models.Hike):         {Color: "C0FF00FF", Width: 4},
	string(models.Walk):         {Color: "C0FF0080", Width: 4},
}

var colorPattern = regexp.MustCompile(`^[0-9A-Fa-f]{8}$`)

// StyleTable is the immutable line-style registry used by a writer. It
// is merged once from the defaults and the user's overrides before any
// document is written.
type StyleTable struct {
	styles map[string]models.LineStyle
}

// NewStyleTable merges user overrides over the default styles. Invalid
// overrides are reported with a ConfigError in the log and skipped, so
// the default for that category stays in effect.
func NewStyleTable(overrides map[string]models.LineStyle) *StyleTable {
	merged := make(map[string]models.LineStyle, len(defaultStyles)+len(overrides))
	for k, v := range defaultStyles {
		merged[k] = v
	}
	for k, v := range overrides {
		if err := validateStyle(k, v); err != nil {
			log.Printf("export: ignoring line style: %v", err)
			continue
		}
		merged[k] = v
	}
	return &StyleTable{styles: merged}
}

func validateStyle(category string, s models.LineStyle) error {
	if !colorPattern.MatchString(s.Color) {
		return &errs.ConfigError{Field: "lineStyles." + category, Reason: "color must be 8 hex digits (AABBGGRR)"}
	}
	if s.Width < 1 || s.Width > 32 {
		return &errs.ConfigError{Field: "lineStyles." + category, Reason: "width out of range"}
	}
	return nil
}

// Category resolves the one style category for an activity. Precedence
// is Moto over Commute over the activity-type style over Default.
func (t *StyleTable) Category(doc ActivityDoc) string {
	switch {
	case doc.IsMoto:
		return models.StyleMoto
	case doc.Activity.Commute:
		return models.StyleCommute
	default:
		if _, ok := t.styles[string(doc.Activity.Type)]; ok {
			return string(doc.Activity.Type)
		}
		return models.StyleDefault
	}
}

// Get returns the style for a category, falling back to Default.
func (t *StyleTable) Get(category string) models.LineStyle {
	if s, ok := t.styles[category]; ok {
		return s
	}
	return t.styles[models.StyleDefault]
}

// Categories returns all configured categories in sorted order, which
// fixes the order of the style block in the KML header.
func (t *StyleTable) Categories() []string {
	cats := make([]string, 0, len(t.styles))
	for k := range t.styles {
		cats = append(cats, k)
	}
	sort.Strings(cats)
	return cats
}

// StyleID returns the KML style id for a category.
func StyleID(category string) string {
	return "StravaLineStyle" + category
}
