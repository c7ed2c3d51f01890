// Package segments filters a detailed activity's effort list against the
// starred-segment allowlist and resolves display names.
package segments

import (
	"sort"
	"strings"

	"github.com/jpravetz/stravaexport/internal/errs"
	"github.com/jpravetz/stravaexport/internal/models"
)

// Attach returns the efforts of a detailed activity whose segment is in
// the starred set, with display names resolved against the alias map.
// The raw efforts are never mutated; each result is a fresh record.
//
// Name resolution, first match wins: exact alias lookup, case-insensitive
// alias lookup, the trimmed raw name, then "Unknown" when the raw name
// is absent. Lookups use the trimmed raw name, since the upstream data
// carries stray whitespace on some segment names.
func Attach(act *models.DetailedActivity, starred map[int64]bool, aliases map[string]string) ([]models.AttachedEffort, error) {
	if act == nil {
		return nil, &errs.PreconditionError{
			Op:     "segments.Attach",
			Reason: "segment efforts require the detailed activity variant",
		}
	}

	var attached []models.AttachedEffort
	for _, e := range act.SegmentEfforts {
		if !starred[e.Segment.ID] {
			continue
		}
		attached = append(attached, models.AttachedEffort{
			SegmentID:   e.Segment.ID,
			Name:        resolveName(e.Segment.Name, aliases),
			ElapsedTime: e.ElapsedTime,
			MovingTime:  e.MovingTime,
			Distance:    e.Distance,
		})
	}

	return attached, nil
}

func resolveName(raw string, aliases map[string]string) string {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "Unknown"
	}

	if alias, ok := aliases[name]; ok {
		return alias
	}
	// Sorted keys keep the case-insensitive pass deterministic when
	// two alias keys differ only in case.
	keys := make([]string, 0, len(aliases))
	for k := range aliases {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.EqualFold(k, name) {
			return aliases[k]
		}
	}

	return name
}
