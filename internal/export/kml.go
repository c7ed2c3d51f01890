package export

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"log"
	"sort"
	"strconv"

	"github.com/jpravetz/stravaexport/internal/models"
)

const (
	kmlNamespace   = "http://www.opengis.net/kml/2.2"
	lapMarkerStyle = "StravaLapMarker"
	lapMarkerIcon  = "http://maps.google.com/mapfiles/kml/shapes/placemark_circle.png"
)

// Options selects the optional content of an export document.
type Options struct {
	Laps         bool // emit lap waypoint markers
	Efforts      bool // append starred-effort lines to descriptions
	MoreDetail   bool // append distance/elevation/time description lines
	FlatSegments bool // one flat Segments folder instead of Country/State nesting
}

// SegmentInfo supplies cached starred-segment rows for description
// enrichment. A nil lookup result means the segment is not cached.
type SegmentInfo interface {
	Get(id int64) (*models.StarredSegment, error)
}

// Writer assembles KML and GPX documents. It is configured once and
// safe to reuse across documents; the style table is immutable.
type Writer struct {
	styles *StyleTable
	info   SegmentInfo
	opts   Options
}

// NewWriter creates a document writer. info may be nil when effort
// enrichment is not requested.
func NewWriter(styles *StyleTable, info SegmentInfo, opts Options) *Writer {
	return &Writer{styles: styles, info: info, opts: opts}
}

// WriteKML writes one KML 2.2 document containing an Activities folder
// and, when segments are given, a Segments section. Activities without
// usable coordinates are omitted from the geometry but logged.
func (w *Writer) WriteKML(dst io.Writer, activities []ActivityDoc, segments []SegmentDoc) error {
	bw := newBlockWriter(dst, "")

	w.kmlHeader(bw)
	if err := bw.flush(); err != nil {
		return err
	}

	bw.str(" <Folder>\n  <name>Activities</name>\n")
	skipped := 0
	for _, doc := range activities {
		if len(doc.Activity.Coordinates) == 0 {
			skipped++
			continue
		}
		w.kmlActivity(bw, doc)
		if err := bw.flush(); err != nil {
			return err
		}
	}
	bw.str(" </Folder>\n")
	if err := bw.flush(); err != nil {
		return err
	}
	if skipped > 0 {
		log.Printf("export: omitted %d of %d activities with no usable coordinates",
			skipped, len(activities))
	}

	if len(segments) > 0 {
		if err := w.kmlSegments(bw, segments); err != nil {
			return err
		}
	}

	bw.str("</Document>\n</kml>\n")
	return bw.flush()
}

func (w *Writer) kmlHeader(bw *blockWriter) {
	bw.str(xml.Header)
	bw.printf("<kml xmlns=%q>\n<Document>\n <name>Strava Activities</name>\n", kmlNamespace)
	for _, cat := range w.styles.Categories() {
		s := w.styles.Get(cat)
		bw.printf(" <Style id=%q>\n  <LineStyle>\n   <color>%s</color>\n   <width>%d</width>\n  </LineStyle>\n </Style>\n",
			StyleID(cat), s.Color, s.Width)
	}
	if w.opts.Laps {
		bw.printf(" <Style id=%q>\n  <IconStyle>\n   <scale>0.8</scale>\n   <Icon>\n    <href>%s</href>\n   </Icon>\n  </IconStyle>\n </Style>\n",
			lapMarkerStyle, lapMarkerIcon)
	}
}

func (w *Writer) kmlActivity(bw *blockWriter, doc ActivityDoc) {
	bw.str("  <Placemark>\n")
	bw.printf("   <name>%s</name>\n", xmlEscape(doc.Activity.Name))
	if desc := w.activityDescription(doc); desc != "" {
		bw.printf("   <description><![CDATA[%s]]></description>\n", desc)
	}
	bw.printf("   <styleUrl>#%s</styleUrl>\n", StyleID(w.styles.Category(doc)))
	bw.str("   <LineString>\n    <tessellate>1</tessellate>\n    <coordinates>")
	for i, p := range doc.Activity.Coordinates {
		if i > 0 {
			bw.str(" ")
		}
		bw.str(kmlCoordinate(p))
	}
	bw.str("</coordinates>\n   </LineString>\n  </Placemark>\n")

	if w.opts.Laps {
		for _, wp := range doc.Waypoints {
			bw.str("  <Placemark>\n")
			bw.printf("   <name>%s</name>\n", xmlEscape(wp.Name))
			if wp.Description != "" {
				bw.printf("   <description><![CDATA[%s]]></description>\n", wp.Description)
			}
			bw.printf("   <styleUrl>#%s</styleUrl>\n", lapMarkerStyle)
			alt := 0.0
			if wp.HasAltitude {
				alt = wp.Elevation
			}
			bw.printf("   <Point>\n    <coordinates>%s,%s,%s</coordinates>\n   </Point>\n  </Placemark>\n",
				formatCoord(wp.Lng), formatCoord(wp.Lat), formatAlt(alt))
		}
	}
}

// kmlSegments emits the Segments section, flat or grouped Country→State.
func (w *Writer) kmlSegments(bw *blockWriter, segments []SegmentDoc) error {
	sorted := make([]SegmentDoc, len(segments))
	copy(sorted, segments)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Segment.Name < sorted[j].Segment.Name
	})

	bw.str(" <Folder>\n  <name>Segments</name>\n")
	if err := bw.flush(); err != nil {
		return err
	}

	if w.opts.FlatSegments {
		for _, seg := range sorted {
			w.kmlSegment(bw, seg, "  ")
			if err := bw.flush(); err != nil {
				return err
			}
		}
	} else {
		if err := w.kmlSegmentsGrouped(bw, sorted); err != nil {
			return err
		}
	}

	bw.str(" </Folder>\n")
	return bw.flush()
}

func (w *Writer) kmlSegmentsGrouped(bw *blockWriter, sorted []SegmentDoc) error {
	type key struct{ country, state string }
	groups := make(map[key][]SegmentDoc)
	for _, seg := range sorted {
		groups[key{groupKey(seg.Segment.Country), groupKey(seg.Segment.State)}] = append(
			groups[key{groupKey(seg.Segment.Country), groupKey(seg.Segment.State)}], seg)
	}

	keys := make([]key, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].country != keys[j].country {
			return keys[i].country < keys[j].country
		}
		return keys[i].state < keys[j].state
	})

	country := ""
	for i, k := range keys {
		if k.country != country {
			if country != "" {
				bw.str("  </Folder>\n")
			}
			country = k.country
			bw.printf("  <Folder>\n   <name>%s</name>\n", xmlEscape(country))
		}
		bw.printf("   <Folder>\n    <name>%s</name>\n", xmlEscape(k.state))
		if err := bw.flush(); err != nil {
			return err
		}
		for _, seg := range groups[k] {
			w.kmlSegment(bw, seg, "    ")
			if err := bw.flush(); err != nil {
				return err
			}
		}
		bw.str("   </Folder>\n")
		if i == len(keys)-1 {
			bw.str("  </Folder>\n")
		}
	}
	return bw.flush()
}

func (w *Writer) kmlSegment(bw *blockWriter, seg SegmentDoc, indent string) {
	bw.printf("%s<Placemark>\n", indent)
	bw.printf("%s <name>%s</name>\n", indent, xmlEscape(seg.Segment.Name))
	if desc := segmentDescription(seg.Segment); desc != "" {
		bw.printf("%s <description><![CDATA[%s]]></description>\n", indent, desc)
	}
	bw.printf("%s <styleUrl>#%s</styleUrl>\n", indent, StyleID(models.StyleSegment))
	bw.printf("%s <LineString>\n%s  <tessellate>1</tessellate>\n%s  <coordinates>", indent, indent, indent)
	for i, p := range seg.Coordinates {
		if i > 0 {
			bw.str(" ")
		}
		bw.str(kmlCoordinate(p))
	}
	bw.printf("</coordinates>\n%s </LineString>\n%s</Placemark>\n", indent, indent)
}

// activityDescription builds the CDATA body for an activity placemark:
// detail lines when MoreDetail is set and one line per attached effort
// when Efforts is set, enriched from the segment cache where available.
func (w *Writer) activityDescription(doc ActivityDoc) string {
	var lines []string

	if w.opts.MoreDetail {
		act := doc.Activity
		lines = append(lines,
			fmt.Sprintf("Distance: %.2f km", act.Distance/1000),
			fmt.Sprintf("Elevation Gain: %.0f m", act.TotalElevationGain),
			fmt.Sprintf("Moving Time: %s", formatHMS(act.MovingTime)),
		)
		if doc.BikeLabel != "" {
			lines = append(lines, "Bike: "+doc.BikeLabel)
		}
		if act.Commute {
			lines = append(lines, "Commute")
		}
	}

	if w.opts.Efforts {
		for _, e := range doc.Efforts {
			line := fmt.Sprintf("%s: %s", e.Name, formatHMS(e.ElapsedTime))
			if w.info != nil {
				if cached, err := w.info.Get(e.SegmentID); err == nil && cached != nil {
					line += fmt.Sprintf(" (%.2f km, %.0f m)", cached.Distance/1000, cached.ElevationGain)
				}
			}
			lines = append(lines, line)
		}
	}

	return joinBR(lines)
}

func segmentDescription(seg models.StarredSegment) string {
	return joinBR([]string{
		fmt.Sprintf("Distance: %.2f km", seg.Distance/1000),
		fmt.Sprintf("Gradient: %.1f%%", seg.AverageGrade),
		fmt.Sprintf("Elevation Gain: %.0f m", seg.ElevationGain),
	})
}

func joinBR(lines []string) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "<br/>"
		}
		out += l
	}
	return out
}

func groupKey(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

// kmlCoordinate renders one tuple in KML's lng,lat,alt order.
func kmlCoordinate(p models.TrackPoint) string {
	alt := 0.0
	if p.HasAltitude {
		alt = p.Altitude
	}
	return formatCoord(p.Lng) + "," + formatCoord(p.Lat) + "," + formatAlt(alt)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func formatAlt(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// formatHMS renders seconds as h:mm:ss, or m:ss under an hour.
func formatHMS(sec int) string {
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func xmlEscape(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
