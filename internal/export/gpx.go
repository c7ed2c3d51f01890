package export

import (
	"encoding/xml"
	"io"
	"log"
	"regexp"
	"time"

	"github.com/jpravetz/stravaexport/internal/models"
)

const (
	gpxNamespace  = "http://www.topografix.com/GPX/1/1"
	gpxCreator    = "stravaexport"
	gpxTimeLayout = "2006-01-02T15:04:05"
)

// WriteGPX writes a single-activity GPX 1.1 document. Lap waypoints,
// when requested, precede the track per the GPX element order.
func (w *Writer) WriteGPX(dst io.Writer, doc ActivityDoc) error {
	return w.writeGPXDoc(dst, []ActivityDoc{doc}, doc.Activity.Name, doc.Activity.StartTimeLocal)
}

// WriteGPXAll writes one aggregated GPX document with a track per
// activity, in activity order.
func (w *Writer) WriteGPXAll(dst io.Writer, docs []ActivityDoc, title string) error {
	start := time.Time{}
	for _, d := range docs {
		if len(d.Activity.Coordinates) > 0 {
			start = d.Activity.StartTimeLocal
			break
		}
	}
	return w.writeGPXDoc(dst, docs, title, start)
}

func (w *Writer) writeGPXDoc(dst io.Writer, docs []ActivityDoc, title string, start time.Time) error {
	bw := newBlockWriter(dst, "")

	bw.str(xml.Header)
	bw.printf("<gpx version=\"1.1\" creator=%q xmlns=%q>\n", gpxCreator, gpxNamespace)
	bw.str(" <metadata>\n")
	bw.printf("  <name>%s</name>\n", xmlEscape(title))
	if !start.IsZero() {
		bw.printf("  <time>%s</time>\n", start.Format(gpxTimeLayout))
	}
	bw.str(" </metadata>\n")
	if err := bw.flush(); err != nil {
		return err
	}

	// Waypoints come before tracks in the GPX 1.1 sequence.
	if w.opts.Laps {
		for _, doc := range docs {
			for _, wp := range doc.Waypoints {
				bw.printf(" <wpt lat=%q lon=%q>\n", formatCoord(wp.Lat), formatCoord(wp.Lng))
				if wp.HasAltitude {
					bw.printf("  <ele>%s</ele>\n", formatAlt(wp.Elevation))
				}
				bw.printf("  <time>%s</time>\n", doc.Activity.StartTimeLocal.Add(secs(wp.Time)).Format(gpxTimeLayout))
				bw.printf("  <name>%s</name>\n", xmlEscape(wp.Name))
				if wp.Description != "" {
					bw.printf("  <desc>%s</desc>\n", xmlEscape(wp.Description))
				}
				bw.str(" </wpt>\n")
			}
			if err := bw.flush(); err != nil {
				return err
			}
		}
	}

	skipped := 0
	for _, doc := range docs {
		if len(doc.Activity.Coordinates) == 0 {
			skipped++
			continue
		}
		w.gpxTrack(bw, doc)
		if err := bw.flush(); err != nil {
			return err
		}
	}
	if skipped > 0 {
		log.Printf("export: omitted %d of %d activities with no usable coordinates",
			skipped, len(docs))
	}

	bw.str("</gpx>\n")
	return bw.flush()
}

func (w *Writer) gpxTrack(bw *blockWriter, doc ActivityDoc) {
	act := doc.Activity
	bw.str(" <trk>\n")
	bw.printf("  <name>%s</name>\n", xmlEscape(act.Name))
	if desc := w.activityDescription(doc); desc != "" {
		bw.printf("  <desc>%s</desc>\n", xmlEscape(stripBR(desc)))
	}
	bw.str("  <trkseg>\n")
	for _, p := range act.Coordinates {
		bw.printf("   <trkpt lat=%q lon=%q>", formatCoord(p.Lat), formatCoord(p.Lng))
		if p.HasAltitude {
			bw.printf("<ele>%s</ele>", formatAlt(p.Altitude))
		}
		if p.HasTime {
			bw.printf("<time>%s</time>", act.StartTimeLocal.Add(secs(p.Time)).Format(gpxTimeLayout))
		}
		bw.str("</trkpt>\n")
	}
	bw.str("  </trkseg>\n </trk>\n")
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9-]+`)

// GPXFileName derives the folder-mode file name for an activity:
// <YYYYMMDD>_<Activity_Name_with_underscores>.gpx from the local start
// date.
func GPXFileName(act models.Activity) string {
	name := unsafeName.ReplaceAllString(act.Name, "_")
	name = trimUnderscores(name)
	if name == "" {
		name = "Activity"
	}
	return act.StartTimeLocal.Format("20060102") + "_" + name + ".gpx"
}

func trimUnderscores(s string) string {
	for len(s) > 0 && s[0] == '_' {
		s = s[1:]
	}
	for len(s) > 0 && s[len(s)-1] == '_' {
		s = s[:len(s)-1]
	}
	return s
}

var brTag = regexp.MustCompile(`<br/?>`)

func stripBR(s string) string {
	return brTag.ReplaceAllString(s, "\n")
}

func secs(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
