package bikelog

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"

	"github.com/jpravetz/stravaexport/internal/errs"
	"github.com/jpravetz/stravaexport/internal/models"
)

const xfdfNamespace = "http://ns.adobe.com/xfdf-transition/"

// WriteXML serializes day entries into the Acroform import document.
// Day groups are emitted in ascending julian-day order; each holds up
// to two event groups keyed "0" and "1" plus the note and weight
// fields. Any sink failure is returned as a WriteError.
func WriteXML(w io.Writer, entries map[int]*models.DayEntry) error {
	days := make([]int, 0, len(entries))
	for jd := range entries {
		days = append(days, jd)
	}
	sort.Ints(days)

	bw := bufio.NewWriter(w)
	bw.WriteString(xml.Header)
	fmt.Fprintf(bw, "<fields xmlns:xfdf=%q>\n", xfdfNamespace)
	bw.WriteString(" <day>\n")

	for _, jd := range days {
		writeDay(bw, entries[jd])
	}

	bw.WriteString(" </day>\n")
	bw.WriteString("</fields>\n")

	if err := bw.Flush(); err != nil {
		return &errs.WriteError{Err: err}
	}
	return nil
}

func writeDay(bw *bufio.Writer, entry *models.DayEntry) {
	fmt.Fprintf(bw, "  <group xfdf:original=\"%d\">\n", entry.JulianDay)

	for slot, ev := range entry.Events {
		fmt.Fprintf(bw, "   <group xfdf:original=\"%d\">\n", slot)
		writeField(bw, "bike", ev.BikeLabel, 4)
		writeField(bw, "dist", formatNum(ev.DistanceKm, 2), 4)
		writeField(bw, "el", formatNum(ev.ElevationGainM, 0), 4)
		writeField(bw, "t", formatNum(ev.MovingTimeHours, 2), 4)
		bw.WriteString("   </group>\n")
	}

	if entry.Note0 != "" {
		writeField(bw, "note0", entry.Note0, 3)
	}
	if entry.Note1 != "" {
		writeField(bw, "note1", entry.Note1, 3)
	}
	if entry.Weight > 0 {
		writeField(bw, "wt", formatNum(entry.Weight, 1), 3)
	}

	bw.WriteString("  </group>\n")
}

func writeField(bw *bufio.Writer, name, value string, indent int) {
	for i := 0; i < indent; i++ {
		bw.WriteByte(' ')
	}
	fmt.Fprintf(bw, "<%s>", name)
	xml.EscapeText(bw, []byte(value))
	fmt.Fprintf(bw, "</%s>\n", name)
}

// formatNum renders a number rounded to at most the given decimals,
// with trailing zeros trimmed, so 15.50 becomes "15.5" and 350.0 "350".
func formatNum(v float64, decimals int) string {
	scale := math.Pow10(decimals)
	return strconv.FormatFloat(math.Round(v*scale)/scale, 'f', -1, 64)
}
