// Package bikelog aggregates ride activities into calendar-day entries
// and serializes them into the Acroform XML consumed by the PDF log.
package bikelog

import (
	"fmt"
	"log"
	"regexp"
	"time"

	"github.com/jpravetz/stravaexport/internal/models"
)

// Aggregator merges activities into per-day log entries. Bikes maps a
// Strava gear id to the label used on the PDF; moto matches labels of
// motorized bikes, which never occupy an event slot.
type Aggregator struct {
	bikes map[string]string
	moto  *regexp.Regexp
}

// NewAggregator creates a day aggregator.
func NewAggregator(bikes map[string]string, moto *regexp.Regexp) *Aggregator {
	return &Aggregator{bikes: bikes, moto: moto}
}

// Aggregate builds the julian-day keyed log from activities in order.
// Ride activities with a resolvable, non-motorized bike fill up to
// MaxDayEvents slots per day; same-bike rides merge into one slot. All
// activities contribute note text regardless of the slot cap.
func (a *Aggregator) Aggregate(activities []models.Activity) map[int]*models.DayEntry {
	entries := make(map[int]*models.DayEntry)

	for _, act := range activities {
		jd := models.JulianDay(act.StartTimeLocal)
		entry, ok := entries[jd]
		if !ok {
			y, m, d := act.StartTimeLocal.Date()
			entry = &models.DayEntry{
				JulianDay: jd,
				Date:      time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
			}
			entries[jd] = entry
		}

		label := a.bikes[act.GearID]
		motorized := label != "" && a.moto != nil && a.moto.MatchString(label)

		if act.Type.IsRide() {
			appendNote(&entry.Note0, rideNote(act))
			if label != "" && !motorized && act.Type != models.EBikeRide {
				a.placeEvent(entry, act, label)
			}
		} else {
			appendNote(&entry.Note1, otherNote(act))
		}
	}

	return entries
}

// placeEvent merges the ride into an existing slot with the same bike
// label, scanning from the last slot to the first, or appends a new
// slot while room remains. A day already holding two distinct bikes
// drops further bikes; that is the template's cap, not an error.
func (a *Aggregator) placeEvent(entry *models.DayEntry, act models.Activity, label string) {
	ev := models.DayEvent{
		DistanceKm:      act.Distance / 1000,
		BikeLabel:       label,
		ElevationGainM:  act.TotalElevationGain,
		MovingTimeHours: float64(act.MovingTime) / 3600,
	}

	for i := len(entry.Events) - 1; i >= 0; i-- {
		if entry.Events[i].BikeLabel == label {
			entry.Events[i].DistanceKm += ev.DistanceKm
			return
		}
	}

	if len(entry.Events) < models.MaxDayEvents {
		entry.Events = append(entry.Events, ev)
		return
	}

	log.Printf("bikelog: day %d already has %d bikes, dropping event for %q (%s)",
		entry.JulianDay, models.MaxDayEvents, label, act.Name)
}

func rideNote(act models.Activity) string {
	return fmt.Sprintf("%s: %.1f km, %.0f m", act.Name, act.Distance/1000, act.TotalElevationGain)
}

func otherNote(act models.Activity) string {
	return fmt.Sprintf("%s (%s, %d min)", act.Name, act.Type, act.MovingTime/60)
}

func appendNote(note *string, line string) {
	if *note != "" {
		*note += "\n"
	}
	*note += line
}
