// Command stravaexport fetches an athlete's Strava activities and
// writes KML, GPX or bike-log XML exports.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/jpravetz/stravaexport/internal/bikelog"
	"github.com/jpravetz/stravaexport/internal/config"
	"github.com/jpravetz/stravaexport/internal/database"
	"github.com/jpravetz/stravaexport/internal/errs"
	"github.com/jpravetz/stravaexport/internal/export"
	"github.com/jpravetz/stravaexport/internal/pipeline"
	"github.com/jpravetz/stravaexport/internal/repository"
	"github.com/jpravetz/stravaexport/internal/strava"
)

type globalOptions struct {
	Settings string `long:"settings" description:"Path to the settings file (default ~/.stravaexport/settings.json)"`
}

// rangeOptions is shared by every export command.
type rangeOptions struct {
	After  string `short:"a" long:"after" description:"Only activities starting on or after this date (YYYY-MM-DD)"`
	Before string `short:"b" long:"before" description:"Only activities starting before this date (YYYY-MM-DD)"`
}

func (r rangeOptions) parse() (after, before time.Time, err error) {
	if r.After != "" {
		if after, err = parseDate(r.After); err != nil {
			return
		}
	}
	if r.Before != "" {
		if before, err = parseDate(r.Before); err != nil {
			return
		}
	}
	if !after.IsZero() && !before.IsZero() && !before.After(after) {
		err = &errs.PreconditionError{Op: "export", Reason: "--before must be after --after"}
	}
	return
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", "20060102"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &errs.PreconditionError{Op: "export", Reason: fmt.Sprintf("invalid date %q", s)}
}

type commuteOptions struct {
	ExcludeCommutes bool `long:"no-commutes" description:"Exclude commute rides"`
	OnlyCommutes    bool `long:"commutes-only" description:"Export only commute rides"`
}

func (c commuteOptions) validate() error {
	if c.ExcludeCommutes && c.OnlyCommutes {
		return &errs.PreconditionError{Op: "export", Reason: "--no-commutes and --commutes-only are mutually exclusive"}
	}
	return nil
}

type kmlCommand struct {
	rangeOptions
	commuteOptions
	Output       string `short:"o" long:"output" required:"true" description:"Output KML file"`
	Laps         bool   `long:"laps" description:"Add lap waypoints"`
	Efforts      bool   `long:"efforts" description:"Add starred segment efforts to descriptions"`
	MoreDetail   bool   `long:"more" description:"Add distance, elevation and time to descriptions"`
	Segments     bool   `long:"segments" description:"Include a folder of starred segment tracks"`
	FlatSegments bool   `long:"flat-segments" description:"Do not group segments by country and state"`
	Concurrency  int    `long:"concurrency" default:"10" description:"Parallel API fetches"`
}

type gpxCommand struct {
	rangeOptions
	commuteOptions
	Output      string `short:"o" long:"output" required:"true" description:"Output GPX file, or directory for one file per activity"`
	Laps        bool   `long:"laps" description:"Add lap waypoints"`
	Concurrency int    `long:"concurrency" default:"10" description:"Parallel API fetches"`
}

type bikelogCommand struct {
	rangeOptions
	Output string `short:"o" long:"output" required:"true" description:"Output Acroform XML file"`
}

type segmentsCommand struct{}

var global globalOptions

func main() {
	log.SetFlags(0)

	parser := flags.NewParser(&global, flags.Default)
	parser.AddCommand("kml", "Export activities to KML",
		"Fetch activities and write a single KML document.", &kmlCommand{})
	parser.AddCommand("gpx", "Export activities to GPX",
		"Fetch activities and write GPX, aggregated or one file per activity.", &gpxCommand{})
	parser.AddCommand("bikelog", "Export the ride log XML",
		"Aggregate activities per day and write Acroform XML for the PDF bike log.", &bikelogCommand{})
	parser.AddCommand("segments", "Refresh the starred segment cache",
		"Fetch the athlete's starred segments and replace the local cache.", &segmentsCommand{})

	if _, err := parser.Parse(); err != nil {
		var fe *flags.Error
		if errors.As(err, &fe) && fe.Type == flags.ErrHelp {
			return
		}
		os.Exit(1)
	}
}

// app bundles the wired-up dependencies behind each command.
type app struct {
	cfg    *config.Config
	client *strava.Client
	repo   *repository.SegmentRepository
	close  func()
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(global.Settings)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	db, err := database.Open(database.Config{Path: cfg.DBPath})
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:    cfg,
		client: strava.NewClient(ctx, cfg.Credentials),
		repo:   repository.NewSegmentRepository(db),
		close:  func() { db.Close() },
	}, nil
}

func (a *app) pipeline(opts pipeline.Options) *pipeline.Pipeline {
	opts.Zones = a.cfg.Zones
	opts.Dedup = true
	opts.Aliases = a.cfg.Settings.SegmentAliases
	opts.Bikes = a.cfg.Settings.Bikes
	opts.MotoGear = a.cfg.MotoGear()
	return pipeline.New(a.client, a.repo, opts)
}

func (a *app) writer(opts export.Options) *export.Writer {
	return export.NewWriter(export.NewStyleTable(a.cfg.Settings.LineStyles), a.repo, opts)
}

func (c *kmlCommand) Execute(args []string) error {
	if err := c.validate(); err != nil {
		return err
	}
	after, before, err := c.parse()
	if err != nil {
		return err
	}
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	p := a.pipeline(pipeline.Options{
		After: after, Before: before,
		Concurrency:     c.Concurrency,
		WithDetail:      c.Laps || c.Efforts,
		ExcludeCommutes: c.ExcludeCommutes,
		OnlyCommutes:    c.OnlyCommutes,
	})

	activities, err := p.FetchActivities(ctx)
	if err != nil && !isRateLimit(err) {
		return err
	}

	var segs []export.SegmentDoc
	if c.Segments {
		segs, err = p.FetchSegments(ctx)
		if err != nil && !isRateLimit(err) {
			return err
		}
	}

	w := a.writer(export.Options{
		Laps:         c.Laps,
		Efforts:      c.Efforts,
		MoreDetail:   c.MoreDetail,
		FlatSegments: c.FlatSegments,
	})
	if err := writeAtomic(c.Output, func(dst io.Writer) error {
		return w.WriteKML(dst, activities, segs)
	}); err != nil {
		return err
	}
	log.Printf("wrote %d activities and %d segments to %s", len(activities), len(segs), c.Output)
	return nil
}

func (c *gpxCommand) Execute(args []string) error {
	if err := c.validate(); err != nil {
		return err
	}
	after, before, err := c.parse()
	if err != nil {
		return err
	}
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	p := a.pipeline(pipeline.Options{
		After: after, Before: before,
		Concurrency:     c.Concurrency,
		WithDetail:      c.Laps,
		ExcludeCommutes: c.ExcludeCommutes,
		OnlyCommutes:    c.OnlyCommutes,
	})

	activities, err := p.FetchActivities(ctx)
	if err != nil && !isRateLimit(err) {
		return err
	}

	w := a.writer(export.Options{Laps: c.Laps})

	// A .gpx path gets one aggregated document; anything else is
	// treated as a directory with one file per activity.
	if strings.EqualFold(filepath.Ext(c.Output), ".gpx") {
		title := strings.TrimSuffix(filepath.Base(c.Output), filepath.Ext(c.Output))
		if err := writeAtomic(c.Output, func(dst io.Writer) error {
			return w.WriteGPXAll(dst, activities, title)
		}); err != nil {
			return err
		}
		log.Printf("wrote %d activities to %s", len(activities), c.Output)
		return nil
	}

	if err := os.MkdirAll(c.Output, 0o755); err != nil {
		return &errs.WriteError{Path: c.Output, Err: err}
	}
	written := 0
	for _, doc := range activities {
		if len(doc.Activity.Coordinates) == 0 {
			continue
		}
		path := filepath.Join(c.Output, export.GPXFileName(doc.Activity))
		if err := writeAtomic(path, func(dst io.Writer) error {
			return w.WriteGPX(dst, doc)
		}); err != nil {
			return err
		}
		written++
	}
	log.Printf("wrote %d GPX files to %s", written, c.Output)
	return nil
}

func (c *bikelogCommand) Execute(args []string) error {
	after, before, err := c.parse()
	if err != nil {
		return err
	}
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	activities, err := a.client.ListActivities(ctx, after, before)
	if err != nil {
		return err
	}

	agg := bikelog.NewAggregator(a.cfg.Settings.Bikes, a.cfg.MotoPattern)
	entries := agg.Aggregate(activities)

	if err := writeAtomic(c.Output, func(dst io.Writer) error {
		return bikelog.WriteXML(dst, entries)
	}); err != nil {
		return err
	}
	log.Printf("wrote %d days to %s", len(entries), c.Output)
	return nil
}

func (c *segmentsCommand) Execute(args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	n, err := pipeline.RefreshSegments(ctx, a.client, a.repo)
	if err != nil {
		return err
	}
	log.Printf("cached %d starred segments", n)
	return nil
}

// writeAtomic renders into a temp file and renames it into place, so a
// failed export never clobbers a previous good one.
func writeAtomic(path string, render func(io.Writer) error) error {
	f, err := export.CreateAtomic(path)
	if err != nil {
		return err
	}
	if err := render(f); err != nil {
		f.Abort()
		return err
	}
	return f.Commit()
}

func isRateLimit(err error) bool {
	var rl *errs.RateLimitError
	if errors.As(err, &rl) {
		log.Printf("warning: %v; export continues with the activities fetched so far", err)
		return true
	}
	return false
}
