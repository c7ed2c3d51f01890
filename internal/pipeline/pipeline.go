// Package pipeline drives a batch export: list activities, fetch
// streams and details concurrently, filter tracks and assemble the
// documents the export writers consume.
package pipeline

import (
	"context"
	"errors"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jpravetz/stravaexport/internal/errs"
	"github.com/jpravetz/stravaexport/internal/export"
	"github.com/jpravetz/stravaexport/internal/models"
	"github.com/jpravetz/stravaexport/internal/segments"
	"github.com/jpravetz/stravaexport/internal/spatial"
	"github.com/jpravetz/stravaexport/internal/track"
)

const defaultConcurrency = 10

// ActivitySource is the upstream API surface the pipeline needs.
// *strava.Client satisfies it.
type ActivitySource interface {
	ListActivities(ctx context.Context, after, before time.Time) ([]models.Activity, error)
	GetActivityDetail(ctx context.Context, id int64) (*models.DetailedActivity, error)
	GetActivityStreams(ctx context.Context, id int64) ([]models.TrackPoint, error)
	GetSegmentStreams(ctx context.Context, id int64) ([]models.TrackPoint, error)
}

// SegmentCache is the local starred-segment store.
// *repository.SegmentRepository satisfies it.
type SegmentCache interface {
	Get(id int64) (*models.StarredSegment, error)
	All() ([]models.StarredSegment, error)
	StarredIDs() (map[int64]bool, error)
}

// SegmentLister fetches the athlete's starred segments upstream.
type SegmentLister interface {
	ListStarredSegments(ctx context.Context) ([]models.StarredSegment, error)
}

// SegmentStore persists a refreshed starred-segment snapshot.
type SegmentStore interface {
	ReplaceAll([]models.StarredSegment) error
}

// Options configures one pipeline run.
type Options struct {
	After  time.Time
	Before time.Time

	// Concurrency bounds the parallel per-activity fetches.
	Concurrency int

	// Zones are blackout rectangles removed from every track.
	Zones []spatial.Zone
	// Dedup enables interior duplicate removal.
	Dedup bool

	// WithDetail fetches laps and segment efforts per activity.
	WithDetail bool
	// Aliases maps raw segment names to friendly ones.
	Aliases map[string]string

	// Bikes maps gear IDs to display labels; MotoGear marks gear IDs
	// whose activities are motorized.
	Bikes    map[string]string
	MotoGear map[string]bool

	// ExcludeCommutes drops commute rides; OnlyCommutes keeps nothing
	// else. Setting both keeps nothing and is rejected upstream.
	ExcludeCommutes bool
	OnlyCommutes    bool
}

// Pipeline fetches and prepares export documents.
type Pipeline struct {
	source ActivitySource
	cache  SegmentCache
	opts   Options
}

func New(source ActivitySource, cache SegmentCache, opts Options) *Pipeline {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	return &Pipeline{source: source, cache: cache, opts: opts}
}

// FetchActivities lists the athlete's activities in the configured
// range and fetches streams (and optionally details) for each, with a
// bounded number of requests in flight. Results keep listing order.
//
// A per-activity FetchError degrades that activity to an empty track.
// A RateLimitError abandons the remaining fetches but the documents
// completed so far are still returned alongside the error.
func (p *Pipeline) FetchActivities(ctx context.Context) ([]export.ActivityDoc, error) {
	listed, err := p.source.ListActivities(ctx, p.opts.After, p.opts.Before)
	if err != nil {
		return nil, err
	}
	listed = p.filterCommutes(listed)
	if len(listed) == 0 {
		return nil, nil
	}

	var starred map[int64]bool
	if p.opts.WithDetail && p.cache != nil {
		starred, err = p.cache.StarredIDs()
		if err != nil {
			return nil, err
		}
	}

	docs := make([]export.ActivityDoc, len(listed))
	var totals track.FilterStats

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)
	statsCh := make(chan track.FilterStats, len(listed))

	for i, act := range listed {
		i, act := i, act
		g.Go(func() error {
			doc, stats, err := p.fetchOne(gctx, act, starred)
			if err != nil {
				return err
			}
			docs[i] = doc
			statsCh <- stats
			return nil
		})
	}

	err = g.Wait()
	close(statsCh)
	for s := range statsCh {
		totals.Input += s.Input
		totals.Output += s.Output
		totals.ZoneRemoved += s.ZoneRemoved
		totals.DedupRemoved += s.DedupRemoved
		totals.InputKm += s.InputKm
		totals.OutputKm += s.OutputKm
	}
	if totals.Input > 0 {
		log.Printf("pipeline: filtered %d of %d points (%d blackout, %d duplicate), %.1f km -> %.1f km",
			totals.Input-totals.Output, totals.Input,
			totals.ZoneRemoved, totals.DedupRemoved, totals.InputKm, totals.OutputKm)
	}

	var rl *errs.RateLimitError
	if errors.As(err, &rl) {
		// Keep what completed; unfinished slots have no coordinates
		// and are dropped.
		var done []export.ActivityDoc
		for _, d := range docs {
			if d.Activity.ID != 0 {
				done = append(done, d)
			}
		}
		log.Printf("pipeline: rate limited after %d of %d activities", len(done), len(listed))
		return done, err
	}
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// fetchOne assembles one activity document. FetchErrors are absorbed
// here; anything else propagates and cancels the batch.
func (p *Pipeline) fetchOne(ctx context.Context, act models.Activity, starred map[int64]bool) (export.ActivityDoc, track.FilterStats, error) {
	doc := export.ActivityDoc{
		Activity:  act,
		BikeLabel: p.opts.Bikes[act.GearID],
		IsMoto:    p.opts.MotoGear[act.GearID],
	}

	points, err := p.source.GetActivityStreams(ctx, act.ID)
	if err != nil {
		var fe *errs.FetchError
		if errors.As(err, &fe) && ctx.Err() == nil {
			log.Printf("pipeline: activity %d (%s): %v; exporting without track", act.ID, act.Name, err)
			return doc, track.FilterStats{}, nil
		}
		return doc, track.FilterStats{}, err
	}

	filtered, stats := track.Filter(points, p.opts.Zones, p.opts.Dedup)
	doc.Activity.Coordinates = filtered

	if !p.opts.WithDetail {
		return doc, stats, nil
	}

	detail, err := p.source.GetActivityDetail(ctx, act.ID)
	if err != nil {
		var fe *errs.FetchError
		if errors.As(err, &fe) && ctx.Err() == nil {
			log.Printf("pipeline: activity %d (%s): %v; exporting without detail", act.ID, act.Name, err)
			return doc, stats, nil
		}
		return doc, stats, err
	}

	doc.Waypoints = track.CorrelateLaps(detail.Laps, doc.Activity.Coordinates, act.ElapsedTime)

	if starred != nil {
		efforts, err := segments.Attach(detail, starred, p.opts.Aliases)
		if err != nil {
			return doc, stats, err
		}
		doc.Efforts = efforts
	}
	return doc, stats, nil
}

// FetchSegments loads the cached starred segments and fetches the
// coordinate stream for each, bounded like the activity fetch.
func (p *Pipeline) FetchSegments(ctx context.Context) ([]export.SegmentDoc, error) {
	if p.cache == nil {
		return nil, &errs.PreconditionError{Op: "FetchSegments", Reason: "no segment cache configured"}
	}
	cached, err := p.cache.All()
	if err != nil {
		return nil, err
	}
	if len(cached) == 0 {
		return nil, nil
	}

	docs := make([]export.SegmentDoc, len(cached))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)

	for i, seg := range cached {
		i, seg := i, seg
		g.Go(func() error {
			doc := export.SegmentDoc{Segment: seg}
			points, err := p.source.GetSegmentStreams(gctx, seg.ID)
			if err != nil {
				var fe *errs.FetchError
				if !errors.As(err, &fe) || gctx.Err() != nil {
					return err
				}
				log.Printf("pipeline: segment %d (%s): %v; exporting without track", seg.ID, seg.Name, err)
			}
			doc.Coordinates = points
			docs[i] = doc
			return nil
		})
	}

	err = g.Wait()
	var rl *errs.RateLimitError
	if errors.As(err, &rl) {
		var done []export.SegmentDoc
		for _, d := range docs {
			if d.Segment.ID != 0 {
				done = append(done, d)
			}
		}
		log.Printf("pipeline: rate limited after %d of %d segments", len(done), len(cached))
		return done, err
	}
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// RefreshSegments replaces the local cache with the athlete's current
// starred segments.
func RefreshSegments(ctx context.Context, lister SegmentLister, store SegmentStore) (int, error) {
	segs, err := lister.ListStarredSegments(ctx)
	if err != nil {
		return 0, err
	}
	if err := store.ReplaceAll(segs); err != nil {
		return 0, err
	}
	return len(segs), nil
}

func (p *Pipeline) filterCommutes(acts []models.Activity) []models.Activity {
	if !p.opts.ExcludeCommutes && !p.opts.OnlyCommutes {
		return acts
	}
	out := acts[:0]
	for _, a := range acts {
		if p.opts.ExcludeCommutes && a.Commute {
			continue
		}
		if p.opts.OnlyCommutes && !a.Commute {
			continue
		}
		out = append(out, a)
	}
	return out
}
