// Package strava is the upstream activity source: a thin REST client
// for the Strava v3 API with OAuth2 token refresh.
package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"github.com/jpravetz/stravaexport/internal/errs"
	"github.com/jpravetz/stravaexport/internal/models"
)

const (
	apiBase  = "https://www.strava.com/api/v3"
	tokenURL = "https://www.strava.com/oauth/token"

	listPageSize = 200

	// Strava's short-term quota for non-upload requests.
	quotaRequests = 100
	quotaWindow   = 15 * time.Minute
)

// Client talks to the Strava API. The underlying http.Client refreshes
// the access token transparently via the oauth2 token source.
type Client struct {
	httpClient *http.Client
	baseURL    string
	throttle   *Throttle
}

// Credentials holds the OAuth2 application and refresh token triple.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// NewClient builds a client that authenticates with the given
// credentials. The access token is acquired lazily on first use.
func NewClient(ctx context.Context, creds Credentials) *Client {
	conf := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: tokenURL},
	}
	// An expired token with a refresh token forces a refresh on first use.
	token := &oauth2.Token{
		RefreshToken: creds.RefreshToken,
		Expiry:       time.Now().Add(-time.Hour),
	}
	return &Client{
		httpClient: conf.Client(ctx, token),
		baseURL:    apiBase,
		throttle:   NewThrottle(quotaRequests, quotaWindow),
	}
}

// summaryActivity is the wire shape of a list-endpoint activity.
type summaryActivity struct {
	ID                 int64   `json:"id"`
	Name               string  `json:"name"`
	Type               string  `json:"type"`
	StartDate          string  `json:"start_date"`
	StartDateLocal     string  `json:"start_date_local"`
	MovingTime         int     `json:"moving_time"`
	ElapsedTime        int     `json:"elapsed_time"`
	Distance           float64 `json:"distance"`
	TotalElevationGain float64 `json:"total_elevation_gain"`
	Commute            bool    `json:"commute"`
	GearID             string  `json:"gear_id"`
}

type detailedActivity struct {
	summaryActivity
	Laps           []wireLap    `json:"laps"`
	SegmentEfforts []wireEffort `json:"segment_efforts"`
}

type wireLap struct {
	LapIndex    int     `json:"lap_index"`
	StartIndex  int     `json:"start_index"`
	ElapsedTime int     `json:"elapsed_time"`
	Distance    float64 `json:"distance"`
}

type wireEffort struct {
	ID          int64   `json:"id"`
	ElapsedTime int     `json:"elapsed_time"`
	MovingTime  int     `json:"moving_time"`
	Distance    float64 `json:"distance"`
	Segment     struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"segment"`
}

type wireSegment struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Distance      float64 `json:"distance"`
	AverageGrade  float64 `json:"average_grade"`
	ElevationHigh float64 `json:"elevation_high"`
	ElevationLow  float64 `json:"elevation_low"`
	Country       string  `json:"country"`
	State         string  `json:"state"`
}

// ListActivities returns the athlete's summary activities within the
// absolute time range, oldest first, following pagination.
func (c *Client) ListActivities(ctx context.Context, after, before time.Time) ([]models.Activity, error) {
	var all []models.Activity
	for page := 1; ; page++ {
		q := url.Values{
			"page":     {strconv.Itoa(page)},
			"per_page": {strconv.Itoa(listPageSize)},
		}
		if !after.IsZero() {
			q.Set("after", strconv.FormatInt(after.Unix(), 10))
		}
		if !before.IsZero() {
			q.Set("before", strconv.FormatInt(before.Unix(), 10))
		}

		var pageActivities []summaryActivity
		if err := c.getJSON(ctx, "/athlete/activities?"+q.Encode(), 0, "activity", &pageActivities); err != nil {
			return nil, err
		}
		if len(pageActivities) == 0 {
			break
		}
		for _, sa := range pageActivities {
			all = append(all, toActivity(sa))
		}
		if len(pageActivities) < listPageSize {
			break
		}
	}

	// The list endpoint returns newest first by default but oldest
	// first when "after" is set; sort instead of trusting response
	// order. Exports always run oldest first.
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].StartTime.Before(all[j].StartTime)
	})
	return all, nil
}

// GetActivityDetail fetches the heavyweight activity variant including
// laps and segment efforts.
func (c *Client) GetActivityDetail(ctx context.Context, id int64) (*models.DetailedActivity, error) {
	var da detailedActivity
	if err := c.getJSON(ctx, fmt.Sprintf("/activities/%d", id), id, "detail", &da); err != nil {
		return nil, err
	}

	out := &models.DetailedActivity{Activity: toActivity(da.summaryActivity)}
	for _, l := range da.Laps {
		out.Laps = append(out.Laps, models.Lap{
			Index:       l.LapIndex,
			StartIndex:  l.StartIndex,
			ElapsedTime: l.ElapsedTime,
			Distance:    l.Distance,
		})
	}
	for _, e := range da.SegmentEfforts {
		eff := models.SegmentEffort{
			ID:          e.ID,
			ElapsedTime: e.ElapsedTime,
			MovingTime:  e.MovingTime,
			Distance:    e.Distance,
		}
		eff.Segment.ID = e.Segment.ID
		eff.Segment.Name = e.Segment.Name
		out.SegmentEfforts = append(out.SegmentEfforts, eff)
	}
	return out, nil
}

// GetActivityStreams fetches the latlng, time and altitude streams for
// an activity and zips them into track points.
func (c *Client) GetActivityStreams(ctx context.Context, id int64) ([]models.TrackPoint, error) {
	path := fmt.Sprintf("/activities/%d/streams?keys=latlng,time,altitude&key_by_type=true", id)
	return c.getStreams(ctx, path, id, "streams")
}

// GetSegmentStreams fetches the coordinate stream of a segment.
func (c *Client) GetSegmentStreams(ctx context.Context, id int64) ([]models.TrackPoint, error) {
	path := fmt.Sprintf("/segments/%d/streams?keys=latlng,altitude&key_by_type=true", id)
	return c.getStreams(ctx, path, id, "segment")
}

// ListStarredSegments returns the athlete's starred segments.
func (c *Client) ListStarredSegments(ctx context.Context) ([]models.StarredSegment, error) {
	var all []models.StarredSegment
	for page := 1; ; page++ {
		path := fmt.Sprintf("/segments/starred?page=%d&per_page=%d", page, listPageSize)
		var pageSegments []wireSegment
		if err := c.getJSON(ctx, path, 0, "segment", &pageSegments); err != nil {
			return nil, err
		}
		if len(pageSegments) == 0 {
			break
		}
		for _, ws := range pageSegments {
			all = append(all, models.StarredSegment{
				ID:            ws.ID,
				Name:          ws.Name,
				Distance:      ws.Distance,
				AverageGrade:  ws.AverageGrade,
				ElevationGain: ws.ElevationHigh - ws.ElevationLow,
				Country:       ws.Country,
				State:         ws.State,
			})
		}
		if len(pageSegments) < listPageSize {
			break
		}
	}
	return all, nil
}

type wireStream struct {
	Data json.RawMessage `json:"data"`
}

func (c *Client) getStreams(ctx context.Context, path string, id int64, kind string) ([]models.TrackPoint, error) {
	var streams map[string]wireStream
	if err := c.getJSON(ctx, path, id, kind, &streams); err != nil {
		return nil, err
	}
	return zipStreams(streams, id, kind)
}

func zipStreams(streams map[string]wireStream, id int64, kind string) ([]models.TrackPoint, error) {
	latlngRaw, ok := streams["latlng"]
	if !ok {
		return nil, nil
	}
	var latlng [][2]float64
	if err := json.Unmarshal(latlngRaw.Data, &latlng); err != nil {
		return nil, &errs.FetchError{Kind: kind, ID: id, Err: fmt.Errorf("decode latlng stream: %w", err)}
	}

	var times []float64
	if raw, ok := streams["time"]; ok {
		if err := json.Unmarshal(raw.Data, &times); err != nil {
			return nil, &errs.FetchError{Kind: kind, ID: id, Err: fmt.Errorf("decode time stream: %w", err)}
		}
	}
	var altitudes []float64
	if raw, ok := streams["altitude"]; ok {
		if err := json.Unmarshal(raw.Data, &altitudes); err != nil {
			return nil, &errs.FetchError{Kind: kind, ID: id, Err: fmt.Errorf("decode altitude stream: %w", err)}
		}
	}

	points := make([]models.TrackPoint, len(latlng))
	for i, ll := range latlng {
		p := models.TrackPoint{Lat: ll[0], Lng: ll[1]}
		if i < len(times) {
			p.Time = times[i]
			p.HasTime = true
		}
		if i < len(altitudes) {
			p.Altitude = altitudes[i]
			p.HasAltitude = true
		}
		points[i] = p
	}
	return points, nil
}

// getJSON performs one authenticated GET and decodes the response.
// A 429 maps to RateLimitError and any other failure to FetchError,
// except caller cancellation, which passes through undecorated so it
// is never mistaken for a degradable per-item failure.
func (c *Client) getJSON(ctx context.Context, path string, id int64, kind string, out any) error {
	if c.throttle != nil {
		if err := c.throttle.Wait(ctx); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return &errs.FetchError{Kind: kind, ID: id, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &errs.FetchError{Kind: kind, ID: id, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return &errs.RateLimitError{Err: fmt.Errorf("GET %s: status 429", path)}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &errs.FetchError{
			Kind: kind, ID: id,
			Err: fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, body),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &errs.FetchError{Kind: kind, ID: id, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func toActivity(sa summaryActivity) models.Activity {
	return models.Activity{
		ID:                 sa.ID,
		Name:               sa.Name,
		Type:               models.ActivityType(sa.Type),
		StartTime:          parseStravaTime(sa.StartDate),
		StartTimeLocal:     parseStravaTime(sa.StartDateLocal),
		MovingTime:         sa.MovingTime,
		ElapsedTime:        sa.ElapsedTime,
		Distance:           sa.Distance,
		TotalElevationGain: sa.TotalElevationGain,
		Commute:            sa.Commute,
		GearID:             sa.GearID,
	}
}

// parseStravaTime parses Strava's RFC3339 timestamps. start_date_local
// carries a Z suffix but represents local wall-clock time; keeping the
// parsed fields as-is is exactly what the exporters need.
func parseStravaTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
