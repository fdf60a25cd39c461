// Package stats builds the read-only dashboard summary.
package stats

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/campus-feed/constants"
	"github.com/joseph-ayodele/campus-feed/internal/entity"
	"github.com/joseph-ayodele/campus-feed/internal/repository"
)

const (
	trendDays    = 7
	activeWindow = 7 * 24 * time.Hour
	topLimit     = 5
)

// EventLookup resolves event ids to rows.
type EventLookup interface {
	EventsByIDs(ctx context.Context, ids []int) (map[int]entity.Event, error)
}

type Service struct {
	reader repository.StatsReader
	events EventLookup
	loc    *time.Location
	clock  func() time.Time
	logger *slog.Logger
}

type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.clock = now }
}

// WithLocation sets the zone that decides where "today" starts.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func NewService(reader repository.StatsReader, events EventLookup, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{reader: reader, events: events, loc: time.Local, clock: time.Now, logger: logger}
	for _, o := range opts {
		o(s)
	}
	return s
}

// LoadLocation resolves a zone name. Empty or "Local" means the host zone.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}

// Dashboard runs every sub-query concurrently. A failing sub-query is logged
// and contributes its zero value; the summary itself never fails.
func (s *Service) Dashboard(ctx context.Context) entity.DashboardStats {
	now := s.clock().In(s.loc)
	today := startOfDay(now)
	trendStart := today.AddDate(0, 0, -(trendDays - 1))

	var (
		out   entity.DashboardStats
		types map[string]int64
		top   []entity.TopEvent
		views []time.Time
	)

	// sub-queries never return errors so one failure cannot cancel the rest
	g, gctx := errgroup.WithContext(ctx)
	count := func(name string, dst *int64, fn func(context.Context) (int64, error)) {
		g.Go(func() error {
			n, err := fn(gctx)
			if err != nil {
				s.logger.Warn("stats.query.failed", "query", name, "error", err)
				return nil
			}
			*dst = n
			return nil
		})
	}
	count("today_views", &out.TodayViews, func(ctx context.Context) (int64, error) {
		return s.reader.CountViewsSince(ctx, today)
	})
	count("total_favorites", &out.TotalFavorites, s.reader.CountFavorites)
	count("unique_favorite_users", &out.UniqueFavoriteUsers, s.reader.CountUniqueFavoriteUsers)
	count("today_events", &out.TodayEvents, func(ctx context.Context) (int64, error) {
		return s.reader.CountEventsCreatedSince(ctx, today, constants.PublishedStoredValues)
	})
	count("total_users", &out.TotalUsers, s.reader.CountUsers)
	count("active_users", &out.ActiveUsers, func(ctx context.Context) (int64, error) {
		return s.reader.CountUsersSeenSince(ctx, now.Add(-activeWindow))
	})
	g.Go(func() error {
		t, err := s.reader.TypeCounts(gctx, constants.PublishedStoredValues)
		if err != nil {
			s.logger.Warn("stats.query.failed", "query", "type_distribution", "error", err)
			return nil
		}
		types = t
		return nil
	})
	g.Go(func() error {
		t, err := s.topEvents(gctx)
		if err != nil {
			s.logger.Warn("stats.query.failed", "query", "top_events", "error", err)
			return nil
		}
		top = t
		return nil
	})
	g.Go(func() error {
		v, err := s.reader.ViewTimesSince(gctx, trendStart)
		if err != nil {
			s.logger.Warn("stats.query.failed", "query", "view_trend", "error", err)
			return nil
		}
		views = v
		return nil
	})
	_ = g.Wait()

	out.TypeDistribution = typeDistribution(types)
	out.TopEvents = top
	if out.TopEvents == nil {
		out.TopEvents = []entity.TopEvent{}
	}
	out.ViewTrend = dailyTrend(views, trendStart, trendDays, s.loc)
	return out
}

func (s *Service) topEvents(ctx context.Context) ([]entity.TopEvent, error) {
	tallies, err := s.reader.TopFavorited(ctx, topLimit)
	if err != nil {
		return nil, err
	}
	ids := make([]int, len(tallies))
	for i, t := range tallies {
		ids[i] = t.EventID
	}
	rows, err := s.events.EventsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]entity.TopEvent, 0, len(tallies))
	for _, t := range tallies {
		e, ok := rows[t.EventID]
		if !ok {
			continue
		}
		out = append(out, entity.TopEvent{
			ID:                 e.ID,
			Title:              e.Title,
			Type:               string(e.Type),
			FavoriteCount:      int(t.Favorites),
			FavoriteUsersCount: int(t.Users),
		})
	}
	return out, nil
}

func typeDistribution(counts map[string]int64) map[string]int64 {
	out := make(map[string]int64, 3)
	for _, t := range constants.EventTypesAsStrings() {
		out[t] = counts[t]
	}
	return out
}

// dailyTrend buckets timestamps into days starting at start, zero-filling
// days without views.
func dailyTrend(times []time.Time, start time.Time, days int, loc *time.Location) []entity.DailyCount {
	buckets := make(map[string]int64, days)
	for _, t := range times {
		buckets[t.In(loc).Format(time.DateOnly)]++
	}
	out := make([]entity.DailyCount, days)
	for i := range days {
		d := start.AddDate(0, 0, i).Format(time.DateOnly)
		out[i] = entity.DailyCount{Date: d, Count: buckets[d]}
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
