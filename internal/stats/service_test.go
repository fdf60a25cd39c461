package stats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/joseph-ayodele/campus-feed/constants"
	"github.com/joseph-ayodele/campus-feed/internal/entity"
	"github.com/joseph-ayodele/campus-feed/internal/repository"
)

type fakeReader struct {
	fail      map[string]bool
	viewTimes []time.Time
}

var errBoom = errors.New("boom")

func (f *fakeReader) err(name string) error {
	if f.fail[name] {
		return errBoom
	}
	return nil
}

func (f *fakeReader) CountViewsSince(_ context.Context, since time.Time) (int64, error) {
	return 12, f.err("views")
}
func (f *fakeReader) CountFavorites(context.Context) (int64, error) { return 30, f.err("favorites") }
func (f *fakeReader) CountUniqueFavoriteUsers(context.Context) (int64, error) {
	return 9, f.err("favorite_users")
}
func (f *fakeReader) CountEventsCreatedSince(context.Context, time.Time, []string) (int64, error) {
	return 3, f.err("events")
}
func (f *fakeReader) CountUsers(context.Context) (int64, error) { return 100, f.err("users") }
func (f *fakeReader) CountUsersSeenSince(context.Context, time.Time) (int64, error) {
	return 40, f.err("active")
}
func (f *fakeReader) TypeCounts(context.Context, []string) (map[string]int64, error) {
	if err := f.err("types"); err != nil {
		return nil, err
	}
	return map[string]int64{"recruit": 4, "lecture": 1}, nil
}
func (f *fakeReader) TopFavorited(context.Context, int) ([]repository.FavoriteTally, error) {
	if err := f.err("top"); err != nil {
		return nil, err
	}
	return []repository.FavoriteTally{
		{EventID: 2, Favorites: 10, Users: 8},
		{EventID: 99, Favorites: 5, Users: 5},
		{EventID: 1, Favorites: 3, Users: 3},
	}, nil
}
func (f *fakeReader) ViewTimesSince(context.Context, time.Time) ([]time.Time, error) {
	if err := f.err("trend"); err != nil {
		return nil, err
	}
	return f.viewTimes, nil
}

type fakeEvents map[int]entity.Event

func (f fakeEvents) EventsByIDs(_ context.Context, ids []int) (map[int]entity.Event, error) {
	out := map[int]entity.Event{}
	for _, id := range ids {
		if e, ok := f[id]; ok {
			out[id] = e
		}
	}
	return out, nil
}

func TestDashboard(t *testing.T) {
	loc := time.FixedZone("CST", 8*3600)
	now := time.Date(2024, 10, 20, 1, 30, 0, 0, loc)
	reader := &fakeReader{viewTimes: []time.Time{
		// 2024-10-19 17:10 UTC is 2024-10-20 01:10 in CST
		time.Date(2024, 10, 19, 17, 10, 0, 0, time.UTC),
		time.Date(2024, 10, 19, 15, 0, 0, 0, time.UTC),
		time.Date(2024, 10, 14, 2, 0, 0, 0, time.UTC),
	}}
	events := fakeEvents{
		1: {ID: 1, Title: "讲座", Type: constants.EventTypeLecture},
		2: {ID: 2, Title: "秋招", Type: constants.EventTypeRecruit},
	}
	svc := NewService(reader, events, nil, WithLocation(loc), WithClock(func() time.Time { return now }))

	got := svc.Dashboard(context.Background())
	want := entity.DashboardStats{
		TodayViews:          12,
		TotalFavorites:      30,
		TodayEvents:         3,
		TotalUsers:          100,
		ActiveUsers:         40,
		UniqueFavoriteUsers: 9,
		TypeDistribution:    map[string]int64{"recruit": 4, "activity": 0, "lecture": 1},
		TopEvents: []entity.TopEvent{
			{ID: 2, Title: "秋招", Type: "recruit", FavoriteCount: 10, FavoriteUsersCount: 8},
			{ID: 1, Title: "讲座", Type: "lecture", FavoriteCount: 3, FavoriteUsersCount: 3},
		},
		ViewTrend: []entity.DailyCount{
			{Date: "2024-10-14", Count: 1},
			{Date: "2024-10-15", Count: 0},
			{Date: "2024-10-16", Count: 0},
			{Date: "2024-10-17", Count: 0},
			{Date: "2024-10-18", Count: 0},
			{Date: "2024-10-19", Count: 1},
			{Date: "2024-10-20", Count: 1},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("dashboard mismatch (-want +got):\n%s", diff)
	}
}

func TestDashboardFailuresYieldZero(t *testing.T) {
	reader := &fakeReader{fail: map[string]bool{"views": true, "types": true, "top": true, "trend": true}}
	svc := NewService(reader, fakeEvents{}, nil, WithLocation(time.UTC))

	got := svc.Dashboard(context.Background())
	if got.TodayViews != 0 {
		t.Errorf("today views = %d, want 0", got.TodayViews)
	}
	if got.TotalUsers != 100 {
		t.Errorf("total users = %d, want 100", got.TotalUsers)
	}
	if diff := cmp.Diff(map[string]int64{"recruit": 0, "activity": 0, "lecture": 0}, got.TypeDistribution); diff != "" {
		t.Errorf("types mismatch (-want +got):\n%s", diff)
	}
	if got.TopEvents == nil || len(got.TopEvents) != 0 {
		t.Errorf("top events = %#v, want empty", got.TopEvents)
	}
	if len(got.ViewTrend) != 7 {
		t.Fatalf("trend has %d days", len(got.ViewTrend))
	}
	for _, d := range got.ViewTrend {
		if d.Count != 0 {
			t.Errorf("day %s count %d", d.Date, d.Count)
		}
	}
}

func TestLoadLocation(t *testing.T) {
	if loc, err := LoadLocation(""); err != nil || loc != time.Local {
		t.Errorf("empty: %v %v", loc, err)
	}
	if _, err := LoadLocation("Nowhere/City"); err == nil {
		t.Error("expected error for unknown zone")
	}
}
