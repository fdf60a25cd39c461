package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"entgo.io/ent"
	entsql "entgo.io/ent/dialect/sql"
	entschema "entgo.io/ent/dialect/sql/schema"
	"github.com/google/go-cmp/cmp"

	"github.com/joseph-ayodele/campus-feed/constants"
	"github.com/joseph-ayodele/campus-feed/db/ent/schema"
	"github.com/joseph-ayodele/campus-feed/internal/common"
	"github.com/joseph-ayodele/campus-feed/internal/entity"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	cfg := common.DatabaseConfig{Driver: "sqlite", DSN: fmt.Sprintf("file:%s?mode=memory&cache=shared", name)}
	ctx := context.Background()
	db, err := Open(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(db.Close)
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestTablesMatchEntSchema(t *testing.T) {
	cases := []struct {
		table  *entschema.Table
		fields []ent.Field
	}{
		{EventsTable, schema.Event{}.Fields()},
		{UsersTable, schema.User{}.Fields()},
		{FavoritesTable, schema.Favorite{}.Fields()},
		{ViewHistoryTable, schema.ViewHistory{}.Fields()},
	}
	for _, tc := range cases {
		t.Run(tc.table.Name, func(t *testing.T) {
			var want, got []string
			for _, f := range tc.fields {
				want = append(want, f.Descriptor().Name)
			}
			for _, c := range tc.table.Columns {
				if c.Name != "id" {
					got = append(got, c.Name)
				}
			}
			for _, name := range want {
				if _, ok := tc.table.Column(name); !ok {
					t.Errorf("column %q missing from table", name)
				}
			}
			if len(got) != len(want) {
				t.Errorf("table has %d columns, schema has %d fields: %v vs %v", len(got), len(want), got, want)
			}
		})
	}
}

func TestCreateAndGet(t *testing.T) {
	db := openTestDB(t)
	repo := NewEventRepository(db, nil)
	ctx := context.Background()

	draft, err := repo.Create(ctx, entity.EventInput{
		Title:      "腾讯2025秋招",
		Type:       constants.EventTypeRecruit,
		Tags:       []string{"校招"},
		KeyInfo:    &entity.KeyInfo{Company: "腾讯", Deadline: "2024-10-30"},
		RawContent: "data:image/png;base64,AAAA",
	}, SaveDraft, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if draft.Status != constants.EventStatusDraft {
		t.Errorf("status = %q, want draft", draft.Status)
	}
	if draft.PublishedAt != nil {
		t.Errorf("draft has published_at %v", draft.PublishedAt)
	}
	if draft.RawContent != constants.ImagePlaceholder {
		t.Errorf("raw_content = %q", draft.RawContent)
	}
	if draft.SourceGroup != "AI 采集" || draft.PublishTime != "刚刚" || draft.PosterColor != "from-gray-500 to-gray-600" {
		t.Errorf("defaults not applied: %+v", draft)
	}
	if diff := cmp.Diff(entity.KeyInfo{Company: "腾讯", Deadline: "2024-10-30"}, draft.KeyInfo); diff != "" {
		t.Errorf("key_info mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"校招"}, draft.Tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}

	uid := 7
	pub, err := repo.Create(ctx, entity.EventInput{Title: "讲座", Type: "seminar", ImageURL: "https://cdn/p.png"}, SavePublish, &uid)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if pub.Status != constants.EventStatusPublished || pub.PublishedAt == nil {
		t.Errorf("publish not applied: %+v", pub)
	}
	if pub.PublishedBy == nil || *pub.PublishedBy != 7 {
		t.Errorf("published_by = %v", pub.PublishedBy)
	}
	if pub.Type != constants.EventTypeLecture {
		t.Errorf("type = %q, want lecture", pub.Type)
	}
	if pub.ImageURL == nil || *pub.ImageURL != "https://cdn/p.png" {
		t.Errorf("image_url = %v", pub.ImageURL)
	}
	if len(pub.Tags) != 0 || pub.Tags == nil {
		t.Errorf("tags = %#v, want empty slice", pub.Tags)
	}

	if _, err := repo.Get(ctx, 999); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("get missing: %v", err)
	}
	if _, err := repo.Create(ctx, entity.EventInput{Title: "  "}, SaveDraft, nil); err == nil {
		t.Error("expected error for empty title")
	}
}

func TestListOrderingAndFilters(t *testing.T) {
	db := openTestDB(t)
	repo := NewEventRepository(db, nil)
	ctx := context.Background()

	mk := func(title string, typ constants.EventType, action SaveAction) entity.Event {
		t.Helper()
		e, err := repo.Create(ctx, entity.EventInput{Title: title, Type: typ}, action, nil)
		if err != nil {
			t.Fatalf("create %s: %v", title, err)
		}
		return e
	}
	a := mk("a", constants.EventTypeActivity, SavePublish)
	b := mk("b", constants.EventTypeRecruit, SaveDraft)
	c := mk("c", constants.EventTypeRecruit, SavePublish)
	if _, err := repo.SetTop(ctx, a.ID, true); err != nil {
		t.Fatalf("set top: %v", err)
	}

	titles := func(events []entity.Event) []string {
		var out []string
		for _, e := range events {
			out = append(out, e.Title)
		}
		return out
	}

	all, err := repo.List(ctx, entity.EventFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "c", "b"}, titles(all)); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}

	published := constants.EventStatusPublished
	recruit := constants.EventTypeRecruit
	got, err := repo.List(ctx, entity.EventFilter{Status: &published, Type: &recruit})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if diff := cmp.Diff([]string{"c"}, titles(got)); diff != "" {
		t.Errorf("filter mismatch (-want +got):\n%s", diff)
	}

	page, err := repo.List(ctx, entity.EventFilter{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if diff := cmp.Diff([]string{"c"}, titles(page)); diff != "" {
		t.Errorf("page mismatch (-want +got):\n%s", diff)
	}

	// rows written with the lifecycle name still match the filter
	if _, err := db.exec(ctx, db.builder().Update(eventsTable).Set("status", "published").Where(entsql.EQ("id", b.ID))); err != nil {
		t.Fatalf("raw update: %v", err)
	}
	got, err = repo.List(ctx, entity.EventFilter{Status: &published})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("got %d published events, want 3", len(got))
	}
	_ = c
}

func TestPatchStatusDelete(t *testing.T) {
	db := openTestDB(t)
	repo := NewEventRepository(db, nil)
	ctx := context.Background()

	e, err := repo.Create(ctx, entity.EventInput{Title: "old", Summary: "keep"}, SaveDraft, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	title := "new"
	tags := []string{"x", "y"}
	patched, err := repo.Patch(ctx, e.ID, entity.EventPatch{Title: &title, Tags: &tags})
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if patched.Title != "new" || patched.Summary != "keep" {
		t.Errorf("patch touched wrong fields: %+v", patched)
	}
	if diff := cmp.Diff(tags, patched.Tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}

	bad := "bogus"
	if _, err := repo.Patch(ctx, e.ID, entity.EventPatch{Status: &bad}); err == nil {
		t.Error("expected error for unknown status")
	}

	pub, err := repo.SetStatus(ctx, e.ID, constants.EventStatusPublished)
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if pub.Status != constants.EventStatusPublished || pub.PublishedAt == nil {
		t.Errorf("status not published: %+v", pub)
	}
	arch, err := repo.SetStatus(ctx, e.ID, constants.EventStatusArchived)
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if arch.Status != constants.EventStatusArchived {
		t.Errorf("status = %q", arch.Status)
	}

	if _, err := repo.SetTop(ctx, 12345, true); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("set top missing: %v", err)
	}
	if err := repo.Delete(ctx, e.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.Delete(ctx, e.ID); !IsNotFound(err) {
		t.Errorf("second delete: %v", err)
	}
}

func TestEngagementAndStats(t *testing.T) {
	db := openTestDB(t)
	events := NewEventRepository(db, nil)
	eng := NewEngagementRepository(db, nil)
	stats := NewStatsReader(db)
	ctx := context.Background()

	e1, err := events.Create(ctx, entity.EventInput{Title: "e1", Type: constants.EventTypeRecruit}, SavePublish, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	e2, err := events.Create(ctx, entity.EventInput{Title: "e2", Type: constants.EventTypeLecture}, SavePublish, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := events.Create(ctx, entity.EventInput{Title: "e3"}, SaveDraft, nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	u1, err := eng.UpsertUser(ctx, "openid-1", "alice")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	again, err := eng.UpsertUser(ctx, "openid-1", "alice2")
	if err != nil {
		t.Fatalf("upsert again: %v", err)
	}
	if again != u1 {
		t.Errorf("upsert returned %d, want %d", again, u1)
	}
	u2, err := eng.UpsertUser(ctx, "openid-2", "")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	for _, fav := range [][2]int{{u1, e1.ID}, {u2, e1.ID}, {u1, e2.ID}} {
		added, err := eng.AddFavorite(ctx, fav[0], fav[1])
		if err != nil || !added {
			t.Fatalf("add favorite %v: %v %v", fav, added, err)
		}
	}
	if added, err := eng.AddFavorite(ctx, u1, e1.ID); err != nil || added {
		t.Errorf("duplicate favorite: added=%v err=%v", added, err)
	}
	if err := eng.RecordView(ctx, e1.ID, &u1); err != nil {
		t.Fatalf("view: %v", err)
	}
	if err := eng.RecordView(ctx, e2.ID, nil); err != nil {
		t.Fatalf("view: %v", err)
	}

	got, err := events.Get(ctx, e1.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.FavoriteCount != 2 {
		t.Errorf("favorite_count = %d, want 2", got.FavoriteCount)
	}

	since := time.Now().Add(-time.Hour)
	check := func(name string, n int64, err error, want int64) {
		t.Helper()
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if n != want {
			t.Errorf("%s = %d, want %d", name, n, want)
		}
	}
	n, err := stats.CountViewsSince(ctx, since)
	check("views", n, err, 2)
	n, err = stats.CountViewsSince(ctx, time.Now().Add(time.Hour))
	check("future views", n, err, 0)
	n, err = stats.CountFavorites(ctx)
	check("favorites", n, err, 3)
	n, err = stats.CountUniqueFavoriteUsers(ctx)
	check("favorite users", n, err, 2)
	n, err = stats.CountEventsCreatedSince(ctx, since, constants.PublishedStoredValues)
	check("published today", n, err, 2)
	n, err = stats.CountUsers(ctx)
	check("users", n, err, 2)
	n, err = stats.CountUsersSeenSince(ctx, since)
	check("active users", n, err, 2)

	types, err := stats.TypeCounts(ctx, constants.PublishedStoredValues)
	if err != nil {
		t.Fatalf("type counts: %v", err)
	}
	if diff := cmp.Diff(map[string]int64{"recruit": 1, "lecture": 1}, types); diff != "" {
		t.Errorf("type counts mismatch (-want +got):\n%s", diff)
	}

	top, err := stats.TopFavorited(ctx, 5)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	want := []FavoriteTally{{EventID: e1.ID, Favorites: 2, Users: 2}, {EventID: e2.ID, Favorites: 1, Users: 1}}
	if diff := cmp.Diff(want, top); diff != "" {
		t.Errorf("top mismatch (-want +got):\n%s", diff)
	}

	views, err := stats.ViewTimesSince(ctx, since)
	if err != nil {
		t.Fatalf("view times: %v", err)
	}
	if len(views) != 2 {
		t.Errorf("got %d view times", len(views))
	}

	removed, err := eng.RemoveFavorite(ctx, u2, e1.ID)
	if err != nil || !removed {
		t.Fatalf("remove: %v %v", removed, err)
	}
	if removed, _ := eng.RemoveFavorite(ctx, u2, e1.ID); removed {
		t.Error("second remove reported true")
	}
	got, _ = events.Get(ctx, e1.ID)
	if got.FavoriteCount != 1 {
		t.Errorf("favorite_count after remove = %d", got.FavoriteCount)
	}

	// cascades
	if err := events.Delete(ctx, e1.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	n, err = stats.CountFavorites(ctx)
	check("favorites after delete", n, err, 1)

	byID, err := events.EventsByIDs(ctx, []int{e1.ID, e2.ID})
	if err != nil {
		t.Fatalf("by ids: %v", err)
	}
	if _, ok := byID[e2.ID]; !ok || len(byID) != 1 {
		t.Errorf("by ids = %v", byID)
	}
}

func TestParseSaveAction(t *testing.T) {
	for in, want := range map[string]SaveAction{"": SaveDraft, "draft": SaveDraft, " Publish ": SavePublish} {
		got, err := ParseSaveAction(in)
		if err != nil || got != want {
			t.Errorf("ParseSaveAction(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseSaveAction("archive"); err == nil {
		t.Error("expected error")
	}
}
