package export

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/campus-feed/constants"
	"github.com/joseph-ayodele/campus-feed/internal/entity"
)

type stubLister struct {
	events []entity.Event
	err    error
	got    entity.EventFilter
}

func (s *stubLister) List(_ context.Context, f entity.EventFilter) ([]entity.Event, error) {
	s.got = f
	return s.events, s.err
}

func TestExportEventsXLSX(t *testing.T) {
	created := time.Date(2024, 10, 1, 2, 0, 0, 0, time.UTC)
	lister := &stubLister{events: []entity.Event{
		{
			ID: 3, Title: "腾讯秋招", Type: constants.EventTypeRecruit, Status: constants.EventStatusPublished,
			IsTop: true, SourceGroup: "就业群", Tags: []string{"校招", "互联网"},
			KeyInfo:       entity.KeyInfo{Company: "腾讯", Deadline: "2024-10-30", RegistrationLink: "https://join"},
			FavoriteCount: 4, CreatedAt: created, Summary: "summary",
		},
		{ID: 1, Title: "讲座", Type: constants.EventTypeLecture, Status: constants.EventStatusDraft, CreatedAt: created},
	}}
	svc := NewService(lister, time.UTC, nil)
	status := constants.EventStatusPublished

	out, err := svc.ExportEventsXLSX(context.Background(), entity.EventFilter{Status: &status})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if lister.got.Status == nil || *lister.got.Status != status {
		t.Errorf("filter not passed through: %+v", lister.got)
	}

	f, err := excelize.OpenReader(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(sheet)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if diff := cmp.Diff(headers, rows[0]); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
	want := []string{
		"3", "腾讯秋招", "recruit", "published", "是", "就业群", "", "", "", "2024-10-30",
		"腾讯", "", "https://join", "校招, 互联网", "4", "2024-10-01 02:00:00", "summary",
	}
	if diff := cmp.Diff(want, rows[1]); diff != "" {
		t.Errorf("row mismatch (-want +got):\n%s", diff)
	}
	if rows[2][1] != "讲座" {
		t.Errorf("second row title = %q", rows[2][1])
	}
}

func TestExportListError(t *testing.T) {
	svc := NewService(&stubLister{err: errors.New("db down")}, nil, nil)
	if _, err := svc.ExportEventsXLSX(context.Background(), entity.EventFilter{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestTruncateAndFileName(t *testing.T) {
	if got := truncate("一二三四五", 3); got != "一二…" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("abc", 5); got != "abc" {
		t.Errorf("truncate = %q", got)
	}
	if got := FileName(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)); got != "events_20240102_030405.xlsx" {
		t.Errorf("file name = %q", got)
	}
}
