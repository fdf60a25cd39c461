package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/campus-feed/internal/entity"
)

const sheet = "Events"

// EventLister is the listing half of the event repository.
type EventLister interface {
	List(ctx context.Context, f entity.EventFilter) ([]entity.Event, error)
}

// Service produces XLSX bytes for event exports.
type Service struct {
	events EventLister
	loc    *time.Location
	logger *slog.Logger
}

func NewService(events EventLister, loc *time.Location, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Service{events: events, loc: loc, logger: logger}
}

var headers = []string{
	"ID", "标题", "类型", "状态", "置顶", "来源", "日期", "时间", "地点", "截止时间",
	"公司", "岗位", "链接", "标签", "收藏数", "创建时间", "摘要",
}

// ExportEventsXLSX returns a workbook with one row per event matching f, in
// listing order.
func (s *Service) ExportEventsXLSX(ctx context.Context, f entity.EventFilter) ([]byte, error) {
	start := time.Now()
	exportID := uuid.New()

	events, err := s.events.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}

	x := excelize.NewFile()
	defer func() { _ = x.Close() }()
	if err := x.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}
	if err := x.SetSheetRow(sheet, "A1", &headers); err != nil {
		return nil, err
	}
	if style, err := x.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = x.SetRowStyle(sheet, 1, 1, style)
	}

	for i, e := range events {
		top := ""
		if e.IsTop {
			top = "是"
		}
		link := e.KeyInfo.Link
		if link == "" {
			link = e.KeyInfo.RegistrationLink
		}
		row := []any{
			e.ID,
			e.Title,
			string(e.Type),
			string(e.Status),
			top,
			e.SourceGroup,
			e.KeyInfo.Date,
			e.KeyInfo.Time,
			e.KeyInfo.Location,
			e.KeyInfo.Deadline,
			e.KeyInfo.Company,
			e.KeyInfo.Position,
			link,
			strings.Join(e.Tags, ", "),
			e.FavoriteCount,
			e.CreatedAt.In(s.loc).Format(time.DateTime),
			truncate(e.Summary, 200),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := x.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	_ = x.SetColWidth(sheet, "A", "A", 8)
	_ = x.SetColWidth(sheet, "B", "B", 36)
	_ = x.SetColWidth(sheet, "C", "F", 12)
	_ = x.SetColWidth(sheet, "G", "L", 16)
	_ = x.SetColWidth(sheet, "M", "M", 40)
	_ = x.SetColWidth(sheet, "N", "P", 20)
	_ = x.SetColWidth(sheet, "Q", "Q", 60)

	buf, err := x.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"export_id", exportID.String(),
		"rows", len(events),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// FileName is the attachment name for an export made at t.
func FileName(t time.Time) string {
	return "events_" + t.Format("20060102_150405") + ".xlsx"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return string(r[:1])
	}
	return string(r[:n-1]) + "…"
}
