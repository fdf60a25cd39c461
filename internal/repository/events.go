package repository

import (
	"context"
	stdsql "database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/campus-feed/constants"
	"github.com/joseph-ayodele/campus-feed/internal/common"
	"github.com/joseph-ayodele/campus-feed/internal/entity"
)

const (
	eventsTable = "events"

	defaultSourceGroup = "AI 采集"
	defaultPublishTime = "刚刚"
	defaultPosterColor = "from-gray-500 to-gray-600"
)

var eventColumns = []string{
	"id", "title", "type", "source_group", "publish_time", "tags", "key_info",
	"summary", "raw_content", "image_url", "is_top", "status", "poster_color",
	"favorite_count", "created_at", "updated_at", "published_at", "published_by",
}

// SaveAction decides the stored status of a new event.
type SaveAction string

const (
	SaveDraft   SaveAction = "draft"
	SavePublish SaveAction = "publish"
)

// EventRepository persists reviewed events.
type EventRepository interface {
	Create(ctx context.Context, in entity.EventInput, action SaveAction, publishedBy *int) (entity.Event, error)
	Get(ctx context.Context, id int) (entity.Event, error)
	List(ctx context.Context, f entity.EventFilter) ([]entity.Event, error)
	Patch(ctx context.Context, id int, p entity.EventPatch) (entity.Event, error)
	SetTop(ctx context.Context, id int, top bool) (entity.Event, error)
	SetStatus(ctx context.Context, id int, status constants.EventStatus) (entity.Event, error)
	Delete(ctx context.Context, id int) error
	EventsByIDs(ctx context.Context, ids []int) (map[int]entity.Event, error)
}

type eventRepo struct {
	db     *DB
	logger *slog.Logger
}

// NewEventRepository returns an EventRepository backed by db.
func NewEventRepository(db *DB, logger *slog.Logger) EventRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &eventRepo{db: db, logger: logger}
}

// ParseSaveAction maps the action string of a save request. Empty means draft.
func ParseSaveAction(s string) (SaveAction, error) {
	switch SaveAction(strings.ToLower(strings.TrimSpace(s))) {
	case "", SaveDraft:
		return SaveDraft, nil
	case SavePublish:
		return SavePublish, nil
	}
	return "", common.NewAppError("INVALID_ARGUMENT", fmt.Sprintf("unknown action %q", s), common.ErrInvalidInput)
}

// SanitizeRawContent keeps poster payloads out of stored rows.
func SanitizeRawContent(s string) string {
	if strings.HasPrefix(strings.TrimSpace(s), "data:image") {
		return constants.ImagePlaceholder
	}
	return s
}

func (r *eventRepo) Create(ctx context.Context, in entity.EventInput, action SaveAction, publishedBy *int) (entity.Event, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return entity.Event{}, common.NewAppError("INVALID_ARGUMENT", "title is required", common.ErrInvalidInput)
	}
	tags, err := marshalJSON(nonNilTags(in.Tags))
	if err != nil {
		return entity.Event{}, err
	}
	keyInfo := entity.KeyInfo{}
	if in.KeyInfo != nil {
		keyInfo = *in.KeyInfo
	}
	ki, err := marshalJSON(keyInfo)
	if err != nil {
		return entity.Event{}, err
	}

	ts := now()
	status := constants.EventStatusDraft
	if action == SavePublish {
		status = constants.EventStatusPublished
	}
	ins := r.db.builder().Insert(eventsTable).
		Set("title", title).
		Set("type", string(canonicalType(string(in.Type)))).
		Set("source_group", orDefault(in.SourceGroup, defaultSourceGroup)).
		Set("publish_time", orDefault(in.PublishTime, defaultPublishTime)).
		Set("tags", tags).
		Set("key_info", ki).
		Set("summary", in.Summary).
		Set("raw_content", SanitizeRawContent(in.RawContent)).
		Set("is_top", in.IsTop).
		Set("status", status.StoredValue()).
		Set("poster_color", orDefault(in.PosterColor, defaultPosterColor)).
		Set("favorite_count", 0).
		Set("created_at", ts).
		Set("updated_at", ts)
	if u := strings.TrimSpace(in.ImageURL); u != "" {
		ins.Set("image_url", u)
	}
	if status == constants.EventStatusPublished {
		ins.Set("published_at", ts)
		if publishedBy != nil {
			ins.Set("published_by", *publishedBy)
		}
	}
	ins.Returning("id")

	var id int
	if err := r.db.queryRows(ctx, ins, func(rows *entsql.Rows) error { return rows.Scan(&id) }); err != nil {
		r.logger.Error("event.create.failed", "error", err)
		return entity.Event{}, fmt.Errorf("insert event: %w", err)
	}
	r.logger.Info("event.created", "id", id, "status", status, "type", in.Type)
	return r.Get(ctx, id)
}

func (r *eventRepo) Get(ctx context.Context, id int) (entity.Event, error) {
	sel := r.selectEvents().Where(entsql.EQ("id", id))
	events, err := r.scanEvents(ctx, sel)
	if err != nil {
		return entity.Event{}, err
	}
	if len(events) == 0 {
		return entity.Event{}, fmt.Errorf("event %d: %w", id, common.ErrNotFound)
	}
	return events[0], nil
}

func (r *eventRepo) List(ctx context.Context, f entity.EventFilter) ([]entity.Event, error) {
	sel := r.selectEvents()
	var preds []*entsql.Predicate
	if f.Status != nil {
		preds = append(preds, entsql.In("status", toAny(f.Status.StoredAliases())...))
	}
	if f.Type != nil {
		preds = append(preds, entsql.EQ("type", string(*f.Type)))
	}
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	sel.OrderBy(entsql.Desc("is_top"), entsql.Desc("created_at"), entsql.Desc("id"))
	if f.Limit > 0 {
		sel.Limit(f.Limit)
		if f.Offset > 0 {
			sel.Offset(f.Offset)
		}
	}
	return r.scanEvents(ctx, sel)
}

func (r *eventRepo) Patch(ctx context.Context, id int, p entity.EventPatch) (entity.Event, error) {
	if p.Empty() {
		return r.Get(ctx, id)
	}
	up := r.db.builder().Update(eventsTable).Where(entsql.EQ("id", id))
	if p.Title != nil {
		t := strings.TrimSpace(*p.Title)
		if t == "" {
			return entity.Event{}, common.NewAppError("INVALID_ARGUMENT", "title must not be empty", common.ErrInvalidInput)
		}
		up.Set("title", t)
	}
	if p.Type != nil {
		up.Set("type", string(canonicalType(*p.Type)))
	}
	if p.SourceGroup != nil {
		up.Set("source_group", *p.SourceGroup)
	}
	if p.PublishTime != nil {
		up.Set("publish_time", *p.PublishTime)
	}
	if p.Tags != nil {
		tags, err := marshalJSON(nonNilTags(*p.Tags))
		if err != nil {
			return entity.Event{}, err
		}
		up.Set("tags", tags)
	}
	if p.KeyInfo != nil {
		ki, err := marshalJSON(*p.KeyInfo)
		if err != nil {
			return entity.Event{}, err
		}
		up.Set("key_info", ki)
	}
	if p.Summary != nil {
		up.Set("summary", *p.Summary)
	}
	if p.RawContent != nil {
		up.Set("raw_content", SanitizeRawContent(*p.RawContent))
	}
	if p.IsTop != nil {
		up.Set("is_top", *p.IsTop)
	}
	if p.Status != nil {
		st, ok := constants.ParseEventStatus(*p.Status)
		if !ok {
			return entity.Event{}, common.NewAppError("INVALID_ARGUMENT", fmt.Sprintf("unknown status %q", *p.Status), common.ErrInvalidInput)
		}
		up.Set("status", st.StoredValue())
	}
	if p.PosterColor != nil {
		up.Set("poster_color", *p.PosterColor)
	}
	up.Set("updated_at", now())
	return r.update(ctx, id, up)
}

func (r *eventRepo) SetTop(ctx context.Context, id int, top bool) (entity.Event, error) {
	up := r.db.builder().Update(eventsTable).
		Set("is_top", top).
		Set("updated_at", now()).
		Where(entsql.EQ("id", id))
	return r.update(ctx, id, up)
}

func (r *eventRepo) SetStatus(ctx context.Context, id int, status constants.EventStatus) (entity.Event, error) {
	ts := now()
	up := r.db.builder().Update(eventsTable).
		Set("status", status.StoredValue()).
		Set("updated_at", ts).
		Where(entsql.EQ("id", id))
	if status == constants.EventStatusPublished {
		up.Set("published_at", ts)
	}
	return r.update(ctx, id, up)
}

func (r *eventRepo) Delete(ctx context.Context, id int) error {
	n, err := r.db.exec(ctx, r.db.builder().Delete(eventsTable).Where(entsql.EQ("id", id)))
	if err != nil {
		return fmt.Errorf("delete event %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("event %d: %w", id, common.ErrNotFound)
	}
	r.logger.Info("event.deleted", "id", id)
	return nil
}

func (r *eventRepo) EventsByIDs(ctx context.Context, ids []int) (map[int]entity.Event, error) {
	out := make(map[int]entity.Event, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	events, err := r.scanEvents(ctx, r.selectEvents().Where(entsql.In("id", args...)))
	if err != nil {
		return nil, err
	}
	for _, e := range events {
		out[e.ID] = e
	}
	return out, nil
}

func (r *eventRepo) update(ctx context.Context, id int, up *entsql.UpdateBuilder) (entity.Event, error) {
	n, err := r.db.exec(ctx, up)
	if err != nil {
		r.logger.Error("event.update.failed", "id", id, "error", err)
		return entity.Event{}, fmt.Errorf("update event %d: %w", id, err)
	}
	if n == 0 {
		return entity.Event{}, fmt.Errorf("event %d: %w", id, common.ErrNotFound)
	}
	return r.Get(ctx, id)
}

func (r *eventRepo) selectEvents() *entsql.Selector {
	b := r.db.builder()
	return b.Select(eventColumns...).From(b.Table(eventsTable))
}

func (r *eventRepo) scanEvents(ctx context.Context, sel *entsql.Selector) ([]entity.Event, error) {
	var out []entity.Event
	err := r.db.queryRows(ctx, sel, func(rows *entsql.Rows) error {
		e, err := scanEvent(rows)
		if err != nil {
			return err
		}
		out = append(out, e)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	return out, nil
}

func scanEvent(rows *entsql.Rows) (entity.Event, error) {
	var (
		e           entity.Event
		typ, status string
		tags, ki    stdsql.NullString
		imageURL    stdsql.NullString
		publishedAt stdsql.NullTime
		publishedBy stdsql.NullInt64
	)
	if err := rows.Scan(
		&e.ID, &e.Title, &typ, &e.SourceGroup, &e.PublishTime, &tags, &ki,
		&e.Summary, &e.RawContent, &imageURL, &e.IsTop, &status, &e.PosterColor,
		&e.FavoriteCount, &e.CreatedAt, &e.UpdatedAt, &publishedAt, &publishedBy,
	); err != nil {
		return e, err
	}
	e.Type = canonicalType(typ)
	if st, ok := constants.ParseEventStatus(status); ok {
		e.Status = st
	} else {
		e.Status = constants.EventStatus(status)
	}
	e.Tags = []string{}
	if tags.Valid && tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &e.Tags); err != nil {
			return e, fmt.Errorf("decode tags of event %d: %w", e.ID, err)
		}
	}
	if ki.Valid && ki.String != "" {
		if err := json.Unmarshal([]byte(ki.String), &e.KeyInfo); err != nil {
			return e, fmt.Errorf("decode key_info of event %d: %w", e.ID, err)
		}
	}
	if imageURL.Valid {
		e.ImageURL = &imageURL.String
	}
	if publishedAt.Valid {
		t := publishedAt.Time.UTC()
		e.PublishedAt = &t
	}
	if publishedBy.Valid {
		v := int(publishedBy.Int64)
		e.PublishedBy = &v
	}
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return e, nil
}

func marshalJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode json column: %w", err)
	}
	return string(b), nil
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func orDefault(v, def string) string {
	if s := strings.TrimSpace(v); s != "" {
		return s
	}
	return def
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// IsNotFound reports whether err is a missing-row error.
func IsNotFound(err error) bool { return errors.Is(err, common.ErrNotFound) }

func canonicalType(s string) constants.EventType {
	t, _ := constants.CanonicalizeEventType(s)
	return t
}
