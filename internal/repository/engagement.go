package repository

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/campus-feed/internal/common"
)

// EngagementRepository records the mini-program activity the dashboard reads.
type EngagementRepository interface {
	UpsertUser(ctx context.Context, openID, nickname string) (int, error)
	RecordView(ctx context.Context, eventID int, userID *int) error
	AddFavorite(ctx context.Context, userID, eventID int) (bool, error)
	RemoveFavorite(ctx context.Context, userID, eventID int) (bool, error)
}

type engagementRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewEngagementRepository(db *DB, logger *slog.Logger) EngagementRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &engagementRepo{db: db, logger: logger}
}

// UpsertUser creates the user or refreshes nickname and last_seen.
func (r *engagementRepo) UpsertUser(ctx context.Context, openID, nickname string) (int, error) {
	openID = strings.TrimSpace(openID)
	if openID == "" {
		return 0, common.NewAppError("INVALID_ARGUMENT", "openid is required", common.ErrInvalidInput)
	}
	ts := now()
	ins := r.db.builder().Insert("users").
		Set("openid", openID).
		Set("nickname", nickname).
		Set("last_seen", ts).
		Set("created_at", ts).
		OnConflict(
			entsql.ConflictColumns("openid"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.SetExcluded("nickname")
				u.SetExcluded("last_seen")
			}),
		).
		Returning("id")
	var id int
	if err := r.db.queryRows(ctx, ins, func(rows *entsql.Rows) error { return rows.Scan(&id) }); err != nil {
		return 0, fmt.Errorf("upsert user: %w", err)
	}
	return id, nil
}

func (r *engagementRepo) RecordView(ctx context.Context, eventID int, userID *int) error {
	ins := r.db.builder().Insert("view_history").
		Set("event_id", eventID).
		Set("viewed_at", now())
	if userID != nil {
		ins.Set("user_id", *userID)
	}
	if _, err := r.db.exec(ctx, ins); err != nil {
		return fmt.Errorf("record view of event %d: %w", eventID, err)
	}
	return nil
}

// AddFavorite stores the favorite and bumps the event counter in one
// transaction. It reports false when the favorite already existed.
func (r *engagementRepo) AddFavorite(ctx context.Context, userID, eventID int) (bool, error) {
	var added bool
	err := r.db.withTx(ctx, func(tx *DB) error {
		ins := tx.builder().Insert("favorites").
			Set("user_id", userID).
			Set("event_id", eventID).
			Set("created_at", now()).
			OnConflict(entsql.ConflictColumns("user_id", "event_id"), entsql.DoNothing())
		n, err := tx.exec(ctx, ins)
		if err != nil || n == 0 {
			return err
		}
		added = true
		up := tx.builder().Update(eventsTable).Add("favorite_count", 1).Where(entsql.EQ("id", eventID))
		_, err = tx.exec(ctx, up)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("add favorite: %w", err)
	}
	return added, nil
}

func (r *engagementRepo) RemoveFavorite(ctx context.Context, userID, eventID int) (bool, error) {
	var removed bool
	err := r.db.withTx(ctx, func(tx *DB) error {
		del := tx.builder().Delete("favorites").
			Where(entsql.And(entsql.EQ("user_id", userID), entsql.EQ("event_id", eventID)))
		n, err := tx.exec(ctx, del)
		if err != nil || n == 0 {
			return err
		}
		removed = true
		up := tx.builder().Update(eventsTable).
			Add("favorite_count", -1).
			Where(entsql.And(entsql.EQ("id", eventID), entsql.GT("favorite_count", 0)))
		_, err = tx.exec(ctx, up)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("remove favorite: %w", err)
	}
	return removed, nil
}

// StatsReader holds the read-only aggregate queries behind the dashboard.
type StatsReader interface {
	CountViewsSince(ctx context.Context, since time.Time) (int64, error)
	CountFavorites(ctx context.Context) (int64, error)
	CountUniqueFavoriteUsers(ctx context.Context) (int64, error)
	CountEventsCreatedSince(ctx context.Context, since time.Time, statuses []string) (int64, error)
	CountUsers(ctx context.Context) (int64, error)
	CountUsersSeenSince(ctx context.Context, since time.Time) (int64, error)
	TypeCounts(ctx context.Context, statuses []string) (map[string]int64, error)
	TopFavorited(ctx context.Context, limit int) ([]FavoriteTally, error)
	ViewTimesSince(ctx context.Context, since time.Time) ([]time.Time, error)
}

// FavoriteTally is the favorite count of one event.
type FavoriteTally struct {
	EventID   int
	Favorites int64
	Users     int64
}

type statsReader struct{ db *DB }

func NewStatsReader(db *DB) StatsReader { return &statsReader{db: db} }

func (s *statsReader) countFrom(ctx context.Context, table string, p *entsql.Predicate, cols ...string) (int64, error) {
	b := s.db.builder()
	sel := b.Select().From(b.Table(table))
	if len(cols) > 0 {
		sel.Select(entsql.Count(entsql.Distinct(cols...)))
	} else {
		sel.Count()
	}
	if p != nil {
		sel.Where(p)
	}
	n, err := s.db.count(ctx, sel)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

func (s *statsReader) CountViewsSince(ctx context.Context, since time.Time) (int64, error) {
	return s.countFrom(ctx, "view_history", entsql.GTE("viewed_at", since.UTC()))
}

func (s *statsReader) CountFavorites(ctx context.Context) (int64, error) {
	return s.countFrom(ctx, "favorites", nil)
}

func (s *statsReader) CountUniqueFavoriteUsers(ctx context.Context) (int64, error) {
	return s.countFrom(ctx, "favorites", nil, "user_id")
}

func (s *statsReader) CountEventsCreatedSince(ctx context.Context, since time.Time, statuses []string) (int64, error) {
	return s.countFrom(ctx, eventsTable, entsql.And(
		entsql.GTE("created_at", since.UTC()),
		entsql.In("status", toAny(statuses)...),
	))
}

func (s *statsReader) CountUsers(ctx context.Context) (int64, error) {
	return s.countFrom(ctx, "users", nil)
}

func (s *statsReader) CountUsersSeenSince(ctx context.Context, since time.Time) (int64, error) {
	return s.countFrom(ctx, "users", entsql.GTE("last_seen", since.UTC()))
}

func (s *statsReader) TypeCounts(ctx context.Context, statuses []string) (map[string]int64, error) {
	b := s.db.builder()
	sel := b.Select("type", entsql.As(entsql.Count("*"), "n")).
		From(b.Table(eventsTable)).
		Where(entsql.In("status", toAny(statuses)...)).
		GroupBy("type")
	out := map[string]int64{}
	err := s.db.queryRows(ctx, sel, func(rows *entsql.Rows) error {
		var (
			typ string
			n   int64
		)
		if err := rows.Scan(&typ, &n); err != nil {
			return err
		}
		out[string(canonicalType(typ))] += n
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("type counts: %w", err)
	}
	return out, nil
}

func (s *statsReader) TopFavorited(ctx context.Context, limit int) ([]FavoriteTally, error) {
	b := s.db.builder()
	sel := b.Select(
		"event_id",
		entsql.As(entsql.Count("*"), "favorites"),
		entsql.As(entsql.Count(entsql.Distinct("user_id")), "users"),
	).
		From(b.Table("favorites")).
		GroupBy("event_id").
		OrderBy(entsql.Desc("favorites"), entsql.Asc("event_id"))
	if limit > 0 {
		sel.Limit(limit)
	}
	var out []FavoriteTally
	err := s.db.queryRows(ctx, sel, func(rows *entsql.Rows) error {
		var t FavoriteTally
		if err := rows.Scan(&t.EventID, &t.Favorites, &t.Users); err != nil {
			return err
		}
		out = append(out, t)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("top favorited: %w", err)
	}
	return out, nil
}

func (s *statsReader) ViewTimesSince(ctx context.Context, since time.Time) ([]time.Time, error) {
	b := s.db.builder()
	sel := b.Select("viewed_at").From(b.Table("view_history")).Where(entsql.GTE("viewed_at", since.UTC()))
	var out []time.Time
	err := s.db.queryRows(ctx, sel, func(rows *entsql.Rows) error {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return err
		}
		out = append(out, t.UTC())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("view times: %w", err)
	}
	return out, nil
}

// withTx runs fn against a copy of d bound to a transaction.
func (d *DB) withTx(ctx context.Context, fn func(tx *DB) error) error {
	tx, err := d.drv.Tx(ctx)
	if err != nil {
		return err
	}
	txd := &DB{drv: d.drv, tx: tx, dialect: d.dialect, logger: d.logger}
	if err := fn(txd); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			d.logger.Error("rollback failed", "error", rerr)
		}
		return err
	}
	return tx.Commit()
}
