package repository

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Table definitions mirror db/ent/schema.
var (
	EventsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "title", Type: field.TypeString},
		{Name: "type", Type: field.TypeString, Default: "activity"},
		{Name: "source_group", Type: field.TypeString, Default: "AI 采集"},
		{Name: "publish_time", Type: field.TypeString, Default: "刚刚"},
		{Name: "tags", Type: field.TypeJSON, Nullable: true},
		{Name: "key_info", Type: field.TypeJSON, Nullable: true},
		{Name: "summary", Type: field.TypeString, Size: 2147483647, Default: ""},
		{Name: "raw_content", Type: field.TypeString, Size: 2147483647, Default: ""},
		{Name: "image_url", Type: field.TypeString, Nullable: true},
		{Name: "is_top", Type: field.TypeBool, Default: false},
		{Name: "status", Type: field.TypeString, Default: "inactive"},
		{Name: "poster_color", Type: field.TypeString, Default: "from-gray-500 to-gray-600"},
		{Name: "favorite_count", Type: field.TypeInt, Default: 0},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
		{Name: "published_at", Type: field.TypeTime, Nullable: true},
		{Name: "published_by", Type: field.TypeInt, Nullable: true},
	}
	EventsTable = &schema.Table{
		Name:       "events",
		Columns:    EventsColumns,
		PrimaryKey: []*schema.Column{EventsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "event_status_type", Columns: []*schema.Column{EventsColumns[11], EventsColumns[2]}},
			{Name: "event_is_top_created_at", Columns: []*schema.Column{EventsColumns[10], EventsColumns[14]}},
		},
	}

	UsersColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "openid", Type: field.TypeString, Unique: true},
		{Name: "nickname", Type: field.TypeString, Default: ""},
		{Name: "last_seen", Type: field.TypeTime, Nullable: true},
		{Name: "created_at", Type: field.TypeTime},
	}
	UsersTable = &schema.Table{
		Name:       "users",
		Columns:    UsersColumns,
		PrimaryKey: []*schema.Column{UsersColumns[0]},
	}

	FavoritesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "event_id", Type: field.TypeInt},
		{Name: "user_id", Type: field.TypeInt},
	}
	FavoritesTable = &schema.Table{
		Name:       "favorites",
		Columns:    FavoritesColumns,
		PrimaryKey: []*schema.Column{FavoritesColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "favorites_events_favorites",
				Columns:    []*schema.Column{FavoritesColumns[2]},
				RefColumns: []*schema.Column{EventsColumns[0]},
				OnDelete:   schema.Cascade,
			},
			{
				Symbol:     "favorites_users_favorites",
				Columns:    []*schema.Column{FavoritesColumns[3]},
				RefColumns: []*schema.Column{UsersColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{Name: "favorite_user_id_event_id", Unique: true, Columns: []*schema.Column{FavoritesColumns[3], FavoritesColumns[2]}},
		},
	}

	ViewHistoryColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "user_id", Type: field.TypeInt, Nullable: true},
		{Name: "viewed_at", Type: field.TypeTime},
		{Name: "event_id", Type: field.TypeInt},
	}
	ViewHistoryTable = &schema.Table{
		Name:       "view_history",
		Columns:    ViewHistoryColumns,
		PrimaryKey: []*schema.Column{ViewHistoryColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "view_history_events_views",
				Columns:    []*schema.Column{ViewHistoryColumns[3]},
				RefColumns: []*schema.Column{EventsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{Name: "viewhistory_viewed_at", Columns: []*schema.Column{ViewHistoryColumns[2]}},
		},
	}

	Tables = []*schema.Table{EventsTable, UsersTable, FavoritesTable, ViewHistoryTable}
)

func init() {
	FavoritesTable.ForeignKeys[0].RefTable = EventsTable
	FavoritesTable.ForeignKeys[1].RefTable = UsersTable
	ViewHistoryTable.ForeignKeys[0].RefTable = EventsTable
}

// Migrate creates or alters the tables. Columns are never dropped.
func (d *DB) Migrate(ctx context.Context) error {
	m, err := schema.NewMigrate(d.drv, schema.WithForeignKeys(true))
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}
	if err := m.Create(ctx, Tables...); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	d.logger.Info("database schema up to date", "dialect", d.dialect, "tables", len(Tables))
	return nil
}
