package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"

	"github.com/joseph-ayodele/campus-feed/constants"
	"github.com/joseph-ayodele/campus-feed/db/ent/schema/utils"
)

type Event struct{ ent.Schema }

func (Event) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "events"},
	}
}

func (Event) Fields() []ent.Field {
	return []ent.Field{
		field.String("title").NotEmpty(),
		field.String("type").
			Validate(utils.EnumValidator(constants.EventTypesAsStrings()...)).
			Default(string(constants.DefaultEventType)),
		field.String("source_group").Default("AI 采集"),
		field.String("publish_time").Default("刚刚"),
		field.JSON("tags", []string{}).Optional(),
		field.JSON("key_info", map[string]any{}).Optional().
			SchemaType(map[string]string{dialect.Postgres: "jsonb"}),
		field.Text("summary").Default(""),
		// never a data URI; image posters store a placeholder
		field.Text("raw_content").Default(""),
		field.String("image_url").Optional().Nillable(),
		field.Bool("is_top").Default(false),
		field.String("status").
			Validate(utils.EnumValidator(constants.StoredStatuses...)).
			Default("inactive"),
		field.String("poster_color").Default("from-gray-500 to-gray-600"),
		field.Int("favorite_count").Default(0).NonNegative(),
		field.Time("created_at").Default(time.Now).Immutable(),
		field.Time("updated_at").Default(time.Now).UpdateDefault(time.Now),
		field.Time("published_at").Optional().Nillable(),
		field.Int("published_by").Optional().Nillable(),
	}
}

func (Event) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("favorites", Favorite.Type),
		edge.To("views", ViewHistory.Type),
	}
}

func (Event) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("status", "type"),
		index.Fields("is_top", "created_at"),
	}
}
