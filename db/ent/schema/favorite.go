package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

type Favorite struct{ ent.Schema }

func (Favorite) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "favorites"},
	}
}

func (Favorite) Fields() []ent.Field {
	return []ent.Field{
		field.Int("user_id"),
		field.Int("event_id"),
		field.Time("created_at").Default(time.Now).Immutable(),
	}
}

func (Favorite) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("event", Event.Type).
			Ref("favorites").
			Field("event_id").
			Required().
			Unique(),
		edge.From("user", User.Type).
			Ref("favorites").
			Field("user_id").
			Required().
			Unique(),
	}
}

func (Favorite) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("user_id", "event_id").Unique(),
	}
}
