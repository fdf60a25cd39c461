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

type ViewHistory struct{ ent.Schema }

func (ViewHistory) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "view_history"},
	}
}

func (ViewHistory) Fields() []ent.Field {
	return []ent.Field{
		field.Int("user_id").Optional().Nillable(),
		field.Int("event_id"),
		field.Time("viewed_at").Default(time.Now).Immutable(),
	}
}

func (ViewHistory) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("event", Event.Type).
			Ref("views").
			Field("event_id").
			Required().
			Unique(),
	}
}

func (ViewHistory) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("viewed_at"),
	}
}
