package entity

import (
	"time"

	"github.com/joseph-ayodele/campus-feed/constants"
)

// KeyInfo holds the optional structured facts of an event.
type KeyInfo struct {
	Date             string `json:"date,omitempty"`
	Time             string `json:"time,omitempty"`
	Location         string `json:"location,omitempty"`
	Deadline         string `json:"deadline,omitempty"`
	Company          string `json:"company,omitempty"`
	Position         string `json:"position,omitempty"`
	Education        string `json:"education,omitempty"`
	Link             string `json:"link,omitempty"`
	RegistrationLink string `json:"registration_link,omitempty"`
	Referral         *bool  `json:"referral,omitempty"`
}

// ParsedEvent is the output of one ingestion pipeline run.
type ParsedEvent struct {
	Title      string              `json:"title"`
	Type       constants.EventType `json:"type"`
	KeyInfo    KeyInfo             `json:"key_info"`
	Summary    string              `json:"summary"`
	RawContent string              `json:"raw_content"`
	Tags       []string            `json:"tags"`
}

// Event is a stored record.
type Event struct {
	ID            int                   `json:"id"`
	Title         string                `json:"title"`
	Type          constants.EventType   `json:"type"`
	SourceGroup   string                `json:"source_group"`
	PublishTime   string                `json:"publish_time"`
	Tags          []string              `json:"tags"`
	KeyInfo       KeyInfo               `json:"key_info"`
	Summary       string                `json:"summary"`
	RawContent    string                `json:"raw_content"`
	ImageURL      *string               `json:"image_url,omitempty"`
	IsTop         bool                  `json:"is_top"`
	Status        constants.EventStatus `json:"status"`
	PosterColor   string                `json:"poster_color"`
	FavoriteCount int                   `json:"favorite_count"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
	PublishedAt   *time.Time            `json:"published_at,omitempty"`
	PublishedBy   *int                  `json:"published_by,omitempty"`
}

// EventInput is what a reviewer submits when saving a parsed event.
type EventInput struct {
	Title       string              `json:"title"`
	Type        constants.EventType `json:"type"`
	SourceGroup string              `json:"source_group,omitempty"`
	PublishTime string              `json:"publish_time,omitempty"`
	Tags        []string            `json:"tags,omitempty"`
	KeyInfo     *KeyInfo            `json:"key_info,omitempty"`
	Summary     string              `json:"summary,omitempty"`
	RawContent  string              `json:"raw_content,omitempty"`
	ImageURL    string              `json:"image_url,omitempty"`
	IsTop       bool                `json:"is_top,omitempty"`
	PosterColor string              `json:"poster_color,omitempty"`
}

// EventPatch carries only the fields a caller wants to change.
type EventPatch struct {
	Title       *string   `json:"title,omitempty"`
	Type        *string   `json:"type,omitempty"`
	SourceGroup *string   `json:"source_group,omitempty"`
	PublishTime *string   `json:"publish_time,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
	KeyInfo     *KeyInfo  `json:"key_info,omitempty"`
	Summary     *string   `json:"summary,omitempty"`
	RawContent  *string   `json:"raw_content,omitempty"`
	IsTop       *bool     `json:"is_top,omitempty"`
	Status      *string   `json:"status,omitempty"`
	PosterColor *string   `json:"poster_color,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p EventPatch) Empty() bool {
	return p.Title == nil && p.Type == nil && p.SourceGroup == nil && p.PublishTime == nil &&
		p.Tags == nil && p.KeyInfo == nil && p.Summary == nil && p.RawContent == nil &&
		p.IsTop == nil && p.Status == nil && p.PosterColor == nil
}

// EventFilter narrows a listing. Limit 0 means no paging.
type EventFilter struct {
	Status *constants.EventStatus
	Type   *constants.EventType
	Limit  int
	Offset int
}
