package constants

import "strings"

// EventStatus is the lifecycle state callers see.
type EventStatus string

const (
	EventStatusDraft     EventStatus = "draft"
	EventStatusPublished EventStatus = "published"
	EventStatusArchived  EventStatus = "archived"
)

// Legacy storage values still present in older rows.
const (
	storedInactive = "inactive"
	storedActive   = "active"
	storedExpired  = "expired"
)

// StoredValue is the string written to events.status. Drafts and published
// events keep the legacy values the mini-program reads.
func (s EventStatus) StoredValue() string {
	switch s {
	case EventStatusDraft:
		return storedInactive
	case EventStatusPublished:
		return storedActive
	default:
		return string(s)
	}
}

// StoredAliases lists every stored value that means s.
func (s EventStatus) StoredAliases() []string {
	switch s {
	case EventStatusDraft:
		return []string{storedInactive, "draft"}
	case EventStatusPublished:
		return []string{storedActive, "published"}
	case EventStatusArchived:
		return []string{"archived", storedExpired}
	}
	return []string{string(s)}
}

// ParseEventStatus accepts both lifecycle names and legacy stored values.
func ParseEventStatus(s string) (EventStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "draft", storedInactive:
		return EventStatusDraft, true
	case "published", storedActive:
		return EventStatusPublished, true
	case "archived", storedExpired:
		return EventStatusArchived, true
	}
	return "", false
}

// StoredStatuses lists every value events.status may hold.
var StoredStatuses = []string{
	"draft", "published", "archived", storedInactive, storedActive, storedExpired,
}

// PublishedStoredValues are the stored values counted as live.
var PublishedStoredValues = []string{storedActive, "published"}

// JobStatus is the state of an async parse job.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "QUEUED"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusSucceeded JobStatus = "SUCCEEDED"
	JobStatusFailed    JobStatus = "FAILED"
)

func (s JobStatus) Terminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}
