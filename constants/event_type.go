package constants

import (
	"strings"
)

type EventType string

const (
	EventTypeRecruit  EventType = "recruit"
	EventTypeActivity EventType = "activity"
	EventTypeLecture  EventType = "lecture"
)

// DefaultEventType is used whenever the model omits or garbles the type.
const DefaultEventType = EventTypeActivity

var allEventTypes = []EventType{
	EventTypeRecruit,
	EventTypeActivity,
	EventTypeLecture,
}

func EventTypesAsStrings() []string {
	result := make([]string, len(allEventTypes))
	for i, t := range allEventTypes {
		result[i] = string(t)
	}
	return result
}

func (t EventType) Valid() bool {
	for _, v := range allEventTypes {
		if t == v {
			return true
		}
	}
	return false
}

// CanonicalizeEventType maps model output onto the closed set. Unknown values
// fall back to DefaultEventType and report false.
func CanonicalizeEventType(input string) (EventType, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return DefaultEventType, false
	}

	synonyms := map[string]EventType{
		"招聘":          EventTypeRecruit,
		"recruitment": EventTypeRecruit,
		"job":         EventTypeRecruit,
		"internship":  EventTypeRecruit,
		"活动":          EventTypeActivity,
		"event":       EventTypeActivity,
		"讲座":          EventTypeLecture,
		"talk":        EventTypeLecture,
		"seminar":     EventTypeLecture,
	}
	if t, ok := synonyms[normalized]; ok {
		return t, true
	}

	for _, t := range allEventTypes {
		if normalized == string(t) {
			return t, true
		}
	}
	return DefaultEventType, false
}
