package llm

import (
	"github.com/joseph-ayodele/campus-feed/constants"
)

var keyInfoStringFields = []string{
	"date", "time", "location", "deadline", "company",
	"position", "education", "link", "registration_link",
}

// BuildEventJSONSchema returns the JSON Schema a sanitized reply must satisfy.
func BuildEventJSONSchema() map[string]any {
	keyInfoProps := map[string]any{
		"referral": map[string]any{"type": "boolean"},
	}
	for _, k := range keyInfoStringFields {
		keyInfoProps[k] = map[string]any{"type": "string"}
	}

	props := map[string]any{
		"is_valid": map[string]any{"type": "boolean"},
		"title":    map[string]any{"type": "string"},
		"type": map[string]any{
			"type": "string",
			"enum": constants.EventTypesAsStrings(),
		},
		"key_info": map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"properties":           keyInfoProps,
		},
		"summary": map[string]any{"type": "string"},
		"tags": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             []string{"is_valid"},
	}
}
