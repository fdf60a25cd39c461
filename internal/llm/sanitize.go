package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/campus-feed/constants"
)

var keyInfoBoolFields = map[string]struct{}{"referral": {}}

// NormalizeAndSanitizeJSON
// - Renames known synonyms (category -> type, description -> summary)
// - Coerces stringly typed booleans and numbers
// - Drops null/empty optionals
// - Removes unknown keys at both levels
func NormalizeAndSanitizeJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}
	if m == nil {
		return nil, nil, fmt.Errorf("sanitize: reply is not a JSON object")
	}

	dropped := make([]string, 0, 8)
	renamed := func(from, to string) {
		if v, ok := m[from]; ok {
			if _, exists := m[to]; !exists {
				m[to] = v
			}
			delete(m, from)
			dropped = append(dropped, from+"->"+to)
		}
	}

	// 1) synonyms
	renamed("isValid", "is_valid")
	renamed("valid", "is_valid")
	renamed("keyInfo", "key_info")
	renamed("keyinfo", "key_info")
	renamed("category", "type")
	renamed("event_type", "type")
	renamed("description", "summary")

	// 2) is_valid
	if v, ok := m["is_valid"]; ok {
		if b, ok := coerceBool(v); ok {
			m["is_valid"] = b
		} else {
			delete(m, "is_valid")
			dropped = append(dropped, "is_valid(type)")
		}
	}

	// 3) plain strings
	for _, k := range []string{"title", "summary"} {
		if v, ok := m[k]; ok {
			if s, ok := coerceString(v); ok && s != "" {
				m[k] = s
			} else {
				delete(m, k)
				dropped = append(dropped, k+"(empty)")
			}
		}
	}

	// 4) type onto the closed set
	if v, ok := m["type"]; ok {
		s, _ := coerceString(v)
		if t, known := constants.CanonicalizeEventType(s); known {
			m["type"] = string(t)
		} else {
			delete(m, "type")
			dropped = append(dropped, "type(unknown)")
		}
	}

	// 5) key_info
	if v, ok := m["key_info"]; ok {
		ki, isObj := v.(map[string]any)
		if !isObj {
			delete(m, "key_info")
			dropped = append(dropped, "key_info(type)")
		} else {
			dropped = append(dropped, sanitizeKeyInfo(ki)...)
			m["key_info"] = ki
		}
	}

	// 6) tags
	if v, ok := m["tags"]; ok {
		if tags, ok := coerceTags(v); ok {
			m["tags"] = tags
		} else {
			delete(m, "tags")
			dropped = append(dropped, "tags(type)")
		}
	}

	// 7) unknown keys
	allowed := map[string]struct{}{
		"is_valid": {}, "title": {}, "type": {}, "key_info": {}, "summary": {}, "tags": {},
	}
	for k := range maps.Clone(m) {
		if _, ok := allowed[k]; !ok {
			delete(m, k)
			dropped = append(dropped, k+"(unknown)")
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Debug("llm.normalize.sanitize", "dropped", slices.Clone(dropped))
	}
	return out, dropped, nil
}

func sanitizeKeyInfo(ki map[string]any) []string {
	var dropped []string
	known := map[string]struct{}{}
	for _, k := range keyInfoStringFields {
		known[k] = struct{}{}
	}
	for k, v := range maps.Clone(ki) {
		if _, isBool := keyInfoBoolFields[k]; isBool {
			if b, ok := coerceBool(v); ok {
				ki[k] = b
			} else {
				delete(ki, k)
				dropped = append(dropped, "key_info."+k+"(type)")
			}
			continue
		}
		if _, ok := known[k]; !ok {
			delete(ki, k)
			dropped = append(dropped, "key_info."+k+"(unknown)")
			continue
		}
		s, ok := coerceString(v)
		if !ok || s == "" {
			delete(ki, k)
			dropped = append(dropped, "key_info."+k+"(empty)")
			continue
		}
		ki[k] = s
	}
	return dropped
}

func coerceString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if strings.EqualFold(s, "null") {
			return "", true
		}
		return s, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	}
	return "", false
}

func coerceBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case float64:
		return t != 0, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "1", "是":
			return true, true
		case "false", "no", "0", "否":
			return false, true
		}
	}
	return false, false
}

func coerceTags(v any) ([]string, bool) {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := coerceString(item); ok && s != "" {
				out = append(out, s)
			}
		}
		return out, true
	case string:
		fields := strings.FieldsFunc(t, func(r rune) bool {
			return r == ',' || r == '，' || r == '、' || r == ';' || r == '；'
		})
		out := make([]string, 0, len(fields))
		for _, f := range fields {
			if s := strings.TrimSpace(f); s != "" {
				out = append(out, s)
			}
		}
		return out, true
	}
	return nil, false
}
