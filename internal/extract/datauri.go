package extract

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

// data:<mime>[;param=value]*;base64,<payload>
var reDataURI = regexp.MustCompile(`^data:([^;,]+)(?:;[^;,]*)*;base64,(.*)$`)

// IsDataURI reports whether s looks like a base64 data URI.
func IsDataURI(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), "data:")
}

// DecodeImagePayload accepts a data URI or bare base64 and returns the bytes,
// their MIME type and the bare base64 text.
func DecodeImagePayload(s string) (data []byte, mime string, b64 string, err error) {
	s = stripSpace(s)
	if IsDataURI(s) {
		m := reDataURI.FindStringSubmatch(s)
		if m == nil {
			return nil, "", "", fmt.Errorf("malformed data URI")
		}
		mime, b64 = strings.ToLower(m[1]), m[2]
	} else {
		b64 = s
	}

	data, err = base64.StdEncoding.DecodeString(b64)
	if err != nil {
		if data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(b64, "=")); err != nil {
			return nil, "", "", fmt.Errorf("decode base64: %w", err)
		}
	}
	if len(data) == 0 {
		return nil, "", "", fmt.Errorf("empty image payload")
	}
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	return data, mime, b64, nil
}

// stripSpace drops the line breaks and indentation of wrapped base64.
func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, s)
}
