package ocr

import (
	"regexp"
	"strings"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reTabs       = regexp.MustCompile(`\t+`)
	reMultiSpace = regexp.MustCompile(` {2,}`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
	reBoxNoise   = regexp.MustCompile(`(?m)^\s*[_\-=|]{3,}\s*$`)
	// chi_sim output separates every Han character with a space.
	reHanGap = regexp.MustCompile(`(\p{Han}|[，。：；！？、（）《》“”]) +(\p{Han}|[，。：；！？、（）《》“”])`)
)

// Normalize cleans tesseract output for a poster: joins spaced-out Chinese,
// drops ruler lines and collapses blank runs while keeping line breaks.
func Normalize(s string) string {
	if s == "" {
		return s
	}
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reBoxNoise.ReplaceAllString(s, "")
	s = reTabs.ReplaceAllString(s, " ")
	s = reMultiSpace.ReplaceAllString(s, " ")
	// two passes: adjacent matches overlap on the shared character
	s = reHanGap.ReplaceAllString(s, "$1$2")
	s = reHanGap.ReplaceAllString(s, "$1$2")

	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	s = strings.Join(lines, "\n")
	s = reMultiBlank.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
