package extract

import (
	stdhtml "html"
	"io"
	"slices"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var strictPolicy = bluemonday.StrictPolicy()

// skipped elements never contribute readable text.
var skipped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Iframe:   true,
	atom.Svg:      true,
}

// ParseHTML parses a document.
func ParseHTML(r io.Reader) (*html.Node, error) {
	return html.Parse(r)
}

// BodyText returns the collapsed visible text of the document body, or of the
// whole document when it has no body.
func BodyText(doc *html.Node) string {
	root := findFirst(doc, func(n *html.Node) bool { return n.Type == html.ElementNode && n.DataAtom == atom.Body })
	if root == nil {
		root = doc
	}
	return CollapseWhitespace(nodeText(root))
}

// ContainerText returns the collapsed text of the first element whose id is
// in ids or whose class list contains one of classes. Empty when none match.
func ContainerText(doc *html.Node, ids, classes []string) string {
	n := FindContainer(doc, ids, classes)
	if n == nil {
		return ""
	}
	return CollapseWhitespace(nodeText(n))
}

// FindContainer returns the first element matching one of ids or classes.
func FindContainer(doc *html.Node, ids, classes []string) *html.Node {
	return findFirst(doc, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		for _, a := range n.Attr {
			switch a.Key {
			case "id":
				if slices.Contains(ids, a.Val) {
					return true
				}
			case "class":
				for _, c := range strings.Fields(a.Val) {
					if slices.Contains(classes, c) {
						return true
					}
				}
			}
		}
		return false
	})
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skipped[n.DataAtom] {
			return
		}
		if n.Type == html.CommentNode {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// CollapseWhitespace folds every whitespace run into one space.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// StripTags removes any markup left in text returned by a collaborator.
func StripTags(s string) string {
	if !strings.ContainsAny(s, "<>") {
		return s
	}
	return stdhtml.UnescapeString(strictPolicy.Sanitize(s))
}

// TruncateRunes cuts s to at most n runes.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// RuneLen counts characters the way content thresholds are measured.
func RuneLen(s string) int {
	return len([]rune(s))
}
