package browser

import (
	"strings"

	"golang.org/x/net/html"
)

// interactiveTags are the tags surfaced when parsing a raw page source.
var interactiveTags = map[string]bool{
	"a":        true,
	"button":   true,
	"input":    true,
	"select":   true,
	"textarea": true,
}

// ParseElements extracts interactive elements from raw page HTML. Hosts that
// predate the structured dump_elements command return the page source
// instead; this produces an equivalent element listing from it.
func ParseElements(source string) ([]Element, error) {
	doc, err := html.Parse(strings.NewReader(source))
	if err != nil {
		return nil, err
	}

	var els []Element
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && interactiveTags[n.Data] {
			el := Element{
				Tag:     n.Data,
				ID:      getAttr(n, "id"),
				Text:    strings.TrimSpace(textContent(n)),
				Visible: !isHidden(n),
			}
			if el.ID != "" {
				el.Selector = "#" + el.ID
			}
			els = append(els, el)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return els, nil
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func isHidden(n *html.Node) bool {
	if getAttr(n, "hidden") != "" || getAttr(n, "type") == "hidden" {
		return true
	}
	return strings.Contains(getAttr(n, "style"), "display:none") ||
		strings.Contains(getAttr(n, "style"), "display: none")
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textContent(c))
	}
	return sb.String()
}
