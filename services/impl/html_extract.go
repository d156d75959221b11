package impl

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// skippedElements never contribute text.
var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"meta":     true,
	"link":     true,
	"noscript": true,
	"head":     true,
}

// ParseHTML parses a rendered document.
func ParseHTML(content string) (*html.Node, error) {
	return html.Parse(strings.NewReader(content))
}

// ExtractPageText walks the DOM and returns whitespace-normalized visible
// text. Anchor text gets " [absolute-href]" appended so outbound links
// survive chunking and reach the LLM.
func ExtractPageText(doc *html.Node, finalURL string) string {
	base, _ := url.Parse(finalURL)

	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skippedElements[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
			return
		}
		isAnchor := n.Type == html.ElementNode && n.Data == "a"
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if isAnchor {
			if href := resolveHref(base, attrValue(n, "href")); href != "" {
				sb.WriteString("[" + href + "] ")
			}
		}
	}
	walk(doc)

	return strings.Join(strings.Fields(sb.String()), " ")
}

// ExtractPageLinks collects hrefs from a, link, and area elements, resolves
// them against the final URL, de-duplicates preserving order, and pins the
// page's own normalized URL (with trailing slash) to position 0.
func ExtractPageLinks(doc *html.Node, finalURL, normalizedURL string) []string {
	base, _ := url.Parse(finalURL)

	seen := make(map[string]bool)
	links := []string{}

	self := ensureTrailingSlash(normalizedURL)
	if self != "" {
		links = append(links, self)
		seen[self] = true
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "a", "link", "area":
				if href := resolveHref(base, attrValue(n, "href")); href != "" && !seen[href] {
					seen[href] = true
					links = append(links, href)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return links
}

// ExtractTitle returns the document title, empty when absent.
func ExtractTitle(doc *html.Node) string {
	var title string
	var walk func(n *html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "title" {
			if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				title = strings.TrimSpace(n.FirstChild.Data)
			}
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(doc)
	return title
}

func attrValue(n *html.Node, name string) string {
	for _, attr := range n.Attr {
		if attr.Key == name {
			return attr.Val
		}
	}
	return ""
}

// resolveHref makes the href absolute against the page URL. Unresolvable or
// empty hrefs map to "".
func resolveHref(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || base == nil {
		return ""
	}
	resolved, err := base.Parse(href)
	if err != nil {
		return ""
	}
	return resolved.String()
}
