package feature

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Document is what a single pass over an HTML page yields.
type Document struct {
	Signals DOMSignals
	Title   string
}

// ParseDOM walks an HTML document and collects the DOM signals used by the
// extractor. The tokenizer-backed parser tolerates malformed markup, so an
// error is only returned when reading from r fails.
func ParseDOM(r io.Reader) (DOMSignals, error) {
	doc, err := ParseDocument(r)
	if err != nil {
		return DOMSignals{}, err
	}
	return doc.Signals, nil
}

// ParseDocument is ParseDOM that also captures the first <title>.
func ParseDocument(r io.Reader) (Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return Document{}, err
	}

	var doc Document
	titleSeen := false
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "form":
				doc.Signals.FormCount++
			case "input":
				if strings.EqualFold(attr(n, "type"), "password") {
					doc.Signals.HasPasswordInput = true
				}
			case "title":
				if !titleSeen && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					doc.Title = strings.Join(strings.Fields(n.FirstChild.Data), " ")
					titleSeen = true
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return doc, nil
}

// attr returns the value of the named attribute, or "" when absent.
func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}
