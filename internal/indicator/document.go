package indicator

import (
	"bytes"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/publicsuffix"
)

// Form is a <form> element.
type Form struct {
	// Action is the resolved submit target. Empty actions resolve to the
	// page itself.
	Action *url.URL

	// HasPassword is true when the form contains a password input.
	HasPassword bool

	// Sensitive is true when the form asks for credentials or payment data.
	Sensitive bool
}

// Iframe is an <iframe> element.
type Iframe struct {
	Src    string
	Width  string
	Height string
	Style  string
	Hidden bool
}

// Document is a page reduced to the elements checks look at.
type Document struct {
	// URL is the address the page was served from. Relative links resolve
	// against it.
	URL *url.URL

	Title            string
	Forms            []Form
	HasPasswordInput bool
	Iframes          []Iframe

	// Refreshes are the content values of <meta http-equiv="refresh">.
	Refreshes []string

	// Scripts is the concatenated text of inline <script> elements.
	Scripts string

	// Resources are the resolved URLs of images, scripts, stylesheets and
	// icons.
	Resources []*url.URL
}

// sensitiveNames are input name fragments that ask for secrets.
var sensitiveNames = []string{"pass", "user", "login", "email", "card", "cvv", "cvc", "ssn", "pin", "otp", "account"}

// Parse builds a Document from HTML served at pageURL. Malformed markup is
// tolerated; an error is returned only for an unusable pageURL.
func Parse(raw []byte, pageURL string) (*Document, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}
	root, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	doc := &Document{URL: base}
	var scripts strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if doc.Title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					doc.Title = strings.Join(strings.Fields(n.FirstChild.Data), " ")
				}
			case "form":
				doc.Forms = append(doc.Forms, doc.parseForm(n))
			case "input":
				if strings.EqualFold(attr(n, "type"), "password") {
					doc.HasPasswordInput = true
				}
			case "iframe":
				doc.Iframes = append(doc.Iframes, Iframe{
					Src:    attr(n, "src"),
					Width:  attr(n, "width"),
					Height: attr(n, "height"),
					Style:  strings.ToLower(attr(n, "style")),
					Hidden: hasAttr(n, "hidden"),
				})
			case "meta":
				if strings.EqualFold(attr(n, "http-equiv"), "refresh") {
					doc.Refreshes = append(doc.Refreshes, attr(n, "content"))
				}
			case "script":
				if src := attr(n, "src"); src != "" {
					doc.addResource(src)
				} else if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					scripts.WriteString(n.FirstChild.Data)
					scripts.WriteByte('\n')
				}
			case "img":
				doc.addResource(attr(n, "src"))
			case "link":
				doc.addResource(attr(n, "href"))
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	doc.Scripts = scripts.String()
	return doc, nil
}

func (d *Document) parseForm(n *html.Node) Form {
	form := Form{Action: d.resolve(attr(n, "action"))}
	if form.Action == nil {
		form.Action = d.URL
	}

	var inspect func(*html.Node)
	inspect = func(c *html.Node) {
		if c.Type == html.ElementNode && c.Data == "input" {
			typ := strings.ToLower(attr(c, "type"))
			name := strings.ToLower(attr(c, "name") + " " + attr(c, "id") + " " + attr(c, "autocomplete"))
			if typ == "password" {
				form.HasPassword = true
				form.Sensitive = true
			}
			if typ == "email" || typ == "tel" || containsAny(name, sensitiveNames) {
				form.Sensitive = true
			}
		}
		for cc := c.FirstChild; cc != nil; cc = cc.NextSibling {
			inspect(cc)
		}
	}
	inspect(n)
	return form
}

func (d *Document) addResource(ref string) {
	if u := d.resolve(ref); u != nil {
		d.Resources = append(d.Resources, u)
	}
}

// resolve turns ref into an absolute URL, or nil when ref is empty or
// unparsable.
func (d *Document) resolve(ref string) *url.URL {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil
	}
	u, err := url.Parse(ref)
	if err != nil {
		return nil
	}
	return d.URL.ResolveReference(u)
}

// Site returns the registrable domain of the page, such as example.co.uk
// for login.example.co.uk.
func (d *Document) Site() string {
	return Site(d.URL.Hostname())
}

// Site returns the registrable domain of host. IP addresses and hosts
// without a public suffix are returned unchanged.
func Site(host string) string {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "" || net.ParseIP(host) != nil {
		return host
	}
	site, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return site
}

// isForeign reports whether u is a web URL on a site other than the page's.
func (d *Document) isForeign(u *url.URL) bool {
	if u == nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return false
	}
	return Site(u.Hostname()) != d.Site()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
