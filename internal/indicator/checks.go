package indicator

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/nao1215/phishscan/internal/model"
)

// FormCheck flags credential forms that post somewhere unexpected and
// password fields on plain HTTP pages.
type FormCheck struct{}

// NewFormCheck creates a FormCheck.
func NewFormCheck() *FormCheck { return &FormCheck{} }

// Name returns the check name.
func (c *FormCheck) Name() string { return "forms" }

// Inspect implements Check.
func (c *FormCheck) Inspect(doc *Document) []model.Indicator {
	var found []model.Indicator
	for _, f := range doc.Forms {
		if !f.Sensitive {
			continue
		}
		switch {
		case strings.EqualFold(f.Action.Scheme, "mailto"):
			found = append(found, model.NewIndicator(model.IndicatorMailtoFormAction, f.Action.String()))
		case doc.isForeign(f.Action):
			found = append(found, model.NewIndicator(model.IndicatorExternalFormAction, f.Action.String()))
		}
	}

	if doc.HasPasswordInput && strings.EqualFold(doc.URL.Scheme, "http") {
		found = append(found, model.NewIndicator(model.IndicatorPasswordOverHTTP, doc.URL.String()))
	}
	return found
}

// ScriptCheck flags obfuscated inline JavaScript.
type ScriptCheck struct {
	patterns []*regexp.Regexp
}

// NewScriptCheck creates a ScriptCheck.
func NewScriptCheck() *ScriptCheck {
	return &ScriptCheck{
		patterns: []*regexp.Regexp{
			// eval of decoded strings
			regexp.MustCompile(`eval\s*\(\s*(atob|unescape|decodeURIComponent|String\.fromCharCode)`),
			// long hex escapes or base64 literals
			regexp.MustCompile(`(\\x[0-9a-fA-F]{2}){10,}`),
			regexp.MustCompile(`['"][A-Za-z0-9+/=]{100,}['"]`),
			regexp.MustCompile(`document\.write\s*\(\s*(unescape|atob|decodeURIComponent)`),
			regexp.MustCompile(`new\s+Function\s*\(\s*['"][^'"]{50,}['"]\s*\)`),
			// Dean Edwards packer
			regexp.MustCompile(`eval\s*\(\s*function\s*\(\s*p\s*,\s*a\s*,\s*c\s*,\s*k\s*,\s*e\s*,\s*[dr]\s*\)`),
			// JSFuck
			regexp.MustCompile(`\[\s*!\s*\+\s*\[\s*\]\s*\]`),
			regexp.MustCompile(`String\.fromCharCode\s*\([^)]{50,}\)`),
		},
	}
}

// Name returns the check name.
func (c *ScriptCheck) Name() string { return "scripts" }

// Inspect implements Check. At most one indicator is reported per page.
func (c *ScriptCheck) Inspect(doc *Document) []model.Indicator {
	if doc.Scripts == "" {
		return nil
	}
	for _, p := range c.patterns {
		if m := p.FindString(doc.Scripts); m != "" {
			return []model.Indicator{model.NewIndicator(model.IndicatorJSObfuscation, truncate(m, 60))}
		}
	}
	return nil
}

// RedirectCheck flags meta refresh and script redirects to other sites.
type RedirectCheck struct {
	refreshURL *regexp.Regexp
	scripts    []*regexp.Regexp
}

// NewRedirectCheck creates a RedirectCheck.
func NewRedirectCheck() *RedirectCheck {
	return &RedirectCheck{
		refreshURL: regexp.MustCompile(`(?i)^\s*\d*\s*;?\s*url\s*=\s*['"]?([^'"]+)`),
		scripts: []*regexp.Regexp{
			regexp.MustCompile(`window\.location(?:\.href)?\s*=\s*["']([^"']+)["']`),
			regexp.MustCompile(`(?:document\.)?location\.href\s*=\s*["']([^"']+)["']`),
			regexp.MustCompile(`location\.(?:replace|assign)\s*\(\s*["']([^"']+)["']\s*\)`),
		},
	}
}

// Name returns the check name.
func (c *RedirectCheck) Name() string { return "redirects" }

// Inspect implements Check.
func (c *RedirectCheck) Inspect(doc *Document) []model.Indicator {
	var targets []string
	for _, content := range doc.Refreshes {
		if m := c.refreshURL.FindStringSubmatch(content); len(m) > 1 {
			targets = append(targets, m[1])
		}
	}
	for _, p := range c.scripts {
		for _, m := range p.FindAllStringSubmatch(doc.Scripts, -1) {
			targets = append(targets, m[1])
		}
	}

	var found []model.Indicator
	for _, t := range targets {
		if u := doc.resolve(t); doc.isForeign(u) {
			found = append(found, model.NewIndicator(model.IndicatorRedirect, u.String()))
		}
	}
	return found
}

// IframeCheck flags iframes that are invisible to the visitor.
type IframeCheck struct {
	offscreen *regexp.Regexp
}

// NewIframeCheck creates an IframeCheck.
func NewIframeCheck() *IframeCheck {
	return &IframeCheck{
		offscreen: regexp.MustCompile(`(?:left|top)\s*:\s*-\d{3,}`),
	}
}

// Name returns the check name.
func (c *IframeCheck) Name() string { return "iframes" }

// Inspect implements Check.
func (c *IframeCheck) Inspect(doc *Document) []model.Indicator {
	var found []model.Indicator
	for _, f := range doc.Iframes {
		if c.hidden(f) {
			evidence := f.Src
			if evidence == "" {
				evidence = "(inline)"
			}
			found = append(found, model.NewIndicator(model.IndicatorHiddenIframe, evidence))
		}
	}
	return found
}

func (c *IframeCheck) hidden(f Iframe) bool {
	if f.Hidden || isZero(f.Width) || isZero(f.Height) {
		return true
	}
	style := strings.ReplaceAll(f.Style, " ", "")
	return strings.Contains(style, "display:none") ||
		strings.Contains(style, "visibility:hidden") ||
		c.offscreen.MatchString(f.Style)
}

func isZero(dim string) bool {
	dim = strings.TrimSuffix(strings.TrimSpace(dim), "px")
	if dim == "" {
		return false
	}
	n, err := strconv.Atoi(dim)
	return err == nil && n == 0
}

// ResourceCheck flags pages whose resources mostly come from a single other
// site.
type ResourceCheck struct {
	// MinResources is the number of resources below which no judgement is
	// made.
	MinResources int

	// Ratio is the share of resources one foreign site must serve.
	Ratio float64
}

// NewResourceCheck creates a ResourceCheck with a minimum of 5 resources
// and a ratio of one half.
func NewResourceCheck() *ResourceCheck {
	return &ResourceCheck{MinResources: 5, Ratio: 0.5}
}

// Name returns the check name.
func (c *ResourceCheck) Name() string { return "resources" }

// Inspect implements Check.
func (c *ResourceCheck) Inspect(doc *Document) []model.Indicator {
	if len(doc.Resources) < c.MinResources {
		return nil
	}

	counts := make(map[string]int)
	for _, u := range doc.Resources {
		if doc.isForeign(u) {
			counts[Site(u.Hostname())]++
		}
	}

	var top string
	for site, n := range counts {
		if n > counts[top] || (n == counts[top] && site < top) {
			top = site
		}
	}
	if top == "" || float64(counts[top]) <= c.Ratio*float64(len(doc.Resources)) {
		return nil
	}
	evidence := fmt.Sprintf("%s (%d of %d)", top, counts[top], len(doc.Resources))
	return []model.Indicator{model.NewIndicator(model.IndicatorForeignResources, evidence)}
}

// brandSites maps brand names often impersonated to their registrable
// domains.
var brandSites = map[string][]string{
	"paypal":     {"paypal.com"},
	"microsoft":  {"microsoft.com", "live.com", "microsoftonline.com", "office.com"},
	"office 365": {"microsoft.com", "microsoftonline.com", "office.com"},
	"outlook":    {"outlook.com", "live.com", "office.com"},
	"apple":      {"apple.com", "icloud.com"},
	"icloud":     {"icloud.com", "apple.com"},
	"amazon":     {"amazon.com", "amazon.co.jp", "amazon.co.uk", "amazon.de"},
	"google":     {"google.com"},
	"gmail":      {"google.com"},
	"facebook":   {"facebook.com"},
	"instagram":  {"instagram.com"},
	"netflix":    {"netflix.com"},
	"linkedin":   {"linkedin.com"},
	"dropbox":    {"dropbox.com"},
	"docusign":   {"docusign.com", "docusign.net"},
	"dhl":        {"dhl.com", "dhl.de"},
	"coinbase":   {"coinbase.com"},
}

// TitleCheck flags pages whose title names a brand the host does not
// belong to.
type TitleCheck struct {
	brands map[string][]string
}

// NewTitleCheck creates a TitleCheck with the built-in brand table.
func NewTitleCheck() *TitleCheck {
	return &TitleCheck{brands: brandSites}
}

// Name returns the check name.
func (c *TitleCheck) Name() string { return "title" }

// Inspect implements Check.
func (c *TitleCheck) Inspect(doc *Document) []model.Indicator {
	title := strings.ToLower(doc.Title)
	if title == "" {
		return nil
	}
	site := doc.Site()

	var found []model.Indicator
	for _, brand := range slices.Sorted(maps.Keys(c.brands)) {
		sites := c.brands[brand]
		if !containsWord(title, brand) || slices.Contains(sites, site) {
			continue
		}
		found = append(found, model.NewIndicator(model.IndicatorTitleMismatch,
			fmt.Sprintf("%q on %s", brand, site)))
	}
	return found
}

// containsWord reports whether word occurs in s delimited by non-letters.
func containsWord(s, word string) bool {
	for i := 0; ; {
		j := strings.Index(s[i:], word)
		if j < 0 {
			return false
		}
		start, end := i+j, i+j+len(word)
		if (start == 0 || !isLetter(s[start-1])) && (end == len(s) || !isLetter(s[end])) {
			return true
		}
		i = start + 1
	}
}

func isLetter(b byte) bool {
	return b >= 'a' && b <= 'z'
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
