package feature

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
)

// Feature names. The model artifact refers to features by these names.
const (
	URLLength           = "url_len"
	HostLength          = "host_len"
	CountDots           = "count_dots"
	CountSubdirs        = "count_subdirs"
	HasIP               = "has_ip"
	CountAt             = "count_at"
	CountHyphen         = "count_hyphen"
	HTTPS               = "https"
	CountQueryParams    = "count_query_params"
	EntropyHost         = "entropy_host"
	SuspiciousWordCount = "suspicious_word_count"
	NumForms            = "num_forms"
	HasPasswordInput    = "has_password_input"
)

// Names lists the full vocabulary in the order the training pipeline emits it.
var Names = []string{
	URLLength,
	HostLength,
	CountDots,
	CountSubdirs,
	HasIP,
	CountAt,
	CountHyphen,
	HTTPS,
	CountQueryParams,
	EntropyHost,
	SuspiciousWordCount,
	NumForms,
	HasPasswordInput,
}

// SuspiciousWords is the fixed vocabulary counted by suspicious_word_count.
// Each word counts at most once per URL.
var SuspiciousWords = []string{
	"login", "verify", "update", "secure", "account", "bank", "signin", "confirm",
}

// dottedQuad matches four groups of 1-3 digits. There is deliberately no
// range check: 999.999.999.999 matches, exactly like the training pipeline.
var dottedQuad = regexp.MustCompile(`^\d{1,3}(\.\d{1,3}){3}$`)

// DOMSignals are the page-level facts that cannot be derived from the URL.
type DOMSignals struct {
	// FormCount is the number of <form> elements in the document.
	FormCount int `json:"form_count"`

	// HasPasswordInput is true when the document has an <input type="password">.
	HasPasswordInput bool `json:"has_password_input"`
}

// Map is a feature name to value mapping produced for one page view.
type Map map[string]float64

// Extract computes the feature map for rawURL and the supplied DOM signals.
// It returns ErrMalformedURL (and a nil map) when the URL cannot be parsed
// or has no scheme or host.
func Extract(rawURL string, dom DOMSignals) (Map, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return nil, ErrMalformedURL
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedURL, err)
	}
	if u.Scheme == "" {
		return nil, fmt.Errorf("%w: missing scheme in %q", ErrMalformedURL, trimmed)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host in %q", ErrMalformedURL, trimmed)
	}

	host := Hostname(u)
	lower := strings.ToLower(trimmed)

	m := Map{
		URLLength:           float64(utf8.RuneCountInString(trimmed)),
		HostLength:          float64(utf8.RuneCountInString(host)),
		CountDots:           float64(strings.Count(host, ".")),
		CountSubdirs:        float64(countSegments(u.EscapedPath())),
		HasIP:               boolToFloat(IsDottedQuad(host)),
		CountAt:             boolToFloat(strings.Contains(trimmed, "@")),
		CountHyphen:         float64(strings.Count(host, "-")),
		HTTPS:               boolToFloat(strings.EqualFold(u.Scheme, "https")),
		CountQueryParams:    float64(strings.Count(u.RawQuery, "=")),
		EntropyHost:         Entropy(host),
		SuspiciousWordCount: float64(countSuspiciousWords(lower)),
		NumForms:            float64(dom.FormCount),
		HasPasswordInput:    boolToFloat(dom.HasPasswordInput),
	}
	return m, nil
}

// Hostname returns the hostname of u the way a browser exposes it:
// lower-case, punycode for internationalized labels, no port, no brackets.
func Hostname(u *url.URL) string {
	host := strings.ToLower(u.Hostname())
	if isASCII(host) {
		return host
	}
	ascii, err := idna.Punycode.ToASCII(host)
	if err != nil {
		return host
	}
	return ascii
}

// IsDottedQuad reports whether host looks like an IPv4 literal.
func IsDottedQuad(host string) bool {
	return dottedQuad.MatchString(host)
}

// Entropy returns the Shannon entropy of s in bits per character.
// The empty string has zero entropy.
func Entropy(s string) float64 {
	if s == "" {
		return 0
	}

	counts := make(map[rune]int)
	total := 0
	for _, r := range s {
		counts[r]++
		total++
	}

	var ent float64
	for _, c := range counts {
		p := float64(c) / float64(total)
		ent -= p * math.Log2(p)
	}
	return ent
}

func countSegments(path string) int {
	n := 0
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			n++
		}
	}
	return n
}

func countSuspiciousWords(lowerURL string) int {
	n := 0
	for _, w := range SuspiciousWords {
		if strings.Contains(lowerURL, w) {
			n++
		}
	}
	return n
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
