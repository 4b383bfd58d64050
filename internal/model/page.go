package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// MaxPageSize is the maximum number of body bytes read from a page.
const MaxPageSize = 5 * 1024 * 1024 // 5 MB

// Page is a fetched HTML document reduced to the signals classification uses.
type Page struct {
	// URL is the requested URL.
	URL string `json:"url"`

	// FinalURL is the URL after redirects. Features are computed from it
	// because it is what the browser would display.
	FinalURL string `json:"final_url"`

	// StatusCode is the HTTP response status code.
	StatusCode int `json:"status_code"`

	// ContentType is the MIME type from the Content-Type header.
	ContentType string `json:"content_type"`

	// Title is the text of the <title> element.
	Title string `json:"title,omitempty"`

	// FormCount is the number of <form> elements.
	FormCount int `json:"form_count"`

	// HasPasswordInput is true when any <input type="password"> is present.
	HasPasswordInput bool `json:"has_password_input"`

	// Truncated is true when the body exceeded MaxPageSize.
	Truncated bool `json:"truncated,omitempty"`

	// Hash is the SHA-256 of the body bytes that were read.
	Hash string `json:"hash"`

	// Raw is the body. It is not serialized.
	Raw []byte `json:"-"`
}

// ComputeHash sets Hash from Raw.
func (p *Page) ComputeHash() {
	sum := sha256.Sum256(p.Raw)
	p.Hash = hex.EncodeToString(sum[:])
}

// IsHTML reports whether the content type denotes an HTML document.
// An empty content type is treated as HTML.
func (p *Page) IsHTML() bool {
	ct := strings.ToLower(strings.TrimSpace(p.ContentType))
	return ct == "" ||
		strings.HasPrefix(ct, "text/html") ||
		strings.HasPrefix(ct, "application/xhtml+xml")
}
