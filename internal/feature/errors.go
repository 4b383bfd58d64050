package feature

import "errors"

// ErrMalformedURL is returned when the page URL cannot be parsed.
// Callers must treat the page as "cannot classify": never crash and never
// flag the page as unsafe because of it.
var ErrMalformedURL = errors.New("malformed URL: cannot extract features")
