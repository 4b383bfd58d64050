// Package indicator inspects fetched pages for evidence of phishing that the
// decision forest does not see.
//
// The model scores a page from a fixed feature vocabulary. Indicators are
// reported next to that score to explain it: a credential form that posts
// to another site, a password field served over plain HTTP, obfuscated
// scripts, redirects away from the page, hidden iframes, resources
// hot-linked from an impersonated brand, or a title naming a brand whose
// domain does not match the host.
//
// Each kind of evidence is a Check. An Inspector parses the page once and
// runs every registered Check against the parsed Document. Indicators never
// change the score or the tier.
package indicator
