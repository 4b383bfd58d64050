// Package report renders analyses, queued reports and history entries.
//
// Three formats share the Writer interface:
//   - SimpleWriter: plain text for the terminal
//   - JSONWriter: JSON for scripts and other tools
//   - MarkdownWriter: GitHub flavored Markdown with a tier pie chart
package report
