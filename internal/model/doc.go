// Package model defines the data structures shared by the phishscan packages.
//
// This package contains the following main types:
//   - Report: a suspect page queued for upload to the collector
//   - Analysis: the full outcome of classifying one URL
//   - Page: a fetched HTML page reduced to what classification needs
//   - Indicator: page evidence such as a form posting to another site
//
// Every type is JSON-serializable; Report is the wire format exchanged with
// the collector and the layout persisted in the local queue.
package model
