// Package pipeline runs the classification steps for a URL in sequence.
//
// A Pipeline is an ordered list of Steps operating on one model.Analysis:
// fetch the page, extract features, classify, queue a report when the page
// is flagged and record the result in the local history. Steps decide for
// themselves whether they have anything to do; a page whose URL cannot be
// parsed is marked unclassifiable by the extract step and the later steps
// skip it.
//
// BatchProcessor classifies many URLs with bounded concurrency and
// coalesces duplicate URLs so that each is analyzed once.
package pipeline
