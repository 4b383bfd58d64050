// Package feature turns a page context into the numeric feature map consumed
// by the decision forest.
//
// Extraction is a pure function of the URL string and a couple of DOM
// signals; it performs no I/O and never consults the model. The same URL and
// signals always produce the same map, which is what allows classification
// results to be cached, coalesced and replayed.
//
// The vocabulary mirrors the offline training pipeline:
//
//	url_len, host_len, count_dots, count_subdirs, has_ip, count_at,
//	count_hyphen, https, count_query_params, entropy_host,
//	suspicious_word_count, num_forms, has_password_input
//
// Hostname based features are computed on the hostname as a browser reports
// it: lower-cased, internationalized labels converted to punycode, without
// port or IPv6 brackets.
package feature
