// Package main provides the entry point for the phishscan CLI.
//
// phishscan scores web pages for phishing with a decision forest, queues
// reports for suspicious pages and uploads them to a collector.
//
// Usage:
//
//	phishscan classify <url>...
//	phishscan reports list
//	phishscan reports upload --url <collector>
//
// See --help for all available options.
package main

func main() {
	Execute()
}
