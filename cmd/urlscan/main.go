// Package main provides the entry point for the urlscan CLI.
//
// urlscan scores URLs for phishing and malware risk. It combines a fixed
// rule table with an optional trained classifier and serves the result over
// an HTTP API for the browser extension.
//
// Usage:
//
//	urlscan scan <url>
//	urlscan scan --list <file>
//	urlscan serve
//	urlscan train
//
// See --help for all available options.
package main

// main is the entry point for urlscan.
func main() {
	Execute()
}
