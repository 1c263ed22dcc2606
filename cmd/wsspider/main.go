// Package main provides the entry point for the wsspider CLI.
//
// wsspider crawls FOFA result pages, follows the refine links each page
// offers, and streams every extracted record to a collector over a
// WebSocket. The collector can drive the spider remotely through the
// same connection.
//
// Usage:
//
//	wsspider run
//	wsspider run --query 'app="nginx"'
//	wsspider jobs add 'port="8080"'
//
// See --help for all available options.
package main

// main is the entry point for wsspider.
func main() {
	Execute()
}
