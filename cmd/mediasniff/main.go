// Package main provides the entry point for the mediasniff CLI.
//
// mediasniff finds the video, audio and image resources of a web page,
// orders them by size and hands the chosen ones to MyNest for download.
//
// Usage:
//
//	mediasniff sniff <page-url>
//	mediasniff serve
//
// See --help for all available options.
package main

// main is the entry point for mediasniff.
func main() {
	Execute()
}
