// Package model defines the core data structures used throughout mediasniff.
//
// This package contains the following main types:
//   - MediaResource: One image, video or audio resource found on a page
//   - SniffReport: The result of sniffing a single page
//   - ThumbnailUpdate: A late thumbnail for a video already reported
//
// The models are kept in their own package so that the sniffer, sizing,
// bridge, database and report packages can share them without import cycles.
// All of them serialize to JSON for the host bridge, report output and
// database storage.
package model
