// Package sniffer finds media resources on a page by running a fixed set of
// detection strategies in priority order.
//
// Each strategy scans one source (image tags, computed background images,
// video and audio tags, the network resource log, custom data attributes
// and inline scripts) and claims URLs through a SeenSet shared by all
// strategies of one sniff. The first strategy to claim a URL wins, so a URL
// appears at most once in the result and keeps the type its first
// discoverer assigned.
//
// Strategies run sequentially on the caller's goroutine. The SeenSet is
// not safe for concurrent use and must not be shared between sniffs.
//
// A strategy that returns an error or panics contributes nothing: the
// Sniffer logs the failure, releases the URLs the strategy claimed and
// moves on to the next strategy.
//
// # Usage
//
//	s := sniffer.New(sniffer.WithLogger(logger))
//	resources := s.Sniff(ctx, doc)
package sniffer
