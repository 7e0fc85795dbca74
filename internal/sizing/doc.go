// Package sizing estimates the byte size of detected media resources and
// orders them largest first.
//
// Sizes come from the page's resource log when the browser already
// recorded the transfer, and from a HEAD request otherwise. Every lookup is
// best effort: a failed lookup leaves the size at 0 (unknown) and never
// fails the sniff. The package also carries an opt-in dimension prober for
// images whose width and height were not declared in markup.
package sizing
