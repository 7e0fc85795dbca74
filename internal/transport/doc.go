// Package transport builds the HTTP clients used to load pages and probe
// media resources.
//
// Requests go out directly by default. When a SOCKS5 proxy is configured,
// typically a local Tor daemon or one started through tornago, every
// connection is dialed through it instead. Site-specific headers and
// cookies are injected by a RoundTripper so that redirects and probes
// carry them as well.
package transport
