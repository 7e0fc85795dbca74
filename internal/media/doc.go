// Package media decides whether a URL is a usable media resource and,
// if so, what kind of media it is.
//
// The URL validator rejects inline and ephemeral references (data: and
// blob: URIs), resolves relative references against the page base and
// accepts only http and https results. The classifier maps a URL and an
// optional loader hint to image, video or audio using ordered pattern
// groups. Hostname heuristics for streaming platforms are data, supplied
// as a list of Platform values that can be replaced from the config file.
package media
