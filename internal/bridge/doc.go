// Package bridge connects a browser extension, or any other host, to the
// sniff pipeline.
//
// A host posts a page URL, optionally with the serialized DOM and the
// page's resource timing entries, and gets the detected resources back in
// one response. Video thumbnails are captured afterwards and pushed to
// subscribers as ThumbnailUpdate events, so the first response is never
// delayed by them. The bridge also forwards download requests to MyNest.
//
// The HTTP surface is:
//
//	POST /api/v1/sniff           sniff a page
//	GET  /api/v1/sniff/latest    last stored result for ?url=
//	GET  /api/v1/events          thumbnail updates as server-sent events
//	POST /api/v1/download        submit URLs to MyNest
//	GET  /health                 liveness
package bridge
