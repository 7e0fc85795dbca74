// Package page loads a web page into a queryable document and carries the
// network telemetry that was observed while the page loaded.
//
// A Document wraps a goquery DOM together with the page base URL (honouring
// <base href>), the stylesheets that apply to it and an optional ResourceLog.
// The ResourceLog is the server-side stand-in for the browser's resource
// timing buffer; it can be populated from entries posted by the extension or
// from a HAR file exported by the browser developer tools.
//
// The stylesheet support is intentionally small: rules are matched with the
// cascadia selector engine, later rules override earlier ones and inline
// style attributes override both. Selector specificity and inheritance are
// not modelled, which is enough to answer "which background image does this
// element show" for the vast majority of pages.
package page
