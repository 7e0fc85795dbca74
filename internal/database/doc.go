// Package database provides SQLite-based storage for sniff results.
//
// SniffDB keeps every sniff report together with its resources, so a page
// sniffed earlier can be shown again without re-running the pipeline, and
// thumbnails captured after the first response can be written back to the
// stored resource.
//
// The driver is modernc.org/sqlite, a CGO-free SQLite. The database is a
// single file in WAL mode with one writer connection.
package database
