package database

import "errors"

var (
	// ErrDatabaseNotFound is returned by Open when the database file does
	// not exist and CreateIfNotExists is false.
	ErrDatabaseNotFound = errors.New("database not found")

	// ErrNilReport is returned when saving a nil report.
	ErrNilReport = errors.New("report is nil")

	// ErrSniffNotFound is returned when a sniff ID is not stored.
	ErrSniffNotFound = errors.New("sniff not found")
)
