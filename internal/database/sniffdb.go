package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/mynest/mediasniff/internal/model"
)

// FileName is the database file name inside the database directory.
const FileName = "mediasniff.db"

// SniffDB provides SQLite-based storage for sniff reports.
type SniffDB struct {
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures SniffDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging so readers do not block the
	// writer.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a SniffDB in dbDir.
func Open(dbDir string, opts Options) (*SniffDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a missing file. The foreign_keys pragma is
	// per connection, so it goes in the DSN.
	dsn := dbPath + "?mode=rw&_pragma=foreign_keys(1)"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc&_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	sdb := &SniffDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := sdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return sdb, nil
}

// Path returns the database file path.
func (sdb *SniffDB) Path() string {
	return sdb.dbPath
}

// Close closes the database connection.
func (sdb *SniffDB) Close() error {
	return sdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (sdb *SniffDB) createTables() error {
	schema := `
	-- One row per sniffed page
	CREATE TABLE IF NOT EXISTS sniffs (
		id TEXT PRIMARY KEY,
		page_url TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		unreachable INTEGER NOT NULL DEFAULT 0,
		performed_steps TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_sniffs_page ON sniffs(page_url);
	CREATE INDEX IF NOT EXISTS idx_sniffs_started ON sniffs(started_at);

	-- Resources keep the order in which they were reported
	CREATE TABLE IF NOT EXISTS resources (
		sniff_id TEXT NOT NULL REFERENCES sniffs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		url TEXT NOT NULL,
		type TEXT NOT NULL,
		size INTEGER NOT NULL DEFAULT 0,
		width INTEGER NOT NULL DEFAULT 0,
		height INTEGER NOT NULL DEFAULT 0,
		alt TEXT NOT NULL DEFAULT '',
		thumbnail TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (sniff_id, position),
		UNIQUE (sniff_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_resources_type ON resources(type);
	`

	_, err := sdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveSniff stores report and its resources. Saving a report with an
// existing ID replaces the stored copy.
func (sdb *SniffDB) SaveSniff(ctx context.Context, report *model.SniffReport) error {
	if report == nil {
		return ErrNilReport
	}

	tx, err := sdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after commit
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sniffs WHERE id = ?`, report.ID); err != nil {
		return fmt.Errorf("failed to replace sniff: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
	INSERT INTO sniffs (id, page_url, title, started_at, finished_at, error, unreachable, performed_steps)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		report.ID,
		report.PageURL,
		report.Title,
		report.StartedAt.UnixNano(),
		unixNano(report.FinishedAt),
		report.Error,
		report.Unreachable,
		strings.Join(report.PerformedSteps, ","),
	)
	if err != nil {
		return fmt.Errorf("failed to insert sniff: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO resources (sniff_id, position, url, type, size, width, height, alt, thumbnail)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare resource insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range report.Resources {
		if r == nil {
			continue
		}
		if _, err := stmt.ExecContext(ctx,
			report.ID, i, r.URL, string(r.Type), r.Size, r.Width, r.Height, r.Alt, r.Thumbnail,
		); err != nil {
			return fmt.Errorf("failed to insert resource %s: %w", r.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sniff: %w", err)
	}
	return nil
}

// UpdateThumbnail writes a thumbnail captured after the sniff was saved.
// It reports whether a matching resource was found.
func (sdb *SniffDB) UpdateThumbnail(ctx context.Context, update model.ThumbnailUpdate) (bool, error) {
	result, err := sdb.db.ExecContext(ctx,
		`UPDATE resources SET thumbnail = ? WHERE sniff_id = ? AND url = ?`,
		update.Thumbnail, update.SniffID, update.URL,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update thumbnail: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to update thumbnail: %w", err)
	}
	return n > 0, nil
}

// GetSniff retrieves a report by ID. It returns nil if none exists.
func (sdb *SniffDB) GetSniff(ctx context.Context, id string) (*model.SniffReport, error) {
	return sdb.getOne(ctx, `
	SELECT id, page_url, title, started_at, finished_at, error, unreachable, performed_steps
	FROM sniffs WHERE id = ?
	`, id)
}

// LatestForPage retrieves the most recent report for pageURL.
// It returns nil if the page was never sniffed.
func (sdb *SniffDB) LatestForPage(ctx context.Context, pageURL string) (*model.SniffReport, error) {
	return sdb.getOne(ctx, `
	SELECT id, page_url, title, started_at, finished_at, error, unreachable, performed_steps
	FROM sniffs WHERE page_url = ?
	ORDER BY started_at DESC
	LIMIT 1
	`, pageURL)
}

func (sdb *SniffDB) getOne(ctx context.Context, query string, arg any) (*model.SniffReport, error) {
	var (
		report            model.SniffReport
		started, finished int64
		unreachable       bool
		steps             string
	)
	err := sdb.db.QueryRowContext(ctx, query, arg).Scan(
		&report.ID,
		&report.PageURL,
		&report.Title,
		&started,
		&finished,
		&report.Error,
		&unreachable,
		&steps,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sniff: %w", err)
	}

	report.StartedAt = fromUnixNano(started)
	report.FinishedAt = fromUnixNano(finished)
	report.Unreachable = unreachable
	if steps != "" {
		report.PerformedSteps = strings.Split(steps, ",")
	}

	report.Resources, err = sdb.resources(ctx, report.ID)
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (sdb *SniffDB) resources(ctx context.Context, sniffID string) ([]*model.MediaResource, error) {
	rows, err := sdb.db.QueryContext(ctx, `
	SELECT url, type, size, width, height, alt, thumbnail
	FROM resources WHERE sniff_id = ?
	ORDER BY position
	`, sniffID)
	if err != nil {
		return nil, fmt.Errorf("failed to query resources: %w", err)
	}
	defer rows.Close()

	resources := make([]*model.MediaResource, 0)
	for rows.Next() {
		var r model.MediaResource
		var mediaType string
		if err := rows.Scan(&r.URL, &mediaType, &r.Size, &r.Width, &r.Height, &r.Alt, &r.Thumbnail); err != nil {
			return nil, fmt.Errorf("failed to scan resource: %w", err)
		}
		r.Type = model.MediaType(mediaType)
		resources = append(resources, &r)
	}
	return resources, rows.Err()
}

// SniffSummary describes a stored sniff without loading its resources.
type SniffSummary struct {
	ID        string
	PageURL   string
	Title     string
	StartedAt time.Time
	Error     string

	// Counts holds the number of resources per media type.
	Counts map[model.MediaType]int

	// TotalSize is the sum of the known resource sizes.
	TotalSize int64
}

// Total returns the number of resources.
func (s SniffSummary) Total() int {
	total := 0
	for _, n := range s.Counts {
		total += n
	}
	return total
}

// ListSniffs returns summaries of stored sniffs, newest first. An empty
// pageURL lists every page. A non-positive limit means no limit.
func (sdb *SniffDB) ListSniffs(ctx context.Context, pageURL string, limit int) ([]SniffSummary, error) {
	query := `
	SELECT s.id, s.page_url, s.title, s.started_at, s.error,
		COALESCE(SUM(r.type = 'image'), 0),
		COALESCE(SUM(r.type = 'video'), 0),
		COALESCE(SUM(r.type = 'audio'), 0),
		COALESCE(SUM(r.size), 0)
	FROM sniffs s
	LEFT JOIN resources r ON r.sniff_id = s.id
	WHERE 1=1
	`
	args := make([]any, 0, 2)

	if pageURL != "" {
		query += " AND s.page_url = ?"
		args = append(args, pageURL)
	}
	query += " GROUP BY s.id ORDER BY s.started_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := sdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sniffs: %w", err)
	}
	defer rows.Close()

	var results []SniffSummary
	for rows.Next() {
		var (
			s                      SniffSummary
			started                int64
			images, videos, audios int
		)
		if err := rows.Scan(&s.ID, &s.PageURL, &s.Title, &started, &s.Error, &images, &videos, &audios, &s.TotalSize); err != nil {
			return nil, fmt.Errorf("failed to scan sniff summary: %w", err)
		}
		s.StartedAt = fromUnixNano(started)
		s.Counts = map[model.MediaType]int{
			model.MediaTypeImage: images,
			model.MediaTypeVideo: videos,
			model.MediaTypeAudio: audios,
		}
		results = append(results, s)
	}

	return results, rows.Err()
}

// DeleteBefore removes sniffs started before t and returns how many were
// removed.
func (sdb *SniffDB) DeleteBefore(ctx context.Context, t time.Time) (int64, error) {
	result, err := sdb.db.ExecContext(ctx, `DELETE FROM sniffs WHERE started_at < ?`, t.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to delete sniffs: %w", err)
	}
	return result.RowsAffected()
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
