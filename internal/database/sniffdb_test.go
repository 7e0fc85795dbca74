package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/mynest/mediasniff/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *SniffDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func newReport(pageURL string, started time.Time, resources ...*model.MediaResource) *model.SniffReport {
	r := model.NewSniffReport(pageURL)
	r.StartedAt = started
	r.FinishedAt = started.Add(time.Second)
	r.Resources = append(r.Resources, resources...)
	return r
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("Path() = %q", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		_, err := Open(filepath.Join(t.TempDir(), "missing"), Options{CreateIfNotExists: false})
		if !errors.Is(err, ErrDatabaseNotFound) {
			t.Errorf("expected ErrDatabaseNotFound, got %v", err)
		}
	})

	t.Run("reopens existing database", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		report := newReport("https://example.com/", time.Now())
		if err := db.SaveSniff(context.Background(), report); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		_ = db.Close()

		db, err = Open(dir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		defer db.Close()

		got, err := db.GetSniff(context.Background(), report.ID)
		if err != nil || got == nil {
			t.Fatalf("expected stored sniff, got %v, %v", got, err)
		}
	})
}

func TestSaveAndGetSniff(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	report := newReport("https://example.com/watch", time.Now(),
		&model.MediaResource{URL: "https://cdn.example.com/big.mp4", Type: model.MediaTypeVideo, Size: 204800, Thumbnail: "https://cdn.example.com/poster.jpg"},
		&model.MediaResource{URL: "https://cdn.example.com/small.jpg", Type: model.MediaTypeImage, Size: 1024, Width: 40, Height: 30, Alt: "small"},
	)
	report.Title = "Watch"
	report.PerformedSteps = []string{"fetch", "detect", "size"}

	if err := db.SaveSniff(ctx, report); err != nil {
		t.Fatalf("SaveSniff: %v", err)
	}

	got, err := db.GetSniff(ctx, report.ID)
	if err != nil {
		t.Fatalf("GetSniff: %v", err)
	}
	if got == nil {
		t.Fatal("expected sniff")
	}

	if got.PageURL != report.PageURL || got.Title != "Watch" {
		t.Errorf("unexpected page fields: %+v", got)
	}
	if !got.StartedAt.Equal(report.StartedAt) || !got.FinishedAt.Equal(report.FinishedAt) {
		t.Errorf("timestamps not preserved: %v %v", got.StartedAt, got.FinishedAt)
	}
	if !slices.Equal(got.PerformedSteps, report.PerformedSteps) {
		t.Errorf("PerformedSteps = %v", got.PerformedSteps)
	}
	if len(got.Resources) != 2 {
		t.Fatalf("expected 2 resources, got %d", len(got.Resources))
	}
	for i, want := range report.Resources {
		if *got.Resources[i] != *want {
			t.Errorf("resource %d = %+v, want %+v", i, *got.Resources[i], *want)
		}
	}
}

func TestSaveSniffReplaces(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	report := newReport("https://example.com/", time.Now(),
		&model.MediaResource{URL: "https://example.com/a.jpg", Type: model.MediaTypeImage},
	)
	if err := db.SaveSniff(ctx, report); err != nil {
		t.Fatalf("SaveSniff: %v", err)
	}

	report.Resources = report.Resources[:0]
	report.Error = "boom"
	if err := db.SaveSniff(ctx, report); err != nil {
		t.Fatalf("second SaveSniff: %v", err)
	}

	got, err := db.GetSniff(ctx, report.ID)
	if err != nil {
		t.Fatalf("GetSniff: %v", err)
	}
	if got.Error != "boom" || len(got.Resources) != 0 {
		t.Errorf("expected replaced sniff, got error=%q resources=%d", got.Error, len(got.Resources))
	}
}

func TestSaveSniffNil(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	if err := db.SaveSniff(context.Background(), nil); !errors.Is(err, ErrNilReport) {
		t.Errorf("expected ErrNilReport, got %v", err)
	}
}

func TestGetSniffMissing(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	got, err := db.GetSniff(context.Background(), "nope")
	if err != nil || got != nil {
		t.Errorf("expected nil, nil; got %v, %v", got, err)
	}
}

func TestLatestForPage(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Now()

	older := newReport("https://example.com/", now.Add(-time.Hour))
	newer := newReport("https://example.com/", now)
	other := newReport("https://other.example.com/", now.Add(time.Hour))

	for _, r := range []*model.SniffReport{newer, older, other} {
		if err := db.SaveSniff(ctx, r); err != nil {
			t.Fatalf("SaveSniff: %v", err)
		}
	}

	got, err := db.LatestForPage(ctx, "https://example.com/")
	if err != nil {
		t.Fatalf("LatestForPage: %v", err)
	}
	if got == nil || got.ID != newer.ID {
		t.Errorf("expected newest sniff %s, got %+v", newer.ID, got)
	}

	none, err := db.LatestForPage(ctx, "https://never.example.com/")
	if err != nil || none != nil {
		t.Errorf("expected nil, nil; got %v, %v", none, err)
	}
}

func TestUpdateThumbnail(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	report := newReport("https://example.com/", time.Now(),
		&model.MediaResource{URL: "https://example.com/v.mp4", Type: model.MediaTypeVideo},
	)
	if err := db.SaveSniff(ctx, report); err != nil {
		t.Fatalf("SaveSniff: %v", err)
	}

	ok, err := db.UpdateThumbnail(ctx, model.ThumbnailUpdate{
		SniffID:   report.ID,
		URL:       "https://example.com/v.mp4",
		Thumbnail: "data:image/jpeg;base64,AAAA",
	})
	if err != nil || !ok {
		t.Fatalf("UpdateThumbnail = %v, %v", ok, err)
	}

	got, err := db.GetSniff(ctx, report.ID)
	if err != nil {
		t.Fatalf("GetSniff: %v", err)
	}
	if got.Resources[0].Thumbnail != "data:image/jpeg;base64,AAAA" {
		t.Errorf("thumbnail not stored: %q", got.Resources[0].Thumbnail)
	}

	ok, err = db.UpdateThumbnail(ctx, model.ThumbnailUpdate{SniffID: report.ID, URL: "https://example.com/other.mp4"})
	if err != nil || ok {
		t.Errorf("expected no match, got %v, %v", ok, err)
	}
}

func TestListSniffs(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Now()

	first := newReport("https://example.com/", now.Add(-2*time.Hour),
		&model.MediaResource{URL: "https://example.com/a.jpg", Type: model.MediaTypeImage, Size: 10},
		&model.MediaResource{URL: "https://example.com/b.jpg", Type: model.MediaTypeImage, Size: 20},
		&model.MediaResource{URL: "https://example.com/c.mp4", Type: model.MediaTypeVideo},
	)
	second := newReport("https://example.com/", now.Add(-time.Hour))
	third := newReport("https://other.example.com/", now,
		&model.MediaResource{URL: "https://other.example.com/s.mp3", Type: model.MediaTypeAudio, Size: 5},
	)
	for _, r := range []*model.SniffReport{first, second, third} {
		if err := db.SaveSniff(ctx, r); err != nil {
			t.Fatalf("SaveSniff: %v", err)
		}
	}

	t.Run("all pages newest first", func(t *testing.T) {
		t.Parallel()

		got, err := db.ListSniffs(ctx, "", 0)
		if err != nil {
			t.Fatalf("ListSniffs: %v", err)
		}
		ids := make([]string, len(got))
		for i, s := range got {
			ids[i] = s.ID
		}
		if want := []string{third.ID, second.ID, first.ID}; !slices.Equal(ids, want) {
			t.Errorf("order = %v, want %v", ids, want)
		}
	})

	t.Run("filters by page and counts types", func(t *testing.T) {
		t.Parallel()

		got, err := db.ListSniffs(ctx, "https://example.com/", 0)
		if err != nil {
			t.Fatalf("ListSniffs: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 sniffs, got %d", len(got))
		}
		last := got[1]
		if last.Counts[model.MediaTypeImage] != 2 || last.Counts[model.MediaTypeVideo] != 1 {
			t.Errorf("unexpected counts: %v", last.Counts)
		}
		if last.Total() != 3 || last.TotalSize != 30 {
			t.Errorf("Total() = %d, TotalSize = %d", last.Total(), last.TotalSize)
		}
		if got[0].Total() != 0 {
			t.Errorf("empty sniff should count 0, got %d", got[0].Total())
		}
	})

	t.Run("limit", func(t *testing.T) {
		t.Parallel()

		got, err := db.ListSniffs(ctx, "", 1)
		if err != nil {
			t.Fatalf("ListSniffs: %v", err)
		}
		if len(got) != 1 || got[0].ID != third.ID {
			t.Errorf("unexpected result: %+v", got)
		}
	})
}

func TestDeleteBefore(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Now()

	old := newReport("https://example.com/", now.Add(-48*time.Hour),
		&model.MediaResource{URL: "https://example.com/a.jpg", Type: model.MediaTypeImage},
	)
	recent := newReport("https://example.com/", now)
	for _, r := range []*model.SniffReport{old, recent} {
		if err := db.SaveSniff(ctx, r); err != nil {
			t.Fatalf("SaveSniff: %v", err)
		}
	}

	n, err := db.DeleteBefore(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteBefore: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d, want 1", n)
	}
	if got, _ := db.GetSniff(ctx, old.ID); got != nil { //nolint:errcheck // nil check covers it
		t.Error("old sniff should be gone")
	}
}
