package scanner_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/sirupsen/logrus"

	"vibrato/internal/database"
	"vibrato/internal/metadata"
	"vibrato/internal/scanner"
)

func newTestScanner(t *testing.T) (*scanner.Scanner, *database.Database) {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"), logger)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	extractor := metadata.NewExtractor([]string{".mp3", ".flac"}, logger)
	return scanner.New(db, extractor, logger), db
}

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte("not real audio"), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestScan(t *testing.T) {
	sc, db := newTestScanner(t)
	dir := t.TempDir()

	a := writeFile(t, dir, "a.mp3")
	b := writeFile(t, dir, "b.mp3")
	c := writeFile(t, dir, "sub/c.flac")
	writeFile(t, dir, "notes.txt")

	t.Run("FirstScanAddsAll", func(t *testing.T) {
		result, err := sc.Scan(context.Background(), []string{dir}, nil)
		if err != nil {
			t.Fatalf("Scan failed: %v", err)
		}
		if result.Found != 3 || result.Added != 3 || result.Known != 0 {
			t.Errorf("Expected 3 found/added, got found=%d added=%d known=%d",
				result.Found, result.Added, result.Known)
		}
		if len(result.Stale) != 0 {
			t.Errorf("Expected no stale rows, got %v", result.Stale)
		}

		track, err := db.GetTrack(c)
		if err != nil {
			t.Fatalf("Expected nested file to be inserted: %v", err)
		}
		if track.DisplayTitle() != "c" {
			t.Errorf("Expected filename-derived title, got %q", track.DisplayTitle())
		}
	})

	t.Run("SecondScanIsIdempotent", func(t *testing.T) {
		result, err := sc.Scan(context.Background(), []string{dir}, nil)
		if err != nil {
			t.Fatalf("Scan failed: %v", err)
		}
		if result.Added != 0 || result.Known != 3 || len(result.Stale) != 0 {
			t.Errorf("Expected unchanged library, got added=%d known=%d stale=%v",
				result.Added, result.Known, result.Stale)
		}
	})

	t.Run("OnlyNewFilesAdded", func(t *testing.T) {
		writeFile(t, dir, "d.mp3")

		result, err := sc.Scan(context.Background(), []string{dir}, nil)
		if err != nil {
			t.Fatalf("Scan failed: %v", err)
		}
		if result.Added != 1 || result.Known != 3 {
			t.Errorf("Expected one new file, got added=%d known=%d", result.Added, result.Known)
		}
	})

	t.Run("StaleReportedNotDeleted", func(t *testing.T) {
		if err := os.Remove(b); err != nil {
			t.Fatalf("Failed to remove file: %v", err)
		}

		result, err := sc.Scan(context.Background(), []string{dir}, nil)
		if err != nil {
			t.Fatalf("Scan failed: %v", err)
		}
		if len(result.Stale) != 1 || result.Stale[0] != b {
			t.Fatalf("Expected %s stale, got %v", b, result.Stale)
		}

		// The row survives until the caller confirms deletion.
		if _, err := db.GetTrack(b); err != nil {
			t.Fatalf("Stale row must not be deleted by the scan: %v", err)
		}

		// Declining means nothing happens; confirming deletes exactly them.
		if _, err := db.GetTrack(a); err != nil {
			t.Fatalf("Live row disappeared: %v", err)
		}
		removed, err := db.DeleteTracks(result.Stale)
		if err != nil {
			t.Fatalf("Failed to delete stale rows: %v", err)
		}
		if removed != 1 {
			t.Errorf("Expected 1 row removed, got %d", removed)
		}

		result, _ = sc.Scan(context.Background(), []string{dir}, nil)
		if len(result.Stale) != 0 {
			t.Errorf("Expected no stale rows after cleanup, got %v", result.Stale)
		}
	})

	t.Run("CancelledContextStopsEarly", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result, err := sc.Scan(ctx, []string{dir}, nil)
		if err == nil {
			t.Fatal("Expected a cancellation error")
		}
		if result == nil {
			t.Fatal("Expected partial result on cancellation")
		}
	})
}

func TestScanOverlappingRoots(t *testing.T) {
	sc, db := newTestScanner(t)
	dir := t.TempDir()

	writeFile(t, dir, "a.mp3")
	c := writeFile(t, dir, "sub/c.flac")

	// The second root is nested inside the first, so c.flac is walked twice
	// within a single scan. The second visit must see the row inserted by
	// the first instead of colliding on the primary key.
	roots := []string{dir, filepath.Join(dir, "sub")}
	result, err := sc.Scan(context.Background(), roots, nil)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if result.Added != 2 || result.Known != 1 || result.Failed != 0 {
		t.Errorf("Expected 2 added, 1 known, 0 failed, got added=%d known=%d failed=%d",
			result.Added, result.Known, result.Failed)
	}
	if _, err := db.GetTrack(c); err != nil {
		t.Fatalf("Expected nested file to be inserted: %v", err)
	}
}

func TestScanThreeFileScenario(t *testing.T) {
	sc, db := newTestScanner(t)
	dir := t.TempDir()

	known := writeFile(t, dir, "known.mp3")
	if _, err := sc.Scan(context.Background(), []string{dir}, nil); err != nil {
		t.Fatalf("Seed scan failed: %v", err)
	}

	// One file appears, one disappears, one stays.
	writeFile(t, dir, "new.mp3")
	gone := filepath.Join(dir, "gone.mp3")
	writeFile(t, dir, "gone.mp3")
	if _, err := sc.Scan(context.Background(), []string{dir}, nil); err != nil {
		t.Fatalf("Second seed scan failed: %v", err)
	}
	if err := os.Remove(gone); err != nil {
		t.Fatalf("Failed to remove file: %v", err)
	}

	result, err := sc.Scan(context.Background(), []string{dir}, nil)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if result.Known != 2 || result.Added != 0 {
		t.Errorf("Expected 2 known, got known=%d added=%d", result.Known, result.Added)
	}
	if len(result.Stale) != 1 || result.Stale[0] != gone {
		t.Errorf("Expected %s stale, got %v", gone, result.Stale)
	}
	if _, err := db.GetTrack(known); err != nil {
		t.Errorf("Known row missing: %v", err)
	}
}

func TestScanProgressEvents(t *testing.T) {
	sc, _ := newTestScanner(t)
	dir := t.TempDir()
	writeFile(t, dir, "one.mp3")
	writeFile(t, dir, "two.mp3")

	progress := make(chan scanner.Progress, 16)
	done := make(chan []scanner.Progress)
	go func() {
		var events []scanner.Progress
		for p := range progress {
			events = append(events, p)
		}
		done <- events
	}()

	result, err := sc.Scan(context.Background(), []string{dir}, progress)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	close(progress)
	events := <-done

	var roots, files, completes int
	for _, ev := range events {
		if ev.Session != result.Session {
			t.Errorf("Event carries session %s, want %s", ev.Session, result.Session)
		}
		switch ev.Kind {
		case scanner.RootStarted:
			roots++
		case scanner.FileScanned:
			files++
		case scanner.ScanCompleted:
			completes++
		}
	}
	if roots != 1 || files != 2 || completes != 1 {
		t.Errorf("Expected 1 root/2 files/1 complete, got %d/%d/%d", roots, files, completes)
	}

	sort.Slice(events, func(i, j int) bool { return events[i].Found < events[j].Found })
	last := events[len(events)-1]
	if last.Found != 2 {
		t.Errorf("Expected final found count 2, got %d", last.Found)
	}
}
