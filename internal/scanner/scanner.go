package scanner

import (
	"context"
	"io/fs"
	"path/filepath"

	"vibrato/internal/database"
	"vibrato/internal/metadata"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ProgressKind discriminates scan progress events.
type ProgressKind int

const (
	// RootStarted is emitted once per root before its walk begins.
	RootStarted ProgressKind = iota
	// FileScanned is emitted after each candidate file is handled.
	FileScanned
	// ScanCompleted is emitted once with the final counters.
	ScanCompleted
)

// Progress is one liveness event from a running scan. Counters are running
// totals across all roots.
type Progress struct {
	Session uuid.UUID
	Kind    ProgressKind
	Root    string
	File    string
	Found   int
	Known   int
	Added   int
	Updated int
	Failed  int
}

// Result summarizes a finished (or interrupted) scan. Stale lists store rows
// whose files were not seen in the walk; they are reported, never deleted
// here — deletion requires the caller to confirm and call
// Database.DeleteTracks itself.
type Result struct {
	Session uuid.UUID
	Found   int
	Known   int
	Added   int
	Updated int
	Failed  int
	Stale   []string
}

// Scanner reconciles the filesystem with the track table: new files are
// inserted, known files skipped (re-probed when their duration is missing),
// and rows for missing files reported as stale.
type Scanner struct {
	db        *database.Database
	extractor *metadata.Extractor
	logger    *logrus.Logger
}

// New creates a Scanner over the given store and extractor.
func New(db *database.Database, extractor *metadata.Extractor, logger *logrus.Logger) *Scanner {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return &Scanner{db: db, extractor: extractor, logger: logger}
}

// Scan walks the given roots and applies new files as insertions. Progress
// events are sent on progress (may be nil) as the walk proceeds. The context
// is checked at each file boundary; cancelling stops enumeration but keeps
// every insertion already committed. Scanning an unchanged tree twice yields
// zero added and zero stale the second time.
func (s *Scanner) Scan(ctx context.Context, roots []string, progress chan<- Progress) (*Result, error) {
	index, err := s.db.TrackIndex()
	if err != nil {
		return nil, err
	}

	result := &Result{Session: uuid.New()}
	seen := make(map[string]bool, len(index))

	log := s.logger.WithField("scan_session", result.Session)

	for _, root := range roots {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		s.emit(ctx, progress, Progress{Session: result.Session, Kind: RootStarted, Root: root})
		log.WithField("root", root).Info("Scanning root")

		walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				// Unreadable entry: skip it and keep walking.
				result.Failed++
				log.WithError(err).WithField("path", path).Warn("Skipping unreadable entry")
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if !s.extractor.IsSupported(path) {
				return nil
			}

			result.Found++
			s.scanFile(path, index, result, log)
			seen[path] = true

			s.emit(ctx, progress, Progress{
				Session: result.Session, Kind: FileScanned, Root: root, File: path,
				Found: result.Found, Known: result.Known, Added: result.Added,
				Updated: result.Updated, Failed: result.Failed,
			})
			return nil
		})
		if walkErr != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			// Root-level failure (e.g. the root itself vanished): count it
			// and continue with the remaining roots.
			result.Failed++
			log.WithError(walkErr).WithField("root", root).Warn("Walk failed for root")
		}
	}

	for filename := range index {
		if !seen[filename] {
			result.Stale = append(result.Stale, filename)
		}
	}

	s.emit(ctx, progress, Progress{
		Session: result.Session, Kind: ScanCompleted,
		Found: result.Found, Known: result.Known, Added: result.Added,
		Updated: result.Updated, Failed: result.Failed,
	})
	log.WithFields(logrus.Fields{
		"found": result.Found, "known": result.Known, "added": result.Added,
		"updated": result.Updated, "failed": result.Failed, "stale": len(result.Stale),
	}).Info("Scan finished")
	return result, nil
}

// scanFile handles one candidate path: known rows are skipped (with a
// duration re-probe when the earlier scan could not determine one), unknown
// paths are extracted and inserted. Extraction failure is never fatal — the
// extractor falls back to filename-derived metadata.
func (s *Scanner) scanFile(path string, index map[string]bool, result *Result, log *logrus.Entry) {
	hasDuration, known := index[path]
	if known {
		result.Known++
		if !hasDuration {
			if secs := s.extractor.ProbeDuration(path); secs != nil {
				if err := s.db.UpdateDuration(path, *secs); err != nil {
					log.WithError(err).WithField("file_path", path).Error("Failed to update duration")
				} else {
					result.Updated++
				}
			}
		}
		return
	}

	track := s.extractor.Extract(path)
	if err := s.db.InsertTrack(track); err != nil {
		result.Failed++
		log.WithError(err).WithField("file_path", path).Error("Failed to insert track")
		return
	}
	// Mark the row known so overlapping roots do not re-insert it.
	index[path] = track.DurationSeconds != nil
	result.Added++
}

func (s *Scanner) emit(ctx context.Context, progress chan<- Progress, p Progress) {
	if progress == nil {
		return
	}
	select {
	case progress <- p:
	case <-ctx.Done():
	}
}
