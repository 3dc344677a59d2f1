package scanner

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watcher keeps the track table current while the player runs by monitoring
// the library roots with fsnotify. New audio files are inserted as they
// appear; removed files are only noted, because rows are never deleted
// without explicit confirmation — the next scan reports them as stale.
type Watcher struct {
	scanner *Scanner
	watcher *fsnotify.Watcher
	logger  *logrus.Logger
}

// NewWatcher starts recursive monitoring of the given roots.
func NewWatcher(scanner *Scanner, roots []string, logger *logrus.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = scanner.logger
	}
	w := &Watcher{scanner: scanner, watcher: fsw, logger: logger}

	go w.watchFiles()

	for _, root := range roots {
		if err := w.addDirectoryTree(root); err != nil {
			fsw.Close()
			return nil, err
		}
		logger.WithField("root", root).Info("Watching library root")
	}
	return w, nil
}

// addDirectoryTree recursively adds subdirectories to the watcher.
func (w *Watcher) addDirectoryTree(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
}

// watchFiles selects on watcher channels and dispatches events.
func (w *Watcher) watchFiles() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFileEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Error("File watcher error")
		}
	}
}

// handleFileEvent applies filtering and delegates creation handling.
func (w *Watcher) handleFileEvent(event fsnotify.Event) {
	fileName := filepath.Base(event.Name)
	if strings.HasPrefix(fileName, ".") || strings.HasSuffix(fileName, ".tmp") {
		return
	}

	isAudio := w.scanner.extractor.IsSupported(event.Name)

	switch {
	case event.Has(fsnotify.Create) && isAudio:
		go func(name string) {
			time.Sleep(500 * time.Millisecond) // let the file finish writing
			w.handleNewFile(name)
		}(event.Name)

	case event.Has(fsnotify.Remove) && isAudio:
		// Deliberately not deleted here; the scan's stale pass owns removal
		// behind a confirmation.
		w.logger.WithField("file_path", event.Name).Info("Audio file removed; will report stale on next scan")

	case event.Has(fsnotify.Create):
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.watcher.Add(event.Name)
			w.logger.WithField("directory", event.Name).Info("Watching new directory")
		}
	}
}

// handleNewFile extracts metadata and inserts the track if unseen.
func (w *Watcher) handleNewFile(filePath string) {
	index, err := w.scanner.db.TrackIndex()
	if err != nil {
		w.logger.WithError(err).Error("Failed to check track index")
		return
	}
	if _, known := index[filePath]; known {
		return
	}

	track := w.scanner.extractor.Extract(filePath)
	if err := w.scanner.db.InsertTrack(track); err != nil {
		w.logger.WithError(err).WithField("file_path", filePath).Error("Failed to insert new track")
		return
	}
	w.logger.WithFields(logrus.Fields{
		"file_path": filePath,
		"title":     track.DisplayTitle(),
	}).Info("Added new track")
}

// Close stops the watcher (idempotent).
func (w *Watcher) Close() {
	if w.watcher != nil {
		w.watcher.Close()
	}
}
