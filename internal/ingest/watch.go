package ingest

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watcher ingests export files as they are dropped into an inbox directory.
// Duplicate delivery (create followed by writes) is harmless because inserts
// are idempotent.
type Watcher struct {
	dir     string
	ing     *Ingestor
	log     *logrus.Logger
	watcher *fsnotify.Watcher

	// settle gives the writing process time to finish before the file is
	// read; exports are small, so a short pause suffices.
	settle time.Duration
}

func NewWatcher(dir string, ing *Ingestor, logger *logrus.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsWatcher.Add(dir); err != nil {
		_ = fsWatcher.Close()
		return nil, err
	}
	return &Watcher{
		dir:     dir,
		ing:     ing,
		log:     logger,
		watcher: fsWatcher,
		settle:  200 * time.Millisecond,
	}, nil
}

// Run blocks until the context is canceled, ingesting every CSV that appears
// in the watched directory.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !strings.EqualFold(filepath.Ext(event.Name), ".csv") {
				continue
			}
			select {
			case <-time.After(w.settle):
			case <-ctx.Done():
				return ctx.Err()
			}
			report, err := w.ing.IngestFile(ctx, event.Name)
			if err != nil {
				w.log.WithField("file", event.Name).WithError(err).Warn("watched file not ingested")
				continue
			}
			w.log.WithFields(logrus.Fields{
				"file":     report.File,
				"inserted": report.Inserted,
				"skipped":  report.Skipped,
			}).Info("watched file ingested")
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Warn("watcher error")
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
