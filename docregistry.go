package main

import (
	"context"
	"errors"
	"fmt"
	"hash/crc32"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gamma-omg/rag-context/knowledge"
)

type FileReader interface {
	CanRead(path string) bool
	ReadText(path string) (string, error)
}

type documentIndexer interface {
	IndexDocument(id, content string) error
}

// DocRegistry keeps the files under root indexed. Files are indexed as
// file_<path relative to root>; a file is re-indexed only when its text
// changes. Deleted files stay indexed.
type DocRegistry struct {
	log              *slog.Logger
	root             string
	mergeEventsDelay time.Duration
	index            documentIndexer
	readers          []FileReader

	mu     sync.Mutex
	crcs   map[string]uint32
	timers map[string]*time.Timer
	locks  map[string]*sync.Mutex
}

func NewDocRegistry(root string, index documentIndexer, mergeEventsDelay time.Duration, log *slog.Logger) *DocRegistry {
	return &DocRegistry{
		log:              log,
		root:             root,
		mergeEventsDelay: mergeEventsDelay,
		index:            index,
		crcs:             make(map[string]uint32),
		timers:           make(map[string]*time.Timer),
		locks:            make(map[string]*sync.Mutex),
	}
}

func (dr *DocRegistry) RegisterReader(readers ...FileReader) {
	dr.readers = append(dr.readers, readers...)
}

func (dr *DocRegistry) Sync(ctx context.Context) error {
	return dr.syncDir(ctx, dr.root)
}

func (dr *DocRegistry) syncDir(ctx context.Context, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}

		if _, err := dr.findReader(path); err != nil {
			dr.log.Warn(fmt.Sprintf("unsupported file: %s", path))
			return nil
		}

		err = dr.injest(path)
		if err != nil {
			dr.log.Error("failed to index file", "path", path, "error", err)
		}

		return nil
	})
}

// Watch starts re-indexing files under root as they are written. It
// returns once the watcher is running; the watcher stops with ctx.
func (dr *DocRegistry) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	err = filepath.WalkDir(dr.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
	if err != nil {
		w.Close()
		return fmt.Errorf("failed to watch %s: %w", dr.root, err)
	}

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				dr.stopTimers()
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				dr.handleEvent(ctx, w, e)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				dr.log.Error("watcher error", "error", err)
			}
		}
	}()

	return nil
}

func (dr *DocRegistry) handleEvent(ctx context.Context, w *fsnotify.Watcher, e fsnotify.Event) {
	if e.Has(fsnotify.Remove) || e.Has(fsnotify.Rename) {
		dr.mu.Lock()
		delete(dr.crcs, e.Name)
		dr.mu.Unlock()
		dr.log.Info("file removed, indexed content is kept", "path", e.Name)
		return
	}

	if !e.Has(fsnotify.Create) && !e.Has(fsnotify.Write) {
		return
	}

	info, err := os.Stat(e.Name)
	if err != nil {
		return
	}

	if info.IsDir() {
		if err := w.Add(e.Name); err != nil {
			dr.log.Error("failed to watch directory", "path", e.Name, "error", err)
		}
		if err := dr.syncDir(ctx, e.Name); err != nil {
			dr.log.Error("failed to index directory", "path", e.Name, "error", err)
		}
		return
	}

	if _, err := dr.findReader(e.Name); err != nil {
		return
	}

	dr.schedule(e.Name)
}

// schedule merges bursts of events for one file into a single injest.
func (dr *DocRegistry) schedule(path string) {
	dr.mu.Lock()
	defer dr.mu.Unlock()

	if t, ok := dr.timers[path]; ok {
		t.Reset(dr.mergeEventsDelay)
		return
	}

	dr.timers[path] = time.AfterFunc(dr.mergeEventsDelay, func() {
		dr.mu.Lock()
		delete(dr.timers, path)
		dr.mu.Unlock()

		err := dr.injest(path)
		if err != nil {
			dr.log.Error("failed to index file", "path", path, "error", err)
		}
	})
}

func (dr *DocRegistry) stopTimers() {
	dr.mu.Lock()
	defer dr.mu.Unlock()

	for path, t := range dr.timers {
		t.Stop()
		delete(dr.timers, path)
	}
}

// pathLock returns the lock serializing injests of path, so a write landing
// while the file is being indexed cannot append a second chunk batch for
// the same content.
func (dr *DocRegistry) pathLock(path string) *sync.Mutex {
	dr.mu.Lock()
	defer dr.mu.Unlock()

	l, ok := dr.locks[path]
	if !ok {
		l = &sync.Mutex{}
		dr.locks[path] = l
	}

	return l
}

func (dr *DocRegistry) injest(path string) error {
	l := dr.pathLock(path)
	l.Lock()
	defer l.Unlock()

	reader, err := dr.findReader(path)
	if err != nil {
		return err
	}

	text, err := reader.ReadText(path)
	if err != nil {
		return fmt.Errorf("failed to read document %s: %w", path, err)
	}

	crc := crc32.Checksum([]byte(text), crc32.IEEETable)
	dr.mu.Lock()
	prev, seen := dr.crcs[path]
	dr.mu.Unlock()
	if seen && prev == crc {
		return nil
	}

	err = dr.index.IndexDocument(dr.docID(path), text)
	if errors.Is(err, knowledge.ErrValidation) {
		dr.log.Debug("skipping empty file", "path", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to store document %s: %w", path, err)
	}

	dr.mu.Lock()
	dr.crcs[path] = crc
	dr.mu.Unlock()

	return nil
}

func (dr *DocRegistry) docID(path string) string {
	rel, err := filepath.Rel(dr.root, path)
	if err != nil {
		rel = path
	}

	return "file_" + filepath.ToSlash(rel)
}

func (dr *DocRegistry) findReader(file string) (FileReader, error) {
	for _, r := range dr.readers {
		if r.CanRead(file) {
			return r, nil
		}
	}

	return nil, fmt.Errorf("unable to find reader for file type: %s", filepath.Ext(file))
}
