package tui

import (
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce is how long a ruleset directory must be quiet before a
// change is reported. Editors often write a file in several steps.
const DefaultDebounce = 300 * time.Millisecond

// Watcher reports which rulesets changed on disk. Each ruleset directory
// and its subdirectories are watched for .lua changes.
type Watcher struct {
	watcher  *fsnotify.Watcher
	dirs     map[string]string // watched dir -> ruleset name
	debounce time.Duration
	logger   zerolog.Logger

	changes   chan string
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewWatcher starts watching rulesets, a map of ruleset name to directory.
func NewWatcher(rulesets map[string]string, debounce time.Duration, logger zerolog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w := &Watcher{
		watcher:  fw,
		dirs:     map[string]string{},
		debounce: debounce,
		logger:   logger,
		changes:  make(chan string),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	for name, root := range rulesets {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil || !d.IsDir() {
				return err
			}
			if err := fw.Add(path); err != nil {
				return err
			}
			w.dirs[filepath.Clean(path)] = name
			return nil
		})
		if err != nil {
			fw.Close()
			return nil, err
		}
		logger.Debug().Str("ruleset", name).Str("dir", root).Msg("watching ruleset")
	}

	go w.run()
	return w, nil
}

// Changes delivers the name of each ruleset whose files changed.
func (w *Watcher) Changes() <-chan string {
	return w.changes
}

// Close stops the watcher. The Changes channel is closed once the event
// loop has exited.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.stop)
		<-w.done
		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) run() {
	defer close(w.done)
	defer close(w.changes)

	ticker := time.NewTicker(w.debounce / 3)
	defer ticker.Stop()

	pending := map[string]time.Time{}
	for {
		select {
		case <-w.stop:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if name, ok := w.rulesetFor(event); ok {
				pending[name] = time.Now()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("ruleset watcher")

		case now := <-ticker.C:
			for name, at := range pending {
				if now.Sub(at) < w.debounce {
					continue
				}
				delete(pending, name)
				select {
				case w.changes <- name:
				case <-w.stop:
					return
				}
			}
		}
	}
}

// rulesetFor maps a file event to the ruleset it belongs to. Only .lua
// creates, writes, removes and renames count.
func (w *Watcher) rulesetFor(event fsnotify.Event) (string, bool) {
	if !strings.HasSuffix(event.Name, ".lua") {
		return "", false
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return "", false
	}
	name, ok := w.dirs[filepath.Dir(filepath.Clean(event.Name))]
	return name, ok
}
