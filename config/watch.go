package config

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/wiseagents/hectormesh/logging"
)

// debounce coalesces the burst of events most editors and filesystems
// emit for a single save into one reload.
const debounce = 200 * time.Millisecond

// Watch reloads path whenever it changes on disk, invoking onReload with
// the newly parsed Document. A reload whose Load or Validate fails is
// logged and skipped; the previous Document stays in effect (spec §6: a
// broken edit must not tear down a running topology).
//
// Watch blocks until goCtx is cancelled or the watcher's event or error
// channel closes, and then returns nil. Errors the watcher reports while
// running are logged and watching continues; Watch returns an error only
// when the watcher cannot be created or path cannot be watched.
func Watch(goCtx context.Context, path string, onReload func(*Document)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return &Error{Operation: "Watch", Message: "creating fsnotify watcher failed", Err: err}
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return &Error{Operation: "Watch", Message: "watching " + path + " failed", Err: err}
	}

	log := logging.Default.With("component", "config.Watch", "path", path)

	var timer *time.Timer
	reload := func() {
		doc, err := LoadFile(path)
		if err != nil {
			log.Error("reload failed", "error", err)
			return
		}
		if err := doc.Validate(); err != nil {
			log.Error("reload failed validation", "error", err)
			return
		}
		log.Info("reloaded")
		onReload(doc)
	}

	for {
		select {
		case <-goCtx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, reload)

		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("watcher error", "error", werr)
		}
	}
}
