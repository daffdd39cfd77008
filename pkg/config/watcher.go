package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 500 * time.Millisecond

// WatchConfig watches the given files and emits the path of a file after it
// changed and writes settled. Parent directories are watched rather than the
// files themselves so editors that save by rename keep being tracked.
// The returned channel is closed when ctx is cancelled.
func WatchConfig(ctx context.Context, files ...string) <-chan string {
	reloadCh := make(chan string, len(files)+1)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Error("Failed to create fsnotify watcher", "error", err)
		close(reloadCh)
		return reloadCh
	}

	tracked := make(map[string]bool)
	dirs := make(map[string]bool)
	for _, file := range files {
		if file == "" {
			continue
		}
		absPath, err := filepath.Abs(file)
		if err != nil {
			slog.Warn("Could not resolve absolute path for watch file", "file", file)
			continue
		}
		if _, err := os.Stat(absPath); err != nil {
			slog.Debug("Skipping missing configuration file", "file", file)
			continue
		}
		tracked[absPath] = true
		dir := filepath.Dir(absPath)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			slog.Warn("Could not watch directory", "dir", dir, "error", err)
			continue
		}
		dirs[dir] = true
		slog.Debug("Watching configuration directory", "dir", dir)
	}

	go func() {
		defer watcher.Close()

		var (
			mu     sync.Mutex
			timers = make(map[string]*time.Timer)
			wg     sync.WaitGroup
		)
		defer func() {
			mu.Lock()
			for _, t := range timers {
				if t.Stop() {
					wg.Done()
				}
			}
			mu.Unlock()
			wg.Wait()
			close(reloadCh)
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				name, err := filepath.Abs(event.Name)
				if err != nil || !tracked[name] {
					continue
				}
				if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
					continue
				}

				mu.Lock()
				if t, ok := timers[name]; ok && t.Stop() {
					wg.Done()
				}
				wg.Add(1)
				timers[name] = time.AfterFunc(reloadDebounce, func() {
					defer wg.Done()
					slog.Info("Configuration change detected", "file", name)
					select {
					case reloadCh <- name:
					default:
					}
				})
				mu.Unlock()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Error("Watcher encountered an error", "error", err)
			}
		}
	}()

	return reloadCh
}
