package config

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

const pollFallbackInterval = 60 * time.Second

// Watch reloads the config file into the store when it changes and
// invokes onReload (which may be nil) with the new value.
//
// fsnotify is the primary mechanism; if the watch cannot be
// established (file not created yet, platform limits) a slow polling
// loop on the file mtime takes over.
func Watch(ctx context.Context, path string, store *Store, onReload func(Config)) {
	reload := func() {
		cfg, err := Load(path)
		if err != nil {
			log.Printf("[ERROR] Config Watcher: reload failed: %v", err)
			return
		}
		store.Set(cfg)
		if onReload != nil {
			onReload(cfg)
		}
	}

	watcher, err := fsnotify.NewWatcher()
	usePolling := false
	if err != nil {
		log.Printf("[ERROR] Config Watcher: fsnotify failed (%v), falling back to polling", err)
		usePolling = true
	} else if err := watcher.Add(path); err != nil {
		log.Printf("[ERROR] Config Watcher: cannot watch %s (%v), falling back to polling", path, err)
		watcher.Close()
		usePolling = true
	}

	if !usePolling {
		go func() {
			defer watcher.Close()
			for {
				select {
				case <-ctx.Done():
					return
				case event, ok := <-watcher.Events:
					if !ok {
						return
					}
					if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
						// Editors write in bursts; let the file settle.
						time.Sleep(100 * time.Millisecond)
						log.Printf("[DEBUG] Config Watcher: %s changed, reloading", path)
						reload()
					}
				case werr, ok := <-watcher.Errors:
					if !ok {
						return
					}
					log.Printf("[ERROR] Config Watcher: %v", werr)
				}
			}
		}()
		return
	}

	go func() {
		var lastMod time.Time
		if fi, err := os.Stat(path); err == nil {
			lastMod = fi.ModTime()
		}
		ticker := time.NewTicker(pollFallbackInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fi, err := os.Stat(path)
				if err != nil {
					continue
				}
				if fi.ModTime().After(lastMod) {
					lastMod = fi.ModTime()
					reload()
				}
			}
		}
	}()
}
