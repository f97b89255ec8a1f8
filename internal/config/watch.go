package config

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watch signals on reload whenever the config file at path is written or
// replaced. Editors typically rename over the file, so the parent
// directory is watched rather than the file itself. Returns a stop
// function that releases the watcher.
func Watch(path string, reload chan<- struct{}, log zerolog.Logger) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				log.Debug().Str("file", event.Name).Msg("config file changed")
				select {
				case reload <- struct{}{}:
				default: // a reload is already pending
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("config watcher error")
			}
		}
	}()

	return func() { watcher.Close() }, nil
}
