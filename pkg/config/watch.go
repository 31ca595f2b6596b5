package config

import (
	"context"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watch reloads the YAML file at path on every write and passes the new
// Config to onChange. The overrides are reapplied before validation. A
// reload that fails to parse or validate is logged and the previous config
// stays active. Watch returns when ctx is done.
func Watch(ctx context.Context, path string, logger logrus.FieldLogger, onChange func(*Config), overrides ...Override) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}

	log := logger.WithField("path", path)
	log.Info("watching config for changes")

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Atomic saves show up as Create
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			cfg, err := LoadFile(path, overrides...)
			if err != nil {
				log.WithError(err).Error("config reload failed, keeping previous config")
				continue
			}

			log.Info("config reloaded")
			onChange(cfg)

			_ = watcher.Add(path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Error("config watcher error")
		}
	}
}
