package service

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/darkawower/autodark/internal/config"
)

// watchConfig reloads the configuration file when it changes. The
// directory is watched so editors that replace the file are seen.
func (s *Service) watchConfig(ctx context.Context) error {
	path := s.config().ConfigPath()
	if path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); err != nil {
		s.logger.Debug("config directory missing, not watching", zap.String("dir", dir))
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.logger.Warn("failed to create config watcher", zap.Error(err))
		return nil
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		s.logger.Warn("failed to watch config directory", zap.String("dir", dir), zap.Error(err))
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(path) || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			s.reloadConfig(path)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("config watcher error", zap.Error(err))
		}
	}
}

func (s *Service) reloadConfig(path string) {
	cfg, err := config.Load(path)
	if err != nil {
		s.logger.Warn("ignoring invalid config change", zap.Error(err))
		return
	}
	s.setConfig(cfg)
	s.logger.Info("config reloaded", zap.String("path", path))
	s.submit(job{kind: jobEvaluate, reason: "config", force: true})
}
