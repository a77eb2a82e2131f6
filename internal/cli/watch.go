package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/GlintPay/defcheck/utils"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

const watchDebounce = 200 * time.Millisecond

// watchDirs returns the distinct directories holding the inputs; ancestors live alongside them
func watchDirs(inputs []string) []string {
	seen := map[string]bool{}
	dirs := []string{}
	for _, in := range inputs {
		dir := filepath.Dir(in)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	sort.Strings(dirs)
	return dirs
}

// watch runs fn once, then again after each burst of definition file changes, until ctx is done
func watch(ctx context.Context, dirs []string, fn func() error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	var mu sync.Mutex
	rerun := func() {
		mu.Lock()
		defer mu.Unlock()
		if e := fn(); e != nil {
			log.Error().Err(e).Msg("Lint failed")
		}
	}

	rerun()
	log.Info().Msgf("Watching %v for changes", dirs)

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isDefinitionChange(event) {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			name := filepath.Base(event.Name)
			debounceTimer = time.AfterFunc(watchDebounce, func() {
				log.Info().Msgf("Change detected: %s", name)
				rerun()
			})
		case e, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(e).Msg("Watcher error")
		}
	}
}

func isDefinitionChange(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	return utils.IsDefinitionFile(event.Name)
}
