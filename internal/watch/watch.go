// Package watch aligns pairs as target scans appear on disk, instead of a
// one-shot batch run. Useful while a slide scanner is still writing files.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"section-aligner/internal/align"
	"section-aligner/internal/config"
)

// debounceDelay gives the scanner time to finish writing a file before the
// pair is processed; create and write events for one file collapse into a
// single run.
const debounceDelay = 2 * time.Second

// Run watches the target directory and processes each new or rewritten file
// whose reference counterpart exists. It blocks until the context is
// cancelled. Pairs are processed one at a time in arrival order.
func Run(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(cfg.TargetDir); err != nil {
		return err
	}
	log.Info().Str("dir", cfg.TargetDir).Msg("watching target directory")

	aligner := align.New(cfg, log)

	due := make(chan string, 64)
	timers := make(map[string]*time.Timer)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			name := filepath.Base(event.Name)
			if timer, exists := timers[name]; exists {
				timer.Stop()
			}
			timers[name] = time.AfterFunc(debounceDelay, func() {
				select {
				case due <- name:
				case <-ctx.Done():
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Msg("watcher error")

		case name := <-due:
			delete(timers, name)
			processIfPaired(cfg, aligner, name, log)
		}
	}
}

func processIfPaired(cfg config.Config, aligner *align.Aligner, name string, log zerolog.Logger) {
	referencePath := filepath.Join(cfg.ReferenceDir, name)
	if info, err := os.Stat(referencePath); err != nil || info.IsDir() {
		log.Debug().Str("image", name).Msg("no reference counterpart yet")
		return
	}
	targetPath := filepath.Join(cfg.TargetDir, name)
	if info, err := os.Stat(targetPath); err != nil || info.IsDir() {
		return
	}

	out := aligner.Process(align.Pair{
		Name:          name,
		ReferencePath: referencePath,
		TargetPath:    targetPath,
	})
	if out.Err != nil {
		log.Error().Err(out.Err).Str("image", name).Msg("pair skipped")
	}
}
