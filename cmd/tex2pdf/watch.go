package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	tex2pdf "github.com/alnah/go-tex2pdf"
	"github.com/alnah/go-tex2pdf/internal/fileutil"
	"github.com/alnah/go-tex2pdf/internal/logfields"
)

// defaultDebounce is the quiet period before a change triggers a rebuild.
const defaultDebounce = 300 * time.Millisecond

// watchedExtensions lists the files whose changes affect the PDF.
var watchedExtensions = map[string]bool{
	".tex": true, ".ltx": true, ".sty": true, ".cls": true,
	".bib": true, ".bst": true, ".def": true, ".cfg": true,
	".png": true, ".jpg": true, ".jpeg": true, ".eps": true,
}

// runWatch compiles the documents once, then again after every relevant
// change below their directories, until ctx is canceled.
func runWatch(ctx context.Context, positional []string, f *watchFlags, pool Pool, env *Environment, logger *slog.Logger) error {
	if len(positional) == 0 || slices.Contains(positional, stdinArg) {
		return fmt.Errorf("%w: watch needs at least one file or directory", ErrUsage)
	}

	cfg := env.Config
	outputDir := resolveOutputDir(f.output, cfg)

	var files []FileToCompile
	var roots []string
	for _, arg := range positional {
		found, err := discoverFiles(arg, outputDir)
		if err != nil {
			return fmt.Errorf("discovering files: %w", err)
		}
		if len(found) == 0 {
			return fmt.Errorf("%w: no LaTeX documents found in %s", ErrNoInput, arg)
		}
		files = append(files, found...)
		roots = append(roots, watchRoot(arg))
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	for _, root := range roots {
		addDirsRecursive(watcher, root, logger)
	}

	params := &batchParams{
		opts: func(sourceDir string) tex2pdf.Options { return compileOptions(cfg, sourceDir) },
	}
	build := func() {
		results := compileBatch(ctx, pool, files, params)
		printResults(results, f.common.quiet, f.common.verbose, env)
	}

	build()
	if !f.common.quiet {
		fmt.Fprintf(env.Stderr, "Watching %s (Ctrl-C to stop)\n", strings.Join(roots, ", "))
	}

	rebuildReq, trigger, stop := newDebouncer(f.debounce)
	defer stop()

	return watchLoop(ctx, watcher, trigger, rebuildReq, build, logger)
}

// watchLoop dispatches filesystem events and rebuilds until ctx is done.
func watchLoop(ctx context.Context, watcher *fsnotify.Watcher, trigger func(), rebuildReq <-chan struct{}, build func(), logger *slog.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-rebuildReq:
			logger.Info("change detected; recompiling")
			build()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			handleFileEvent(watcher, ev, trigger, logger)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", logfields.Error(err))
		}
	}
}

// handleFileEvent triggers a rebuild for relevant changes and starts
// watching newly created directories.
func handleFileEvent(watcher *fsnotify.Watcher, ev fsnotify.Event, trigger func(), logger *slog.Logger) {
	if ev.Op.Has(fsnotify.Create) {
		if fileutil.DirExists(ev.Name) && !shouldIgnoreEvent(ev.Name) {
			addDirsRecursive(watcher, ev.Name, logger)
			return
		}
	}
	if ev.Op == fsnotify.Chmod || !isRelevant(ev.Name) {
		return
	}
	logger.Debug("file change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
	trigger()
}

// newDebouncer returns a channel that receives once per burst of trigger
// calls, after d of quiet. stop cancels a pending timer.
func newDebouncer(d time.Duration) (<-chan struct{}, func(), func()) {
	var mu sync.Mutex
	var timer *time.Timer
	rebuildReq := make(chan struct{}, 1)

	trigger := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(d, func() {
			select {
			case rebuildReq <- struct{}{}:
			default:
			}
		})
	}
	stop := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
	}

	return rebuildReq, trigger, stop
}

// addDirsRecursive watches root and every non-hidden directory below it.
func addDirsRecursive(w *fsnotify.Watcher, root string, logger *slog.Logger) {
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && shouldIgnoreEvent(path) {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			logger.Warn("watch add failed", logfields.Path(path), logfields.Error(err))
		}
		return nil
	})
}

// isRelevant reports whether a change to path can affect the output.
func isRelevant(path string) bool {
	if shouldIgnoreEvent(path) {
		return false
	}
	return watchedExtensions[strings.ToLower(filepath.Ext(path))]
}

// shouldIgnoreEvent reports hidden, editor swap, and OS metadata files.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)

	if strings.HasPrefix(base, ".") {
		return true
	}

	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}

	return base == "Thumbs.db"
}

// watchRoot returns the directory to watch for a positional argument.
func watchRoot(arg string) string {
	if fileutil.DirExists(arg) {
		return filepath.Clean(arg)
	}
	return filepath.Dir(arg)
}
