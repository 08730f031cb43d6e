package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fsnotify/fsnotify"

	"metaview/internal/logging"
	"metaview/internal/metadata"
	"metaview/internal/services"
	"metaview/internal/session"
)

// DefaultDebounce applies when Options.Debounce is zero.
const DefaultDebounce = 250 * time.Millisecond

var supportedExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".webp": {},
	".tif":  {},
	".tiff": {},
	".bmp":  {},
}

// Supported reports whether path has an image extension the watcher reacts to.
func Supported(path string) bool {
	_, ok := supportedExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Requester is the part of a session the watcher drives.
type Requester interface {
	Request(ctx context.Context, src metadata.Source) (session.Ticket, bool)
}

// Options tunes a Watcher.
type Options struct {
	Debounce time.Duration
	MaxBytes int64
}

// Watcher turns filesystem events into session requests.
type Watcher struct {
	req      Requester
	logger   *slog.Logger
	debounce time.Duration
	maxBytes int64
}

// New constructs a Watcher.
func New(req Requester, opts Options, logger *slog.Logger) *Watcher {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		req:      req,
		logger:   logging.NewComponentLogger(logger, "watch"),
		debounce: debounce,
		maxBytes: opts.MaxBytes,
	}
}

// Run watches targets until ctx is done. Directory targets react to any
// supported file inside them; file targets react only to themselves and are
// requested once up front.
func (w *Watcher) Run(ctx context.Context, targets []string) error {
	if len(targets) == 0 {
		return services.Wrap(services.ErrValidation, "watch", "run", "No paths to watch", nil)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return services.Wrap(services.ErrTransient, "watch", "create watcher", "Unable to start filesystem watcher", err)
	}
	defer fsw.Close()

	files := make(map[string]struct{})
	dirs := make(map[string]struct{})
	var initial string
	for _, target := range targets {
		abs, err := filepath.Abs(target)
		if err != nil {
			return services.Wrap(services.ErrValidation, "watch", "resolve path", target, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return services.Wrap(services.ErrNotFound, "watch", "stat", target, err)
		}
		dir := abs
		if info.IsDir() {
			dirs[abs] = struct{}{}
		} else {
			files[abs] = struct{}{}
			dir = filepath.Dir(abs)
			initial = abs
		}
		if err := fsw.Add(dir); err != nil {
			return services.Wrap(services.ErrTransient, "watch", "add", dir, err)
		}
		w.logger.Debug("watching path", logging.String("path", abs), logging.Bool("dir", info.IsDir()))
	}

	interested := func(path string) bool {
		if !Supported(path) {
			return false
		}
		if _, ok := files[path]; ok {
			return true
		}
		_, ok := dirs[filepath.Dir(path)]
		return ok
	}

	w.logger.Info("watch started", logging.Int("targets", len(targets)))
	if initial != "" {
		w.load(ctx, initial)
	}

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()
	var pending string

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watch stopped")
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			path := filepath.Clean(event.Name)
			if !interested(path) {
				continue
			}
			pending = path
			timer.Reset(w.debounce)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logging.WarnWithContext(w.logger, "filesystem watcher error", "watch_error",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "events may have been dropped; save the file again"),
			)
		case <-timer.C:
			if pending != "" {
				w.load(ctx, pending)
				pending = ""
			}
		}
	}
}

// load reads path and issues a request. Read failures are logged and
// skipped so one unreadable file does not end the watch.
func (w *Watcher) load(ctx context.Context, path string) {
	src, err := metadata.ReadFile(path, w.maxBytes)
	if err != nil {
		var tooLarge *metadata.ErrTooLarge
		hint := "check file permissions"
		if errors.As(err, &tooLarge) {
			hint = fmt.Sprintf("raise decoder.max_file_mib above %s", humanize.IBytes(uint64(tooLarge.Limit)))
		}
		logging.WarnWithContext(w.logger, "skipping unreadable file", "watch_read",
			logging.String(logging.FieldSource, path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, hint),
		)
		return
	}
	if ticket, ok := w.req.Request(ctx, src); ok {
		w.logger.Debug("change queued",
			logging.String(logging.FieldSource, src.Name),
			logging.String(logging.FieldRequestID, ticket.RequestID),
			logging.Bytes("size", int64(len(src.Data))),
		)
	}
}
