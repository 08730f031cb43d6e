package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"metaview/internal/decoder"
	"metaview/internal/logging"
	"metaview/internal/metadata"
	"metaview/internal/services"
)

// FailureMessage is the user-visible text that replaces metadata when
// extraction fails.
const FailureMessage = "Failed to extract metadata"

var (
	// ErrDecode marks every failed extraction attempt.
	ErrDecode = services.ErrDecode
	// ErrEmptySource is available to hosts that prefer an error over the
	// no-op signal returned for empty input.
	ErrEmptySource = errors.New("empty source")
)

// Result is the outcome of one extraction: exactly one of Metadata or Err
// is meaningful.
type Result struct {
	Metadata metadata.Map
	Err      error
}

// OK reports whether extraction succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// AsMap returns the metadata on success, or a map carrying only the reserved
// error key on failure.
func (r Result) AsMap() metadata.Map {
	if r.Err != nil {
		return metadata.ErrorMap(UserMessage(r.Err))
	}
	if r.Metadata == nil {
		return metadata.Map{}
	}
	return r.Metadata
}

// UserMessage returns the text shown to users for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	return FailureMessage
}

// Extractor turns a byte source into a Result using a decoder.
type Extractor struct {
	decoder decoder.Decoder
	opts    decoder.Options
	logger  *slog.Logger
	now     func() time.Time
}

// New builds an Extractor. A nil logger discards output.
func New(dec decoder.Decoder, opts decoder.Options, logger *slog.Logger) *Extractor {
	return &Extractor{
		decoder: dec,
		opts:    opts,
		logger:  logging.NewComponentLogger(logger, "extract"),
		now:     time.Now,
	}
}

// Extract decodes src. It returns ok=false, without calling the decoder, when
// src is empty. Decoder errors and panics are captured in Result.Err; the
// metadata of a failed attempt is never returned.
func (e *Extractor) Extract(ctx context.Context, src metadata.Source) (res Result, ok bool) {
	if src.Empty() {
		return Result{}, false
	}
	ctx = services.WithStage(services.WithSource(ctx, src.Name), "extract")
	logger := logging.WithContext(ctx, e.logger)
	started := e.now()
	logger.Debug("extraction started", logging.Bytes("size", int64(len(src.Data))))

	defer func() {
		if recovered := recover(); recovered != nil {
			res = Result{Err: services.Wrap(ErrDecode, "extract", "decode", "decoder panicked", fmt.Errorf("%v", recovered))}
			logging.ErrorWithContext(logger, "decoder panicked", "extract_panic", logging.Error(res.Err))
			ok = true
		}
	}()

	opts := e.opts
	opts.FileName = src.Name
	m, err := e.decoder.Decode(ctx, src.Data, opts)
	elapsed := e.now().Sub(started)
	if err != nil {
		res = Result{Err: services.Wrap(ErrDecode, "extract", "decode", src.Name, err)}
		if errors.Is(err, context.Canceled) {
			logger.Debug("extraction canceled", logging.Duration("elapsed", elapsed))
		} else {
			logging.WarnWithContext(logger, "extraction failed", "extract_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "metadata replaced by failure message"),
				logging.String(logging.FieldErrorHint, "check that the file is a supported image"),
			)
		}
		return res, true
	}
	if m == nil {
		m = metadata.Map{}
	}
	logger.Info("extraction finished", logging.Int("fields", len(m)), logging.Duration("elapsed", elapsed))
	return Result{Metadata: m}, true
}
