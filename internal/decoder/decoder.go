package decoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"metaview/internal/logging"
	"metaview/internal/metadata"
)

var (
	// ErrUnsupportedFormat marks payloads whose container is not recognised.
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrCorrupt marks recognised containers that could not be read.
	ErrCorrupt = errors.New("corrupt image data")
)

// Options selects which metadata blocks are parsed. FileName is a display
// hint only; it is echoed into the output when set.
type Options struct {
	TIFF     bool
	EXIF     bool
	GPS      bool
	ICC      bool
	XMP      bool
	FileName string
}

// DefaultOptions enables every sub-parser.
func DefaultOptions() Options {
	return Options{TIFF: true, EXIF: true, GPS: true, ICC: true, XMP: true}
}

// Decoder turns raw image bytes into a flat metadata map.
type Decoder interface {
	Decode(ctx context.Context, data []byte, opts Options) (metadata.Map, error)
}

// Func adapts a plain function to the Decoder interface.
type Func func(ctx context.Context, data []byte, opts Options) (metadata.Map, error)

func (f Func) Decode(ctx context.Context, data []byte, opts Options) (metadata.Map, error) {
	return f(ctx, data, opts)
}

// Native decodes metadata in-process using goexif for EXIF/TIFF/GPS and the
// image codecs for container attributes.
type Native struct {
	logger *slog.Logger
}

// NewNative builds the in-process decoder.
func NewNative(logger *slog.Logger) *Native {
	return &Native{logger: logging.NewComponentLogger(logger, "decoder")}
}

// Decode implements Decoder.
func (n *Native) Decode(ctx context.Context, data []byte, opts Options) (metadata.Map, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	format := Sniff(data)
	if format == FormatUnknown {
		return nil, fmt.Errorf("%w: unrecognised signature", ErrUnsupportedFormat)
	}

	out := metadata.Map{}
	if opts.FileName != "" {
		out["FileName"] = metadata.String(opts.FileName)
	}
	out["FileType"] = metadata.String(format.Name())
	out["MimeType"] = metadata.String(format.MIMEType())
	out["FileSize"] = metadata.Int(int64(len(data)))

	if format == FormatTIFF {
		if err := checkTIFF(data); err != nil {
			return nil, err
		}
	}
	cfg, _, cfgErr := image.DecodeConfig(bytes.NewReader(data))

	blocks, scanErr := collectBlocks(format, data)
	if scanErr != nil {
		n.logger.Debug("container scan incomplete", logging.String("format", format.Name()), logging.Error(scanErr))
	}

	found := 0
	if opts.TIFF || opts.EXIF || opts.GPS {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		exifFields, err := decodeEXIF(blocks.exifPayload(format, data), opts)
		switch {
		case errors.Is(err, ErrCorrupt):
			logging.WarnWithContext(n.logger, "exif block rejected", "exif_rejected",
				logging.String("format", format.Name()),
				logging.Error(err),
				logging.String(logging.FieldImpact, "EXIF, TIFF and GPS fields omitted"),
			)
		case err != nil:
			n.logger.Debug("exif block skipped", logging.String("format", format.Name()), logging.Error(err))
		}
		for k, v := range exifFields {
			out[k] = v
		}
		found += len(exifFields)
	}

	if cfgErr != nil && found == 0 {
		return nil, fmt.Errorf("%w: %s header: %w", ErrCorrupt, format.Name(), cfgErr)
	}
	if cfgErr == nil {
		setDefault(out, "ImageWidth", metadata.Int(int64(cfg.Width)))
		setDefault(out, "ImageHeight", metadata.Int(int64(cfg.Height)))
	}

	if opts.ICC && len(blocks.icc) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		profile, err := parseICC(blocks.icc)
		if err != nil {
			n.logger.Debug("icc profile skipped", logging.Error(err))
		}
		for k, v := range profile {
			setDefault(out, k, v)
		}
	}

	if opts.XMP {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if packet := blocks.xmpPacket(data); packet != nil {
			fields, err := parseXMP(packet)
			if err != nil {
				n.logger.Debug("xmp packet skipped", logging.Error(err))
			}
			for k, v := range fields {
				setDefault(out, k, v)
			}
		}
	}

	return out, nil
}

func setDefault(m metadata.Map, key string, value metadata.Value) {
	if _, exists := m[key]; exists {
		return
	}
	m[key] = value
}
