package decoder

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	"metaview/internal/metadata"
)

// binaryInlineLimit caps how many undefined bytes are rendered as an array.
const binaryInlineLimit = 64

// tiffFields are the IFD0 tags gated by Options.TIFF.
var tiffFields = nameSet(
	"ImageWidth", "ImageLength", "BitsPerSample", "Compression", "PhotometricInterpretation",
	"Orientation", "SamplesPerPixel", "PlanarConfiguration", "YCbCrSubSampling",
	"YCbCrPositioning", "XResolution", "YResolution", "ResolutionUnit", "DateTime",
	"ImageDescription", "Make", "Model", "Software", "Artist", "Copyright",
	"TransferFunction", "WhitePoint", "PrimaryChromaticities", "YCbCrCoefficients",
	"ReferenceBlackWhite",
)

// skippedFields are structural pointers and blobs that carry no user data.
var skippedFields = nameSet(
	"ExifIFDPointer", "GPSInfoIFDPointer", "InteroperabilityIFDPointer",
	"ThumbJPEGInterchangeFormat", "ThumbJPEGInterchangeFormatLength",
	"StripOffsets", "StripByteCounts", "RowsPerStrip", "MakerNote",
)

// renamedFields maps goexif names onto the names used by the rule table.
var renamedFields = map[string]string{
	"ImageLength": "ImageHeight",
}

var versionFields = nameSet("ExifVersion", "FlashpixVersion", "InteroperabilityIndex")

var commentFields = nameSet("UserComment", "GPSProcessingMethod", "GPSAreaInformation")

func nameSet(names ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

// decodeEXIF reads the EXIF/TIFF/GPS directories from payload. A payload
// without EXIF yields an empty map and a non-nil error the caller may log.
func decodeEXIF(payload []byte, opts Options) (metadata.Map, error) {
	out := metadata.Map{}
	if len(payload) == 0 {
		return out, nil
	}
	if err := checkTIFF(payload); err != nil {
		return out, err
	}
	x, err := exif.Decode(bytes.NewReader(payload))
	if x == nil {
		if err == nil {
			err = errors.New("no exif data")
		}
		return out, err
	}
	if err != nil && exif.IsCriticalError(err) {
		return out, err
	}

	w := &fieldWalker{opts: opts, out: out}
	if walkErr := x.Walk(w); walkErr != nil {
		return out, walkErr
	}

	if opts.GPS {
		if lat, long, llErr := x.LatLong(); llErr == nil {
			out["latitude"] = metadata.Number(lat)
			out["longitude"] = metadata.Number(long)
		}
		if alt, ok := altitude(x); ok {
			out["altitude"] = metadata.Number(alt)
		}
	}
	return out, err
}

type fieldWalker struct {
	opts Options
	out  metadata.Map
}

func (w *fieldWalker) Walk(name exif.FieldName, tag *tiff.Tag) error {
	if _, skip := skippedFields[string(name)]; skip {
		return nil
	}
	if !w.enabled(name) {
		return nil
	}
	value, ok := tagValue(name, tag)
	if !ok {
		return nil
	}
	key := string(name)
	if renamed, has := renamedFields[key]; has {
		key = renamed
	}
	w.out[key] = value
	return nil
}

func (w *fieldWalker) enabled(name exif.FieldName) bool {
	if strings.HasPrefix(string(name), "GPS") {
		return w.opts.GPS
	}
	if _, ok := tiffFields[string(name)]; ok {
		return w.opts.TIFF
	}
	return w.opts.EXIF
}

func tagValue(name exif.FieldName, tag *tiff.Tag) (metadata.Value, bool) {
	if tag == nil || tag.Count == 0 {
		return metadata.Null(), false
	}
	if tag.Type == tiff.DTUndefined {
		return undefinedValue(name, tag.Val), true
	}
	switch tag.Format() {
	case tiff.StringVal:
		s, err := tag.StringVal()
		if err != nil {
			return metadata.Null(), false
		}
		return metadata.String(strings.TrimRight(s, "\x00 ")), true
	case tiff.IntVal:
		return collect(int(tag.Count), func(i int) (metadata.Value, error) {
			v, err := tag.Int64(i)
			return metadata.Int(v), err
		})
	case tiff.RatVal:
		return collect(int(tag.Count), func(i int) (metadata.Value, error) {
			num, den, err := tag.Rat2(i)
			if err != nil {
				return metadata.Null(), err
			}
			if den == 0 {
				return metadata.Null(), nil
			}
			return metadata.Number(float64(num) / float64(den)), nil
		})
	case tiff.FloatVal:
		return collect(int(tag.Count), func(i int) (metadata.Value, error) {
			v, err := tag.Float(i)
			return metadata.Number(v), err
		})
	default:
		return metadata.String(tag.String()), true
	}
}

func collect(count int, at func(i int) (metadata.Value, error)) (metadata.Value, bool) {
	if count == 1 {
		v, err := at(0)
		return v, err == nil
	}
	items := make([]metadata.Value, 0, count)
	for i := 0; i < count; i++ {
		v, err := at(i)
		if err != nil {
			return metadata.Null(), false
		}
		items = append(items, v)
	}
	return metadata.Array(items...), true
}

func undefinedValue(name exif.FieldName, raw []byte) metadata.Value {
	if _, ok := versionFields[string(name)]; ok {
		return metadata.String(strings.TrimRight(string(raw), "\x00"))
	}
	if _, ok := commentFields[string(name)]; ok {
		return metadata.String(decodeComment(raw))
	}
	if len(raw) == 1 {
		return metadata.Int(int64(raw[0]))
	}
	if len(raw) > binaryInlineLimit {
		return metadata.String(fmt.Sprintf("(binary data %d bytes)", len(raw)))
	}
	items := make([]metadata.Value, len(raw))
	for i, b := range raw {
		items[i] = metadata.Int(int64(b))
	}
	return metadata.Array(items...)
}

func altitude(x *exif.Exif) (float64, bool) {
	tag, err := x.Get(exif.GPSAltitude)
	if err != nil {
		return 0, false
	}
	num, den, err := tag.Rat2(0)
	if err != nil || den == 0 {
		return 0, false
	}
	alt := float64(num) / float64(den)
	if ref, err := x.Get(exif.GPSAltitudeRef); err == nil {
		if v, err := ref.Int(0); err == nil && v == 1 {
			alt = -alt
		}
	}
	return alt, true
}
