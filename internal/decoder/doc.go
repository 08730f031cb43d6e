// Package decoder is the metadata-decoding capability behind extraction.
//
// The Decoder interface takes raw bytes plus Options and returns a flat
// metadata.Map or an error; tests substitute a Func. Native is the in-process
// implementation: it sniffs the container, reads dimensions through the
// image codecs, walks EXIF/TIFF/GPS directories with goexif, and adds ICC
// header fields and XMP properties when those blocks are present.
//
// Native never returns a partial map alongside an error. Unrecognised
// payloads fail with ErrUnsupportedFormat; recognised containers whose
// header cannot be read (and which carry no EXIF) fail with ErrCorrupt.
package decoder
