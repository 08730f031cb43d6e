// Package metadata defines the value model shared by the extraction and
// classification pipeline.
//
// A Map is the flat field set produced by a decoder. Each Value is a closed
// variant (null, string, number, bool, nested object, array) so callers never
// have to guess the concrete Go type of an EXIF field. Source carries the raw
// bytes of a single image together with its display name.
//
// The reserved ErrorKey lets a failure travel in map form; presentation code
// checks for it before classifying.
package metadata
