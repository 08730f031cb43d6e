// Package extract runs a decoder over one byte source and reports either the
// decoded metadata map or a decode failure.
//
// Extraction is the only blocking step of the pipeline. The Extractor never
// lets a decoder error or panic escape: failures become Result.Err wrapping
// ErrDecode, and hosts show FailureMessage in place of metadata. Empty
// sources are a no-op.
package extract
