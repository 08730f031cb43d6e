// Package main hosts the metaview CLI entrypoint and command graph.
//
// The Cobra command tree loads configuration once, builds the extractor and
// logger from it, and hands rendering to the present package. show extracts
// a batch of files, watch follows files on disk through a session so only
// the newest change is displayed, and history reads back the extraction log.
package main
