// Package session implements the current-result slot that sits between a
// host and the extractor.
//
// Every Request supersedes the previous one: the earlier context is canceled
// and, should its extraction finish anyway, the result is discarded because
// its sequence number is no longer the latest. Hosts observe results through
// Current, Wait, or a WithOnCommit callback.
package session
