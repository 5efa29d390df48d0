// Package indexer drives catalog scans: it walks the media directory with
// the classifier, writes each artist's assets in its own transaction and
// publishes progress snapshots to subscribers. Only one scan runs at a time.
package indexer
