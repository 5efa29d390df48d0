// Package database is the asset repository: a SQLite store of assets, story
// pages and tag associations, written during scans and read by the search
// engine. All predicate translation happens here in a single deterministic
// step; ordering and pagination are the caller's responsibility.
package database
