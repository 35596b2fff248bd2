// Package resultcache persists classification records in SQLite, keyed by
// content digest and provider id, so re-runs over an unchanged tree skip the
// AI call. Error records are never stored.
package resultcache
