// Package inventory discovers icon files below an input root and turns them
// into immutable Items carrying a stable identifier and a content digest.
//
// Scanner applies extension filters, excluded directory names, doublestar
// exclude globs, and an optional gitignore-style ignore file at the root.
// Unreadable or oversized files are reported as skipped rather than failing
// the scan. Items are returned in lexical path order so downstream results
// can be assembled deterministically.
package inventory
