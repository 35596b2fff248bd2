// Package pipeline runs one batch end to end: scan the input tree, group
// duplicates, classify the unique icons, embed the results, and summarize.
//
// A run walks Scanning, Hashing, Deduping, Classifying, Embedding,
// Summarizing and ends in Done, or in Failed when there is no input, the
// provider is unusable, or the run is cancelled. Per-item failures never
// fail a run; they surface as items with status "error".
//
// Dry runs compute everything and write nothing. Cancelled runs return the
// partial summary and also write nothing.
package pipeline
