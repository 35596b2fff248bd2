// Package dedupe partitions a batch of icons into duplicate groups.
//
// FindDuplicates runs two passes. The exact pass groups byte-identical
// content by digest. The near pass compares every remaining pair with a
// Scorer (by default the ink signature of the rendered icon) and attaches
// followers to the first leader that scores at or above the threshold. Items
// that land in no group are left for classification. The detector is pure:
// it never touches the filesystem and never mutates its input.
package dedupe
