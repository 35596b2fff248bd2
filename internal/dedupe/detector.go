package dedupe

import (
	"math"
	"sort"

	"iconsort/internal/inventory"
)

// Disposition is the recommended action for a group's members.
type Disposition string

const (
	// DispositionRemove marks byte-identical copies.
	DispositionRemove Disposition = "remove"
	// DispositionKeep marks near copies similar enough to treat as the same icon.
	DispositionKeep Disposition = "keep"
	// DispositionReview marks near copies a human should look at.
	DispositionReview Disposition = "review"
)

const (
	// DefaultThreshold is the minimum near-pass score for grouping.
	DefaultThreshold = 0.8
	// KeepThreshold separates keep from review dispositions.
	KeepThreshold = 0.9
	// sizeBucketBytes is the coarse key width used when bucketing.
	sizeBucketBytes = 1024
)

// Group is a primary item plus the items considered redundant with it.
type Group struct {
	Primary     inventory.Item
	Members     []inventory.Item
	Similarity  float64
	Disposition Disposition
	// Exact reports whether the group came from digest equality.
	Exact bool
}

// Scorer rates the similarity of two items in [0,1].
type Scorer interface {
	Score(a, b inventory.Item) float64
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(a, b inventory.Item) float64

func (f ScorerFunc) Score(a, b inventory.Item) float64 { return f(a, b) }

// Detector finds duplicate groups.
type Detector struct {
	threshold   float64
	scorer      Scorer
	bucketAbove int
}

// Option customizes a Detector.
type Option func(*Detector)

// WithThreshold sets the near-pass threshold. Values above 1 disable the
// near pass in practice since no score can reach them.
func WithThreshold(threshold float64) Option {
	return func(d *Detector) { d.threshold = threshold }
}

// WithBucketing partitions the near pass by rounded file size once the batch
// has more than above items. Zero disables bucketing.
func WithBucketing(above int) Option {
	return func(d *Detector) { d.bucketAbove = above }
}

// NewDetector builds a detector. A nil scorer disables the near pass.
func NewDetector(scorer Scorer, opts ...Option) *Detector {
	d := &Detector{threshold: DefaultThreshold, scorer: scorer}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// FindDuplicates returns exact groups first, then near groups, each in scan
// order of their primary's first appearance.
func (d *Detector) FindDuplicates(items []inventory.Item) []Group {
	groups, remaining := exactGroups(items)
	if d.scorer == nil || len(remaining) < 2 {
		return groups
	}
	if d.bucketAbove > 0 && len(items) > d.bucketAbove {
		for _, bucket := range bucketBySize(remaining) {
			groups = append(groups, d.nearGroups(bucket)...)
		}
		return groups
	}
	return append(groups, d.nearGroups(remaining)...)
}

func exactGroups(items []inventory.Item) ([]Group, []inventory.Item) {
	byDigest := make(map[string][]inventory.Item)
	var order []string
	for _, item := range items {
		if _, seen := byDigest[item.Digest]; !seen {
			order = append(order, item.Digest)
		}
		byDigest[item.Digest] = append(byDigest[item.Digest], item)
	}

	var groups []Group
	grouped := make(map[string]bool)
	for _, digest := range order {
		same := byDigest[digest]
		if len(same) < 2 {
			continue
		}
		primaryIdx := 0
		for i := 1; i < len(same); i++ {
			if lessByName(same[i], same[primaryIdx]) {
				primaryIdx = i
			}
		}
		group := Group{
			Primary:     same[primaryIdx],
			Similarity:  1.0,
			Disposition: DispositionRemove,
			Exact:       true,
		}
		for i, item := range same {
			if i != primaryIdx {
				group.Members = append(group.Members, item)
			}
		}
		groups = append(groups, group)
		grouped[digest] = true
	}

	remaining := make([]inventory.Item, 0, len(items))
	for _, item := range items {
		if !grouped[item.Digest] {
			remaining = append(remaining, item)
		}
	}
	return groups, remaining
}

// nearGroups compares unordered pairs in input order. A follower is consumed
// by its first matching leader and never leads a group of its own.
func (d *Detector) nearGroups(items []inventory.Item) []Group {
	consumed := make([]bool, len(items))
	var groups []Group
	for i := range items {
		if consumed[i] {
			continue
		}
		var group *Group
		for j := i + 1; j < len(items); j++ {
			if consumed[j] || items[i].Digest == items[j].Digest {
				continue
			}
			score := d.scorer.Score(items[i], items[j])
			if math.IsNaN(score) || score < d.threshold {
				continue
			}
			if group == nil {
				group = &Group{Primary: items[i], Similarity: score}
			}
			group.Members = append(group.Members, items[j])
			group.Similarity = math.Min(group.Similarity, score)
			consumed[j] = true
		}
		if group == nil {
			continue
		}
		consumed[i] = true
		group.Disposition = DispositionReview
		if group.Similarity >= KeepThreshold {
			group.Disposition = DispositionKeep
		}
		groups = append(groups, *group)
	}
	return groups
}

func bucketBySize(items []inventory.Item) [][]inventory.Item {
	byKey := make(map[int64][]inventory.Item)
	var keys []int64
	for _, item := range items {
		key := (item.Size + sizeBucketBytes/2) / sizeBucketBytes
		if _, ok := byKey[key]; !ok {
			keys = append(keys, key)
		}
		byKey[key] = append(byKey[key], item)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	out := make([][]inventory.Item, 0, len(keys))
	for _, key := range keys {
		out = append(out, byKey[key])
	}
	return out
}

func lessByName(a, b inventory.Item) bool {
	if a.DisplayName != b.DisplayName {
		return a.DisplayName < b.DisplayName
	}
	return a.RelPath < b.RelPath
}

// Members indexes group members (never primaries) by item ID.
func Members(groups []Group) map[string]Group {
	out := make(map[string]Group)
	for _, g := range groups {
		for _, m := range g.Members {
			out[m.ID] = g
		}
	}
	return out
}
