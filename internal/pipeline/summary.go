package pipeline

import (
	"sort"
	"time"

	"iconsort/internal/classify"
	"iconsort/internal/dedupe"
	"iconsort/internal/inventory"
)

// ItemStatus is the outcome of one item.
type ItemStatus string

const (
	StatusClassified ItemStatus = "classified"
	StatusDuplicate  ItemStatus = "duplicate"
	StatusError      ItemStatus = "error"
	// StatusPending marks items a cancelled or failed run never reached.
	StatusPending ItemStatus = "pending"
)

// ItemResult is one row of the summary, in scan order.
type ItemResult struct {
	ID            string             `json:"id"`
	DisplayName   string             `json:"display_name"`
	Path          string             `json:"path"`
	RelPath       string             `json:"rel_path"`
	Digest        string             `json:"digest"`
	Status        ItemStatus         `json:"status"`
	Record        *classify.Record   `json:"record,omitempty"`
	DuplicateOf   string             `json:"duplicate_of,omitempty"`
	Disposition   dedupe.Disposition `json:"disposition,omitempty"`
	Similarity    float64            `json:"similarity,omitempty"`
	Output        string             `json:"output,omitempty"`
	EmbeddedBytes int                `json:"embedded_bytes,omitempty"` // set in dry runs too
	Error         string             `json:"error,omitempty"`
}

// GroupSummary describes one duplicate group by relative paths.
type GroupSummary struct {
	Primary     string             `json:"primary"`
	Members     []string           `json:"members"`
	Similarity  float64            `json:"similarity"`
	Disposition dedupe.Disposition `json:"disposition"`
	Exact       bool               `json:"exact"`
}

// SkippedFile is an input file that could not be processed.
type SkippedFile struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Summary is the machine-readable result of a run.
type Summary struct {
	RunID           string         `json:"run_id"`
	GeneratedAt     time.Time      `json:"generated_at"`
	State           State          `json:"state"`
	ProviderID      string         `json:"provider_id"`
	Model           string         `json:"model"`
	InputDir        string         `json:"input_dir"`
	DryRun          bool           `json:"dry_run"`
	TotalItems      int            `json:"total_items"`
	UniqueItems     int            `json:"unique_items"`
	DuplicateItems  int            `json:"duplicate_items"`
	ErrorItems      int            `json:"error_items"`
	CacheHits       int            `json:"cache_hits"`
	CategoryCounts  map[string]int `json:"category_counts"`
	DuplicateGroups []GroupSummary `json:"duplicate_groups"`
	SkippedFiles    []SkippedFile  `json:"skipped_files"`
	Items           []ItemResult   `json:"items"`
	BackupDir       string         `json:"backup_dir,omitempty"`
	ReportsDir      string         `json:"reports_dir,omitempty"`
	DurationMS      int64          `json:"duration_ms"`
}

// Categories returns the category names of CategoryCounts sorted by count
// descending, then name.
func (s *Summary) Categories() []string {
	names := make([]string, 0, len(s.CategoryCounts))
	for name := range s.CategoryCounts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ci, cj := s.CategoryCounts[names[i]], s.CategoryCounts[names[j]]
		if ci != cj {
			return ci > cj
		}
		return names[i] < names[j]
	})
	return names
}

// assemble builds item rows and counters by re-walking the scan order, so
// the summary never depends on completion order.
func (s *Summary) assemble(items []inventory.Item, groups []dedupe.Group, records map[string]classify.Record) {
	members := dedupe.Members(groups)
	s.TotalItems = len(items)
	s.UniqueItems = 0
	s.DuplicateItems = 0
	s.ErrorItems = 0
	s.CategoryCounts = make(map[string]int)
	s.Items = make([]ItemResult, 0, len(items))

	for _, item := range items {
		row := ItemResult{
			ID:          item.ID,
			DisplayName: item.DisplayName,
			Path:        item.Path,
			RelPath:     item.RelPath,
			Digest:      item.Digest,
		}
		if group, ok := members[item.ID]; ok {
			s.DuplicateItems++
			row.Status = StatusDuplicate
			row.DuplicateOf = group.Primary.RelPath
			row.Disposition = group.Disposition
			row.Similarity = group.Similarity
			s.Items = append(s.Items, row)
			continue
		}

		s.UniqueItems++
		record, ok := records[item.ID]
		switch {
		case !ok:
			row.Status = StatusPending
		case record.IsError():
			s.ErrorItems++
			row.Status = StatusError
			row.Error = record.Reasoning
		default:
			row.Status = StatusClassified
		}
		if ok {
			rec := record
			row.Record = &rec
			s.CategoryCounts[record.Category]++
		}
		s.Items = append(s.Items, row)
	}

	s.DuplicateGroups = make([]GroupSummary, 0, len(groups))
	for _, g := range groups {
		gs := GroupSummary{
			Primary:     g.Primary.RelPath,
			Members:     make([]string, 0, len(g.Members)),
			Similarity:  g.Similarity,
			Disposition: g.Disposition,
			Exact:       g.Exact,
		}
		for _, m := range g.Members {
			gs.Members = append(gs.Members, m.RelPath)
		}
		s.DuplicateGroups = append(s.DuplicateGroups, gs)
	}
}
