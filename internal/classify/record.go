package classify

import "strings"

// Source names the path that produced a Record.
type Source string

const (
	SourceStructured Source = "structured"
	SourceKeyword    Source = "keyword"
	SourceFallback   Source = "fallback"
	SourceError      Source = "error"
	SourceCache      Source = "cache"
)

const (
	// ErrorCategory marks items whose classification failed.
	ErrorCategory = "error"
	// MaxTags bounds the tag list of every record.
	MaxTags = 5
	// FallbackConfidence is the ceiling for records built without tags from
	// the model.
	FallbackConfidence = 0.2
	// DefaultConfidence applies when a reply omits or garbles confidence.
	DefaultConfidence = 0.5
)

// GenericTags are assigned when no tags can be recovered from a reply.
var GenericTags = []string{"icon", "symbol", "graphic"}

// Record is the classification assigned to one icon.
type Record struct {
	Category   string   `json:"category"`
	Tags       []string `json:"tags"`
	Confidence float64  `json:"confidence"`
	Reasoning  string   `json:"reasoning,omitempty"`
	Source     Source   `json:"source"`
}

// ErrorRecord describes an item whose classification failed after retries.
func ErrorRecord(err error) Record {
	reason := "classification failed"
	if err != nil {
		reason = strings.Join(strings.Fields(err.Error()), " ")
	}
	return Record{
		Category:  ErrorCategory,
		Tags:      []string{},
		Reasoning: reason,
		Source:    SourceError,
	}
}

// IsError reports whether r records a failure.
func (r Record) IsError() bool {
	return r.Source == SourceError || r.Category == ErrorCategory
}
