package pipeline

// State is a step of a run.
type State string

const (
	StateScanning    State = "scanning"
	StateHashing     State = "hashing"
	StateDeduping    State = "deduping"
	StateClassifying State = "classifying"
	StateEmbedding   State = "embedding"
	StateSummarizing State = "summarizing"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// Terminal reports whether no further transition follows s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}
