package model

// SectionReunionAttempt records an attempt to merge a section's siblings
// back into a single packed item during greedy selection.
type SectionReunionAttempt struct {
	SectionBase string `json:"sectionBase"`
	Succeeded   bool   `json:"succeeded"`
	Reason      string `json:"reason,omitempty"`
}

// PackingTrace captures every decision made during context packing so tests
// can assert deterministic selection (§4.7).
type PackingTrace struct {
	SelectedIDs     []string                 `json:"selectedIds"`
	TokensByID      map[string]int           `json:"tokensById"`
	ScoreByID       map[string]float64       `json:"scoreById"`
	NoveltyByID     map[string]float64       `json:"noveltyById"`
	DroppedReason   map[string]string        `json:"droppedReason"`
	PerDocCounts    map[string]int           `json:"perDocCounts"`
	PerSectionCounts map[string]int          `json:"perSectionCounts"`
	SectionReunions []SectionReunionAttempt  `json:"sectionReunions"`
}

// NewPackingTrace returns an initialized, empty PackingTrace.
func NewPackingTrace() *PackingTrace {
	return &PackingTrace{
		TokensByID:       make(map[string]int),
		ScoreByID:        make(map[string]float64),
		NoveltyByID:      make(map[string]float64),
		DroppedReason:    make(map[string]string),
		PerDocCounts:     make(map[string]int),
		PerSectionCounts: make(map[string]int),
	}
}

// PackingResult is the output of the context packer (§3).
type PackingResult struct {
	Chunks      []SearchResult `json:"chunks"`
	TotalTokens int            `json:"totalTokens"`
	Truncated   bool           `json:"truncated"`
	Trace       *PackingTrace  `json:"trace"`
}
