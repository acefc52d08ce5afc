package models

// EvidenceReport is the renderable result set of one processing run. The
// report endpoint accepts it as posted JSON; Evidence keys are question ids.
type EvidenceReport struct {
	Title     string                      `json:"title"`
	Questions []Question                  `json:"questions"`
	Evidence  map[int][]EvidenceCandidate `json:"evidence"`
	Stats     *StatsSnapshot              `json:"stats,omitempty"`
}
