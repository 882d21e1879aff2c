package domain

import "time"

// CaseRecord is one entry in the Case Store's (C3) content-addressed
// memory of prior successful header mappings. CaseID is derived
// deterministically from the sorted normalized header set; recording
// the same header set twice updates rather than duplicates the record.
type CaseRecord struct {
	CaseID            string
	Timestamp         time.Time
	Headers           []string
	NormalizedHeaders []string
	Matches           []HeaderMatch
	Confidence        float64
	WasAutoApproved   bool
	HumanCorrections  map[string]string
	Metadata          map[string]any
}

// FewShotExample is a distilled case record suitable for prompt
// injection into the LLM matcher (C4 step 3).
type FewShotExample struct {
	InputHeaders     []string
	OutputMatches    []HeaderMatch
	HumanCorrections map[string]string
	Priority         int // higher sorts first; human-corrected cases get top priority
}

// CaseStoreStats summarizes the Case Store's contents for observability.
type CaseStoreStats struct {
	TotalCases           int
	AutoApprovedCases    int
	DistinctHeaderPatterns int
}

// AutoApprovalRatio is AutoApprovedCases / TotalCases, or 0 if empty.
func (s CaseStoreStats) AutoApprovalRatio() float64 {
	if s.TotalCases == 0 {
		return 0
	}
	return float64(s.AutoApprovedCases) / float64(s.TotalCases)
}
