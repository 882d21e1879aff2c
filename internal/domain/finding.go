package domain

// Severity is a Finding's or Layer2Check's severity grade.
type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warning"
	SeverityInfo  Severity = "info"
)

// FindingSource names which validator produced a Finding.
type FindingSource string

const (
	SourceLayer1 FindingSource = "layer1"
	SourceLayer2 FindingSource = "layer2"
	SourceAI     FindingSource = "ai"
)

// Finding is one validation result item. Row is the 1-based spreadsheet
// row number (header row = 1). EmpInfo is a human-readable
// disambiguator derived from the identifying column when present, or a
// row-number fallback otherwise.
type Finding struct {
	Row      int
	EmpInfo  string
	Column   string
	Severity Severity
	Message  string
	Source   FindingSource

	// Topic is the canonicalized message-topic token used as part of
	// the L1/AI merge key, e.g. "입사|나이:미만". Populated by whichever
	// validator produces the finding.
	Topic string
}

// MergeKey is the (emp_info, field, normalized_message) key the
// Validator façade uses to de-duplicate L1 and AI findings that flag
// the same underlying issue differently.
func (f Finding) MergeKey() string {
	return f.EmpInfo + "\x1f" + f.Column + "\x1f" + f.Topic
}

// Layer2Check is one diagnostic-vs-aggregate reconciliation result (C6).
type Layer2Check struct {
	QuestionID    string
	Label         string
	UserInput     float64
	Calculated    float64
	DiffPercent   float64
	Severity      Severity // "" for a clean pass
	Message       string
	Skipped       bool
	SkippedReason string
}

// Layer2Status is the rollup over a set of Layer2Checks.
type Layer2Status string

const (
	Layer2Passed  Layer2Status = "passed"
	Layer2Warned  Layer2Status = "warnings"
	Layer2Failed  Layer2Status = "failed"
)

// ValidationBundle is the merged output of L1 + L2 + AI (C5/C6/C7),
// plus the Duplicate Detector (C8) and Confidence Scorer (C9) results
// the Agent attaches once validation completes. This is the Agent's
// single "validation" context slot — duplicates and confidence live
// here rather than as separate context fields. Passed holds iff
// Errors and Warnings are both empty and Layer2 did not fail.
type ValidationBundle struct {
	Errors      []Finding
	Warnings    []Finding
	Checks      []Layer2Check
	Layer2      Layer2Status
	AIReasoning []string
	UsedAI      bool
	Passed      bool

	Duplicates DuplicateGroupings
	Confidence ConfidenceRecord
	Anomaly    AnomalyReport
}
