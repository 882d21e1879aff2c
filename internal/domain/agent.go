package domain

// ActionType is the closed set of actions the ReACT Agent (C11) can
// choose in its Think step.
type ActionType string

const (
	ActionParse     ActionType = "PARSE"
	ActionMatch     ActionType = "MATCH"
	ActionValidate  ActionType = "VALIDATE"
	ActionAskHuman  ActionType = "ASK_HUMAN"
	ActionComplete  ActionType = "COMPLETE"
	ActionFail      ActionType = "FAIL"
)

// AgentStatus is the Agent's state-machine status. Initial state is
// Running; Completed, Failed and NeedsHuman are terminal.
type AgentStatus string

const (
	StatusRunning    AgentStatus = "running"
	StatusCompleted  AgentStatus = "completed"
	StatusFailed     AgentStatus = "failed"
	StatusNeedsHuman AgentStatus = "needs_human"
)

// Thought is the Agent's reasoning output for one iteration.
type Thought struct {
	Step      int
	Action    ActionType
	Reasoning string
	Retry     bool
}

// Observation is the result of dispatching one tool call through the
// Tool Registry.
type Observation struct {
	Success    bool
	Error      string
	Confidence float64
}

// ThoughtObservation is one (Thought, Observation) pair in the Agent's
// transcript. The transcript length equals the number of Act calls.
type ThoughtObservation struct {
	Thought     Thought
	Observation Observation
}

// AgentContext is the Agent's request-local mutable state: exactly the
// three intermediate-artefact slots plus the static inputs needed to
// drive the Think step. No open "context bag" — every field is typed.
type AgentContext struct {
	Parsed     *ParsedWorkbook
	Matches    *MatchSet
	Validation *ValidationBundle

	Sheet             Sheet
	DiagnosticAnswers map[string]any
	RetryCount        map[string]int // keyed by retry.Reason value
}

// Grade is the letter grade the Agent assigns on COMPLETE, derived from
// overall confidence.
type Grade string

const (
	GradeA Grade = "A" // auto_complete
	GradeB Grade = "B" // auto_correct_with_review
	GradeC Grade = "C" // manual_review
	GradeD Grade = "D" // full_manual_review
)

// GradeRecommendation names the human-readable recommendation for a Grade.
func GradeRecommendation(g Grade) string {
	switch g {
	case GradeA:
		return "auto_complete"
	case GradeB:
		return "auto_correct_with_review"
	case GradeC:
		return "manual_review"
	default:
		return "full_manual_review"
	}
}

// AgentResult is the envelope returned on a terminal Agent status.
type AgentResult struct {
	Status         AgentStatus
	Grade          Grade
	Confidence     float64
	Recommendation string
	Reason         string
	Transcript     []ThoughtObservation
	Context        AgentContext
}
