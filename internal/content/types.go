package content

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ProblemRequest describes one problem to generate for a scheduled run.
type ProblemRequest struct {
	Grade    int    `json:"grade"` // 1..3
	Topic    string `json:"topic"`
	TimeSlot string `json:"time_slot"`
	Region   string `json:"region"`
}

// ProblemMetadata carries non-essential problem attributes.
type ProblemMetadata struct {
	Difficulty string   `json:"difficulty"`
	Tags       []string `json:"tags,omitempty"`
}

// Problem is one generated math problem. Immutable once created.
type Problem struct {
	StatementText string          `json:"statement_text"`
	EquationText  string          `json:"equation_text"`
	SolutionSteps []string        `json:"solution_steps"`
	FinalAnswer   string          `json:"final_answer"`
	Metadata      ProblemMetadata `json:"metadata"`
}

// WellFormed reports whether the problem can be narrated and published.
func (p Problem) WellFormed() bool {
	return strings.TrimSpace(p.StatementText) != "" &&
		len(p.SolutionSteps) > 0 &&
		strings.TrimSpace(p.FinalAnswer) != ""
}

// NarrationResult is the outcome of synthesizing one language. Fails-soft:
// a failed synthesis is a value with Succeeded=false, never an error.
type NarrationResult struct {
	LanguageTag         string  `json:"language_tag"`
	ScriptText          string  `json:"script_text"`
	AudioRef            string  `json:"audio_ref,omitempty"`
	DurationEstimateSec float64 `json:"duration_estimate_sec"`
	Succeeded           bool    `json:"succeeded"`
	ErrorDetail         string  `json:"error_detail,omitempty"`
}

// Bundle aggregates one problem with all per-language narration artifacts
// produced by a single run.
type Bundle struct {
	ID         string            `json:"id"`
	TimeSlot   string            `json:"time_slot"`
	Request    ProblemRequest    `json:"request"`
	Problem    Problem           `json:"problem"`
	Narrations []NarrationResult `json:"narrations"`
	CreatedAt  time.Time         `json:"created_at"`
}

// NewBundleID returns a unique bundle identifier.
func NewBundleID() string {
	return uuid.NewString()
}

// Narration returns the narration result for a language tag, if present.
func (b *Bundle) Narration(languageTag string) (NarrationResult, bool) {
	for _, n := range b.Narrations {
		if n.LanguageTag == languageTag {
			return n, true
		}
	}
	return NarrationResult{}, false
}

// Preview returns a short human-readable excerpt of the problem statement
// for notification messages.
func (b *Bundle) Preview() string {
	const max = 100
	statement := strings.TrimSpace(b.Problem.StatementText)
	runes := []rune(statement)
	if len(runes) <= max {
		return statement
	}
	return string(runes[:max]) + "..."
}

// RunStatus is the overall outcome of one workflow run.
type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunPartial   RunStatus = "partial"
	RunRejected  RunStatus = "rejected"
)

// LanguageOutcome records per-language success for one run.
type LanguageOutcome struct {
	NarrationSucceeded bool   `json:"narration_succeeded"`
	PublishSucceeded   bool   `json:"publish_succeeded"`
	ExternalRef        string `json:"external_ref,omitempty"`
	ErrorDetail        string `json:"error_detail,omitempty"`
}

// RunResult is the read-only report for one completed run.
type RunResult struct {
	TimeSlot           string                     `json:"time_slot"`
	BundleID           string                     `json:"bundle_id"`
	TicketID           string                     `json:"ticket_id,omitempty"`
	PerLanguageOutcome map[string]LanguageOutcome `json:"per_language_outcome"`
	OverallStatus      RunStatus                  `json:"overall_status"`
	StartedAt          time.Time                  `json:"started_at"`
	FinishedAt         time.Time                  `json:"finished_at"`
	Feedback           string                     `json:"feedback,omitempty"`
}
