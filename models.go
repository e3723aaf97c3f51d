package exercisegen

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ItemKind identifies the shape of a generated exercise item
type ItemKind string

const (
	KindSingleChoice   ItemKind = "single_choice"
	KindMultipleChoice ItemKind = "multiple_choice"
	KindOpenQuestion   ItemKind = "open_question"
	KindMatching       ItemKind = "matching"
	KindFillInBlank    ItemKind = "fill_in_blank"
)

// MatchPair is one left/right column pair of a matching item
type MatchPair struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

// GeneratedItem is a single exercise item. Only the fields relevant to its
// Kind are populated. Within a batch an item is identified by its 0-based
// position, never by content.
type GeneratedItem struct {
	Kind   ItemKind `json:"kind"`
	Prompt string   `json:"prompt"`

	// single_choice / multiple_choice; correct_index is never omitted so a
	// serialized item always shows which option is marked, even option 0
	Options        []string `json:"options,omitempty"`
	CorrectIndex   int      `json:"correct_index"`
	CorrectIndices []int    `json:"correct_indices,omitempty"`

	// open_question
	SampleAnswer string `json:"sample_answer,omitempty"`

	// matching
	Pairs []MatchPair `json:"pairs,omitempty"`

	// fill_in_blank: prompt uses ___ markers, Blanks holds the answers in order
	Blanks []string `json:"blanks,omitempty"`
}

// Clone returns a deep copy so a repair candidate can never alias the
// original batch through shared slices.
func (it GeneratedItem) Clone() GeneratedItem {
	out := it
	if it.Options != nil {
		out.Options = append([]string(nil), it.Options...)
	}
	if it.CorrectIndices != nil {
		out.CorrectIndices = append([]int(nil), it.CorrectIndices...)
	}
	if it.Pairs != nil {
		out.Pairs = append([]MatchPair(nil), it.Pairs...)
	}
	if it.Blanks != nil {
		out.Blanks = append([]string(nil), it.Blanks...)
	}
	return out
}

// validateItem rejects structurally broken items before they enter a batch
// or replace a batch member
func validateItem(it GeneratedItem) error {
	if strings.TrimSpace(it.Prompt) == "" {
		return errors.New("item has no prompt")
	}
	switch it.Kind {
	case KindSingleChoice:
		if len(it.Options) < 2 {
			return errors.New("single choice item needs at least two options")
		}
		if it.CorrectIndex < 0 || it.CorrectIndex >= len(it.Options) {
			return fmt.Errorf("correct index %d out of range", it.CorrectIndex)
		}
	case KindMultipleChoice:
		if len(it.Options) < 2 {
			return errors.New("multiple choice item needs at least two options")
		}
		if len(it.CorrectIndices) == 0 {
			return errors.New("multiple choice item has no correct options")
		}
		for _, idx := range it.CorrectIndices {
			if idx < 0 || idx >= len(it.Options) {
				return fmt.Errorf("correct index %d out of range", idx)
			}
		}
	case KindOpenQuestion:
		if strings.TrimSpace(it.SampleAnswer) == "" {
			return errors.New("open question has no sample answer")
		}
	case KindMatching:
		if len(it.Pairs) < 2 {
			return errors.New("matching item needs at least two pairs")
		}
	case KindFillInBlank:
		if len(it.Blanks) == 0 {
			return errors.New("fill-in-blank item has no blank answers")
		}
	default:
		return fmt.Errorf("unknown item kind %q", it.Kind)
	}
	return nil
}

// Subject is the enumerated content domain a worksheet belongs to
type Subject string

const (
	SubjectMath      Subject = "math"
	SubjectLanguage  Subject = "language"
	SubjectScience   Subject = "science"
	SubjectHistory   Subject = "history"
	SubjectGeography Subject = "geography"
)

// DomainContext carries the curriculum context all oracle calls are
// phrased against
type DomainContext struct {
	Subject    Subject `json:"subject"`
	Grade      int     `json:"grade"`
	Topic      string  `json:"topic"`
	Difficulty string  `json:"difficulty"`
}

// VerdictStatus is the per-item outcome of a judge
type VerdictStatus string

const (
	StatusOK      VerdictStatus = "ok"
	StatusWarning VerdictStatus = "warning"
	StatusError   VerdictStatus = "error"
)

// IssueCode is a closed set of symbols so downstream selection logic never
// has to parse prose
type IssueCode string

const (
	// answer judge family
	CodeWrongAnswer IssueCode = "WRONG_ANSWER"

	// unified quality judge family
	CodeBadFormulation     IssueCode = "BAD_FORMULATION"
	CodeDifficultyMismatch IssueCode = "DIFFICULTY_MISMATCH"
	CodeOffTopic           IssueCode = "OFF_TOPIC"
	CodePartialMismatch    IssueCode = "PARTIAL_MISMATCH"

	// judge-level failure family, only ever attached to the index -1 notice
	CodeNoResponse IssueCode = "NO_RESPONSE"
	CodeParseError IssueCode = "PARSE_ERROR"
	CodeAgentError IssueCode = "AGENT_ERROR"
)

// Issue is one finding a judge attached to an item
type Issue struct {
	Code       IssueCode `json:"code"`
	Message    string    `json:"message"`
	Suggestion string    `json:"suggestion,omitempty"`
}

// JudgeNoticeIndex marks a verdict that concerns the judge itself rather
// than any item, e.g. "judge unavailable"
const JudgeNoticeIndex = -1

// ItemVerdict is one judge's finding for one item. Issues is non-empty
// exactly when Status != ok.
type ItemVerdict struct {
	ItemIndex int           `json:"item_index"`
	Status    VerdictStatus `json:"status"`
	Issues    []Issue       `json:"issues,omitempty"`
}

// JudgeOutcome distinguishes "checked and found nothing" from "could not
// check at all"
type JudgeOutcome string

const (
	OutcomeOK          JudgeOutcome = "ok"
	OutcomeUnavailable JudgeOutcome = "unavailable"
)

// JudgeResult is everything one judge produced for a batch. TotalErrors and
// TotalWarnings are derived from Verdicts, never set by hand.
type JudgeResult struct {
	JudgeName     string        `json:"judge_name"`
	Outcome       JudgeOutcome  `json:"outcome"`
	Verdicts      []ItemVerdict `json:"verdicts"`
	TotalErrors   int           `json:"total_errors"`
	TotalWarnings int           `json:"total_warnings"`
}

// tally recomputes the derived counters from the verdict list
func (jr *JudgeResult) tally() {
	jr.TotalErrors = 0
	jr.TotalWarnings = 0
	for _, v := range jr.Verdicts {
		switch v.Status {
		case StatusError:
			jr.TotalErrors++
		case StatusWarning:
			jr.TotalWarnings++
		}
	}
}

// FixOutcome is the result of one repair attempt, in selection order.
// Exactly one of FixedItem and Error is populated depending on Success.
type FixOutcome struct {
	ItemIndex   int            `json:"item_index"`
	Success     bool           `json:"success"`
	FixedItem   *GeneratedItem `json:"fixed_item,omitempty"`
	Description string         `json:"description,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// FlaggedIssue is one issue tagged with its item index and owning judge
type FlaggedIssue struct {
	ItemIndex int    `json:"item_index"`
	JudgeName string `json:"judge_name"`
	Issue     Issue  `json:"issue"`
}

// ValidationReport is the sole artifact the pipeline hands downstream.
// Valid reflects the pre-remediation judge output: repairs improve
// FinalItems but never retroactively flip Valid.
type ValidationReport struct {
	Valid        bool            `json:"valid"`
	JudgeResults []JudgeResult   `json:"judge_results"`
	ProblemItems []int           `json:"problem_items"`
	AllIssues    []FlaggedIssue  `json:"all_issues"`
	FinalItems   []GeneratedItem `json:"final_items"`
	FixOutcomes  []FixOutcome    `json:"fix_outcomes"`
}

// ValidateOptions controls optional pipeline stages
type ValidateOptions struct {
	AutoFix bool `json:"auto_fix"`
}

// GenerationRequest asks the item maker for a fresh batch
type GenerationRequest struct {
	Context  DomainContext `json:"context"`
	NumItems int           `json:"num_items"`
}

// WorksheetStatus tracks a worksheet through the async web flow
type WorksheetStatus string

const (
	WorksheetGenerating WorksheetStatus = "generating"
	WorksheetReady      WorksheetStatus = "ready"
	WorksheetFailed     WorksheetStatus = "failed"
)

// Worksheet is a finished, validated batch as stored and served
type Worksheet struct {
	ID        string          `json:"id"`
	Context   DomainContext   `json:"context"`
	Items     []GeneratedItem `json:"items"`
	CreatedAt time.Time       `json:"created_at"`
	Status    WorksheetStatus `json:"status"`
}
