package exercisegen

import (
	"context"
	"fmt"
	"strings"
)

// Judge runs one independent check over a whole item batch. A judge never
// returns an error: every failure mode degrades into a JudgeResult carrying
// a single index -1 notice so the pipeline can keep going.
type Judge interface {
	Name() string
	Run(ctx context.Context, items []GeneratedItem, dctx DomainContext, logger *LLMLogger) JudgeResult
}

const (
	judgeMaxTokens = 4000

	// AnswerJudgeName checks that stated correct answers are actually correct
	AnswerJudgeName = "answer"
	// QualityJudgeName checks formulation, difficulty fit and topical relevance
	QualityJudgeName = "quality"
)

// judgeFinding is the wire shape judges ask the oracle to emit per flagged
// item; items the oracle does not list are treated as ok
type judgeFinding struct {
	Index      int    `json:"index"`
	Status     string `json:"status"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

type judgeResponse struct {
	Findings []judgeFinding `json:"findings"`
}

// degradedResult is the uniform fail-open result: zero item verdicts plus
// one judge-level notice at index -1. Unavailable is explicit so callers
// can tell "checked, clean" from "not checked" without relying on the
// reserved index.
func degradedResult(judgeName string, code IssueCode, message string) JudgeResult {
	jr := JudgeResult{
		JudgeName: judgeName,
		Outcome:   OutcomeUnavailable,
		Verdicts: []ItemVerdict{
			{
				ItemIndex: JudgeNoticeIndex,
				Status:    StatusWarning,
				Issues:    []Issue{{Code: code, Message: message}},
			},
		},
	}
	jr.tally()
	return jr
}

// consultOracle performs the single network round-trip shared by both
// judges and reduces every fault to the degraded result
func consultOracle(ctx context.Context, oracle Oracle, judgeName, system, prompt string, logger *LLMLogger) (*judgeResponse, *JudgeResult) {
	logger.LogLLMRequest(judgeName, prompt)

	resp, err := oracle.Complete(ctx, OracleRequest{
		System:    system,
		Prompt:    prompt,
		MaxTokens: judgeMaxTokens,
	})
	if err != nil {
		VerboseLog("judge %s: oracle call failed: %v", judgeName, err)
		jr := degradedResult(judgeName, CodeAgentError, fmt.Sprintf("oracle call failed: %v", err))
		return nil, &jr
	}

	logger.LogLLMResponse(judgeName, resp.Content)
	logger.LogUsage(judgeName, resp.Usage)

	block := ExtractJSONBlock(resp.Content)
	if block == "" {
		VerboseLog("judge %s: no structured block in response", judgeName)
		jr := degradedResult(judgeName, CodeNoResponse, "response contained no structured block")
		return nil, &jr
	}

	var parsed judgeResponse
	if !ParseOracleJSON(block, &parsed) {
		jr := degradedResult(judgeName, CodeParseError, "response block could not be decoded")
		return nil, &jr
	}

	return &parsed, nil
}

// renderItem writes one item into a judge prompt, correct answers marked
// with *
func renderItem(sb *strings.Builder, index int, item GeneratedItem) {
	fmt.Fprintf(sb, "Item %d (%s): %s\n", index, item.Kind, item.Prompt)

	switch item.Kind {
	case KindSingleChoice:
		for i, option := range item.Options {
			marker := " "
			if i == item.CorrectIndex {
				marker = "*"
			}
			fmt.Fprintf(sb, "  %s%d. %s\n", marker, i+1, option)
		}
	case KindMultipleChoice:
		correct := make(map[int]bool, len(item.CorrectIndices))
		for _, i := range item.CorrectIndices {
			correct[i] = true
		}
		for i, option := range item.Options {
			marker := " "
			if correct[i] {
				marker = "*"
			}
			fmt.Fprintf(sb, "  %s%d. %s\n", marker, i+1, option)
		}
	case KindOpenQuestion:
		fmt.Fprintf(sb, "  Sample answer: %s\n", item.SampleAnswer)
	case KindMatching:
		for _, pair := range item.Pairs {
			fmt.Fprintf(sb, "  %s -> %s\n", pair.Left, pair.Right)
		}
	case KindFillInBlank:
		fmt.Fprintf(sb, "  Blanks: %s\n", strings.Join(item.Blanks, "; "))
	}
	sb.WriteString("\n")
}

// normalizeStatus maps a finding's free-text status onto the verdict enum,
// falling back to the judge's default for unknown text
func normalizeStatus(raw string, fallback VerdictStatus) VerdictStatus {
	switch VerdictStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusError:
		return StatusError
	case StatusWarning:
		return StatusWarning
	}
	return fallback
}

// AnswerJudge verifies that the stated correct answers are actually correct
type AnswerJudge struct {
	oracle Oracle
}

// NewAnswerJudge creates the answer-correctness judge
func NewAnswerJudge(oracle Oracle) *AnswerJudge {
	return &AnswerJudge{oracle: oracle}
}

func (aj *AnswerJudge) Name() string { return AnswerJudgeName }

// Run checks the whole batch in one oracle call
func (aj *AnswerJudge) Run(ctx context.Context, items []GeneratedItem, dctx DomainContext, logger *LLMLogger) JudgeResult {
	prompt := aj.buildPrompt(items, dctx)

	parsed, degraded := consultOracle(ctx, aj.oracle, aj.Name(),
		"You are an expert fact checker for school exercise material. You verify that the marked correct answers are actually correct. Respond with a JSON object.",
		prompt, logger)
	if degraded != nil {
		return *degraded
	}

	jr := JudgeResult{JudgeName: aj.Name(), Outcome: OutcomeOK, Verdicts: []ItemVerdict{}}
	for _, f := range parsed.Findings {
		if f.Index < 0 || f.Index >= len(items) {
			VerboseLog("judge %s: dropping finding with out-of-range index %d", aj.Name(), f.Index)
			continue
		}
		message := strings.TrimSpace(f.Message)
		if message == "" {
			message = "stated answer is not correct"
		}
		verdict := ItemVerdict{
			ItemIndex: f.Index,
			Status:    normalizeStatus(f.Status, StatusError),
			Issues: []Issue{{
				Code:       CodeWrongAnswer,
				Message:    message,
				Suggestion: strings.TrimSpace(f.Suggestion),
			}},
		}
		jr.Verdicts = append(jr.Verdicts, verdict)
		logger.LogVerdict(aj.Name(), f.Index, verdict.Status, CodeWrongAnswer, message)
	}
	jr.tally()
	return jr
}

func (aj *AnswerJudge) buildPrompt(items []GeneratedItem, dctx DomainContext) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Verify the correct answers of the following %s exercise items for grade %d.\n", dctx.Subject, dctx.Grade)
	fmt.Fprintf(&sb, "Topic: %s\n\n", dctx.Topic)

	for i, item := range items {
		renderItem(&sb, i, item)
	}

	sb.WriteString("Check every item:\n")
	sb.WriteString("- For choice items, the options marked with * must be the correct ones and only those.\n")
	sb.WriteString("- For matching items, every pair must be a true association.\n")
	sb.WriteString("- For fill-in-blank items, every listed blank answer must fit its gap.\n")
	sb.WriteString("- For open questions, the sample answer must actually answer the question correctly.\n")
	if guidance := promptForSubject(dctx.Subject).AnswerGuidance; guidance != "" {
		sb.WriteString("- " + guidance + "\n")
	}
	sb.WriteString("\nRespond with exactly one JSON object of the form:\n")
	sb.WriteString(`{"findings": [{"index": 0, "status": "error", "code": "WRONG_ANSWER", "message": "...", "suggestion": "..."}]}` + "\n")
	sb.WriteString("List only items whose stated answer is wrong. If every answer is correct, return {\"findings\": []}.\n")

	return sb.String()
}

// QualityJudge checks formulation validity, difficulty fit and topical
// relevance in one pass
type QualityJudge struct {
	oracle Oracle
}

// NewQualityJudge creates the unified quality/content judge
func NewQualityJudge(oracle Oracle) *QualityJudge {
	return &QualityJudge{oracle: oracle}
}

func (qj *QualityJudge) Name() string { return QualityJudgeName }

// qualityCodes is the closed finding set of this judge family
var qualityCodes = map[IssueCode]VerdictStatus{
	CodeBadFormulation:     StatusError,
	CodeOffTopic:           StatusError,
	CodePartialMismatch:    StatusError,
	CodeDifficultyMismatch: StatusWarning,
}

// Run checks the whole batch in one oracle call
func (qj *QualityJudge) Run(ctx context.Context, items []GeneratedItem, dctx DomainContext, logger *LLMLogger) JudgeResult {
	prompt := qj.buildPrompt(items, dctx)

	parsed, degraded := consultOracle(ctx, qj.oracle, qj.Name(),
		"You are an experienced teacher reviewing generated exercise material for formulation quality, difficulty fit and curriculum relevance. Respond with a JSON object.",
		prompt, logger)
	if degraded != nil {
		return *degraded
	}

	jr := JudgeResult{JudgeName: qj.Name(), Outcome: OutcomeOK, Verdicts: []ItemVerdict{}}
	for _, f := range parsed.Findings {
		if f.Index < 0 || f.Index >= len(items) {
			VerboseLog("judge %s: dropping finding with out-of-range index %d", qj.Name(), f.Index)
			continue
		}

		code := IssueCode(strings.ToUpper(strings.TrimSpace(f.Code)))
		defaultStatus, known := qualityCodes[code]
		if !known {
			VerboseLog("judge %s: unknown code %q, treating as %s", qj.Name(), f.Code, CodeBadFormulation)
			code = CodeBadFormulation
			defaultStatus = qualityCodes[code]
		}

		message := strings.TrimSpace(f.Message)
		if message == "" {
			message = "flagged by quality review"
		}
		verdict := ItemVerdict{
			ItemIndex: f.Index,
			Status:    normalizeStatus(f.Status, defaultStatus),
			Issues: []Issue{{
				Code:       code,
				Message:    message,
				Suggestion: strings.TrimSpace(f.Suggestion),
			}},
		}
		jr.Verdicts = append(jr.Verdicts, verdict)
		logger.LogVerdict(qj.Name(), f.Index, verdict.Status, code, message)
	}
	jr.tally()
	return jr
}

func (qj *QualityJudge) buildPrompt(items []GeneratedItem, dctx DomainContext) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Review the following %s exercise items for grade %d.\n", dctx.Subject, dctx.Grade)
	fmt.Fprintf(&sb, "Topic: %s\n", dctx.Topic)
	fmt.Fprintf(&sb, "Intended difficulty: %s\n", dctx.Difficulty)
	fmt.Fprintf(&sb, "Curriculum topics for this grade: %s\n\n", curriculumSummary(dctx.Subject, dctx.Grade))

	for i, item := range items {
		renderItem(&sb, i, item)
	}

	sb.WriteString("Flag an item only for one of these reasons:\n")
	sb.WriteString("- BAD_FORMULATION: the wording is ambiguous, ungrammatical, or the item is structurally unanswerable\n")
	sb.WriteString("- DIFFICULTY_MISMATCH: clearly easier or harder than the intended difficulty for this grade\n")
	sb.WriteString("- OFF_TOPIC: unrelated to the worksheet topic or the curriculum topics above\n")
	sb.WriteString("- PARTIAL_MISMATCH: only partially covers the topic, or mixes in unrelated material\n")
	if guidance := promptForSubject(dctx.Subject).QualityGuidance; guidance != "" {
		sb.WriteString("- " + guidance + "\n")
	}
	sb.WriteString("\nRespond with exactly one JSON object of the form:\n")
	sb.WriteString(`{"findings": [{"index": 0, "status": "warning", "code": "DIFFICULTY_MISMATCH", "message": "...", "suggestion": "..."}]}` + "\n")
	sb.WriteString("Use status \"error\" for BAD_FORMULATION, OFF_TOPIC and PARTIAL_MISMATCH, status \"warning\" for DIFFICULTY_MISMATCH.\n")
	sb.WriteString("List only flawed items. If nothing is wrong, return {\"findings\": []}.\n")

	return sb.String()
}
