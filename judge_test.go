package exercisegen

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireDegraded(t *testing.T, jr JudgeResult, code IssueCode) {
	t.Helper()
	assert.Equal(t, OutcomeUnavailable, jr.Outcome)
	require.Len(t, jr.Verdicts, 1)
	assert.Equal(t, JudgeNoticeIndex, jr.Verdicts[0].ItemIndex)
	assert.Equal(t, StatusWarning, jr.Verdicts[0].Status)
	require.Len(t, jr.Verdicts[0].Issues, 1)
	assert.Equal(t, code, jr.Verdicts[0].Issues[0].Code)
	assert.Equal(t, 0, jr.TotalErrors)
	assert.Equal(t, 1, jr.TotalWarnings)
}

func TestAnswerJudgeDegradesOnOracleError(t *testing.T) {
	oracle := &fakeOracle{respond: func(_ int, _ OracleRequest) (*OracleResponse, error) {
		return nil, errors.New("connection refused")
	}}

	jr := NewAnswerJudge(oracle).Run(context.Background(), sampleBatch(3), scienceContext(), nil)
	requireDegraded(t, jr, CodeAgentError)
}

func TestAnswerJudgeDegradesOnMissingBlock(t *testing.T) {
	oracle := &fakeOracle{respond: func(_ int, _ OracleRequest) (*OracleResponse, error) {
		return textResponse("Everything looks great, nothing to report!")
	}}

	jr := NewAnswerJudge(oracle).Run(context.Background(), sampleBatch(3), scienceContext(), nil)
	requireDegraded(t, jr, CodeNoResponse)
}

func TestAnswerJudgeDegradesOnUndecodableBlock(t *testing.T) {
	oracle := &fakeOracle{respond: func(_ int, _ OracleRequest) (*OracleResponse, error) {
		return textResponse("```json\n[1, 2, 3]\n```")
	}}

	jr := NewAnswerJudge(oracle).Run(context.Background(), sampleBatch(3), scienceContext(), nil)
	requireDegraded(t, jr, CodeParseError)
}

func TestAnswerJudgeMapsFindings(t *testing.T) {
	oracle := &fakeOracle{respond: func(_ int, _ OracleRequest) (*OracleResponse, error) {
		return textResponse(findingsJSON(t,
			judgeFinding{Index: 1, Status: "error", Message: "option 2 is wrong", Suggestion: "mark option 3"},
			judgeFinding{Index: 9, Status: "error", Message: "out of range, must be dropped"},
			judgeFinding{Index: 2, Status: "nonsense", Message: "unknown status defaults to error"},
		))
	}}

	jr := NewAnswerJudge(oracle).Run(context.Background(), sampleBatch(3), scienceContext(), nil)

	assert.Equal(t, OutcomeOK, jr.Outcome)
	require.Len(t, jr.Verdicts, 2)

	assert.Equal(t, 1, jr.Verdicts[0].ItemIndex)
	assert.Equal(t, StatusError, jr.Verdicts[0].Status)
	assert.Equal(t, CodeWrongAnswer, jr.Verdicts[0].Issues[0].Code)
	assert.Equal(t, "mark option 3", jr.Verdicts[0].Issues[0].Suggestion)

	assert.Equal(t, 2, jr.Verdicts[1].ItemIndex)
	assert.Equal(t, StatusError, jr.Verdicts[1].Status)

	assert.Equal(t, 2, jr.TotalErrors)
	assert.Equal(t, 0, jr.TotalWarnings)
}

func TestAnswerJudgeCleanBatch(t *testing.T) {
	oracle := &fakeOracle{respond: func(_ int, _ OracleRequest) (*OracleResponse, error) {
		return textResponse(findingsJSON(t))
	}}

	jr := NewAnswerJudge(oracle).Run(context.Background(), sampleBatch(3), scienceContext(), nil)

	assert.Equal(t, OutcomeOK, jr.Outcome)
	assert.Empty(t, jr.Verdicts)
	assert.Equal(t, 0, jr.TotalErrors)
	assert.Equal(t, 0, jr.TotalWarnings)
}

func TestQualityJudgeMapsCodes(t *testing.T) {
	oracle := &fakeOracle{respond: func(_ int, _ OracleRequest) (*OracleResponse, error) {
		return textResponse(findingsJSON(t,
			judgeFinding{Index: 0, Code: "difficulty_mismatch", Message: "too easy"},
			judgeFinding{Index: 1, Code: "OFF_TOPIC", Message: "about a different subject"},
			judgeFinding{Index: 2, Code: "SOMETHING_NEW", Message: "unknown code"},
		))
	}}

	jr := NewQualityJudge(oracle).Run(context.Background(), sampleBatch(3), scienceContext(), nil)

	require.Len(t, jr.Verdicts, 3)

	// lowercase code normalized, difficulty defaults to warning
	assert.Equal(t, CodeDifficultyMismatch, jr.Verdicts[0].Issues[0].Code)
	assert.Equal(t, StatusWarning, jr.Verdicts[0].Status)

	assert.Equal(t, CodeOffTopic, jr.Verdicts[1].Issues[0].Code)
	assert.Equal(t, StatusError, jr.Verdicts[1].Status)

	// codes outside the closed set collapse to BAD_FORMULATION
	assert.Equal(t, CodeBadFormulation, jr.Verdicts[2].Issues[0].Code)
	assert.Equal(t, StatusError, jr.Verdicts[2].Status)

	assert.Equal(t, 2, jr.TotalErrors)
	assert.Equal(t, 1, jr.TotalWarnings)
}

func TestQualityJudgePromptCarriesCurriculum(t *testing.T) {
	var prompt string
	oracle := &fakeOracle{respond: func(_ int, req OracleRequest) (*OracleResponse, error) {
		prompt = req.Prompt
		return textResponse(findingsJSON(t))
	}}

	NewQualityJudge(oracle).Run(context.Background(), sampleBatch(1), scienceContext(), nil)
	assert.Contains(t, prompt, "cells")

	// unknown grade falls back to the placeholder instead of failing
	NewQualityJudge(oracle).Run(context.Background(), sampleBatch(1),
		DomainContext{Subject: SubjectScience, Grade: 12, Topic: "quantum physics", Difficulty: "hard"}, nil)
	assert.Contains(t, prompt, TopicsNotFound)
}
