package exercisegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func errorVerdict(index int, code IssueCode) ItemVerdict {
	return ItemVerdict{
		ItemIndex: index,
		Status:    StatusError,
		Issues:    []Issue{{Code: code, Message: "flagged"}},
	}
}

func warningVerdict(index int, code IssueCode) ItemVerdict {
	return ItemVerdict{
		ItemIndex: index,
		Status:    StatusWarning,
		Issues:    []Issue{{Code: code, Message: "flagged"}},
	}
}

func TestAggregateSortsAndDeduplicates(t *testing.T) {
	results := []JudgeResult{
		{JudgeName: "answer", Outcome: OutcomeOK, Verdicts: []ItemVerdict{
			errorVerdict(4, CodeWrongAnswer),
			errorVerdict(1, CodeWrongAnswer),
		}},
		{JudgeName: "quality", Outcome: OutcomeOK, Verdicts: []ItemVerdict{
			errorVerdict(1, CodeOffTopic), // same item flagged by both judges
			errorVerdict(0, CodeBadFormulation),
		}},
	}

	problemItems, allIssues := Aggregate(results)

	assert.Equal(t, []int{0, 1, 4}, problemItems)
	require.Len(t, allIssues, 4)

	// judge-submission order, then ascending item index within each judge
	assert.Equal(t, "answer", allIssues[0].JudgeName)
	assert.Equal(t, 1, allIssues[0].ItemIndex)
	assert.Equal(t, "answer", allIssues[1].JudgeName)
	assert.Equal(t, 4, allIssues[1].ItemIndex)
	assert.Equal(t, "quality", allIssues[2].JudgeName)
	assert.Equal(t, 0, allIssues[2].ItemIndex)
	assert.Equal(t, "quality", allIssues[3].JudgeName)
	assert.Equal(t, 1, allIssues[3].ItemIndex)
}

func TestAggregateOrdersIssuesWithinJudge(t *testing.T) {
	// the oracle listed its findings highest index first
	results := []JudgeResult{
		{JudgeName: "answer", Outcome: OutcomeOK, Verdicts: []ItemVerdict{
			errorVerdict(4, CodeWrongAnswer),
			errorVerdict(1, CodeWrongAnswer),
		}},
	}

	_, allIssues := Aggregate(results)

	require.Len(t, allIssues, 2)
	assert.Equal(t, 1, allIssues[0].ItemIndex)
	assert.Equal(t, 4, allIssues[1].ItemIndex)
}

func TestAggregateWarningsDoNotFailBatch(t *testing.T) {
	results := []JudgeResult{
		{JudgeName: "quality", Outcome: OutcomeOK, Verdicts: []ItemVerdict{
			warningVerdict(2, CodeDifficultyMismatch),
		}},
	}

	problemItems, allIssues := Aggregate(results)

	assert.Empty(t, problemItems)
	require.Len(t, allIssues, 1)
	assert.Equal(t, CodeDifficultyMismatch, allIssues[0].Issue.Code)
}

func TestAggregateSkipsJudgeNotices(t *testing.T) {
	results := []JudgeResult{
		degradedResult("answer", CodeAgentError, "oracle down"),
		{JudgeName: "quality", Outcome: OutcomeOK, Verdicts: []ItemVerdict{
			errorVerdict(3, CodeOffTopic),
		}},
	}

	problemItems, allIssues := Aggregate(results)

	// the index -1 notice never reaches the item-level outputs
	assert.Equal(t, []int{3}, problemItems)
	require.Len(t, allIssues, 1)
	assert.Equal(t, 3, allIssues[0].ItemIndex)
}

func TestAggregateEmpty(t *testing.T) {
	problemItems, allIssues := Aggregate(nil)
	assert.NotNil(t, problemItems)
	assert.NotNil(t, allIssues)
	assert.Empty(t, problemItems)
	assert.Empty(t, allIssues)
}
