package exercisegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurriculumTopicsLookup(t *testing.T) {
	topics := CurriculumTopics(SubjectMath, 7)
	assert.Contains(t, topics, "linear equations")

	assert.Nil(t, CurriculumTopics(SubjectMath, 13))
	assert.Nil(t, CurriculumTopics(Subject("music"), 7))
}

func TestCurriculumSummaryFallsBack(t *testing.T) {
	assert.Contains(t, curriculumSummary(SubjectHistory, 7), "the Middle Ages")
	assert.Equal(t, TopicsNotFound, curriculumSummary(SubjectHistory, 1))
}

func TestPromptForSubjectNeverFails(t *testing.T) {
	assert.NotEmpty(t, promptForSubject(SubjectMath).AnswerGuidance)
	assert.Empty(t, promptForSubject(Subject("music")).AnswerGuidance)
}
