package exercisegen

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.CloseDB() })
	require.NoError(t, db.CreateTables())
	return db
}

func TestWorksheetRoundTrip(t *testing.T) {
	db := openTestDB(t)
	items := sampleBatch(3)

	worksheet := &Worksheet{
		ID:        "ws-1",
		Context:   scienceContext(),
		CreatedAt: time.Now(),
		Status:    WorksheetGenerating,
	}
	require.NoError(t, db.CreateWorksheet(worksheet))
	require.NoError(t, db.SaveItems(worksheet.ID, items))
	require.NoError(t, db.UpdateWorksheetStatus(worksheet.ID, WorksheetReady))

	loaded, err := db.GetWorksheet(worksheet.ID)
	require.NoError(t, err)
	assert.Equal(t, worksheet.ID, loaded.ID)
	assert.Equal(t, scienceContext(), loaded.Context)
	assert.Equal(t, WorksheetReady, loaded.Status)
	assert.Equal(t, items, loaded.Items)
}

func TestWorksheetNotFound(t *testing.T) {
	db := openTestDB(t)
	_, err := db.GetWorksheet("missing")
	assert.Error(t, err)
}

func TestSaveItemsReplacesPrevious(t *testing.T) {
	db := openTestDB(t)

	worksheet := &Worksheet{ID: "ws-2", Context: scienceContext(), CreatedAt: time.Now(), Status: WorksheetGenerating}
	require.NoError(t, db.CreateWorksheet(worksheet))

	require.NoError(t, db.SaveItems(worksheet.ID, sampleBatch(5)))
	replacement := sampleBatch(2)
	replacement[0].Prompt = "replaced"
	require.NoError(t, db.SaveItems(worksheet.ID, replacement))

	loaded, err := db.GetWorksheet(worksheet.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 2)
	assert.Equal(t, "replaced", loaded.Items[0].Prompt)
}

func TestReportRoundTrip(t *testing.T) {
	db := openTestDB(t)

	worksheet := &Worksheet{ID: "ws-3", Context: scienceContext(), CreatedAt: time.Now(), Status: WorksheetReady}
	require.NoError(t, db.CreateWorksheet(worksheet))

	report := &ValidationReport{
		Valid:        false,
		ProblemItems: []int{2},
		AllIssues: []FlaggedIssue{
			{ItemIndex: 2, JudgeName: AnswerJudgeName, Issue: Issue{Code: CodeWrongAnswer, Message: "wrong"}},
		},
		FinalItems:  sampleBatch(3),
		FixOutcomes: []FixOutcome{{ItemIndex: 2, Success: false, Error: "oracle down"}},
	}
	require.NoError(t, db.SaveReport(worksheet.ID, report))

	loaded, err := db.GetReport(worksheet.ID)
	require.NoError(t, err)
	assert.Equal(t, report.Valid, loaded.Valid)
	assert.Equal(t, report.ProblemItems, loaded.ProblemItems)
	assert.Equal(t, report.AllIssues, loaded.AllIssues)
	assert.Equal(t, report.FixOutcomes, loaded.FixOutcomes)

	_, err = db.GetReport("missing")
	assert.Error(t, err)
}

func TestGetWorksheetsLimit(t *testing.T) {
	db := openTestDB(t)

	for i, id := range []string{"a", "b", "c"} {
		w := &Worksheet{
			ID:        id,
			Context:   scienceContext(),
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
			Status:    WorksheetReady,
		}
		require.NoError(t, db.CreateWorksheet(w))
	}

	all, err := db.GetWorksheets(0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	limited, err := db.GetWorksheets(2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	// newest first
	assert.Equal(t, "c", limited[0].ID)
}
