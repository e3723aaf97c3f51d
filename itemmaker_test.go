package exercisegen

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemMakerDecodesBatch(t *testing.T) {
	batch := makerResponse{Items: []GeneratedItem{
		{Kind: KindSingleChoice, Prompt: "q1", Options: []string{"a", "b", "c", "d"}, CorrectIndex: 0},
		{Kind: KindSingleChoice, Prompt: "", Options: []string{"a", "b"}}, // malformed, dropped
		{Kind: KindFillInBlank, Prompt: "the ___ cycle", Blanks: []string{"water"}},
	}}
	encoded, err := json.Marshal(batch)
	require.NoError(t, err)

	oracle := &fakeOracle{respond: func(_ int, _ OracleRequest) (*OracleResponse, error) {
		return textResponse("Here you go:\n```json\n" + string(encoded) + "\n```")
	}}

	items, err := NewItemMaker(oracle).GenerateItems(context.Background(),
		GenerationRequest{Context: scienceContext(), NumItems: 3}, nil)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "q1", items[0].Prompt)
	assert.Equal(t, KindFillInBlank, items[1].Kind)
}

func TestItemMakerErrorsWithoutUsableItems(t *testing.T) {
	oracle := &fakeOracle{respond: func(_ int, _ OracleRequest) (*OracleResponse, error) {
		return textResponse(`{"items": []}`)
	}}

	_, err := NewItemMaker(oracle).GenerateItems(context.Background(),
		GenerationRequest{Context: scienceContext(), NumItems: 3}, nil)
	assert.Error(t, err)
}

func TestItemMakerErrorsOnOracleFailure(t *testing.T) {
	oracle := &fakeOracle{respond: func(_ int, _ OracleRequest) (*OracleResponse, error) {
		return nil, errors.New("no credentials")
	}}

	_, err := NewItemMaker(oracle).GenerateItems(context.Background(),
		GenerationRequest{Context: scienceContext(), NumItems: 3}, nil)
	assert.Error(t, err)
}
