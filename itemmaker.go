package exercisegen

import (
	"context"
	"fmt"
	"strings"
)

const makerMaxTokens = 6000

// ItemMaker generates a fresh batch of mixed-kind exercise items. It is a
// collaborator of the validation pipeline, not part of it: the pipeline
// validates whatever batch it is handed.
type ItemMaker struct {
	oracle Oracle
}

// NewItemMaker creates an item maker
func NewItemMaker(oracle Oracle) *ItemMaker {
	return &ItemMaker{oracle: oracle}
}

type makerResponse struct {
	Items []GeneratedItem `json:"items"`
}

// GenerateItems produces one batch for the given context. Unlike the
// judges, generation has no degraded mode: without a batch there is nothing
// to validate, so faults surface as errors.
func (im *ItemMaker) GenerateItems(ctx context.Context, req GenerationRequest, logger *LLMLogger) ([]GeneratedItem, error) {
	VerboseLog("maker: generating %d items (%s, grade %d, topic %q)",
		req.NumItems, req.Context.Subject, req.Context.Grade, req.Context.Topic)

	prompt := im.buildPrompt(req)
	logger.LogLLMRequest("maker", prompt)

	resp, err := im.oracle.Complete(ctx, OracleRequest{
		System:    "You are an expert author of school exercise material. You produce precise, curriculum-appropriate exercise items and respond with a JSON object.",
		Prompt:    prompt,
		MaxTokens: makerMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate items: %w", err)
	}

	logger.LogLLMResponse("maker", resp.Content)
	logger.LogUsage("maker", resp.Usage)

	block := ExtractJSONBlock(resp.Content)
	if block == "" {
		return nil, fmt.Errorf("generation response contained no structured block")
	}

	var parsed makerResponse
	if !ParseOracleJSON(block, &parsed) {
		return nil, fmt.Errorf("generation response could not be decoded")
	}

	items := make([]GeneratedItem, 0, len(parsed.Items))
	for i, item := range parsed.Items {
		if err := validateItem(item); err != nil {
			VerboseLog("maker: dropping malformed generated item %d: %v", i, err)
			continue
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("generation produced no usable items")
	}

	VerboseLog("maker: generated %d usable items", len(items))
	return items, nil
}

func (im *ItemMaker) buildPrompt(req GenerationRequest) string {
	dctx := req.Context
	var sb strings.Builder

	fmt.Fprintf(&sb, "Generate %d exercise items for a %s worksheet, grade %d.\n", req.NumItems, dctx.Subject, dctx.Grade)
	fmt.Fprintf(&sb, "Topic: %s\n", dctx.Topic)
	fmt.Fprintf(&sb, "Difficulty: %s\n", dctx.Difficulty)
	fmt.Fprintf(&sb, "Curriculum topics for this grade: %s\n\n", curriculumSummary(dctx.Subject, dctx.Grade))

	sb.WriteString("Mix the item kinds: single_choice, multiple_choice, open_question, matching, fill_in_blank.\n\n")
	sb.WriteString("Requirements:\n")
	sb.WriteString("- Choice items need 4 options; correct_index (single) or correct_indices (multiple) are 0-based.\n")
	sb.WriteString("- Matching items need pairs of left/right entries that belong together.\n")
	sb.WriteString("- Fill-in-blank prompts mark each gap with ___ and list the answers in order under blanks.\n")
	sb.WriteString("- Open questions carry a sample_answer a teacher can grade against.\n")
	sb.WriteString("- Every stated answer must be verifiably correct.\n")
	sb.WriteString("- Avoid items whose prompt gives the answer away.\n\n")

	sb.WriteString("Respond with exactly one JSON object of the form:\n")
	sb.WriteString(`{"items": [{"kind": "single_choice", "prompt": "...", "options": ["..."], "correct_index": 0}, ...]}` + "\n")

	return sb.String()
}
