package exercisegen

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const fixerMaxTokens = 1500

// Fixer asks the rewrite oracle to repair one flawed item. Repairs run one
// at a time; the caller owns the sequencing.
type Fixer struct {
	oracle Oracle
}

// NewFixer creates the remediation engine
func NewFixer(oracle Oracle) *Fixer {
	return &Fixer{oracle: oracle}
}

// fixResponse is the wire shape the rewrite oracle is asked to emit
type fixResponse struct {
	Item        *GeneratedItem `json:"item"`
	Description string         `json:"description"`
}

// Fix rewrites one item given only its single most critical issue. All
// faults resolve to a failed FixOutcome, never an error.
func (fx *Fixer) Fix(ctx context.Context, index int, item GeneratedItem, primary Issue, dctx DomainContext, logger *LLMLogger) FixOutcome {
	failed := func(reason string) FixOutcome {
		VerboseLog("fixer: item %d: %s", index, reason)
		logger.LogFixResult(index, false, reason)
		return FixOutcome{ItemIndex: index, Success: false, Error: reason}
	}

	prompt, err := fx.buildPrompt(item, primary, dctx)
	if err != nil {
		return failed(fmt.Sprintf("could not build fix prompt: %v", err))
	}
	logger.LogLLMRequest("fixer", prompt)

	resp, err := fx.oracle.Complete(ctx, OracleRequest{
		System:    "You repair flawed school exercise items. You rewrite exactly one item to resolve the reported issue and respond with a JSON object.",
		Prompt:    prompt,
		MaxTokens: fixerMaxTokens,
	})
	if err != nil {
		return failed(fmt.Sprintf("oracle call failed: %v", err))
	}

	logger.LogLLMResponse("fixer", resp.Content)
	logger.LogUsage("fixer", resp.Usage)

	block := ExtractJSONBlock(resp.Content)
	if block == "" {
		return failed("response contained no structured block")
	}

	var parsed fixResponse
	if !ParseOracleJSON(block, &parsed) {
		return failed("response block could not be decoded")
	}
	if parsed.Item == nil {
		return failed("response carried no replacement item")
	}
	if err := validateItem(*parsed.Item); err != nil {
		return failed(fmt.Sprintf("replacement item rejected: %v", err))
	}

	description := strings.TrimSpace(parsed.Description)
	if description == "" {
		description = fmt.Sprintf("rewritten to resolve %s", primary.Code)
	}

	logger.LogFixResult(index, true, description)
	return FixOutcome{
		ItemIndex:   index,
		Success:     true,
		FixedItem:   parsed.Item,
		Description: description,
	}
}

func (fx *Fixer) buildPrompt(item GeneratedItem, primary Issue, dctx DomainContext) (string, error) {
	itemJSON, err := json.MarshalIndent(item, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal item: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "This %s exercise item for grade %d (topic: %s, difficulty: %s) was flagged during review.\n\n",
		dctx.Subject, dctx.Grade, dctx.Topic, dctx.Difficulty)

	sb.WriteString("Item:\n")
	sb.Write(itemJSON)
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "Issue (%s): %s\n", primary.Code, primary.Message)
	if primary.Suggestion != "" {
		fmt.Fprintf(&sb, "Reviewer suggestion: %s\n", primary.Suggestion)
	}

	sb.WriteString("\nRewrite the item so the issue is resolved:\n")
	sb.WriteString("- Keep the same kind and the same JSON schema as the item above.\n")
	sb.WriteString("- Keep the pedagogical intent; change as little as possible.\n")
	sb.WriteString("- Make sure the marked correct answers are actually correct.\n")
	if guidance := promptForSubject(dctx.Subject).FixerGuidance; guidance != "" {
		sb.WriteString("- " + guidance + "\n")
	}
	sb.WriteString("\nRespond with exactly one JSON object of the form:\n")
	sb.WriteString(`{"item": { ...rewritten item... }, "description": "what was changed and why"}` + "\n")

	return sb.String(), nil
}
