package exercisegen

import (
	"context"
	"log"

	"golang.org/x/sync/errgroup"
)

// Pipeline composes the judges, the remediation selector, the fixer and the
// re-verification gate into the end-to-end validation flow:
// JUDGING (parallel) -> AGGREGATING -> SELECTING -> REPAIRING (sequential,
// budget-capped) -> REVERIFYING (single batched call) -> DONE.
type Pipeline struct {
	judges []Judge
	gate   *AnswerJudge
	fixer  *Fixer
	policy FixPolicy
}

// NewPipeline wires the standard judge set against one oracle
func NewPipeline(oracle Oracle) *Pipeline {
	return &Pipeline{
		judges: []Judge{
			NewAnswerJudge(oracle),
			NewQualityJudge(oracle),
		},
		gate:   NewAnswerJudge(oracle),
		fixer:  NewFixer(oracle),
		policy: DefaultFixPolicy(),
	}
}

// WithPolicy overrides the default remediation policy
func (p *Pipeline) WithPolicy(policy FixPolicy) *Pipeline {
	p.policy = policy
	return p
}

// WithJudges overrides the judge set
func (p *Pipeline) WithJudges(judges ...Judge) *Pipeline {
	p.judges = judges
	return p
}

func cloneBatch(items []GeneratedItem) []GeneratedItem {
	out := make([]GeneratedItem, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}

// Validate runs the whole pipeline over one batch. It always returns a
// complete report and never an error: every judge or fixer fault degrades
// into the report. Valid reflects pre-remediation judge output only.
func (p *Pipeline) Validate(ctx context.Context, items []GeneratedItem, dctx DomainContext, opts ValidateOptions, logger *LLMLogger) *ValidationReport {
	VerboseLog("pipeline: validating %d items (%s, grade %d, autofix=%v)",
		len(items), dctx.Subject, dctx.Grade, opts.AutoFix)

	// JUDGING: all judges fan out concurrently; each converts its own
	// faults into a degraded result, so the fan-in cannot hang on one
	// slow or broken judge beyond its call timeout.
	results := make([]JudgeResult, len(p.judges))
	g, gctx := errgroup.WithContext(ctx)
	for i, judge := range p.judges {
		i, judge := i, judge
		g.Go(func() error {
			results[i] = judge.Run(gctx, items, dctx, logger)
			return nil
		})
	}
	// judges never return errors; every fault degrades into their result
	_ = g.Wait()

	// AGGREGATING
	problemItems, allIssues := Aggregate(results)

	report := &ValidationReport{
		Valid:        len(problemItems) == 0,
		JudgeResults: results,
		ProblemItems: problemItems,
		AllIssues:    allIssues,
		FinalItems:   cloneBatch(items),
		FixOutcomes:  []FixOutcome{},
	}

	if !opts.AutoFix {
		VerboseLog("pipeline: done, valid=%v, %d problem item(s), autofix off", report.Valid, len(problemItems))
		return report
	}

	// SELECTING
	candidates := SelectForRemediation(results, dctx.Subject, p.policy)
	if len(candidates) == 0 && p.policy.ExcludedSubjects[dctx.Subject] {
		// a deliberate skip, not a failure; the issues stay in the report
		for _, flagged := range allIssues {
			log.Printf("pipeline: auto-repair disabled for subject %s; item %d keeps issue %s: %s",
				dctx.Subject, flagged.ItemIndex, flagged.Issue.Code, flagged.Issue.Message)
		}
		return report
	}

	// REPAIRING: strictly sequential to cap concurrent load on the fixer
	// oracle and keep per-item ordering observable
	for _, cand := range candidates {
		if ctx.Err() != nil {
			VerboseLog("pipeline: cancelled, skipping remaining repairs")
			break
		}
		if len(cand.Issues) == 0 {
			continue
		}
		outcome := p.fixer.Fix(ctx, cand.ItemIndex, report.FinalItems[cand.ItemIndex], cand.Issues[0], dctx, logger)
		report.FixOutcomes = append(report.FixOutcomes, outcome)
	}

	// REVERIFYING
	p.reverifyAndCommit(ctx, report, dctx, logger)

	VerboseLog("pipeline: done, valid=%v, %d problem item(s), %d repair attempt(s)",
		report.Valid, len(problemItems), len(report.FixOutcomes))
	return report
}

// reverifyAndCommit re-checks every successful repair in one batched answer
// judge call. Replacements that still fail are reverted: the pre-repair item
// stays in FinalItems and the outcome is flipped to failure. Everything else
// is committed. One call regardless of how many items were repaired.
func (p *Pipeline) reverifyAndCommit(ctx context.Context, report *ValidationReport, dctx DomainContext, logger *LLMLogger) {
	proposed := make([]int, 0, len(report.FixOutcomes))
	for i, outcome := range report.FixOutcomes {
		if outcome.Success && outcome.FixedItem != nil {
			proposed = append(proposed, i)
		}
	}
	if len(proposed) == 0 {
		return
	}

	revert := func(outcome *FixOutcome, reason string) {
		outcome.Success = false
		outcome.FixedItem = nil
		outcome.Description = ""
		outcome.Error = reason
		logger.LogFixResult(outcome.ItemIndex, false, reason)
	}

	if ctx.Err() != nil {
		// a result arriving after cancellation must never reach FinalItems
		for _, i := range proposed {
			revert(&report.FixOutcomes[i], "repair discarded: validation cancelled before re-verification")
		}
		return
	}

	batch := make([]GeneratedItem, len(proposed))
	for sub, i := range proposed {
		batch[sub] = *report.FixOutcomes[i].FixedItem
	}

	VerboseLog("pipeline: re-verifying %d repaired item(s) in one batched call", len(batch))
	gateResult := p.gate.Run(ctx, batch, dctx, logger)

	failedSub := make(map[int]bool)
	for _, verdict := range gateResult.Verdicts {
		if verdict.ItemIndex >= 0 && verdict.Status == StatusError {
			failedSub[verdict.ItemIndex] = true
		}
	}

	if ctx.Err() != nil {
		for _, i := range proposed {
			revert(&report.FixOutcomes[i], "repair discarded: validation cancelled during re-verification")
		}
		return
	}

	for sub, i := range proposed {
		outcome := &report.FixOutcomes[i]
		if failedSub[sub] {
			revert(outcome, "repair reverted: replacement failed re-verification")
			continue
		}
		report.FinalItems[outcome.ItemIndex] = *outcome.FixedItem
	}
}
