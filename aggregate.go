package exercisegen

import "sort"

// sortedItemVerdicts returns a judge's verdicts in ascending item order.
// Oracles list findings in whatever order they like; the stable sort keeps
// same-item verdicts in emission order so multi-issue items stay intact.
func sortedItemVerdicts(jr JudgeResult) []ItemVerdict {
	verdicts := append([]ItemVerdict(nil), jr.Verdicts...)
	sort.SliceStable(verdicts, func(i, j int) bool {
		return verdicts[i].ItemIndex < verdicts[j].ItemIndex
	})
	return verdicts
}

// Aggregate merges all judge results into the global problem set and the
// flattened issue list. Iteration follows judge-submission order then
// ascending item index within each judge, so the output is deterministic
// for identical judge output regardless of how the oracle ordered its
// findings. An item enters problemItems only on an error verdict; warnings
// alone never fail a batch. Judge-level notices (index -1) are excluded
// from both outputs.
func Aggregate(judgeResults []JudgeResult) (problemItems []int, allIssues []FlaggedIssue) {
	problemItems = []int{}
	allIssues = []FlaggedIssue{}

	seen := make(map[int]bool)
	for _, jr := range judgeResults {
		for _, verdict := range sortedItemVerdicts(jr) {
			if verdict.ItemIndex < 0 {
				continue
			}
			for _, issue := range verdict.Issues {
				allIssues = append(allIssues, FlaggedIssue{
					ItemIndex: verdict.ItemIndex,
					JudgeName: jr.JudgeName,
					Issue:     issue,
				})
			}
			if verdict.Status == StatusError && !seen[verdict.ItemIndex] {
				seen[verdict.ItemIndex] = true
				problemItems = append(problemItems, verdict.ItemIndex)
			}
		}
	}

	sort.Ints(problemItems)
	return problemItems, allIssues
}
