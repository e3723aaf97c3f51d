package exercisegen

import "sort"

// DefaultFixBudget caps how many items one pipeline run may repair
const DefaultFixBudget = 3

// FixPolicy is the domain policy applied when selecting items for
// automatic repair
type FixPolicy struct {
	// Budget is the maximum number of repair attempts per run
	Budget int
	// ExcludedSubjects lists content domains where the fixer oracle is
	// not trusted; their batches are never auto-repaired
	ExcludedSubjects map[Subject]bool
	// RemediableWarnings lists warning codes that qualify an item for
	// repair even without an error verdict
	RemediableWarnings map[IssueCode]bool
}

// DefaultFixPolicy returns the stock policy: budget of three, math excluded
// from auto-repair, difficulty mismatches remediable.
func DefaultFixPolicy() FixPolicy {
	return FixPolicy{
		Budget: DefaultFixBudget,
		ExcludedSubjects: map[Subject]bool{
			SubjectMath: true,
		},
		RemediableWarnings: map[IssueCode]bool{
			CodeDifficultyMismatch: true,
		},
	}
}

// FixCandidate is one item selected for repair together with its issues in
// judge-submission order; the first issue is the one handed to the fixer.
type FixCandidate struct {
	ItemIndex int
	Issues    []Issue
}

// fixWorklist is an explicit bounded arena of repair candidates so the
// budget and its ordering stay independently testable
type fixWorklist struct {
	limit   int
	entries []FixCandidate
}

func newFixWorklist(limit int) *fixWorklist {
	if limit < 0 {
		limit = 0
	}
	return &fixWorklist{limit: limit, entries: make([]FixCandidate, 0, limit)}
}

// add appends a candidate unless the worklist is full; returns false once
// the budget is exhausted
func (wl *fixWorklist) add(c FixCandidate) bool {
	if len(wl.entries) >= wl.limit {
		return false
	}
	wl.entries = append(wl.entries, c)
	return true
}

// SelectForRemediation picks the bounded, priority-ordered subset of items
// eligible for automatic repair. Items with an error verdict come first in
// ascending index order, then items carrying only remediable warnings.
// Returns an empty list when the subject is excluded by policy; in that
// case the caller only logs the issues.
func SelectForRemediation(judgeResults []JudgeResult, subject Subject, policy FixPolicy) []FixCandidate {
	if policy.ExcludedSubjects[subject] {
		VerboseLog("selector: subject %s excluded from auto-repair by policy", subject)
		return []FixCandidate{}
	}

	issuesByItem := make(map[int][]Issue)
	hasError := make(map[int]bool)
	remediable := make(map[int]bool)

	for _, jr := range judgeResults {
		for _, verdict := range sortedItemVerdicts(jr) {
			if verdict.ItemIndex < 0 {
				continue
			}
			issuesByItem[verdict.ItemIndex] = append(issuesByItem[verdict.ItemIndex], verdict.Issues...)
			switch verdict.Status {
			case StatusError:
				hasError[verdict.ItemIndex] = true
			case StatusWarning:
				for _, issue := range verdict.Issues {
					if policy.RemediableWarnings[issue.Code] {
						remediable[verdict.ItemIndex] = true
					}
				}
			}
		}
	}

	errorItems := make([]int, 0, len(hasError))
	for index := range hasError {
		errorItems = append(errorItems, index)
	}
	sort.Ints(errorItems)

	warningItems := make([]int, 0, len(remediable))
	for index := range remediable {
		if !hasError[index] {
			warningItems = append(warningItems, index)
		}
	}
	sort.Ints(warningItems)

	wl := newFixWorklist(policy.Budget)
	for _, index := range errorItems {
		if !wl.add(FixCandidate{ItemIndex: index, Issues: issuesByItem[index]}) {
			break
		}
	}
	for _, index := range warningItems {
		if !wl.add(FixCandidate{ItemIndex: index, Issues: issuesByItem[index]}) {
			break
		}
	}

	VerboseLog("selector: %d error item(s), %d remediable warning item(s), selected %d (budget %d)",
		len(errorItems), len(warningItems), len(wl.entries), policy.Budget)
	return wl.entries
}
