package exercisegen

import "strings"

// TopicsNotFound is substituted into judge prompts when no curriculum entry
// matches the subject and grade; a missing entry never fails the pipeline.
const TopicsNotFound = "not found"

type curriculumKey struct {
	Subject Subject
	Grade   int
}

// curriculumTable maps (subject, grade) to the topic list judges phrase
// their relevance checks against
var curriculumTable = map[curriculumKey][]string{
	{SubjectMath, 5}:      {"fractions", "decimals", "basic geometry", "units of measurement"},
	{SubjectMath, 6}:      {"percentages", "negative numbers", "area and volume", "ratios"},
	{SubjectMath, 7}:      {"linear equations", "proportionality", "angles", "probability basics"},
	{SubjectMath, 8}:      {"systems of equations", "powers and roots", "Pythagorean theorem", "functions"},
	{SubjectLanguage, 5}:  {"parts of speech", "sentence structure", "spelling rules", "reading comprehension"},
	{SubjectLanguage, 6}:  {"tenses", "direct and indirect speech", "text summaries", "argumentation"},
	{SubjectLanguage, 7}:  {"clauses", "active and passive voice", "poetry analysis", "formal letters"},
	{SubjectScience, 5}:   {"states of matter", "the water cycle", "plants and photosynthesis", "simple circuits"},
	{SubjectScience, 6}:   {"cells", "forces and motion", "mixtures and solutions", "ecosystems"},
	{SubjectScience, 7}:   {"chemical reactions", "energy transfer", "the human body", "light and sound"},
	{SubjectHistory, 6}:   {"ancient Egypt", "ancient Greece", "the Roman Empire", "early settlements"},
	{SubjectHistory, 7}:   {"the Middle Ages", "knights and castles", "medieval towns", "the Crusades"},
	{SubjectHistory, 8}:   {"the Renaissance", "the Reformation", "age of exploration", "absolutism"},
	{SubjectGeography, 5}: {"continents and oceans", "maps and scale", "weather and climate", "rivers"},
	{SubjectGeography, 6}: {"Europe", "population", "agriculture", "natural hazards"},
	{SubjectGeography, 7}: {"climate zones", "plate tectonics", "urbanization", "resources"},
}

// CurriculumTopics returns the topic list for a subject and grade, or nil
// when no entry exists
func CurriculumTopics(subject Subject, grade int) []string {
	return curriculumTable[curriculumKey{Subject: subject, Grade: grade}]
}

// curriculumSummary renders the topic list for embedding into a judge
// prompt, falling back to the TopicsNotFound placeholder
func curriculumSummary(subject Subject, grade int) string {
	topics := CurriculumTopics(subject, grade)
	if len(topics) == 0 {
		return TopicsNotFound
	}
	return strings.Join(topics, ", ")
}

// subjectPrompt holds the subject-specific instruction fragments injected
// into judge and fixer prompts. Keyed by the Subject enum rather than
// assembled ad hoc per call.
type subjectPrompt struct {
	AnswerGuidance  string
	QualityGuidance string
	FixerGuidance   string
}

var subjectPrompts = map[Subject]subjectPrompt{
	SubjectMath: {
		AnswerGuidance:  "Recompute every calculation from scratch. An answer is only correct if the arithmetic checks out exactly, including units.",
		QualityGuidance: "Watch for problems that are unsolvable with the given numbers and for ambiguous quantities.",
		FixerGuidance:   "Recalculate the result after rewriting and make sure the stated answer matches it.",
	},
	SubjectLanguage: {
		AnswerGuidance:  "Check grammar and spelling claims against standard usage, not regional variants.",
		QualityGuidance: "Watch for prompts whose own wording contains the grammatical error being asked about.",
		FixerGuidance:   "Keep the linguistic phenomenon being tested, change only the flawed part.",
	},
	SubjectScience: {
		AnswerGuidance:  "Verify claims against established science at school level; flag oversimplifications only when they make the stated answer wrong.",
		QualityGuidance: "Watch for outdated facts and for options that are partially true.",
		FixerGuidance:   "Keep the concept under test and stay within grade-level science.",
	},
	SubjectHistory: {
		AnswerGuidance:  "Verify dates, names and causal claims; a roughly-right century is not a correct answer.",
		QualityGuidance: "Watch for anachronisms and contested interpretations presented as fact.",
		FixerGuidance:   "Do not alter dates or names unless they are the flagged error.",
	},
	SubjectGeography: {
		AnswerGuidance:  "Verify place names, capitals and physical facts against current geography.",
		QualityGuidance: "Watch for outdated country names and border-dependent answers.",
		FixerGuidance:   "Use current political geography when rewriting.",
	},
}

// promptForSubject never fails; unknown subjects get empty guidance
func promptForSubject(subject Subject) subjectPrompt {
	return subjectPrompts[subject]
}
