// Package prompt classifies lesson prompts against the authoring rules.
// This is pure domain logic - no I/O, no side effects.
package prompt

import (
	"fmt"
	"strings"
)

// Steps of the guided lesson flow. Callers enforce the 1..6 range before
// validation; the validator only cares which step-specific rules apply.
const (
	StepWorkedExample = 2
	StepDiagnostic    = 4
	StepExploration   = 6

	// MinPromptLength is the minimum normalized prompt length in characters.
	MinPromptLength = 80
)

// audiencePhrase must appear in every prompt so generated lessons stay aimed
// at the right readers. Matching is case-insensitive containment against
// whitespace-collapsed text.
const audiencePhrase = "final high school and first-year university students"

// markupDenylist are structural LaTeX tokens the lesson renderer cannot
// display: multi-line equation and case environments, and tagged equations.
// Reported in this order.
var markupDenylist = []string{
	`\begin{align}`,
	`\begin{align*}`,
	`\begin{aligned}`,
	`\begin{cases}`,
	`\begin{eqnarray}`,
	`\tag{`,
}

// toneFlags are confidence-undermining phrases. They warn, never fail.
var toneFlags = []string{
	"obviously",
	"trivial",
	"it's easy",
	"you should already know",
	"everyone knows",
	"simply put",
}

// workedExamplePhrases indicate a solved example is present (step 2).
var workedExamplePhrases = []string{
	"worked example",
	"worked solution",
	"solved example",
	"example solution",
	"step-by-step solution",
}

// diagnosticPhrases name a check-your-understanding section (step 4).
var diagnosticPhrases = []string{
	"check your understanding",
	"self-check",
	"quick check",
	"diagnostic questions",
	"test yourself",
}

// assessmentWords are assessment-register words that clash with the
// exploratory tone of the final step (step 6).
var assessmentWords = []string{
	"quiz",
	"test",
	"graded",
	"exam",
	"score",
	"marking scheme",
}

// Verdict is the validation outcome. OK holds exactly when Errors is empty;
// warnings are advisory and never fail a prompt. Both lists preserve rule
// evaluation order, and within a rule, token declaration order.
type Verdict struct {
	OK       bool     `json:"ok"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Validate runs every rule against the prompt. All rules run; nothing
// short-circuits, so the client sees the complete list of problems at once.
func Validate(text string, step int) Verdict {
	normalized := normalize(text)
	lower := strings.ToLower(normalized)

	var errs, warnings []string

	// Rule 1: required audience phrase.
	if !strings.Contains(lower, audiencePhrase) {
		errs = append(errs, fmt.Sprintf("prompt must contain the audience phrase %q", audiencePhrase))
	}

	// Rule 2: minimum length.
	if len(normalized) < MinPromptLength {
		errs = append(errs, fmt.Sprintf("prompt is too short: %d characters, need at least %d", len(normalized), MinPromptLength))
	}

	// Rule 3: disallowed markup environments, every match reported.
	for _, token := range markupDenylist {
		if strings.Contains(lower, strings.ToLower(token)) {
			errs = append(errs, fmt.Sprintf("prompt contains disallowed markup %q", token))
		}
	}

	// Rule 4: tone flags, every match reported.
	for _, phrase := range toneFlags {
		if strings.Contains(lower, phrase) {
			warnings = append(warnings, fmt.Sprintf("tone: %q can undermine student confidence", phrase))
		}
	}

	// Rule 5: step 2 should include a worked example.
	if step == StepWorkedExample && !containsAny(lower, workedExamplePhrases) {
		warnings = append(warnings, "step 2 prompts usually include a worked example section")
	}

	// Rule 6: step 4 must name a diagnostic section.
	if step == StepDiagnostic && !containsAny(lower, diagnosticPhrases) {
		errs = append(errs, `step 4 prompts must include a "check your understanding" section`)
	}

	// Rule 7: step 6 should stay exploratory, not assessment-flavored.
	if step == StepExploration {
		for _, word := range assessmentWords {
			if strings.Contains(lower, word) {
				warnings = append(warnings, fmt.Sprintf("step 6 is exploratory; avoid assessment language like %q", word))
			}
		}
	}

	return Verdict{
		OK:       len(errs) == 0,
		Errors:   errs,
		Warnings: warnings,
	}
}

// Passing returns the empty, passing verdict callers synthesize when
// validation is bypassed (help mode).
func Passing() Verdict {
	return Verdict{OK: true}
}

// normalize collapses any run of whitespace to a single space and trims the
// ends, so phrase matching is insensitive to formatting.
func normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func containsAny(haystack string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(haystack, p) {
			return true
		}
	}
	return false
}
