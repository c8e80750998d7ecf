package intent

import (
	"regexp"

	"github.com/ShayCichocki/hive/pkg/models"
)

// Intent actions produced by the built-in rule table, beyond the shared
// models.ActionStatus/ActionHelp/ActionUnknown.
const (
	ActionCreateTask    = "create_task"
	ActionAnalyzeCode   = "analyze_code"
	ActionRunTests      = "run_tests"
	ActionGenerateTests = "generate_tests"
	ActionImproveCode   = "improve_code"
)

// defaultConfidence is the score assigned to any rule-table match.
const defaultConfidence = 0.9

// DefaultRules returns the built-in rule table.
//
// Order is the priority order and is load-bearing: more specific command
// shapes must precede the catch-alls that would also match them. In
// particular "generate tests" precedes "run tests" (both mention tests),
// and the bare "task: ..." form is the last create_task pattern so the
// wordier forms capture a cleaner target first.
func DefaultRules() []Rule {
	return []Rule{
		{
			Action: ActionGenerateTests,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`^generate tests?(?: for)? (.+)$`),
				regexp.MustCompile(`^write tests?(?: for)? (.+)$`),
			},
			Entity:     "target",
			Confidence: defaultConfidence,
		},
		{
			Action: ActionRunTests,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`^run (?:the )?tests?(?: for| on)? (.+)$`),
				regexp.MustCompile(`^execute tests?(?: for| on)? (.+)$`),
				regexp.MustCompile(`^test (.+)$`),
			},
			Entity:     "target",
			Confidence: defaultConfidence,
		},
		{
			Action: ActionAnalyzeCode,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`^analyze (?:the )?code (?:in |at )?(.+)$`),
				regexp.MustCompile(`^review (?:the )?code (?:in |at )?(.+)$`),
				regexp.MustCompile(`^check (?:the )?code (?:in |at )?(.+)$`),
				regexp.MustCompile(`^analyze (.+)$`),
			},
			Entity:     "target",
			Confidence: defaultConfidence,
		},
		{
			Action: ActionImproveCode,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`^improve (?:the )?code (?:in |at )?(.+)$`),
				regexp.MustCompile(`^optimize (.+)$`),
				regexp.MustCompile(`^refactor (.+)$`),
				regexp.MustCompile(`^fix (.+)$`),
			},
			Entity:     "target",
			Confidence: defaultConfidence,
		},
		{
			Action: ActionCreateTask,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`^create (?:a )?task (?:to |for )?(.+)$`),
				regexp.MustCompile(`^add (?:a )?task (?:to |for )?(.+)$`),
				regexp.MustCompile(`^new task[:\s]+(.+)$`),
				regexp.MustCompile(`^task[:\s]+(.+)$`),
			},
			Entity:     "target",
			Confidence: defaultConfidence,
		},
		{
			Action: models.ActionStatus,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`^status$`),
				regexp.MustCompile(`^what(?:'s| is) (?:the )?status`),
				regexp.MustCompile(`^show (?:me )?(?:the )?progress`),
				regexp.MustCompile(`^how(?:'s| is) it going`),
			},
			Confidence: defaultConfidence,
		},
		{
			Action: models.ActionHelp,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`^help$`),
				regexp.MustCompile(`^what can you do`),
				regexp.MustCompile(`^commands$`),
				regexp.MustCompile(`^capabilities$`),
			},
			Confidence: defaultConfidence,
		},
	}
}

// TaskCategory maps a resolved intent to the capability category a task for
// it should carry. The second return is false for intents that are handled
// locally (status, help) or not actionable (unknown).
func TaskCategory(intent *models.Intent) (string, bool) {
	switch intent.Action {
	case ActionAnalyzeCode:
		return "analyze", true
	case ActionRunTests, ActionGenerateTests:
		return "test", true
	case ActionImproveCode:
		return "optimize", true
	case ActionCreateTask:
		return categoryFromDescription(intent.Entity("target", "")), true
	default:
		return "", false
	}
}

// categoryFromDescription routes a free-form task description by keyword,
// defaulting to the general category.
func categoryFromDescription(desc string) string {
	switch {
	case containsWord(desc, "test"):
		return "test"
	case containsWord(desc, "analyze"), containsWord(desc, "analysis"):
		return "analyze"
	case containsWord(desc, "optimize"), containsWord(desc, "improve"):
		return "optimize"
	default:
		return "general"
	}
}

var wordRe = regexp.MustCompile(`[a-z]+`)

func containsWord(s, word string) bool {
	for _, w := range wordRe.FindAllString(s, -1) {
		if w == word {
			return true
		}
	}
	return false
}
