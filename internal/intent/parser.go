// Package intent converts free-text commands into structured task requests.
// Parsing is a fixed, ordered rule table: rules are evaluated in declared
// priority order and the first match wins. The parser is deterministic and
// side-effect free; identical input always yields identical output.
package intent

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"github.com/ShayCichocki/hive/pkg/models"
)

// Rule is one entry of the parser's ordered table: a set of predicates over
// normalized input plus the action and entity it extracts.
type Rule struct {
	// Action is the intent action produced when a pattern matches.
	Action string
	// Patterns are tried in order; the first submatch (if any) becomes the entity.
	Patterns []*regexp.Regexp
	// Entity names the extracted capture group value (usually "target").
	Entity string
	// Confidence is the score reported for a match.
	Confidence float64
}

// Inference is an optional external fallback consulted only when no local
// rule matches above the parser's confidence threshold. Its result is
// advisory and flows through the same Intent schema.
type Inference interface {
	ParseIntent(ctx context.Context, text string) (*models.Intent, error)
}

// Parser matches free text against an ordered rule table.
type Parser struct {
	// threshold is the minimum confidence below which the fallback is consulted.
	threshold float64
	// fallback is the optional external inference. May be nil.
	fallback Inference

	// rules is swapped wholesale on reload; reads take the lock briefly.
	rules []Rule
	mu    sync.RWMutex
}

// NewParser creates a parser with the given ordered rules.
// threshold gates the fallback; fallback may be nil.
func NewParser(rules []Rule, threshold float64, fallback Inference) *Parser {
	return &Parser{
		rules:     rules,
		threshold: threshold,
		fallback:  fallback,
	}
}

// SetRules replaces the rule table. Used by hot reload.
func (p *Parser) SetRules(rules []Rule) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rules = rules
}

// Rules returns the current rule table.
func (p *Parser) Rules() []Rule {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.rules
}

// Parse resolves text into an Intent. Rules are evaluated in table order and
// the first matching pattern wins. When nothing matches above the threshold
// and a fallback is configured, the fallback's advisory result is used if it
// clears the threshold; otherwise the unknown intent is returned.
func (p *Parser) Parse(ctx context.Context, text string) *models.Intent {
	normalized := normalize(text)

	if intent := p.parseLocal(normalized); intent.Confidence >= p.threshold {
		return intent
	}

	if p.fallback != nil {
		if intent, err := p.fallback.ParseIntent(ctx, normalized); err == nil &&
			intent != nil && intent.Action != models.ActionUnknown && intent.Confidence >= p.threshold {
			intent.RawText = normalized
			return intent
		}
	}

	return unknownIntent(normalized)
}

// parseLocal runs the rule table only.
func (p *Parser) parseLocal(normalized string) *models.Intent {
	p.mu.RLock()
	rules := p.rules
	p.mu.RUnlock()

	for _, rule := range rules {
		for _, re := range rule.Patterns {
			m := re.FindStringSubmatch(normalized)
			if m == nil {
				continue
			}

			entities := map[string]string{}
			if len(m) > 1 && rule.Entity != "" {
				entities[rule.Entity] = strings.TrimSpace(m[1])
			}

			return &models.Intent{
				RawText:    normalized,
				Action:     rule.Action,
				Entities:   entities,
				Confidence: rule.Confidence,
			}
		}
	}

	return unknownIntent(normalized)
}

// normalize lower-cases and trims input before matching.
func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

func unknownIntent(normalized string) *models.Intent {
	return &models.Intent{
		RawText:    normalized,
		Action:     models.ActionUnknown,
		Entities:   map[string]string{},
		Confidence: 0,
	}
}
