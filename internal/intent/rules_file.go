package intent

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// ruleFile is the YAML schema for an external rule table. The list order in
// the file is the evaluation priority, same as the built-in table.
type ruleFile struct {
	Rules []ruleEntry `yaml:"rules"`
}

type ruleEntry struct {
	Action     string   `yaml:"action"`
	Patterns   []string `yaml:"patterns"`
	Entity     string   `yaml:"entity"`
	Confidence float64  `yaml:"confidence"`
}

// LoadRulesFile parses an ordered rule table from a YAML file. This lets
// deployments add commands without modifying the coordinator.
func LoadRulesFile(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	var rf ruleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	if len(rf.Rules) == 0 {
		return nil, fmt.Errorf("rules file %s defines no rules", path)
	}

	rules := make([]Rule, 0, len(rf.Rules))
	for i, entry := range rf.Rules {
		if entry.Action == "" {
			return nil, fmt.Errorf("rules file %s: rule %d has no action", path, i)
		}
		if len(entry.Patterns) == 0 {
			return nil, fmt.Errorf("rules file %s: rule %q has no patterns", path, entry.Action)
		}

		rule := Rule{
			Action:     entry.Action,
			Entity:     entry.Entity,
			Confidence: entry.Confidence,
		}
		if rule.Confidence == 0 {
			rule.Confidence = defaultConfidence
		}

		for _, pat := range entry.Patterns {
			re, err := regexp.Compile(pat)
			if err != nil {
				return nil, fmt.Errorf("rules file %s: rule %q pattern %q: %w", path, entry.Action, pat, err)
			}
			rule.Patterns = append(rule.Patterns, re)
		}

		rules = append(rules, rule)
	}

	return rules, nil
}
