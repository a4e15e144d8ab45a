/*
Package factory provides YAML to Go rule conversion.

PURPOSE:
  Converts a YAML rule file into an immutable billing.RuleBook and a
  compiled classify.Classifier. SOW caps differ per client contract; the
  file lets operations add a project or change a cap without a release.

YAML SCHEMA:
  projects:
    - name: lyell
      aliases: [lyell]
      caps:
        etl: 4
        reporting: 4
    - name: dataplatr
      aliases: [dataplatr, datapltr, data platr]
  classifier:            # optional, defaults to classify.DefaultTable
    rules:
      - category: etl
        patterns: ['\[etl\]', 'etl']
    hints:
      - category: etl
        tokens: [etl]

USAGE:
  rules, err := factory.Load("rules.yaml")
  rb, err := rules.RuleBook()
  cls, err := rules.Classifier()

SEE ALSO:
  - billing/rules.go: RuleBook
  - classify/classifier.go: Table
*/
package factory

import (
	"fmt"
	"os"

	"github.com/warp/report-engine/billing"
	"github.com/warp/report-engine/classify"
	"github.com/warp/report-engine/generic"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// YAML SCHEMA TYPES
// =============================================================================

// RulesYAML is the YAML representation of the rule file.
type RulesYAML struct {
	Projects []ProjectYAML   `yaml:"projects"`
	Keywords *ClassifierYAML `yaml:"classifier,omitempty"`
}

// ProjectYAML represents one project's caps.
type ProjectYAML struct {
	Name    string             `yaml:"name"`
	Aliases []string           `yaml:"aliases,omitempty"`
	Caps    map[string]float64 `yaml:"caps,omitempty"` // category -> hours/day
}

// ClassifierYAML represents the keyword table.
type ClassifierYAML struct {
	Rules []RuleYAML `yaml:"rules"`
	Hints []HintYAML `yaml:"hints,omitempty"`
}

// RuleYAML lists the patterns selecting one category.
type RuleYAML struct {
	Category string   `yaml:"category"`
	Patterns []string `yaml:"patterns,omitempty"`
}

// HintYAML lists the tokens mapping to one category, matched inside bracket
// tags and as word prefixes.
type HintYAML struct {
	Category string   `yaml:"category"`
	Tokens   []string `yaml:"tokens"`
}

// StandardRulesYAML is the standard rule file, equivalent to
// billing.DefaultRuleBook with the default keyword table.
const StandardRulesYAML = `projects:
  - name: lyell
    aliases: [lyell]
    caps:
      etl: 4
      reporting: 4
  - name: dataplatr
    aliases: [dataplatr, datapltr, data platr]
`

// =============================================================================
// LOADING
// =============================================================================

// Load reads and validates a rule file.
func Load(path string) (*RulesYAML, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rules: read file %s: %w", path, err)
	}
	return Parse(b)
}

// Parse decodes and validates rule YAML.
func Parse(data []byte) (*RulesYAML, error) {
	var ry RulesYAML
	if err := yaml.Unmarshal(data, &ry); err != nil {
		return nil, fmt.Errorf("rules: parse yaml: %w", err)
	}
	if err := ry.validate(); err != nil {
		return nil, err
	}
	return &ry, nil
}

func (r *RulesYAML) validate() error {
	if len(r.Projects) == 0 {
		return fmt.Errorf("rules: at least one project must be set")
	}
	for i, p := range r.Projects {
		if p.Name == "" {
			return fmt.Errorf("rules: projects[%d].name must be set", i)
		}
		for cat, hours := range p.Caps {
			if _, err := generic.ParseCategory(cat); err != nil {
				return fmt.Errorf("rules: projects[%d].caps: %w", i, err)
			}
			if hours < 0 {
				return fmt.Errorf("rules: projects[%d].caps.%s must not be negative", i, cat)
			}
		}
	}
	if r.Keywords != nil {
		if len(r.Keywords.Rules) == 0 {
			return fmt.Errorf("rules: classifier.rules must be set when classifier is present")
		}
		for i, rule := range r.Keywords.Rules {
			if _, err := generic.ParseCategory(rule.Category); err != nil {
				return fmt.Errorf("rules: classifier.rules[%d]: %w", i, err)
			}
		}
		for i, h := range r.Keywords.Hints {
			if _, err := generic.ParseCategory(h.Category); err != nil {
				return fmt.Errorf("rules: classifier.hints[%d]: %w", i, err)
			}
		}
	}
	return nil
}

// =============================================================================
// CONVERSION
// =============================================================================

// RuleBook converts the project section into a billing.RuleBook.
func (r *RulesYAML) RuleBook() (*billing.RuleBook, error) {
	projects := make([]billing.ProjectRules, 0, len(r.Projects))
	for _, p := range r.Projects {
		pr := billing.ProjectRules{
			Name:    p.Name,
			Aliases: p.Aliases,
			Caps:    make(map[generic.Category]generic.Hours, len(p.Caps)),
		}
		for cat, hours := range p.Caps {
			c, _ := generic.ParseCategory(cat)
			pr.Caps[c] = generic.NewHours(hours)
		}
		projects = append(projects, pr)
	}
	return billing.NewRuleBook(projects...)
}

// Table converts the classifier section into a classify.Table. Without
// a classifier section the default table is returned.
func (r *RulesYAML) Table() classify.Table {
	if r.Keywords == nil {
		return classify.DefaultTable()
	}
	var t classify.Table
	for _, rule := range r.Keywords.Rules {
		c, _ := generic.ParseCategory(rule.Category)
		t.Rules = append(t.Rules, classify.Rule{Category: c, Patterns: rule.Patterns})
	}
	for _, h := range r.Keywords.Hints {
		c, _ := generic.ParseCategory(h.Category)
		t.Hints = append(t.Hints, classify.Hint{Category: c, Tokens: h.Tokens})
	}
	return t
}

// Classifier compiles the classifier section.
func (r *RulesYAML) Classifier() (*classify.Classifier, error) {
	c, err := classify.NewClassifier(r.Table())
	if err != nil {
		return nil, fmt.Errorf("rules: classifier: %w", err)
	}
	return c, nil
}
