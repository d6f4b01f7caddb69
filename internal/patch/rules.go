package patch

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

// Matcher selects records. Exactly one field is set.
type Matcher struct {
	CollectionID string `yaml:"collectionId"`
	NameContains string `yaml:"nameContains"`
}

// Template builds base + <number+offset> + ext from the record name.
type Template struct {
	Base   string `yaml:"base" validate:"required,url"`
	Ext    string `yaml:"ext"`
	Offset int    `yaml:"offset"`
}

// Action produces an image URL. Exactly one field is set.
type Action struct {
	URL      string    `yaml:"url" validate:"omitempty,url"`
	Template *Template `yaml:"template"`
}

// Rule pairs a matcher with an action.
type Rule struct {
	Name   string  `yaml:"name" validate:"required"`
	Match  Matcher `yaml:"match"`
	Action Action  `yaml:"action"`
}

// RuleSet is the full rule table in evaluation order.
type RuleSet struct {
	Repair      []Rule `yaml:"repair" validate:"dive"`
	Collections []Rule `yaml:"collections" validate:"dive"`
	Overrides   []Rule `yaml:"overrides" validate:"dive"`
}

var validate = validator.New()

// DefaultRules returns the embedded rule table.
func DefaultRules() (RuleSet, error) {
	return ParseRules(defaultRulesYAML)
}

// LoadRules reads a rule table from path, or the embedded table when path
// is empty.
func LoadRules(path string) (RuleSet, error) {
	if path == "" {
		return DefaultRules()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return RuleSet{}, fmt.Errorf("read rules: %w", err)
	}
	return ParseRules(data)
}

// ParseRules decodes and validates a YAML rule table.
func ParseRules(data []byte) (RuleSet, error) {
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return RuleSet{}, fmt.Errorf("parse rules: %w", err)
	}
	if err := rs.Validate(); err != nil {
		return RuleSet{}, err
	}
	return rs, nil
}

// Validate checks rule shapes and that each stage uses the matcher kind it
// is evaluated with.
func (rs RuleSet) Validate() error {
	if err := validate.Struct(rs); err != nil {
		return fmt.Errorf("invalid rules: %w", err)
	}
	for _, stage := range [][]Rule{rs.Repair, rs.Collections, rs.Overrides} {
		for _, r := range stage {
			if (r.Match.CollectionID == "") == (r.Match.NameContains == "") {
				return fmt.Errorf("rule %q: exactly one matcher required", r.Name)
			}
			if (r.Action.URL == "") == (r.Action.Template == nil) {
				return fmt.Errorf("rule %q: exactly one action required", r.Name)
			}
		}
	}
	for _, r := range rs.Repair {
		if r.Match.NameContains == "" {
			return fmt.Errorf("repair rule %q: nameContains required", r.Name)
		}
	}
	for _, r := range rs.Overrides {
		if r.Match.NameContains == "" {
			return fmt.Errorf("override rule %q: nameContains required", r.Name)
		}
	}
	seen := make(map[string]bool)
	for _, r := range rs.Collections {
		if r.Match.CollectionID == "" {
			return fmt.Errorf("collection rule %q: collectionId required", r.Name)
		}
		if seen[r.Match.CollectionID] {
			return fmt.Errorf("collection rule %q: duplicate collection %s", r.Name, r.Match.CollectionID)
		}
		seen[r.Match.CollectionID] = true
	}
	return nil
}
