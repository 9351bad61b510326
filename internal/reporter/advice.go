package reporter

import (
	"errors"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/causalstack/causal-sentinel/internal/models"
)

// Advisor applies rule-based remediation advice to finished reports.
type Advisor struct {
	rules  []AdviceRule
	logger *slog.Logger
}

// AdviceRule maps a report shape to remediation advice.
type AdviceRule struct {
	ID     string          `yaml:"id"`
	Match  AdviceRuleMatch `yaml:"match"`
	Advice []string        `yaml:"advice"`
}

// AdviceRuleMatch defines optional attributes for rule matching; empty
// fields match everything.
type AdviceRuleMatch struct {
	Source            string   `yaml:"source"`
	Status            string   `yaml:"status"`
	ComponentContains []string `yaml:"component_contains"`
}

// adviceRuleFile is the YAML root structure of a rule pack.
type adviceRuleFile struct {
	Rules []AdviceRule `yaml:"rules"`
}

// NewAdvisor loads an advice rule pack from the provided path. An empty or
// missing path returns a nil advisor, which matches nothing.
func NewAdvisor(path string, logger *slog.Logger) (*Advisor, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var cfg adviceRuleFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Advisor{rules: cfg.Rules, logger: logger}, nil
}

// Advise returns advice strings for a report's cause and status.
func (a *Advisor) Advise(report models.ImpactReport) []string {
	if a == nil {
		return nil
	}

	matched := make([]string, 0)
	for _, rule := range a.rules {
		if rule.Match.Status != "" && !strings.EqualFold(rule.Match.Status, string(report.Status)) {
			continue
		}
		if rule.Match.Source != "" && !causeSourceMatches(rule.Match.Source, report.Cause) {
			continue
		}
		if len(rule.Match.ComponentContains) > 0 && !componentContains(rule.Match.ComponentContains, report.Cause) {
			continue
		}
		matched = appendUnique(matched, rule.Advice...)
	}
	return matched
}

func causeSourceMatches(source string, cause *models.CandidateCause) bool {
	return cause != nil && strings.EqualFold(source, string(cause.Event.Source))
}

func componentContains(keywords []string, cause *models.CandidateCause) bool {
	if cause == nil {
		return false
	}
	component := strings.ToLower(cause.Event.Component)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(component, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func appendUnique(existing []string, additions ...string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, item := range existing {
		seen[item] = struct{}{}
	}
	for _, item := range additions {
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		existing = append(existing, item)
		seen[item] = struct{}{}
	}
	return existing
}
