package inference

import (
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// AssociationRule is one mined "antecedents → consequents" rule with its
// usual support, confidence and lift measures.
type AssociationRule struct {
	Antecedents []string `json:"antecedents" yaml:"antecedents"`
	Consequents []string `json:"consequents" yaml:"consequents"`
	Support     float64  `json:"support" yaml:"support"`
	Confidence  float64  `json:"confidence" yaml:"confidence"`
	Lift        float64  `json:"lift" yaml:"lift"`
}

func (r AssociationRule) String() string {
	return fmt.Sprintf("{%s} → {%s}", strings.Join(r.Antecedents, ", "), strings.Join(r.Consequents, ", "))
}

// RuleSet is a named list of association rules shipped next to the models.
type RuleSet struct {
	Name        string            `json:"name" yaml:"name"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Rules       []AssociationRule `json:"rules" yaml:"rules"`
}

// DecodeRuleSet reads and validates a rule set document.
func DecodeRuleSet(r io.Reader) (RuleSet, error) {
	var rs RuleSet
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&rs); err != nil {
		if errors.Is(err, io.EOF) {
			return RuleSet{}, fmt.Errorf("%w: empty document", ErrInvalidArtifact)
		}
		return RuleSet{}, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}
	rs.Name = strings.TrimSpace(rs.Name)
	if rs.Name == "" {
		return RuleSet{}, fmt.Errorf("%w: name is required", ErrInvalidArtifact)
	}
	for i, rule := range rs.Rules {
		if err := rule.validate(); err != nil {
			return RuleSet{}, fmt.Errorf("%w: %s rule %d: %v", ErrInvalidArtifact, rs.Name, i, err)
		}
	}
	return rs, nil
}

func (r AssociationRule) validate() error {
	if len(r.Antecedents) == 0 || len(r.Consequents) == 0 {
		return errors.New("antecedents and consequents must be non-empty")
	}
	for _, item := range r.Antecedents {
		if slices.Contains(r.Consequents, item) {
			return fmt.Errorf("item %q is on both sides", item)
		}
	}
	unit := func(v float64) bool { return v >= 0 && v <= 1 }
	if !unit(r.Support) || !unit(r.Confidence) {
		return fmt.Errorf("support %g and confidence %g must be in [0, 1]", r.Support, r.Confidence)
	}
	if math.IsNaN(r.Lift) || math.IsInf(r.Lift, 0) || r.Lift < 0 {
		return fmt.Errorf("lift %g must be finite and non-negative", r.Lift)
	}
	return nil
}

// Filter keeps the rules meeting both thresholds, strongest lift first.
// Equal lifts keep their file order.
func (rs RuleSet) Filter(minConfidence, minLift float64) []AssociationRule {
	out := make([]AssociationRule, 0, len(rs.Rules))
	for _, r := range rs.Rules {
		if r.Confidence >= minConfidence && r.Lift >= minLift {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, b AssociationRule) int {
		switch {
		case a.Lift > b.Lift:
			return -1
		case a.Lift < b.Lift:
			return 1
		}
		return 0
	})
	return out
}
