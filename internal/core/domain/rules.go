package domain

import (
	"errors"
	"sort"
	"strings"
)

// RuleKey identifies a rule by its (mood, activity) pair.
type RuleKey struct {
	Mood     string `json:"mood" yaml:"mood"`
	Activity string `json:"activity" yaml:"activity"`
}

// Rule is one row of a recommendation table.
type Rule struct {
	RuleKey `yaml:",inline"`
	Task    string `json:"task" yaml:"task"`
	Music   string `json:"music" yaml:"music"`
}

// Outcome is the label pair a table yields when no rule matches.
type Outcome struct {
	Task  string `json:"task" yaml:"task"`
	Music string `json:"music" yaml:"music"`
}

// RuleTable maps (mood, activity) pairs to labels with a single default.
// Keys are matched exactly; the first rule registered for a key wins.
type RuleTable struct {
	Name    string
	Default Outcome
	rules   []Rule
	index   map[RuleKey]int
}

var ErrDuplicateRule = errors.New("domain: duplicate rule")

// NewRuleTable builds a table. Duplicate keys are rejected so that the
// first-match order is never ambiguous.
func NewRuleTable(name string, def Outcome, rules []Rule) (*RuleTable, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &FieldError{Field: "name", Reason: "is required", Kind: ErrInvalidInput}
	}
	if def.Music == "" {
		return nil, &FieldError{Field: "default.music", Reason: "is required", Kind: ErrInvalidInput}
	}
	t := &RuleTable{
		Name:    name,
		Default: def,
		rules:   make([]Rule, 0, len(rules)),
		index:   make(map[RuleKey]int, len(rules)),
	}
	for _, r := range rules {
		if r.Mood == "" || r.Activity == "" || r.Music == "" {
			return nil, &FieldError{Field: "rules", Reason: "mood, activity and music are required", Kind: ErrInvalidInput}
		}
		if _, dup := t.index[r.RuleKey]; dup {
			return nil, ErrDuplicateRule
		}
		t.index[r.RuleKey] = len(t.rules)
		t.rules = append(t.rules, r)
	}
	return t, nil
}

// Lookup returns the rule for the pair, if any.
func (t *RuleTable) Lookup(mood, activity string) (Rule, bool) {
	i, ok := t.index[RuleKey{Mood: mood, Activity: activity}]
	if !ok {
		return Rule{}, false
	}
	return t.rules[i], true
}

// Recommend returns the matched labels, or the default with matched=false.
func (t *RuleTable) Recommend(mood, activity string) (Outcome, bool) {
	if r, ok := t.Lookup(mood, activity); ok {
		task := r.Task
		if task == "" {
			task = t.Default.Task
		}
		return Outcome{Task: task, Music: r.Music}, true
	}
	return t.Default, false
}

// Rules returns a copy of the rules in registration order.
func (t *RuleTable) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	copy(out, t.rules)
	return out
}

// Moods lists the distinct moods named by the table, sorted.
func (t *RuleTable) Moods() []string {
	return t.distinct(func(r Rule) string { return r.Mood })
}

// Activities lists the distinct activities named by the table, sorted.
func (t *RuleTable) Activities() []string {
	return t.distinct(func(r Rule) string { return r.Activity })
}

func (t *RuleTable) distinct(field func(Rule) string) []string {
	seen := make(map[string]struct{}, len(t.rules))
	out := make([]string, 0, len(t.rules))
	for _, r := range t.rules {
		v := field(r)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// CompanionTableName names the built-in productivity companion table.
const CompanionTableName = "companion"

// CompanionTable returns the built-in table used by the productivity companion.
func CompanionTable() *RuleTable {
	t, err := NewRuleTable(CompanionTableName, Outcome{
		Task:  "Light Planning",
		Music: "Soft Background Music",
	}, []Rule{
		{RuleKey: RuleKey{Mood: "Sad", Activity: "Relaxing"}, Task: "Journaling", Music: "Calm Acoustic / Ambient"},
		{RuleKey: RuleKey{Mood: "Energetic", Activity: "Workout"}, Task: "Interval Training", Music: "High BPM EDM / Hip-Hop"},
		{RuleKey: RuleKey{Mood: "Calm", Activity: "Studying"}, Task: "Deep Work Session", Music: "Lo-fi / Instrumental"},
		{RuleKey: RuleKey{Mood: "Stressed", Activity: "Coding"}, Task: "Pomodoro Sprint", Music: "Low-lyric Electronic"},
	})
	if err != nil {
		panic(err)
	}
	return t
}
