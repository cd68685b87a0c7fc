// Package rules implements the deterministic rule engine: an ordered
// list of declarative predicates over (path, size, age) producing a
// RiskLabel and a rationale. Pure function, no I/O, no clock except the
// caller-supplied now.
package rules

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"purgekit/internal/core"
)

// Operator is the predicate kind for a single Condition.
type Operator string

const (
	OpGlob     Operator = "glob"
	OpContains Operator = "contains"
	OpSizeGT   Operator = "size_gt"
	OpSizeLT   Operator = "size_lt"
	OpAgeGT    Operator = "age_gt"
	OpAgeLT    Operator = "age_lt"
	OpIsDir    Operator = "is_dir"
	OpIsFile   Operator = "is_file"
)

// Condition is one clause of a Rule's conjunction.
type Condition struct {
	Op      Operator
	Pattern string        // used by OpGlob / OpContains
	Size    uint64        // used by OpSizeGT / OpSizeLT, bytes
	Age     time.Duration // used by OpAgeGT / OpAgeLT
}

// RuleClass groups rules into the built-in priority classes. Lower
// numbers are evaluated first.
type RuleClass int

const (
	ClassSystemCritical RuleClass = iota
	ClassKnownJunk
	ClassFallback
)

// Rule is a declarative predicate over (path, size, age): all Conditions
// must match (conjunction) for the Rule to fire.
type Rule struct {
	Name       string
	Class      RuleClass
	Conditions []Condition
	Label      core.RiskLabel
	Rationale  string
}

// BadRuleError is returned when a rule references an unknown operator;
// the rule is skipped and evaluation continues with the next rule.
type BadRuleError struct {
	RuleName string
	Op       Operator
}

func (e *BadRuleError) Error() string {
	return fmt.Sprintf("bad rule %q: unknown operator %q", e.RuleName, e.Op)
}

// Engine evaluates an ordered set of Rules, first match wins within a
// priority class, classes evaluated in order (system-critical dangerous,
// known-junk safe, fallback suspicious).
type Engine struct {
	rules []Rule
}

// NewEngine builds an Engine from the given rules, sorted stably by Class.
func NewEngine(rules []Rule) *Engine {
	byClass := make([][]Rule, 3)
	for _, r := range rules {
		byClass[r.Class] = append(byClass[r.Class], r)
	}
	ordered := make([]Rule, 0, len(rules))
	for _, bucket := range byClass {
		ordered = append(ordered, bucket...)
	}
	return &Engine{rules: ordered}
}

// Classify evaluates path/size/lastAccess/isDir against the rule set and
// returns the first matching rule's label and rationale. If no rule
// matches, it falls back to Suspicious ("fallback suspicious").
//
// now is supplied by the caller; Classify performs no I/O and reads no
// other clock, keeping it a pure function.
func (e *Engine) Classify(path string, size uint64, lastAccess *time.Time, isDir bool, now time.Time) (core.RiskLabel, string) {
	for _, rule := range e.rules {
		ok, err := matches(rule, path, size, lastAccess, isDir, now)
		if err != nil {
			// BadRule: skip this rule, try the next one.
			continue
		}
		if ok {
			return rule.Label, rule.Rationale
		}
	}
	return core.Suspicious, "no rule matched; defaulting to suspicious"
}

func matches(rule Rule, path string, size uint64, lastAccess *time.Time, isDir bool, now time.Time) (bool, error) {
	normalized := normalizePath(path)

	for _, c := range rule.Conditions {
		switch c.Op {
		case OpGlob:
			ok, err := doublestar.Match(strings.ToLower(c.Pattern), normalized)
			if err != nil || !ok {
				return false, nil
			}
		case OpContains:
			if !strings.Contains(normalized, strings.ToLower(c.Pattern)) {
				return false, nil
			}
		case OpSizeGT:
			if !(size > c.Size) {
				return false, nil
			}
		case OpSizeLT:
			if !(size < c.Size) {
				return false, nil
			}
		case OpAgeGT:
			if lastAccess == nil || !(now.Sub(*lastAccess) > c.Age) {
				return false, nil
			}
		case OpAgeLT:
			if lastAccess == nil || !(now.Sub(*lastAccess) < c.Age) {
				return false, nil
			}
		case OpIsDir:
			if !isDir {
				return false, nil
			}
		case OpIsFile:
			if isDir {
				return false, nil
			}
		default:
			return false, &BadRuleError{RuleName: rule.Name, Op: c.Op}
		}
	}
	return true, nil
}

// normalizePath produces the canonical form rule glob/contains conditions
// match against on every platform: backslashes turned into forward
// slashes (doublestar globs always use '/') and the whole path lowercased.
// matches lowercases patterns too, so rule matching is case-insensitive.
func normalizePath(p string) string {
	p = filepath.ToSlash(filepath.Clean(strings.ReplaceAll(p, `\`, "/")))
	return strings.ToLower(p)
}
