// Package filter implements the Filter Engine: ordered
// include/exclude rule lists compiled from literal names or explicit
// regexes, with "!" negation, evaluated with "exclude beats include"
// and sticky exclusion down a dataset tree.
package filter

import (
	"fmt"
	"regexp"
	"strings"
)

// Rule is one compiled (regex, negated) pair. Absolute marks a literal
// dataset-path rule that was written with a leading "/" in its
// original spec string: it matches against a dataset's full path from
// the pool root rather than the path relative to the walk root.
type Rule struct {
	Regexp   *regexp.Regexp
	Negated  bool
	Absolute bool
}

// matches reports whether name matches this rule's pattern (before
// negation is applied).
func (r Rule) matches(name string) bool { return r.Regexp.MatchString(name) }

// List is an ordered vector of rules. A name matches the list iff at
// least one rule matches it, with negation applied.
type List []Rule

// Matches evaluates name against every rule in order; negation means
// "this rule, if it matches, votes false instead of true" — the net
// result is true iff any non-negated rule matches and it is not
// overridden by a later negated rule matching too: start unmatched,
// apply each rule in order, last matching rule wins. Every rule is
// tested against name regardless of Absolute; use MatchesPath for
// dataset filtering, where Absolute rules need a different string.
func (l List) Matches(name string) bool {
	matched := false
	for _, r := range l {
		if r.matches(name) {
			matched = !r.Negated
		}
	}
	return matched
}

// MatchesPath is Matches for the dataset axis, where relpath is the
// path relative to the walk root and abspath is the dataset's full
// path from the pool root. Absolute rules (compiled from a
// leading-"/" spec) are tested against abspath; all others against
// relpath.
func (l List) MatchesPath(relpath, abspath string) bool {
	matched := false
	for _, r := range l {
		name := relpath
		if r.Absolute {
			name = abspath
		}
		if r.matches(name) {
			matched = !r.Negated
		}
	}
	return matched
}

func (l List) Empty() bool { return len(l) == 0 }

// compileOne parses a single rule spec. A spec starting with "!" is
// negated. A spec starting with "re:" is used as an explicit regex;
// anything else is escaped and optionally anchored depending on
// anchoring rules applied by the caller (literal dataset names vs.
// snapshot-name fragments). A leading "/" on a literal (non-"re:")
// spec marks the rule Absolute and is stripped before compiling,
// since dataset paths themselves never carry one.
func compileOne(spec string, anchor bool) (Rule, error) {
	negated := false
	if strings.HasPrefix(spec, "!") {
		negated = true
		spec = spec[1:]
	}

	var pattern string
	absolute := false
	switch {
	case strings.HasPrefix(spec, "re:"):
		pattern = spec[len("re:"):]
	default:
		if strings.HasPrefix(spec, "/") {
			absolute = true
			spec = spec[1:]
		}
		pattern = regexp.QuoteMeta(spec)
		if anchor {
			pattern = "^" + pattern + "$"
		}
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("filter: invalid pattern %q: %w", spec, err)
	}
	return Rule{Regexp: re, Negated: negated, Absolute: absolute}, nil
}

// Compile builds a List from user-supplied rule strings, anchoring
// literal (non-"re:") patterns to whole-name matches.
func Compile(specs []string) (List, error) {
	rules := make(List, 0, len(specs))
	for _, s := range specs {
		if s == "" {
			continue
		}
		r, err := compileOne(s, true)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// Spec bundles an include and exclude List for one axis (datasets,
// snapshot names, properties, or env vars) — FilterSpec.
type Spec struct {
	Include List
	Exclude List
}

// Allows applies "selected iff matches(include) and not
// matches(exclude)". An empty include list is treated
// as match-everything, matching common include/exclude CLI UX where
// omitting --include means "everything not excluded".
func (s Spec) Allows(name string) bool {
	included := s.Include.Empty() || s.Include.Matches(name)
	if !included {
		return false
	}
	return !s.Exclude.Matches(name)
}

// AllowsPath is Allows for the dataset axis: relpath is tested against
// relative rules and abspath against Absolute ("/"-prefixed) rules.
func (s Spec) AllowsPath(relpath, abspath string) bool {
	included := s.Include.Empty() || s.Include.MatchesPath(relpath, abspath)
	if !included {
		return false
	}
	return !s.Exclude.MatchesPath(relpath, abspath)
}
