package filter

import "strings"

// StickyFilter evaluates a Spec over a dataset tree walked
// parent-before-child: exclude is sticky, so if an ancestor was
// excluded, every descendant is excluded without re-evaluation. No
// descendant of an excluded dataset is ever inspected on the
// destination.
type StickyFilter struct {
	spec     Spec
	excluded []string // relative paths of excluded ancestors, "/"-joined
}

func NewStickyFilter(spec Spec) *StickyFilter {
	return &StickyFilter{spec: spec}
}

// Allow must be called in parent-before-child order. relpath is the
// dataset path relative to the walk root ("/"-joined, no leading
// slash); abspath is the dataset's full path from the pool root, used
// to evaluate Absolute ("/"-prefixed) literal rules. It returns false
// either because the path itself fails the Spec, or because an
// ancestor was already excluded.
func (f *StickyFilter) Allow(relpath, abspath string) bool {
	for _, excl := range f.excluded {
		if relpath == excl || strings.HasPrefix(relpath, excl+"/") {
			return false
		}
	}
	if !f.spec.AllowsPath(relpath, abspath) {
		f.excluded = append(f.excluded, relpath)
		return false
	}
	return true
}
