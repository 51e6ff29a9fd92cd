package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListMatchesLastRuleWins(t *testing.T) {
	list, err := Compile([]string{"tank1/*", "!tank1/tmp"})
	require.NoError(t, err)
	// literal compilation anchors and escapes, so "tank1/*" matches only
	// the literal string "tank1/*", not a glob; use re: for wildcards.
	assert.False(t, list.Matches("tank1/tmp"), "tank1/tmp not excluded by negated rule")
}

func TestListMatchesRegexWildcard(t *testing.T) {
	list, err := Compile([]string{"re:^tank1/.*$", "!tank1/tmp"})
	require.NoError(t, err)
	assert.True(t, list.Matches("tank1/foo"))
	assert.False(t, list.Matches("tank1/tmp"), "excluded by the later negated rule")
}

func TestSpecAllowsEmptyIncludeMeansEverything(t *testing.T) {
	exclude, err := Compile([]string{"tmp"})
	require.NoError(t, err)
	spec := Spec{Exclude: exclude}
	assert.True(t, spec.Allows("tank1/foo"))
	assert.False(t, spec.Allows("tmp"))
}

func TestSpecAllowsRequiresInclude(t *testing.T) {
	include, err := Compile([]string{"tank1/foo"})
	require.NoError(t, err)
	spec := Spec{Include: include}
	assert.False(t, spec.Allows("tank1/bar"), "not in include list")
	assert.True(t, spec.Allows("tank1/foo"))
}

func TestStickyFilterExcludesDescendants(t *testing.T) {
	exclude, err := Compile([]string{"re:^tmp.*$"})
	require.NoError(t, err)
	sf := NewStickyFilter(Spec{Exclude: exclude})

	assert.True(t, sf.Allow("foo", "tank1/foo"))
	assert.False(t, sf.Allow("tmp", "tank1/tmp"))
	assert.False(t, sf.Allow("tmp/child", "tank1/tmp/child"), "excluded via sticky ancestor exclusion")
}

func TestCompileOneAbsoluteLiteralMatchesFullPathOnly(t *testing.T) {
	list, err := Compile([]string{"/tank1/foo/tmp"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Absolute)

	// An absolute rule is evaluated against abspath, never relpath.
	assert.True(t, list.MatchesPath("nonsense", "tank1/foo/tmp"))
	assert.False(t, list.MatchesPath("tank1/foo/tmp", "tank2/foo/tmp"))
}

func TestCompileOneRelativeLiteralMatchesRelpathOnly(t *testing.T) {
	list, err := Compile([]string{"tmp"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].Absolute)

	assert.True(t, list.MatchesPath("tmp", "tank1/foo/tmp"))
	assert.False(t, list.MatchesPath("other", "tank1/foo/tmp"))
}

func TestSpecAllowsPathDistinguishesAbsoluteFromRelative(t *testing.T) {
	exclude, err := Compile([]string{"/tank1/foo/tmp"})
	require.NoError(t, err)
	spec := Spec{Exclude: exclude}

	// Same relpath under a different root's abspath is not excluded.
	assert.True(t, spec.AllowsPath("tmp", "tank2/foo/tmp"))
	assert.False(t, spec.AllowsPath("tmp", "tank1/foo/tmp"))
}
