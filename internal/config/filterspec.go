package config

import "github.com/zfsmirror/zfsync/internal/filter"

// DatasetFilter compiles RunConfig's include/exclude dataset rules
// into a filter.Spec, expanding any "@file"/"+file" indirection first.
func (c *RunConfig) DatasetFilter() (filter.Spec, error) {
	return buildSpec(c.IncludeDatasets, c.ExcludeDatasets)
}

// SnapshotFilter compiles RunConfig's include/exclude snapshot-name
// rules into a filter.Spec.
func (c *RunConfig) SnapshotFilter() (filter.Spec, error) {
	return buildSpec(c.IncludeSnapshots, c.ExcludeSnapshots)
}

// EnvVarFilter compiles RunConfig's include/exclude envvar rules,
// governing which environment variables a pipeline stage's subprocess
// inherits.
func (c *RunConfig) EnvVarFilter() (filter.Spec, error) {
	return buildSpec(c.IncludeEnvVars, c.ExcludeEnvVars)
}

func buildSpec(include, exclude []string) (filter.Spec, error) {
	inc, err := ExpandFileRefs(include)
	if err != nil {
		return filter.Spec{}, err
	}
	exc, err := ExpandFileRefs(exclude)
	if err != nil {
		return filter.Spec{}, err
	}

	incList, err := filter.Compile(inc)
	if err != nil {
		return filter.Spec{}, err
	}
	excList, err := filter.Compile(exc)
	if err != nil {
		return filter.Spec{}, err
	}
	return filter.Spec{Include: incList, Exclude: excList}, nil
}
