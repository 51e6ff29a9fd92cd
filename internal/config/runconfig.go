// Package config assembles a RunConfig from CLI flags, environment
// variables, and optional filter/policy YAML files, applying defaults
// and validation before internal/plan and internal/replicate ever see
// it.
package config

import "time"

// DatasetPair is one SRC_DATASET DST_DATASET positional pair, already
// split into endpoint and path by internal/datasetspec.
type DatasetPair struct {
	Src string `yaml:"src" validate:"required"`
	Dst string `yaml:"dst" validate:"required"`
}

// RunConfig is the fully-resolved configuration for one zfsync
// invocation: this program has no daemon or job registry, so one
// RunConfig is the entire program state.
type RunConfig struct {
	Datasets  []DatasetPair `yaml:"datasets" validate:"required,dive"`
	Recursive bool          `yaml:"recursive,omitempty" default:"false"`

	IncludeDatasets []string `yaml:"include_datasets,omitempty"`
	ExcludeDatasets []string `yaml:"exclude_datasets,omitempty" default:"[\"tmp\"]"`

	IncludeSnapshots []string `yaml:"include_snapshots,omitempty"`
	ExcludeSnapshots []string `yaml:"exclude_snapshots,omitempty"`

	ExcludeDatasetProperty string `yaml:"exclude_dataset_property,omitempty"`

	Force            bool `yaml:"force,omitempty"`
	ForceOnce        bool `yaml:"force_once,omitempty"`
	ForceUnmount     bool `yaml:"force_unmount,omitempty"`
	NoStream         bool `yaml:"no_stream,omitempty"`
	NoCreateBookmark bool `yaml:"no_create_bookmark,omitempty"`

	SkipMissingSnapshots string `yaml:"skip_missing_snapshots,omitempty" default:"dataset" validate:"oneof=fail dataset continue"`
	SkipOnError          string `yaml:"skip_on_error,omitempty" default:"dataset" validate:"oneof=fail tree dataset"`
	SkipReplication      bool   `yaml:"skip_replication,omitempty"`

	DeleteMissingSnapshots bool `yaml:"delete_missing_snapshots,omitempty"`
	DeleteMissingDatasets  bool `yaml:"delete_missing_datasets,omitempty"`

	NoPrivilegeElevation bool `yaml:"no_privilege_elevation,omitempty"`

	CompressionLevel int  `yaml:"compression_level,omitempty" default:"1" validate:"min=0,max=19"`
	NoCompression    bool `yaml:"no_compression,omitempty"`
	ShowProgress     bool `yaml:"progress,omitempty"`

	DryRun string `yaml:"dryrun,omitempty" validate:"omitempty,oneof=send recv diff"`

	RetryMaxAttempts int           `yaml:"retry_max_attempts,omitempty" default:"5" validate:"min=0"`
	RetryMinSleep    time.Duration `yaml:"retry_min_sleep,omitempty" default:"1s"`
	RetryMaxSleep    time.Duration `yaml:"retry_max_sleep,omitempty" default:"2m" validate:"gtefield=RetryMinSleep"`
	RetryMaxElapsed  time.Duration `yaml:"retry_max_elapsed,omitempty" default:"30m"`

	ProgramOverrides map[string]string `yaml:"program_overrides,omitempty"`

	IncludeEnvVars []string `yaml:"include_envvars,omitempty"`
	ExcludeEnvVars []string `yaml:"exclude_envvars,omitempty"`

	LogDir   string `yaml:"log_dir,omitempty" env:"ZFSYNC_LOG_DIR"`
	LogLevel string `yaml:"log_level,omitempty" default:"info" env:"ZFSYNC_LOG_LEVEL" validate:"oneof=debug info warn error"`

	MetricsListen string `yaml:"metrics_listen,omitempty" env:"ZFSYNC_METRICS_LISTEN"`

	CommandTimeout    time.Duration `yaml:"command_timeout,omitempty" default:"30s"`
	TransferTimeout   time.Duration `yaml:"transfer_timeout,omitempty"` // zero = no timeout
	SSHControlPersist time.Duration `yaml:"ssh_control_persist,omitempty" default:"10m"`

	PickInteractive bool `yaml:"-"` // --pick, CLI-only, never persisted to a policy file
}

// EffectiveCompression resolves NoCompression against CompressionLevel,
// kept as a method rather than folded into validation so RunConfig
// stays a plain data holder validator/env libraries can reflect over
// without custom (un)marshalers.
func (c *RunConfig) EffectiveCompression() (level int, enabled bool) {
	if c.NoCompression {
		return 0, false
	}
	return c.CompressionLevel, true
}
