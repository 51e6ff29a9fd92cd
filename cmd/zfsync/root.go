package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/zfsmirror/zfsync/internal/config"
)

var cfg = &config.RunConfig{}

var (
	flagPolicyFile string
	flagPick       bool
)

var rootCmd = &cobra.Command{
	Use:   "zfsync SRC_DATASET DST_DATASET [SRC_DATASET DST_DATASET]...",
	Short: "Replicate ZFS snapshots between a source and a destination dataset tree",
	Long: `zfsync brings a destination ZFS dataset tree up to date with a source
tree by sending incremental snapshots, locally or over ssh.

Dataset arguments use the grammar [[user@]host:]pool/path; host "-" or
omitted with no ":" forces local. A single "+file" argument in place of
SRC_DATASET DST_DATASET reads tab-separated src/dst pairs from a file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.MinimumNArgs(1),
	RunE:          runReplicate,
}

func init() {
	f := rootCmd.Flags()

	f.StringVar(&flagPolicyFile, "config", "", "YAML policy file; it is loaded and validated, but none of its values change the run")
	f.BoolVar(&flagPick, "pick", false, "accepted but not read: the dataset walk is not narrowed interactively")

	f.BoolVarP(&cfg.Recursive, "recursive", "r", false, "recurse into child datasets")
	f.StringSliceVar(&cfg.IncludeDatasets, "include-dataset", nil, "include only datasets matching this rule (repeatable)")
	f.StringSliceVar(&cfg.ExcludeDatasets, "exclude-dataset", []string{"tmp"}, "exclude datasets matching this rule (repeatable)")
	f.StringSliceVar(&cfg.IncludeSnapshots, "include-snapshot", nil, "include only snapshots matching this rule (repeatable)")
	f.StringSliceVar(&cfg.ExcludeSnapshots, "exclude-snapshot", nil, "exclude snapshots matching this rule (repeatable)")
	f.StringVar(&cfg.ExcludeDatasetProperty, "exclude-dataset-property", "", "accepted but not read: no dataset is skipped by a ZFS property")

	f.BoolVar(&cfg.Force, "force", false, "roll back or clear conflicting destination state on every dataset")
	f.BoolVar(&cfg.ForceOnce, "force-once", false, "allow exactly one dataset in this run to force a conflict resolution")
	f.BoolVar(&cfg.ForceUnmount, "force-unmount", false, "force-unmount datasets being rolled back or destroyed")
	f.BoolVar(&cfg.NoStream, "no-stream", false, "send a single -i incremental to the newest snapshot, skipping intermediates, instead of an -I stream")
	f.BoolVar(&cfg.NoCreateBookmark, "no-create-bookmark", false, "skip creating a bookmark of the last snapshot sent")

	f.StringVar(&cfg.SkipMissingSnapshots, "skip-missing-snapshots", "dataset", `what to do when the source has no candidate snapshots ("fail", "dataset", "continue")`)
	f.StringVar(&cfg.SkipOnError, "skip-on-error", "dataset", `failure scope ("fail", "tree", "dataset")`)
	f.BoolVar(&cfg.SkipReplication, "skip-replication", false, "plan but don't transfer; the delete-missing passes still run when enabled")

	f.BoolVar(&cfg.DeleteMissingSnapshots, "delete-missing-snapshots", false, "destroy destination snapshots absent from the source's selected set")
	f.BoolVar(&cfg.DeleteMissingDatasets, "delete-missing-datasets", false, "destroy destination datasets no longer under the source's selected tree")

	f.BoolVar(&cfg.NoPrivilegeElevation, "no-privilege-elevation", false, "never wrap mutating ZFS commands in sudo")

	f.IntVar(&cfg.CompressionLevel, "compression-level", 1, "zstd compression level for the transfer pipeline")
	f.BoolVar(&cfg.NoCompression, "no-compression", false, "disable compression entirely")
	f.BoolVar(&cfg.ShowProgress, "progress", false, "show a live per-dataset progress view")

	f.StringVar(&cfg.DryRun, "dryrun", "", `preview without mutating state ("send", "recv", "diff")`)

	f.IntVar(&cfg.RetryMaxAttempts, "retry-max-attempts", 5, "max retry attempts for a transient transfer failure")
	f.DurationVar(&cfg.RetryMinSleep, "retry-min-sleep", time.Second, "initial retry backoff")
	f.DurationVar(&cfg.RetryMaxSleep, "retry-max-sleep", 2*time.Minute, "max retry backoff")
	f.DurationVar(&cfg.RetryMaxElapsed, "retry-max-elapsed", 30*time.Minute, "max wall-clock time spent retrying one step")

	f.StringToStringVar(&cfg.ProgramOverrides, "xxx-program", nil, `override a role's program path, e.g. --xxx-program=zstd=/opt/bin/zstd`)

	f.StringSliceVar(&cfg.IncludeEnvVars, "include-envvar", nil, "accepted but not read: subprocesses inherit the full environment (repeatable)")
	f.StringSliceVar(&cfg.ExcludeEnvVars, "exclude-envvar", nil, "accepted but not read: subprocesses inherit the full environment (repeatable)")

	f.StringVar(&cfg.LogDir, "log-dir", defaultLogDir(), "directory for the run's log file and current.log symlink")
	f.StringVar(&cfg.LogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	f.StringVar(&cfg.MetricsListen, "metrics-listen", "", "address to serve Prometheus metrics on, e.g. :9122")

	f.DurationVar(&cfg.CommandTimeout, "command-timeout", 30*time.Second, "timeout for a single non-transfer ZFS command")
	f.DurationVar(&cfg.SSHControlPersist, "ssh-control-persist", 10*time.Minute, "accepted but not read: ssh connections use ControlPersist=300")

	rootCmd.AddCommand(checkCmd)
}
