package main

import (
	"time"

	"github.com/dsh2dsh/go-monitoringplugin/v2"
	"github.com/spf13/cobra"

	"github.com/zfsmirror/zfsync/internal/command"
	"github.com/zfsmirror/zfsync/internal/datasetspec"
	"github.com/zfsmirror/zfsync/internal/monitor"
	"github.com/zfsmirror/zfsync/internal/plan"
)

var (
	checkFreshnessWarn time.Duration
	checkFreshnessCrit time.Duration
	checkLagWarn       time.Duration
	checkLagCrit       time.Duration
)

var checkCmd = &cobra.Command{
	Use:   "check SRC_DATASET DST_DATASET [SRC_DATASET DST_DATASET]...",
	Short: "Nagios-style check of snapshot freshness and replication lag",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

func init() {
	f := checkCmd.Flags()
	f.DurationVar(&checkFreshnessWarn, "freshness-warning", 26*time.Hour, "warn if the newest source snapshot is older than this")
	f.DurationVar(&checkFreshnessCrit, "freshness-critical", 50*time.Hour, "critical if the newest source snapshot is older than this")
	f.DurationVar(&checkLagWarn, "lag-warning", 26*time.Hour, "warn if replication lag behind the newest source snapshot exceeds this")
	f.DurationVar(&checkLagCrit, "lag-critical", 50*time.Hour, "critical if replication lag exceeds this")

	f.BoolVarP(&cfg.Recursive, "recursive", "r", false, "recurse into child datasets")
}

func runCheck(cmd *cobra.Command, args []string) error {
	pairs, err := datasetspec.ResolvePairs(args)
	if err != nil {
		return usageError{err}
	}

	runner := command.New()
	resp := monitoringplugin.NewResponse("zfsync check")

	var items []plan.WorkItem
	for _, pair := range pairs {
		pc := buildPairClients(pair, runner, nil, false)
		planned, err := (&plan.Planner{
			SrcClient: pc.Src,
			SrcRoot:   pc.SrcRoot,
			DstRoot:   pc.DstRoot,
			Recursive: cfg.Recursive,
		}).Plan(cmd.Context())
		if err != nil {
			return err
		}
		items = append(items, planned...)

		check := &monitor.Check{
			Src:       pc.Src,
			Dst:       pc.Dst,
			Items:     planned,
			Freshness: monitor.Thresholds{Warn: checkFreshnessWarn, Crit: checkFreshnessCrit},
			Lag:       monitor.Thresholds{Warn: checkLagWarn, Crit: checkLagCrit},
		}
		check.Run(cmd.Context(), resp)
	}

	resp.OutputAndExit()
	return nil
}
