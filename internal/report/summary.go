// Package report builds the end-of-run summary: per-dataset outcomes,
// transfer-rate statistics, and (for --dryrun=diff) a structured patch
// of the destination's projected snapshot set.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/montanaflynn/stats"
)

// StepRecord is one completed (or failed) TRANSFER step, added with
// AddStep. cmd/zfsync adds none, so its summary has no step records.
type StepRecord struct {
	Dataset  string
	Target   string
	Bytes    int64
	Duration time.Duration
}

// DatasetResult is the terminal state of one dataset pair for the
// run's summary, independent of internal/replicate's Outcome type so
// this package has no import-time dependency on it.
type DatasetResult struct {
	Dataset  string
	Status   string // "done", "skipped", "failed"
	Reason   string
	Err      error
	StepsRun int
}

// Summary accumulates results across an entire run.
type Summary struct {
	Datasets []DatasetResult
	Steps    []StepRecord
}

func (s *Summary) AddDataset(r DatasetResult) { s.Datasets = append(s.Datasets, r) }
func (s *Summary) AddStep(r StepRecord)       { s.Steps = append(s.Steps, r) }

// Counts tallies terminal statuses for the one-line run summary.
func (s *Summary) Counts() (done, skipped, failed int) {
	for _, d := range s.Datasets {
		switch d.Status {
		case "done":
			done++
		case "skipped":
			skipped++
		case "failed":
			failed++
		}
	}
	return
}

// RateStats is the median and 90th-percentile transfer rate, in
// bytes/second, across every timed step in the run.
type RateStats struct {
	MedianBytesPerSec float64
	P90BytesPerSec    float64
	TotalBytes        int64
	TotalDuration     time.Duration
}

// Rates computes RateStats over every step with a nonzero duration.
// Steps that ran in under a millisecond (likely --dryrun stand-ins)
// are excluded so they don't skew the distribution toward infinity.
func (s *Summary) Rates() (RateStats, error) {
	var rs RateStats
	var samples []float64
	for _, st := range s.Steps {
		rs.TotalBytes += st.Bytes
		rs.TotalDuration += st.Duration
		if st.Duration < time.Millisecond {
			continue
		}
		samples = append(samples, float64(st.Bytes)/st.Duration.Seconds())
	}
	if len(samples) == 0 {
		return rs, nil
	}

	data := stats.Float64Data(samples)
	median, err := data.Median()
	if err != nil {
		return rs, fmt.Errorf("report: median transfer rate: %w", err)
	}
	p90, err := data.Percentile(90)
	if err != nil {
		return rs, fmt.Errorf("report: p90 transfer rate: %w", err)
	}
	rs.MedianBytesPerSec = median
	rs.P90BytesPerSec = p90
	return rs, nil
}

// String renders the one-line run summary printed after every run,
// dryrun or real.
func (s *Summary) String() string {
	done, skipped, failed := s.Counts()
	rs, _ := s.Rates()
	var b strings.Builder
	fmt.Fprintf(&b, "%d done, %d skipped, %d failed", done, skipped, failed)
	if rs.TotalBytes > 0 {
		fmt.Fprintf(&b, " — %s transferred, median %s/s, p90 %s/s",
			formatBytes(rs.TotalBytes), formatBytes(int64(rs.MedianBytesPerSec)), formatBytes(int64(rs.P90BytesPerSec)))
	}
	return b.String()
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
