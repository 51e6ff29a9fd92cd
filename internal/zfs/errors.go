package zfs

import (
	"fmt"
	"regexp"
)

// Error wraps a non-zero zfs(8)/zpool(8) exit with the argv and a
// stderr tail, matching CommandFailed kind.
type Error struct {
	Argv   []string
	Stderr []byte
}

func (e *Error) Error() string {
	return fmt.Sprintf("zfs command failed: %v: %s", e.Argv, e.Stderr)
}

// ProtocolError signals that zfs(8) produced output this package could
// not parse — ProtocolError, never retried.
type ProtocolError struct {
	Context string
	Raw     string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("zfs: unparsable output (%s): %q", e.Context, e.Raw)
}

// transientPatterns is the explicit table Open Questions
// asks for: stderr substrings that mark a CommandFailed as retryable
// rather than fatal. Kept as a flat, auditable list instead of the
// ad-hoc heuristics of prior art.
var transientPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)dataset is busy`),
	regexp.MustCompile(`(?i)dataset\s+.*\s+is busy`),
	regexp.MustCompile(`(?i)cannot open '.*': dataset does not exist`),
	regexp.MustCompile(`(?i)cannot receive.*: destination .* no such pool or dataset`),
	regexp.MustCompile(`(?i)connection reset by peer`),
	regexp.MustCompile(`(?i)connection timed out`),
	regexp.MustCompile(`(?i)broken pipe`),
	regexp.MustCompile(`(?i)temporarily unavailable`),
	regexp.MustCompile(`(?i)ssh_exchange_identification`),
	regexp.MustCompile(`(?i)kex_exchange_identification`),
}

// IsTransient classifies a CommandFailed/zfs.Error as retryable,
// consulting the explicit pattern table above.
func IsTransient(stderr []byte) bool {
	for _, re := range transientPatterns {
		if re.Match(stderr) {
			return true
		}
	}
	return false
}
