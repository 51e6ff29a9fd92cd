// Package progress renders the live TTY progress view for --progress
// runs. Its byte counts come from the pipeline's pv stage: when no pv
// stage runs, no events arrive and the view shows nothing.
package progress

// Event reports the state of one in-flight or finished transfer step.
// cmd/zfsync emits one per pv stderr line that ParsePVBytes accepts.
type Event struct {
	Dataset    string
	Stage      string
	BytesDone  int64
	BytesTotal int64 // 0 when the size estimate isn't known
	Done       bool
	Err        error
}
