package command

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"
)

// Stage is one process in a Pipeline. Label identifies it in logs and
// error messages (e.g. "src:send", "ssh:dst", "dst:recv").
type Stage struct {
	Label string
	Argv  []string

	// Stdin, if set, is wired as the stage's stdin instead of the
	// previous stage's stdout. Used for the first stage.
	Stdin io.Reader

	// Filter, if set, wraps whatever would otherwise become this
	// stage's stdin (the previous stage's stdout pipe, or Stdin for the
	// first stage) before handing it to the child process. This is how
	// an in-process fallback transform (e.g. a software zstd codec
	// substituting for a missing external binary) gets spliced between
	// two real stages without either of them knowing about it.
	Filter func(io.Reader) io.Reader

	// OnStderrLine is called once per line of stderr the stage produces,
	// in the order the child wrote it, tagged with Label by the caller.
	OnStderrLine func(line string)
}

// StageResult is the outcome of one pipeline stage.
type StageResult struct {
	Label    string
	ExitCode int
	Err      error
}

// Pipeline chains Stages left to right: each stage's stdout feeds the
// next stage's stdin via an OS pipe. The whole chain is torn down
// together on cancellation or on the first unexpected failure.
type Pipeline struct {
	stages []Stage
}

func NewPipeline(stages ...Stage) *Pipeline { return &Pipeline{stages: stages} }

// Run executes every stage concurrently and waits for all of them to
// exit. Success is gated on the last stage's exit code; earlier
// stages' non-zero exits are tolerated if they are the SIGPIPE
// consequence of the last stage having exited (or not yet started
// reading) early.
func (p *Pipeline) Run(ctx context.Context) ([]StageResult, error) {
	if len(p.stages) == 0 {
		return nil, fmt.Errorf("pipeline: no stages")
	}

	cmds := make([]*exec.Cmd, len(p.stages))
	for i, st := range p.stages {
		cmd := exec.CommandContext(ctx, st.Argv[0], st.Argv[1:]...)
		setProcAttrs(cmd)
		cmds[i] = cmd
	}

	// Wire stdin/stdout pipes between adjacent stages.
	for i := range cmds {
		var in io.Reader
		if i == 0 {
			in = p.stages[0].Stdin
		} else {
			r, w := io.Pipe()
			cmds[i-1].Stdout = w
			in = r
		}
		if in == nil {
			continue
		}
		if f := p.stages[i].Filter; f != nil {
			in = f(in)
		}
		cmds[i].Stdin = in
	}

	stderrPipes := make([]io.ReadCloser, len(cmds))
	for i, cmd := range cmds {
		pr, err := cmd.StderrPipe()
		if err != nil {
			return nil, fmt.Errorf("pipeline: stderr pipe for %s: %w", p.stages[i].Label, err)
		}
		stderrPipes[i] = pr
	}

	for i, cmd := range cmds {
		if err := cmd.Start(); err != nil {
			killAll(cmds[:i])
			return nil, fmt.Errorf("pipeline: start %s: %w", p.stages[i].Label, err)
		}
	}

	var wg sync.WaitGroup
	tails := make([][]byte, len(stderrPipes))
	for i, pr := range stderrPipes {
		wg.Add(1)
		go func(i int, r io.Reader, onLine func(string)) {
			defer wg.Done()
			scanner := bufio.NewScanner(r)
			for scanner.Scan() {
				tails[i] = append(append(tails[i], scanner.Bytes()...), '\n')
				if len(tails[i]) > stderrTailBytes {
					tails[i] = tails[i][len(tails[i])-stderrTailBytes:]
				}
				if onLine != nil {
					onLine(scanner.Text())
				}
			}
		}(i, pr, p.stages[i].OnStderrLine)
	}

	results := make([]StageResult, len(cmds))
	var waitWg sync.WaitGroup
	waitWg.Add(len(cmds))
	for i, cmd := range cmds {
		go func(i int, cmd *exec.Cmd) {
			defer waitWg.Done()
			// Closing our end of the write-pipe once the producing stage
			// exits lets the downstream stage see EOF.
			err := cmd.Wait()
			if wc, ok := cmd.Stdout.(io.Closer); ok {
				_ = wc.Close()
			}
			code := 0
			if err != nil {
				code = exitCode(err)
			}
			results[i] = StageResult{Label: p.stages[i].Label, ExitCode: code, Err: err}
		}(i, cmd)
	}
	waitWg.Wait()
	wg.Wait()

	last := results[len(results)-1]
	if last.ExitCode != 0 {
		return results, &Failed{Argv: p.stages[len(p.stages)-1].Argv, ExitCode: last.ExitCode, StderrTail: string(tails[len(tails)-1])}
	}
	for i, r := range results[:len(results)-1] {
		if r.ExitCode != 0 && !benignUpstreamExit(r.ExitCode, r.Err) {
			return results, &Failed{Argv: p.stages[i].Argv, ExitCode: r.ExitCode, StderrTail: string(tails[i])}
		}
	}
	return results, nil
}

// benignUpstreamExit reports whether a non-zero exit from a non-final
// stage is the expected SIGPIPE consequence of the downstream stage
// having exited (e.g. a receiver that errors out early, or `pv`
// terminating). 141 = 128+SIGPIPE(13) under POSIX shells' convention;
// some tools (notably `zstd`) translate it into 141 themselves. Go
// instead reports a signal-killed process's exit code as -1 via
// exitCode's *exec.ExitError path, so -1 is checked against the
// underlying WaitStatus for SIGPIPE specifically, falling back to
// treating any -1 from a non-final stage as benign when the signal
// can't be determined.
func benignUpstreamExit(code int, err error) bool {
	if code == 141 {
		return true
	}
	if code != -1 {
		return false
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return ws.Signal() == syscall.SIGPIPE
		}
	}
	return true
}

func killAll(cmds []*exec.Cmd) {
	for _, cmd := range cmds {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
	}
}
