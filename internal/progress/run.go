package progress

import (
	tea "charm.land/bubbletea/v2"
)

// Run drives the live progress view until events is closed or the
// user quits it. Intended to run in its own goroutine alongside the
// replication run; events should be closed by the caller once the run
// finishes so Run returns.
func Run(events <-chan Event) error {
	p := tea.NewProgram(New(events))
	_, err := p.Run()
	return err
}
