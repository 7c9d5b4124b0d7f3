// Package interact implements the "interaction strategy" of §9 design
// notes: every modal prompt the toolkit issues (crypto-flag fix-ups,
// legit-ticket fallback, BOSS hash fix) routes through an
// extern.Prompter, and this package supplies the two variants {NonInteractive,
// Prompt(fn)} that design note calls for.
package interact

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sargunv/ctrtool/lib/extern"
)

// NonInteractive answers every prompt with a fixed, documented default:
// Confirm always declines (the safer "don't fix" choice) and Select always
// picks option 0. Headless runs (batch installs, CI) use this so behavior
// is deterministic without a terminal attached.
type NonInteractive struct{}

var _ extern.Prompter = NonInteractive{}

func (NonInteractive) Confirm(ctx context.Context, label string) (bool, error) {
	return false, nil
}

func (NonInteractive) Select(ctx context.Context, label string, options []string) (int, error) {
	return 0, nil
}

// ErrNoTTY is returned by Prompt when bubbletea cannot take over the
// terminal (e.g. stdout is not a TTY).
var ErrNoTTY = errors.New("interact: no interactive terminal available")

// Prompt is the interactive variant: each Confirm/Select call runs a tiny
// bubbletea program that blocks until the user answers, mirroring the
// teacher's TUI stack even though this toolkit's own CLI is otherwise
// non-interactive line-oriented output.
type Prompt struct {
	// NewProgram, if set, overrides how the bubbletea program is built
	// (tests substitute this with an in-memory tea.Program using
	// tea.WithInput/tea.WithOutput against pipes).
	NewProgram func(tea.Model) *tea.Program
}

var _ extern.Prompter = Prompt{}

func (p Prompt) newProgram(m tea.Model) *tea.Program {
	if p.NewProgram != nil {
		return p.NewProgram(m)
	}
	return tea.NewProgram(m)
}

func (p Prompt) Confirm(ctx context.Context, label string) (bool, error) {
	idx, err := p.Select(ctx, label, []string{"Yes", "No"})
	if err != nil {
		return false, err
	}
	return idx == 0, nil
}

func (p Prompt) Select(ctx context.Context, label string, options []string) (int, error) {
	m := newSelectModel(label, options)
	prog := p.newProgram(m)

	done := make(chan struct{})
	var final selectModel
	var runErr error
	go func() {
		defer close(done)
		res, err := prog.Run()
		if err != nil {
			runErr = err
			return
		}
		final = res.(selectModel)
	}()

	select {
	case <-ctx.Done():
		prog.Quit()
		<-done
		return 0, ctx.Err()
	case <-done:
	}
	if runErr != nil {
		return 0, runErr
	}
	if final.cancelled {
		return 0, context.Canceled
	}
	return final.cursor, nil
}
