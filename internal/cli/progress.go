package cli

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"golang.org/x/term"

	"ContractGuard/internal/domain"
)

var stageLabels = [...]string{
	"Uploading",
	"Reading the document",
	"Checking clauses",
	"Writing the report",
	"Done",
}

func stageLabel(stage int) string {
	if stage < 0 || stage >= len(stageLabels) {
		return ""
	}
	return stageLabels[stage]
}

// progressView renders job progress. On a terminal it redraws a single bar
// line; otherwise it prints a line whenever the stage or state changes.
type progressView struct {
	mu    sync.Mutex
	out   io.Writer
	isTTY bool
	bar   progress.Model

	lastStage int
	lastState domain.JobState
	drawn     bool
}

func newProgressView(out io.Writer) *progressView {
	isTTY := false
	if f, ok := out.(*os.File); ok {
		isTTY = term.IsTerminal(int(f.Fd()))
	}
	return &progressView{
		out:       out,
		isTTY:     isTTY,
		bar:       progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		lastStage: -1,
		lastState: -1,
	}
}

// Update is safe to pass as the job progress callback.
func (v *progressView) Update(p domain.Progress) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.isTTY {
		fmt.Fprintf(v.out, "\r%s %3.0f%%  %-22s", v.bar.ViewAs(p.Percent/100), p.Percent, stageLabel(p.Stage))
		v.drawn = true
		return
	}

	if p.Stage == v.lastStage && p.State == v.lastState {
		return
	}
	v.lastStage, v.lastState = p.Stage, p.State
	fmt.Fprintf(v.out, "[%3.0f%%] %s (%s)\n", p.Percent, stageLabel(p.Stage), p.State)
}

// Finish ends the redrawn line.
func (v *progressView) Finish() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.isTTY && v.drawn {
		fmt.Fprintln(v.out)
		v.drawn = false
	}
}
