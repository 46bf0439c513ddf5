package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/upk240z/zipimport/pkg/zipimport"
)

// summaryLine is one label/value pair of the run summary.
type summaryLine struct {
	label string
	value string
	warn  bool
}

func summaryLines(state *zipimport.RunState, table string) []summaryLine {
	elapsed := state.FinishedAt.Sub(state.StartedAt).Round(time.Millisecond)
	return []summaryLine{
		{label: "run", value: state.RunID.String()},
		{label: "table", value: table},
		{label: "processed", value: fmt.Sprintf("%d/%d (%.2f%%)", state.Processed, state.TotalLines, state.Percent())},
		{label: "loaded", value: fmt.Sprint(state.Loaded)},
		{label: "skipped", value: fmt.Sprintf("%d (ended before %d)", state.Skipped, state.CurrentYearMonth)},
		{label: "failed", value: fmt.Sprint(state.Failed), warn: state.Failed > 0},
		{label: "malformed", value: fmt.Sprint(state.Malformed), warn: state.Malformed > 0},
		{label: "elapsed", value: elapsed.String()},
	}
}

// RenderSummary formats the end-of-run report. ModePlain yields one
// "label: value" line per counter; ModeStyled draws a bordered panel.
func RenderSummary(state *zipimport.RunState, table string, mode Mode) string {
	lines := summaryLines(state, table)

	if mode != ModeStyled {
		var b strings.Builder
		fmt.Fprintf(&b, "import %s\n", state.Phase)
		for _, l := range lines {
			fmt.Fprintf(&b, "  %s: %s\n", l.label, l.value)
		}
		return b.String()
	}

	title := SuccessStyle.Render("Import " + state.Phase.String())
	if state.Phase == zipimport.PhaseAborted {
		title = ErrorStyle.Render("Import " + state.Phase.String())
	}

	rows := make([]string, 0, len(lines)+1)
	rows = append(rows, TitleStyle.Render(title))
	for _, l := range lines {
		value := l.value
		if l.warn {
			value = WarningStyle.Render(value)
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, LabelStyle.Render(l.label), value))
	}
	return BoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...)) + "\n"
}
