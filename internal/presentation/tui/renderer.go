package tui

import (
	"fmt"
	"io"
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/aretw0/tendril"
)

// RenderStats writes a styled summary of the runtime aggregates.
// Styling is dropped when w is not a terminal.
func RenderStats(w io.Writer, st tendril.Stats) {
	out := termenv.NewOutput(w, termenv.WithProfile(termenv.Ascii))
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		out = termenv.NewOutput(w)
	}

	fmt.Fprintln(w, out.String("tendril runtime").Bold())
	row := func(label string, value any) {
		fmt.Fprintf(w, "  %s %v\n", out.String(fmt.Sprintf("%-22s", label)).Faint(), value)
	}
	row("context switches", st.Switches)
	row("switch delay", st.SwitchDelay)
	row("long runs", st.LongRuns)
	row("long run excess", st.LongRunTotal)
	row("live fibers", st.LiveFibers)
	row("stack bytes", st.StackBytes)
}
