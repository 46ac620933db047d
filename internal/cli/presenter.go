package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"golang.org/x/term"

	"github.com/vvka-141/msgload/internal/pipeline"
)

var (
	colorSuccess = lipgloss.Color("34")  // Green
	colorWarning = lipgloss.Color("214") // Orange
	colorMuted   = lipgloss.Color("240") // Dark gray
)

// presenter writes the end-of-run summary. Colors are only used when the
// writer is a terminal and NO_COLOR is unset.
type presenter struct {
	w       io.Writer
	styled  bool
	success lipgloss.Style
	warning lipgloss.Style
	muted   lipgloss.Style
}

func newPresenter(w io.Writer) *presenter {
	r := lipgloss.NewRenderer(w)
	return &presenter{
		w:       w,
		styled:  isTerminal(w) && os.Getenv("NO_COLOR") == "",
		success: r.NewStyle().Foreground(colorSuccess).Bold(true),
		warning: r.NewStyle().Foreground(colorWarning),
		muted:   r.NewStyle().Foreground(colorMuted),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (p *presenter) render(s lipgloss.Style, text string) string {
	if !p.styled {
		return text
	}
	return s.Render(text)
}

// Success prints the final line and a one-line summary of the run.
func (p *presenter) Success(res *pipeline.Result) {
	fmt.Fprintln(p.w, p.render(p.success, "✓ Cleaned data saved to database!"))
	fmt.Fprintln(p.w, p.render(p.muted, fmt.Sprintf("  %s rows written to %s (%s duplicates removed, %s related values corrected) in %s",
		humanize.Comma(int64(res.RowsWritten)),
		res.Table,
		humanize.Comma(int64(res.Clean.DuplicatesRemoved)),
		humanize.Comma(int64(res.Clean.RelatedCorrected)),
		res.Duration.Round(time.Millisecond),
	)))
}

// Interrupt reports that a signal cancelled the run.
func (p *presenter) Interrupt(msg string) {
	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, p.render(p.warning, "[INTERRUPT] "+msg))
}
