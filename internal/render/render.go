// Package render formats entries, sources and warnings for the terminal.
package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"feedshelf/internal/model"
)

const (
	dateLayout = "02 Jan 06"
	listHint   = `No feeds subscribed. Use "feedshelf sub <url>" to add one.`
)

var (
	titleStyle = color.New(color.Bold)
	linkStyle  = color.New(color.FgBlue)
	errStyle   = color.New(color.FgRed)
	warnStyle  = color.New(color.FgYellow)
)

// EntryLine formats e as "DD Mon YY | label | title | link".
func EntryLine(e *model.Entry, label string) string {
	return fmt.Sprintf("%s | %s | %s | %s",
		e.EffectiveDate().Format(dateLayout),
		label,
		titleStyle.Sprint(e.Title),
		linkStyle.Sprint(e.Link),
	)
}

// SourceLine formats src as "id | title-or-url | url | status".
func SourceLine(src *model.Source, now time.Time) string {
	name := src.Title
	if name == "" {
		name = src.URL
	}

	var status string
	switch {
	case src.LastError != "":
		status = errStyle.Sprint("ERROR: " + src.LastError)
	case src.LastFetchedAt != nil:
		status = "OK (last fetched " + humanize.RelTime(*src.LastFetchedAt, now, "ago", "from now") + ")"
	default:
		status = "Never fetched"
	}

	return fmt.Sprintf("%s | %s | %s | %s", src.ID, name, src.URL, status)
}

// Printer writes formatted output. Regular output goes to Out, warnings to Err.
type Printer struct {
	Out     io.Writer
	Err     io.Writer
	NewLine bool
	Now     func() time.Time
}

// NewPrinter creates a Printer. newLine adds a blank line after each entry.
func NewPrinter(out, errOut io.Writer, newLine bool) *Printer {
	return &Printer{Out: out, Err: errOut, NewLine: newLine, Now: time.Now}
}

// Entries prints one line per entry in the given order.
func (p *Printer) Entries(entries []model.Entry, labelFor func(sourceID string) string) {
	for i := range entries {
		_, _ = fmt.Fprintln(p.Out, EntryLine(&entries[i], labelFor(entries[i].SourceID)))
		if p.NewLine {
			_, _ = fmt.Fprintln(p.Out)
		}
	}
}

// Sources prints the subscription list, or a hint when there is none.
func (p *Printer) Sources(sources []model.Source) {
	if len(sources) == 0 {
		p.Hint()
		return
	}
	now := p.Now()
	for i := range sources {
		_, _ = fmt.Fprintln(p.Out, SourceLine(&sources[i], now))
	}
}

// Hint prints the message shown when nothing is subscribed.
func (p *Printer) Hint() {
	_, _ = fmt.Fprintln(p.Out, listHint)
}

// Printf writes a plain message line to Out.
func (p *Printer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.Out, format+"\n", args...)
}

// Warnings prints the post-output block listing sources with a last error.
// Nothing is printed when failing is empty.
func (p *Printer) Warnings(failing []model.Source) {
	if len(failing) == 0 {
		return
	}
	_, _ = io.WriteString(p.Err, FormatWarnings(failing))
}

// FormatWarnings builds the warning block for failing sources.
func FormatWarnings(failing []model.Source) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(warnStyle.Sprintf("Warning: %d source(s) had errors:", len(failing)))
	b.WriteString("\n")
	for i := range failing {
		fmt.Fprintf(&b, "- %s (%s)\n", failing[i].Label(), failing[i].LastError)
	}
	b.WriteString("Run \"feedshelf list\" for more details.\n")
	return b.String()
}
