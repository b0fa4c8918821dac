// Package ui renders session output on a terminal.
package ui

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Velocidex/ordereddict"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/pterm/pterm"

	"github.com/nosyt-lien/preql/internal/diagnostics"
	"github.com/nosyt-lien/preql/internal/objects"
	"github.com/nosyt-lien/preql/internal/telemetry"
)

var (
	PrimaryColor   = lipgloss.Color("#00D9FF")
	SuccessColor   = lipgloss.Color("#00FF88")
	WarningColor   = lipgloss.Color("#FFB800")
	SecondaryColor = lipgloss.Color("#6C757D")

	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true)

	SecondaryStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor)

	errorColor = color.New(color.FgRed, color.Bold)
	kindColor  = color.New(color.FgYellow)
)

// Printer writes results and diagnostics in one output format.
type Printer struct {
	Out    io.Writer
	Err    io.Writer
	Format string
}

// New creates a printer. Format is "text" or "json".
func New(out, errOut io.Writer, format string) *Printer {
	return &Printer{Out: out, Err: errOut, Format: format}
}

// Value prints a localized value. Lists of rows become tables in text mode.
func (p *Printer) Value(v interface{}) error {
	if p.Format == "json" {
		_, err := fmt.Fprintln(p.Out, objects.ToJSON(v))
		return err
	}
	switch x := v.(type) {
	case []*ordereddict.Dict:
		return p.Table(x)
	case []interface{}:
		if rows, ok := dictRows(x); ok {
			return p.Table(rows)
		}
	}
	_, err := fmt.Fprintln(p.Out, objects.Repr(v))
	return err
}

func dictRows(items []interface{}) ([]*ordereddict.Dict, bool) {
	if len(items) == 0 {
		return nil, false
	}
	rows := make([]*ordereddict.Dict, len(items))
	for i, it := range items {
		d, ok := it.(*ordereddict.Dict)
		if !ok {
			return nil, false
		}
		rows[i] = d
	}
	return rows, true
}

// Table prints rows with a header taken from the first row.
func (p *Printer) Table(rows []*ordereddict.Dict) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(p.Out, SecondaryStyle.Render("(no rows)"))
		return err
	}
	headers := rows[0].Keys()
	data := pterm.TableData{headers}
	for _, r := range rows {
		line := make([]string, len(headers))
		for i, h := range headers {
			v, _ := r.Get(h)
			if s, ok := v.(string); ok {
				line[i] = s
			} else {
				line[i] = objects.Repr(v)
			}
		}
		data = append(data, line)
	}
	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(p.Out, out)
	return err
}

// Error prints err, with its call stack when it has one.
func (p *Printer) Error(err error) {
	if p.Format == "json" {
		fmt.Fprintln(p.Err, objects.ToJSON(errorDict(err)))
		return
	}
	var e *diagnostics.Error
	if errors.As(err, &e) {
		kindColor.Fprint(p.Err, e.Kind.String())
		errorColor.Fprintln(p.Err, strings.TrimPrefix(e.Trace(), e.Kind.String()))
		return
	}
	errorColor.Fprintln(p.Err, "Error: "+err.Error())
}

func errorDict(err error) *ordereddict.Dict {
	d := ordereddict.NewDict()
	var e *diagnostics.Error
	if errors.As(err, &e) {
		d.Set("kind", e.Kind.String()).Set("message", e.Message)
		if e.Pos.Line > 0 {
			d.Set("line", int64(e.Pos.Line)).Set("column", int64(e.Pos.Column))
		}
		return d
	}
	return d.Set("kind", "Error").Set("message", err.Error())
}

// Success prints a confirmation line.
func (p *Printer) Success(format string, args ...interface{}) {
	fmt.Fprintln(p.Out, SuccessStyle.Render("✓ "+fmt.Sprintf(format, args...)))
}

// Warning prints a warning line.
func (p *Printer) Warning(format string, args ...interface{}) {
	fmt.Fprintln(p.Err, WarningStyle.Render("⚠ "+fmt.Sprintf(format, args...)))
}

// Banner prints the REPL greeting.
func (p *Printer) Banner(title, subtitle string) {
	width := 60
	if w := pterm.GetTerminalWidth(); w > 0 && w < width {
		width = w
	}
	box := lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Padding(0, 2).
		Render(lipgloss.JoinVertical(lipgloss.Center,
			TitleStyle.Render(title),
			SecondaryStyle.Render(subtitle),
		))
	fmt.Fprintln(p.Out, box)
}

// Markdown renders markdown content.
func (p *Printer) Markdown(content string) error {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return err
	}
	out, err := r.Render(content)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(p.Out, out)
	return err
}

// Stats prints a telemetry summary.
func (p *Printer) Stats(s telemetry.Summary) error {
	if p.Format == "json" {
		d := ordereddict.NewDict().
			Set("queries", int64(s.Queries)).
			Set("execs", int64(s.Execs)).
			Set("errors", int64(s.Errors)).
			Set("duration_ms", s.Duration.Seconds()*1000)
		_, err := fmt.Fprintln(p.Err, objects.ToJSON(d))
		return err
	}
	data := pterm.TableData{
		{"queries", "execs", "errors", "duration"},
		{fmt.Sprint(s.Queries), fmt.Sprint(s.Execs), fmt.Sprint(s.Errors), s.Duration.String()},
	}
	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(p.Err, out)
	return err
}
