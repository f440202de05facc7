package main

import (
	"fmt"
	"io"

	"charm.land/lipgloss/v2"
)

var (
	tagStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F5A97F"))
	msgStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#CAD3F5"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8AADF4")).Width(14)
	valueStyle = lipgloss.NewStyle().Bold(true)
)

// styledLogger prints progress lines with a colored tag.
type styledLogger struct {
	w   io.Writer
	tag string
}

func newLogger(w io.Writer) *styledLogger {
	return &styledLogger{w: w, tag: "lumen"}
}

func (l *styledLogger) Printf(format string, args ...any) {
	lipgloss.Fprintln(l.w, tagStyle.Render(l.tag)+" "+msgStyle.Render(fmt.Sprintf(format, args...)))
}

// field formats one "label value" row of a report.
func field(label string, value any) string {
	return labelStyle.Render(label) + valueStyle.Render(fmt.Sprint(value))
}
