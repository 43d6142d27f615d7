package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
)

var (
	// https://github.com/muesli/termenv/blob/master/ansicolors.go
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	gray   = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	bold   = lipgloss.NewStyle().Bold(true)
)

const labelWidth = 16

// saveName joins the words of a multi word name argument.
func saveName(args []string) string {
	return strings.Join(args, " ")
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}

func formatAge(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return formatTime(t) + " (" + humanize.Time(*t) + ")"
}

func formatSize(size int64, known bool) string {
	if !known {
		return "-"
	}
	return humanize.Bytes(uint64(size))
}

// printField writes one "Label  value" line of a detail view.
func printField(w io.Writer, label string, value string) {
	fmt.Fprintf(w, "%s%s\n", gray.Render(fmt.Sprintf("%-*s", labelWidth, label)), value)
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(gray).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return style.Bold(true)
			}
			return style
		})
}
