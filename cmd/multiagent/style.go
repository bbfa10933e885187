package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	speakerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	userStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

const ruleWidth = 50

func banner(w io.Writer, title string) {
	fmt.Fprintln(w, titleStyle.Render(title))
	fmt.Fprintln(w, dimStyle.Render(strings.Repeat("=", ruleWidth)))
}

func section(w io.Writer, title string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render(title))
	fmt.Fprintln(w, dimStyle.Render(strings.Repeat("-", ruleWidth)))
}

func speaker(w io.Writer, name, content string) {
	fmt.Fprintf(w, "%s %s\n\n", speakerStyle.Render("["+name+"]"), content)
}
