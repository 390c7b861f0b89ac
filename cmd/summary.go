package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/lepinkainen/catalogfill/cmd/populate"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(18)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// renderSummary formats the headline numbers of a run for the terminal
func renderSummary(r *populate.Report) string {
	s := r.Summary()

	row := func(label string, value any) string {
		return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), fmt.Sprint(value))
	}

	lines := []string{
		titleStyle.Render("Populate run " + r.RunID),
		row("Pages", r.Pages),
		row("Products", s.Products),
		row("Games created", s.Created),
		row("Games skipped", s.Skipped),
		row("Games failed", s.Failed),
		row("Descriptions", s.Descriptions),
		row("Covers", s.Covers),
		row("Gallery images", s.GalleryImages),
		row("Entities created", s.EntitiesCreated),
		row("Duration", r.Duration().Round(time.Millisecond)),
	}

	if s.EntitiesFailed > 0 || s.Warnings > 0 {
		lines = append(lines, warnStyle.Render(fmt.Sprintf("%d entity failures, %d warnings", s.EntitiesFailed, s.Warnings)))
	}
	for _, item := range r.Items {
		if item.Status == populate.StatusFailed {
			lines = append(lines, errStyle.Render(fmt.Sprintf("%s: %s", item.Title, item.Error)))
		}
	}
	if r.Cancelled {
		lines = append(lines, warnStyle.Render("Run cancelled before all products were processed"))
	} else if r.Error != "" {
		lines = append(lines, errStyle.Render(r.Error))
	}

	return boxStyle.Render(strings.Join(lines, "\n"))
}
