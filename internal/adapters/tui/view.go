package tui

import (
	"fmt"
	"strings"

	styles "github.com/charmbracelet/lipgloss"

	"github.com/okian/standings/internal/domain/render"
	"github.com/okian/standings/pkg/metrics"
)

// View draws the screen.
func (m *Model) View() string {
	if !m.hasBoard {
		return styles.JoinVertical(styles.Left,
			m.titleBar("Waiting for data"),
			m.footer(),
			m.help.View(keys))
	}

	body := styles.JoinHorizontal(styles.Top,
		m.viewport.View(),
		plotStyle.Render(m.plot.String()))

	return styles.JoinVertical(styles.Left,
		m.titleBar(m.current.Title),
		m.podium(),
		headerStyle.Render(m.columnHeader()),
		body,
		m.alertLine(),
		m.footer(),
		m.help.View(keys))
}

func (m *Model) titleBar(title string) string {
	left := titleStyle.Render(title)
	if !m.settings.AutoRotate {
		left += clockStyle.Render("  (rotation paused)")
	}
	clock := clockStyle.Render(m.now.Format(clockLayout))
	gap := max(1, m.width-styles.Width(left)-styles.Width(clock))
	return left + strings.Repeat(" ", gap) + clock
}

func (m *Model) podium() string {
	if len(m.current.Top) == 0 {
		return strings.Repeat("\n", podiumLines-1)
	}
	cardW := max(maxNameWidth, m.width/max(1, len(m.current.Top))-2)
	cards := make([]string, len(m.current.Top))
	for i, r := range m.current.Top {
		cards[i] = podiumStyle(r.Rank).Width(cardW).Render(
			fmt.Sprintf("#%d %s\n%d", r.Rank, truncate(r.Name, cardW-4), r.Score))
	}
	return styles.JoinHorizontal(styles.Top, cards...)
}

// columnHeader labels the row layout written by rowLines.
func (m *Model) columnHeader() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%*s  %-*s", rankColumnWidth, "#", maxNameWidth, "Name"))
	if r, ok := m.current.Leader(); ok {
		for _, c := range r.Metrics {
			sb.WriteString(fmt.Sprintf(" %*s", metricColumnWidth, truncate(c.Label, metricColumnWidth)))
		}
	}
	sb.WriteString(fmt.Sprintf(" %*s", scoreColumnWidth, "Score"))
	return sb.String()
}

func (m *Model) rowLines() []string {
	out := make([]string, len(m.current.Records))
	for i, r := range m.current.Records {
		out[i] = formatRow(r)
	}
	return out
}

func formatRow(r render.Record) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%*d  %-*s", rankColumnWidth, r.Rank, maxNameWidth, truncate(r.Name, maxNameWidth)))
	for _, c := range r.Metrics {
		sb.WriteString(fmt.Sprintf(" %*s", metricColumnWidth, truncate(c.Value, metricColumnWidth)))
	}
	sb.WriteString(fmt.Sprintf(" %*d", scoreColumnWidth, r.Score))
	return sb.String()
}

func joinLines(lines []string) string { return strings.Join(lines, "\n") }

func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}

func (m *Model) alertLine() string {
	if m.alert == nil {
		return ""
	}
	return alertStyle.Render(fmt.Sprintf("New leader on %s %s: %s",
		m.alert.Dataset.Title(), m.alert.Mode.Title(), m.alert.Leader))
}

// footer shows the board status and running totals from the metrics registry.
func (m *Model) footer() string {
	status := "Waiting for data"
	style := footerStyle
	if m.hasBoard {
		status = m.current.Status
		if m.current.Stale {
			style = staleStyle
		}
	}
	if m.err != nil {
		status = "Error: " + m.err.Error()
		style = staleStyle
	}
	refreshes, _ := metrics.Sum("refreshes_total")
	changes, _ := metrics.Sum("leader_changes_total")
	totals := footerStyle.Render(fmt.Sprintf("  refreshes %d  leader changes %d", int(refreshes), int(changes)))
	return style.Render(status) + totals
}
