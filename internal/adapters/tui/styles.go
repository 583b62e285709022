package tui

import styles "github.com/charmbracelet/lipgloss"

var (
	borderColor = styles.AdaptiveColor{Light: "#555", Dark: "#555"}
	dimColor    = styles.AdaptiveColor{Light: "#777", Dark: "#8a94a6"}
	warnColor   = styles.AdaptiveColor{Light: "1", Dark: "9"}

	// podium border per rank
	rankColors = []styles.AdaptiveColor{
		{Light: "#b8860b", Dark: "#f5c542"},
		{Light: "#708090", Dark: "#c0c7d1"},
		{Light: "#8b4513", Dark: "#cd7f32"},
	}

	titleStyle  = styles.NewStyle().Bold(true)
	clockStyle  = styles.NewStyle().Foreground(dimColor)
	headerStyle = styles.NewStyle().Foreground(dimColor).Underline(true)
	footerStyle = styles.NewStyle().Foreground(dimColor)
	staleStyle  = styles.NewStyle().Foreground(warnColor)
	alertStyle  = styles.NewStyle().Bold(true).Foreground(styles.Color("#222")).Background(styles.Color("#f5c542")).Padding(0, 1)
	plotStyle   = styles.NewStyle().
			BorderStyle(styles.NormalBorder()).
			Foreground(borderColor).
			BorderForeground(borderColor)
)

func podiumStyle(rank int) styles.Style {
	s := styles.NewStyle().
		Border(styles.RoundedBorder()).
		Padding(0, 1).
		Align(styles.Center)
	if rank >= 1 && rank <= len(rankColors) {
		s = s.BorderForeground(rankColors[rank-1])
	}
	return s
}
