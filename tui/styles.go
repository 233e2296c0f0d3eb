/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package tui

import "github.com/charmbracelet/lipgloss"

var (
	indigo = lipgloss.Color("#6366f1")
	green  = lipgloss.Color("#22c55e")
	amber  = lipgloss.Color("#f59e0b")
	red    = lipgloss.Color("#ef4444")
	muted  = lipgloss.Color("#6b7280")

	titleStyle    = lipgloss.NewStyle().Foreground(indigo).Bold(true).MarginBottom(1)
	questionStyle = lipgloss.NewStyle().Bold(true).Padding(1, 2).Border(lipgloss.RoundedBorder()).BorderForeground(indigo)
	helpStyle     = lipgloss.NewStyle().Foreground(muted).MarginTop(1)
	errorStyle    = lipgloss.NewStyle().Foreground(red).Bold(true)
	speakerStyle  = lipgloss.NewStyle().Foreground(indigo).Bold(true)
	historyStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(muted).Padding(0, 1)

	counterStyles = map[string]lipgloss.Style{
		"normal":  lipgloss.NewStyle().Foreground(green).Bold(true),
		"warning": lipgloss.NewStyle().Foreground(amber).Bold(true),
		"danger":  lipgloss.NewStyle().Foreground(red).Bold(true),
	}
)
