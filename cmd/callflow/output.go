// Copyright (C) 2025 Voicegraph Labs (oss@voicegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Voicegraph palette.
var (
	ColorIndigo  = lipgloss.Color("#5B6ABF")
	ColorViolet  = lipgloss.Color("#8C7AE6")
	ColorSuccess = lipgloss.Color("#44BD87")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
	ColorMuted   = lipgloss.Color("#6B7280")
)

// Styles provides pre-configured lipgloss styles for CLI output.
var Styles = struct {
	Title   lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Box     lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(ColorViolet),
	Bold:    lipgloss.NewStyle().Bold(true),
	Muted:   lipgloss.NewStyle().Foreground(ColorMuted),
	Success: lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning: lipgloss.NewStyle().Foreground(ColorWarning),
	Error:   lipgloss.NewStyle().Foreground(ColorError),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorIndigo).
		Padding(0, 1),
}

func printSuccess(format string, args ...any) {
	fmt.Println(Styles.Success.Render("✓ " + fmt.Sprintf(format, args...)))
}

func printWarning(format string, args ...any) {
	fmt.Println(Styles.Warning.Render("⚠ " + fmt.Sprintf(format, args...)))
}
