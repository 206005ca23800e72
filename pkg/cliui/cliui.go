// Package cliui provides reusable terminal UI helpers (spinners, step
// indicators, score bars) for intents CLI commands.
package cliui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	SuccessMark  = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("✓")
	FailMark     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗")
	StepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	barStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))

	KeyStyle   = lipgloss.NewStyle().Bold(true)
	ValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	DimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// spinnerFrames is the braille dot spinner.
var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

// Step prints an animated spinner while fn runs, then replaces it with
// a ✓ or ✗ checkmark and elapsed time.
func Step(w io.Writer, msg string, fn func() error) error {
	done := make(chan struct{})
	stopped := make(chan struct{})

	// Run spinner animation in background
	go func() {
		defer close(stopped)

		frame := 0
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for {
			fmt.Fprintf(w, "\r  %s %s",
				spinnerStyle.Render(spinnerFrames[frame%len(spinnerFrames)]),
				msg,
			)

			select {
			case <-done:
				return
			case <-ticker.C:
				frame++
			}
		}
	}()

	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	close(done)
	<-stopped

	// Clear the spinner line and print final result
	fmt.Fprintf(w, "\r  %s %s %s\n",
		Mark(err),
		msg,
		StepStyle.Render(fmt.Sprintf("(%s)", FormatDuration(elapsed))),
	)

	return err
}

// Mark returns a ✓ for nil errors or ✗ for non-nil errors.
func Mark(err error) string {
	if err != nil {
		return FailMark
	}
	return SuccessMark
}

// FormatDuration formats a duration for display (e.g. "12ms" or "3.2s").
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// ScoreBar renders a similarity score in [0, 1] as a fixed-width bar
// followed by the score itself.
func ScoreBar(score float64, width int) string {
	if width <= 0 {
		width = 20
	}
	filled := int(score*float64(width) + 0.5)
	filled = max(0, min(width, filled))

	return fmt.Sprintf("%s%s %.4f",
		barStyle.Render(strings.Repeat("█", filled)),
		StepStyle.Render(strings.Repeat("░", width-filled)),
		score,
	)
}
