package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#FAFAFA")).
	Background(lipgloss.Color("#7D56F4")).
	Padding(1, 5).
	MarginBottom(1).
	Align(lipgloss.Center).
	Border(lipgloss.RoundedBorder())

// printBanner writes the header to stderr so stdout carries only command output.
func printBanner(cmd *cobra.Command, title string) {
	fmt.Fprintln(cmd.ErrOrStderr(), headerStyle.Render(title))
}
