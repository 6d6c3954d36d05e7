package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/twopeaks/controlroom/internal/tui"
)

// The console is the reviewer's terminal front end. It only talks to the
// API, so several reviewers can run it against one server.
func main() {
	_ = godotenv.Load()

	var apiURL, reviewer string
	cmd := &cobra.Command{
		Use:          "console",
		Short:        "Review queued outreach and fulfillment drafts",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if reviewer == "" {
				return fmt.Errorf("--reviewer is required")
			}
			p := tea.NewProgram(tui.NewApp(tui.NewAPIClient(apiURL), reviewer),
				tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			_, err := p.Run()
			return err
		},
	}
	cmd.Flags().StringVar(&apiURL, "api", envOr("CONSOLE_API_URL", "http://localhost:8080"), "control room API base URL")
	cmd.Flags().StringVar(&reviewer, "reviewer", envOr("APP_REVIEWER", os.Getenv("USER")), "name recorded on decisions")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
