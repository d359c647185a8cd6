package main

import (
	"github.com/spf13/cobra"

	"github.com/user/secdash/internal/tui"
)

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Launch the terminal dashboard",
	Long: `Launch an interactive terminal dashboard showing live security status.

The dashboard shows:
- Network status and threat percentage
- Alert counts and recent high alerts
- Monitored hosts, most anomalous first

Press 'r' to refresh, 'q' to quit.`,
	RunE: runUI,
}

func runUI(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	svc, err := newService()
	if err != nil {
		return err
	}

	app := tui.NewApp(svc, cfg.RefreshInterval, svc.Revision())
	return app.Run(ctx)
}
