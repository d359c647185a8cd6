package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/secdash/internal/daemon"
	"github.com/user/secdash/internal/storage"
	"github.com/user/secdash/internal/web"
)

var webPort int

var webCmd = &cobra.Command{
	Use:   "web",
	Short: "Start the web gateway",
	Long: `Start a JSON gateway over the backend views.

The gateway provides:
- Dashboard, hosts, alerts and analysis views under /api
- Report listing and JSON/CSV downloads
- Settings read, validated write and reset
- A websocket snapshot stream on /ws and Prometheus metrics on /metrics

Examples:
  secdash web
  secdash web --port 8080`,
	RunE: runWeb,
}

func init() {
	webCmd.Flags().IntVarP(&webPort, "port", "p", 0, "Web server port (default web_port)")
}

func runWeb(cmd *cobra.Command, args []string) error {
	if webPort == 0 {
		webPort = cfg.WebPort
	}

	ctx, cancel := signalContext()
	defer cancel()

	svc, err := newService()
	if err != nil {
		return err
	}

	db, err := storage.Open(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()
	snapshots := storage.NewSnapshotStorage(db)

	poller := daemon.NewPoller(svc, snapshots)
	scheduler := daemon.NewScheduler(ctx)
	scheduler.AddJob(&daemon.Job{
		Name:     daemon.JobRefresh,
		Interval: cfg.RefreshInterval,
		Run: func(ctx context.Context) error {
			_, err := poller.Refresh(ctx)
			return err
		},
	})
	go scheduler.Run()

	fmt.Printf("Starting web gateway on http://localhost:%d\n", webPort)
	fmt.Println("Press Ctrl+C to stop")

	srv := web.NewServer(svc, poller, snapshots, cfg, webPort)
	return srv.Start(ctx)
}
