package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/user/secdash/internal/daemon"
	"github.com/user/secdash/internal/util"
	"github.com/user/secdash/internal/web"
)

var (
	foreground   bool
	withWeb      bool
	startWebPort int
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the secdash poller daemon",
	Long: `Start the secdash daemon in the background. It refreshes a snapshot of
the backend every refresh_interval, stores the snapshot history and archives
the synthesized reports.`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVarP(&foreground, "foreground", "f", false,
		"Run in foreground instead of daemonizing")
	startCmd.Flags().BoolVar(&withWeb, "with-web", false,
		"Also start the web gateway")
	startCmd.Flags().IntVar(&startWebPort, "web-port", 0,
		"Port for the web gateway (default web_port)")
}

func runStart(cmd *cobra.Command, args []string) error {
	running, pid := daemon.CheckRunning(cfg.DataDir)
	if running {
		fmt.Printf("Daemon is already running (PID %d)\n", pid)
		return nil
	}

	if startWebPort == 0 {
		startWebPort = cfg.WebPort
	}

	if foreground {
		return runForeground()
	}

	return runDaemon()
}

func runForeground() error {
	fmt.Println("Starting secdash in foreground mode...")

	d, err := daemon.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	if err := d.Start(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	if withWeb {
		srv := web.NewServer(d.Service(), d.Poller(), d.Snapshots(), cfg, startWebPort)
		go func() {
			fmt.Printf("Web gateway: http://localhost:%d\n", startWebPort)
			if err := srv.Start(d.GetContext()); err != nil {
				util.Error("Web server error: %v", err)
			}
		}()
	}

	fmt.Println("secdash daemon started. Press Ctrl+C to stop.")

	d.Wait()

	return nil
}

func runDaemon() error {
	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	args := []string{"start", "--foreground"}
	if cfgFile != "" {
		args = append(args, "--config", cfgFile)
	}
	if withWeb {
		args = append(args, "--with-web", "--web-port", fmt.Sprintf("%d", startWebPort))
	}

	if err := util.EnsureDir(cfg.DataDir); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	// stdout and stderr of the child go to a console log next to the
	// rotated structured log.
	consoleLog := cfg.LogFile + ".console"
	logFile, err := os.OpenFile(consoleLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()

	procAttr := &os.ProcAttr{
		Dir:   cfg.DataDir,
		Env:   os.Environ(),
		Files: []*os.File{nil, logFile, logFile},
		Sys:   detachedProcAttr(),
	}

	proc, err := os.StartProcess(executable, append([]string{executable}, args...), procAttr)
	if err != nil {
		return fmt.Errorf("failed to start daemon process: %w", err)
	}

	if err := proc.Release(); err != nil {
		util.Warn("Failed to release process: %v", err)
	}

	fmt.Printf("secdash daemon started (PID %d)\n", proc.Pid)
	fmt.Printf("Logs: %s\n", cfg.LogFile)
	if withWeb {
		fmt.Printf("Web gateway: http://localhost:%d\n", startWebPort)
	}

	return nil
}
