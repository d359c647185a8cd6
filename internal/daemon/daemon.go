// Package daemon runs the background poller that keeps a fresh snapshot of
// the analysis backend, its history and the report archive.
package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/user/secdash/internal/metrics"
	"github.com/user/secdash/internal/monitor"
	"github.com/user/secdash/internal/report"
	"github.com/user/secdash/internal/service"
	"github.com/user/secdash/internal/storage"
	"github.com/user/secdash/internal/util"
)

// PIDFile is the daemon pid file name inside the data directory.
const PIDFile = "secdash.pid"

// Daemon manages the background service.
type Daemon struct {
	config    *util.Config
	scheduler *Scheduler
	poller    *Poller
	svc       *service.Service
	db        *storage.DB
	snapshots *storage.SnapshotStorage
	reports   *storage.ReportStorage
	generator *report.Generator
	pidFile   string
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	running   bool
	startTime time.Time
	mu        sync.RWMutex
}

// New creates a new daemon instance.
func New(cfg *util.Config) (*Daemon, error) {
	svc, err := service.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}

	db, err := storage.Open(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Daemon{
		config:    cfg,
		svc:       svc,
		db:        db,
		snapshots: storage.NewSnapshotStorage(db),
		reports:   storage.NewReportStorage(db),
		generator: report.NewGenerator(),
		pidFile:   filepath.Join(cfg.DataDir, PIDFile),
		ctx:       ctx,
		cancel:    cancel,
	}

	d.poller = NewPoller(svc, d.snapshots)
	d.scheduler = NewScheduler(ctx)

	return d, nil
}

// Start starts the daemon.
func (d *Daemon) Start() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon already running")
	}
	d.running = true
	d.startTime = time.Now()
	d.mu.Unlock()

	if err := d.writePIDFile(); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}

	util.Info("Daemon starting against %s (%s revision)", d.config.BackendURL, d.svc.Revision())

	d.registerJobs()

	util.WatchConfig(func(cfg *util.Config) {
		d.scheduler.SetInterval(JobRefresh, cfg.RefreshInterval)
		d.scheduler.SetInterval(JobReportArchive, cfg.ReportInterval)
	})

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.scheduler.Run()
	}()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		monitor.Run(d.ctx, d.poller, logEvent)
	}()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.handleSignals()
	}()

	util.Info("Daemon started with PID %d", os.Getpid())

	return nil
}

// Wait waits for the daemon to finish.
func (d *Daemon) Wait() {
	d.wg.Wait()
}

// Stop stops the daemon gracefully.
func (d *Daemon) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = false
	d.mu.Unlock()

	util.Info("Daemon stopping...")

	// aborts in-flight backend requests
	d.cancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		util.Info("Daemon stopped gracefully")
	case <-time.After(30 * time.Second):
		util.Warn("Daemon stop timed out")
	}

	d.removePIDFile()
	if err := WriteStatusFile(d.config.DataDir, d.GetStatus()); err != nil {
		util.Warn("Failed to write status file: %v", err)
	}
	if d.db != nil {
		d.db.Close()
	}

	return nil
}

// logEvent records a snapshot change. Alerts, dangerous hosts and a
// degraded backend are warnings.
func logEvent(e monitor.Event) {
	metrics.EventsTotal.WithLabelValues(string(e.Kind)).Inc()
	switch e.Kind {
	case monitor.EventNewAlert, monitor.EventHostDangerous, monitor.EventDegraded:
		util.Warn("Event %s: %s", e.Kind, e.Message)
	default:
		util.Info("Event %s: %s", e.Kind, e.Message)
	}
}

func (d *Daemon) handleSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		util.Info("Received signal: %v", sig)
		// Stop waits on this goroutine's WaitGroup slot
		go d.Stop()
	case <-d.ctx.Done():
		return
	}
}

func (d *Daemon) writePIDFile() error {
	pid := os.Getpid()
	return os.WriteFile(d.pidFile, []byte(strconv.Itoa(pid)), 0644)
}

func (d *Daemon) removePIDFile() {
	os.Remove(d.pidFile)
}

// IsRunning returns whether the daemon is running.
func (d *Daemon) IsRunning() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.running
}

// GetStatus returns the daemon status.
func (d *Daemon) GetStatus() *DaemonStatus {
	d.mu.RLock()
	defer d.mu.RUnlock()

	status := &DaemonStatus{
		Running:   d.running,
		PID:       os.Getpid(),
		StartTime: d.startTime,
		Uptime:    time.Since(d.startTime),
		Backend:   d.config.BackendURL,
		Revision:  d.svc.Revision(),
		Jobs:      d.scheduler.GetJobStatuses(),
	}
	if snap := d.poller.Latest(); snap != nil {
		status.LastSnapshot = snap.TakenAt
		status.NetworkState = string(snap.Network.Status)
		status.Failures = len(snap.Failures)
	}
	return status
}

// DaemonStatus holds the current daemon status.
type DaemonStatus struct {
	Running      bool
	PID          int
	StartTime    time.Time
	Uptime       time.Duration
	Backend      string
	Revision     string
	LastSnapshot time.Time
	NetworkState string
	Failures     int
	Jobs         []JobStatus
}

// Poller returns the snapshot poller.
func (d *Daemon) Poller() *Poller {
	return d.poller
}

// Snapshots returns the snapshot history store.
func (d *Daemon) Snapshots() *storage.SnapshotStorage {
	return d.snapshots
}

// Service returns the backend service.
func (d *Daemon) Service() *service.Service {
	return d.svc
}

// GetConfig returns the configuration.
func (d *Daemon) GetConfig() *util.Config {
	return d.config
}

// GetContext returns the daemon context.
func (d *Daemon) GetContext() context.Context {
	return d.ctx
}
