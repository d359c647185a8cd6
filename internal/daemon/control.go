package daemon

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/user/secdash/internal/util"
)

// StatusFileName is the daemon status file name inside the data directory.
const StatusFileName = "status.json"

// CheckRunning checks if the daemon is already running.
func CheckRunning(dataDir string) (bool, int) {
	data, err := os.ReadFile(filepath.Join(dataDir, PIDFile))
	if err != nil {
		return false, 0
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return false, 0
	}

	if !processAlive(pid) {
		return false, 0
	}
	return true, pid
}

// SendStop asks the running daemon to shut down.
func SendStop(dataDir string) error {
	running, pid := CheckRunning(dataDir)
	if !running {
		return fmt.Errorf("daemon is not running")
	}

	if err := terminate(pid); err != nil {
		return fmt.Errorf("failed to send signal: %w", err)
	}
	return nil
}

// StatusFile holds serialized daemon status.
type StatusFile struct {
	Running      bool        `json:"running"`
	PID          int         `json:"pid"`
	StartTime    string      `json:"start_time"`
	Uptime       string      `json:"uptime"`
	Backend      string      `json:"backend"`
	Revision     string      `json:"revision"`
	LastSnapshot string      `json:"last_snapshot,omitempty"`
	NetworkState string      `json:"network_state,omitempty"`
	Failures     int         `json:"failures"`
	Jobs         []JobStatus `json:"jobs"`
}

// WriteStatusFile writes the daemon status to a file.
func WriteStatusFile(dataDir string, status *DaemonStatus) error {
	sf := StatusFile{
		Running:      status.Running,
		PID:          status.PID,
		StartTime:    status.StartTime.Format("2006-01-02 15:04:05"),
		Uptime:       status.Uptime.Round(time.Second).String(),
		Backend:      status.Backend,
		Revision:     status.Revision,
		NetworkState: status.NetworkState,
		Failures:     status.Failures,
		Jobs:         status.Jobs,
	}
	if !status.LastSnapshot.IsZero() {
		sf.LastSnapshot = status.LastSnapshot.Format("2006-01-02 15:04:05")
	}

	data, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		return err
	}

	if err := util.EnsureDir(dataDir); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dataDir, StatusFileName), data, 0644)
}

// ReadStatusFile reads the daemon status from a file.
func ReadStatusFile(dataDir string) (*StatusFile, error) {
	data, err := os.ReadFile(filepath.Join(dataDir, StatusFileName))
	if err != nil {
		return nil, err
	}

	var sf StatusFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, err
	}

	return &sf, nil
}
