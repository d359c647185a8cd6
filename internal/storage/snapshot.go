package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/user/secdash/internal/model"
)

// SnapshotRecord is one row of the refresh history.
type SnapshotRecord struct {
	ID              int64              `json:"id"`
	TakenAt         time.Time          `json:"takenAt"`
	Status          model.NetworkState `json:"status"`
	HostsMonitored  uint64             `json:"hostsMonitored"`
	ThreatsDetected uint64             `json:"threatsDetected"`
	Alerts          model.AlertStats   `json:"alerts"`
	Failures        int                `json:"failures"`
}

// SnapshotStorage handles refresh snapshot persistence.
type SnapshotStorage struct {
	db *DB
}

// NewSnapshotStorage creates a new snapshot storage handler.
func NewSnapshotStorage(db *DB) *SnapshotStorage {
	return &SnapshotStorage{db: db}
}

// Save stores a snapshot and returns its row id.
func (s *SnapshotStorage) Save(snap *model.Snapshot) (int64, error) {
	if snap == nil {
		return 0, fmt.Errorf("nil snapshot")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return 0, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	takenAt := snap.TakenAt
	if takenAt.IsZero() {
		takenAt = time.Now()
	}

	query := `INSERT INTO snapshots (taken_at, status, hosts_monitored, threats_detected,
			  alerts_total, alerts_high, alerts_medium, alerts_low, stats_source, failures, data)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var id int64
	err = s.db.WithLock(func() error {
		st := snap.AlertStats
		result, err := s.db.Exec(query,
			takenAt.UTC(), string(snap.Network.Status),
			int64(snap.Network.HostsMonitored), int64(snap.Network.ThreatsDetected),
			int64(st.Total), int64(st.High), int64(st.Medium), int64(st.Low),
			string(st.Source), len(snap.Failures), string(data))
		if err != nil {
			return err
		}
		id, err = result.LastInsertId()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return id, nil
}

// Latest returns the most recent stored snapshot, or nil when none exists.
func (s *SnapshotStorage) Latest() (*model.Snapshot, error) {
	var data string
	err := s.db.WithRLock(func() error {
		return s.db.QueryRow(`SELECT data FROM snapshots ORDER BY taken_at DESC, id DESC LIMIT 1`).Scan(&data)
	})
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}

	var snap model.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snap, nil
}

// History returns up to limit records, newest first.
func (s *SnapshotStorage) History(limit int) ([]SnapshotRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, taken_at, status, hosts_monitored, threats_detected,
			  alerts_total, alerts_high, alerts_medium, alerts_low, stats_source, failures
			  FROM snapshots ORDER BY taken_at DESC, id DESC LIMIT ?`

	var records []SnapshotRecord
	err := s.db.WithRLock(func() error {
		rows, err := s.db.Query(query, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				r      SnapshotRecord
				status string
				source sql.NullString
			)
			if err := rows.Scan(&r.ID, &r.TakenAt, &status, &r.HostsMonitored, &r.ThreatsDetected,
				&r.Alerts.Total, &r.Alerts.High, &r.Alerts.Medium, &r.Alerts.Low,
				&source, &r.Failures); err != nil {
				return fmt.Errorf("failed to scan snapshot: %w", err)
			}
			r.Status = model.NetworkState(status)
			r.Alerts.Source = model.StatsSource(source.String)
			records = append(records, r)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	return records, nil
}

// Prune deletes snapshots taken before the cutoff and returns how many
// rows were removed.
func (s *SnapshotStorage) Prune(before time.Time) (int64, error) {
	var n int64
	err := s.db.WithLock(func() error {
		result, err := s.db.Exec(`DELETE FROM snapshots WHERE taken_at < ?`, before.UTC())
		if err != nil {
			return err
		}
		n, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}
	return n, nil
}

// Count returns the number of stored snapshots.
func (s *SnapshotStorage) Count() (int, error) {
	var count int
	err := s.db.WithRLock(func() error {
		return s.db.QueryRow("SELECT COUNT(*) FROM snapshots").Scan(&count)
	})
	return count, err
}
