package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/user/secdash/internal/model"
)

// ArchivedReport is a report stored by the archive job.
type ArchivedReport struct {
	ArchiveID string       `json:"archiveId"`
	CreatedAt time.Time    `json:"createdAt"`
	Report    model.Report `json:"report"`
}

// ReportStorage handles archived report persistence.
type ReportStorage struct {
	db *DB
}

// NewReportStorage creates a new report storage handler.
func NewReportStorage(db *DB) *ReportStorage {
	return &ReportStorage{db: db}
}

// Archive stores a batch of reports in one transaction and returns the
// archive ids in input order.
func (s *ReportStorage) Archive(reports []model.Report) ([]string, error) {
	ids := make([]string, 0, len(reports))
	now := time.Now().UTC()

	err := s.db.WithLock(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		stmt, err := tx.Prepare(`INSERT INTO reports (id, report_id, name, type, format, size, created_at, data)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, r := range reports {
			data, err := json.Marshal(r)
			if err != nil {
				return fmt.Errorf("failed to encode report %s: %w", r.ID, err)
			}
			id := uuid.NewString()
			if _, err := stmt.Exec(id, r.ID, r.Name, string(r.Type), string(r.Format), r.Size, now, string(data)); err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return tx.Commit()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to archive reports: %w", err)
	}
	return ids, nil
}

// List returns up to limit archived reports, newest first. An empty
// reportID matches every kind.
func (s *ReportStorage) List(reportID string, limit int) ([]ArchivedReport, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, created_at, data FROM reports
			  WHERE (? = '' OR report_id = ?)
			  ORDER BY created_at DESC, rowid DESC LIMIT ?`

	var out []ArchivedReport
	err := s.db.WithRLock(func() error {
		rows, err := s.db.Query(query, reportID, reportID, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			a, err := scanArchived(rows)
			if err != nil {
				return err
			}
			out = append(out, *a)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	return out, nil
}

// Get returns one archived report, or nil when the id is unknown.
func (s *ReportStorage) Get(archiveID string) (*ArchivedReport, error) {
	var a *ArchivedReport
	err := s.db.WithRLock(func() error {
		row := s.db.QueryRow(`SELECT id, created_at, data FROM reports WHERE id = ?`, archiveID)
		var err error
		a, err = scanArchived(row)
		return err
	})
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return a, nil
}

// Prune deletes reports archived before the cutoff.
func (s *ReportStorage) Prune(before time.Time) (int64, error) {
	var n int64
	err := s.db.WithLock(func() error {
		result, err := s.db.Exec(`DELETE FROM reports WHERE created_at < ?`, before.UTC())
		if err != nil {
			return err
		}
		n, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to prune reports: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanArchived(row scanner) (*ArchivedReport, error) {
	var (
		a    ArchivedReport
		data string
	)
	if err := row.Scan(&a.ArchiveID, &a.CreatedAt, &data); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(data), &a.Report); err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", a.ArchiveID, err)
	}
	return &a, nil
}

// Count returns the number of archived reports.
func (s *ReportStorage) Count() (int, error) {
	var count int
	err := s.db.WithRLock(func() error {
		return s.db.QueryRow("SELECT COUNT(*) FROM reports").Scan(&count)
	})
	return count, err
}
