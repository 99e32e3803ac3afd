package nav

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fundwatch/internal/domain"
)

// maxErrorMsgLen bounds the error excerpt stored in the audit trail.
const maxErrorMsgLen = 500

// UpdateLogRepository appends to and reads the pipeline audit trail.
type UpdateLogRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewUpdateLogRepository creates a new update log repository
func NewUpdateLogRepository(db *sql.DB, log zerolog.Logger) *UpdateLogRepository {
	return &UpdateLogRepository{
		db:  db,
		log: log.With().Str("repo", "update_log").Logger(),
	}
}

// Append writes one audit entry. The error message is truncated to a
// bounded excerpt so upstream exception text cannot bloat the log.
func (r *UpdateLogRepository) Append(entry domain.UpdateLogEntry) error {
	msg := entry.ErrorMsg
	if len(msg) > maxErrorMsgLen {
		msg = msg[:maxErrorMsgLen]
	}

	_, err := r.db.Exec(`
		INSERT INTO data_update_log (run_id, table_name, as_of_date, record_count, status, error_msg, start_time, end_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID,
		entry.TableName,
		entry.AsOfDate.Format(dateLayout),
		entry.RecordCount,
		string(entry.Status),
		msg,
		entry.StartTime.UTC().Format(datetimeLayout),
		entry.EndTime.UTC().Format(datetimeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to append update log entry: %w", err)
	}
	return nil
}

// RecentProblems returns FAILURE and PARTIAL entries that finished
// after the given time, newest first.
func (r *UpdateLogRepository) RecentProblems(since time.Time) ([]domain.UpdateLogEntry, error) {
	rows, err := r.db.Query(`
		SELECT id, run_id, table_name, as_of_date, record_count, status, error_msg, start_time, end_time
		FROM data_update_log
		WHERE status IN ('FAILURE', 'PARTIAL') AND end_time > ?
		ORDER BY end_time DESC`,
		since.UTC().Format(datetimeLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to query update log problems: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// LastSuccessByTable maps each table to the as-of date of its most
// recent SUCCESS or PARTIAL entry, for the freshness check.
func (r *UpdateLogRepository) LastSuccessByTable() (map[string]time.Time, error) {
	rows, err := r.db.Query(`
		SELECT table_name, MAX(as_of_date)
		FROM data_update_log
		WHERE status IN ('SUCCESS', 'PARTIAL')
		GROUP BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query last updates: %w", err)
	}
	defer rows.Close()

	out := make(map[string]time.Time)
	for rows.Next() {
		var table, dateStr string
		if err := rows.Scan(&table, &dateStr); err != nil {
			return nil, fmt.Errorf("failed to scan last update: %w", err)
		}
		if d, err := time.Parse(dateLayout, dateStr); err == nil {
			out[table] = d
		}
	}

	return out, rows.Err()
}

func scanEntries(rows *sql.Rows) ([]domain.UpdateLogEntry, error) {
	var out []domain.UpdateLogEntry
	for rows.Next() {
		var (
			e         domain.UpdateLogEntry
			asOf      string
			status    string
			errorMsg  sql.NullString
			startTime string
			endTime   string
		)
		if err := rows.Scan(&e.ID, &e.RunID, &e.TableName, &asOf, &e.RecordCount, &status, &errorMsg, &startTime, &endTime); err != nil {
			return nil, fmt.Errorf("failed to scan update log entry: %w", err)
		}
		if d, err := time.Parse(dateLayout, asOf); err == nil {
			e.AsOfDate = d
		}
		if t, err := time.Parse(datetimeLayout, startTime); err == nil {
			e.StartTime = t
		}
		if t, err := time.Parse(datetimeLayout, endTime); err == nil {
			e.EndTime = t
		}
		e.Status = domain.UpdateStatus(status)
		e.ErrorMsg = errorMsg.String
		out = append(out, e)
	}

	return out, rows.Err()
}
