package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/feeline-api/internal/models"
)

// LogRepository appends audit rows. Logs are append-only; there is no
// update or delete path.
type LogRepository struct {
	db *sqlx.DB
}

// NewLogRepository constructs a LogRepository.
func NewLogRepository(db *sqlx.DB) *LogRepository {
	return &LogRepository{db: db}
}

// Append writes one audit entry, assigning its LOG display id from a sequence.
func (r *LogRepository) Append(ctx context.Context, entry *models.LogEntry) error {
	const idQuery = `SELECT 'LOG' || LPAD(nextval('log_display_id_seq')::text, 3, '0')`
	if err := r.db.GetContext(ctx, &entry.LogID, idQuery); err != nil {
		return fmt.Errorf("next log id: %w", err)
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	const query = `INSERT INTO action_logs (log_id, action, stud_id, raw_message, parsed_json, result, error_msg, performed_by, timestamp)
        VALUES (:log_id, :action, :stud_id, :raw_message, :parsed_json, :result, :error_msg, :performed_by, :timestamp)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("append log: %w", err)
	}
	return nil
}

// List returns audit entries newest first, filtered and paginated.
func (r *LogRepository) List(ctx context.Context, filter models.LogFilter) ([]models.LogEntry, int, error) {
	where := " WHERE 1=1"
	args := []interface{}{}
	argPos := 1

	if filter.Action != "" {
		where += " AND action = $" + strconv.Itoa(argPos)
		args = append(args, filter.Action)
		argPos++
	}
	if filter.StudID != "" {
		where += " AND stud_id = $" + strconv.Itoa(argPos)
		args = append(args, filter.StudID)
		argPos++
	}
	if filter.Result != "" {
		where += " AND result = $" + strconv.Itoa(argPos)
		args = append(args, filter.Result)
		argPos++
	}

	countQuery := "SELECT COUNT(*) FROM action_logs" + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count logs: %w", err)
	}

	query := `SELECT log_id, action, stud_id, raw_message, parsed_json, result, error_msg, performed_by, timestamp
        FROM action_logs` + where + ` ORDER BY timestamp DESC, log_id DESC`
	if filter.Limit > 0 {
		query += " LIMIT $" + strconv.Itoa(argPos) + " OFFSET $" + strconv.Itoa(argPos+1)
		args = append(args, filter.Limit, filter.Offset)
	}

	var entries []models.LogEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list logs: %w", err)
	}
	return entries, total, nil
}
