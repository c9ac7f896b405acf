package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var _ TaskLogRepository = (*taskLogRepository)(nil)

type taskLogRepository struct {
	db *DB
}

func NewTaskLogRepository(db *DB) TaskLogRepository {
	return &taskLogRepository{db: db}
}

func (r *taskLogRepository) CreateRunning(taskID, taskName, searchName string, startedAt time.Time) error {
	_, err := r.db.Exec(`
		INSERT INTO task_logs (id, task_id, task_name, search_name, status, started_at, created_at)
		VALUES (?, ?, ?, ?, 'running', ?, ?)
	`, uuid.NewString(), taskID, taskName, searchName, startedAt, time.Now().UTC())

	if err != nil {
		return fmt.Errorf("failed to create task log: %w", err)
	}

	return nil
}

func (r *taskLogRepository) MarkSuccess(taskID, result string, completedAt time.Time) error {
	_, err := r.db.Exec(`
		UPDATE task_logs
		SET status = 'success', result = ?, completed_at = ?
		WHERE task_id = ?
	`, result, completedAt, taskID)

	if err != nil {
		return fmt.Errorf("failed to mark task log success: %w", err)
	}

	return nil
}

func (r *taskLogRepository) MarkFailed(taskID, errorDetail string, completedAt time.Time) error {
	_, err := r.db.Exec(`
		UPDATE task_logs
		SET status = 'failed', error = ?, completed_at = ?
		WHERE task_id = ?
	`, errorDetail, completedAt, taskID)

	if err != nil {
		return fmt.Errorf("failed to mark task log failed: %w", err)
	}

	return nil
}

func (r *taskLogRepository) GetRecent(limit int) ([]TaskLog, error) {
	rows, err := r.db.Query(`
		SELECT id, task_id, task_name, search_name, status, result, error,
		       started_at, completed_at, created_at
		FROM task_logs
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent task logs: %w", err)
	}
	defer rows.Close()

	var logs []TaskLog
	for rows.Next() {
		var entry TaskLog
		var startedAt, completedAt sql.NullTime

		err := rows.Scan(&entry.ID, &entry.TaskID, &entry.TaskName, &entry.SearchName,
			&entry.Status, &entry.Result, &entry.Error, &startedAt, &completedAt,
			&entry.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task log row: %w", err)
		}

		if startedAt.Valid {
			t := startedAt.Time
			entry.StartedAt = &t
		}
		if completedAt.Valid {
			t := completedAt.Time
			entry.CompletedAt = &t
		}

		logs = append(logs, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task log rows: %w", err)
	}

	return logs, nil
}

func (r *taskLogRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	res, err := r.db.Exec("DELETE FROM task_logs WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old task logs: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return deleted, nil
}
