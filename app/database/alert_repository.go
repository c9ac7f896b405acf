package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var _ AlertRepository = (*alertRepository)(nil)

type alertRepository struct {
	db *DB
}

func NewAlertRepository(db *DB) AlertRepository {
	return &alertRepository{db: db}
}

func (r *alertRepository) UpsertAlert(searchName, channel string, enabled bool, config map[string]string) error {
	encoded, err := json.Marshal(orEmptyMap(config))
	if err != nil {
		return fmt.Errorf("failed to encode alert config: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO alerts (id, search_name, channel, enabled, config, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (search_name, channel) DO UPDATE SET
			enabled = excluded.enabled,
			config = excluded.config
	`, uuid.NewString(), searchName, channel, enabled, string(encoded), time.Now().UTC())

	if err != nil {
		return fmt.Errorf("failed to upsert alert: %w", err)
	}

	return nil
}

func (r *alertRepository) GetEnabledAlerts(searchName string) ([]Alert, error) {
	rows, err := r.db.Query(`
		SELECT id, search_name, channel, enabled, config, last_triggered_at, created_at
		FROM alerts
		WHERE search_name = ? AND enabled = 1
	`, searchName)
	if err != nil {
		return nil, fmt.Errorf("failed to get enabled alerts: %w", err)
	}
	defer rows.Close()

	var alerts []Alert
	for rows.Next() {
		var alert Alert
		var config string
		var lastTriggered, created sql.NullTime

		err := rows.Scan(&alert.ID, &alert.SearchName, &alert.Channel,
			&alert.Enabled, &config, &lastTriggered, &created)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert row: %w", err)
		}

		if err := json.Unmarshal([]byte(config), &alert.Config); err != nil {
			return nil, fmt.Errorf("failed to decode alert config: %w", err)
		}
		if lastTriggered.Valid {
			t := lastTriggered.Time
			alert.LastTriggeredAt = &t
		}
		if created.Valid {
			alert.CreatedAt = created.Time
		}

		alerts = append(alerts, alert)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alert rows: %w", err)
	}

	return alerts, nil
}

func (r *alertRepository) UpdateLastTriggered(alertID string, triggeredAt time.Time) error {
	_, err := r.db.Exec(`
		UPDATE alerts
		SET last_triggered_at = ?
		WHERE id = ?
	`, triggeredAt, alertID)

	if err != nil {
		return fmt.Errorf("failed to update last triggered: %w", err)
	}

	return nil
}
