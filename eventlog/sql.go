package eventlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

type sqlLogger struct {
	db *sql.DB
}

func NewSQLLogger(db *sql.DB) *sqlLogger {
	return &sqlLogger{db: db}
}

func (l *sqlLogger) Save(ctx context.Context, e Event) error {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return fmt.Errorf("encoding event data: %w", err)
	}
	metadata, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("encoding event metadata: %w", err)
	}

	statement := `INSERT INTO events (id, event_type, event_data, event_metadata, created_at) VALUES ($1, $2, $3, $4, $5)`
	_, err = l.db.ExecContext(ctx, statement, e.ID, e.Type, data, metadata, e.CreatedAt)
	return err
}

func (l *sqlLogger) ListByType(ctx context.Context, eventType string) ([]Event, error) {
	query := `SELECT id, event_type, event_data, event_metadata, created_at FROM events WHERE event_type = $1 ORDER BY created_at DESC`
	rows, err := l.db.QueryContext(ctx, query, eventType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]Event, 0)
	for rows.Next() {
		var event Event
		var data, metadata []byte
		if err := rows.Scan(&event.ID, &event.Type, &data, &metadata, &event.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &event.Data); err != nil {
			return nil, fmt.Errorf("decoding event data: %w", err)
		}
		if err := json.Unmarshal(metadata, &event.Metadata); err != nil {
			return nil, fmt.Errorf("decoding event metadata: %w", err)
		}
		events = append(events, event)
	}

	return events, rows.Err()
}
