package events

import (
	"context"

	"github.com/noah-isme/backend-pos/internal/db"
)

// PGStore writes domain events to the domain_events table.
type PGStore struct {
	DB db.DBTX
}

// InsertDomainEvent implements EventStore.
func (s PGStore) InsertDomainEvent(ctx context.Context, topic, aggregateID string, payload []byte) (Event, error) {
	var ev Event
	err := s.DB.QueryRow(ctx, `
		INSERT INTO domain_events (topic, aggregate_id, payload)
		VALUES ($1, $2::uuid, $3)
		RETURNING id, topic, aggregate_id::text, payload, occurred_at`,
		topic, aggregateID, payload,
	).Scan(&ev.ID, &ev.Topic, &ev.AggregateID, &ev.Payload, &ev.OccurredAt)
	return ev, err
}
