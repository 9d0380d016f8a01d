package commands

import (
	"encoding/json"
	"time"

	"ballot/contexts/governance/ballot-service/ports"
)

func newBallotEnvelope(
	eventID string,
	eventType string,
	ballotID string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	// Partitioned by ballot so consumers see one ballot's events in commit order.
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    ports.BallotEventSource,
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: ports.BallotPartitionKeyPath,
		PartitionKey:     ballotID,
		Data:             payload,
	}, nil
}
