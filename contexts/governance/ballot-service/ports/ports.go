package ports

import (
	"context"
	"time"

	"ballot/contexts/governance/ballot-service/domain/entities"
	contractsv1 "ballot/contracts/gen/events/v1"
)

// BallotMutation changes a private copy of a ballot and returns the events to
// append to the outbox. A non-nil error discards the copy.
type BallotMutation func(ballot *entities.Ballot) ([]EventEnvelope, error)

type BallotReader interface {
	GetBallot(ctx context.Context, ballotID string) (entities.Ballot, error)
}

// BallotRepository is the state store. UpdateBallot serializes writers of the
// same ballot and commits the mutated ballot together with its events.
//
// CreateBallot stores the ballot, the optional idempotency record and the
// events as one unit. It returns ErrIdempotencyConflict without writing
// anything when an unexpired record already holds the key.
type BallotRepository interface {
	BallotReader
	CreateBallot(ctx context.Context, ballot entities.Ballot, idempotency *IdempotencyRecord, events []EventEnvelope) error
	UpdateBallot(ctx context.Context, ballotID string, mutate BallotMutation) (entities.Ballot, error)
}

type IdempotencyRecord struct {
	Key         string
	RequestHash string
	BallotID    string
	ExpiresAt   time.Time
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string, now time.Time) (IdempotencyRecord, bool, error)
}

type EventEnvelope = contractsv1.Envelope

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}

type EventDedupStore interface {
	ReserveEvent(ctx context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error)
}

// OperationObserver receives one observation per dispatched operation.
type OperationObserver interface {
	ObserveOperation(operation string, outcome string)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

const (
	EventBallotCreated     = "ballot.created"
	EventBallotRightGrant  = "ballot.right_granted"
	EventBallotDelegated   = "ballot.delegated"
	EventBallotVoteCast    = "ballot.vote_cast"
	BallotEventSource      = "ballot-service"
	BallotPartitionKeyPath = "ballot_id"
)
