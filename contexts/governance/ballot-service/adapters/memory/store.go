package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"ballot/contexts/governance/ballot-service/domain/entities"
	domainerrors "ballot/contexts/governance/ballot-service/domain/errors"
	"ballot/contexts/governance/ballot-service/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	sequence  uint64
	published bool
}

type dedupRecord struct {
	payloadHash string
	expiresAt   time.Time
}

// Store keeps ballots, idempotency keys, the outbox and consumer dedup rows in
// process memory. All writes to one ballot are serialized by mu.
type Store struct {
	mu sync.RWMutex

	ballots     map[string]entities.Ballot
	idempotency map[string]ports.IdempotencyRecord
	outbox      map[string]outboxRecord
	eventDedup  map[string]dedupRecord
	sequence    uint64
}

func NewStore(seed []entities.Ballot) *Store {
	ballots := make(map[string]entities.Ballot, len(seed))
	for _, ballot := range seed {
		ballots[ballot.BallotID] = ballot.Clone()
	}
	return &Store{
		ballots:     ballots,
		idempotency: make(map[string]ports.IdempotencyRecord),
		outbox:      make(map[string]outboxRecord),
		eventDedup:  make(map[string]dedupRecord),
	}
}

// CreateBallot commits the ballot, the idempotency record and the events under
// one lock. A key held by an unexpired record rejects the whole write.
func (s *Store) CreateBallot(
	_ context.Context,
	ballot entities.Ballot,
	idempotency *ports.IdempotencyRecord,
	events []ports.EventEnvelope,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ballotID := strings.TrimSpace(ballot.BallotID)
	if ballotID == "" {
		return domainerrors.ErrInvalidBallotInput
	}
	if _, exists := s.ballots[ballotID]; exists {
		return domainerrors.ErrConflict
	}

	var record ports.IdempotencyRecord
	if idempotency != nil {
		record = ports.IdempotencyRecord{
			Key:         strings.TrimSpace(idempotency.Key),
			RequestHash: strings.TrimSpace(idempotency.RequestHash),
			BallotID:    ballotID,
			ExpiresAt:   idempotency.ExpiresAt.UTC(),
		}
		if existing, taken := s.idempotency[record.Key]; taken && existing.ExpiresAt.After(ballot.CreatedAt.UTC()) {
			return domainerrors.ErrIdempotencyConflict
		}
	}

	if err := s.appendOutboxLocked(events); err != nil {
		return err
	}
	if idempotency != nil {
		s.idempotency[record.Key] = record
	}
	s.ballots[ballotID] = ballot.Clone()
	return nil
}

func (s *Store) GetBallot(_ context.Context, ballotID string) (entities.Ballot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ballot, ok := s.ballots[strings.TrimSpace(ballotID)]
	if !ok {
		return entities.Ballot{}, domainerrors.ErrBallotNotFound
	}
	return ballot.Clone(), nil
}

// UpdateBallot applies mutate to a copy of the ballot and commits the copy and
// the returned events only when mutate succeeds.
func (s *Store) UpdateBallot(_ context.Context, ballotID string, mutate ports.BallotMutation) (entities.Ballot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.ballots[strings.TrimSpace(ballotID)]
	if !ok {
		return entities.Ballot{}, domainerrors.ErrBallotNotFound
	}
	working := current.Clone()
	events, err := mutate(&working)
	if err != nil {
		return entities.Ballot{}, err
	}
	working.Version = current.Version + 1
	if err := s.appendOutboxLocked(events); err != nil {
		return entities.Ballot{}, err
	}
	s.ballots[current.BallotID] = working
	return working.Clone(), nil
}

func (s *Store) Get(_ context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key = strings.TrimSpace(key)
	record, exists := s.idempotency[key]
	if !exists {
		return ports.IdempotencyRecord{}, false, nil
	}
	if !record.ExpiresAt.After(now.UTC()) {
		delete(s.idempotency, key)
		return ports.IdempotencyRecord{}, false, nil
	}
	return record, true, nil
}

// appendOutboxLocked validates every event before writing any, so a failed
// append leaves the outbox untouched. Callers hold mu.
func (s *Store) appendOutboxLocked(events []ports.EventEnvelope) error {
	records := make([]outboxRecord, 0, len(events))
	for _, envelope := range events {
		payload, err := json.Marshal(envelope)
		if err != nil {
			return err
		}
		outboxID := strings.TrimSpace(envelope.EventID)
		if outboxID == "" {
			outboxID = uuid.NewString()
		}
		if existing, ok := s.outbox[outboxID]; ok && !bytes.Equal(existing.message.Payload, payload) {
			return domainerrors.ErrConflict
		}
		createdAt := envelope.OccurredAt.UTC()
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		records = append(records, outboxRecord{
			message: ports.OutboxMessage{
				OutboxID:     outboxID,
				EventType:    strings.TrimSpace(envelope.EventType),
				PartitionKey: strings.TrimSpace(envelope.PartitionKey),
				Payload:      payload,
				CreatedAt:    createdAt,
			},
		})
	}
	for _, record := range records {
		if _, ok := s.outbox[record.message.OutboxID]; ok {
			continue
		}
		s.sequence++
		record.sequence = s.sequence
		s.outbox[record.message.OutboxID] = record
	}
	return nil
}

// ListPendingOutbox returns unpublished rows in commit order.
func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	rows := make([]outboxRecord, 0, len(s.outbox))
	for _, row := range s.outbox {
		if row.published {
			continue
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].sequence < rows[j].sequence
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.message)
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrConflict
	}
	row.published = true
	s.outbox[strings.TrimSpace(outboxID)] = row
	return nil
}

func (s *Store) ReserveEvent(
	_ context.Context,
	eventID string,
	payloadHash string,
	expiresAt time.Time,
) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.TrimSpace(eventID)
	existing, ok := s.eventDedup[key]
	if ok {
		if !existing.expiresAt.IsZero() && time.Now().UTC().After(existing.expiresAt.UTC()) {
			delete(s.eventDedup, key)
		} else {
			if existing.payloadHash != strings.TrimSpace(payloadHash) {
				return false, domainerrors.ErrConflict
			}
			return true, nil
		}
	}

	s.eventDedup[key] = dedupRecord{
		payloadHash: strings.TrimSpace(payloadHash),
		expiresAt:   expiresAt.UTC(),
	}
	return false, nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
