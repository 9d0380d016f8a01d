package postgresadapter

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"ballot/contexts/governance/ballot-service/domain/entities"
	domainerrors "ballot/contexts/governance/ballot-service/domain/errors"
	"ballot/contexts/governance/ballot-service/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// AutoMigrate creates the ballot tables when they are missing.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&ballotModel{},
		&proposalModel{},
		&voterModel{},
		&idempotencyModel{},
		&outboxModel{},
		&eventDedupModel{},
	)
}

// CreateBallot writes the ballot rows, the idempotency row and the outbox rows
// in one transaction. The idempotency row goes first so a concurrent request
// holding the same key blocks on it and then fails before writing anything.
func (r *Repository) CreateBallot(
	ctx context.Context,
	ballot entities.Ballot,
	idempotency *ports.IdempotencyRecord,
	events []ports.EventEnvelope,
) error {
	keyTaken := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if idempotency != nil {
			key := strings.TrimSpace(idempotency.Key)
			if err := tx.Where("key = ? AND expires_at <= ?", key, ballot.CreatedAt.UTC()).
				Delete(&idempotencyModel{}).Error; err != nil {
				return err
			}
			claim := idempotencyModel{
				Key:         key,
				RequestHash: strings.TrimSpace(idempotency.RequestHash),
				BallotID:    ballot.BallotID,
				ExpiresAt:   idempotency.ExpiresAt.UTC(),
			}
			if err := tx.Create(&claim).Error; err != nil {
				keyTaken = isUniqueViolation(err)
				return err
			}
		}

		row := ballotModelFromEntity(ballot)
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		proposals := proposalModelsFromEntity(ballot)
		if len(proposals) > 0 {
			if err := tx.Create(&proposals).Error; err != nil {
				return err
			}
		}
		for principal, voter := range ballot.Voters {
			voterRow := voterModelFromEntity(ballot.BallotID, principal, voter)
			if err := tx.Create(&voterRow).Error; err != nil {
				return err
			}
		}
		return r.appendOutbox(tx, events, ballot.Version)
	})
	if err != nil {
		if keyTaken {
			return domainerrors.ErrIdempotencyConflict
		}
		if isUniqueViolation(err) {
			return domainerrors.ErrConflict
		}
		return r.logError("ballot_repo_create_ballot_failed", err, "ballot_id", ballot.BallotID)
	}
	return nil
}

// GetBallot loads the ballot, proposal and voter rows from one snapshot.
func (r *Repository) GetBallot(ctx context.Context, ballotID string) (entities.Ballot, error) {
	var ballot entities.Ballot
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		loaded, err := r.loadBallot(tx, strings.TrimSpace(ballotID), false)
		if err != nil {
			return err
		}
		ballot = loaded
		return nil
	}, r.snapshotReadOptions()...)
	if err != nil {
		if errors.Is(err, domainerrors.ErrBallotNotFound) {
			return entities.Ballot{}, err
		}
		return entities.Ballot{}, r.logError("ballot_repo_get_ballot_failed", err, "ballot_id", strings.TrimSpace(ballotID))
	}
	return ballot, nil
}

// snapshotReadOptions makes the three read statements share one snapshot.
// Postgres needs REPEATABLE READ for that; sqlite already serializes on its
// single connection.
func (r *Repository) snapshotReadOptions() []*sql.TxOptions {
	if r.db.Dialector.Name() == "sqlite" {
		return nil
	}
	return []*sql.TxOptions{{Isolation: sql.LevelRepeatableRead, ReadOnly: true}}
}

// UpdateBallot locks the ballot row, applies mutate and writes back the changed
// proposal and voter rows together with the returned events. The version
// guard rejects a concurrent writer on engines without row locks.
func (r *Repository) UpdateBallot(ctx context.Context, ballotID string, mutate ports.BallotMutation) (entities.Ballot, error) {
	ballotID = strings.TrimSpace(ballotID)
	var updated entities.Ballot
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := r.loadBallot(tx, ballotID, true)
		if err != nil {
			return err
		}
		working := current.Clone()
		events, err := mutate(&working)
		if err != nil {
			return err
		}
		working.Version = current.Version + 1

		result := tx.Model(&ballotModel{}).
			Where("ballot_id = ? AND version = ?", ballotID, current.Version).
			Updates(map[string]any{
				"version":    working.Version,
				"updated_at": working.UpdatedAt.UTC(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrConflict
		}

		for index, proposal := range working.Proposals {
			if proposal.VoteCount == current.Proposals[index].VoteCount {
				continue
			}
			if err := tx.Model(&proposalModel{}).
				Where("ballot_id = ? AND proposal_index = ?", ballotID, index).
				Update("vote_count", int64(proposal.VoteCount)).Error; err != nil {
				return err
			}
		}
		for principal, voter := range working.Voters {
			if previous, ok := current.Voters[principal]; ok && previous == voter {
				continue
			}
			row := voterModelFromEntity(ballotID, principal, voter)
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "ballot_id"}, {Name: "principal"}},
				DoUpdates: clause.Assignments(map[string]any{
					"weight":   row.Weight,
					"voted":    row.Voted,
					"delegate": row.Delegate,
					"vote":     row.Vote,
				}),
			}).Create(&row).Error; err != nil {
				return err
			}
		}

		if err := r.appendOutbox(tx, events, working.Version); err != nil {
			return err
		}
		updated = working
		return nil
	})
	if err != nil {
		if isDomainError(err) {
			return entities.Ballot{}, err
		}
		return entities.Ballot{}, r.logError("ballot_repo_update_ballot_failed", err, "ballot_id", ballotID)
	}
	return updated, nil
}

func (r *Repository) loadBallot(tx *gorm.DB, ballotID string, forUpdate bool) (entities.Ballot, error) {
	query := tx.Where("ballot_id = ?", ballotID)
	if forUpdate && tx.Dialector.Name() != "sqlite" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var row ballotModel
	if err := query.First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Ballot{}, domainerrors.ErrBallotNotFound
		}
		return entities.Ballot{}, err
	}

	var proposals []proposalModel
	if err := tx.Where("ballot_id = ?", ballotID).
		Order("proposal_index ASC").
		Find(&proposals).Error; err != nil {
		return entities.Ballot{}, err
	}
	var voters []voterModel
	if err := tx.Where("ballot_id = ?", ballotID).
		Find(&voters).Error; err != nil {
		return entities.Ballot{}, err
	}
	return toBallotEntity(row, proposals, voters), nil
}

// appendOutbox writes events inside the caller's transaction. Rows are
// stamped at write time so the relay order follows commit order.
func (r *Repository) appendOutbox(tx *gorm.DB, events []ports.EventEnvelope, version int64) error {
	for _, envelope := range events {
		payload, err := json.Marshal(envelope)
		if err != nil {
			return err
		}
		row := outboxModel{
			OutboxID:      strings.TrimSpace(envelope.EventID),
			EventType:     strings.TrimSpace(envelope.EventType),
			PartitionKey:  strings.TrimSpace(envelope.PartitionKey),
			BallotVersion: version,
			Payload:       payload,
			Status:        outboxStatusPending,
			CreatedAt:     time.Now().UTC(),
		}
		if row.OutboxID == "" {
			row.OutboxID = uuid.NewString()
		}
		create := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "outbox_id"}},
			DoNothing: true,
		}).Create(&row)
		if create.Error != nil {
			return create.Error
		}
		if create.RowsAffected > 0 {
			continue
		}
		var existing outboxModel
		if err := tx.Select("payload").
			Where("outbox_id = ?", row.OutboxID).
			First(&existing).Error; err != nil {
			return err
		}
		if !bytes.Equal(existing.Payload, row.Payload) {
			return domainerrors.ErrIdempotencyConflict
		}
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	var row idempotencyModel
	err := r.db.WithContext(ctx).
		Where("key = ?", strings.TrimSpace(key)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.IdempotencyRecord{}, false, nil
		}
		return ports.IdempotencyRecord{}, false, r.logError("ballot_repo_idempotency_get_failed", err,
			"idempotency_key", strings.TrimSpace(key),
		)
	}
	if !row.ExpiresAt.After(now.UTC()) {
		if err := r.db.WithContext(ctx).
			Where("key = ?", strings.TrimSpace(key)).
			Delete(&idempotencyModel{}).Error; err != nil {
			return ports.IdempotencyRecord{}, false, r.logError("ballot_repo_idempotency_expire_delete_failed", err,
				"idempotency_key", strings.TrimSpace(key),
			)
		}
		return ports.IdempotencyRecord{}, false, nil
	}
	return ports.IdempotencyRecord{
		Key:         row.Key,
		RequestHash: row.RequestHash,
		BallotID:    row.BallotID,
		ExpiresAt:   row.ExpiresAt.UTC(),
	}, true, nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Order("ballot_version ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("ballot_repo_list_pending_outbox_failed", err, "limit", limit)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("ballot_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrConflict
	}
	return nil
}

func (r *Repository) ReserveEvent(
	ctx context.Context,
	eventID string,
	payloadHash string,
	expiresAt time.Time,
) (bool, error) {
	row := eventDedupModel{
		EventID:     strings.TrimSpace(eventID),
		PayloadHash: strings.TrimSpace(payloadHash),
		ExpiresAt:   expiresAt.UTC(),
		ProcessedAt: time.Now().UTC(),
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return false, r.logError("ballot_repo_reserve_event_failed", create.Error,
			"event_id", strings.TrimSpace(eventID),
		)
	}
	if create.RowsAffected > 0 {
		return false, nil
	}

	var existing eventDedupModel
	if err := r.db.WithContext(ctx).
		Select("payload_hash").
		Where("event_id = ?", row.EventID).
		First(&existing).Error; err != nil {
		return false, r.logError("ballot_repo_reserve_event_load_existing_failed", err,
			"event_id", strings.TrimSpace(eventID),
		)
	}
	if existing.PayloadHash != row.PayloadHash {
		return false, domainerrors.ErrConflict
	}
	return true, nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "governance/ballot-service",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("ballot repository operation failed", fields...)
	return err
}

// isDomainError reports errors raised by the mutation or the version guard,
// which pass through unlogged.
func isDomainError(err error) bool {
	for _, known := range []error{
		domainerrors.ErrBallotNotFound,
		domainerrors.ErrConflict,
		domainerrors.ErrIdempotencyConflict,
		domainerrors.ErrCallerNotAuthority,
		domainerrors.ErrAlreadyEnfranchisedOrVoted,
		domainerrors.ErrSelfDelegation,
		domainerrors.ErrDelegationCycle,
		domainerrors.ErrAlreadyVoted,
		domainerrors.ErrNoVotingRight,
		domainerrors.ErrInvalidProposalIndex,
		domainerrors.ErrInvalidPrincipal,
		domainerrors.ErrInvalidBallotInput,
	} {
		if errors.Is(err, known) {
			return true
		}
	}
	return false
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.BallotRepository = (*Repository)(nil)
var _ ports.IdempotencyStore = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
var _ ports.EventDedupStore = (*Repository)(nil)
