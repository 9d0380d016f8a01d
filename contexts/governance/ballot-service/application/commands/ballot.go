package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	application "ballot/contexts/governance/ballot-service/application"
	"ballot/contexts/governance/ballot-service/domain/entities"
	domainerrors "ballot/contexts/governance/ballot-service/domain/errors"
	"ballot/contexts/governance/ballot-service/domain/services"
	"ballot/contexts/governance/ballot-service/domain/valueobjects"
	"ballot/contexts/governance/ballot-service/ports"
)

// CreateBallotCommand initializes a ballot. The caller becomes chairperson.
type CreateBallotCommand struct {
	Chairperson    string
	Proposals      []string
	IdempotencyKey string
}

// CreateBallotResult carries the created ballot and whether it was replayed
// from an earlier request with the same idempotency key.
type CreateBallotResult struct {
	Ballot   entities.Ballot
	Replayed bool
}

type GrantRightCommand struct {
	BallotID string
	Caller   string
	Voter    string
}

type DelegateCommand struct {
	BallotID string
	Caller   string
	To       string
}

type CastVoteCommand struct {
	BallotID string
	Caller   string
	Proposal int
}

// BallotUseCase dispatches the mutating ballot operations. Preconditions are
// owned by the domain services; every call either commits all of its effects
// and one outbox event, or fails without touching stored state.
type BallotUseCase struct {
	Ballots        ports.BallotRepository
	Idempotency    ports.IdempotencyStore
	Clock          ports.Clock
	IDGen          ports.IDGenerator
	Observer       ports.OperationObserver
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

// CreateBallot stores a new ballot with the given proposals in order. When an
// idempotency key is supplied, a repeated request returns the original ballot.
func (uc BallotUseCase) CreateBallot(ctx context.Context, cmd CreateBallotCommand) (result CreateBallotResult, err error) {
	defer func() { uc.observe("create_ballot", err) }()
	logger := application.ResolveLogger(uc.Logger)
	logger.Info("ballot create processing started",
		"event", "ballot_create_started",
		"module", "governance/ballot-service",
		"layer", "application",
		"chairperson", strings.TrimSpace(cmd.Chairperson),
		"proposal_count", len(cmd.Proposals),
	)

	chairperson, err := parsePrincipal(cmd.Chairperson)
	if err != nil {
		logger.Warn("ballot create validation failed",
			"event", "ballot_create_validation_failed",
			"module", "governance/ballot-service",
			"layer", "application",
			"error", err.Error(),
		)
		return CreateBallotResult{}, err
	}

	now := uc.now()
	idempotencyKey := strings.TrimSpace(cmd.IdempotencyKey)
	requestHash := hashCreateBallotCommand(cmd)
	if idempotencyKey != "" {
		replayed, found, err := uc.replayCreateBallot(ctx, idempotencyKey, requestHash, now)
		if err != nil || found {
			return replayed, err
		}
	}

	ballotID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return CreateBallotResult{}, err
	}
	ballot, err := entities.NewBallot(ballotID, chairperson, cmd.Proposals, now)
	if err != nil {
		logger.Warn("ballot create validation failed",
			"event", "ballot_create_validation_failed",
			"module", "governance/ballot-service",
			"layer", "application",
			"chairperson", chairperson.String(),
			"error", err.Error(),
		)
		return CreateBallotResult{}, err
	}

	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return CreateBallotResult{}, err
	}
	labels := make([]string, 0, len(ballot.Proposals))
	for _, proposal := range ballot.Proposals {
		labels = append(labels, proposal.Name.String())
	}
	event, err := newBallotEnvelope(eventID, ports.EventBallotCreated, ballot.BallotID, now, map[string]any{
		"ballot_id":   ballot.BallotID,
		"chairperson": chairperson.String(),
		"proposals":   labels,
	})
	if err != nil {
		return CreateBallotResult{}, err
	}

	var record *ports.IdempotencyRecord
	if idempotencyKey != "" {
		record = &ports.IdempotencyRecord{
			Key:         idempotencyKey,
			RequestHash: requestHash,
			BallotID:    ballot.BallotID,
			ExpiresAt:   now.Add(uc.resolveIdempotencyTTL()),
		}
	}
	if err := uc.Ballots.CreateBallot(ctx, ballot, record, []ports.EventEnvelope{event}); err != nil {
		if record != nil && errors.Is(err, domainerrors.ErrIdempotencyConflict) {
			// A concurrent request with the same key committed first.
			replayed, found, lookupErr := uc.replayCreateBallot(ctx, idempotencyKey, requestHash, now)
			if lookupErr != nil || found {
				return replayed, lookupErr
			}
		}
		logger.Error("ballot create write failed",
			"event", "ballot_create_write_failed",
			"module", "governance/ballot-service",
			"layer", "application",
			"ballot_id", ballot.BallotID,
			"error", err.Error(),
		)
		return CreateBallotResult{}, err
	}

	logger.Info("ballot created",
		"event", "ballot_created",
		"module", "governance/ballot-service",
		"layer", "application",
		"ballot_id", ballot.BallotID,
		"chairperson", chairperson.String(),
		"proposal_count", len(ballot.Proposals),
	)
	return CreateBallotResult{Ballot: ballot}, nil
}

// replayCreateBallot returns the ballot stored under key when the request
// matches the one that claimed it, and ErrIdempotencyConflict when it does not.
func (uc BallotUseCase) replayCreateBallot(ctx context.Context, key string, requestHash string, now time.Time) (CreateBallotResult, bool, error) {
	if uc.Idempotency == nil {
		return CreateBallotResult{}, false, nil
	}
	logger := application.ResolveLogger(uc.Logger)
	record, found, err := uc.Idempotency.Get(ctx, key, now)
	if err != nil {
		logger.Error("ballot create idempotency lookup failed",
			"event", "ballot_create_idempotency_lookup_failed",
			"module", "governance/ballot-service",
			"layer", "application",
			"error", err.Error(),
		)
		return CreateBallotResult{}, false, err
	}
	if !found {
		return CreateBallotResult{}, false, nil
	}
	if record.RequestHash != requestHash {
		logger.Warn("ballot create idempotency conflict",
			"event", "ballot_create_idempotency_conflict",
			"module", "governance/ballot-service",
			"layer", "application",
			"ballot_id", record.BallotID,
		)
		return CreateBallotResult{}, true, domainerrors.ErrIdempotencyConflict
	}
	ballot, err := uc.Ballots.GetBallot(ctx, record.BallotID)
	if err != nil {
		return CreateBallotResult{}, true, err
	}
	logger.Info("ballot create replayed",
		"event", "ballot_create_replayed",
		"module", "governance/ballot-service",
		"layer", "application",
		"ballot_id", ballot.BallotID,
	)
	return CreateBallotResult{Ballot: ballot, Replayed: true}, true, nil
}

// GrantRight lets the chairperson enfranchise a voter.
func (uc BallotUseCase) GrantRight(ctx context.Context, cmd GrantRightCommand) (err error) {
	defer func() { uc.observe("grant_right", err) }()
	logger := application.ResolveLogger(uc.Logger)
	logger.Info("ballot right grant started",
		"event", "ballot_right_grant_started",
		"module", "governance/ballot-service",
		"layer", "application",
		"ballot_id", strings.TrimSpace(cmd.BallotID),
		"caller", strings.TrimSpace(cmd.Caller),
		"voter", strings.TrimSpace(cmd.Voter),
	)

	caller, err := parsePrincipal(cmd.Caller)
	if err != nil {
		return err
	}
	voter, err := parsePrincipal(cmd.Voter)
	if err != nil {
		return err
	}

	_, err = uc.mutate(ctx, cmd.BallotID, ports.EventBallotRightGrant, func(ballot *entities.Ballot) (map[string]any, error) {
		if err := services.GrantRight(ballot, caller, voter); err != nil {
			return nil, err
		}
		return map[string]any{
			"ballot_id": ballot.BallotID,
			"voter":     voter.String(),
			"weight":    ballot.Voter(voter).Weight,
		}, nil
	})
	if err != nil {
		logger.Warn("ballot right grant rejected",
			"event", "ballot_right_grant_rejected",
			"module", "governance/ballot-service",
			"layer", "application",
			"ballot_id", strings.TrimSpace(cmd.BallotID),
			"caller", caller.String(),
			"voter", voter.String(),
			"error", err.Error(),
		)
		return err
	}

	logger.Info("ballot right granted",
		"event", "ballot_right_granted",
		"module", "governance/ballot-service",
		"layer", "application",
		"ballot_id", strings.TrimSpace(cmd.BallotID),
		"voter", voter.String(),
	)
	return nil
}

// Delegate hands the caller's vote to another principal.
func (uc BallotUseCase) Delegate(ctx context.Context, cmd DelegateCommand) (outcome services.DelegationOutcome, err error) {
	defer func() { uc.observe("delegate", err) }()
	logger := application.ResolveLogger(uc.Logger)
	logger.Info("ballot delegation started",
		"event", "ballot_delegate_started",
		"module", "governance/ballot-service",
		"layer", "application",
		"ballot_id", strings.TrimSpace(cmd.BallotID),
		"caller", strings.TrimSpace(cmd.Caller),
		"to", strings.TrimSpace(cmd.To),
	)

	caller, err := parsePrincipal(cmd.Caller)
	if err != nil {
		return services.DelegationOutcome{}, err
	}
	to, err := parsePrincipal(cmd.To)
	if err != nil {
		return services.DelegationOutcome{}, err
	}

	_, err = uc.mutate(ctx, cmd.BallotID, ports.EventBallotDelegated, func(ballot *entities.Ballot) (map[string]any, error) {
		result, err := services.Delegate(ballot, caller, to)
		if err != nil {
			return nil, err
		}
		outcome = result
		data := map[string]any{
			"ballot_id":      ballot.BallotID,
			"delegator":      caller.String(),
			"delegate":       result.Delegate.String(),
			"final_delegate": result.FinalDelegate.String(),
			"weight":         result.Weight,
			"counted":        result.Counted,
		}
		if result.Counted {
			data["proposal"] = result.Proposal
		}
		return data, nil
	})
	if err != nil {
		logger.Warn("ballot delegation rejected",
			"event", "ballot_delegate_rejected",
			"module", "governance/ballot-service",
			"layer", "application",
			"ballot_id", strings.TrimSpace(cmd.BallotID),
			"caller", caller.String(),
			"to", to.String(),
			"error", err.Error(),
		)
		return services.DelegationOutcome{}, err
	}

	logger.Info("ballot delegation settled",
		"event", "ballot_delegated",
		"module", "governance/ballot-service",
		"layer", "application",
		"ballot_id", strings.TrimSpace(cmd.BallotID),
		"caller", caller.String(),
		"final_delegate", outcome.FinalDelegate.String(),
		"weight", outcome.Weight,
		"counted", outcome.Counted,
	)
	return outcome, nil
}

// CastVote counts the caller's weight for a proposal.
func (uc BallotUseCase) CastVote(ctx context.Context, cmd CastVoteCommand) (err error) {
	defer func() { uc.observe("cast_vote", err) }()
	logger := application.ResolveLogger(uc.Logger)
	logger.Info("ballot vote started",
		"event", "ballot_vote_started",
		"module", "governance/ballot-service",
		"layer", "application",
		"ballot_id", strings.TrimSpace(cmd.BallotID),
		"caller", strings.TrimSpace(cmd.Caller),
		"proposal", cmd.Proposal,
	)

	caller, err := parsePrincipal(cmd.Caller)
	if err != nil {
		return err
	}

	var weight uint64
	_, err = uc.mutate(ctx, cmd.BallotID, ports.EventBallotVoteCast, func(ballot *entities.Ballot) (map[string]any, error) {
		counted, err := services.CastVote(ballot, caller, cmd.Proposal)
		if err != nil {
			return nil, err
		}
		weight = counted
		return map[string]any{
			"ballot_id": ballot.BallotID,
			"voter":     caller.String(),
			"proposal":  cmd.Proposal,
			"weight":    counted,
		}, nil
	})
	if err != nil {
		logger.Warn("ballot vote rejected",
			"event", "ballot_vote_rejected",
			"module", "governance/ballot-service",
			"layer", "application",
			"ballot_id", strings.TrimSpace(cmd.BallotID),
			"caller", caller.String(),
			"proposal", cmd.Proposal,
			"error", err.Error(),
		)
		return err
	}

	logger.Info("ballot vote cast",
		"event", "ballot_vote_cast",
		"module", "governance/ballot-service",
		"layer", "application",
		"ballot_id", strings.TrimSpace(cmd.BallotID),
		"caller", caller.String(),
		"proposal", cmd.Proposal,
		"weight", weight,
	)
	return nil
}

// mutate runs apply against the stored ballot and appends one event of
// eventType carrying the returned data.
func (uc BallotUseCase) mutate(
	ctx context.Context,
	ballotID string,
	eventType string,
	apply func(ballot *entities.Ballot) (map[string]any, error),
) (entities.Ballot, error) {
	ballotID = strings.TrimSpace(ballotID)
	if ballotID == "" {
		return entities.Ballot{}, domainerrors.ErrInvalidBallotInput
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Ballot{}, err
	}
	now := uc.now()

	return uc.Ballots.UpdateBallot(ctx, ballotID, func(ballot *entities.Ballot) ([]ports.EventEnvelope, error) {
		data, err := apply(ballot)
		if err != nil {
			return nil, err
		}
		ballot.UpdatedAt = now
		event, err := newBallotEnvelope(eventID, eventType, ballot.BallotID, now, data)
		if err != nil {
			return nil, err
		}
		return []ports.EventEnvelope{event}, nil
	})
}

func (uc BallotUseCase) observe(operation string, err error) {
	if uc.Observer != nil {
		uc.Observer.ObserveOperation(operation, application.Outcome(err))
	}
}

func (uc BallotUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func (uc BallotUseCase) resolveIdempotencyTTL() time.Duration {
	if uc.IdempotencyTTL <= 0 {
		return 24 * time.Hour
	}
	return uc.IdempotencyTTL
}

func parsePrincipal(raw string) (valueobjects.Principal, error) {
	principal, err := valueobjects.NewPrincipal(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %s", domainerrors.ErrInvalidPrincipal, err.Error())
	}
	return principal, nil
}

func hashCreateBallotCommand(cmd CreateBallotCommand) string {
	payload := struct {
		Chairperson string   `json:"chairperson"`
		Proposals   []string `json:"proposals"`
		Op          string   `json:"op"`
	}{
		Chairperson: strings.TrimSpace(cmd.Chairperson),
		Proposals:   cmd.Proposals,
		Op:          "create_ballot",
	}
	raw, _ := json.Marshal(payload)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

