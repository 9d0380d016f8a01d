package workers

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	application "ballot/contexts/governance/ballot-service/application"
	"ballot/contexts/governance/ballot-service/application/queries"
	"ballot/contexts/governance/ballot-service/ports"
)

const defaultLeaderTrackerCG = "ballot-service-leader-cg"

// LeaderTracker follows tally-changing events and logs when the leading
// proposal of a ballot changes.
type LeaderTracker struct {
	Subscriber    ports.EventSubscriber
	Dedup         ports.EventDedupStore
	Ballots       ports.BallotReader
	Clock         ports.Clock
	ConsumerGroup string
	DedupTTL      time.Duration
	Disabled      bool
	Logger        *slog.Logger

	mu      sync.Mutex
	leaders map[string]int
}

// Start subscribes to vote and delegation events.
func (t *LeaderTracker) Start(ctx context.Context) error {
	logger := application.ResolveLogger(t.Logger)
	if t.Disabled {
		logger.Info("ballot leader tracker disabled by config",
			"event", "ballot_leader_tracker_disabled",
			"module", "governance/ballot-service",
			"layer", "worker",
		)
		return nil
	}
	group := strings.TrimSpace(t.ConsumerGroup)
	if group == "" {
		group = defaultLeaderTrackerCG
	}
	for _, topic := range []string{ports.EventBallotVoteCast, ports.EventBallotDelegated} {
		if err := t.Subscriber.Subscribe(ctx, topic, group, t.handleTallyEvent); err != nil {
			logger.Error("ballot leader tracker subscribe failed",
				"event", "ballot_leader_tracker_subscribe_failed",
				"module", "governance/ballot-service",
				"layer", "worker",
				"topic", topic,
				"consumer_group", group,
				"error", err.Error(),
			)
			return err
		}
	}
	logger.Info("ballot leader tracker subscriptions active",
		"event", "ballot_leader_tracker_started",
		"module", "governance/ballot-service",
		"layer", "worker",
		"consumer_group", group,
	)
	return nil
}

// Leader returns the last leading proposal seen for ballotID.
func (t *LeaderTracker) Leader(ballotID string) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	index, ok := t.leaders[ballotID]
	return index, ok
}

func (t *LeaderTracker) handleTallyEvent(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(t.Logger)
	if alreadyProcessed, err := t.reserveEvent(ctx, event); err != nil {
		return err
	} else if alreadyProcessed {
		logger.Debug("ballot tally event replay skipped",
			"event", "ballot_tally_event_replayed",
			"module", "governance/ballot-service",
			"layer", "worker",
			"event_id", event.EventID,
		)
		return nil
	}

	var payload struct {
		BallotID string `json:"ballot_id"`
	}
	if err := event.DecodeData(&payload); err != nil {
		logger.Error("ballot tally event decode failed",
			"event", "ballot_tally_event_decode_failed",
			"module", "governance/ballot-service",
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}
	ballotID := strings.TrimSpace(payload.BallotID)
	if ballotID == "" {
		ballotID = event.PartitionKey
	}

	winner, err := queries.ResultsUseCase{Ballots: t.Ballots}.WinningProposal(ctx, ballotID)
	if err != nil {
		logger.Error("ballot leader lookup failed",
			"event", "ballot_leader_lookup_failed",
			"module", "governance/ballot-service",
			"layer", "worker",
			"event_id", event.EventID,
			"ballot_id", ballotID,
			"error", err.Error(),
		)
		return err
	}
	leader := winner.Index

	t.mu.Lock()
	if t.leaders == nil {
		t.leaders = make(map[string]int)
	}
	previous, seen := t.leaders[ballotID]
	t.leaders[ballotID] = leader
	t.mu.Unlock()

	if seen && previous == leader {
		return nil
	}
	logger.Info("ballot leader changed",
		"event", "ballot_leader_changed",
		"module", "governance/ballot-service",
		"layer", "worker",
		"event_id", event.EventID,
		"ballot_id", ballotID,
		"leader", leader,
		"leader_name", winner.Name,
		"vote_count", winner.VoteCount,
	)
	return nil
}

func (t *LeaderTracker) reserveEvent(ctx context.Context, event ports.EventEnvelope) (bool, error) {
	logger := application.ResolveLogger(t.Logger)
	alreadyProcessed, err := t.Dedup.ReserveEvent(ctx, event.EventID, hashPayload(event.Data), t.now().Add(t.dedupTTL()))
	if err != nil {
		logger.Error("ballot tally event dedupe failed",
			"event", "ballot_tally_event_dedupe_failed",
			"module", "governance/ballot-service",
			"layer", "worker",
			"event_id", event.EventID,
			"event_type", event.EventType,
			"error", err.Error(),
		)
		return false, err
	}
	return alreadyProcessed, nil
}

func (t *LeaderTracker) now() time.Time {
	now := time.Now().UTC()
	if t.Clock != nil {
		now = t.Clock.Now().UTC()
	}
	return now
}

func (t *LeaderTracker) dedupTTL() time.Duration {
	if t.DedupTTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return t.DedupTTL
}
