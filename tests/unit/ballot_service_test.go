package unit

import (
	"context"
	"errors"
	"math/rand"
	"strconv"
	"testing"

	ballot "ballot/contexts/governance/ballot-service"
	domainerrors "ballot/contexts/governance/ballot-service/domain/errors"
	httptransport "ballot/contexts/governance/ballot-service/transport/http"
)

var ballotProposals = []string{"Proposal 1", "Proposal 2", "Proposal 3"}

func newBallotFixture(t *testing.T) (ballot.Module, string) {
	t.Helper()
	module := ballot.NewInMemoryModule(nil, nil)
	created, err := module.Handler.CreateBallotHandler(context.Background(), "chair", "", httptransport.CreateBallotRequest{
		Proposals: ballotProposals,
	})
	if err != nil {
		t.Fatalf("create ballot failed: %v", err)
	}
	return module, created.BallotID
}

func grantRights(t *testing.T, module ballot.Module, ballotID string, voters ...string) {
	t.Helper()
	for _, voter := range voters {
		if _, err := module.Handler.GrantRightHandler(context.Background(), ballotID, "chair", httptransport.GrantRightRequest{Voter: voter}); err != nil {
			t.Fatalf("grant right to %s failed: %v", voter, err)
		}
	}
}

func TestBallotCreateSetsGenesisState(t *testing.T) {
	module, ballotID := newBallotFixture(t)
	ctx := context.Background()

	view, err := module.Handler.GetBallotHandler(ctx, ballotID)
	if err != nil {
		t.Fatalf("get ballot failed: %v", err)
	}
	if view.Chairperson != "chair" {
		t.Fatalf("expected chairperson chair, got %s", view.Chairperson)
	}
	for index, proposal := range view.Proposals {
		if proposal.Name != ballotProposals[index] || proposal.VoteCount != 0 {
			t.Fatalf("unexpected proposal %d: %+v", index, proposal)
		}
	}
	chair, err := module.Handler.VoterHandler(ctx, ballotID, "chair")
	if err != nil {
		t.Fatalf("get chair voter failed: %v", err)
	}
	if chair.Weight != 1 || chair.Voted {
		t.Fatalf("unexpected chair record: %+v", chair)
	}
	winner, err := module.Handler.WinnerHandler(ctx, ballotID)
	if err != nil {
		t.Fatalf("winner failed: %v", err)
	}
	if winner.WinningIndex != 0 || winner.WinnerName != ballotProposals[0] {
		t.Fatalf("expected proposal 0 before any vote, got %+v", winner)
	}
}

func TestBallotCreateReplaysIdempotentRequest(t *testing.T) {
	module := ballot.NewInMemoryModule(nil, nil)
	ctx := context.Background()
	req := httptransport.CreateBallotRequest{Proposals: ballotProposals}

	first, err := module.Handler.CreateBallotHandler(ctx, "chair", "idem-ballot-1", req)
	if err != nil {
		t.Fatalf("create ballot failed: %v", err)
	}
	second, err := module.Handler.CreateBallotHandler(ctx, "chair", "idem-ballot-1", req)
	if err != nil {
		t.Fatalf("replay ballot failed: %v", err)
	}
	if !second.Replayed || first.BallotID != second.BallotID {
		t.Fatalf("expected replay of %s, got %+v", first.BallotID, second)
	}
	_, err = module.Handler.CreateBallotHandler(ctx, "chair", "idem-ballot-1", httptransport.CreateBallotRequest{
		Proposals: []string{"other"},
	})
	if !errors.Is(err, domainerrors.ErrIdempotencyConflict) {
		t.Fatalf("expected idempotency conflict, got %v", err)
	}
}

func TestBallotCreateRejectsInvalidProposals(t *testing.T) {
	module := ballot.NewInMemoryModule(nil, nil)
	ctx := context.Background()

	if _, err := module.Handler.CreateBallotHandler(ctx, "chair", "", httptransport.CreateBallotRequest{}); !errors.Is(err, domainerrors.ErrInvalidBallotInput) {
		t.Fatalf("expected invalid ballot input, got %v", err)
	}
	long := "this proposal label is longer than thirty-two bytes"
	if _, err := module.Handler.CreateBallotHandler(ctx, "chair", "", httptransport.CreateBallotRequest{Proposals: []string{long}}); !errors.Is(err, domainerrors.ErrInvalidProposalName) {
		t.Fatalf("expected invalid proposal name, got %v", err)
	}
	if _, err := module.Handler.CreateBallotHandler(ctx, " ", "", httptransport.CreateBallotRequest{Proposals: ballotProposals}); !errors.Is(err, domainerrors.ErrInvalidPrincipal) {
		t.Fatalf("expected invalid principal, got %v", err)
	}
}

func TestBallotGrantRightRules(t *testing.T) {
	module, ballotID := newBallotFixture(t)
	ctx := context.Background()

	grantRights(t, module, ballotID, "alice")
	alice, _ := module.Handler.VoterHandler(ctx, ballotID, "alice")
	if alice.Weight != 1 {
		t.Fatalf("expected alice weight 1, got %d", alice.Weight)
	}

	_, err := module.Handler.GrantRightHandler(ctx, ballotID, "chair", httptransport.GrantRightRequest{Voter: "alice"})
	if !errors.Is(err, domainerrors.ErrVoterAlreadyEnfranchised) || !errors.Is(err, domainerrors.ErrAlreadyEnfranchisedOrVoted) {
		t.Fatalf("expected already enfranchised, got %v", err)
	}

	if _, err := module.Handler.CastVoteHandler(ctx, ballotID, "alice", httptransport.CastVoteRequest{Proposal: 1}); err != nil {
		t.Fatalf("alice vote failed: %v", err)
	}
	_, err = module.Handler.GrantRightHandler(ctx, ballotID, "chair", httptransport.GrantRightRequest{Voter: "alice"})
	if !errors.Is(err, domainerrors.ErrVoterAlreadyVoted) {
		t.Fatalf("expected already voted refinement, got %v", err)
	}

	_, err = module.Handler.GrantRightHandler(ctx, ballotID, "mallory", httptransport.GrantRightRequest{Voter: "mallory"})
	if !errors.Is(err, domainerrors.ErrCallerNotAuthority) {
		t.Fatalf("expected caller not authority, got %v", err)
	}
	mallory, _ := module.Handler.VoterHandler(ctx, ballotID, "mallory")
	if mallory.Weight != 0 {
		t.Fatalf("attacker gained weight: %+v", mallory)
	}
}

func TestBallotVoteAndWinner(t *testing.T) {
	module, ballotID := newBallotFixture(t)
	ctx := context.Background()
	grantRights(t, module, ballotID, "alice")

	_, err := module.Handler.CastVoteHandler(ctx, ballotID, "mallory", httptransport.CastVoteRequest{Proposal: 0})
	if !errors.Is(err, domainerrors.ErrNoVotingRight) {
		t.Fatalf("expected no voting right, got %v", err)
	}

	confirmed, err := module.Handler.CastVoteHandler(ctx, ballotID, "alice", httptransport.CastVoteRequest{Proposal: 1})
	if err != nil {
		t.Fatalf("cast vote failed: %v", err)
	}
	if !confirmed.Voted || confirmed.Vote == nil || *confirmed.Vote != 1 {
		t.Fatalf("expected confirmed vote for proposal 1, got %+v", confirmed)
	}

	_, err = module.Handler.CastVoteHandler(ctx, ballotID, "alice", httptransport.CastVoteRequest{Proposal: 2})
	if !errors.Is(err, domainerrors.ErrAlreadyVoted) {
		t.Fatalf("expected already voted, got %v", err)
	}
	_, err = module.Handler.CastVoteHandler(ctx, ballotID, "chair", httptransport.CastVoteRequest{Proposal: 3})
	if !errors.Is(err, domainerrors.ErrInvalidProposalIndex) {
		t.Fatalf("expected invalid proposal index, got %v", err)
	}

	winner, err := module.Handler.WinnerHandler(ctx, ballotID)
	if err != nil {
		t.Fatalf("winner failed: %v", err)
	}
	if winner.WinningIndex != 1 || winner.WinnerName != ballotProposals[1] || winner.VoteCount != 1 {
		t.Fatalf("expected proposal 1 to lead, got %+v", winner)
	}
	if winner.Standings[0].Index != 1 {
		t.Fatalf("expected standings to lead with proposal 1, got %+v", winner.Standings)
	}
}

func TestBallotDelegationRules(t *testing.T) {
	module, ballotID := newBallotFixture(t)
	ctx := context.Background()
	grantRights(t, module, ballotID, "a", "b", "c")

	outcome, err := module.Handler.DelegateHandler(ctx, ballotID, "a", httptransport.DelegateRequest{To: "b"})
	if err != nil {
		t.Fatalf("delegate failed: %v", err)
	}
	if outcome.FinalDelegate != "b" || outcome.Weight != 1 || outcome.Counted {
		t.Fatalf("unexpected delegation outcome: %+v", outcome)
	}
	b, _ := module.Handler.VoterHandler(ctx, ballotID, "b")
	if b.Weight != 2 {
		t.Fatalf("expected b weight 2, got %d", b.Weight)
	}

	_, err = module.Handler.DelegateHandler(ctx, ballotID, "c", httptransport.DelegateRequest{To: "c"})
	if !errors.Is(err, domainerrors.ErrSelfDelegation) {
		t.Fatalf("expected self delegation, got %v", err)
	}
	_, err = module.Handler.DelegateHandler(ctx, ballotID, "a", httptransport.DelegateRequest{To: "c"})
	if !errors.Is(err, domainerrors.ErrAlreadyVoted) {
		t.Fatalf("expected already voted, got %v", err)
	}

	if _, err := module.Handler.DelegateHandler(ctx, ballotID, "b", httptransport.DelegateRequest{To: "c"}); err != nil {
		t.Fatalf("delegate b to c failed: %v", err)
	}
	_, err = module.Handler.DelegateHandler(ctx, ballotID, "c", httptransport.DelegateRequest{To: "a"})
	if !errors.Is(err, domainerrors.ErrDelegationCycle) {
		t.Fatalf("expected delegation cycle, got %v", err)
	}
	c, _ := module.Handler.VoterHandler(ctx, ballotID, "c")
	if c.Weight != 3 || c.Voted {
		t.Fatalf("cycle attempt changed c: %+v", c)
	}

	if _, err := module.Handler.CastVoteHandler(ctx, ballotID, "c", httptransport.CastVoteRequest{Proposal: 2}); err != nil {
		t.Fatalf("c vote failed: %v", err)
	}
	counted, err := module.Handler.DelegateHandler(ctx, ballotID, "chair", httptransport.DelegateRequest{To: "a"})
	if err != nil {
		t.Fatalf("chair delegate failed: %v", err)
	}
	if !counted.Counted || counted.FinalDelegate != "c" || counted.Proposal == nil || *counted.Proposal != 2 {
		t.Fatalf("expected chair weight counted for proposal 2 via c, got %+v", counted)
	}
	proposal, err := module.Handler.ProposalHandler(ctx, ballotID, 2)
	if err != nil {
		t.Fatalf("get proposal failed: %v", err)
	}
	if proposal.VoteCount != 4 {
		t.Fatalf("expected 4 votes for proposal 2, got %d", proposal.VoteCount)
	}
}

func TestBallotUnknownBallotIsNotFound(t *testing.T) {
	module := ballot.NewInMemoryModule(nil, nil)
	_, err := module.Handler.CastVoteHandler(context.Background(), "missing", "chair", httptransport.CastVoteRequest{})
	if !errors.Is(err, domainerrors.ErrBallotNotFound) {
		t.Fatalf("expected ballot not found, got %v", err)
	}
}

func TestBallotRandomVotesPickHighestCount(t *testing.T) {
	module, ballotID := newBallotFixture(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))

	counts := make([]uint64, len(ballotProposals))
	for i := 0; i < 5; i++ {
		voter := "voter-" + strconv.Itoa(i)
		grantRights(t, module, ballotID, voter)
		choice := rng.Intn(len(ballotProposals))
		if _, err := module.Handler.CastVoteHandler(ctx, ballotID, voter, httptransport.CastVoteRequest{Proposal: choice}); err != nil {
			t.Fatalf("vote %d failed: %v", i, err)
		}
		counts[choice]++
	}

	expected := 0
	for index, count := range counts {
		if count > counts[expected] {
			expected = index
		}
	}
	winner, err := module.Handler.WinnerHandler(ctx, ballotID)
	if err != nil {
		t.Fatalf("winner failed: %v", err)
	}
	if winner.WinningIndex != expected || winner.WinnerName != ballotProposals[expected] {
		t.Fatalf("expected winner %d, got %+v", expected, winner)
	}
}
