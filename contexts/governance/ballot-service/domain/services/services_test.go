package services

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"ballot/contexts/governance/ballot-service/domain/entities"
	domainerrors "ballot/contexts/governance/ballot-service/domain/errors"
	"ballot/contexts/governance/ballot-service/domain/valueobjects"
)

const chair valueobjects.Principal = "chair"

var testProposals = []string{"Proposal 1", "Proposal 2", "Proposal 3"}

func newTestBallot(t *testing.T) *entities.Ballot {
	t.Helper()
	ballot, err := entities.NewBallot("ballot-1", chair, testProposals, time.Now())
	if err != nil {
		t.Fatalf("new ballot failed: %v", err)
	}
	return &ballot
}

func enfranchise(t *testing.T, ballot *entities.Ballot, voters ...valueobjects.Principal) {
	t.Helper()
	for _, voter := range voters {
		if err := GrantRight(ballot, chair, voter); err != nil {
			t.Fatalf("grant right to %s failed: %v", voter, err)
		}
	}
}

func TestNewBallotGenesisState(t *testing.T) {
	ballot := newTestBallot(t)
	if len(ballot.Proposals) != len(testProposals) {
		t.Fatalf("expected %d proposals, got %d", len(testProposals), len(ballot.Proposals))
	}
	for index, proposal := range ballot.Proposals {
		if proposal.Name.String() != testProposals[index] {
			t.Fatalf("expected proposal %d named %q, got %q", index, testProposals[index], proposal.Name.String())
		}
		if proposal.VoteCount != 0 {
			t.Fatalf("expected zero votes for proposal %d, got %d", index, proposal.VoteCount)
		}
	}
	if ballot.Voter(chair).Weight != 1 {
		t.Fatalf("expected chairperson weight 1, got %d", ballot.Voter(chair).Weight)
	}
}

func TestGrantRight(t *testing.T) {
	ballot := newTestBallot(t)

	if err := GrantRight(ballot, "mallory", "bob"); !errors.Is(err, domainerrors.ErrCallerNotAuthority) {
		t.Fatalf("expected caller not authority, got %v", err)
	}
	if ballot.Voter("bob").Weight != 0 {
		t.Fatalf("rejected grant must not change weight")
	}

	enfranchise(t, ballot, "bob")
	if ballot.Voter("bob").Weight != 1 {
		t.Fatalf("expected weight 1, got %d", ballot.Voter("bob").Weight)
	}

	err := GrantRight(ballot, chair, "bob")
	if !errors.Is(err, domainerrors.ErrAlreadyEnfranchisedOrVoted) || !errors.Is(err, domainerrors.ErrVoterAlreadyEnfranchised) {
		t.Fatalf("expected already enfranchised, got %v", err)
	}

	if _, err := CastVote(ballot, "bob", 0); err != nil {
		t.Fatalf("cast vote failed: %v", err)
	}
	err = GrantRight(ballot, chair, "bob")
	if !errors.Is(err, domainerrors.ErrAlreadyEnfranchisedOrVoted) || !errors.Is(err, domainerrors.ErrVoterAlreadyVoted) {
		t.Fatalf("expected already voted, got %v", err)
	}
}

func TestDelegateSelfIsAlwaysRejected(t *testing.T) {
	ballot := newTestBallot(t)
	enfranchise(t, ballot, "bob")
	if _, err := CastVote(ballot, "bob", 1); err != nil {
		t.Fatalf("cast vote failed: %v", err)
	}

	for _, principal := range []valueobjects.Principal{chair, "bob", "stranger"} {
		if _, err := Delegate(ballot, principal, principal); !errors.Is(err, domainerrors.ErrSelfDelegation) {
			t.Fatalf("expected self delegation for %s, got %v", principal, err)
		}
	}
}

func TestDelegateAccumulatesWeight(t *testing.T) {
	ballot := newTestBallot(t)
	enfranchise(t, ballot, "alice", "bob")

	outcome, err := Delegate(ballot, "alice", "bob")
	if err != nil {
		t.Fatalf("delegate failed: %v", err)
	}
	if outcome.Counted || outcome.FinalDelegate != "bob" || outcome.Weight != 1 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if ballot.Voter("bob").Weight != 2 {
		t.Fatalf("expected delegate weight 2, got %d", ballot.Voter("bob").Weight)
	}
	alice := ballot.Voter("alice")
	if !alice.Voted || alice.Delegate != "bob" {
		t.Fatalf("expected alice voted with delegate bob, got %+v", alice)
	}

	if _, err := Delegate(ballot, "alice", chair); !errors.Is(err, domainerrors.ErrAlreadyVoted) {
		t.Fatalf("expected already voted, got %v", err)
	}

	if _, err := CastVote(ballot, "bob", 2); err != nil {
		t.Fatalf("cast vote failed: %v", err)
	}
	if ballot.Proposals[2].VoteCount != 2 {
		t.Fatalf("expected 2 votes for proposal 2, got %d", ballot.Proposals[2].VoteCount)
	}
}

func TestDelegateFollowsChainToFinalDelegate(t *testing.T) {
	ballot := newTestBallot(t)
	enfranchise(t, ballot, "a", "b", "c", "d")

	for _, step := range [][2]valueobjects.Principal{{"b", "c"}, {"c", "d"}} {
		if _, err := Delegate(ballot, step[0], step[1]); err != nil {
			t.Fatalf("delegate %s -> %s failed: %v", step[0], step[1], err)
		}
	}
	outcome, err := Delegate(ballot, "a", "b")
	if err != nil {
		t.Fatalf("delegate failed: %v", err)
	}
	if outcome.Delegate != "b" || outcome.FinalDelegate != "d" {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if ballot.Voter("a").Delegate != "b" {
		t.Fatalf("expected direct delegate b to be recorded, got %s", ballot.Voter("a").Delegate)
	}
	if ballot.Voter("d").Weight != 4 {
		t.Fatalf("expected final delegate weight 4, got %d", ballot.Voter("d").Weight)
	}
}

func TestDelegateCycleIsRejectedWithoutTransfer(t *testing.T) {
	ballot := newTestBallot(t)
	enfranchise(t, ballot, "a", "b", "c")

	if _, err := Delegate(ballot, "a", "b"); err != nil {
		t.Fatalf("delegate a -> b failed: %v", err)
	}
	if _, err := Delegate(ballot, "b", "c"); err != nil {
		t.Fatalf("delegate b -> c failed: %v", err)
	}
	before := ballot.Clone()

	if _, err := Delegate(ballot, "c", "a"); !errors.Is(err, domainerrors.ErrDelegationCycle) {
		t.Fatalf("expected delegation cycle, got %v", err)
	}
	for _, principal := range []valueobjects.Principal{"a", "b", "c"} {
		if ballot.Voter(principal) != before.Voter(principal) {
			t.Fatalf("voter %s changed after rejected delegation: %+v", principal, ballot.Voter(principal))
		}
	}
	if ballot.Voter("c").Weight != 3 {
		t.Fatalf("expected c to keep weight 3, got %d", ballot.Voter("c").Weight)
	}
}

func TestDelegateWalkIsBounded(t *testing.T) {
	ballot := newTestBallot(t)
	// A corrupted table with a cycle that does not include the caller.
	ballot.SetVoter("x", entities.Voter{Weight: 1, Voted: true, Delegate: "y"})
	ballot.SetVoter("y", entities.Voter{Weight: 1, Voted: true, Delegate: "x"})
	enfranchise(t, ballot, "z")

	if _, err := Delegate(ballot, "z", "x"); !errors.Is(err, domainerrors.ErrDelegationCycle) {
		t.Fatalf("expected bounded walk to report a cycle, got %v", err)
	}
	if ballot.Voter("z").Voted {
		t.Fatalf("rejected delegation must not settle the caller")
	}
}

func TestDelegateToVotedPrincipalCountsImmediately(t *testing.T) {
	ballot := newTestBallot(t)
	enfranchise(t, ballot, "alice", "bob")
	if _, err := CastVote(ballot, "bob", 1); err != nil {
		t.Fatalf("cast vote failed: %v", err)
	}

	outcome, err := Delegate(ballot, "alice", "bob")
	if err != nil {
		t.Fatalf("delegate failed: %v", err)
	}
	if !outcome.Counted || outcome.Proposal != 1 {
		t.Fatalf("expected weight counted for proposal 1, got %+v", outcome)
	}
	if ballot.Proposals[1].VoteCount != 2 {
		t.Fatalf("expected 2 votes for proposal 1, got %d", ballot.Proposals[1].VoteCount)
	}
	if _, ok := ballot.Voter("alice").ChosenProposal(); ok {
		t.Fatalf("delegator must not get a chosen proposal")
	}
	if ballot.Voter("bob").Weight != 1 {
		t.Fatalf("voted delegate weight must not change, got %d", ballot.Voter("bob").Weight)
	}
}

func TestDelegateWithoutWeightTransfersNothing(t *testing.T) {
	ballot := newTestBallot(t)
	enfranchise(t, ballot, "bob")

	if _, err := Delegate(ballot, "stranger", "bob"); err != nil {
		t.Fatalf("delegate failed: %v", err)
	}
	if ballot.Voter("bob").Weight != 1 {
		t.Fatalf("expected bob weight to stay 1, got %d", ballot.Voter("bob").Weight)
	}
}

func TestCastVote(t *testing.T) {
	ballot := newTestBallot(t)

	if _, err := CastVote(ballot, "nobody", 0); !errors.Is(err, domainerrors.ErrNoVotingRight) {
		t.Fatalf("expected no voting right, got %v", err)
	}

	enfranchise(t, ballot, "bob")
	for _, index := range []int{-1, len(testProposals)} {
		if _, err := CastVote(ballot, "bob", index); !errors.Is(err, domainerrors.ErrInvalidProposalIndex) {
			t.Fatalf("expected invalid proposal index for %d, got %v", index, err)
		}
	}
	if ballot.Voter("bob").Voted {
		t.Fatalf("rejected vote must not mark voter")
	}

	weight, err := CastVote(ballot, "bob", 0)
	if err != nil {
		t.Fatalf("cast vote failed: %v", err)
	}
	if weight != 1 || ballot.Proposals[0].VoteCount != 1 {
		t.Fatalf("expected weight 1 counted, got weight=%d count=%d", weight, ballot.Proposals[0].VoteCount)
	}
	voter := ballot.Voter("bob")
	if index, ok := voter.ChosenProposal(); !voter.Voted || !ok || index != 0 {
		t.Fatalf("unexpected voter state: %+v", voter)
	}
	if _, err := CastVote(ballot, "bob", 1); !errors.Is(err, domainerrors.ErrAlreadyVoted) {
		t.Fatalf("expected already voted, got %v", err)
	}
}

func TestWinningProposal(t *testing.T) {
	ballot := newTestBallot(t)
	if got := WinningProposal(*ballot); got != 0 {
		t.Fatalf("expected winner 0 on empty tally, got %d", got)
	}
	name, err := WinnerName(*ballot)
	if err != nil || name.String() != "Proposal 1" {
		t.Fatalf("expected Proposal 1, got %q err=%v", name.String(), err)
	}

	if _, err := CastVote(ballot, chair, 1); err != nil {
		t.Fatalf("cast vote failed: %v", err)
	}
	if got := WinningProposal(*ballot); got != 1 {
		t.Fatalf("expected winner 1, got %d", got)
	}
	name, err = WinnerName(*ballot)
	if err != nil || name.String() != "Proposal 2" {
		t.Fatalf("expected Proposal 2, got %q err=%v", name.String(), err)
	}

	ballot.Proposals[2].VoteCount = 1
	if got := WinningProposal(*ballot); got != 1 {
		t.Fatalf("expected tie to resolve to lower index 1, got %d", got)
	}
}

func TestTallyNeverExceedsGrantedWeight(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	principals := []valueobjects.Principal{chair, "p1", "p2", "p3", "p4", "p5", "p6", "p7"}

	for round := 0; round < 50; round++ {
		ballot := newTestBallot(t)
		granted := uint64(1)
		for _, principal := range principals[1:] {
			if rng.Intn(4) == 0 {
				continue
			}
			if err := GrantRight(ballot, chair, principal); err == nil {
				granted++
			}
		}

		for step := 0; step < 40; step++ {
			caller := principals[rng.Intn(len(principals))]
			if rng.Intn(2) == 0 {
				_, _ = CastVote(ballot, caller, rng.Intn(len(testProposals)))
			} else {
				_, _ = Delegate(ballot, caller, principals[rng.Intn(len(principals))])
			}
			if total := ballot.TotalVotes(); total > granted {
				t.Fatalf("round %d: tally %d exceeds granted weight %d", round, total, granted)
			}
		}

		// Settle every remaining holder of weight and check the tally is complete.
		for _, principal := range principals {
			voter := ballot.Voter(principal)
			if !voter.Voted && voter.Weight > 0 {
				if _, err := CastVote(ballot, principal, 0); err != nil {
					t.Fatalf("round %d: settle %s failed: %v", round, principal, err)
				}
			}
		}
		if total := ballot.TotalVotes(); total != granted {
			t.Fatalf("round %d: expected tally %d after settlement, got %d", round, granted, total)
		}
	}
}
