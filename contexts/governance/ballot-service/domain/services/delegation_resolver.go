package services

import (
	"fmt"

	"ballot/contexts/governance/ballot-service/domain/entities"
	domainerrors "ballot/contexts/governance/ballot-service/domain/errors"
	"ballot/contexts/governance/ballot-service/domain/valueobjects"
)

// DelegationOutcome describes how a delegation settled.
type DelegationOutcome struct {
	// Delegate is the principal named by the caller.
	Delegate valueobjects.Principal
	// FinalDelegate is the end of the delegation chain starting at Delegate.
	FinalDelegate valueobjects.Principal
	Weight        uint64
	// Counted is true when FinalDelegate had already voted and the weight went
	// straight into the tally of Proposal.
	Counted  bool
	Proposal int
}

// Delegate transfers the caller's vote to target. The chain starting at target
// is followed to its end; if it leads back to the caller the delegation is
// rejected and nothing is written.
func Delegate(ballot *entities.Ballot, caller valueobjects.Principal, target valueobjects.Principal) (DelegationOutcome, error) {
	if ballot == nil {
		return DelegationOutcome{}, domainerrors.ErrBallotNotFound
	}
	if caller.IsZero() || target.IsZero() {
		return DelegationOutcome{}, domainerrors.ErrInvalidPrincipal
	}
	if target == caller {
		return DelegationOutcome{}, domainerrors.ErrSelfDelegation
	}

	sender := ballot.Voter(caller)
	if sender.Voted {
		return DelegationOutcome{}, domainerrors.ErrAlreadyVoted
	}

	final, err := resolveChain(*ballot, caller, target)
	if err != nil {
		return DelegationOutcome{}, err
	}
	delegate := ballot.Voter(final)

	outcome := DelegationOutcome{
		Delegate:      target,
		FinalDelegate: final,
		Weight:        sender.Weight,
	}
	if delegate.Voted {
		index, ok := delegate.ChosenProposal()
		if !ok || !ballot.ValidProposal(index) {
			return DelegationOutcome{}, fmt.Errorf("%w: delegate %s voted without a proposal", domainerrors.ErrConflict, final)
		}
		outcome.Counted = true
		outcome.Proposal = index
	}

	sender.Voted = true
	sender.Delegate = target
	ballot.SetVoter(caller, sender)

	if outcome.Counted {
		ballot.Proposals[outcome.Proposal].VoteCount += sender.Weight
	} else {
		delegate.Weight += sender.Weight
		ballot.SetVoter(final, delegate)
	}
	return outcome, nil
}

// resolveChain walks delegate references from target. The walk takes at most
// one hop per known principal, so a corrupted table cannot loop forever.
func resolveChain(ballot entities.Ballot, caller valueobjects.Principal, target valueobjects.Principal) (valueobjects.Principal, error) {
	limit := ballot.KnownPrincipals()
	current := target
	for hops := 0; ; hops++ {
		next := ballot.Voter(current).Delegate
		if next.IsZero() {
			return current, nil
		}
		if hops >= limit {
			return "", domainerrors.ErrDelegationCycle
		}
		current = next
		if current == caller {
			return "", domainerrors.ErrDelegationCycle
		}
	}
}
