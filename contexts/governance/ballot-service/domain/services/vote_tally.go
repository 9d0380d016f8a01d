package services

import (
	"ballot/contexts/governance/ballot-service/domain/entities"
	domainerrors "ballot/contexts/governance/ballot-service/domain/errors"
	"ballot/contexts/governance/ballot-service/domain/valueobjects"
)

// CastVote records the caller's full weight against proposal and returns the
// weight that was counted.
func CastVote(ballot *entities.Ballot, caller valueobjects.Principal, proposal int) (uint64, error) {
	if ballot == nil {
		return 0, domainerrors.ErrBallotNotFound
	}

	voter := ballot.Voter(caller)
	if voter.Weight == 0 {
		return 0, domainerrors.ErrNoVotingRight
	}
	if voter.Voted {
		return 0, domainerrors.ErrAlreadyVoted
	}
	if !ballot.ValidProposal(proposal) {
		return 0, domainerrors.ErrInvalidProposalIndex
	}

	voter.Voted = true
	voter.Vote = proposal
	voter.HasVote = true
	ballot.SetVoter(caller, voter)
	ballot.Proposals[proposal].VoteCount += voter.Weight
	return voter.Weight, nil
}

// WinningProposal returns the index of the first proposal whose count is
// strictly greater than every count before it. Ties go to the lower index and
// an empty tally yields 0.
func WinningProposal(ballot entities.Ballot) int {
	winning := 0
	var winningCount uint64
	for index, proposal := range ballot.Proposals {
		if proposal.VoteCount > winningCount {
			winningCount = proposal.VoteCount
			winning = index
		}
	}
	return winning
}

func WinnerName(ballot entities.Ballot) (entities.ProposalName, error) {
	proposal, err := ballot.Proposal(WinningProposal(ballot))
	if err != nil {
		return entities.ProposalName{}, err
	}
	return proposal.Name, nil
}
