package services

import (
	"ballot/contexts/governance/ballot-service/domain/entities"
	domainerrors "ballot/contexts/governance/ballot-service/domain/errors"
	"ballot/contexts/governance/ballot-service/domain/valueobjects"
)

// GrantRight gives target a weight of 1. Only the ballot chairperson may call
// it, and only for a principal that has neither voted nor holds weight.
func GrantRight(ballot *entities.Ballot, caller valueobjects.Principal, target valueobjects.Principal) error {
	if ballot == nil {
		return domainerrors.ErrBallotNotFound
	}
	if caller != ballot.Chairperson {
		return domainerrors.ErrCallerNotAuthority
	}
	if target.IsZero() {
		return domainerrors.ErrInvalidPrincipal
	}

	voter := ballot.Voter(target)
	if voter.Voted {
		return domainerrors.ErrVoterAlreadyVoted
	}
	if voter.Weight != 0 {
		return domainerrors.ErrVoterAlreadyEnfranchised
	}

	voter.Weight = 1
	ballot.SetVoter(target, voter)
	return nil
}
