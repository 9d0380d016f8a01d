package queries

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"ballot/contexts/governance/ballot-service/domain/entities"
	domainerrors "ballot/contexts/governance/ballot-service/domain/errors"
	"ballot/contexts/governance/ballot-service/domain/services"
	"ballot/contexts/governance/ballot-service/domain/valueobjects"
	"ballot/contexts/governance/ballot-service/ports"
)

// Winner is the leading proposal of a ballot at read time.
type Winner struct {
	Index     int
	Name      string
	VoteCount uint64
}

type Standing struct {
	Index     int
	Name      string
	VoteCount uint64
}

type ResultsUseCase struct {
	Ballots ports.BallotReader
}

func (uc ResultsUseCase) GetBallot(ctx context.Context, ballotID string) (entities.Ballot, error) {
	ballotID = strings.TrimSpace(ballotID)
	if ballotID == "" {
		return entities.Ballot{}, domainerrors.ErrInvalidBallotInput
	}
	return uc.Ballots.GetBallot(ctx, ballotID)
}

// WinningProposal reports the current leader. It is valid at any time,
// including before any vote is cast, when it reports index 0.
func (uc ResultsUseCase) WinningProposal(ctx context.Context, ballotID string) (Winner, error) {
	ballot, err := uc.GetBallot(ctx, ballotID)
	if err != nil {
		return Winner{}, err
	}
	return winnerOf(ballot)
}

// Results reports the leader and the standings from a single load of the
// ballot, so both describe the same tally.
func (uc ResultsUseCase) Results(ctx context.Context, ballotID string) (Winner, []Standing, error) {
	ballot, err := uc.GetBallot(ctx, ballotID)
	if err != nil {
		return Winner{}, nil, err
	}
	winner, err := winnerOf(ballot)
	if err != nil {
		return Winner{}, nil, err
	}
	return winner, standingsOf(ballot), nil
}

func (uc ResultsUseCase) WinnerName(ctx context.Context, ballotID string) (entities.ProposalName, error) {
	ballot, err := uc.GetBallot(ctx, ballotID)
	if err != nil {
		return entities.ProposalName{}, err
	}
	return services.WinnerName(ballot)
}

// GetVoter returns the voter record. Unknown principals read as the zero record.
func (uc ResultsUseCase) GetVoter(ctx context.Context, ballotID string, principal string) (entities.Voter, error) {
	p, err := valueobjects.NewPrincipal(principal)
	if err != nil {
		return entities.Voter{}, fmt.Errorf("%w: %s", domainerrors.ErrInvalidPrincipal, err.Error())
	}
	ballot, err := uc.GetBallot(ctx, ballotID)
	if err != nil {
		return entities.Voter{}, err
	}
	return ballot.Voter(p), nil
}

func (uc ResultsUseCase) GetProposal(ctx context.Context, ballotID string, index int) (entities.Proposal, error) {
	ballot, err := uc.GetBallot(ctx, ballotID)
	if err != nil {
		return entities.Proposal{}, err
	}
	return ballot.Proposal(index)
}

// Standings lists every proposal by descending vote count, ties by index.
func (uc ResultsUseCase) Standings(ctx context.Context, ballotID string) ([]Standing, error) {
	ballot, err := uc.GetBallot(ctx, ballotID)
	if err != nil {
		return nil, err
	}
	return standingsOf(ballot), nil
}

func winnerOf(ballot entities.Ballot) (Winner, error) {
	index := services.WinningProposal(ballot)
	proposal, err := ballot.Proposal(index)
	if err != nil {
		return Winner{}, err
	}
	return Winner{
		Index:     index,
		Name:      proposal.Name.String(),
		VoteCount: proposal.VoteCount,
	}, nil
}

func standingsOf(ballot entities.Ballot) []Standing {
	standings := make([]Standing, 0, len(ballot.Proposals))
	for index, proposal := range ballot.Proposals {
		standings = append(standings, Standing{
			Index:     index,
			Name:      proposal.Name.String(),
			VoteCount: proposal.VoteCount,
		})
	}
	sort.SliceStable(standings, func(i, j int) bool {
		if standings[i].VoteCount == standings[j].VoteCount {
			return standings[i].Index < standings[j].Index
		}
		return standings[i].VoteCount > standings[j].VoteCount
	})
	return standings
}
