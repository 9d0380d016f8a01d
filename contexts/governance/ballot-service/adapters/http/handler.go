package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"ballot/contexts/governance/ballot-service/application/commands"
	"ballot/contexts/governance/ballot-service/application/queries"
	"ballot/contexts/governance/ballot-service/domain/entities"
	httptransport "ballot/contexts/governance/ballot-service/transport/http"
)

type Handler struct {
	Ballots commands.BallotUseCase
	Results queries.ResultsUseCase
	Logger  *slog.Logger
}

func (h Handler) CreateBallotHandler(
	ctx context.Context,
	userID string,
	idempotencyKey string,
	req httptransport.CreateBallotRequest,
) (httptransport.BallotResponse, error) {
	result, err := h.Ballots.CreateBallot(ctx, commands.CreateBallotCommand{
		Chairperson:    userID,
		Proposals:      req.Proposals,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return httptransport.BallotResponse{}, err
	}
	response := mapBallot(result.Ballot)
	response.Replayed = result.Replayed
	return response, nil
}

func (h Handler) GetBallotHandler(ctx context.Context, ballotID string) (httptransport.BallotResponse, error) {
	ballot, err := h.Results.GetBallot(ctx, ballotID)
	if err != nil {
		return httptransport.BallotResponse{}, err
	}
	return mapBallot(ballot), nil
}

func (h Handler) GrantRightHandler(
	ctx context.Context,
	ballotID string,
	userID string,
	req httptransport.GrantRightRequest,
) (httptransport.VoterResponse, error) {
	if err := h.Ballots.GrantRight(ctx, commands.GrantRightCommand{
		BallotID: ballotID,
		Caller:   userID,
		Voter:    req.Voter,
	}); err != nil {
		return httptransport.VoterResponse{}, err
	}
	return h.VoterHandler(ctx, ballotID, req.Voter)
}

func (h Handler) DelegateHandler(
	ctx context.Context,
	ballotID string,
	userID string,
	req httptransport.DelegateRequest,
) (httptransport.DelegationResponse, error) {
	outcome, err := h.Ballots.Delegate(ctx, commands.DelegateCommand{
		BallotID: ballotID,
		Caller:   userID,
		To:       req.To,
	})
	if err != nil {
		return httptransport.DelegationResponse{}, err
	}
	response := httptransport.DelegationResponse{
		BallotID:      ballotID,
		Delegate:      outcome.Delegate.String(),
		FinalDelegate: outcome.FinalDelegate.String(),
		Weight:        outcome.Weight,
		Counted:       outcome.Counted,
	}
	if outcome.Counted {
		proposal := outcome.Proposal
		response.Proposal = &proposal
	}
	return response, nil
}

// CastVoteHandler casts the vote and returns the caller's updated record so
// clients can confirm it was counted.
func (h Handler) CastVoteHandler(
	ctx context.Context,
	ballotID string,
	userID string,
	req httptransport.CastVoteRequest,
) (httptransport.VoterResponse, error) {
	if err := h.Ballots.CastVote(ctx, commands.CastVoteCommand{
		BallotID: ballotID,
		Caller:   userID,
		Proposal: req.Proposal,
	}); err != nil {
		return httptransport.VoterResponse{}, err
	}
	return h.VoterHandler(ctx, ballotID, userID)
}

func (h Handler) WinnerHandler(ctx context.Context, ballotID string) (httptransport.WinnerResponse, error) {
	winner, standings, err := h.Results.Results(ctx, ballotID)
	if err != nil {
		return httptransport.WinnerResponse{}, err
	}
	items := make([]httptransport.ProposalResponse, 0, len(standings))
	for _, standing := range standings {
		items = append(items, httptransport.ProposalResponse{
			Index:     standing.Index,
			Name:      standing.Name,
			VoteCount: standing.VoteCount,
		})
	}
	return httptransport.WinnerResponse{
		BallotID:     ballotID,
		WinningIndex: winner.Index,
		WinnerName:   winner.Name,
		VoteCount:    winner.VoteCount,
		Standings:    items,
	}, nil
}

func (h Handler) VoterHandler(ctx context.Context, ballotID string, principal string) (httptransport.VoterResponse, error) {
	voter, err := h.Results.GetVoter(ctx, ballotID, principal)
	if err != nil {
		return httptransport.VoterResponse{}, err
	}
	response := httptransport.VoterResponse{
		Principal: principal,
		Weight:    voter.Weight,
		Voted:     voter.Voted,
		Delegate:  voter.Delegate.String(),
	}
	if index, ok := voter.ChosenProposal(); ok {
		response.Vote = &index
	}
	return response, nil
}

func (h Handler) ProposalHandler(ctx context.Context, ballotID string, index int) (httptransport.ProposalResponse, error) {
	proposal, err := h.Results.GetProposal(ctx, ballotID, index)
	if err != nil {
		return httptransport.ProposalResponse{}, err
	}
	return httptransport.ProposalResponse{
		Index:     index,
		Name:      proposal.Name.String(),
		VoteCount: proposal.VoteCount,
	}, nil
}

func mapBallot(ballot entities.Ballot) httptransport.BallotResponse {
	proposals := make([]httptransport.ProposalResponse, 0, len(ballot.Proposals))
	for index, proposal := range ballot.Proposals {
		proposals = append(proposals, httptransport.ProposalResponse{
			Index:     index,
			Name:      proposal.Name.String(),
			VoteCount: proposal.VoteCount,
		})
	}
	return httptransport.BallotResponse{
		BallotID:    ballot.BallotID,
		Chairperson: ballot.Chairperson.String(),
		Proposals:   proposals,
		TotalVotes:  ballot.TotalVotes(),
		Version:     ballot.Version,
		CreatedAt:   ballot.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   ballot.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
