package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	ballerrors "ballot/contexts/governance/ballot-service/domain/errors"
	ballothttp "ballot/contexts/governance/ballot-service/transport/http"
)

const maxBallotBodyBytes = 1 << 20

func (s *Server) registerBallotRoutes() {
	s.mux.HandleFunc("POST /api/ballots/v1/ballots", s.handleBallotCreate)
	s.mux.HandleFunc("GET /api/ballots/v1/ballots/{ballot_id}", s.handleBallotGet)
	s.mux.HandleFunc("POST /api/ballots/v1/ballots/{ballot_id}/rights", s.handleBallotGrantRight)
	s.mux.HandleFunc("POST /api/ballots/v1/ballots/{ballot_id}/delegations", s.handleBallotDelegate)
	s.mux.HandleFunc("POST /api/ballots/v1/ballots/{ballot_id}/votes", s.handleBallotVote)
	s.mux.HandleFunc("GET /api/ballots/v1/ballots/{ballot_id}/winner", s.handleBallotWinner)
	s.mux.HandleFunc("GET /api/ballots/v1/ballots/{ballot_id}/voters/{principal}", s.handleBallotVoter)
	s.mux.HandleFunc("GET /api/ballots/v1/ballots/{ballot_id}/proposals/{index}", s.handleBallotProposal)
}

func writeBallotError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, ballothttp.ErrorResponse{Code: code, Message: message})
}

func writeBallotDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ballerrors.ErrCallerNotAuthority):
		writeBallotError(w, http.StatusForbidden, "caller_not_authority", err.Error())
	case errors.Is(err, ballerrors.ErrNoVotingRight):
		writeBallotError(w, http.StatusForbidden, "no_voting_right", err.Error())
	case errors.Is(err, ballerrors.ErrAlreadyEnfranchisedOrVoted):
		writeBallotError(w, http.StatusConflict, "already_enfranchised_or_voted", err.Error())
	case errors.Is(err, ballerrors.ErrAlreadyVoted):
		writeBallotError(w, http.StatusConflict, "already_voted", err.Error())
	case errors.Is(err, ballerrors.ErrDelegationCycle):
		writeBallotError(w, http.StatusConflict, "delegation_cycle", err.Error())
	case errors.Is(err, ballerrors.ErrSelfDelegation):
		writeBallotError(w, http.StatusBadRequest, "self_delegation", err.Error())
	case errors.Is(err, ballerrors.ErrInvalidProposalIndex):
		writeBallotError(w, http.StatusBadRequest, "invalid_proposal_index", err.Error())
	case errors.Is(err, ballerrors.ErrInvalidBallotInput),
		errors.Is(err, ballerrors.ErrInvalidProposalName),
		errors.Is(err, ballerrors.ErrInvalidPrincipal):
		writeBallotError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, ballerrors.ErrBallotNotFound):
		writeBallotError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ballerrors.ErrIdempotencyConflict),
		errors.Is(err, ballerrors.ErrConflict):
		writeBallotError(w, http.StatusConflict, "conflict", err.Error())
	default:
		writeBallotError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func requireBallotUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		writeBallotError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return "", false
	}
	return userID, true
}

func decodeBallotJSON(w http.ResponseWriter, r *http.Request, target any) bool {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBallotBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		writeBallotError(w, http.StatusBadRequest, "invalid_request", "request body must be valid JSON")
		return false
	}
	return true
}

func (s *Server) handleBallotCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireBallotUser(w, r)
	if !ok {
		return
	}
	var req ballothttp.CreateBallotRequest
	if !decodeBallotJSON(w, r, &req) {
		return
	}
	idempotencyKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	resp, err := s.ballot.Handler.CreateBallotHandler(r.Context(), userID, idempotencyKey, req)
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	status := http.StatusCreated
	if resp.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleBallotGet(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ballot.Handler.GetBallotHandler(r.Context(), r.PathValue("ballot_id"))
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBallotGrantRight(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireBallotUser(w, r)
	if !ok {
		return
	}
	var req ballothttp.GrantRightRequest
	if !decodeBallotJSON(w, r, &req) {
		return
	}
	resp, err := s.ballot.Handler.GrantRightHandler(r.Context(), r.PathValue("ballot_id"), userID, req)
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBallotDelegate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireBallotUser(w, r)
	if !ok {
		return
	}
	var req ballothttp.DelegateRequest
	if !decodeBallotJSON(w, r, &req) {
		return
	}
	resp, err := s.ballot.Handler.DelegateHandler(r.Context(), r.PathValue("ballot_id"), userID, req)
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBallotVote(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireBallotUser(w, r)
	if !ok {
		return
	}
	var req ballothttp.CastVoteRequest
	if !decodeBallotJSON(w, r, &req) {
		return
	}
	resp, err := s.ballot.Handler.CastVoteHandler(r.Context(), r.PathValue("ballot_id"), userID, req)
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBallotWinner(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ballot.Handler.WinnerHandler(r.Context(), r.PathValue("ballot_id"))
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBallotVoter(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ballot.Handler.VoterHandler(r.Context(), r.PathValue("ballot_id"), r.PathValue("principal"))
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBallotProposal(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeBallotError(w, http.StatusBadRequest, "invalid_proposal_index", "proposal index must be an integer")
		return
	}
	resp, err := s.ballot.Handler.ProposalHandler(r.Context(), r.PathValue("ballot_id"), index)
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
