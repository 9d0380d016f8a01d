package errors

import (
	"errors"
	"fmt"
)

var (
	ErrCallerNotAuthority         = errors.New("only chairperson can give right to vote")
	ErrAlreadyEnfranchisedOrVoted = errors.New("voter already enfranchised or voted")
	ErrVoterAlreadyVoted          = fmt.Errorf("%w: the voter already voted", ErrAlreadyEnfranchisedOrVoted)
	ErrVoterAlreadyEnfranchised   = fmt.Errorf("%w: the voter already has voting rights", ErrAlreadyEnfranchisedOrVoted)
	ErrSelfDelegation             = errors.New("self-delegation is disallowed")
	ErrDelegationCycle            = errors.New("found loop in delegation")
	ErrAlreadyVoted               = errors.New("already voted")
	ErrNoVotingRight              = errors.New("has no right to vote")
	ErrInvalidProposalIndex       = errors.New("invalid proposal index")

	ErrInvalidBallotInput  = errors.New("invalid ballot input")
	ErrInvalidProposalName = errors.New("invalid proposal name")
	ErrInvalidPrincipal    = errors.New("invalid principal")
	ErrBallotNotFound      = errors.New("ballot not found")
	ErrConflict            = errors.New("ballot conflict")
	ErrIdempotencyConflict = errors.New("idempotency key conflict")
)
