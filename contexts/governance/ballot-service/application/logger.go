package application

import (
	"errors"
	"log/slog"

	domainerrors "ballot/contexts/governance/ballot-service/domain/errors"
)

// ResolveLogger guarantees a non-nil logger for application/worker code paths.
func ResolveLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Outcome classifies an operation result for metrics: rule violations are
// rejections, anything else is an error.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, domainerrors.ErrCallerNotAuthority),
		errors.Is(err, domainerrors.ErrAlreadyEnfranchisedOrVoted),
		errors.Is(err, domainerrors.ErrSelfDelegation),
		errors.Is(err, domainerrors.ErrDelegationCycle),
		errors.Is(err, domainerrors.ErrAlreadyVoted),
		errors.Is(err, domainerrors.ErrNoVotingRight),
		errors.Is(err, domainerrors.ErrInvalidProposalIndex),
		errors.Is(err, domainerrors.ErrInvalidBallotInput),
		errors.Is(err, domainerrors.ErrInvalidProposalName),
		errors.Is(err, domainerrors.ErrInvalidPrincipal),
		errors.Is(err, domainerrors.ErrBallotNotFound),
		errors.Is(err, domainerrors.ErrIdempotencyConflict):
		return OutcomeRejected
	default:
		return OutcomeError
	}
}
