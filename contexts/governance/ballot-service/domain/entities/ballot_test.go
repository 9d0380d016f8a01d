package entities

import (
	"errors"
	"strings"
	"testing"
	"time"

	domainerrors "ballot/contexts/governance/ballot-service/domain/errors"
)

func TestParseProposalName(t *testing.T) {
	cases := []struct {
		label string
		ok    bool
	}{
		{label: "Proposal 1", ok: true},
		{label: strings.Repeat("x", ProposalNameSize), ok: true},
		{label: strings.Repeat("x", ProposalNameSize+1), ok: false},
		{label: "", ok: false},
		{label: "nul\x00inside", ok: false},
	}
	for _, tc := range cases {
		name, err := ParseProposalName(tc.label)
		if tc.ok {
			if err != nil {
				t.Fatalf("parse %q failed: %v", tc.label, err)
			}
			if name.String() != tc.label {
				t.Fatalf("expected round trip of %q, got %q", tc.label, name.String())
			}
			continue
		}
		if !errors.Is(err, domainerrors.ErrInvalidProposalName) {
			t.Fatalf("expected invalid proposal name for %q, got %v", tc.label, err)
		}
	}
}

func TestNewBallotRejectsInvalidInput(t *testing.T) {
	now := time.Now()
	if _, err := NewBallot("b-1", "chair", nil, now); !errors.Is(err, domainerrors.ErrInvalidBallotInput) {
		t.Fatalf("expected invalid ballot input for empty proposals, got %v", err)
	}
	if _, err := NewBallot("b-1", "", []string{"a"}, now); !errors.Is(err, domainerrors.ErrInvalidPrincipal) {
		t.Fatalf("expected invalid principal, got %v", err)
	}
	if _, err := NewBallot("b-1", "chair", []string{"a", strings.Repeat("y", 40)}, now); !errors.Is(err, domainerrors.ErrInvalidProposalName) {
		t.Fatalf("expected invalid proposal name, got %v", err)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	ballot, err := NewBallot("b-1", "chair", []string{"a", "b"}, time.Now())
	if err != nil {
		t.Fatalf("new ballot failed: %v", err)
	}
	clone := ballot.Clone()
	clone.Proposals[0].VoteCount = 7
	clone.SetVoter("bob", Voter{Weight: 1})

	if ballot.Proposals[0].VoteCount != 0 {
		t.Fatalf("clone shares proposal storage")
	}
	if _, ok := ballot.Voters["bob"]; ok {
		t.Fatalf("clone shares voter table")
	}
	if ballot.Voter("unknown") != (Voter{}) {
		t.Fatalf("unknown principal must read as zero voter")
	}
}
