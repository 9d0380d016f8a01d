package entities

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	domainerrors "ballot/contexts/governance/ballot-service/domain/errors"
	"ballot/contexts/governance/ballot-service/domain/valueobjects"
)

// ProposalNameSize is the fixed width of a proposal label in bytes.
const ProposalNameSize = 32

// ProposalName is a fixed-width label, right padded with zero bytes.
type ProposalName [ProposalNameSize]byte

// ParseProposalName encodes label into its fixed-width form. Labels that are
// empty, longer than ProposalNameSize bytes or contain a zero byte cannot be
// decoded back unchanged and are rejected.
func ParseProposalName(label string) (ProposalName, error) {
	var name ProposalName
	if label == "" || len(label) > ProposalNameSize || strings.IndexByte(label, 0) >= 0 {
		return name, fmt.Errorf("%w: %q", domainerrors.ErrInvalidProposalName, label)
	}
	copy(name[:], label)
	return name, nil
}

func (n ProposalName) String() string {
	return string(bytes.TrimRight(n[:], "\x00"))
}

type Proposal struct {
	Name      ProposalName
	VoteCount uint64
}

// Voter is the per-principal record. The zero value is what an unknown
// principal reads as: no weight, not voted, no delegate, no chosen proposal.
type Voter struct {
	Weight   uint64
	Voted    bool
	Delegate valueobjects.Principal
	Vote     int
	HasVote  bool
}

// ChosenProposal reports the proposal index counted for this voter, if any.
func (v Voter) ChosenProposal() (int, bool) {
	return v.Vote, v.HasVote
}

func (v Voter) HasDelegate() bool {
	return !v.Delegate.IsZero()
}

// Ballot is the state store of one ballot: the ordered proposal list and the
// voter table. Proposals are fixed at creation; voters are added lazily.
type Ballot struct {
	BallotID    string
	Chairperson valueobjects.Principal
	Proposals   []Proposal
	Voters      map[valueobjects.Principal]Voter
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewBallot creates the proposal list in the given order and enfranchises the
// chairperson with weight 1.
func NewBallot(ballotID string, chairperson valueobjects.Principal, labels []string, now time.Time) (Ballot, error) {
	if strings.TrimSpace(ballotID) == "" || len(labels) == 0 {
		return Ballot{}, domainerrors.ErrInvalidBallotInput
	}
	if chairperson.IsZero() {
		return Ballot{}, domainerrors.ErrInvalidPrincipal
	}

	proposals := make([]Proposal, 0, len(labels))
	for _, label := range labels {
		name, err := ParseProposalName(label)
		if err != nil {
			return Ballot{}, err
		}
		proposals = append(proposals, Proposal{Name: name})
	}

	now = now.UTC()
	return Ballot{
		BallotID:    strings.TrimSpace(ballotID),
		Chairperson: chairperson,
		Proposals:   proposals,
		Voters: map[valueobjects.Principal]Voter{
			chairperson: {Weight: 1},
		},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Voter returns the record for p, or the zero Voter when p is unknown.
func (b Ballot) Voter(p valueobjects.Principal) Voter {
	return b.Voters[p]
}

// SetVoter writes the record for p, creating the voter table on first use.
func (b *Ballot) SetVoter(p valueobjects.Principal, v Voter) {
	if b.Voters == nil {
		b.Voters = make(map[valueobjects.Principal]Voter)
	}
	b.Voters[p] = v
}

func (b Ballot) ValidProposal(index int) bool {
	return index >= 0 && index < len(b.Proposals)
}

func (b Ballot) Proposal(index int) (Proposal, error) {
	if !b.ValidProposal(index) {
		return Proposal{}, domainerrors.ErrInvalidProposalIndex
	}
	return b.Proposals[index], nil
}

// KnownPrincipals is the number of principals present in the voter table.
func (b Ballot) KnownPrincipals() int {
	return len(b.Voters)
}

// TotalVotes is the sum of all proposal vote counts.
func (b Ballot) TotalVotes() uint64 {
	var total uint64
	for _, proposal := range b.Proposals {
		total += proposal.VoteCount
	}
	return total
}

// Clone returns a deep copy so callers can mutate it without touching the
// stored ballot.
func (b Ballot) Clone() Ballot {
	out := b
	out.Proposals = append([]Proposal(nil), b.Proposals...)
	out.Voters = make(map[valueobjects.Principal]Voter, len(b.Voters))
	for principal, voter := range b.Voters {
		out.Voters[principal] = voter
	}
	return out
}
