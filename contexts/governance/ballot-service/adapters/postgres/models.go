package postgresadapter

import (
	"time"

	"ballot/contexts/governance/ballot-service/domain/entities"
	"ballot/contexts/governance/ballot-service/domain/valueobjects"
)

type ballotModel struct {
	BallotID    string    `gorm:"column:ballot_id;primaryKey"`
	Chairperson string    `gorm:"column:chairperson"`
	Version     int64     `gorm:"column:version"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (ballotModel) TableName() string {
	return "ballots"
}

type proposalModel struct {
	BallotID      string `gorm:"column:ballot_id;primaryKey"`
	ProposalIndex int    `gorm:"column:proposal_index;primaryKey"`
	Name          []byte `gorm:"column:name"`
	VoteCount     int64  `gorm:"column:vote_count"`
}

func (proposalModel) TableName() string {
	return "ballot_proposals"
}

type voterModel struct {
	BallotID  string `gorm:"column:ballot_id;primaryKey"`
	Principal string `gorm:"column:principal;primaryKey"`
	Weight    int64  `gorm:"column:weight"`
	Voted     bool   `gorm:"column:voted"`
	Delegate  string `gorm:"column:delegate"`
	Vote      *int   `gorm:"column:vote"`
}

func (voterModel) TableName() string {
	return "ballot_voters"
}

type idempotencyModel struct {
	Key         string    `gorm:"column:key;primaryKey"`
	RequestHash string    `gorm:"column:request_hash"`
	BallotID    string    `gorm:"column:ballot_id"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
}

func (idempotencyModel) TableName() string {
	return "ballot_idempotency"
}

type outboxModel struct {
	OutboxID      string     `gorm:"column:outbox_id;primaryKey"`
	EventType     string     `gorm:"column:event_type"`
	PartitionKey  string     `gorm:"column:partition_key"`
	BallotVersion int64      `gorm:"column:ballot_version"`
	Payload       []byte     `gorm:"column:payload"`
	Status        string     `gorm:"column:status"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
	PublishedAt   *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "ballot_outbox"
}

type eventDedupModel struct {
	EventID     string    `gorm:"column:event_id;primaryKey"`
	PayloadHash string    `gorm:"column:payload_hash"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
	ProcessedAt time.Time `gorm:"column:processed_at"`
}

func (eventDedupModel) TableName() string {
	return "ballot_event_dedup"
}

func ballotModelFromEntity(ballot entities.Ballot) ballotModel {
	return ballotModel{
		BallotID:    ballot.BallotID,
		Chairperson: ballot.Chairperson.String(),
		Version:     ballot.Version,
		CreatedAt:   ballot.CreatedAt.UTC(),
		UpdatedAt:   ballot.UpdatedAt.UTC(),
	}
}

func proposalModelsFromEntity(ballot entities.Ballot) []proposalModel {
	rows := make([]proposalModel, 0, len(ballot.Proposals))
	for index, proposal := range ballot.Proposals {
		rows = append(rows, proposalModel{
			BallotID:      ballot.BallotID,
			ProposalIndex: index,
			Name:          append([]byte(nil), proposal.Name[:]...),
			VoteCount:     int64(proposal.VoteCount),
		})
	}
	return rows
}

func voterModelFromEntity(ballotID string, principal valueobjects.Principal, voter entities.Voter) voterModel {
	row := voterModel{
		BallotID:  ballotID,
		Principal: principal.String(),
		Weight:    int64(voter.Weight),
		Voted:     voter.Voted,
		Delegate:  voter.Delegate.String(),
	}
	if index, ok := voter.ChosenProposal(); ok {
		vote := index
		row.Vote = &vote
	}
	return row
}

func (m voterModel) toEntity() entities.Voter {
	voter := entities.Voter{
		Weight:   uint64(m.Weight),
		Voted:    m.Voted,
		Delegate: valueobjects.Principal(m.Delegate),
	}
	if m.Vote != nil {
		voter.Vote = *m.Vote
		voter.HasVote = true
	}
	return voter
}

func toBallotEntity(row ballotModel, proposals []proposalModel, voters []voterModel) entities.Ballot {
	ballot := entities.Ballot{
		BallotID:    row.BallotID,
		Chairperson: valueobjects.Principal(row.Chairperson),
		Proposals:   make([]entities.Proposal, len(proposals)),
		Voters:      make(map[valueobjects.Principal]entities.Voter, len(voters)),
		Version:     row.Version,
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
	for _, proposal := range proposals {
		if proposal.ProposalIndex < 0 || proposal.ProposalIndex >= len(ballot.Proposals) {
			continue
		}
		var name entities.ProposalName
		copy(name[:], proposal.Name)
		ballot.Proposals[proposal.ProposalIndex] = entities.Proposal{
			Name:      name,
			VoteCount: uint64(proposal.VoteCount),
		}
	}
	for _, voter := range voters {
		ballot.Voters[valueobjects.Principal(voter.Principal)] = voter.toEntity()
	}
	return ballot
}
