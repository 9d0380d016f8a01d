package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreateBallotRequest struct {
	Proposals []string `json:"proposals"`
}

type GrantRightRequest struct {
	Voter string `json:"voter"`
}

type DelegateRequest struct {
	To string `json:"to"`
}

type CastVoteRequest struct {
	Proposal int `json:"proposal"`
}

type ProposalResponse struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	VoteCount uint64 `json:"vote_count"`
}

type VoterResponse struct {
	Principal string `json:"principal"`
	Weight    uint64 `json:"weight"`
	Voted     bool   `json:"voted"`
	Delegate  string `json:"delegate,omitempty"`
	Vote      *int   `json:"vote,omitempty"`
}

type BallotResponse struct {
	BallotID    string             `json:"ballot_id"`
	Chairperson string             `json:"chairperson"`
	Proposals   []ProposalResponse `json:"proposals"`
	TotalVotes  uint64             `json:"total_votes"`
	Version     int64              `json:"version"`
	CreatedAt   string             `json:"created_at"`
	UpdatedAt   string             `json:"updated_at"`
	Replayed    bool               `json:"replayed,omitempty"`
}

type DelegationResponse struct {
	BallotID      string `json:"ballot_id"`
	Delegate      string `json:"delegate"`
	FinalDelegate string `json:"final_delegate"`
	Weight        uint64 `json:"weight"`
	Counted       bool   `json:"counted"`
	Proposal      *int   `json:"proposal,omitempty"`
}

type WinnerResponse struct {
	BallotID     string             `json:"ballot_id"`
	WinningIndex int                `json:"winning_proposal"`
	WinnerName   string             `json:"winner_name"`
	VoteCount    uint64             `json:"vote_count"`
	Standings    []ProposalResponse `json:"standings"`
}
