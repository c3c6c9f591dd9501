package model

import (
	"time"

	"github.com/google/uuid"
)

type DisputeStatus string

const (
	DisputeVoting DisputeStatus = "voting"
	DisputeClosed DisputeStatus = "closed"
)

const (
	DefaultPollQuestion = "Was the original post fair?"
	MinPollOptions      = 2
	MaxPollOptions      = 6
)

var DefaultPollOptions = []string{"Uphold", "Overturn"}

// PartyRef is the public snapshot of a user stored inside a dispute.
type PartyRef struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatar_url,omitempty"`
}

type Dispute struct {
	ID           uuid.UUID     `json:"id"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	PostID       uuid.UUID     `json:"post_id"`
	Parties      []PartyRef    `json:"parties"`
	CreatedAt    time.Time     `json:"created_at"`
	Status       DisputeStatus `json:"status"`
	Poll         Poll          `json:"poll"`
	Verdict      *Verdict      `json:"verdict"`
	CommentCount int           `json:"comment_count"`
}

func (d Dispute) IsClosed() bool {
	return d.Status == DisputeClosed
}

type PollOption struct {
	Text  string `json:"text"`
	Votes int    `json:"votes"`
}

type Poll struct {
	Question string       `json:"question"`
	Options  []PollOption `json:"options"`
	Voters   []string     `json:"voters"`
}

func NewPoll(question string, options []string) Poll {
	p := Poll{
		Question: question,
		Options:  make([]PollOption, len(options)),
		Voters:   []string{},
	}
	for i, o := range options {
		p.Options[i] = PollOption{Text: o}
	}
	return p
}

func (p Poll) HasVoted(voterID string) bool {
	for _, v := range p.Voters {
		if v == voterID {
			return true
		}
	}
	return false
}

// Option returns the index of the option whose text matches exactly, or -1.
func (p Poll) Option(text string) int {
	for i, o := range p.Options {
		if o.Text == text {
			return i
		}
	}
	return -1
}

func (p Poll) TotalVotes() int {
	total := 0
	for _, o := range p.Options {
		total += o.Votes
	}
	return total
}

type Verdict struct {
	Moderator PartyRef  `json:"moderator"`
	Decision  string    `json:"decision"`
	Reason    string    `json:"reason"`
	DecidedAt time.Time `json:"decided_at"`
}

type CreateDisputeRequest struct {
	Title       string   `json:"title" validate:"required,notblank,max=140"`
	Description string   `json:"description" validate:"required,notblank,max=5000"`
	Question    string   `json:"question,omitempty" validate:"max=280"`
	Options     []string `json:"options,omitempty" validate:"omitempty,min=2,max=6,uniqueopts"`
}

type CastVoteRequest struct {
	Option string `json:"option" validate:"required"`
}

type SubmitVerdictRequest struct {
	Decision string `json:"decision" validate:"required,notblank,max=280"`
	Reason   string `json:"reason" validate:"required,notblank,max=5000"`
}

type DisputeDetail struct {
	Dispute  Dispute   `json:"dispute"`
	Comments []Comment `json:"comments"`
}
