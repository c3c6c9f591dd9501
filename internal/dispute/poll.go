package dispute

import (
	"fmt"

	"github.com/bwise1/clarity/internal/apperr"
	"github.com/bwise1/clarity/internal/model"
	"github.com/bwise1/clarity/util"
)

// tally records one vote on d. It reports false, with no change to d, when
// voterID has already voted.
func tally(d *model.Dispute, option, voterID string) (bool, error) {
	if d.IsClosed() {
		return false, fmt.Errorf("dispute %s is closed: %w", d.ID, apperr.ErrInvalidState)
	}
	if d.Poll.HasVoted(voterID) {
		return false, nil
	}
	i := d.Poll.Option(option)
	if i < 0 {
		return false, fmt.Errorf("%q is not an option on dispute %s: %w", option, d.ID, apperr.ErrInvalidOption)
	}
	d.Poll.Options[i].Votes++
	d.Poll.Voters = append(d.Poll.Voters, voterID)
	return true, nil
}

// closeWith moves d to closed with v attached. Status and verdict only ever
// change together.
func closeWith(d *model.Dispute, v model.Verdict) error {
	if d.IsClosed() {
		return fmt.Errorf("dispute %s already has a verdict: %w", d.ID, apperr.ErrInvalidState)
	}
	d.Verdict = &v
	d.Status = model.DisputeClosed
	return nil
}

// buildPoll applies the default question and options when the caller left
// them out.
func buildPoll(question string, options []string) (model.Poll, error) {
	if question == "" {
		question = model.DefaultPollQuestion
	}
	if len(options) == 0 {
		return model.NewPoll(question, model.DefaultPollOptions), nil
	}
	distinct := util.DistinctStrings(options)
	if len(distinct) != len(options) {
		return model.Poll{}, fmt.Errorf("poll options must be unique and non-blank: %w", apperr.ErrInvalidOption)
	}
	if len(distinct) < model.MinPollOptions || len(distinct) > model.MaxPollOptions {
		return model.Poll{}, fmt.Errorf("a poll needs %d to %d options: %w", model.MinPollOptions, model.MaxPollOptions, apperr.ErrInvalidOption)
	}
	return model.NewPoll(question, distinct), nil
}
