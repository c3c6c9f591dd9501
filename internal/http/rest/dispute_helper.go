package rest

import (
	"context"
	"errors"

	"github.com/bwise1/clarity/internal/model"
	"github.com/bwise1/clarity/util"
	"github.com/bwise1/clarity/util/values"
	"github.com/google/uuid"
)

func (api *API) CreateDisputeHelper(ctx context.Context, postID uuid.UUID, initiator model.User, req model.CreateDisputeRequest) (model.Dispute, string, string, error) {
	d, err := api.Deps.Disputes.CreateDispute(ctx, postID, initiator, req)
	if err != nil {
		return model.Dispute{}, errorStatus(err), errorMessage(err, "unable to open dispute"), err
	}
	return d, values.Created, "dispute opened", nil
}

func (api *API) ListDisputesHelper(ctx context.Context, p util.PageParams) ([]model.Dispute, string, string, error) {
	status := model.DisputeStatus(p.Status)
	switch status {
	case "", model.DisputeVoting, model.DisputeClosed:
	default:
		err := errors.New("unknown dispute status")
		return nil, values.BadRequestBody, "status must be voting or closed", err
	}

	disputes, err := api.Deps.Disputes.List(ctx, status, p)
	if err != nil {
		return nil, errorStatus(err), errorMessage(err, "unable to list disputes"), err
	}
	if disputes == nil {
		disputes = []model.Dispute{}
	}
	return disputes, values.Success, "disputes retrieved", nil
}

func (api *API) DisputeDetailHelper(ctx context.Context, id uuid.UUID) (model.DisputeDetail, string, string, error) {
	detail, err := api.Deps.Disputes.Detail(ctx, id)
	if err != nil {
		return model.DisputeDetail{}, errorStatus(err), errorMessage(err, "unable to load dispute"), err
	}
	return detail, values.Success, "dispute retrieved", nil
}

func (api *API) CastVoteHelper(ctx context.Context, id uuid.UUID, option string, voter model.User) (model.Dispute, string, string, error) {
	d, err := api.Deps.Disputes.CastVote(ctx, id, option, voter.ID.String())
	if err != nil {
		return model.Dispute{}, errorStatus(err), errorMessage(err, "unable to record vote"), err
	}
	return d, values.Success, "vote recorded", nil
}

func (api *API) SubmitVerdictHelper(ctx context.Context, id uuid.UUID, req model.SubmitVerdictRequest, moderator model.User) (model.Dispute, string, string, error) {
	d, err := api.Deps.Disputes.SubmitVerdict(ctx, id, req.Decision, req.Reason, moderator)
	if err != nil {
		return model.Dispute{}, errorStatus(err), errorMessage(err, "unable to submit verdict"), err
	}
	return d, values.Success, "verdict recorded", nil
}

func (api *API) CommentOnDisputeHelper(ctx context.Context, id, authorID uuid.UUID, content string) (model.Comment, string, string, error) {
	if util.SanitizeText(content) == "" {
		return model.Comment{}, values.BadRequestBody, "comment is empty", errors.New("comment is empty")
	}
	c, err := api.Deps.Disputes.AddComment(ctx, id, authorID, content)
	if err != nil {
		return model.Comment{}, errorStatus(err), errorMessage(err, "unable to add comment"), err
	}
	return c, values.Created, "comment added", nil
}
