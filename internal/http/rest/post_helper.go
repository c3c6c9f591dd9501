package rest

import (
	"context"
	"errors"
	"io"
	"path"
	"time"

	"github.com/bwise1/clarity/internal/model"
	"github.com/bwise1/clarity/util"
	"github.com/bwise1/clarity/util/values"
	"github.com/google/uuid"
)

var errUploadsDisabled = errors.New("image uploads are not configured")

func (api *API) CreatePostHelper(ctx context.Context, draft model.PostDraft, author model.User) (model.SubmissionOutcome, string, string, error) {
	outcome, err := api.Deps.Moderation.Submit(ctx, draft, author)
	if err != nil {
		return model.SubmissionOutcome{}, errorStatus(err), errorMessage(err, "unable to submit post"), err
	}
	if outcome.Err() != nil {
		return outcome, values.Held, "post is waiting for moderator review", nil
	}
	return outcome, values.Created, "post published", nil
}

// UploadPostImageHelper stores an attachment and returns its public URL.
func (api *API) UploadPostImageHelper(ctx context.Context, file io.Reader, filename string) (string, string, string, error) {
	if api.Deps.Cloudinary == nil {
		return "", values.BadRequestBody, errUploadsDisabled.Error(), errUploadsDisabled
	}
	name := util.GenerateUUID().String() + path.Ext(filename)
	url, err := api.Deps.Cloudinary.UploadImage(ctx, file, name)
	if err != nil {
		return "", values.Unavailable, "unable to upload image", err
	}
	return url, values.Success, "image uploaded", nil
}

func (api *API) VotePostHelper(ctx context.Context, postID, userID uuid.UUID, voteType string) (model.Post, string, string, error) {
	post, err := api.Deps.Store.VotePost(ctx, postID, userID, voteType)
	if err != nil {
		return model.Post{}, errorStatus(err), errorMessage(err, "unable to record vote"), err
	}
	return post, values.Success, "vote recorded", nil
}

func (api *API) CommentOnPostHelper(ctx context.Context, postID, userID uuid.UUID, content string) (model.Comment, string, string, error) {
	text := util.SanitizeText(content)
	if text == "" {
		return model.Comment{}, values.BadRequestBody, "comment is empty", errors.New("comment is empty")
	}
	c := model.Comment{
		ID:        util.GenerateUUID(),
		ParentID:  postID,
		UserID:    userID,
		Comment:   text,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := api.Deps.Store.AddPostComment(ctx, c); err != nil {
		return model.Comment{}, errorStatus(err), errorMessage(err, "unable to add comment"), err
	}
	return c, values.Created, "comment added", nil
}

func (api *API) FlagPostHelper(ctx context.Context, postID uuid.UUID, reporter model.User, reason string) (model.FlaggedContent, string, string, error) {
	flag, err := api.Deps.Moderation.FlagPost(ctx, postID, reporter, reason)
	if err != nil {
		return model.FlaggedContent{}, errorStatus(err), errorMessage(err, "unable to flag post"), err
	}
	return flag, values.Created, "post flagged for review", nil
}
