// Package identity resolves third-party sign-in tokens to a verified profile.
package identity

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	googleoauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

var (
	ErrUnverifiedEmail = errors.New("email address is not verified")
	ErrWrongAudience   = errors.New("token was issued to another client")
)

type Profile struct {
	Subject   string
	Email     string
	Name      string
	AvatarURL string
}

type Provider interface {
	Resolve(ctx context.Context, accessToken string) (Profile, error)
}

// Google checks a Google OAuth access token and loads the account's profile.
// When ClientID is set, tokens issued to any other client are rejected.
type Google struct {
	ClientID string
	opts     []option.ClientOption
}

func NewGoogle(clientID string, opts ...option.ClientOption) *Google {
	return &Google{ClientID: clientID, opts: opts}
}

func (g *Google) Resolve(ctx context.Context, accessToken string) (Profile, error) {
	if strings.TrimSpace(accessToken) == "" {
		return Profile{}, errors.New("missing access token")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	opts := append([]option.ClientOption{option.WithTokenSource(ts)}, g.opts...)
	svc, err := googleoauth2.NewService(ctx, opts...)
	if err != nil {
		return Profile{}, errors.Wrap(err, "creating google oauth2 client")
	}

	if g.ClientID != "" {
		info, err := svc.Tokeninfo().AccessToken(accessToken).Context(ctx).Do()
		if err != nil {
			return Profile{}, errors.Wrap(err, "checking google token")
		}
		if info.Audience != g.ClientID && info.IssuedTo != g.ClientID {
			return Profile{}, ErrWrongAudience
		}
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return Profile{}, errors.Wrap(err, "fetching google user info")
	}
	if info.Email == "" || info.VerifiedEmail == nil || !*info.VerifiedEmail {
		return Profile{}, ErrUnverifiedEmail
	}

	return Profile{
		Subject:   info.Id,
		Email:     strings.ToLower(info.Email),
		Name:      info.Name,
		AvatarURL: info.Picture,
	}, nil
}
