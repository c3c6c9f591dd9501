package rest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/bwise1/clarity/internal/apperr"
	"github.com/bwise1/clarity/internal/identity"
	"github.com/bwise1/clarity/internal/model"
	"github.com/bwise1/clarity/util"
	"github.com/bwise1/clarity/util/values"
	"github.com/golang-jwt/jwt"
	"github.com/lucsky/cuid"
)

const usernameAttempts = 3

var (
	errTokenExpired = errors.New("token expired")
	errInvalidToken = errors.New("invalid token")
)

type TokenClaims struct {
	UserID string `json:"sub"`
	Type   string `json:"typ"`
	Exp    int64  `json:"exp"`
}

func (api *API) createToken(id string) (string, time.Time, error) {
	expTime, err := time.ParseDuration(api.Config.JwtExpires)
	if err != nil {
		return "", time.Time{}, err
	}
	now := time.Now()
	expiresAt := now.Add(expTime)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": id,
		"exp": expiresAt.Unix(),
		"iat": now.Unix(),
		"typ": "access",
	})

	tokenString, err := token.SignedString([]byte(api.Config.JwtSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

func (api *API) verifyToken(tokenString string) (*TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(api.Config.JwtSecret), nil
	})

	if ve, ok := err.(*jwt.ValidationError); ok {
		if ve.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, errTokenExpired
		}
	}
	if err != nil || !token.Valid {
		return nil, errInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errInvalidToken
	}
	if tokenType, _ := claims["typ"].(string); tokenType != "access" {
		return nil, errInvalidToken
	}
	userID, ok := claims["sub"].(string)
	if !ok {
		return nil, errInvalidToken
	}
	exp, _ := claims["exp"].(float64)

	return &TokenClaims{
		UserID: userID,
		Type:   "access",
		Exp:    int64(exp),
	}, nil
}

// LoginWithGoogleHelper trades a Google access token for a platform token,
// creating the account on first sign in.
func (api *API) LoginWithGoogleHelper(ctx context.Context, accessToken string) (model.LoginResponse, string, string, error) {
	profile, err := api.Deps.Identity.Resolve(ctx, accessToken)
	if err != nil {
		if errors.Is(err, identity.ErrUnverifiedEmail) || errors.Is(err, identity.ErrWrongAudience) {
			return model.LoginResponse{}, values.NotAuthorised, err.Error(), err
		}
		return model.LoginResponse{}, values.NotAuthorised, "unable to verify google account", err
	}

	base := usernameFromProfile(profile)
	candidate := base
	var user model.User
	for attempt := 0; attempt < usernameAttempts; attempt++ {
		user, err = api.Deps.Store.UpsertGoogleUser(ctx, model.User{
			ID:           util.GenerateUUID(),
			Name:         profile.Name,
			Username:     candidate,
			Email:        profile.Email,
			AvatarURL:    profile.AvatarURL,
			AuthProvider: "google",
		})
		if !errors.Is(err, apperr.ErrConflict) {
			break
		}
		candidate = base + "_" + cuid.Slug()
	}
	if err != nil {
		return model.LoginResponse{}, errorStatus(err), "unable to create account", err
	}

	token, _, err := api.createToken(user.ID.String())
	if err != nil {
		return model.LoginResponse{}, values.Error, "unable to create token", err
	}

	return model.LoginResponse{User: user, Token: token}, values.Success, "login successful", nil
}

// usernameFromProfile derives a handle from the email's local part, keeping
// letters, digits, dots and underscores.
func usernameFromProfile(p identity.Profile) string {
	local := p.Email
	if at := strings.IndexByte(local, '@'); at >= 0 {
		local = local[:at]
	}
	handle := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '.', r == '_':
			return unicode.ToLower(r)
		default:
			return -1
		}
	}, local)
	if handle == "" {
		handle = "user"
	}
	return handle
}
