package noteservice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/auth"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/store"
)

// Credentials is the signup payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate validates the credentials.
func (c Credentials) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Email, validation.Required, is.Email),
		validation.Field(&c.Password, validation.Required, validation.Length(6, 128), validation.By(fitsHash)),
	)
}

// fitsHash rejects passwords bcrypt would refuse to hash.
func fitsHash(value any) error {
	pw, _ := value.(string)
	if len(pw) > auth.MaxPasswordBytes {
		return validation.NewError("validation_password_too_long",
			fmt.Sprintf("must be at most %d bytes", auth.MaxPasswordBytes))
	}
	return nil
}

// Token is the response to a successful signup or login.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Accounts handles signup, login and token resolution.
type Accounts struct {
	users   store.UserStore
	tokens  *auth.Tokens
	limiter *auth.LoginLimiter
}

// NewAccounts creates the account service. limiter may be nil.
func NewAccounts(users store.UserStore, tokens *auth.Tokens, limiter *auth.LoginLimiter) *Accounts {
	return &Accounts{users: users, tokens: tokens, limiter: limiter}
}

// Signup registers a new account and returns an access token for it.
func (a *Accounts) Signup(ctx context.Context, c Credentials) (*Token, error) {
	c.Email = strings.TrimSpace(c.Email)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(c.Password)
	if err != nil {
		return nil, err
	}
	u, err := a.users.CreateUser(ctx, c.Email, hash)
	if err != nil {
		return nil, err
	}
	return a.issue(u)
}

// Login checks the password for email and returns an access token.
func (a *Accounts) Login(ctx context.Context, email, password string) (*Token, error) {
	if a.limiter != nil && !a.limiter.Allow(email) {
		return nil, apperr.ErrRateLimited
	}
	u, err := a.users.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := auth.VerifyPassword(u.PasswordHash, password); err != nil {
		return nil, err
	}
	return a.issue(u)
}

// Authenticate resolves a bearer token to its account.
func (a *Accounts) Authenticate(ctx context.Context, raw string) (*models.User, error) {
	claims, err := a.tokens.Validate(raw)
	if err != nil {
		return nil, err
	}
	u, err := a.users.UserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.ErrUnauthorized
		}
		return nil, err
	}
	return u, nil
}

func (a *Accounts) issue(u *models.User) (*Token, error) {
	raw, err := a.tokens.Issue(u.ID, u.Email)
	if err != nil {
		return nil, err
	}
	return &Token{AccessToken: raw, TokenType: auth.TokenType}, nil
}
