package application

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/flashteams/backend/internal/domain/entity"
	domerrors "github.com/flashteams/backend/internal/domain/errors"
	"github.com/flashteams/backend/pkg/helpers"
)

type LoginCredentials struct {
	Email    string
	Password string
}

type ThirdPartyCredential struct {
	Token string
}

type Token struct {
	Value     string
	ExpiresAt time.Time
}

type ThirdPartyResult struct {
	Token     Token
	IsNewUser bool
	Email     string
}

type AuthService struct {
	users    *UserService
	jwt      *helpers.JWTManager
	verifier IdentityVerifier
	logger   logrus.FieldLogger
}

func NewAuthService(users *UserService, jwt *helpers.JWTManager, verifier IdentityVerifier, logger logrus.FieldLogger) *AuthService {
	return &AuthService{users: users, jwt: jwt, verifier: verifier, logger: logger}
}

func (s *AuthService) GenerateToken(u *entity.User) (Token, error) {
	value, exp, err := s.jwt.Generate(u.ID.String(), u.Username, u.Email)
	if err != nil {
		return Token{}, err
	}
	return Token{Value: value, ExpiresAt: exp}, nil
}

// GenerateTokenBasedOn issues a token only when creds match u's password.
func (s *AuthService) GenerateTokenBasedOn(u *entity.User, creds LoginCredentials) (Token, error) {
	if u == nil || !helpers.VerifyPassword(u.PasswordHash, creds.Password) {
		return Token{}, domerrors.ErrInvalidCredentials
	}
	return s.GenerateToken(u)
}

// Login answers an unknown email and a wrong password the same way.
func (s *AuthService) Login(ctx context.Context, creds LoginCredentials) (Token, error) {
	u, err := s.users.GetByEmail(ctx, creds.Email, false)
	if err != nil {
		return Token{}, err
	}
	return s.GenerateTokenBasedOn(u, creds)
}

// Authenticate signs in with a third-party token, provisioning an account
// without a password on first use.
func (s *AuthService) Authenticate(ctx context.Context, cred ThirdPartyCredential) (ThirdPartyResult, error) {
	if s.verifier == nil {
		return ThirdPartyResult{}, domerrors.ErrInvalidThirdPartyToken
	}
	id, err := s.verifier.Verify(ctx, cred.Token)
	if err != nil {
		s.logger.WithError(err).Debug("third-party token rejected")
		return ThirdPartyResult{}, domerrors.ErrInvalidThirdPartyToken
	}

	u, err := s.users.GetByEmail(ctx, id.Email, false)
	if err != nil {
		return ThirdPartyResult{}, err
	}
	isNew := false
	if u == nil {
		deleted, err := s.users.IsDeletedEmail(ctx, id.Email)
		if err != nil {
			return ThirdPartyResult{}, err
		}
		if deleted {
			return ThirdPartyResult{}, domerrors.ErrAccountDeleted
		}
		u, err = s.users.Create(ctx, newExternalUser(id))
		if err != nil {
			return ThirdPartyResult{}, err
		}
		isNew = true
	}

	token, err := s.GenerateToken(u)
	if err != nil {
		return ThirdPartyResult{}, err
	}
	return ThirdPartyResult{Token: token, IsNewUser: isNew, Email: u.Email}, nil
}

func newExternalUser(id *ExternalIdentity) *entity.User {
	first := id.GivenName
	if first == "" {
		first, _, _ = strings.Cut(id.Email, "@")
	}
	u := &entity.User{FirstName: first, LastName: id.FamilyName, Email: id.Email}
	if id.Subject != "" {
		sub := id.Subject
		u.ExternalID = &sub
	}
	return u
}

// GetClaim reads a claim of the authenticated caller.
func (s *AuthService) GetClaim(claims *helpers.Claims, name string, throwIfMissing bool) (string, error) {
	v, ok := claims.Get(name)
	if !ok && throwIfMissing {
		return "", domerrors.ErrClaimNotFound
	}
	return v, nil
}
