// Package google verifies Google Sign-In ID tokens.
package google

import (
	"context"
	"errors"

	"google.golang.org/api/idtoken"

	"github.com/flashteams/backend/internal/application"
)

var (
	ErrMissingEmail    = errors.New("id token carries no email")
	ErrEmailUnverified = errors.New("id token email is not verified")
)

type validateFunc func(ctx context.Context, token, audience string) (*idtoken.Payload, error)

// Verifier checks signature, expiry and audience of Google ID tokens.
type Verifier struct {
	clientID string
	validate validateFunc
}

func NewVerifier(clientID string) *Verifier {
	return &Verifier{clientID: clientID, validate: idtoken.Validate}
}

func (v *Verifier) Verify(ctx context.Context, token string) (*application.ExternalIdentity, error) {
	payload, err := v.validate(ctx, token, v.clientID)
	if err != nil {
		return nil, err
	}
	return identityFrom(payload)
}

func identityFrom(p *idtoken.Payload) (*application.ExternalIdentity, error) {
	email := claim(p, "email")
	if email == "" {
		return nil, ErrMissingEmail
	}
	if verified, ok := p.Claims["email_verified"].(bool); ok && !verified {
		return nil, ErrEmailUnverified
	}
	return &application.ExternalIdentity{
		Subject:    p.Subject,
		Email:      email,
		GivenName:  claim(p, "given_name"),
		FamilyName: claim(p, "family_name"),
	}, nil
}

func claim(p *idtoken.Payload, name string) string {
	s, _ := p.Claims[name].(string)
	return s
}
