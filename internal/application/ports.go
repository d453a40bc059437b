package application

import (
	"context"

	"github.com/google/uuid"

	"github.com/flashteams/backend/internal/domain/entity"
)

// ExternalIdentity is what a third-party identity provider vouches for.
type ExternalIdentity struct {
	Subject    string
	Email      string
	GivenName  string
	FamilyName string
}

// IdentityVerifier validates a third-party token and returns its identity.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (*ExternalIdentity, error)
}

// UserIndex is the free-text search index over users.
type UserIndex interface {
	Index(ctx context.Context, u *entity.User) error
	Remove(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, q string, size int) ([]uuid.UUID, error)
}

// MailPublisher enqueues email jobs for the email worker.
type MailPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}
