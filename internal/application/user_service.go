package application

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/flashteams/backend/internal/domain/entity"
	domerrors "github.com/flashteams/backend/internal/domain/errors"
	"github.com/flashteams/backend/internal/domain/repository"
	"github.com/flashteams/backend/pkg/helpers"
	"github.com/flashteams/backend/pkg/mailer"
	"github.com/flashteams/backend/pkg/mailer/templates"
)

var ErrSearchUnavailable = domerrors.New(http.StatusServiceUnavailable, "user search is not available")

// UserService owns the user lifecycle. Reads only ever see users that are
// not soft-deleted.
type UserService struct {
	users     repository.Repository[entity.User]
	validator *UserValidator
	index     UserIndex
	mail      MailPublisher
	branding  templates.EmailData
	logger    logrus.FieldLogger
}

type UserServiceOption func(*UserService)

// WithUserIndex mirrors writes into idx and enables Search.
func WithUserIndex(idx UserIndex) UserServiceOption {
	return func(s *UserService) { s.index = idx }
}

// WithMail queues notification emails through pub. branding fills the
// company fields of every template.
func WithMail(pub MailPublisher, branding templates.EmailData) UserServiceOption {
	return func(s *UserService) {
		s.mail = pub
		s.branding = branding
	}
}

func NewUserService(users repository.Repository[entity.User], v *UserValidator, logger logrus.FieldLogger, opts ...UserServiceOption) *UserService {
	s := &UserService{users: users, validator: v, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func live(p repository.Predicate) repository.Predicate {
	return repository.And(p, repository.Where("is_deleted = ?", false))
}

func byID(id uuid.UUID) repository.Predicate {
	return repository.Where("id = ?", id)
}

// Username builds the default username: first name, last name when present,
// then the id, joined by dashes.
func Username(u *entity.User) string {
	name := u.FirstName
	if u.LastName != "" {
		name += "-" + u.LastName
	}
	return name + "-" + u.ID.String()
}

func hashPassword(u *entity.User) error {
	if u.Password == "" {
		return nil
	}
	hash, err := helpers.HashPassword(u.Password)
	if err != nil {
		return err
	}
	u.PasswordHash = &hash
	u.Password = ""
	return nil
}

func (s *UserService) Create(ctx context.Context, u *entity.User) (*entity.User, error) {
	if err := s.validator.Validate(ctx, u, RuleSetCreate); err != nil {
		return nil, err
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Username == "" {
		u.Username = Username(u)
	}
	if err := hashPassword(u); err != nil {
		return nil, err
	}
	created, err := s.users.Insert(ctx, u)
	if err != nil {
		return nil, err
	}
	s.logger.WithField("user_id", created.ID).Info("user created")
	s.reindex(ctx, created)
	s.notify(ctx, created, templates.Welcome)
	return created, nil
}

// Update replaces the stored user with u. An empty Password keeps the
// stored hash and external id.
func (s *UserService) Update(ctx context.Context, u *entity.User) (*entity.User, error) {
	if err := s.validator.Validate(ctx, u, RuleSetUpdate); err != nil {
		return nil, err
	}
	stored, err := s.users.Select(ctx, live(byID(u.ID)), repository.WithoutTracking(), repository.ThrowIfMissing())
	if err != nil {
		return nil, err
	}
	if u.Password == "" {
		u.PasswordHash = stored.PasswordHash
	} else if err := hashPassword(u); err != nil {
		return nil, err
	}
	if u.ExternalID == nil {
		u.ExternalID = stored.ExternalID
	}
	if u.Username == "" {
		u.Username = stored.Username
	}

	updated, err := s.users.Update(ctx, live(byID(u.ID)), u)
	if err != nil {
		return nil, err
	}
	s.reindex(ctx, updated)
	return updated, nil
}

func (s *UserService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.users.Delete(ctx, live(byID(id)), repository.ThrowIfMissing()); err != nil {
		return err
	}
	s.logger.WithField("user_id", id).Info("user deleted")
	if s.index != nil {
		if err := s.index.Remove(ctx, id); err != nil {
			helpers.LogWarn(s.logger, "remove user from search index failed", err, logrus.Fields{"user_id": id})
		}
	}
	return nil
}

func (s *UserService) GetAll(ctx context.Context) ([]*entity.User, error) {
	return s.users.SelectAllList(ctx, live(repository.Predicate{}), repository.WithoutTracking())
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	return s.users.Select(ctx, live(byID(id)), repository.WithoutTracking(), repository.ThrowIfMissing())
}

func (s *UserService) GetByUsername(ctx context.Context, username string, throwIfMissing bool) (*entity.User, error) {
	return s.getBy(ctx, repository.Where("username = ?", username), throwIfMissing)
}

func (s *UserService) GetByEmail(ctx context.Context, email string, throwIfMissing bool) (*entity.User, error) {
	return s.getBy(ctx, repository.Where("email = ?", email), throwIfMissing)
}

// IsDeletedEmail reports whether email belongs to a soft-deleted account.
// Such an email stays reserved and cannot be signed up again.
func (s *UserService) IsDeletedEmail(ctx context.Context, email string) (bool, error) {
	return s.users.Exists(ctx, repository.Where("email = ? AND is_deleted = ?", email, true))
}

func (s *UserService) getBy(ctx context.Context, p repository.Predicate, throwIfMissing bool) (*entity.User, error) {
	opts := []repository.Option{repository.WithoutTracking()}
	if throwIfMissing {
		opts = append(opts, repository.ThrowIfMissing())
	}
	return s.users.Select(ctx, live(p), opts...)
}

// SetPasswordFirstTime sets a local password on an account that was
// provisioned by a third-party login.
func (s *UserService) SetPasswordFirstTime(ctx context.Context, email, password string) (*entity.User, error) {
	if password == "" {
		return nil, &domerrors.ValidationError{Failures: []domerrors.FieldFailure{{Field: "password", Message: "is required"}}}
	}
	u, err := s.GetByEmail(ctx, email, true)
	if err != nil {
		return nil, err
	}
	if u.HasPassword() {
		return nil, domerrors.ErrPasswordAlreadySet
	}
	u.Password = password
	updated, err := s.Update(ctx, u)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, updated, templates.PasswordSet)
	return updated, nil
}

// Search resolves a free-text query to live users, best match first.
func (s *UserService) Search(ctx context.Context, q string, size int) ([]*entity.User, error) {
	if s.index == nil {
		return nil, ErrSearchUnavailable
	}
	ids, err := s.index.Search(ctx, q, size)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*entity.User{}, nil
	}
	rows, err := s.users.SelectAllList(ctx, live(repository.Where("id IN ?", ids)), repository.WithoutTracking())
	if err != nil {
		return nil, err
	}
	byKey := make(map[uuid.UUID]*entity.User, len(rows))
	for _, u := range rows {
		byKey[u.ID] = u
	}
	out := make([]*entity.User, 0, len(rows))
	for _, id := range ids {
		if u, ok := byKey[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *UserService) reindex(ctx context.Context, u *entity.User) {
	if s.index == nil {
		return
	}
	if err := s.index.Index(ctx, u); err != nil {
		helpers.LogWarn(s.logger, "index user failed", err, logrus.Fields{"user_id": u.ID})
	}
}

func (s *UserService) notify(ctx context.Context, u *entity.User, template string) {
	if s.mail == nil {
		return
	}
	data := s.branding
	data.Name = u.FirstName
	data.Email = u.Email
	data.Username = u.Username
	job := mailer.EmailJob{To: u.Email, Template: template, Data: templates.ToMap(data)}
	if err := s.mail.PublishJSON(ctx, job); err != nil {
		helpers.LogWarn(s.logger, "enqueue email failed", err, logrus.Fields{"user_id": u.ID, "template": template})
	}
}
