package application

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/flashteams/backend/internal/domain/entity"
	domerrors "github.com/flashteams/backend/internal/domain/errors"
	"github.com/flashteams/backend/internal/domain/repository"
	"github.com/flashteams/backend/pkg/validation"
)

type RuleSet int

const (
	RuleSetCreate RuleSet = iota
	RuleSetUpdate
)

func (r RuleSet) String() string {
	if r == RuleSetUpdate {
		return "update"
	}
	return "create"
}

// UserValidator checks a user against static rules and, through the
// repository, against the users already stored. Every violated rule is
// reported, not just the first.
//
// Uniqueness is checked before the write without a lock, so two concurrent
// requests can both pass; the unique indexes on users reject the loser.
type UserValidator struct {
	users           repository.Repository[entity.User]
	validate        *validator.Validate
	requireLastName bool
}

func NewUserValidator(users repository.Repository[entity.User], requireLastName bool) *UserValidator {
	return &UserValidator{users: users, validate: validation.New(), requireLastName: requireLastName}
}

type failures []domerrors.FieldFailure

func (f *failures) add(field, tag, param string) {
	*f = append(*f, domerrors.FieldFailure{Field: field, Message: validation.Message(tag, param, 0)})
}

func (v *UserValidator) check(f *failures, field string, value any, tag string) bool {
	err := v.validate.Var(value, tag)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			*f = append(*f, domerrors.FieldFailure{Field: field, Message: validation.Message(fe.ActualTag(), fe.Param(), fe.Kind())})
		}
	}
	return false
}

func (v *UserValidator) Validate(ctx context.Context, u *entity.User, rs RuleSet) error {
	var f failures

	v.check(&f, "firstName", u.FirstName, "required,max=50")
	lastNameTag := "max=50"
	if v.requireLastName {
		lastNameTag = "required,max=50"
	}
	v.check(&f, "lastName", u.LastName, lastNameTag)
	emailOK := v.check(&f, "email", u.Email, "required,email")

	other := repository.Where("id <> ?", u.ID)
	if u.PhoneNumber != nil && *u.PhoneNumber != "" {
		taken, err := v.users.Exists(ctx, repository.And(repository.Where("phone_number = ?", *u.PhoneNumber), other))
		if err != nil {
			return err
		}
		if taken {
			f.add("phoneNumber", "unique", "")
		}
	}
	if u.Username != "" {
		taken, err := v.users.Exists(ctx, repository.And(repository.Where("username = ?", u.Username), other))
		if err != nil {
			return err
		}
		if taken {
			f.add("username", "unique", "")
		}
	}

	switch rs {
	case RuleSetCreate:
		if emailOK {
			taken, err := v.users.Exists(ctx, repository.Where("email = ?", u.Email))
			if err != nil {
				return err
			}
			if taken {
				f.add("email", "unique", "")
			}
		}
	case RuleSetUpdate:
		if emailOK {
			found, err := v.users.Exists(ctx, repository.Where("email = ?", u.Email))
			if err != nil {
				return err
			}
			if !found {
				f.add("email", "exists", "")
			}
		}
		found, err := v.users.Exists(ctx, repository.Where("id = ?", u.ID))
		if err != nil {
			return err
		}
		if !found {
			f.add("id", "exists", "")
		}
	}

	if len(f) > 0 {
		return &domerrors.ValidationError{Failures: f}
	}
	return nil
}
