package application

import (
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/flashteams/backend/internal/domain/entity"
	"github.com/flashteams/backend/internal/infrastructure/postgres"
	"github.com/flashteams/backend/pkg/helpers"
	"github.com/flashteams/backend/pkg/mailer/templates"
)

// Services is the set of application services bound to one unit of work.
type Services struct {
	Users    *UserService
	Auth     *AuthService
	Activity *ActivityService
}

// Dependencies are the process-wide collaborators shared by every Services.
// Index, Mail and Verifier may be nil.
type Dependencies struct {
	DB              *gorm.DB
	JWT             *helpers.JWTManager
	Verifier        IdentityVerifier
	Index           UserIndex
	Mail            MailPublisher
	Branding        templates.EmailData
	RequireLastName bool
	Logger          logrus.FieldLogger
}

// NewServices builds services over a fresh unit of work. Call it once per
// request so tracked entities never leak between requests.
func NewServices(d Dependencies) *Services {
	uow := postgres.NewUnitOfWork(d.DB)
	users := postgres.NewRepository[entity.User](uow)

	var opts []UserServiceOption
	if d.Index != nil {
		opts = append(opts, WithUserIndex(d.Index))
	}
	if d.Mail != nil {
		opts = append(opts, WithMail(d.Mail, d.Branding))
	}
	userSvc := NewUserService(users, NewUserValidator(users, d.RequireLastName), d.Logger, opts...)

	return &Services{
		Users:    userSvc,
		Auth:     NewAuthService(userSvc, d.JWT, d.Verifier, d.Logger),
		Activity: NewActivityService(postgres.NewRepository[entity.UserActivity](uow)),
	}
}
