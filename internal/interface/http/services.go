package handlers

import (
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/flashteams/backend/internal/application"
	domerrors "github.com/flashteams/backend/internal/domain/errors"
	"github.com/flashteams/backend/pkg/validation"
)

const ctxServicesKey = "services"

// ServiceFactory builds the application services for one request.
type ServiceFactory func() *application.Services

// From returns the request's services, building them on first use so
// middleware and handler share one unit of work.
func (f ServiceFactory) From(c *gin.Context) *application.Services {
	if v, ok := c.Get(ctxServicesKey); ok {
		if s, ok := v.(*application.Services); ok {
			return s
		}
	}
	s := f()
	c.Set(ctxServicesKey, s)
	return s
}

// bindError converts a binding failure into a ValidationError so it is
// rendered like every other validation failure.
func bindError(err error) error {
	details := validation.ToDetails(err)
	fields := make([]string, 0, len(details))
	for f := range details {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	ve := &domerrors.ValidationError{}
	for _, f := range fields {
		ve.Failures = append(ve.Failures, domerrors.FieldFailure{Field: f, Message: details[f]})
	}
	return ve
}
