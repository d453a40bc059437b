package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	domerrors "github.com/flashteams/backend/internal/domain/errors"
	"github.com/flashteams/backend/pkg/response"
)

// ErrorHandler turns the last error a handler attached with c.Error into
// the response envelope. Handlers return after c.Error without writing.
func ErrorHandler(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		status := domerrors.StatusCode(err)

		entry := logger.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"status":     status,
			"path":       c.FullPath(),
		}).WithError(err)

		var ve *domerrors.ValidationError
		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("request failed")
			response.Error(c, status, err.Error(), nil)
		case errors.As(err, &ve):
			entry.Debug("validation failed")
			response.Error(c, status, "validation failed", ve.Failures)
		default:
			entry.Info("request rejected")
			response.Error(c, status, err.Error(), nil)
		}
	}
}
