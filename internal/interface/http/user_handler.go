package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	domerrors "github.com/flashteams/backend/internal/domain/errors"
	"github.com/flashteams/backend/internal/interface/middleware"
	"github.com/flashteams/backend/pkg/helpers"
	"github.com/flashteams/backend/pkg/response"
)

type UserHandler struct {
	Services ServiceFactory
	Logger   logrus.FieldLogger
}

func NewUserHandler(services ServiceFactory, logger logrus.FieldLogger) *UserHandler {
	return &UserHandler{Services: services, Logger: logger}
}

func paramID(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, &domerrors.ValidationError{Failures: []domerrors.FieldFailure{{Field: "id", Message: "must be a valid UUID"}}}
	}
	return id, nil
}

func (h *UserHandler) Create(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}
	u, err := h.Services.From(c).Users.Create(c.Request.Context(), req.toEntity())
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusCreated, toUserResponse(u), "user created", nil)
}

func (h *UserHandler) List(c *gin.Context) {
	users, err := h.Services.From(c).Users.GetAll(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, toUserResponses(users), "users", map[string]any{"count": len(users)})
}

func (h *UserHandler) Get(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	svc := h.Services.From(c)
	u, err := svc.Users.GetByID(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	res := toUserResponse(u)
	seen, err := svc.Activity.LastSeen(c.Request.Context(), id)
	if err != nil {
		helpers.LogWarn(h.Logger, "load last seen failed", err, logrus.Fields{"user_id": id})
	}
	res.LastSeenTime = seen
	response.Success(c, http.StatusOK, res, "user", nil)
}

// Me returns the authenticated caller.
func (h *UserHandler) Me(c *gin.Context) {
	svc := h.Services.From(c)
	uid, err := svc.Auth.GetClaim(middleware.ClaimsFrom(c), helpers.ClaimUserID, true)
	if err != nil {
		_ = c.Error(err)
		return
	}
	id, err := uuid.Parse(uid)
	if err != nil {
		_ = c.Error(domerrors.ErrClaimNotFound)
		return
	}
	u, err := svc.Users.GetByID(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, toUserResponse(u), "profile", nil)
}

func (h *UserHandler) Update(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}
	u, err := h.Services.From(c).Users.Update(c.Request.Context(), req.toEntity())
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, toUserResponse(u), "user updated", nil)
}

func (h *UserHandler) Delete(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if err := h.Services.From(c).Users.Delete(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": id, "deleted": true}, "user deleted", nil)
}

// SetPasswordFirstTime sets the caller's first local password.
func (h *UserHandler) SetPasswordFirstTime(c *gin.Context) {
	var req setPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}
	svc := h.Services.From(c)
	email, err := svc.Auth.GetClaim(middleware.ClaimsFrom(c), helpers.ClaimEmail, true)
	if err != nil {
		_ = c.Error(err)
		return
	}
	u, err := svc.Users.SetPasswordFirstTime(c.Request.Context(), email, req.Password)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, toUserResponse(u), "password set", nil)
}

func (h *UserHandler) Search(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		_ = c.Error(&domerrors.ValidationError{Failures: []domerrors.FieldFailure{{Field: "q", Message: "is required"}}})
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	users, err := h.Services.From(c).Users.Search(c.Request.Context(), q, size)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, toUserResponses(users), "search results", map[string]any{"count": len(users)})
}
