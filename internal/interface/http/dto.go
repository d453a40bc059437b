package handlers

import (
	"time"

	"github.com/google/uuid"

	"github.com/flashteams/backend/internal/domain/entity"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type signupRequest struct {
	FirstName   string  `json:"firstName"`
	LastName    string  `json:"lastName"`
	Email       string  `json:"email"`
	Username    string  `json:"username"`
	PhoneNumber *string `json:"phoneNumber" binding:"omitempty,phone"`
	Password    string  `json:"password" binding:"required,pwd"`
}

type googleRequest struct {
	Token string `json:"token" binding:"required"`
}

type userRequest struct {
	ID          uuid.UUID `json:"id"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	PhoneNumber *string   `json:"phoneNumber" binding:"omitempty,phone"`
	Password    string    `json:"password" binding:"omitempty,pwd"`
}

type setPasswordRequest struct {
	Password string `json:"password" binding:"required,pwd"`
}

func (r signupRequest) toEntity() *entity.User {
	return &entity.User{
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		Email:       r.Email,
		Username:    r.Username,
		PhoneNumber: r.PhoneNumber,
		Password:    r.Password,
	}
}

func (r userRequest) toEntity() *entity.User {
	return &entity.User{
		ID:          r.ID,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		Email:       r.Email,
		Username:    r.Username,
		PhoneNumber: r.PhoneNumber,
		Password:    r.Password,
	}
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type googleResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	IsNewUser bool      `json:"isNewUser"`
	Email     string    `json:"email"`
}

type userResponse struct {
	ID           uuid.UUID  `json:"id"`
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	Email        string     `json:"email"`
	PhoneNumber  *string    `json:"phoneNumber"`
	Username     string     `json:"username"`
	LastSeenTime *time.Time `json:"lastSeenTime,omitempty"`
}

func toUserResponse(u *entity.User) userResponse {
	return userResponse{
		ID:          u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Email:       u.Email,
		PhoneNumber: u.PhoneNumber,
		Username:    u.Username,
	}
}

func toUserResponses(us []*entity.User) []userResponse {
	out := make([]userResponse, 0, len(us))
	for _, u := range us {
		out = append(out, toUserResponse(u))
	}
	return out
}
