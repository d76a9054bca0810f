package handler

import (
	"time"

	"github.com/labstack/echo/v4"

	"convo/internal/domain/entity"
	"convo/internal/domain/repository"
	"convo/internal/infrastructure/devauth"
	apperrors "convo/pkg/errors"
	"convo/pkg/response"
)

// DevTokenHandler mints HS256 tokens for local testing. Only registered when
// ENVIRONMENT=development.
type DevTokenHandler struct {
	minter   *devauth.Verifier
	userRepo repository.UserRepository
	ttl      time.Duration
}

func NewDevTokenHandler(minter *devauth.Verifier, userRepo repository.UserRepository, ttl time.Duration) *DevTokenHandler {
	return &DevTokenHandler{
		minter:   minter,
		userRepo: userRepo,
		ttl:      ttl,
	}
}

type devTokenRequest struct {
	UserID   string `json:"user_id" validate:"required"`
	Email    string `json:"email" validate:"omitempty,email"`
	Username string `json:"username"`
}

func (h *DevTokenHandler) CreateToken(c echo.Context) error {
	var req devTokenRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	ctx := c.Request().Context()

	// The identity must exist and be active for the token to be usable.
	if _, err := h.userRepo.GetByID(ctx, req.UserID); err != nil {
		if !apperrors.Is(err, "NOT_FOUND") {
			return response.Error(c, err)
		}
		user := &entity.User{
			ID:       req.UserID,
			Email:    req.Email,
			Username: req.Username,
			Active:   true,
		}
		if err := h.userRepo.Create(ctx, user); err != nil {
			return response.Error(c, err)
		}
	}

	token, err := h.minter.Mint(req.UserID, h.ttl)
	if err != nil {
		return response.Error(c, apperrors.Internal("Failed to mint token", err))
	}

	return response.Success(c, map[string]string{"token": token})
}
