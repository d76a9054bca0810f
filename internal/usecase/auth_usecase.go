package usecase

import (
	"context"

	"convo/internal/domain/entity"
	"convo/internal/domain/repository"
	"convo/pkg/errors"
)

type AuthUseCase struct {
	verifier TokenVerifier
	userRepo repository.UserRepository
}

func NewAuthUseCase(verifier TokenVerifier, userRepo repository.UserRepository) *AuthUseCase {
	return &AuthUseCase{
		verifier: verifier,
		userRepo: userRepo,
	}
}

// Identify resolves a bearer credential into a live user. Every failure maps
// to UNAUTHORIZED; the caller never learns which step failed.
func (uc *AuthUseCase) Identify(ctx context.Context, token string) (*entity.User, error) {
	if token == "" {
		return nil, errors.Unauthorized("Credential required", nil)
	}

	uid, err := uc.verifier.Verify(ctx, token)
	if err != nil {
		return nil, errors.Unauthorized("Invalid or expired token", err)
	}

	user, err := uc.userRepo.GetByID(ctx, uid)
	if err != nil {
		return nil, errors.Unauthorized("Unknown identity", err)
	}
	if !user.Active {
		return nil, errors.Unauthorized("Account is inactive", nil)
	}

	return user, nil
}
