package usecase

import "context"

// TokenVerifier validates a bearer credential and returns the stable user id
// it was issued for. Implemented by the Firebase client in production and by
// the HS256 verifier in development.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}
