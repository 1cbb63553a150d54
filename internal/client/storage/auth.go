package storage

import (
	"context"
)

//go:generate moq -out authstorage_mock.go . AuthStorage

// AuthStorage хранит единственный слот с текущим bearer токеном.
// Слот доступен и основному процессу, и фоновому контексту.
type AuthStorage interface {
	// SaveAuth stores authentication data (overwrites the single slot)
	SaveAuth(ctx context.Context, auth *AuthData) error

	// GetAuth retrieves stored authentication data
	// Returns ErrAuthNotFound if no auth data exists
	GetAuth(ctx context.Context) (*AuthData, error)

	// SetAuthToken writes only the bearer token, keeping other slot fields
	SetAuthToken(ctx context.Context, token string) error

	// GetAuthToken returns the bearer token or ErrAuthNotFound
	GetAuthToken(ctx context.Context) (string, error)

	// ClearAuthToken removes stored authentication data (logout)
	ClearAuthToken(ctx context.Context) error
}

// AuthData represents authentication information in storage
type AuthData struct {
	Username    string `json:"username"`
	UserID      string `json:"user_id"`
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"` // unix seconds, 0 = неизвестно
}
