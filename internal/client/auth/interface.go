package auth

import (
	"context"

	"github.com/iudanet/gennotes/internal/client/storage"
	"github.com/iudanet/gennotes/pkg/api"
)

// Client серверные операции аутентификации
type Client interface {
	Register(ctx context.Context, req api.RegisterRequest) (*api.RegisterResponse, error)
	Login(ctx context.Context, req api.LoginRequest) (*api.TokenResponse, error)
}

// Store хранилище сессии.
// ClearAll нужен для logout: кеш и очередь принадлежат вышедшему пользователю.
type Store interface {
	storage.AuthStorage
	storage.QueueStorage
	ClearAll(ctx context.Context) error
}
