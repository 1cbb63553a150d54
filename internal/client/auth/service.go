package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iudanet/gennotes/internal/client/storage"
	"github.com/iudanet/gennotes/internal/validation"
	"github.com/iudanet/gennotes/pkg/api"
)

// ErrPendingChanges возвращается Logout, если в очереди остались неотправленные изменения
var ErrPendingChanges = errors.New("unsynced changes would be lost")

// RegisterResult содержит результат регистрации
type RegisterResult struct {
	UserID   string
	Username string
}

// LoginResult содержит результат авторизации
type LoginResult struct {
	ExpiresAt time.Time
	Username  string
	UserID    string
	ExpiresIn int64
}

// Status состояние локальной сессии
type Status struct {
	ExpiresAt     time.Time // нулевое значение, если срок неизвестен
	Username      string
	Authenticated bool
	Expired       bool
}

// Service управляет сессией клиента: регистрация, вход и выход.
// Токен хранится в общем слоте хранилища, откуда его читает executor.
type Service struct {
	client Client
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// NewService создает новый сервис авторизации
func NewService(client Client, store Store, logger *slog.Logger) *Service {
	return &Service{
		client: client,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Register регистрирует нового пользователя; сессия не создается
func (s *Service) Register(ctx context.Context, username, password string) (*RegisterResult, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return nil, fmt.Errorf("invalid username: %w", err)
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, fmt.Errorf("invalid password: %w", err)
	}

	resp, err := s.client.Register(ctx, api.RegisterRequest{Username: username, Password: password})
	if err != nil {
		return nil, fmt.Errorf("registration failed: %w", err)
	}

	return &RegisterResult{UserID: resp.UserID, Username: username}, nil
}

// Login выполняет аутентификацию и сохраняет токен в слот хранилища
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return nil, fmt.Errorf("invalid username: %w", err)
	}
	if password == "" {
		return nil, fmt.Errorf("invalid password: password cannot be empty")
	}

	resp, err := s.client.Login(ctx, api.LoginRequest{Username: username, Password: password})
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	result := &LoginResult{
		Username:  username,
		UserID:    resp.UserID,
		ExpiresIn: resp.ExpiresIn,
	}

	authData := &storage.AuthData{
		Username:    username,
		UserID:      resp.UserID,
		AccessToken: resp.AccessToken,
	}
	if resp.ExpiresIn > 0 {
		result.ExpiresAt = s.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
		authData.ExpiresAt = result.ExpiresAt.Unix()
	}

	// Другой пользователь на этом устройстве: чужой кеш не показываем
	if prev, err := s.store.GetAuth(ctx); err == nil && prev.UserID != "" && prev.UserID != resp.UserID {
		s.logger.Info("Different user logged in, clearing local cache", "previous", prev.Username)
		if err := s.store.ClearAll(ctx); err != nil {
			return nil, fmt.Errorf("failed to clear local data: %w", err)
		}
	}

	if err := s.store.SaveAuth(ctx, authData); err != nil {
		return nil, fmt.Errorf("failed to save auth data: %w", err)
	}

	s.logger.Info("Logged in", "username", username)
	return result, nil
}

// Logout удаляет токен и очищает кеш заметок и очередь.
// Без force выход отклоняется, пока в очереди есть неотправленные изменения.
// Конфликты остаются: это пользовательские данные.
func (s *Service) Logout(ctx context.Context, force bool) error {
	if !force {
		pending, err := s.store.CountPending(ctx)
		if err != nil {
			return fmt.Errorf("failed to count pending changes: %w", err)
		}
		if pending > 0 {
			return fmt.Errorf("%w: %d pending", ErrPendingChanges, pending)
		}
	}

	if err := s.store.ClearAuthToken(ctx); err != nil {
		return fmt.Errorf("failed to delete local auth data: %w", err)
	}
	if err := s.store.ClearAll(ctx); err != nil {
		return fmt.Errorf("failed to clear local data: %w", err)
	}

	s.logger.Info("Logged out")
	return nil
}

// Status возвращает состояние локальной сессии
func (s *Service) Status(ctx context.Context) (*Status, error) {
	authData, err := s.store.GetAuth(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrAuthNotFound) {
			return &Status{}, nil
		}
		return nil, fmt.Errorf("failed to get auth data: %w", err)
	}
	if authData.AccessToken == "" {
		return &Status{Username: authData.Username}, nil
	}

	status := &Status{Username: authData.Username, Authenticated: true}
	if authData.ExpiresAt > 0 {
		status.ExpiresAt = time.Unix(authData.ExpiresAt, 0)
		status.Expired = s.now().After(status.ExpiresAt)
	}
	return status, nil
}
