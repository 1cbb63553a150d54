package crypto

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidPassword пароль не соответствует сохраненному хешу
var ErrInvalidPassword = errors.New("invalid password")

// HashCost стоимость bcrypt; тесты могут понижать ее до bcrypt.MinCost
var HashCost = bcrypt.DefaultCost

// HashPassword хеширует пароль пользователя через bcrypt
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), HashCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword проверяет пароль по bcrypt хешу
// Возвращает ErrInvalidPassword при несовпадении
func VerifyPassword(password, hash string) error {
	if hash == "" {
		return fmt.Errorf("hashed password cannot be empty")
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrInvalidPassword
	}
	return fmt.Errorf("failed to verify password: %w", err)
}
