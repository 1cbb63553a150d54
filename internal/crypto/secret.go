package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// SecretSize размер генерируемого секрета подписи токенов в байтах
const SecretSize = 32

// GenerateSecret генерирует криптографически случайный секрет размера SecretSize
func GenerateSecret() ([]byte, error) {
	secret := make([]byte, SecretSize)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate secret: %w", err)
	}
	return secret, nil
}

// GenerateSecretBase64 генерирует секрет и возвращает его в Base64
func GenerateSecretBase64() (string, error) {
	secret, err := GenerateSecret()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(secret), nil
}
