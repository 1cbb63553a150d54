package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/gennotes/internal/client/storage"
)

var authKey = []byte("current")

// SaveAuth stores authentication data
func (s *Storage) SaveAuth(ctx context.Context, auth *storage.AuthData) error {
	return s.update(ctx, "save auth", func(tx *bbolt.Tx) error {
		return putAuth(tx, auth)
	})
}

// GetAuth retrieves stored authentication data
func (s *Storage) GetAuth(ctx context.Context) (*storage.AuthData, error) {
	var auth *storage.AuthData

	err := s.view(ctx, "get auth", func(tx *bbolt.Tx) error {
		var err error
		auth, err = getAuth(tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	return auth, nil
}

// SetAuthToken replaces the bearer token keeping the rest of the slot
func (s *Storage) SetAuthToken(ctx context.Context, token string) error {
	return s.update(ctx, "set auth token", func(tx *bbolt.Tx) error {
		auth, err := getAuth(tx)
		if err != nil {
			if err != storage.ErrAuthNotFound {
				return err
			}
			auth = &storage.AuthData{}
		}

		auth.AccessToken = token
		return putAuth(tx, auth)
	})
}

// GetAuthToken returns the stored bearer token
func (s *Storage) GetAuthToken(ctx context.Context) (string, error) {
	auth, err := s.GetAuth(ctx)
	if err != nil {
		return "", err
	}

	if auth.AccessToken == "" {
		return "", storage.ErrAuthNotFound
	}

	return auth.AccessToken, nil
}

// ClearAuthToken removes stored authentication data (logout)
func (s *Storage) ClearAuthToken(ctx context.Context) error {
	return s.update(ctx, "clear auth", func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketAuth)
		if err != nil {
			return err
		}

		if err := b.Delete(authKey); err != nil {
			return fmt.Errorf("failed to delete auth data: %w", err)
		}

		return nil
	})
}

func putAuth(tx *bbolt.Tx, auth *storage.AuthData) error {
	b, err := bucket(tx, bucketAuth)
	if err != nil {
		return err
	}

	// Сериализуем данные в JSON
	data, err := json.Marshal(auth)
	if err != nil {
		return fmt.Errorf("failed to marshal auth data: %w", err)
	}

	if err := b.Put(authKey, data); err != nil {
		return fmt.Errorf("failed to save auth data: %w", err)
	}

	return nil
}

func getAuth(tx *bbolt.Tx) (*storage.AuthData, error) {
	b, err := bucket(tx, bucketAuth)
	if err != nil {
		return nil, err
	}

	data := b.Get(authKey)
	if data == nil {
		return nil, storage.ErrAuthNotFound
	}

	auth := &storage.AuthData{}
	if err := json.Unmarshal(data, auth); err != nil {
		return nil, fmt.Errorf("failed to unmarshal auth data: %w", err)
	}

	return auth, nil
}
