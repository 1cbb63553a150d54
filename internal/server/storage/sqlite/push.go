package sqlite

import (
	"context"
	"fmt"

	"github.com/iudanet/gennotes/internal/models"
	"github.com/iudanet/gennotes/internal/server/storage"
)

// SaveSubscription creates or refreshes the subscription of (user, device)
func (s *Storage) SaveSubscription(ctx context.Context, sub *models.PushSubscription) error {
	query := `
		INSERT INTO push_subscriptions (id, user_id, device_id, platform, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, device_id) DO UPDATE SET platform = excluded.platform
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		sub.ID,
		sub.UserID,
		sub.DeviceID,
		sub.Platform,
		sub.CreatedAt.UTC(),
	).Scan(&sub.ID, &sub.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save push subscription: %w", err)
	}

	return nil
}

// ListSubscriptions returns all subscriptions of the user
func (s *Storage) ListSubscriptions(ctx context.Context, userID string) ([]*models.PushSubscription, error) {
	query := `
		SELECT id, user_id, device_id, platform, created_at
		FROM push_subscriptions
		WHERE user_id = ?
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query push subscriptions: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	subs := []*models.PushSubscription{}
	for rows.Next() {
		sub := &models.PushSubscription{}
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.DeviceID, &sub.Platform, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan push subscription: %w", err)
		}
		subs = append(subs, sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return subs, nil
}

// DeleteSubscription removes the subscription of (user, device)
func (s *Storage) DeleteSubscription(ctx context.Context, userID, deviceID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM push_subscriptions WHERE user_id = ? AND device_id = ?`, userID, deviceID)
	if err != nil {
		return fmt.Errorf("failed to delete push subscription: %w", err)
	}

	return expectOneRow(result, storage.ErrSubscriptionNotFound)
}
