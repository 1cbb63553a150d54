package storage

import (
	"context"

	"github.com/iudanet/gennotes/internal/models"
)

// PushStorage хранит push подписки устройств
type PushStorage interface {
	// SaveSubscription creates or refreshes the subscription of (user, device).
	// The stored record, with its existing id when refreshed, is written back into sub.
	SaveSubscription(ctx context.Context, sub *models.PushSubscription) error

	// ListSubscriptions returns all subscriptions of the user
	ListSubscriptions(ctx context.Context, userID string) ([]*models.PushSubscription, error)

	// DeleteSubscription removes the subscription of (user, device)
	// Returns ErrSubscriptionNotFound if it doesn't exist
	DeleteSubscription(ctx context.Context, userID, deviceID string) error
}
