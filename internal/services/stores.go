package services

import (
	"context"

	"lost-found-backend/internal/models"
)

// ItemStore is the persistence contract for items. UpdateStatus must be a
// single conditional write: it reports false and changes nothing when the
// current status differs from expected.
type ItemStore interface {
	Create(ctx context.Context, item *models.Item) error
	GetByID(ctx context.Context, id string) (*models.Item, error)
	ListRecent(ctx context.Context, filter models.ItemFilter, limit, offset int) ([]*models.Item, error)
	UpdateStatus(ctx context.Context, id string, expected, next models.ItemStatus, claimant *models.Claimant) (bool, error)
	Close(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// ClaimStore is the persistence contract for claims. CreateWithTransition
// moves the item open -> claimed and inserts the claim atomically, or
// reports false and writes nothing.
type ClaimStore interface {
	Create(ctx context.Context, claim *models.Claim) error
	CreateWithTransition(ctx context.Context, claim *models.Claim, claimant models.Claimant) (bool, error)
	GetByID(ctx context.Context, id string) (*models.Claim, error)
	ListByItem(ctx context.Context, itemID string) ([]*models.Claim, error)
	UpdateStatus(ctx context.Context, id string, status models.ClaimStatus) error
}

// UserStore is the persistence contract for users
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	UpdateProfile(ctx context.Context, id, firstName, lastName, contact string) error
	UpdateAvatar(ctx context.Context, id, avatarURL string) error
	Delete(ctx context.Context, id string) error
}
