package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"lost-found-backend/internal/models"
	"lost-found-backend/internal/repository"

	"github.com/rs/zerolog/log"
)

const (
	maxListLimit   = 100
	maxSearchRunes = 100
)

// Caller is the resolved identity of the acting user
type Caller struct {
	ID   string
	Role models.Role
}

// ItemService serves item reads and admin item actions
type ItemService struct {
	items        ItemStore
	defaultLimit int
}

// NewItemService creates a new item service
func NewItemService(items ItemStore, defaultLimit int) *ItemService {
	if defaultLimit <= 0 {
		defaultLimit = 6
	}
	return &ItemService{items: items, defaultLimit: defaultLimit}
}

// GetItem retrieves an item by ID
func (s *ItemService) GetItem(ctx context.Context, id string) (*models.Item, error) {
	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, &PersistenceError{Op: "get item", Err: err}
	}
	return item, nil
}

// ListRecent retrieves the newest items, optionally narrowed to one type
// and to titles containing a search term
func (s *ItemService) ListRecent(ctx context.Context, filter models.ItemFilter, limit, offset int) ([]*models.Item, error) {
	filter.Type = models.ItemType(strings.ToLower(strings.TrimSpace(string(filter.Type))))
	switch filter.Type {
	case "", models.ItemTypeLost, models.ItemTypeFound:
	default:
		return nil, &ValidationError{Field: "type", Message: "must be lost or found"}
	}
	filter.Query = strings.TrimSpace(filter.Query)
	if utf8.RuneCountInString(filter.Query) > maxSearchRunes {
		return nil, &ValidationError{Field: "q", Message: "search term is too long"}
	}

	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	items, err := s.items.ListRecent(ctx, filter, limit, offset)
	if err != nil {
		return nil, &PersistenceError{Op: "list items", Err: err}
	}
	return items, nil
}

// CloseItem moves an item to closed from any status
func (s *ItemService) CloseItem(ctx context.Context, caller Caller, id string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	if err := s.items.Close(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return &PersistenceError{Op: "close item", Err: err}
	}
	log.Info().Str("admin_id", caller.ID).Str("item_id", id).Msg("Item closed")
	return nil
}

// DeleteItem removes an item and its claims
func (s *ItemService) DeleteItem(ctx context.Context, caller Caller, id string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	if err := s.items.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return &PersistenceError{Op: "delete item", Err: err}
	}
	log.Info().Str("admin_id", caller.ID).Str("item_id", id).Msg("Item deleted")
	return nil
}

func requireAdmin(caller Caller) error {
	if caller.ID == "" {
		return ErrAuthRequired
	}
	if caller.Role != models.RoleAdmin {
		return ErrForbidden
	}
	return nil
}
