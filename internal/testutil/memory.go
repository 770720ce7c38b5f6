// Package testutil holds in-memory stores and storage used by service and
// handler tests, plus a Postgres pool helper for repository tests.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"lost-found-backend/internal/models"
	"lost-found-backend/internal/repository"
)

// MemoryItems is an in-memory item store. UpdateStatus is atomic under its
// mutex, matching the conditional UPDATE of the Postgres repository.
type MemoryItems struct {
	mu        sync.Mutex
	items     map[string]models.Item
	CreateErr error
}

func NewMemoryItems() *MemoryItems {
	return &MemoryItems{items: make(map[string]models.Item)}
}

func (m *MemoryItems) Create(ctx context.Context, item *models.Item) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *item
	stored.Photos = append([]string{}, item.Photos...)
	m.items[item.ID] = stored
	return nil
}

func (m *MemoryItems) GetByID(ctx context.Context, id string) (*models.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("item %s: %w", id, repository.ErrNotFound)
	}
	item.Photos = append([]string{}, item.Photos...)
	return &item, nil
}

func (m *MemoryItems) ListRecent(ctx context.Context, filter models.ItemFilter, limit, offset int) ([]*models.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	query := strings.ToLower(filter.Query)
	all := make([]*models.Item, 0, len(m.items))
	for _, item := range m.items {
		if filter.Type != "" && item.Type != filter.Type {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(item.Title), query) {
			continue
		}
		item := item
		all = append(all, &item)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if offset >= len(all) {
		return []*models.Item{}, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (m *MemoryItems) UpdateStatus(ctx context.Context, id string, expected, next models.ItemStatus, claimant *models.Claimant) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transitionLocked(id, expected, next, claimant), nil
}

func (m *MemoryItems) transitionLocked(id string, expected, next models.ItemStatus, claimant *models.Claimant) bool {
	item, ok := m.items[id]
	if !ok || item.Status != expected {
		return false
	}
	item.Status = next
	if claimant != nil {
		at := claimant.At
		item.ClaimedBy = &claimant.UserID
		item.ClaimedAt = &at
		item.ClaimName = &claimant.Name
		item.ClaimEmail = &claimant.Email
		item.ClaimProof = &claimant.Proof
		item.ClaimProofURL = claimant.ProofURL
	}
	m.items[id] = item
	return true
}

func (m *MemoryItems) Close(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return fmt.Errorf("item %s: %w", id, repository.ErrNotFound)
	}
	item.Status = models.ItemStatusClosed
	m.items[id] = item
	return nil
}

func (m *MemoryItems) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return fmt.Errorf("item %s: %w", id, repository.ErrNotFound)
	}
	delete(m.items, id)
	return nil
}

// Count returns the number of stored items
func (m *MemoryItems) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// MemoryClaims is an in-memory claim store bound to a MemoryItems
type MemoryClaims struct {
	items     *MemoryItems
	mu        sync.Mutex
	claims    map[string]models.Claim
	CreateErr error
}

func NewMemoryClaims(items *MemoryItems) *MemoryClaims {
	return &MemoryClaims{items: items, claims: make(map[string]models.Claim)}
}

func (m *MemoryClaims) Create(ctx context.Context, claim *models.Claim) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claims[claim.ID] = *claim
	return nil
}

func (m *MemoryClaims) CreateWithTransition(ctx context.Context, claim *models.Claim, claimant models.Claimant) (bool, error) {
	if m.CreateErr != nil {
		return false, m.CreateErr
	}
	m.items.mu.Lock()
	defer m.items.mu.Unlock()
	if !m.items.transitionLocked(claim.ItemID, models.ItemStatusOpen, models.ItemStatusClaimed, &claimant) {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claims[claim.ID] = *claim
	return true, nil
}

func (m *MemoryClaims) GetByID(ctx context.Context, id string) (*models.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	claim, ok := m.claims[id]
	if !ok {
		return nil, fmt.Errorf("claim %s: %w", id, repository.ErrNotFound)
	}
	return &claim, nil
}

func (m *MemoryClaims) ListByItem(ctx context.Context, itemID string) ([]*models.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	claims := []*models.Claim{}
	for _, claim := range m.claims {
		if claim.ItemID == itemID {
			claim := claim
			claims = append(claims, &claim)
		}
	}
	sort.Slice(claims, func(i, j int) bool { return claims[i].CreatedAt.Before(claims[j].CreatedAt) })
	return claims, nil
}

func (m *MemoryClaims) UpdateStatus(ctx context.Context, id string, status models.ClaimStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	claim, ok := m.claims[id]
	if !ok {
		return fmt.Errorf("claim %s: %w", id, repository.ErrNotFound)
	}
	claim.Status = status
	m.claims[id] = claim
	return nil
}

// Count returns the number of stored claims
func (m *MemoryClaims) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.claims)
}

// MemoryUsers is an in-memory user store with a unique email index
type MemoryUsers struct {
	mu    sync.Mutex
	users map[string]models.User
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{users: make(map[string]models.User)}
}

func (m *MemoryUsers) Create(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return fmt.Errorf("user %s: %w", user.Email, repository.ErrDuplicate)
		}
	}
	m.users[user.ID] = *user
	return nil
}

func (m *MemoryUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, repository.ErrNotFound)
	}
	return &user, nil
}

func (m *MemoryUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, repository.ErrNotFound)
}

func (m *MemoryUsers) List(ctx context.Context) ([]*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]*models.User, 0, len(m.users))
	for _, u := range m.users {
		u := u
		users = append(users, &u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })
	return users, nil
}

func (m *MemoryUsers) UpdateProfile(ctx context.Context, id, firstName, lastName, contact string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return fmt.Errorf("user %s: %w", id, repository.ErrNotFound)
	}
	user.FirstName, user.LastName, user.Contact = firstName, lastName, contact
	m.users[id] = user
	return nil
}

func (m *MemoryUsers) UpdateAvatar(ctx context.Context, id, avatarURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return fmt.Errorf("user %s: %w", id, repository.ErrNotFound)
	}
	user.AvatarURL = &avatarURL
	m.users[id] = user
	return nil
}

func (m *MemoryUsers) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return fmt.Errorf("user %s: %w", id, repository.ErrNotFound)
	}
	delete(m.users, id)
	return nil
}

// MemoryStorage is an in-memory object storage. Keys whose filename
// contains any FailOn substring are rejected.
type MemoryStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	FailOn  []string
	FailAll bool
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: make(map[string][]byte), types: make(map[string]string)}
}

// BaseURL prefixes every returned public URL
const BaseURL = "https://storage.test"

func (m *MemoryStorage) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.FailAll {
		return "", errors.New("storage unavailable")
	}
	for _, s := range m.FailOn {
		if strings.Contains(key, s) {
			return "", fmt.Errorf("put %s: storage rejected", key)
		}
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.objects[key]; exists {
		return "", fmt.Errorf("put %s: object already exists", key)
	}
	m.objects[key] = data
	m.types[key] = contentType
	return BaseURL + "/" + key, nil
}

// Keys returns the stored keys, sorted
func (m *MemoryStorage) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ContentType returns the content type an object was stored with
func (m *MemoryStorage) ContentType(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.types[key]
}
