package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lost-found-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when a referenced row does not exist
	ErrNotFound = errors.New("not found")
	// ErrUnknownUser is returned when a write references a user that no longer exists
	ErrUnknownUser = errors.New("unknown user")
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const itemColumns = `id, user_id, title, description, location, type, date_posted, status, photos,
		claimed_by, claimed_at, claim_name, claim_email, claim_proof, claim_proof_url, created_at`

// ItemRepository handles database operations for items
type ItemRepository struct {
	db *pgxpool.Pool
}

// NewItemRepository creates a new item repository
func NewItemRepository(db *pgxpool.Pool) *ItemRepository {
	return &ItemRepository{db: db}
}

// Create inserts a new item
func (r *ItemRepository) Create(ctx context.Context, item *models.Item) error {
	photos, err := EncodePhotoURLs(item.Photos)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO items (id, user_id, title, description, location, type, date_posted, status, photos, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = r.db.Exec(ctx, query,
		item.ID, item.UserID, item.Title, item.Description, item.Location,
		item.Type, item.DatePosted, item.Status, photos, item.CreatedAt,
	)
	if missingUser(err) {
		return fmt.Errorf("item owner %s: %w", item.UserID, ErrUnknownUser)
	}
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}
	return nil
}

// GetByID retrieves an item by ID
func (r *ItemRepository) GetByID(ctx context.Context, id string) (*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1`
	item, err := scanItem(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || invalidID(err) {
			return nil, fmt.Errorf("item %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

// ListRecent retrieves items ordered by creation time, newest first. The
// filter's query matches titles case-insensitively as a literal substring.
func (r *ItemRepository) ListRecent(ctx context.Context, filter models.ItemFilter, limit, offset int) ([]*models.Item, error) {
	query := `SELECT ` + itemColumns + `
		FROM items
		WHERE ($1::text = '' OR type = $1::text)
		  AND ($2::text = '' OR title ILIKE '%' || $2::text || '%' ESCAPE '\')
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.db.Query(ctx, query, string(filter.Type), likeEscaper.Replace(filter.Query), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	items := []*models.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating items: %w", err)
	}

	return items, nil
}

// UpdateStatus moves an item from expected to next in a single conditional
// UPDATE. It returns false without changing anything when the current status
// is not expected. A non-nil claimant is recorded on the item.
func (r *ItemRepository) UpdateStatus(ctx context.Context, id string, expected, next models.ItemStatus, claimant *models.Claimant) (bool, error) {
	return updateItemStatus(ctx, r.db, id, expected, next, claimant)
}

func updateItemStatus(ctx context.Context, q querier, id string, expected, next models.ItemStatus, claimant *models.Claimant) (bool, error) {
	var (
		result pgconn.CommandTag
		err    error
	)
	if claimant == nil {
		result, err = q.Exec(ctx,
			`UPDATE items SET status = $1 WHERE id = $2 AND status = $3`,
			next, id, expected,
		)
	} else {
		result, err = q.Exec(ctx, `
			UPDATE items
			SET status = $1, claimed_by = $2, claimed_at = $3, claim_name = $4,
			    claim_email = $5, claim_proof = $6, claim_proof_url = $7
			WHERE id = $8 AND status = $9
		`,
			next, claimant.UserID, claimant.At, claimant.Name,
			claimant.Email, claimant.Proof, claimant.ProofURL,
			id, expected,
		)
	}
	if invalidID(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to update item status: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

// Close moves an item to closed from whatever status it is in
func (r *ItemRepository) Close(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `UPDATE items SET status = $1 WHERE id = $2`, models.ItemStatusClosed, id)
	if invalidID(err) {
		return fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to close item: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	return nil
}

// Delete deletes an item by ID
func (r *ItemRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	if invalidID(err) {
		return fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	return nil
}

// invalidID reports whether Postgres rejected an id that is not a UUID
func invalidID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22P02"
}

// missingUser reports whether a users foreign key rejected the write
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func missingUser(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23503" {
		return false
	}
	switch pgErr.ConstraintName {
	case "items_user_id_fkey", "items_claimed_by_fkey", "claims_user_id_fkey":
		return true
	}
	return false
}

func scanItem(row pgx.Row) (*models.Item, error) {
	var (
		item   models.Item
		photos *string
	)
	err := row.Scan(
		&item.ID, &item.UserID, &item.Title, &item.Description, &item.Location,
		&item.Type, &item.DatePosted, &item.Status, &photos,
		&item.ClaimedBy, &item.ClaimedAt, &item.ClaimName, &item.ClaimEmail,
		&item.ClaimProof, &item.ClaimProofURL, &item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	item.Photos = DecodePhotoURLs(photos)
	return &item, nil
}
