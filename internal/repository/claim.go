package repository

import (
	"context"
	"errors"
	"fmt"

	"lost-found-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// errTransitionLost aborts the claim transaction when the item already left open
var errTransitionLost = errors.New("item status changed")

const claimColumns = `id, user_id, item_id, status, full_name, email, proof_description, proof_url, created_at, updated_at`

// ClaimRepository handles database operations for claims
type ClaimRepository struct {
	db *pgxpool.Pool
}

// NewClaimRepository creates a new claim repository
func NewClaimRepository(db *pgxpool.Pool) *ClaimRepository {
	return &ClaimRepository{db: db}
}

// Create inserts a claim record
func (r *ClaimRepository) Create(ctx context.Context, claim *models.Claim) error {
	return insertClaim(ctx, r.db, claim)
}

// CreateWithTransition moves the claim's item from open to claimed, records
// the claimant on it and inserts the claim, all in one transaction. It
// returns false and writes nothing when the item is no longer open.
func (r *ClaimRepository) CreateWithTransition(ctx context.Context, claim *models.Claim, claimant models.Claimant) (bool, error) {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		ok, err := updateItemStatus(ctx, tx, claim.ItemID, models.ItemStatusOpen, models.ItemStatusClaimed, &claimant)
		if err != nil {
			return err
		}
		if !ok {
			return errTransitionLost
		}
		return insertClaim(ctx, tx, claim)
	})
	if errors.Is(err, errTransitionLost) {
		return false, nil
	}
	if missingUser(err) {
		return false, fmt.Errorf("claimant %s: %w", claimant.UserID, ErrUnknownUser)
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func insertClaim(ctx context.Context, q querier, claim *models.Claim) error {
	query := `
		INSERT INTO claims (id, user_id, item_id, status, full_name, email, proof_description, proof_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := q.Exec(ctx, query,
		claim.ID, claim.UserID, claim.ItemID, claim.Status, claim.FullName,
		claim.Email, claim.ProofDescription, claim.ProofURL, claim.CreatedAt, claim.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create claim: %w", err)
	}
	return nil
}

// GetByID retrieves a claim by ID
func (r *ClaimRepository) GetByID(ctx context.Context, id string) (*models.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims WHERE id = $1`
	claim, err := scanClaim(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || invalidID(err) {
			return nil, fmt.Errorf("claim %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}
	return claim, nil
}

// ListByItem retrieves all claims on an item, oldest first
func (r *ClaimRepository) ListByItem(ctx context.Context, itemID string) ([]*models.Claim, error) {
	query := `SELECT ` + claimColumns + `
		FROM claims
		WHERE item_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(ctx, query, itemID)
	if invalidID(err) {
		return []*models.Claim{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	defer rows.Close()

	claims := []*models.Claim{}
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		claims = append(claims, claim)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating claims: %w", err)
	}

	return claims, nil
}

// UpdateStatus sets the review status of a claim
func (r *ClaimRepository) UpdateStatus(ctx context.Context, id string, status models.ClaimStatus) error {
	result, err := r.db.Exec(ctx,
		`UPDATE claims SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id,
	)
	if invalidID(err) {
		return fmt.Errorf("claim %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update claim status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("claim %s: %w", id, ErrNotFound)
	}
	return nil
}

func scanClaim(row pgx.Row) (*models.Claim, error) {
	var claim models.Claim
	err := row.Scan(
		&claim.ID, &claim.UserID, &claim.ItemID, &claim.Status, &claim.FullName,
		&claim.Email, &claim.ProofDescription, &claim.ProofURL, &claim.CreatedAt, &claim.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &claim, nil
}
