package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	"lost-found-backend/internal/models"
	"lost-found-backend/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ClaimInput is the form schema of a claim submission
type ClaimInput struct {
	ItemID           string `form:"itemId" validate:"required"`
	FullName         string `form:"fullName" validate:"required"`
	Email            string `form:"email" validate:"required,email"`
	ProofDescription string `form:"proofDescription" validate:"required"`
}

func (in ClaimInput) normalized() ClaimInput {
	return ClaimInput{
		ItemID:           strings.TrimSpace(in.ItemID),
		FullName:         strings.TrimSpace(in.FullName),
		Email:            strings.TrimSpace(in.Email),
		ProofDescription: strings.TrimSpace(in.ProofDescription),
	}
}

// ClaimService admits ownership claims on open items
type ClaimService struct {
	items         ItemStore
	claims        ClaimStore
	storage       ObjectStorage
	observer      PipelineObserver
	validate      *validator.Validate
	maxProofBytes int64
	now           func() time.Time
}

// NewClaimService creates a new claim service
func NewClaimService(items ItemStore, claims ClaimStore, storage ObjectStorage, maxProofBytes int64, observer PipelineObserver) *ClaimService {
	if observer == nil {
		observer = nopObserver{}
	}
	return &ClaimService{
		items:         items,
		claims:        claims,
		storage:       storage,
		observer:      observer,
		validate:      newValidator(),
		maxProofBytes: maxProofBytes,
		now:           time.Now,
	}
}

// SubmitClaim claims an open item for the caller and returns the claim ID.
// The proof file is optional and best-effort. Only one claim can move an
// item out of open; every other claim gets ErrAlreadyClaimed.
func (s *ClaimService) SubmitClaim(ctx context.Context, callerID string, in ClaimInput, proof *Upload) (claimID string, err error) {
	defer func() { s.observer.RecordClaim(outcomeOf(err)) }()

	if callerID == "" {
		return "", ErrAuthRequired
	}

	in = in.normalized()
	if err := validateStruct(s.validate, in); err != nil {
		return "", err
	}

	item, err := s.items.GetByID(ctx, in.ItemID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", &PersistenceError{Op: "get item", Err: err}
	}
	if item.Status != models.ItemStatusOpen {
		return "", ErrAlreadyClaimed
	}

	// Upload before touching the store so no transaction spans the network call.
	var proofURL *string
	if proof != nil {
		proofURL = s.uploadProof(ctx, callerID, item.ID, *proof)
	}

	now := s.now()
	claim := &models.Claim{
		ID:               uuid.New().String(),
		UserID:           callerID,
		ItemID:           item.ID,
		Status:           models.ClaimStatusPending,
		FullName:         in.FullName,
		Email:            in.Email,
		ProofDescription: in.ProofDescription,
		ProofURL:         proofURL,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	claimant := models.Claimant{
		UserID:   callerID,
		Name:     in.FullName,
		Email:    in.Email,
		Proof:    in.ProofDescription,
		ProofURL: proofURL,
		At:       now,
	}

	ok, err := s.claims.CreateWithTransition(ctx, claim, claimant)
	if errors.Is(err, repository.ErrUnknownUser) {
		return "", ErrAuthRequired
	}
	if err != nil {
		return "", &PersistenceError{Op: "create claim", Err: err}
	}
	if !ok {
		if proofURL != nil {
			log.Warn().
				Str("item_id", item.ID).
				Str("proof_url", *proofURL).
				Msg("Claim lost the race, proof blob left in storage")
		}
		return "", ErrAlreadyClaimed
	}

	log.Info().
		Str("user_id", callerID).
		Str("item_id", item.ID).
		Str("claim_id", claim.ID).
		Bool("proof_file", proofURL != nil).
		Msg("Item claimed")

	return claim.ID, nil
}

func (s *ClaimService) uploadProof(ctx context.Context, callerID, itemID string, proof Upload) *string {
	key := objectKey("proofs", itemID, s.now(), 0, proof.Filename)
	logger := log.With().Str("user_id", callerID).Str("item_id", itemID).Str("key", key).Logger()

	data, err := readUpload(proof, s.maxProofBytes)
	if err != nil {
		logger.Warn().Err(err).Msg("Skipped unreadable proof file")
		return nil
	}

	contentType, _ := imageType(proof)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	url, err := s.storage.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType)
	if err != nil {
		logger.Warn().Err(err).Msg("Proof upload failed, claim continues without it")
		return nil
	}
	return &url
}

// ListClaims returns the claims on an item. Only the item's reporter and
// admins may see them.
func (s *ClaimService) ListClaims(ctx context.Context, caller Caller, itemID string) ([]*models.Claim, error) {
	if caller.ID == "" {
		return nil, ErrAuthRequired
	}

	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, &PersistenceError{Op: "get item", Err: err}
	}
	if item.UserID != caller.ID && caller.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}

	claims, err := s.claims.ListByItem(ctx, itemID)
	if err != nil {
		return nil, &PersistenceError{Op: "list claims", Err: err}
	}
	return claims, nil
}

// ReviewClaim sets a claim to approved or rejected. Approving closes the
// item; rejecting leaves the item claimed since it can never reopen.
func (s *ClaimService) ReviewClaim(ctx context.Context, caller Caller, claimID string, status models.ClaimStatus) (*models.Claim, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if status != models.ClaimStatusApproved && status != models.ClaimStatusRejected {
		return nil, &ValidationError{Field: "status", Message: "must be one of: approved, rejected"}
	}

	claim, err := s.claims.GetByID(ctx, claimID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, &PersistenceError{Op: "get claim", Err: err}
	}

	if err := s.claims.UpdateStatus(ctx, claimID, status); err != nil {
		return nil, &PersistenceError{Op: "update claim", Err: err}
	}

	if status == models.ClaimStatusApproved {
		ok, err := s.items.UpdateStatus(ctx, claim.ItemID, models.ItemStatusClaimed, models.ItemStatusClosed, nil)
		if err != nil {
			return nil, &PersistenceError{Op: "close item", Err: err}
		}
		if !ok {
			log.Warn().
				Str("claim_id", claimID).
				Str("item_id", claim.ItemID).
				Msg("Approved claim but item was not in claimed status")
		}
	}

	claim.Status = status
	log.Info().
		Str("admin_id", caller.ID).
		Str("claim_id", claimID).
		Str("status", string(status)).
		Msg("Claim reviewed")

	return claim, nil
}
