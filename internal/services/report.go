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
	"golang.org/x/sync/errgroup"
)

const datePostedLayout = "2006-01-02"

// ReportOptions is the photo policy of the report pipeline
type ReportOptions struct {
	MaxPhotos     int
	MaxPhotoBytes int64
	Concurrency   int
	RequirePhotos bool
}

// ReportInput is the form schema of a lost/found report.
// Fields are validated in declaration order.
type ReportInput struct {
	Title       string `form:"title" validate:"required"`
	Description string `form:"description" validate:"required"`
	Location    string `form:"location" validate:"required"`
	Date        string `form:"date" validate:"required,datetime=2006-01-02"`
	Type        string `form:"type" validate:"required,oneof=lost found"`
}

func (in ReportInput) normalized() ReportInput {
	return ReportInput{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Location:    strings.TrimSpace(in.Location),
		Date:        strings.TrimSpace(in.Date),
		Type:        strings.ToLower(strings.TrimSpace(in.Type)),
	}
}

// ReportService validates reports, uploads their photos and stores the item
type ReportService struct {
	items    ItemStore
	storage  ObjectStorage
	observer PipelineObserver
	validate *validator.Validate
	opts     ReportOptions
	now      func() time.Time
}

// NewReportService creates a new report service
func NewReportService(items ItemStore, storage ObjectStorage, opts ReportOptions, observer PipelineObserver) *ReportService {
	if opts.MaxPhotos <= 0 || opts.MaxPhotos > models.MaxItemPhotos {
		opts.MaxPhotos = models.MaxItemPhotos
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &ReportService{
		items:    items,
		storage:  storage,
		observer: observer,
		validate: newValidator(),
		opts:     opts,
		now:      time.Now,
	}
}

type acceptedPhoto struct {
	Upload
	contentType string
}

// SubmitReport creates an open item for the caller and returns its ID.
// Non-image files are skipped and only the first MaxPhotos images are kept.
// A photo whose upload fails is skipped; the item is still created. Blobs
// uploaded before a failed insert are left in storage.
func (s *ReportService) SubmitReport(ctx context.Context, callerID string, in ReportInput, photos []Upload) (itemID string, err error) {
	stored := 0
	defer func() { s.observer.RecordReport(outcomeOf(err), stored) }()

	if callerID == "" {
		return "", ErrAuthRequired
	}

	in = in.normalized()
	if err := validateStruct(s.validate, in); err != nil {
		return "", err
	}
	datePosted, err := time.Parse(datePostedLayout, in.Date)
	if err != nil {
		return "", &ValidationError{Field: "date", Message: "must be a date in YYYY-MM-DD format"}
	}

	accepted := s.selectPhotos(callerID, photos)
	if s.opts.RequirePhotos && len(accepted) == 0 {
		return "", &ValidationError{Field: "photos", Message: "at least one image is required"}
	}

	urls := s.uploadPhotos(ctx, callerID, accepted)
	if s.opts.RequirePhotos && len(urls) == 0 {
		return "", &StorageError{Op: "upload photos", Err: errors.New("every photo upload failed")}
	}

	now := s.now()
	item := &models.Item{
		ID:          uuid.New().String(),
		UserID:      callerID,
		Title:       in.Title,
		Description: in.Description,
		Location:    in.Location,
		Type:        models.ItemType(in.Type),
		DatePosted:  datePosted,
		Status:      models.ItemStatusOpen,
		Photos:      urls,
		CreatedAt:   now,
	}

	if err := s.items.Create(ctx, item); err != nil {
		if len(urls) > 0 {
			log.Warn().
				Str("user_id", callerID).
				Strs("orphaned_urls", urls).
				Msg("Item insert failed after photo upload, blobs left in storage")
		}
		if errors.Is(err, repository.ErrUnknownUser) {
			return "", ErrAuthRequired
		}
		return "", &PersistenceError{Op: "create item", Err: err}
	}

	stored = len(urls)
	log.Info().
		Str("user_id", callerID).
		Str("item_id", item.ID).
		Str("type", in.Type).
		Int("photos", stored).
		Msg("Item reported")

	return item.ID, nil
}

// selectPhotos keeps image uploads in submission order, up to MaxPhotos
func (s *ReportService) selectPhotos(callerID string, photos []Upload) []acceptedPhoto {
	accepted := make([]acceptedPhoto, 0, min(len(photos), s.opts.MaxPhotos))
	dropped := 0
	for _, p := range photos {
		contentType, ok := imageType(p)
		if !ok {
			log.Debug().
				Str("user_id", callerID).
				Str("filename", p.Filename).
				Str("content_type", contentType).
				Msg("Skipped non-image file")
			continue
		}
		if len(accepted) == s.opts.MaxPhotos {
			dropped++
			continue
		}
		accepted = append(accepted, acceptedPhoto{Upload: p, contentType: contentType})
	}
	if dropped > 0 {
		log.Warn().
			Str("user_id", callerID).
			Int("dropped", dropped).
			Int("max_photos", s.opts.MaxPhotos).
			Msg("Too many photos, extra images dropped")
	}
	return accepted
}

// uploadPhotos uploads with at most Concurrency uploads in flight. The
// returned URLs follow submission order; failed uploads leave no entry.
func (s *ReportService) uploadPhotos(ctx context.Context, callerID string, photos []acceptedPhoto) []string {
	if len(photos) == 0 {
		return []string{}
	}

	results := make([]string, len(photos))
	now := s.now()

	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)
	for i, p := range photos {
		g.Go(func() error {
			key := objectKey("items", callerID, now, i, p.Filename)
			logger := log.With().Str("user_id", callerID).Str("key", key).Str("filename", p.Filename).Logger()

			data, err := readUpload(p.Upload, s.opts.MaxPhotoBytes)
			if err != nil {
				logger.Warn().Err(err).Msg("Skipped unreadable photo")
				return nil
			}

			url, err := s.storage.Put(ctx, key, bytes.NewReader(data), int64(len(data)), p.contentType)
			if err != nil {
				logger.Warn().Err(err).Msg("Photo upload failed, skipping")
				return nil
			}
			results[i] = url
			return nil
		})
	}
	_ = g.Wait()

	urls := make([]string, 0, len(results))
	for _, u := range results {
		if u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}
