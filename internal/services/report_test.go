package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"lost-found-backend/internal/models"
	"lost-found-backend/internal/repository"
	"lost-found-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func fileUpload(name, contentType string, data []byte) Upload {
	return Upload{
		Filename:    name,
		ContentType: contentType,
		Size:        int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

func imageUpload(name string) Upload {
	return fileUpload(name, "image/jpeg", []byte("jpeg-bytes-"+name))
}

func validReport() ReportInput {
	return ReportInput{
		Title:       "Black Wallet",
		Description: "Lost near library",
		Location:    "Library 2F",
		Date:        "2024-05-01",
		Type:        "lost",
	}
}

type reportFixture struct {
	svc     *ReportService
	items   *testutil.MemoryItems
	storage *testutil.MemoryStorage
}

func newReportFixture(opts ReportOptions) *reportFixture {
	items := testutil.NewMemoryItems()
	storage := testutil.NewMemoryStorage()
	return &reportFixture{
		svc:     NewReportService(items, storage, opts, nil),
		items:   items,
		storage: storage,
	}
}

func TestSubmitReportWithOnePhoto(t *testing.T) {
	f := newReportFixture(ReportOptions{})
	ctx := context.Background()

	itemID, err := f.svc.SubmitReport(ctx, "user-1", validReport(), []Upload{imageUpload("wallet.jpg")})
	require.NoError(t, err)
	require.NotEmpty(t, itemID)

	item, err := f.items.GetByID(ctx, itemID)
	require.NoError(t, err)
	assert.Equal(t, models.ItemStatusOpen, item.Status)
	assert.Equal(t, models.ItemTypeLost, item.Type)
	assert.Equal(t, "user-1", item.UserID)
	assert.Equal(t, "Black Wallet", item.Title)
	assert.Equal(t, "2024-05-01", item.DatePosted.Format("2006-01-02"))
	require.Len(t, item.Photos, 1)
	assert.True(t, strings.HasPrefix(item.Photos[0], testutil.BaseURL+"/items/user-1_"))
	assert.True(t, strings.HasSuffix(item.Photos[0], "_wallet.jpg"))
}

func TestSubmitReportWithoutPhotos(t *testing.T) {
	f := newReportFixture(ReportOptions{})

	itemID, err := f.svc.SubmitReport(context.Background(), "user-1", validReport(), nil)
	require.NoError(t, err)

	item, err := f.items.GetByID(context.Background(), itemID)
	require.NoError(t, err)
	assert.Empty(t, item.Photos)
	assert.Empty(t, f.storage.Keys())
}

func TestSubmitReportRequiresCaller(t *testing.T) {
	f := newReportFixture(ReportOptions{})

	_, err := f.svc.SubmitReport(context.Background(), "", validReport(), nil)
	assert.ErrorIs(t, err, ErrAuthRequired)
	assert.Equal(t, 0, f.items.Count())
}

func TestSubmitReportNamesFirstMissingField(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ReportInput)
		field  string
	}{
		{"title", func(in *ReportInput) { in.Title = "" }, "title"},
		{"description", func(in *ReportInput) { in.Description = "   " }, "description"},
		{"location", func(in *ReportInput) { in.Location = "" }, "location"},
		{"date", func(in *ReportInput) { in.Date = "" }, "date"},
		{"type", func(in *ReportInput) { in.Type = "" }, "type"},
		{"first of several", func(in *ReportInput) { in.Location = ""; in.Type = "" }, "location"},
		{"bad type", func(in *ReportInput) { in.Type = "stolen" }, "type"},
		{"bad date", func(in *ReportInput) { in.Date = "yesterday" }, "date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newReportFixture(ReportOptions{})
			in := validReport()
			tt.mutate(&in)

			_, err := f.svc.SubmitReport(context.Background(), "user-1", in, []Upload{imageUpload("a.jpg")})

			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.field, validationErr.Field)
			assert.Equal(t, 0, f.items.Count())
			assert.Empty(t, f.storage.Keys(), "nothing is uploaded for an invalid report")
		})
	}
}

func TestSubmitReportAcceptsFoundType(t *testing.T) {
	f := newReportFixture(ReportOptions{})
	in := validReport()
	in.Type = " Found "

	itemID, err := f.svc.SubmitReport(context.Background(), "user-1", in, nil)
	require.NoError(t, err)

	item, _ := f.items.GetByID(context.Background(), itemID)
	assert.Equal(t, models.ItemTypeFound, item.Type)
}

func TestSubmitReportPreservesPhotoOrder(t *testing.T) {
	for _, concurrency := range []int{1, 3} {
		t.Run(fmt.Sprintf("concurrency=%d", concurrency), func(t *testing.T) {
			f := newReportFixture(ReportOptions{Concurrency: concurrency})
			photos := []Upload{imageUpload("first.jpg"), imageUpload("second.jpg"), imageUpload("third.jpg")}

			itemID, err := f.svc.SubmitReport(context.Background(), "user-1", validReport(), photos)
			require.NoError(t, err)

			item, _ := f.items.GetByID(context.Background(), itemID)
			require.Len(t, item.Photos, 3)
			assert.True(t, strings.HasSuffix(item.Photos[0], "_first.jpg"))
			assert.True(t, strings.HasSuffix(item.Photos[1], "_second.jpg"))
			assert.True(t, strings.HasSuffix(item.Photos[2], "_third.jpg"))
		})
	}
}

func TestSubmitReportTruncatesExtraPhotos(t *testing.T) {
	f := newReportFixture(ReportOptions{})
	photos := []Upload{
		imageUpload("1.jpg"), imageUpload("2.jpg"), imageUpload("3.jpg"),
		imageUpload("4.jpg"), imageUpload("5.jpg"),
	}

	itemID, err := f.svc.SubmitReport(context.Background(), "user-1", validReport(), photos)
	require.NoError(t, err)

	item, _ := f.items.GetByID(context.Background(), itemID)
	require.Len(t, item.Photos, 3)
	assert.True(t, strings.HasSuffix(item.Photos[2], "_3.jpg"))
	assert.Len(t, f.storage.Keys(), 3, "extra photos are never uploaded")
}

func TestSubmitReportPhotoLimitCannotBeRaised(t *testing.T) {
	f := newReportFixture(ReportOptions{MaxPhotos: 5})
	photos := []Upload{
		imageUpload("1.jpg"), imageUpload("2.jpg"), imageUpload("3.jpg"),
		imageUpload("4.jpg"), imageUpload("5.jpg"),
	}

	itemID, err := f.svc.SubmitReport(context.Background(), "user-1", validReport(), photos)
	require.NoError(t, err)

	item, _ := f.items.GetByID(context.Background(), itemID)
	assert.Len(t, item.Photos, models.MaxItemPhotos)
	assert.Len(t, f.storage.Keys(), models.MaxItemPhotos)
}

func TestSubmitReportSkipsNonImages(t *testing.T) {
	f := newReportFixture(ReportOptions{})
	photos := []Upload{
		fileUpload("notes.pdf", "application/pdf", []byte("%PDF-1.4")),
		imageUpload("a.jpg"),
		fileUpload("script.sh", "", []byte("#!/bin/sh\necho hi\n")),
		fileUpload("sniffed.png", "application/octet-stream", pngHeader),
	}

	itemID, err := f.svc.SubmitReport(context.Background(), "user-1", validReport(), photos)
	require.NoError(t, err)

	item, _ := f.items.GetByID(context.Background(), itemID)
	require.Len(t, item.Photos, 2)
	assert.True(t, strings.HasSuffix(item.Photos[0], "_a.jpg"))
	assert.True(t, strings.HasSuffix(item.Photos[1], "_sniffed.png"))

	var pngKey string
	for _, k := range f.storage.Keys() {
		if strings.HasSuffix(k, "_sniffed.png") {
			pngKey = k
		}
	}
	assert.Equal(t, "image/png", f.storage.ContentType(pngKey))
}

func TestSubmitReportNonImagesDoNotCountTowardsLimit(t *testing.T) {
	f := newReportFixture(ReportOptions{})
	photos := []Upload{
		fileUpload("a.txt", "text/plain", []byte("a")),
		fileUpload("b.txt", "text/plain", []byte("b")),
		fileUpload("c.txt", "text/plain", []byte("c")),
		imageUpload("1.jpg"), imageUpload("2.jpg"), imageUpload("3.jpg"),
	}

	itemID, err := f.svc.SubmitReport(context.Background(), "user-1", validReport(), photos)
	require.NoError(t, err)

	item, _ := f.items.GetByID(context.Background(), itemID)
	assert.Len(t, item.Photos, 3)
}

func TestSubmitReportSkipsFailedUploads(t *testing.T) {
	f := newReportFixture(ReportOptions{})
	f.storage.FailOn = []string{"_broken.jpg"}
	photos := []Upload{imageUpload("ok1.jpg"), imageUpload("broken.jpg"), imageUpload("ok2.jpg")}

	itemID, err := f.svc.SubmitReport(context.Background(), "user-1", validReport(), photos)
	require.NoError(t, err)

	item, _ := f.items.GetByID(context.Background(), itemID)
	require.Len(t, item.Photos, 2)
	assert.True(t, strings.HasSuffix(item.Photos[0], "_ok1.jpg"))
	assert.True(t, strings.HasSuffix(item.Photos[1], "_ok2.jpg"))
}

func TestSubmitReportAllUploadsFailStillCreatesItem(t *testing.T) {
	f := newReportFixture(ReportOptions{})
	f.storage.FailAll = true

	itemID, err := f.svc.SubmitReport(context.Background(), "user-1", validReport(), []Upload{imageUpload("a.jpg")})
	require.NoError(t, err)

	item, _ := f.items.GetByID(context.Background(), itemID)
	assert.Empty(t, item.Photos)
}

func TestSubmitReportRequiredPhotos(t *testing.T) {
	t.Run("no images", func(t *testing.T) {
		f := newReportFixture(ReportOptions{RequirePhotos: true})
		_, err := f.svc.SubmitReport(context.Background(), "user-1", validReport(), nil)

		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "photos", validationErr.Field)
	})

	t.Run("all uploads fail", func(t *testing.T) {
		f := newReportFixture(ReportOptions{RequirePhotos: true})
		f.storage.FailAll = true
		_, err := f.svc.SubmitReport(context.Background(), "user-1", validReport(), []Upload{imageUpload("a.jpg")})

		var storageErr *StorageError
		require.ErrorAs(t, err, &storageErr)
		assert.Equal(t, 0, f.items.Count())
	})
}

func TestSubmitReportSkipsOversizedPhotos(t *testing.T) {
	f := newReportFixture(ReportOptions{MaxPhotoBytes: 8})
	photos := []Upload{
		fileUpload("small.jpg", "image/jpeg", []byte("tiny")),
		fileUpload("big.jpg", "image/jpeg", bytes.Repeat([]byte("x"), 64)),
	}

	itemID, err := f.svc.SubmitReport(context.Background(), "user-1", validReport(), photos)
	require.NoError(t, err)

	item, _ := f.items.GetByID(context.Background(), itemID)
	require.Len(t, item.Photos, 1)
	assert.True(t, strings.HasSuffix(item.Photos[0], "_small.jpg"))
}

func TestSubmitReportUnknownOwnerRequiresLogin(t *testing.T) {
	f := newReportFixture(ReportOptions{})
	f.items.CreateErr = fmt.Errorf("item owner user-1: %w", repository.ErrUnknownUser)

	_, err := f.svc.SubmitReport(context.Background(), "user-1", validReport(), nil)

	assert.ErrorIs(t, err, ErrAuthRequired)
	var persistenceErr *PersistenceError
	assert.False(t, errors.As(err, &persistenceErr))
}

func TestSubmitReportInsertFailureLeavesBlobs(t *testing.T) {
	f := newReportFixture(ReportOptions{})
	f.items.CreateErr = errors.New("connection reset")

	_, err := f.svc.SubmitReport(context.Background(), "user-1", validReport(), []Upload{imageUpload("a.jpg")})

	var persistenceErr *PersistenceError
	require.ErrorAs(t, err, &persistenceErr)
	assert.Len(t, f.storage.Keys(), 1, "uploaded blob is not deleted")
}
