package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"lost-found-backend/internal/services"

	"github.com/rs/zerolog"
)

// maxMultipartMemory is how much of a multipart body is buffered in memory
// before file parts spill to disk
const maxMultipartMemory = 8 << 20

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// respondServiceError maps a service error to a status code. Validation and
// conflict messages reach the client verbatim; storage and persistence
// failures are logged in full and answered with a generic message.
func respondServiceError(w http.ResponseWriter, err error, logEvent *zerolog.Event, msg string) {
	var (
		validationErr  *services.ValidationError
		storageErr     *services.StorageError
		persistenceErr *services.PersistenceError
	)

	switch {
	case errors.As(err, &validationErr):
		respondError(w, validationErr.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrAuthRequired), errors.Is(err, services.ErrInvalidCredentials):
		respondError(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, services.ErrForbidden):
		respondError(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, services.ErrNotFound):
		respondError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, services.ErrAlreadyClaimed), errors.Is(err, services.ErrConflict):
		respondError(w, err.Error(), http.StatusConflict)
	case errors.As(err, &storageErr):
		logEvent.Err(err).Msg(msg)
		respondError(w, "Failed to store uploaded files", http.StatusInternalServerError)
	case errors.As(err, &persistenceErr):
		logEvent.Err(err).Msg(msg)
		respondError(w, "Server error", http.StatusInternalServerError)
	default:
		logEvent.Err(err).Msg(msg)
		respondError(w, "Server error", http.StatusInternalServerError)
	}
}

// parseMultipart parses a multipart form body up to maxBytes
func parseMultipart(w http.ResponseWriter, r *http.Request, maxBytes int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	return r.ParseMultipartForm(maxMultipartMemory)
}

// formUploads wraps the file parts of field as pipeline uploads, in submission order
func formUploads(r *http.Request, field string) []services.Upload {
	if r.MultipartForm == nil {
		return nil
	}
	headers := r.MultipartForm.File[field]
	uploads := make([]services.Upload, 0, len(headers))
	for _, fh := range headers {
		uploads = append(uploads, toUpload(fh))
	}
	return uploads
}

func toUpload(fh *multipart.FileHeader) services.Upload {
	return services.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// pagination reads limit/offset query parameters, ignoring malformed values
func pagination(r *http.Request) (limit, offset int) {
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil {
			limit = parsedLimit
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if parsedOffset, err := strconv.Atoi(offsetStr); err == nil {
			offset = parsedOffset
		}
	}
	return limit, offset
}
