package handlers

import (
	"errors"
	"net/http"

	"lost-found-backend/internal/middleware"
	"lost-found-backend/internal/models"
	"lost-found-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// ItemHandler handles item-related HTTP requests
type ItemHandler struct {
	reportService *services.ReportService
	itemService   *services.ItemService
	maxBodyBytes  int64
}

// NewItemHandler creates a new item handler
func NewItemHandler(reportService *services.ReportService, itemService *services.ItemService, maxBodyBytes int64) *ItemHandler {
	return &ItemHandler{
		reportService: reportService,
		itemService:   itemService,
		maxBodyBytes:  maxBodyBytes,
	}
}

// SubmitReport handles POST /api/v1/items
func (h *ItemHandler) SubmitReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	if err := parseMultipart(w, r, h.maxBodyBytes); err != nil {
		respondFormError(w, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	input := services.ReportInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Location:    r.FormValue("location"),
		Date:        r.FormValue("date"),
		Type:        r.FormValue("type"),
	}
	photos := formUploads(r, "photos")

	itemID, err := h.reportService.SubmitReport(ctx, userID, input, photos)
	if err != nil {
		respondServiceError(w, err,
			log.Error().Str("user_id", userID).Int("photos", len(photos)),
			"Failed to submit report")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"itemId":  itemID,
	})
}

// GetItem handles GET /api/v1/items/{item_id}
func (h *ItemHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "item_id")

	item, err := h.itemService.GetItem(r.Context(), itemID)
	if err != nil {
		respondServiceError(w, err, log.Error().Str("item_id", itemID), "Failed to get item")
		return
	}

	respondJSON(w, http.StatusOK, item)
}

// ListRecent handles GET /api/v1/items/recent
func (h *ItemHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	filter := models.ItemFilter{
		Type:  models.ItemType(r.URL.Query().Get("type")),
		Query: r.URL.Query().Get("q"),
	}

	items, err := h.itemService.ListRecent(r.Context(), filter, limit, offset)
	if err != nil {
		respondServiceError(w, err, log.Error().Int("limit", limit).Int("offset", offset), "Failed to list items")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"items":   items,
	})
}

// CloseItem handles POST /api/v1/admin/items/{item_id}/close
func (h *ItemHandler) CloseItem(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetCaller(r.Context())
	itemID := chi.URLParam(r, "item_id")

	if err := h.itemService.CloseItem(r.Context(), caller, itemID); err != nil {
		respondServiceError(w, err, log.Error().Str("admin_id", caller.ID).Str("item_id", itemID), "Failed to close item")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// DeleteItem handles DELETE /api/v1/admin/items/{item_id}
func (h *ItemHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetCaller(r.Context())
	itemID := chi.URLParam(r, "item_id")

	if err := h.itemService.DeleteItem(r.Context(), caller, itemID); err != nil {
		respondServiceError(w, err, log.Error().Str("admin_id", caller.ID).Str("item_id", itemID), "Failed to delete item")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// respondFormError answers a multipart body that could not be parsed
func respondFormError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		respondError(w, "Request body too large", http.StatusRequestEntityTooLarge)
		return
	}
	respondError(w, "Invalid form data", http.StatusBadRequest)
}
