package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hkakademi/media/internal/model"
	"github.com/hkakademi/media/internal/repository"
	"github.com/hkakademi/media/internal/response"
	"github.com/hkakademi/media/internal/service"
	"github.com/hkakademi/media/internal/validation"
)

// maxUploadMemory bounds the multipart parse buffer; larger parts spill to
// temporary files.
const maxUploadMemory = 32 << 20

type mediaHandler struct {
	mediaService *service.MediaService
}

func NewMediaHandler(mediaService *service.MediaService) *mediaHandler {
	return &mediaHandler{mediaService: mediaService}
}

// Upload handles POST /api/upload with a multipart form:
// file, entity_type, entity_id, media_type, crop_x/y/width/height, generate_avif.
func (h *mediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		response.BadRequest(w, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, validation.MaxVideoBytes+1))
	if err != nil {
		response.InternalError(w, "failed to read file")
		return
	}

	entityID, err := strconv.ParseInt(r.FormValue("entity_id"), 10, 64)
	if err != nil || entityID <= 0 {
		response.BadRequest(w, "entity_id must be a positive integer")
		return
	}

	input := service.UploadInput{
		Data:         data,
		OriginalName: header.Filename,
		EntityType:   model.EntityType(r.FormValue("entity_type")),
		EntityID:     entityID,
		MediaType:    model.MediaType(r.FormValue("media_type")),
		Crop:         parseCrop(r),
		GenerateAVIF: r.FormValue("generate_avif") == "true",
	}

	media, err := h.mediaService.Upload(r.Context(), input)
	if err != nil {
		h.writeUploadError(w, err)
		return
	}

	response.Data(w, http.StatusCreated, media)
}

// List handles GET /api/media?entity_type=&entity_id=.
func (h *mediaHandler) List(w http.ResponseWriter, r *http.Request) {
	entityID, err := strconv.ParseInt(r.URL.Query().Get("entity_id"), 10, 64)
	if err != nil || entityID <= 0 {
		response.BadRequest(w, "entity_id must be a positive integer")
		return
	}

	items, err := h.mediaService.ListByEntity(r.Context(), model.EntityType(r.URL.Query().Get("entity_type")), entityID)
	if err != nil {
		if errors.Is(err, service.ErrInvalidEntityType) {
			response.BadRequest(w, err.Error())
			return
		}
		slog.Error("failed to list media", "error", err)
		response.InternalError(w, "failed to list media")
		return
	}
	if items == nil {
		items = []*model.Media{}
	}

	response.Data(w, http.StatusOK, items)
}

// Delete handles DELETE /api/media with a {"id": n} body.
func (h *mediaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID int64 `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ID <= 0 {
		response.BadRequest(w, "id must be a positive integer")
		return
	}

	err := h.mediaService.Delete(r.Context(), body.ID)
	if err != nil {
		if errors.Is(err, repository.ErrMediaNotFound) {
			response.NotFound(w, "media not found")
			return
		}
		slog.Error("failed to delete media", "error", err, "id", body.ID)
		response.InternalError(w, "failed to delete media")
		return
	}

	response.Success(w)
}

// Reorder handles PUT /api/media with an {"items": [{id, display_order}]} body.
func (h *mediaHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Items []service.ReorderItem `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Items) == 0 {
		response.BadRequest(w, "items is required")
		return
	}

	if err := h.mediaService.Reorder(r.Context(), body.Items); err != nil {
		if errors.Is(err, repository.ErrMediaNotFound) {
			response.NotFound(w, "media not found")
			return
		}
		slog.Error("failed to reorder media", "error", err)
		response.InternalError(w, "failed to reorder media")
		return
	}

	response.Success(w)
}

func (h *mediaHandler) writeUploadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidEntityType),
		errors.Is(err, service.ErrInvalidMediaType),
		errors.Is(err, service.ErrMediaLimitReached),
		errors.Is(err, validation.ErrUnsupportedType),
		errors.Is(err, validation.ErrFileTooLarge):
		response.BadRequest(w, err.Error())
	default:
		slog.Error("upload failed", "error", err)
		response.InternalError(w, "upload failed")
	}
}

func parseCrop(r *http.Request) model.Crop {
	atoi := func(key string) int {
		n, _ := strconv.Atoi(r.FormValue(key))
		return n
	}
	return model.Crop{
		X:      atoi("crop_x"),
		Y:      atoi("crop_y"),
		Width:  atoi("crop_width"),
		Height: atoi("crop_height"),
	}
}
