package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/hkakademi/media/internal/model"
	"github.com/hkakademi/media/internal/repository"
	"github.com/hkakademi/media/internal/storage"
	"github.com/hkakademi/media/internal/validation"
)

var (
	ErrInvalidEntityType = errors.New("invalid entity type")
	ErrInvalidMediaType  = errors.New("invalid media type")
	ErrMediaLimitReached = errors.New("media limit reached")
)

// ImageGenerator derives and stores the image variant family.
type ImageGenerator interface {
	Process(ctx context.Context, src []byte, ref model.EntityRef, crop model.Crop, withAVIF bool) (model.VariantSet, error)
}

// VideoGenerator transcodes and stores video renditions and preview frames.
type VideoGenerator interface {
	Process(ctx context.Context, src []byte, ref model.EntityRef, originalName string) (model.VariantSet, error)
}

// MediaService orchestrates upload validation, variant generation, record
// persistence, and full lifecycle deletion.
type MediaService struct {
	mediaRepo repository.MediaRepository
	storage   storage.Storage
	images    ImageGenerator
	videos    VideoGenerator
}

func NewMediaService(mediaRepo repository.MediaRepository, store storage.Storage, images ImageGenerator, videos VideoGenerator) *MediaService {
	return &MediaService{
		mediaRepo: mediaRepo,
		storage:   store,
		images:    images,
		videos:    videos,
	}
}

// UploadInput carries one multipart upload through the pipeline.
type UploadInput struct {
	Data         []byte
	OriginalName string
	EntityType   model.EntityType
	EntityID     int64
	MediaType    model.MediaType // photo/cover hint; videos are always stored as video
	Crop         model.Crop
	GenerateAVIF bool
}

// Upload validates the input, generates variants through the matching
// pipeline, and persists the media record. A failed upload never leaves a
// record behind; objects already written by a failed attempt are unreferenced
// and swept by no one (accepted, documented gap).
func (s *MediaService) Upload(ctx context.Context, input UploadInput) (*model.Media, error) {
	if !input.EntityType.Valid() {
		return nil, ErrInvalidEntityType
	}

	mediaType := input.MediaType
	if mediaType == "" {
		mediaType = model.MediaPhoto
	}
	if !mediaType.Valid() {
		return nil, ErrInvalidMediaType
	}

	mime, kind, err := validation.SniffMediaType(input.Data)
	if err != nil {
		return nil, err
	}
	if err := validation.CheckSize(kind, int64(len(input.Data))); err != nil {
		return nil, err
	}

	// The hint only disambiguates photo vs cover for images; video files are
	// always classified as video.
	effectiveType := mediaType
	if kind == validation.KindVideo {
		effectiveType = model.MediaVideo
	}

	ref := model.EntityRef{Type: input.EntityType, ID: input.EntityID}

	// Cover is a singleton and skips the count ceiling.
	if effectiveType != model.MediaCover {
		count, err := s.mediaRepo.CountByEntity(ref, effectiveType)
		if err != nil {
			return nil, fmt.Errorf("failed to count existing media: %w", err)
		}
		limit := validation.CountLimit(kind)
		if count >= limit {
			return nil, fmt.Errorf("%w: max %d %ss per %s", ErrMediaLimitReached, limit, effectiveType, ref.Type)
		}
	}

	var variants model.VariantSet
	if kind == validation.KindVideo {
		variants, err = s.videos.Process(ctx, input.Data, ref, input.OriginalName)
	} else {
		variants, err = s.images.Process(ctx, input.Data, ref, input.Crop, input.GenerateAVIF)
	}
	if err != nil {
		return nil, err
	}
	if variants.Original == nil {
		return nil, errors.New("variant generation produced no primary asset")
	}

	// Replace any existing cover only after the new upload has fully
	// processed, so a generation failure cannot cost the entity its cover.
	if effectiveType == model.MediaCover {
		if err := s.replaceCover(ctx, ref); err != nil {
			return nil, err
		}
	}

	order, err := s.mediaRepo.NextDisplayOrder(ref, effectiveType)
	if err != nil {
		return nil, fmt.Errorf("failed to compute display order: %w", err)
	}

	media := &model.Media{
		EntityType:   input.EntityType,
		EntityID:     input.EntityID,
		MediaType:    effectiveType,
		URL:          variants.Original.URL,
		OriginalName: input.OriginalName,
		MimeType:     mime,
		FileSize:     variants.Original.Size,
		DisplayOrder: order,
		Variants:     variants,
		CreatedAt:    time.Now(),
	}
	if variants.Thumbnail != nil {
		media.ThumbnailURL = &variants.Thumbnail.URL
	}
	if variants.Original.Width > 0 && variants.Original.Height > 0 {
		w, h := variants.Original.Width, variants.Original.Height
		media.Width = &w
		media.Height = &h
	}

	created, err := s.mediaRepo.Create(media)
	if err != nil {
		return nil, fmt.Errorf("failed to create media record: %w", err)
	}

	slog.Info("media uploaded",
		"id", created.ID,
		"entity", ref.String(),
		"media_type", created.MediaType,
		"mime_type", created.MimeType,
		"variants", len(created.Variants.StorageKeys()),
	)

	return created, nil
}

// Delete removes a media record and every physical object it references.
// The database row goes first so a slow storage backend never blocks the
// user-visible deletion; object cleanup is best effort.
func (s *MediaService) Delete(ctx context.Context, id int64) error {
	media, err := s.mediaRepo.ByID(id)
	if err != nil {
		return err
	}
	return s.deleteMedia(ctx, media)
}

// ListByEntity returns every media record for an entity ordered by
// (media_type, display_order) ascending.
func (s *MediaService) ListByEntity(ctx context.Context, entityType model.EntityType, entityID int64) ([]*model.Media, error) {
	if !entityType.Valid() {
		return nil, ErrInvalidEntityType
	}
	return s.mediaRepo.ByEntity(model.EntityRef{Type: entityType, ID: entityID})
}

// ReorderItem is one display-order assignment.
type ReorderItem struct {
	ID           int64 `json:"id"`
	DisplayOrder int   `json:"display_order"`
}

// Reorder applies each update in turn. There is no atomicity across the
// batch; display order is a presentation concern only.
func (s *MediaService) Reorder(ctx context.Context, items []ReorderItem) error {
	for _, item := range items {
		if err := s.mediaRepo.UpdateDisplayOrder(item.ID, item.DisplayOrder); err != nil {
			return fmt.Errorf("failed to update display order for media %d: %w", item.ID, err)
		}
	}
	return nil
}

// replaceCover removes the current cover record and its objects, if any.
func (s *MediaService) replaceCover(ctx context.Context, ref model.EntityRef) error {
	current, err := s.mediaRepo.CoverFor(ref)
	if err != nil {
		if errors.Is(err, repository.ErrMediaNotFound) {
			return nil
		}
		return fmt.Errorf("failed to look up existing cover: %w", err)
	}
	if err := s.deleteMedia(ctx, current); err != nil {
		return fmt.Errorf("failed to replace existing cover: %w", err)
	}
	return nil
}

func (s *MediaService) deleteMedia(ctx context.Context, media *model.Media) error {
	if err := s.mediaRepo.Delete(media.ID); err != nil {
		return fmt.Errorf("failed to delete media record: %w", err)
	}

	for _, key := range s.storageKeys(media) {
		if err := s.storage.Delete(ctx, key); err != nil {
			// Cleanup is best effort; the object may already be gone.
			slog.Warn("failed to delete media object", "error", err, "key", key, "media_id", media.ID)
		}
	}

	slog.Info("media deleted", "id", media.ID, "entity_type", media.EntityType, "entity_id", media.EntityID)
	return nil
}

// storageKeys derives every physical object a record references: the primary
// URL, the thumbnail URL, and the variant tree, de-duplicated.
func (s *MediaService) storageKeys(media *model.Media) []string {
	seen := make(map[string]bool)
	var keys []string
	add := func(key string) {
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		keys = append(keys, key)
	}

	add(s.keyFromURL(media.URL))
	if media.ThumbnailURL != nil {
		add(s.keyFromURL(*media.ThumbnailURL))
	}
	for _, key := range media.Variants.StorageKeys() {
		add(key)
	}
	return keys
}

// keyFromURL recovers a storage key from a public address by stripping the
// active backend's base URL. Bare-path stripping would mangle path-style S3
// URLs, whose path starts with the bucket name. Records written under an
// older base URL fall back to the URL path.
func (s *MediaService) keyFromURL(raw string) string {
	if raw == "" {
		return ""
	}
	if rest, ok := strings.CutPrefix(raw, s.storage.PublicURL("")); ok {
		return rest
	}

	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return ""
	}
	return strings.TrimPrefix(parsed.Path, "/")
}
