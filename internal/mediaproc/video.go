package mediaproc

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/hkakademi/media/internal/model"
	"github.com/hkakademi/media/internal/storage"
)

const (
	crfOriginal     = 23
	crfMobile       = 25
	transcodePreset = "medium"

	mobileMaxWidth  = 1280
	mobileMaxHeight = 720
)

// VideoProcessor transcodes uploads to streaming-friendly MP4 renditions and
// extracts preview frames. ffmpeg works on files, so each call stages the
// input in a scratch directory that is removed on every exit path.
type VideoProcessor struct {
	storage storage.Storage
	ffmpeg  *FFmpeg
}

func NewVideoProcessor(store storage.Storage, ffmpeg *FFmpeg) *VideoProcessor {
	return &VideoProcessor{
		storage: store,
		ffmpeg:  ffmpeg,
	}
}

// Process produces the compressed original and the 720p mobile rendition
// (both fatal on failure — a raw upload is never passed off as processed),
// plus thumbnail and poster frames (non-fatal; a playable video without a
// preview image is still a success).
func (p *VideoProcessor) Process(ctx context.Context, src []byte, ref model.EntityRef, originalName string) (model.VariantSet, error) {
	scratch, err := os.MkdirTemp("", "hk-video-*")
	if err != nil {
		return model.VariantSet{}, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(scratch)

	ext := filepath.Ext(originalName)
	if ext == "" {
		ext = ".mp4"
	}
	input := filepath.Join(scratch, "input"+ext)
	if err := os.WriteFile(input, src, 0o600); err != nil {
		return model.VariantSet{}, fmt.Errorf("failed to stage video input: %w", err)
	}

	duration, err := p.ffmpeg.ProbeDuration(ctx, input)
	if err != nil {
		slog.Warn("video duration probe failed", "error", err, "entity", ref.String())
		duration = 0
	}

	uid := uuid.NewString()[:12]
	set := model.VariantSet{
		Kind:     "video",
		Duration: duration,
	}

	// Compressed original: source resolution, CRF 23.
	compressed := filepath.Join(scratch, "original.mp4")
	err = p.ffmpeg.Transcode(ctx, input, compressed, TranscodeOptions{
		CRF:    crfOriginal,
		Preset: transcodePreset,
	})
	if err != nil {
		return model.VariantSet{}, fmt.Errorf("failed to transcode video: %w", err)
	}

	original, err := p.uploadFile(ctx, compressed, ref, uid+"_original.mp4", "video/mp4")
	if err != nil {
		return model.VariantSet{}, err
	}
	set.Original = original

	// Mobile rendition: bounded to 1280x720, CRF 25.
	mobile := filepath.Join(scratch, "720p.mp4")
	err = p.ffmpeg.Transcode(ctx, input, mobile, TranscodeOptions{
		CRF:       crfMobile,
		Preset:    transcodePreset,
		MaxWidth:  mobileMaxWidth,
		MaxHeight: mobileMaxHeight,
	})
	if err != nil {
		return model.VariantSet{}, fmt.Errorf("failed to transcode mobile rendition: %w", err)
	}

	mobileAsset, err := p.uploadFile(ctx, mobile, ref, uid+"_720p.mp4", "video/mp4")
	if err != nil {
		return model.VariantSet{}, err
	}
	set.Renditions = append(set.Renditions, model.Rendition{
		Asset:      *mobileAsset,
		Resolution: "720p",
		Codec:      "h264",
	})

	// Preview frames come out of the transcoded file, so a decodable result
	// is already guaranteed by this point.
	thumb, err := p.extractStill(ctx, scratch, compressed, ref, uid+"_thumb.webp", time.Second, thumbBound, qualityThumb)
	if err != nil {
		slog.Warn("video thumbnail extraction failed", "error", err, "entity", ref.String())
	} else {
		set.Thumbnail = thumb
	}

	posterAt := time.Second
	if duration > 0 {
		posterAt = time.Duration(duration*0.25) * time.Second
	}
	poster, err := p.extractStill(ctx, scratch, compressed, ref, uid+"_poster.webp", posterAt, posterBound, qualityPoster)
	if err != nil {
		slog.Warn("video poster extraction failed", "error", err, "entity", ref.String())
	} else {
		set.Poster = poster
	}

	return set, nil
}

func (p *VideoProcessor) uploadFile(ctx context.Context, path string, ref model.EntityRef, filename, contentType string) (*model.Asset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}

	key := storage.EntityPath(string(ref.Type), ref.ID, filename)
	res, err := p.storage.Put(ctx, key, data, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to store %s: %w", filename, err)
	}

	return &model.Asset{URL: res.URL, Key: res.Key, Size: res.Size}, nil
}

// extractStill grabs one frame, bounds it, and uploads it as WebP.
func (p *VideoProcessor) extractStill(ctx context.Context, scratch, input string, ref model.EntityRef, filename string, at time.Duration, bound int, quality float32) (*model.Asset, error) {
	framePath := filepath.Join(scratch, fmt.Sprintf("frame_%d.png", at/time.Second))
	if err := p.ffmpeg.ExtractFrame(ctx, input, framePath, at); err != nil {
		return nil, err
	}

	frame, err := imaging.Open(framePath)
	if err != nil {
		return nil, fmt.Errorf("failed to decode extracted frame: %w", err)
	}

	resized := fitInside(frame, bound)
	data, err := encodeWebP(resized, quality)
	if err != nil {
		return nil, err
	}

	key := storage.EntityPath(string(ref.Type), ref.ID, filename)
	res, err := p.storage.Put(ctx, key, data, "image/webp")
	if err != nil {
		return nil, fmt.Errorf("failed to store %s: %w", filename, err)
	}

	bounds := resized.Bounds()
	return &model.Asset{
		URL:    res.URL,
		Key:    res.Key,
		Size:   res.Size,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}
