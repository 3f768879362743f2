package mediaproc

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
	_ "golang.org/x/image/webp" // WebP decode support for uploaded sources

	"github.com/hkakademi/media/internal/model"
	"github.com/hkakademi/media/internal/storage"
)

// Variant bounds and encoder qualities are deliberate constants, not
// configuration: the site serves from them and the CDN caches forever.
const (
	largeBound  = 1920
	mediumBound = 800
	thumbBound  = 400
	posterBound = 1200

	qualityLarge  = 85
	qualityMedium = 82
	qualityThumb  = 80
	qualityPoster = 85

	// libsvtav1 CRF roughly matching a "quality 75" lossy target.
	avifCRF = 30
)

// ImageProcessor derives the WebP variant family (and optional AVIF) from an
// uploaded image and writes every output through the storage adapter.
type ImageProcessor struct {
	storage storage.Storage
	ffmpeg  *FFmpeg
}

func NewImageProcessor(store storage.Storage, ffmpeg *FFmpeg) *ImageProcessor {
	return &ImageProcessor{
		storage: store,
		ffmpeg:  ffmpeg,
	}
}

// Process decodes src, applies the optional crop against the original pixel
// grid, derives large/medium/thumbnail WebP variants (fit-inside, never
// upscaled) and uploads them under the entity's namespace. A decode or upload
// failure is fatal to the whole attempt.
func (p *ImageProcessor) Process(ctx context.Context, src []byte, ref model.EntityRef, crop model.Crop, withAVIF bool) (model.VariantSet, error) {
	img, err := imaging.Decode(bytes.NewReader(src), imaging.AutoOrientation(true))
	if err != nil {
		return model.VariantSet{}, fmt.Errorf("failed to decode image: %w", err)
	}

	img, err = applyCrop(img, crop)
	if err != nil {
		return model.VariantSet{}, err
	}

	uid := uuid.NewString()[:12]

	large, err := p.deriveWebP(ctx, img, ref, uid, "large", largeBound, qualityLarge)
	if err != nil {
		return model.VariantSet{}, err
	}
	medium, err := p.deriveWebP(ctx, img, ref, uid, "medium", mediumBound, qualityMedium)
	if err != nil {
		return model.VariantSet{}, err
	}
	thumb, err := p.deriveWebP(ctx, img, ref, uid, "thumb", thumbBound, qualityThumb)
	if err != nil {
		return model.VariantSet{}, err
	}

	set := model.VariantSet{
		Kind:      "image",
		Original:  large,
		Large:     large,
		Medium:    medium,
		Thumbnail: thumb,
		Formats:   map[string]model.Asset{"webp": *large},
	}

	if withAVIF {
		avif, err := p.deriveAVIF(ctx, img, ref, uid)
		if err != nil {
			return model.VariantSet{}, err
		}
		set.Formats["avif"] = *avif
	}

	return set, nil
}

// applyCrop extracts the requested sub-region. Coordinates are pixel-absolute
// against the decoded original; an empty rectangle means no crop.
func applyCrop(img image.Image, crop model.Crop) (image.Image, error) {
	if crop.Empty() {
		return img, nil
	}

	rect := image.Rect(crop.X, crop.Y, crop.X+crop.Width, crop.Y+crop.Height)
	rect = rect.Intersect(img.Bounds())
	if rect.Empty() {
		return nil, fmt.Errorf("crop rectangle %+v is outside the image bounds %v", crop, img.Bounds())
	}

	return imaging.Crop(img, rect), nil
}

func (p *ImageProcessor) deriveWebP(ctx context.Context, img image.Image, ref model.EntityRef, uid, variant string, bound int, quality float32) (*model.Asset, error) {
	resized := fitInside(img, bound)

	data, err := encodeWebP(resized, quality)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s variant: %w", variant, err)
	}

	key := storage.EntityPath(string(ref.Type), ref.ID, fmt.Sprintf("%s_%s.webp", uid, variant))
	res, err := p.storage.Put(ctx, key, data, "image/webp")
	if err != nil {
		return nil, fmt.Errorf("failed to store %s variant: %w", variant, err)
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

// deriveAVIF re-encodes the large-bounded image as AVIF through ffmpeg,
// which needs file-based input.
func (p *ImageProcessor) deriveAVIF(ctx context.Context, img image.Image, ref model.EntityRef, uid string) (*model.Asset, error) {
	scratch, err := os.MkdirTemp("", "hk-avif-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(scratch)

	resized := fitInside(img, largeBound)

	pngPath := filepath.Join(scratch, "frame.png")
	if err := imaging.Save(resized, pngPath); err != nil {
		return nil, fmt.Errorf("failed to write scratch png: %w", err)
	}

	avifPath := filepath.Join(scratch, "frame.avif")
	if err := p.ffmpeg.EncodeAVIF(ctx, pngPath, avifPath, avifCRF); err != nil {
		return nil, fmt.Errorf("failed to encode avif: %w", err)
	}

	data, err := os.ReadFile(avifPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read avif output: %w", err)
	}

	key := storage.EntityPath(string(ref.Type), ref.ID, uid+"_large.avif")
	res, err := p.storage.Put(ctx, key, data, "image/avif")
	if err != nil {
		return nil, fmt.Errorf("failed to store avif variant: %w", err)
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

// fitInside bounds the longest edge, preserving aspect ratio and never
// upscaling a smaller source.
func fitInside(img image.Image, bound int) image.Image {
	b := img.Bounds()
	if b.Dx() <= bound && b.Dy() <= bound {
		return img
	}
	return imaging.Fit(img, bound, bound, imaging.Lanczos)
}

func encodeWebP(img image.Image, quality float32) ([]byte, error) {
	opts, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, quality)
	if err != nil {
		return nil, fmt.Errorf("failed to create webp encoder options: %w", err)
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, opts); err != nil {
		return nil, fmt.Errorf("failed to encode webp: %w", err)
	}
	return buf.Bytes(), nil
}
