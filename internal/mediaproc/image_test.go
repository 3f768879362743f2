package mediaproc

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hkakademi/media/internal/model"
	"github.com/hkakademi/media/internal/storage"
)

// memStorage is an in-memory storage.Storage for pipeline tests.
type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	deleted []string
}

func newMemStorage() *memStorage {
	return &memStorage{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

func (m *memStorage) Put(ctx context.Context, key string, data []byte, contentType string) (storage.PutResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	m.types[key] = contentType
	return storage.PutResult{URL: "/uploads/" + key, Key: key, Size: int64(len(data))}, nil
}

func (m *memStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func (m *memStorage) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok, nil
}

func (m *memStorage) PublicURL(key string) string {
	return "/uploads/" + key
}

func pngSource(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

func TestImageProcessVariants(t *testing.T) {
	store := newMemStorage()
	p := NewImageProcessor(store, NewFFmpeg("ffmpeg", "ffprobe", 0))

	src := pngSource(t, imaging.New(2500, 1500, color.NRGBA{40, 90, 200, 255}))
	ref := model.EntityRef{Type: model.EntityTraining, ID: 9}

	set, err := p.Process(context.Background(), src, ref, model.Crop{}, false)
	require.NoError(t, err)

	assert.Equal(t, "image", set.Kind)
	require.NotNil(t, set.Large)
	require.NotNil(t, set.Medium)
	require.NotNil(t, set.Thumbnail)

	// Fit inside the bound, aspect ratio preserved.
	assert.Equal(t, 1920, set.Large.Width)
	assert.Equal(t, 1152, set.Large.Height)
	assert.Equal(t, 800, set.Medium.Width)
	assert.Equal(t, 480, set.Medium.Height)
	assert.Equal(t, 400, set.Thumbnail.Width)
	assert.Equal(t, 240, set.Thumbnail.Height)

	// Primary aliases the large variant.
	assert.Equal(t, set.Large, set.Original)
	assert.Equal(t, *set.Large, set.Formats["webp"])

	// Every asset landed in the entity namespace as WebP.
	require.Len(t, store.objects, 3)
	for key := range store.objects {
		assert.Contains(t, key, "trainings/9/")
		assert.Contains(t, key, ".webp")
		assert.Equal(t, "image/webp", store.types[key])
	}
	assert.Contains(t, set.Large.Key, "_large.webp")
	assert.Contains(t, set.Medium.Key, "_medium.webp")
	assert.Contains(t, set.Thumbnail.Key, "_thumb.webp")
}

func TestImageProcessNeverUpscales(t *testing.T) {
	store := newMemStorage()
	p := NewImageProcessor(store, NewFFmpeg("ffmpeg", "ffprobe", 0))

	src := pngSource(t, imaging.New(300, 200, color.NRGBA{10, 10, 10, 255}))
	set, err := p.Process(context.Background(), src, model.EntityRef{Type: model.EntityEvent, ID: 1}, model.Crop{}, false)
	require.NoError(t, err)

	assert.Equal(t, 300, set.Large.Width)
	assert.Equal(t, 200, set.Large.Height)
	assert.Equal(t, 300, set.Medium.Width)
	// Thumbnail bound (400) exceeds the source, so no resize either.
	assert.Equal(t, 300, set.Thumbnail.Width)
}

func TestImageProcessCrop(t *testing.T) {
	store := newMemStorage()
	p := NewImageProcessor(store, NewFFmpeg("ffmpeg", "ffprobe", 0))

	// White canvas with a red marker block; crop exactly the marker.
	canvas := imaging.New(100, 100, color.NRGBA{255, 255, 255, 255})
	marker := imaging.New(20, 20, color.NRGBA{255, 0, 0, 255})
	src := pngSource(t, imaging.Paste(canvas, marker, image.Pt(10, 10)))

	set, err := p.Process(context.Background(), src, model.EntityRef{Type: model.EntityInstructor, ID: 4},
		model.Crop{X: 10, Y: 10, Width: 20, Height: 20}, false)
	require.NoError(t, err)

	assert.Equal(t, 20, set.Large.Width)
	assert.Equal(t, 20, set.Large.Height)

	// Decode the stored large variant and confirm the crop kept the marker.
	img, _, err := image.Decode(bytes.NewReader(store.objects[set.Large.Key]))
	require.NoError(t, err)
	r, g, b, _ := img.At(10, 10).RGBA()
	assert.Greater(t, r>>8, uint32(200), "expected red channel, got rgb(%d,%d,%d)", r>>8, g>>8, b>>8)
	assert.Less(t, g>>8, uint32(80))
	assert.Less(t, b>>8, uint32(80))
}

func TestImageProcessRejectsGarbage(t *testing.T) {
	p := NewImageProcessor(newMemStorage(), NewFFmpeg("ffmpeg", "ffprobe", 0))

	_, err := p.Process(context.Background(), []byte("not an image"), model.EntityRef{Type: model.EntityTraining, ID: 1}, model.Crop{}, false)
	assert.ErrorContains(t, err, "failed to decode image")
}

func TestApplyCrop(t *testing.T) {
	img := imaging.New(100, 100, color.NRGBA{0, 0, 0, 255})

	t.Run("empty crop is identity", func(t *testing.T) {
		out, err := applyCrop(img, model.Crop{})
		require.NoError(t, err)
		assert.Equal(t, img.Bounds(), out.Bounds())
	})

	t.Run("overflow is clamped", func(t *testing.T) {
		out, err := applyCrop(img, model.Crop{X: 80, Y: 80, Width: 50, Height: 50})
		require.NoError(t, err)
		assert.Equal(t, 20, out.Bounds().Dx())
		assert.Equal(t, 20, out.Bounds().Dy())
	})

	t.Run("fully outside fails", func(t *testing.T) {
		_, err := applyCrop(img, model.Crop{X: 200, Y: 200, Width: 50, Height: 50})
		assert.Error(t, err)
	})
}

func TestFitInside(t *testing.T) {
	tests := []struct {
		w, h, bound  int
		wantW, wantH int
	}{
		{2500, 1500, 1920, 1920, 1152},
		{1500, 2500, 400, 240, 400},
		{300, 200, 400, 300, 200}, // never upscale
		{400, 400, 400, 400, 400}, // exact bound untouched
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%dx%d_in_%d", tt.w, tt.h, tt.bound), func(t *testing.T) {
			out := fitInside(imaging.New(tt.w, tt.h, color.NRGBA{}), tt.bound)
			assert.Equal(t, tt.wantW, out.Bounds().Dx())
			assert.Equal(t, tt.wantH, out.Bounds().Dy())
		})
	}
}
