package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Minimal byte signatures, enough for content sniffing.
var (
	jpegBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}
	pngBytes  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n', 0, 0, 0, 13, 'I', 'H', 'D', 'R'}
	mp4Bytes  = []byte{0, 0, 0, 0x18, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm', 0, 0, 2, 0, 'i', 's', 'o', 'm'}
)

func TestSniffMediaType(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		mime string
		kind FileKind
	}{
		{"jpeg", jpegBytes, "image/jpeg", KindImage},
		{"png", pngBytes, "image/png", KindImage},
		{"mp4", mp4Bytes, "video/mp4", KindVideo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mime, kind, err := SniffMediaType(tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.mime, mime)
			assert.Equal(t, tt.kind, kind)
		})
	}
}

func TestSniffMediaTypeRejectsOthers(t *testing.T) {
	_, _, err := SniffMediaType([]byte("just some text, not media"))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	// PDF magic
	_, _, err = SniffMediaType([]byte("%PDF-1.4 ..."))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestCheckSize(t *testing.T) {
	assert.NoError(t, CheckSize(KindImage, MaxImageBytes))
	assert.ErrorIs(t, CheckSize(KindImage, MaxImageBytes+1), ErrFileTooLarge)

	assert.NoError(t, CheckSize(KindVideo, MaxVideoBytes))
	assert.ErrorIs(t, CheckSize(KindVideo, MaxVideoBytes+1), ErrFileTooLarge)

	// Video ceiling does not apply to images.
	assert.ErrorIs(t, CheckSize(KindImage, MaxVideoBytes), ErrFileTooLarge)
}

func TestCountLimit(t *testing.T) {
	assert.Equal(t, PhotoLimit, CountLimit(KindImage))
	assert.Equal(t, VideoLimit, CountLimit(KindVideo))
}
