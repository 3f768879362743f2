package mediaproc

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingRunner captures every invocation instead of executing binaries.
type recordingRunner struct {
	bins  []string
	calls [][]string
	out   []byte
	err   error
}

func (r *recordingRunner) run(ctx context.Context, bin string, args []string) ([]byte, error) {
	r.bins = append(r.bins, bin)
	r.calls = append(r.calls, args)
	return r.out, r.err
}

func newTestFFmpeg(rec *recordingRunner) *FFmpeg {
	f := NewFFmpeg("ffmpeg", "ffprobe", time.Minute)
	f.runner = rec.run
	return f
}

func TestTranscodeArgs(t *testing.T) {
	rec := &recordingRunner{}
	f := newTestFFmpeg(rec)

	err := f.Transcode(context.Background(), "in.mov", "out.mp4", TranscodeOptions{
		CRF:       23,
		Preset:    "medium",
		MaxWidth:  1280,
		MaxHeight: 720,
	})
	require.NoError(t, err)
	require.Len(t, rec.calls, 1)

	args := strings.Join(rec.calls[0], " ")
	assert.Equal(t, "ffmpeg", rec.bins[0])
	assert.Contains(t, args, "-i in.mov")
	assert.Contains(t, args, "-c:v libx264")
	assert.Contains(t, args, "-preset medium")
	assert.Contains(t, args, "-crf 23")
	assert.Contains(t, args, "-vf scale=w=1280:h=720:force_original_aspect_ratio=decrease:force_divisible_by=2")
	assert.Contains(t, args, "-c:a aac")
	assert.Contains(t, args, "-b:a 128k")
	assert.Contains(t, args, "-movflags +faststart")
	assert.Equal(t, "out.mp4", rec.calls[0][len(rec.calls[0])-1])
}

func TestTranscodeScaleForcesEvenDimensions(t *testing.T) {
	// Portrait phone footage (1080x1920) fits 1280x720 at 405x720; without
	// an even-dimension constraint libx264/yuv420p rejects the odd width.
	rec := &recordingRunner{}
	f := newTestFFmpeg(rec)

	err := f.Transcode(context.Background(), "portrait.mp4", "out.mp4", TranscodeOptions{
		CRF:       25,
		Preset:    "medium",
		MaxWidth:  1280,
		MaxHeight: 720,
	})
	require.NoError(t, err)

	i := slices.Index(rec.calls[0], "-vf")
	require.GreaterOrEqual(t, i, 0)
	assert.Contains(t, rec.calls[0][i+1], ":force_divisible_by=2")
}

func TestTranscodeSourceResolutionHasNoScale(t *testing.T) {
	rec := &recordingRunner{}
	f := newTestFFmpeg(rec)

	err := f.Transcode(context.Background(), "in.mp4", "out.mp4", TranscodeOptions{CRF: 23, Preset: "medium"})
	require.NoError(t, err)

	assert.NotContains(t, rec.calls[0], "-vf")
}

func TestExtractFrameOffset(t *testing.T) {
	rec := &recordingRunner{}
	f := newTestFFmpeg(rec)

	err := f.ExtractFrame(context.Background(), "in.mp4", "frame.png", 75*time.Second)
	require.NoError(t, err)

	args := strings.Join(rec.calls[0], " ")
	assert.Contains(t, args, "-ss 00:01:15")
	assert.Contains(t, args, "-frames:v 1")
}

func TestEncodeAVIFArgs(t *testing.T) {
	rec := &recordingRunner{}
	f := newTestFFmpeg(rec)

	err := f.EncodeAVIF(context.Background(), "frame.png", "frame.avif", 30)
	require.NoError(t, err)

	args := strings.Join(rec.calls[0], " ")
	assert.Contains(t, args, "-c:v libsvtav1")
	assert.Contains(t, args, "-crf 30")
}

func TestProbeDuration(t *testing.T) {
	rec := &recordingRunner{out: []byte("12.500000\n")}
	f := newTestFFmpeg(rec)

	duration, err := f.ProbeDuration(context.Background(), "in.mp4")
	require.NoError(t, err)
	assert.Equal(t, 12.5, duration)
	assert.Equal(t, "ffprobe", rec.bins[0])
}

func TestProbeDurationInvalidOutput(t *testing.T) {
	rec := &recordingRunner{out: []byte("N/A\n")}
	f := newTestFFmpeg(rec)

	_, err := f.ProbeDuration(context.Background(), "in.mp4")
	assert.ErrorContains(t, err, "invalid ffprobe duration")
}

func TestRunAppliesDeadline(t *testing.T) {
	f := NewFFmpeg("ffmpeg", "ffprobe", time.Minute)
	f.runner = func(ctx context.Context, bin string, args []string) ([]byte, error) {
		deadline, ok := ctx.Deadline()
		assert.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
		return nil, nil
	}

	_, err := f.run(context.Background(), "ffmpeg", nil)
	require.NoError(t, err)
}

func TestRunPropagatesFailure(t *testing.T) {
	rec := &recordingRunner{err: errors.New("ffmpeg failed: exit status 1: No such file")}
	f := newTestFFmpeg(rec)

	err := f.Transcode(context.Background(), "in.mp4", "out.mp4", TranscodeOptions{CRF: 23, Preset: "medium"})
	assert.ErrorContains(t, err, "exit status 1")
}

func TestFormatOffset(t *testing.T) {
	assert.Equal(t, "00:00:01", formatOffset(time.Second))
	assert.Equal(t, "00:00:02", formatOffset(2500*time.Millisecond))
	assert.Equal(t, "01:01:05", formatOffset(3665*time.Second))
}
