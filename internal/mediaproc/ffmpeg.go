package mediaproc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// stderr is kept on failures for operator logs, but bounded so a chatty
// encoder cannot blow up error messages.
const maxStderrBytes = 2048

// FFmpeg invokes the ffmpeg/ffprobe binaries as scoped subprocesses: every
// invocation carries a deadline, captures stderr, and classifies a non-zero
// exit as a fatal transcode error.
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
	timeout     time.Duration

	// runner is swappable in tests.
	runner func(ctx context.Context, bin string, args []string) ([]byte, error)
}

func NewFFmpeg(ffmpegPath, ffprobePath string, timeout time.Duration) *FFmpeg {
	f := &FFmpeg{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		timeout:     timeout,
	}
	f.runner = f.execRun
	return f
}

func (f *FFmpeg) execRun(ctx context.Context, bin string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, bin, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s timed out after %s", bin, f.timeout)
		}
		return nil, fmt.Errorf("%s failed: %w: %s", bin, err, tail(stderr.Bytes()))
	}
	return stdout.Bytes(), nil
}

func (f *FFmpeg) run(ctx context.Context, bin string, args []string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	return f.runner(ctx, bin, args)
}

// TranscodeOptions control one H.264/AAC transcode pass.
type TranscodeOptions struct {
	CRF       int
	Preset    string
	MaxWidth  int // 0 = keep source resolution
	MaxHeight int
}

// Transcode re-encodes input to a streaming-friendly MP4 (H.264 video,
// 128kbps AAC audio, moov atom up front).
func (f *FFmpeg) Transcode(ctx context.Context, input, output string, opts TranscodeOptions) error {
	args := []string{
		"-y", "-i", input,
		"-c:v", "libx264",
		"-preset", opts.Preset,
		"-crf", strconv.Itoa(opts.CRF),
		"-pix_fmt", "yuv420p",
	}
	if opts.MaxWidth > 0 && opts.MaxHeight > 0 {
		// force_divisible_by keeps the scaled dimensions even; libx264 with
		// yuv420p rejects odd widths/heights (e.g. portrait 1080x1920 -> 405x720).
		scale := fmt.Sprintf("scale=w=%d:h=%d:force_original_aspect_ratio=decrease:force_divisible_by=2", opts.MaxWidth, opts.MaxHeight)
		args = append(args, "-vf", scale)
	}
	args = append(args,
		"-c:a", "aac",
		"-b:a", "128k",
		"-movflags", "+faststart",
		output,
	)

	_, err := f.run(ctx, f.ffmpegPath, args)
	return err
}

// ExtractFrame grabs a single frame at the given offset into output
// (format chosen by extension).
func (f *FFmpeg) ExtractFrame(ctx context.Context, input, output string, at time.Duration) error {
	args := []string{
		"-y",
		"-ss", formatOffset(at),
		"-i", input,
		"-frames:v", "1",
		output,
	}
	_, err := f.run(ctx, f.ffmpegPath, args)
	return err
}

// EncodeAVIF converts a still image (any ffmpeg-readable format) to AVIF.
func (f *FFmpeg) EncodeAVIF(ctx context.Context, input, output string, crf int) error {
	args := []string{
		"-y", "-i", input,
		"-c:v", "libsvtav1",
		"-crf", strconv.Itoa(crf),
		"-preset", "8",
		"-pix_fmt", "yuv420p",
		output,
	}
	_, err := f.run(ctx, f.ffmpegPath, args)
	return err
}

// ProbeDuration returns the container duration in seconds.
func (f *FFmpeg) ProbeDuration(ctx context.Context, input string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		input,
	}
	out, err := f.run(ctx, f.ffprobePath, args)
	if err != nil {
		return 0, err
	}

	raw := strings.TrimSpace(string(out))
	duration, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid ffprobe duration %q: %w", raw, err)
	}
	return duration, nil
}

func formatOffset(d time.Duration) string {
	total := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, total%3600/60, total%60)
}

func tail(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > maxStderrBytes {
		s = s[len(s)-maxStderrBytes:]
	}
	return s
}
