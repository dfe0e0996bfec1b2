package transcode

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"gallery-server/internal/config"
	"gallery-server/internal/infrastructure/metrics"
)

// FFmpeg derives video artifacts by shelling out to ffmpeg and ffprobe.
// Both binaries must be on PATH (or pointed at via config) in the runtime
// image; derivation callers treat failures as non-fatal.
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
	width       int
	offsetSec   int
	timeout     time.Duration
	workRoot    string
	log         zerolog.Logger
}

func NewFFmpeg(cfg *config.Config, log zerolog.Logger) *FFmpeg {
	return &FFmpeg{
		ffmpegPath:  cfg.FFmpegPath,
		ffprobePath: cfg.FFprobePath,
		width:       cfg.ThumbnailWidth,
		offsetSec:   cfg.ThumbnailOffsetSec,
		timeout:     cfg.TranscodeTimeout,
		workRoot:    filepath.Join(os.TempDir(), "gallery-transcode"),
		log:         log.With().Str("component", "transcode").Logger(),
	}
}

// AssertReady verifies the required binaries are reachable.
func (f *FFmpeg) AssertReady() error {
	for _, bin := range []string{f.ffmpegPath, f.ffprobePath} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("missing required binary %q in PATH: %w", bin, err)
		}
	}
	return os.MkdirAll(f.workRoot, 0o755)
}

// ExtractFrame grabs a single scaled JPEG frame a few seconds into the
// video. The seek offset is clamped by ffmpeg itself for clips shorter than
// the configured offset.
func (f *FFmpeg) ExtractFrame(ctx context.Context, videoPath string) ([]byte, error) {
	if videoPath == "" {
		return nil, fmt.Errorf("videoPath required")
	}
	if err := os.MkdirAll(f.workRoot, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir workRoot: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	outPath := filepath.Join(f.workRoot, fmt.Sprintf("frame_%d.jpg", time.Now().UnixNano()))
	defer os.Remove(outPath)

	args := []string{
		"-y",
		"-ss", strconv.Itoa(f.offsetSec),
		"-i", videoPath,
		"-frames:v", "1",
		"-vf", fmt.Sprintf("scale=%d:-2", f.width),
		"-q:v", "3",
		outPath,
	}

	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		metrics.RecordTranscode("extract_frame", "failure")
		return nil, fmt.Errorf("ffmpeg extract frame failed: %w; out=%s", err, string(out))
	}

	frame, err := os.ReadFile(outPath)
	if err != nil {
		metrics.RecordTranscode("extract_frame", "failure")
		return nil, fmt.Errorf("frame output missing: %w", err)
	}
	if len(frame) == 0 {
		metrics.RecordTranscode("extract_frame", "failure")
		return nil, fmt.Errorf("ffmpeg produced an empty frame")
	}

	metrics.RecordTranscode("extract_frame", "success")
	return frame, nil
}

// ProbeDimensions reads the pixel dimensions of the first video stream.
func (f *FFmpeg) ProbeDimensions(ctx context.Context, path string) (int, int, error) {
	if path == "" {
		return 0, 0, fmt.Errorf("path required")
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, f.ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "csv=s=x:p=0",
		path,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		metrics.RecordTranscode("probe", "failure")
		return 0, 0, fmt.Errorf("ffprobe failed: %w; out=%s", err, string(out))
	}

	w, h, err := parseProbeDimensions(string(out))
	if err != nil {
		metrics.RecordTranscode("probe", "failure")
		return 0, 0, err
	}
	metrics.RecordTranscode("probe", "success")
	return w, h, nil
}

// WriteTempFile spills bytes to the work directory so ffmpeg can read them.
// The returned cleanup removes the file and is safe to call more than once.
func (f *FFmpeg) WriteTempFile(data []byte, suffix string) (string, func(), error) {
	if err := os.MkdirAll(f.workRoot, 0o755); err != nil {
		return "", func() {}, fmt.Errorf("mkdir workRoot: %w", err)
	}
	h := sha256.Sum256(data)
	base := hex.EncodeToString(h[:])[:16]
	if suffix != "" && !strings.HasPrefix(suffix, ".") {
		suffix = "." + suffix
	}
	path := filepath.Join(f.workRoot, base+suffix)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", func() {}, fmt.Errorf("write temp file: %w", err)
	}
	cleanup := func() { _ = os.Remove(path) }
	return path, cleanup, nil
}

// parseProbeDimensions parses ffprobe csv output like "1920x1080". Some
// containers emit a trailing separator or repeated lines; only the first
// line counts.
func parseProbeDimensions(out string) (int, int, error) {
	line := strings.TrimSpace(out)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	line = strings.TrimSuffix(line, "x")

	parts := strings.Split(line, "x")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("unexpected ffprobe output %q", out)
	}
	w, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("unexpected ffprobe width %q", parts[0])
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("unexpected ffprobe height %q", parts[1])
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("non-positive dimensions %dx%d", w, h)
	}
	return w, h, nil
}
