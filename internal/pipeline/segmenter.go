package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// VideoProbe is the subset of ffprobe's output the pipeline needs.
type VideoProbe struct {
	Duration float64
	HasAudio bool
}

// Segment is one scene/clip boundary discovered by segmentation, before it
// becomes a storage.Clip row.
type Segment struct {
	Start         float64
	End           float64
	ThumbnailPath string
}

// Segmenter splits a video into scene segments and extracts its audio
// track. It is an interface so tests can supply a fake rather than shelling
// out to ffmpeg/ffprobe.
type Segmenter interface {
	Probe(ctx context.Context, videoPath string) (VideoProbe, error)
	Segment(ctx context.Context, videoPath, thumbnailDir string) ([]Segment, error)
	ExtractAudio(ctx context.Context, videoPath string) ([]byte, error)
}

// FFmpegSegmenter shells out to ffprobe/ffmpeg, the same external-process
// boundary djryanj-media-viewer's transcoder uses: a context-bound command,
// captured stderr for diagnostics, and atomic output via a temp-file rename.
type FFmpegSegmenter struct {
	// FixedSegmentSeconds is the grid spacing used when scene detection
	// yields fewer than two cuts (static shots, slideshows, short clips).
	FixedSegmentSeconds float64
	// SceneThreshold is the ffmpeg scdet filter's scene-change sensitivity
	// (0..100, higher = less sensitive).
	SceneThreshold float64
}

// NewFFmpegSegmenter returns a segmenter with the spec's default fixed-grid
// fallback spacing and a moderate scene-change threshold.
func NewFFmpegSegmenter() *FFmpegSegmenter {
	return &FFmpegSegmenter{FixedSegmentSeconds: 30, SceneThreshold: 12}
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
}

type ffprobeStream struct {
	CodecType string `json:"codec_type"`
}

type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

func (s *FFmpegSegmenter) Probe(ctx context.Context, videoPath string) (VideoProbe, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		videoPath,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return VideoProbe{}, fmt.Errorf("ffprobe: %w - %s", err, stderr.String())
	}

	var out ffprobeOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return VideoProbe{}, fmt.Errorf("ffprobe: parse output: %w", err)
	}

	duration, _ := strconv.ParseFloat(out.Format.Duration, 64)
	hasAudio := false
	for _, stream := range out.Streams {
		if stream.CodecType == "audio" {
			hasAudio = true
			break
		}
	}
	return VideoProbe{Duration: duration, HasAudio: hasAudio}, nil
}

// Segment detects scene cuts via ffmpeg's scdet filter and falls back to a
// fixed grid when fewer than two cuts are found, then extracts a thumbnail
// for each resulting segment.
func (s *FFmpegSegmenter) Segment(ctx context.Context, videoPath, thumbnailDir string) ([]Segment, error) {
	probe, err := s.Probe(ctx, videoPath)
	if err != nil {
		return nil, err
	}
	if probe.Duration <= 0 {
		return nil, fmt.Errorf("segment: video %s reports zero duration", videoPath)
	}

	cuts, err := s.detectSceneCuts(ctx, videoPath)
	if err != nil {
		// Scene detection failing (corrupt stream, unsupported codec) is
		// not fatal; fall back to the fixed grid below.
		cuts = nil
	}

	var boundaries []float64
	if len(cuts) >= 2 {
		boundaries = cuts
	} else {
		boundaries = fixedGrid(probe.Duration, s.FixedSegmentSeconds)
	}

	segments := make([]Segment, 0, len(boundaries)-1)
	for i := 0; i < len(boundaries)-1; i++ {
		start, end := boundaries[i], boundaries[i+1]
		thumbPath := filepath.Join(thumbnailDir, fmt.Sprintf("%d.jpg", i))
		if err := s.extractThumbnail(ctx, videoPath, (start+end)/2, thumbPath); err != nil {
			return nil, fmt.Errorf("segment: thumbnail for [%.2f,%.2f]: %w", start, end, err)
		}
		segments = append(segments, Segment{Start: start, End: end, ThumbnailPath: thumbPath})
	}
	return segments, nil
}

func fixedGrid(duration, step float64) []float64 {
	if step <= 0 {
		step = 30
	}
	var bounds []float64
	for t := 0.0; t < duration; t += step {
		bounds = append(bounds, t)
	}
	bounds = append(bounds, duration)
	return bounds
}

// detectSceneCuts runs ffmpeg's scdet filter with no output file (format
// null) and parses scene-change timestamps out of stderr, where scdet
// reports them.
func (s *FFmpegSegmenter) detectSceneCuts(ctx context.Context, videoPath string) ([]float64, error) {
	filter := fmt.Sprintf("scdet=threshold=%g", s.SceneThreshold)
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", videoPath,
		"-filter:v", filter,
		"-f", "null", "-",
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("ffmpeg scdet: %w - %s", err, stderr.String())
	}

	var cuts []float64
	for _, line := range strings.Split(stderr.String(), "\n") {
		idx := strings.Index(line, "lavfi.scd.time:")
		if idx == -1 {
			continue
		}
		field := line[idx+len("lavfi.scd.time:"):]
		field = strings.TrimSpace(strings.SplitN(field, " ", 2)[0])
		if t, err := strconv.ParseFloat(field, 64); err == nil {
			cuts = append(cuts, t)
		}
	}
	if len(cuts) == 0 {
		return nil, nil
	}
	return append([]float64{0}, cuts...), nil
}

func (s *FFmpegSegmenter) extractThumbnail(ctx context.Context, videoPath string, atSeconds float64, outPath string) error {
	tmpPath := outPath + ".tmp"
	defer os.Remove(tmpPath)

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y",
		"-ss", fmt.Sprintf("%.3f", atSeconds),
		"-i", videoPath,
		"-vframes", "1",
		"-q:v", "2",
		tmpPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg thumbnail: %w - %s", err, stderr.String())
	}
	return os.Rename(tmpPath, outPath)
}

// ExtractAudio decodes the video's audio track to a WAV buffer suitable for
// an STTProvider. A video with no audio stream makes ffmpeg fail, and that
// failure is returned as a wrapped error; the speech-to-text stage skips
// videos whose probe reports no audio before calling this.
func (s *FFmpegSegmenter) ExtractAudio(ctx context.Context, videoPath string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", videoPath,
		"-vn",
		"-f", "wav",
		"-ar", "16000",
		"-ac", "1",
		"pipe:1",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("ffmpeg audio extract: %w - %s", err, stderr.String())
	}
	return stdout.Bytes(), nil
}
