package thumbnail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"time"
)

// FrameGrabber extracts a single JPEG frame from a video.
type FrameGrabber interface {
	Grab(ctx context.Context, videoURL string) ([]byte, error)
}

// FFmpegGrabber grabs frames with the ffprobe and ffmpeg executables.
type FFmpegGrabber struct {
	// FFprobePath and FFmpegPath locate the executables.
	// Bare names are looked up in PATH.
	FFprobePath string
	FFmpegPath  string

	// MaxWidth and MaxHeight bound the output frame.
	MaxWidth  int
	MaxHeight int

	// Quality is the mjpeg qscale, 2 (best) to 31 (worst).
	Quality int
}

// NewFFmpegGrabber returns a grabber using ffprobe and ffmpeg from PATH.
func NewFFmpegGrabber() *FFmpegGrabber {
	return &FFmpegGrabber{
		FFprobePath: "ffprobe",
		FFmpegPath:  "ffmpeg",
		MaxWidth:    DefaultMaxWidth,
		MaxHeight:   DefaultMaxHeight,
		Quality:     10,
	}
}

// protocolWhitelist restricts what the input URL may make ffmpeg open.
const protocolWhitelist = "http,https,tcp,tls,crypto"

// Grab implements FrameGrabber.
func (g *FFmpegGrabber) Grab(ctx context.Context, videoURL string) ([]byte, error) {
	info, err := g.probe(ctx, videoURL)
	if err != nil {
		return nil, err
	}

	w, h := FitWithin(info.width, info.height, g.MaxWidth, g.MaxHeight)
	seek := SeekOffset(info.duration)

	//nolint:gosec // arguments are passed without a shell
	cmd := exec.CommandContext(ctx, g.FFmpegPath,
		"-v", "error",
		"-protocol_whitelist", protocolWhitelist,
		"-ss", strconv.FormatFloat(seek.Seconds(), 'f', 3, 64),
		"-i", videoURL,
		"-frames:v", "1",
		"-vf", fmt.Sprintf("scale=%d:%d", w, h),
		"-q:v", strconv.Itoa(g.Quality),
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"pipe:1",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}
	if stdout.Len() == 0 {
		return nil, ErrEmptyFrame
	}
	return stdout.Bytes(), nil
}

// videoInfo is the subset of ffprobe output the grabber needs.
type videoInfo struct {
	width    int
	height   int
	duration time.Duration
}

type probeOutput struct {
	Streams []struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func (g *FFmpegGrabber) probe(ctx context.Context, videoURL string) (videoInfo, error) {
	//nolint:gosec // arguments are passed without a shell
	cmd := exec.CommandContext(ctx, g.FFprobePath,
		"-v", "error",
		"-protocol_whitelist", protocolWhitelist,
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height:format=duration",
		"-of", "json",
		videoURL,
	)
	out, err := cmd.Output()
	if err != nil {
		return videoInfo{}, fmt.Errorf("ffprobe failed: %w", err)
	}
	return parseProbeOutput(out)
}

// parseProbeOutput decodes ffprobe's JSON output.
func parseProbeOutput(data []byte) (videoInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return videoInfo{}, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	if len(out.Streams) == 0 {
		return videoInfo{}, ErrNoVideoStream
	}

	info := videoInfo{
		width:  out.Streams[0].Width,
		height: out.Streams[0].Height,
	}
	if secs, err := strconv.ParseFloat(out.Format.Duration, 64); err == nil && secs > 0 {
		info.duration = time.Duration(secs * float64(time.Second))
	}
	return info, nil
}
