// Package youtube implements the video/audio download feature on top of the
// yt-dlp command line tool. Audio downloads prefer a single m4a stream and
// video downloads prefer progressive mp4 up to 720p, so neither path needs
// ffmpeg on the host.
package youtube

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"daddygpt/internal/config"
	"daddygpt/internal/domain"
	"daddygpt/internal/feature"
)

const usage = "Usage:\n" +
	"/youtube <url> [audio|video]\n" +
	"Examples:\n" +
	"/youtube https://youtu.be/... audio\n" +
	"/youtube https://youtu.be/... video"

const (
	// Single-file formats that avoid a merge step.
	audioFormat = "bestaudio[ext=m4a]/bestaudio/best"
	videoFormat = "best[ext=mp4][height<=720]/best[height<=720]/best"
)

var unsafeFilename = regexp.MustCompile(`[\\/:*?"<>|]`)
var collapseSpace = regexp.MustCompile(`\s+`)

// Feature downloads media and uploads it back to the chat.
type Feature struct {
	cfg config.YouTubeConfig
}

// New verifies the yt-dlp binary is reachable and returns the feature.
func New(cfg config.YouTubeConfig) (*Feature, error) {
	if _, err := exec.LookPath(cfg.BinPath); err != nil {
		return nil, fmt.Errorf("yt-dlp not found at %q: %w", cfg.BinPath, err)
	}
	return &Feature{cfg: cfg}, nil
}

func (f *Feature) Descriptor() feature.Descriptor {
	return feature.Descriptor{
		Name:        "youtube",
		Scope:       domain.ScopeUser,
		Description: "YouTube video/audio downloader",
		Commands:    []string{"youtube", "yt"},
	}
}

// Handle downloads the requested URL into a per-request temp dir, enforces
// the upload size cap, and sends the result as audio or video.
func (f *Feature) Handle(ctx context.Context, req feature.Request, out feature.Responder) error {
	fields := strings.Fields(req.Args)
	if len(fields) == 0 {
		return out.Reply(ctx, usage)
	}

	url := fields[0]
	mode := f.cfg.DefaultMode
	if len(fields) > 1 {
		if m := strings.ToLower(fields[1]); m == "audio" || m == "video" {
			mode = m
		}
	}
	maxBytes := int64(f.cfg.MaxFileMB) * 1024 * 1024

	if err := os.MkdirAll(f.cfg.DownloadDir, 0o755); err != nil {
		return err
	}
	tmpdir, err := os.MkdirTemp(f.cfg.DownloadDir, "yt_")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmpdir)

	if err := out.Reply(ctx, fmt.Sprintf("Downloading (%s)…", mode)); err != nil {
		return err
	}
	_ = out.ChatAction(ctx, "upload_document")

	path, title, err := f.download(ctx, tmpdir, url, mode, maxBytes)
	if err != nil {
		log.Warn().Err(err).Str("url", url).Str("mode", mode).Msg("youtube download failed")
		return out.Reply(ctx, "Download error: "+err.Error())
	}

	info, err := os.Stat(path)
	if err != nil {
		return out.Reply(ctx, "Download failed (no output file produced).")
	}
	if info.Size() > maxBytes {
		return out.Reply(ctx, fmt.Sprintf(
			"File too large to send (%.1fMB). Limit is %dMB.",
			float64(info.Size())/1024/1024, f.cfg.MaxFileMB))
	}

	if mode == "audio" {
		return out.SendAudio(ctx, path, title)
	}
	return out.SendVideo(ctx, path, title)
}

// download runs yt-dlp and returns the produced file plus a display title.
func (f *Feature) download(ctx context.Context, tmpdir, url, mode string, maxBytes int64) (string, string, error) {
	format := audioFormat
	if mode == "video" {
		format = videoFormat
	}

	args := []string{
		"--no-playlist",
		"--quiet", "--no-warnings",
		"--retries", "3",
		"--socket-timeout", "20",
		"--max-filesize", strconv.FormatInt(maxBytes, 10),
		"-f", format,
		"-o", filepath.Join(tmpdir, "%(title).200s.%(ext)s"),
		url,
	}
	cmd := exec.CommandContext(ctx, f.cfg.BinPath, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		if len(detail) > 300 {
			detail = detail[:300]
		}
		return "", "", fmt.Errorf("yt-dlp: %s", detail)
	}

	path, err := largestFile(tmpdir)
	if err != nil {
		return "", "", err
	}
	base := filepath.Base(path)
	title := cleanTitle(strings.TrimSuffix(base, filepath.Ext(base)))
	return path, title, nil
}

// largestFile picks the biggest regular file in dir, which for a yt-dlp run
// is the finished media file rather than any leftover fragment.
func largestFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	var best string
	var bestSize int64 = -1
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.Size() > bestSize {
			best = filepath.Join(dir, e.Name())
			bestSize = info.Size()
		}
	}
	if best == "" {
		return "", fmt.Errorf("no output file produced")
	}
	return best, nil
}

func cleanTitle(name string) string {
	name = unsafeFilename.ReplaceAllString(name, "_")
	name = strings.TrimSpace(collapseSpace.ReplaceAllString(name, " "))
	if len(name) > 120 {
		name = strings.TrimSpace(name[:120])
	}
	if name == "" {
		return "file"
	}
	return name
}
