// Package stream resolves live Twitch channels to playable media URLs
// and drives an external video player while a broadcast is up.
package stream

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// resolveTimeout bounds one yt-dlp invocation.
const resolveTimeout = 15 * time.Second

// Resolver turns a channel name into a direct media URL.
type Resolver interface {
	Resolve(ctx context.Context, channel string) (string, error)
}

// YTDLP shells out to yt-dlp for URL extraction.
type YTDLP struct {
	// Bin overrides the yt-dlp binary, mainly for tests.
	Bin string
}

// Resolve asks yt-dlp for the best-quality stream URL of a live
// channel. Offline channels and unknown logins surface as yt-dlp
// errors.
func (y *YTDLP) Resolve(ctx context.Context, channel string) (string, error) {
	bin := y.Bin
	if bin == "" {
		bin = "yt-dlp"
	}
	if _, err := exec.LookPath(bin); err != nil {
		return "", fmt.Errorf("yt-dlp not installed: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, bin, "-f", "best", "-g", "https://www.twitch.tv/"+channel)
	out, err := cmd.Output()
	if err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) && len(ee.Stderr) > 0 {
			return "", fmt.Errorf("yt-dlp: %s", strings.TrimSpace(string(ee.Stderr)))
		}
		return "", fmt.Errorf("yt-dlp: %w", err)
	}
	url := strings.TrimSpace(string(out))
	if !strings.HasPrefix(url, "http") {
		return "", fmt.Errorf("yt-dlp returned an invalid url: %q", url)
	}
	return url, nil
}
