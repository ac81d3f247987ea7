package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
)

// Player plays a media URL until it ends or the context is canceled.
type Player interface {
	Play(ctx context.Context, url string) error
}

// playerCandidates lists known players with the flags that keep their
// output quiet and independent of local configuration.
var playerCandidates = []struct {
	bin  string
	args []string
}{
	{"mpv", []string{"--really-quiet"}},
	{"vlc", []string{"--ignore-config", "--no-osd"}},
	{"ffplay", []string{"-loglevel", "error", "-autoexit"}},
}

// ExecPlayer runs an external player binary in the foreground.
type ExecPlayer struct {
	// Cmd forces a specific player. Empty picks the first of mpv, vlc,
	// ffplay found on PATH.
	Cmd string
}

func (p *ExecPlayer) resolveBinary() (string, []string, error) {
	if p.Cmd != "" {
		path, err := exec.LookPath(p.Cmd)
		if err != nil {
			return "", nil, fmt.Errorf("player %s not installed: %w", p.Cmd, err)
		}
		for _, c := range playerCandidates {
			if c.bin == filepath.Base(p.Cmd) {
				return path, c.args, nil
			}
		}
		return path, nil, nil
	}
	for _, c := range playerCandidates {
		if path, err := exec.LookPath(c.bin); err == nil {
			return path, c.args, nil
		}
	}
	return "", nil, errors.New("no supported player found on PATH (mpv, vlc, ffplay)")
}

// Play blocks until the player process exits. Cancellation kills the
// process, which surfaces as an error; callers distinguish teardown via
// their context.
func (p *ExecPlayer) Play(ctx context.Context, url string) error {
	bin, args, err := p.resolveBinary()
	if err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, bin, append(args, url)...)
	slog.Info("starting player", slog.String("player", filepath.Base(bin)))
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("player exited: %w", err)
	}
	return nil
}
