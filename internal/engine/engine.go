// Package engine wraps the external ffmpeg binary: capability probes, the
// hardware self-test, subtitle format conversion, and subprocess execution
// with bounded log capture. Everything here is best-effort except New,
// which fails when the binary is missing.
package engine

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrEngineMissing indicates the ffmpeg binary could not be found in PATH.
var ErrEngineMissing = errors.New("ffmpeg binary not found")

// logTailLines bounds how much ffmpeg output is kept per render.
const logTailLines = 400

// Engine wraps one resolved ffmpeg binary.
type Engine struct {
	ffmpegPath string
}

// New resolves the ffmpeg binary and returns an Engine. A missing binary is
// fatal for compilation, so this is the only probe that returns an error.
func New(ffmpegPath string) (*Engine, error) {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	resolved, err := exec.LookPath(ffmpegPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrEngineMissing, ffmpegPath)
	}
	return &Engine{ffmpegPath: resolved}, nil
}

// Path returns the resolved ffmpeg binary path.
func (e *Engine) Path() string {
	return e.ffmpegPath
}

// HasEncoder reports whether ffmpeg lists the named encoder as compiled-in.
// Probe failures report false; the caller falls back to the software path.
func (e *Engine) HasEncoder(ctx context.Context, name string) bool {
	cmd := exec.CommandContext(ctx, e.ffmpegPath, "-hide_banner", "-encoders")

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		return false
	}
	return strings.Contains(stdout.String(), name)
}

// SelfTest encodes one second of synthetic video with the named encoder to
// a null sink. A zero exit means the encoder is actually usable, not just
// compiled in.
func (e *Engine) SelfTest(ctx context.Context, encoder string) bool {
	cmd := exec.CommandContext(ctx, e.ffmpegPath,
		"-v", "error",
		"-f", "lavfi",
		"-i", "testsrc2=size=320x180:rate=10:duration=1",
		"-c:v", encoder,
		"-f", "null", "-",
	)
	return cmd.Run() == nil
}

// ConvertSubtitle converts a caption file to SRT inside workdir via a side
// invocation. On any failure the original path is returned unchanged; a
// genuinely incompatible file then surfaces when the main render runs.
func (e *Engine) ConvertSubtitle(ctx context.Context, src, workdir string) string {
	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	out := filepath.Join(workdir, base+".srt")

	cmd := exec.CommandContext(ctx, e.ffmpegPath, "-y", "-i", src, out)
	if err := cmd.Run(); err != nil {
		return src
	}
	return out
}

// Run executes a fully-assembled argument list (args[0] is the binary) and
// returns the exit code plus the tail of the combined output.
func (e *Engine) Run(ctx context.Context, args []string) (int, string, error) {
	if len(args) == 0 {
		return -1, "", fmt.Errorf("empty argument list")
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return -1, "", fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return -1, "", fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	var lines []string
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if len(lines) > logTailLines {
			lines = lines[1:]
		}
	}

	err = cmd.Wait()
	tail := strings.Join(lines, "\n")
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), tail, nil
		}
		return -1, tail, fmt.Errorf("ffmpeg failed: %w", err)
	}
	return 0, tail, nil
}
