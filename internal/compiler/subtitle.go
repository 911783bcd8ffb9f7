package compiler

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mediaforge/renderd/internal/timeline"
)

// burnSubtitles appends the burn-in stage as the final video stage. Only
// the first subtitle clip is used; multiple subtitle tracks are not
// merged. Conversion failures are non-fatal: the original file is burned
// as-is and any real incompatibility surfaces when the engine runs.
func (r *run) burnSubtitles(ctx context.Context, clip timeline.Clip, videoLabel string) (string, error) {
	path, err := r.c.resolver.Resolve(ctx, clip.Src, r.workdir)
	if err != nil {
		return "", fmt.Errorf("resolving subtitle clip %q: %w", clip.Src, err)
	}

	if !burnableSubtitle(path) {
		path = r.c.subs.ConvertSubtitle(ctx, path, r.workdir)
	}

	label := r.labels.next("vs")
	r.filters = append(r.filters, fmt.Sprintf("[%s]subtitles=%s[%s]",
		videoLabel, escapeFilterPath(path), label))
	return label, nil
}

// burnableSubtitle reports whether the subtitles filter can read the file
// directly without a format conversion.
func burnableSubtitle(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".srt", ".ass", ".ssa":
		return true
	default:
		return false
	}
}

// escapeFilterPath escapes a path for embedding in a filter argument.
// Backslash first, then the characters the filter parser treats specially.
func escapeFilterPath(path string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`:`, `\:`,
		`'`, `\'`,
		`,`, `\,`,
	)
	return replacer.Replace(path)
}
