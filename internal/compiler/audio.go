package compiler

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/mediaforge/renderd/internal/timeline"
)

// buildAudioMix compiles the per-clip audio chains and composes the mixed
// output. Each clip is resampled with drift correction, gain-adjusted,
// trimmed to its exact length, PTS-reset, then delayed onto the master
// timeline with millisecond precision. Overlapping clips sum without
// ducking or normalization.
func (r *run) buildAudioMix(ctx context.Context, clips []timeline.Clip) (string, error) {
	var labels []string

	for i := range clips {
		clip := &clips[i]
		path, err := r.c.resolver.Resolve(ctx, clip.Src, r.workdir)
		if err != nil {
			return "", fmt.Errorf("resolving audio clip %q: %w", clip.Src, err)
		}

		ordinal, err := r.inputs.add("-ss", "0", "-t", fmt.Sprintf("%.3f", clip.Length), "-i", path)
		if err != nil {
			return "", err
		}

		delayMS := int(math.Round(clip.Start * 1000))
		if delayMS < 0 {
			delayMS = 0
		}

		label := r.labels.next("a")
		r.filters = append(r.filters, fmt.Sprintf(
			"[%d:a]aresample=async=1,volume=%.3f,atrim=0:%.6f,asetpts=PTS-STARTPTS,adelay=%d|%d[%s]",
			ordinal, clip.Volume, clip.Length, delayMS, delayMS, label))
		labels = append(labels, label)
	}

	switch len(labels) {
	case 0:
		return "", nil
	case 1:
		return labels[0], nil
	default:
		var refs strings.Builder
		for _, l := range labels {
			refs.WriteString("[" + l + "]")
		}
		label := r.labels.next("amix")
		r.filters = append(r.filters, fmt.Sprintf(
			"%samix=inputs=%d:normalize=0:dropout_transition=0[%s]",
			refs.String(), len(labels), label))
		return label, nil
	}
}
