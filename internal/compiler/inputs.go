package compiler

import (
	"fmt"
	"strconv"

	"github.com/mediaforge/renderd/internal/config"
)

// inputList collects input descriptors in order. Each descriptor gets its
// ordinal at first reference and is preceded by the global queue/probe/
// analyze tuning from the render configuration.
type inputList struct {
	cfg  *config.RenderConfig
	args []string
	n    int
}

func newInputList(cfg *config.RenderConfig) *inputList {
	return &inputList{cfg: cfg}
}

// add appends one input descriptor (tokens must contain an "-i <path>"
// pair) and returns its assigned ordinal. Tuning flags are injected
// immediately before the -i token.
func (in *inputList) add(tokens ...string) (int, error) {
	at := -1
	for i, tok := range tokens {
		if tok == "-i" {
			at = i
			break
		}
	}
	if at < 0 {
		return 0, fmt.Errorf("input descriptor without -i token")
	}

	var inject []string
	if in.cfg.InputQueueSize > 0 {
		inject = append(inject, "-thread_queue_size", strconv.Itoa(in.cfg.InputQueueSize))
	}
	if in.cfg.ProbeSize != "" {
		inject = append(inject, "-probesize", in.cfg.ProbeSize)
	}
	if in.cfg.AnalyzeDuration != "" {
		inject = append(inject, "-analyzeduration", in.cfg.AnalyzeDuration)
	}

	in.args = append(in.args, tokens[:at]...)
	in.args = append(in.args, inject...)
	in.args = append(in.args, tokens[at:]...)

	ordinal := in.n
	in.n++
	return ordinal, nil
}
