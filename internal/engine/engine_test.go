package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_MissingBinary(t *testing.T) {
	_, err := New("definitely-not-a-real-binary-xyz")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEngineMissing)
}

func TestNew_ResolvesPath(t *testing.T) {
	// Any binary on PATH works for resolution; sh is always present.
	eng, err := New("sh")
	require.NoError(t, err)
	assert.NotEmpty(t, eng.Path())
}

func TestRun_EmptyArgs(t *testing.T) {
	eng := &Engine{ffmpegPath: "sh"}
	rc, _, err := eng.Run(context.Background(), nil)
	assert.Error(t, err)
	assert.Equal(t, -1, rc)
}

func TestRun_CapturesExitCodeAndOutput(t *testing.T) {
	eng := &Engine{ffmpegPath: "sh"}
	rc, tail, err := eng.Run(context.Background(),
		[]string{"sh", "-c", "echo line-one; echo line-two 1>&2; exit 3"})

	require.NoError(t, err, "non-zero exits are reported via the code, not the error")
	assert.Equal(t, 3, rc)
	assert.Contains(t, tail, "line-one")
	assert.Contains(t, tail, "line-two", "stderr is merged into the captured output")
}

func TestRun_ZeroExit(t *testing.T) {
	eng := &Engine{ffmpegPath: "sh"}
	rc, tail, err := eng.Run(context.Background(), []string{"sh", "-c", "echo done"})

	require.NoError(t, err)
	assert.Equal(t, 0, rc)
	assert.Equal(t, "done", tail)
}

func TestRun_TailIsBounded(t *testing.T) {
	eng := &Engine{ffmpegPath: "sh"}
	rc, tail, err := eng.Run(context.Background(),
		[]string{"sh", "-c", "seq 1 500"})

	require.NoError(t, err)
	require.Equal(t, 0, rc)

	lines := strings.Split(tail, "\n")
	assert.Len(t, lines, logTailLines)
	assert.Equal(t, "101", lines[0], "only the tail survives")
	assert.Equal(t, "500", lines[len(lines)-1])
}
