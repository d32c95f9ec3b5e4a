package tui

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/tendril"
)

func TestRenderStatsPlainOutputForNonTerminalWriter(t *testing.T) {
	var buf bytes.Buffer
	RenderStats(&buf, tendril.Stats{
		Switches:     12,
		SwitchDelay:  3 * time.Millisecond,
		LongRuns:     1,
		LongRunTotal: 500 * time.Microsecond,
		LiveFibers:   2,
		StackBytes:   128 * 1024,
	})

	out := buf.String()
	require.NotContains(t, out, "\x1b[", "buffer output must carry no ANSI escapes")
	assert.Contains(t, out, "tendril runtime")
	assert.Contains(t, out, "context switches")
	assert.Contains(t, out, "12")
	assert.Contains(t, out, "switch delay")
	assert.Contains(t, out, "long runs")
	assert.Contains(t, out, "live fibers")
	assert.Contains(t, out, "stack bytes")
	assert.Contains(t, out, "131072")
}
