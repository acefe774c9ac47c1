package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests mutate the global logger, so they do not run in parallel.

func TestSetupJSONLevels(t *testing.T) {
	var buf bytes.Buffer
	SetupWithOptions(Options{Level: LevelNormal, JSON: true, Out: &buf})
	t.Cleanup(func() { SetupWithOptions(Options{Out: &bytes.Buffer{}}) })

	Debug("hidden", "k", 1)
	Info("plan computed", "weeks", 26)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "plan computed", entry["message"])
	assert.EqualValues(t, 26, entry["weeks"])
	assert.False(t, IsVerbose())
}

func TestSetupVerbosity(t *testing.T) {
	var buf bytes.Buffer
	SetupWithOptions(Options{Level: LevelTrace, JSON: true, Out: &buf})
	t.Cleanup(func() { SetupWithOptions(Options{Out: &bytes.Buffer{}}) })

	assert.True(t, IsVerbose())
	assert.True(t, IsTraceEnabled())
	assert.Equal(t, LevelTrace, GetLevel())

	(&LeveledLogger{}).Debug("request", "url", "https://example.com")
	assert.Contains(t, buf.String(), `"level":"trace"`)
}

func TestToJSON(t *testing.T) {
	assert.Equal(t, "null", ToJSON(nil))
	assert.Equal(t, `{"a":1}`, ToJSON(map[string]int{"a": 1}))
	assert.Equal(t, "<marshal error>", ToJSON(make(chan int)))

	long := ToJSON(strings.Repeat("x", 3000))
	assert.True(t, strings.HasSuffix(long, "...(truncated)"))
}
