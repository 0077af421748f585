package logger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesJSONFile(t *testing.T) {
	dir := t.TempDir()

	l, err := NewLogger(dir, "events-test")
	require.NoError(t, err)
	l.out = &bytes.Buffer{}

	l.LogEvent("CREATE", 3, "created")
	l.Close()

	name := filepath.Join(dir, "events-test-"+time.Now().Format("2006-01-02")+".log")
	f, err := os.Open(name)
	require.NoError(t, err)
	defer f.Close()

	var entries []LogEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e LogEntry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		entries = append(entries, e)
	}
	require.NotEmpty(t, entries)

	found := false
	for _, e := range entries {
		if e.Category == "EVENT" {
			found = true
			assert.Equal(t, "INFO", e.Level)
			assert.Equal(t, "[CREATE] 3 - created", e.Message)
		}
	}
	assert.True(t, found)
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := &Logger{out: &buf, minLevel: WARN}

	l.Info("APP", "hidden")
	assert.Empty(t, buf.String())

	l.Warn("APP", "shown")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "[APP")
}

func TestDiscard(t *testing.T) {
	l := Discard()
	l.Error("APP", "nothing")
	l.LogAPI("GET", "/events", 500, time.Millisecond)
}
