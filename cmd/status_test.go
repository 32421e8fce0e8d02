package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/broadband-cli/internal/model"
)

func sampleRuns() []model.Run {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return []model.Run{
		{
			ID:          "0f1e2d3c-4b5a-6978-8796-a5b4c3d2e1f0",
			DataVersion: "jun2014",
			Status:      model.RunStatusComplete,
			Result: &model.RunResult{
				Districts: 437,
				Fetched:   12,
				Cached:    1300,
				Phases: []model.PhaseResult{
					{Name: "districts", Status: model.PhaseStatusComplete, Cached: 1},
				},
			},
			CreatedAt: created,
			UpdatedAt: created.Add(95 * time.Second),
		},
		{
			ID:          "short",
			DataVersion: "dec2013",
			Status:      model.RunStatusFailed,
			Error:       "downloader: ranking for AL-1: bbmap: ranking: the service is down for maintenance",
			CreatedAt:   created,
			UpdatedAt:   created.Add(2 * time.Second),
		},
	}
}

func TestFormatRunsTable(t *testing.T) {
	var buf bytes.Buffer
	formatRunsTable(&buf, sampleRuns())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "VERSION")
	assert.Contains(t, lines[0], "FETCHED")

	assert.Contains(t, lines[2], "0f1e2d3c")
	assert.NotContains(t, lines[2], "4b5a")
	assert.Contains(t, lines[2], "437")
	assert.Contains(t, lines[2], "1300")
	assert.Contains(t, lines[2], "1m35s")
	assert.Contains(t, lines[2], "2026-03-01 12:00")

	assert.Contains(t, lines[3], "short")
	assert.Contains(t, lines[3], "failed")
	assert.Contains(t, lines[3], "...")
	assert.NotContains(t, lines[3], "maintenance")
}

func TestFormatRunsYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, formatRunsYAML(&buf, sampleRuns()))

	var decoded []map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "jun2014", decoded[0]["data_version"])
	assert.Equal(t, "complete", decoded[0]["status"])

	result, ok := decoded[0]["result"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 437, result["districts"])
	assert.Len(t, result["phases"], 1)

	_, hasResult := decoded[1]["result"]
	assert.False(t, hasResult)
	assert.Contains(t, decoded[1]["error"], "maintenance")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "0f1e2d3c", truncateID("0f1e2d3c-4b5a-6978-8796-a5b4c3d2e1f0"))
	assert.Equal(t, "abc", truncateID("abc"))
	assert.Equal(t, "", truncateID(""))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "abcdefghij", truncate("abcdefghij", 10))
}
