package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/stockscore/internal/analysis"
	"github.com/seenimoa/stockscore/internal/rating"
)

const testConfig = `
scoring:
  default_profile: three
llm:
  anthropic_key: sk-ant-test-0123456789
  gemini_key: ""
logging:
  level: error
  format: json
`

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(append([]string{"--config", writeConfig(t)}, args...))
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "stockscore dev")
	assert.Contains(t, out, "commit:")
}

func TestStatusCommand(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("STOCKSCORE_LLM_GEMINI_KEY", "")

	out, err := execute(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Default profile: three")
	assert.Contains(t, out, "sk-...789")
	assert.NotContains(t, out, "sk-ant-test-0123456789")
	assert.Contains(t, out, "not set")
}

func TestProfilesCommand(t *testing.T) {
	out, err := execute(t, "profiles", "--methodology=false")
	require.NoError(t, err)
	assert.Contains(t, out, "* three")
	assert.Contains(t, out, "five")
	assert.NotContains(t, out, "## Methodology")

	out, err = execute(t, "profiles", "--methodology")
	require.NoError(t, err)
	assert.Contains(t, out, "## Methodology")
	assert.Contains(t, out, "P/E (TTM)")
}

func TestRateCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "pe best under five",
			args: []string{"rate", "PE", "18.5", "--profile", "five", "--sector", ""},
			want: []string{"18.50", "Good Value", `20/20 points under profile "five"`},
		},
		{
			name: "tech pb middle",
			args: []string{"rate", "PB", "9", "--profile", "five", "--sector", "Technology"},
			want: []string{"9.00", `10/20 points under profile "five"`},
		},
		{
			name: "metric outside profile",
			args: []string{"rate", "CURRENT", "2", "--profile", "five", "--sector", ""},
			want: []string{"2.00", `not scored by profile "five"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			require.NoError(t, err)
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
		})
	}
}

func TestRateCommandErrors(t *testing.T) {
	_, err := execute(t, "rate", "BOGUS", "1", "--profile", "five", "--sector", "")
	assert.Error(t, err)

	_, err = execute(t, "rate", "PE", "cheap", "--profile", "five", "--sector", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid value")

	_, err = execute(t, "rate", "PE", "12", "--profile", "nope", "--sector", "")
	assert.Error(t, err)
}

func TestAnalyzeRejectsUnknownFormat(t *testing.T) {
	_, err := execute(t, "analyze", "AAPL", "--format", "docx")
	assert.Error(t, err)
}

func sampleBatch() []analysis.BatchResult {
	comp := rating.Composite{Profile: "five", Score: 80, Max: 100, Verdict: rating.VerdictFor(80, 100)}
	return []analysis.BatchResult{
		{Ticker: "AAPL", Analysis: &analysis.Analysis{Ticker: "AAPL", Composite: comp}},
		{Ticker: "NOPE", Error: "ticker not found: NOPE", Err: errors.New("ticker not found")},
	}
}

func TestWriteBatchJSONKeepsFailures(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeBatchJSON(&buf, sampleBatch()))

	var got []struct {
		Ticker   string          `json:"ticker"`
		Analysis json.RawMessage `json:"analysis"`
		Error    string          `json:"error"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "AAPL", got[0].Ticker)
	assert.NotEmpty(t, got[0].Analysis)
	assert.Empty(t, got[0].Error)
	assert.Equal(t, "NOPE", got[1].Ticker)
	assert.Empty(t, got[1].Analysis)
	assert.Equal(t, "ticker not found: NOPE", got[1].Error)
}

func TestPrintWatchlist(t *testing.T) {
	var buf bytes.Buffer
	printWatchlist(&buf, sampleBatch())

	out := buf.String()
	assert.Contains(t, out, "80/100")
	assert.Contains(t, out, "Strong Buy / Core Holding")
	assert.Contains(t, out, "error: ticker not found: NOPE")
}
