package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"table", FormatTable, false},
		{"JSON", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"", "", false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "ParseFormat(%q)", tt.in)
			continue
		}
		require.NoError(t, err, "ParseFormat(%q)", tt.in)
		assert.Equal(t, tt.want, got, "ParseFormat(%q)", tt.in)
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(FormatJSON)
	require.NoError(t, f.Format(&buf, map[string]int{"groups": 3}))
	assert.Contains(t, buf.String(), `"groups": 3`)
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(FormatYAML)
	require.NoError(t, f.Format(&buf, map[string]string{"founder": "reg-001"}))
	assert.Contains(t, buf.String(), "founder: reg-001")
}

func TestTableFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(FormatTable)
	data := Data{
		Headers: []string{"Founder", "Size"},
		Rows:    [][]string{{"reg-001", "3"}},
	}
	require.NoError(t, f.Format(&buf, data))
	assert.Contains(t, buf.String(), "reg-001")
	assert.Contains(t, strings.ToUpper(buf.String()), "FOUNDER")
}

func TestTableFormatterFallsBackToJSON(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(FormatTable)
	require.NoError(t, f.Format(&buf, map[string]int{"n": 1}))
	assert.Contains(t, buf.String(), `"n": 1`)
}

func TestDetectFormatExplicit(t *testing.T) {
	assert.Equal(t, FormatYAML, DetectFormat("YAML"))
}

func TestTitleHeaders(t *testing.T) {
	got := TitleHeaders([]string{"founder", "run_id", "RuleType"})
	assert.Equal(t, []string{"Founder", "Run Id", "RuleType"}, got)
}

func TestTableFormatterTitlesLowercaseHeaders(t *testing.T) {
	var buf bytes.Buffer
	err := (&TableFormatter{}).Format(&buf, Data{
		Headers: []string{"founder", "RuleId"},
		Rows:    [][]string{{"reg-001", "FM-1"}},
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Founder")
	assert.Contains(t, buf.String(), "RuleId")
}
