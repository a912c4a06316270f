package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRenderer(isTTY bool, mode Mode) (*Renderer, *bytes.Buffer, *bytes.Buffer) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return NewRendererWithTTY(out, errOut, isTTY, mode), out, errOut
}

func TestEffectiveMode(t *testing.T) {
	tests := []struct {
		name  string
		isTTY bool
		mode  Mode
		want  Mode
	}{
		{"auto on tty", true, ModeAuto, ModeText},
		{"auto piped", false, ModeAuto, ModeMarkdown},
		{"explicit text piped", false, ModeText, ModeText},
		{"explicit json on tty", true, ModeJSON, ModeJSON},
		{"empty mode defaults to auto", true, "", ModeText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _, _ := newTestRenderer(tt.isTTY, tt.mode)
			assert.Equal(t, tt.want, r.EffectiveMode())
		})
	}
}

func TestStatusMessages(t *testing.T) {
	r, out, errOut := newTestRenderer(true, ModeText)

	r.Success("all green")
	r.Warning("careful")
	r.Error("broke")
	r.Muted("aside")

	assert.Contains(t, out.String(), "✓ all green")
	assert.Contains(t, out.String(), "! careful")
	assert.Contains(t, out.String(), "aside")
	assert.Contains(t, errOut.String(), "✗ broke", "errors go to the error writer")
	assert.NotContains(t, out.String(), "broke")
}

func TestHeader(t *testing.T) {
	text, out, _ := newTestRenderer(true, ModeText)
	text.Header(2, "Results")
	assert.Contains(t, out.String(), "Results")
	assert.NotContains(t, out.String(), "##")

	md, mdOut, _ := newTestRenderer(false, ModeMarkdown)
	md.Header(2, "Results")
	assert.Contains(t, mdOut.String(), "## Results")
}

func TestStatusLine(t *testing.T) {
	md, out, _ := newTestRenderer(false, ModeMarkdown)
	md.StatusLine("Passed", "3")
	assert.Equal(t, "- **Passed**: 3\n", out.String())

	text, textOut, _ := newTestRenderer(true, ModeText)
	text.StatusLine("Passed", "3")
	assert.Equal(t, "Passed: 3\n", textOut.String())
}

func TestJSON(t *testing.T) {
	r, out, _ := newTestRenderer(false, ModeJSON)
	require.NoError(t, r.JSON(map[string]int{"passed": 3}))

	var decoded map[string]int
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, 3, decoded["passed"])
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "### Deep", FormatHeader(3, "Deep"))
	assert.Equal(t, "- **k**: v", FormatKeyValue("k", "v"))
}
