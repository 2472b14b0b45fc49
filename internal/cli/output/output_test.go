package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoResolvesToMarkdownWhenPiped(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, &buf, ModeAuto)
	assert.Equal(t, ModeMarkdown, r.Mode())
}

func TestUnknownModeFallsBackToAuto(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, &buf, Mode("yaml"))
	assert.Equal(t, ModeMarkdown, r.Mode())
}

func TestHeaderMarkdown(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, &buf, ModeMarkdown)
	r.Header(2, "Runs")
	assert.True(t, strings.HasPrefix(buf.String(), "## Runs\n"))
}

func TestHeaderText(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, &buf, ModeText)
	r.Header(1, "Runs")
	assert.Equal(t, "Runs\n", buf.String(), "no ANSI codes without a terminal")
}

func TestErrorGoesToErrWriter(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewRenderer(&out, &errOut, ModeText)
	r.Error("boom")
	assert.Empty(t, out.String())
	assert.Equal(t, "error: boom\n", errOut.String())
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, &buf, ModeJSON)
	require.NoError(t, r.JSON(map[string]int{"edges": 3}))
	assert.JSONEq(t, `{"edges": 3}`, buf.String())
}
