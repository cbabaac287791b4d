package web

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderMarkdown(t *testing.T) {
	out, err := renderMarkdown("**Paranauê**\nParanauê, paraná\n\n~~riscado~~")
	require.NoError(t, err)

	assert.Contains(t, string(out), "<strong>Paranauê</strong><br>")
	assert.Contains(t, string(out), "<del>riscado</del>")
}

func TestRenderMarkdown_NoRawHTML(t *testing.T) {
	out, err := renderMarkdown("<script>alert(1)</script>")
	require.NoError(t, err)
	assert.NotContains(t, string(out), "<script>")
}
