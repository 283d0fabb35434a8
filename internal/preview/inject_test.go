package preview

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInjectAssets(t *testing.T) {
	out, err := InjectAssets(strings.NewReader(`<html><head><title>Docs</title></head><body><h1>API</h1></body></html>`))
	require.NoError(t, err)

	page := string(out)
	assert.Contains(t, page, `<link rel="stylesheet" href="/styles/preview-jsdoc.css"/></head>`)
	assert.Contains(t, page, `<script src="/scripts/preview-jsdoc.js"></script></body>`)
	assert.Contains(t, page, "<h1>API</h1>")
}

func TestInjectAssetsIsIdempotent(t *testing.T) {
	once, err := InjectAssets(strings.NewReader(`<p>fragment</p>`))
	require.NoError(t, err)
	twice, err := InjectAssets(strings.NewReader(string(once)))
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(string(twice), StylePath))
	assert.Equal(t, 1, strings.Count(string(twice), ScriptPath))
}

func TestPlaceholderPage(t *testing.T) {
	page, err := placeholderPage()
	require.NoError(t, err)
	assert.Contains(t, string(page), "<h1>Documentation is being generated</h1>")
	assert.Contains(t, string(page), ScriptPath)
}
