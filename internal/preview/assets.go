package preview

import (
	"bytes"
	"embed"
	"fmt"

	"github.com/yuin/goldmark"
)

const (
	StylePath  = "/styles/preview-jsdoc.css"
	ScriptPath = "/scripts/preview-jsdoc.js"
	SocketPath = "/socket"
)

//go:embed assets/preview-jsdoc.css assets/preview-jsdoc.js assets/placeholder.md
var assetFS embed.FS

func mustAsset(name string) []byte {
	data, err := assetFS.ReadFile("assets/" + name)
	if err != nil {
		panic(fmt.Sprintf("preview: missing embedded asset %s: %v", name, err))
	}
	return data
}

var (
	styleAsset  = mustAsset("preview-jsdoc.css")
	scriptAsset = mustAsset("preview-jsdoc.js")
)

// placeholderPage renders the page served at / before the first successful
// generation. It goes through the same injection as generated pages.
func placeholderPage() ([]byte, error) {
	var body bytes.Buffer
	if err := goldmark.Convert(mustAsset("placeholder.md"), &body); err != nil {
		return nil, fmt.Errorf("render placeholder: %w", err)
	}
	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>jsdocpreview</title></head><body>\n")
	page.Write(body.Bytes())
	page.WriteString("</body></html>\n")
	return InjectAssets(&page)
}
