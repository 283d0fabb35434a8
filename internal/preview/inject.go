package preview

import (
	"bytes"
	"fmt"
	"io"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// InjectAssets appends the preview stylesheet to <head> and the preview
// script to <body>. A document that already references either asset is not
// given a second copy.
func InjectAssets(r io.Reader) ([]byte, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	var head, body *html.Node
	hasStyle, hasScript := false, false

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Head:
				if head == nil {
					head = n
				}
			case atom.Body:
				if body == nil {
					body = n
				}
			case atom.Link:
				if getAttr(n, "href") == StylePath {
					hasStyle = true
				}
			case atom.Script:
				if getAttr(n, "src") == ScriptPath {
					hasScript = true
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	// html.Parse always synthesizes head and body.
	if head != nil && !hasStyle {
		head.AppendChild(element(atom.Link, "rel", "stylesheet", "href", StylePath))
	}
	if body != nil && !hasScript {
		body.AppendChild(element(atom.Script, "src", ScriptPath))
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, fmt.Errorf("render HTML: %w", err)
	}
	return buf.Bytes(), nil
}

func element(a atom.Atom, kv ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	for i := 0; i+1 < len(kv); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: kv[i], Val: kv[i+1]})
	}
	return n
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
