package server

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
)

//go:embed web
var webFS embed.FS

type pageData struct {
	Title string
	CSS   string
	JS    string
}

// BuildIndex renders the viewer page with inlined, minified CSS and JS.
func BuildIndex(title string) ([]byte, error) {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("text/html", html.Minify)
	m.AddFunc("text/javascript", js.Minify)

	cssMin, err := minifyAsset(m, "web/style.css", "text/css")
	if err != nil {
		return nil, err
	}
	jsMin, err := minifyAsset(m, "web/script.js", "text/javascript")
	if err != nil {
		return nil, err
	}

	raw, err := webFS.ReadFile("web/index.html.tpl")
	if err != nil {
		return nil, err
	}
	tmpl, err := template.New("index").Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("parse index template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, pageData{Title: title, CSS: cssMin, JS: jsMin}); err != nil {
		return nil, fmt.Errorf("execute index template: %w", err)
	}

	out, err := m.Bytes("text/html", buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("minify index: %w", err)
	}

	return out, nil
}

func minifyAsset(m *minify.M, name, mediaType string) (string, error) {
	raw, err := webFS.ReadFile(name)
	if err != nil {
		return "", err
	}

	out, err := m.String(mediaType, string(raw))
	if err != nil {
		return "", fmt.Errorf("minify %s: %w", name, err)
	}

	return out, nil
}
