package export

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"
)

// TemplateData holds data for the export template.
type TemplateData struct {
	Title       string
	Semver      string
	Description string
	Author      string
	GeneratedAt time.Time
	ContentHTML template.HTML
}

var documentTemplate = template.Must(template.New("document").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; max-width: 800px; margin: 2rem auto; }
    h1 { border-bottom: 2px solid #333; padding-bottom: 0.5rem; }
    .meta { color: #666; font-size: 0.9em; margin-bottom: 2rem; }
    dl { margin: 0 0 0 1rem; }
    dt { font-weight: bold; margin-top: 0.4rem; }
    dd { margin: 0 0 0 1rem; }
    .scalar { font-family: monospace; }
  </style>
</head>
<body>
  <h1>{{.Title}}</h1>
  <div class="meta">v{{.Semver}}{{if .Author}} | {{.Author}}{{end}} | {{.GeneratedAt.Format "Jan 2, 2006"}}</div>
  {{if .Description}}<p>{{.Description}}</p>{{end}}
  <div>{{.ContentHTML}}</div>
</body>
</html>`))

// RenderDocumentHTML renders the export template with provided data.
func RenderDocumentHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := documentTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ContentToHTML renders a reconstructed document tree as nested definition
// lists. Keys are emitted in sorted order so the output is stable.
func ContentToHTML(content map[string]any) template.HTML {
	var buf strings.Builder
	writeObject(&buf, content)
	return template.HTML(buf.String())
}

func writeObject(buf *strings.Builder, obj map[string]any) {
	keys := make([]string, 0, len(obj))
	for key := range obj {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	buf.WriteString("<dl>")
	for _, key := range keys {
		buf.WriteString("<dt>")
		buf.WriteString(template.HTMLEscapeString(key))
		buf.WriteString("</dt><dd>")
		writeValue(buf, obj[key])
		buf.WriteString("</dd>")
	}
	buf.WriteString("</dl>")
}

func writeValue(buf *strings.Builder, value any) {
	switch v := value.(type) {
	case map[string]any:
		writeObject(buf, v)
	case []any:
		buf.WriteString("<ol>")
		for _, item := range v {
			buf.WriteString("<li>")
			writeValue(buf, item)
			buf.WriteString("</li>")
		}
		buf.WriteString("</ol>")
	case nil:
		buf.WriteString(`<span class="scalar">null</span>`)
	case string:
		buf.WriteString(template.HTMLEscapeString(v))
	default:
		buf.WriteString(`<span class="scalar">`)
		buf.WriteString(template.HTMLEscapeString(fmt.Sprintf("%v", v)))
		buf.WriteString("</span>")
	}
}
