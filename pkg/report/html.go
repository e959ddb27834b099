// Package report exports finished research as standalone HTML.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"os"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/ncolesummers/deep-research-agent/pkg/catalog"
	"github.com/ncolesummers/deep-research-agent/pkg/domain"
)

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

var page = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Query}}</title>
</head>
<body>
<header>
<h1>{{.Query}}</h1>
<div class="summary">{{.Summary}}</div>
</header>
<main>
{{.Body}}
</main>
{{- if .Sources}}
<section class="sources">
<h2>Sources</h2>
<ol>
{{- range .Sources}}
<li><a href="{{.URL}}">{{.Label}}</a>{{if .PublishedAt}} <time>{{.PublishedAt}}</time>{{end}}</li>
{{- end}}
</ol>
</section>
{{- end}}
{{- if .FollowUps}}
<section class="follow-ups">
<h2>Follow-up questions</h2>
<ul>
{{- range .FollowUps}}
<li>{{.}}</li>
{{- end}}
</ul>
</section>
{{- end}}
</body>
</html>
`))

// Document is the input to Render.
type Document struct {
	Query   string
	Draft   *domain.Draft
	Sources []domain.Source
}

type sourceView struct {
	URL         string
	Label       string
	PublishedAt string
}

type pageView struct {
	Query     string
	Summary   template.HTML
	Body      template.HTML
	Sources   []sourceView
	FollowUps []string
}

// RenderMarkdown converts markdown to an HTML fragment.
func RenderMarkdown(text string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return template.HTML(buf.String()), nil //nolint: gosec
}

// Render writes doc as a complete HTML page. The source list is numbered
// so the report's [n] markers line up with it.
func Render(w io.Writer, doc Document) error {
	if doc.Draft == nil {
		return fmt.Errorf("document has no draft")
	}

	summary, err := RenderMarkdown(doc.Draft.ShortSummary)
	if err != nil {
		return err
	}
	body, err := RenderMarkdown(doc.Draft.MarkdownReport)
	if err != nil {
		return err
	}

	view := pageView{
		Query:     doc.Query,
		Summary:   summary,
		Body:      body,
		FollowUps: doc.Draft.FollowUpQuestions,
	}
	for i, s := range doc.Sources {
		view.Sources = append(view.Sources, sourceView{
			URL:         s.URL,
			Label:       catalog.Label(s, i+1),
			PublishedAt: s.PublishedAt,
		})
	}

	return page.Execute(w, view)
}

// WriteFile renders doc into path.
func WriteFile(path string, doc Document) error {
	var buf bytes.Buffer
	if err := Render(&buf, doc); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
