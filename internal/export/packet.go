package export

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

var packetTemplate = template.Must(template.New("packet").Funcs(template.FuncMap{
	"markdown": renderMarkdown,
	"join":     strings.Join,
	"label":    func(s string) string { return strings.ReplaceAll(s, "_", " ") },
	"score": func(v *int) string {
		if v == nil {
			return "-"
		}
		return fmt.Sprintf("%d/5", *v)
	},
	"mean": func(v float64) string { return fmt.Sprintf("%.2f", v) },
}).Parse(packetHTML))

// renderMarkdown converts user-supplied markdown to HTML. Raw HTML in the
// source is dropped and links with unsafe schemes are rendered as plain text.
func renderMarkdown(src string) template.HTML {
	if strings.TrimSpace(src) == "" {
		return ""
	}
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags | mdhtml.SkipHTML | mdhtml.Safelink | mdhtml.NofollowLinks})
	return template.HTML(markdown.ToHTML([]byte(src), p, renderer))
}

// RenderPacketHTML renders the review packet as a standalone HTML page.
func RenderPacketHTML(packet Packet) (string, error) {
	var buf bytes.Buffer
	if err := packetTemplate.Execute(&buf, packet); err != nil {
		return "", fmt.Errorf("render packet: %w", err)
	}
	return buf.String(), nil
}

const packetHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <style>
    body { font-family: Georgia, serif; line-height: 1.6; max-width: 800px; margin: 2rem auto; color: #222; }
    h1 { border-bottom: 2px solid #2f5d50; padding-bottom: 0.5rem; }
    .meta { color: #666; font-size: 0.9em; margin-bottom: 2rem; }
    table { border-collapse: collapse; width: 100%; margin: 1rem 0; }
    th, td { border: 1px solid #ddd; padding: 0.4rem 0.6rem; text-align: left; }
    .review { background: #f6f7f5; padding: 1rem; margin: 1rem 0; border-left: 3px solid #2f5d50; }
    .confidential { background: #fff3cd; padding: 0.5rem; }
  </style>
</head>
<body>
  <h1>{{.Title}}</h1>
  <div class="meta">
    {{.AuthorName}}{{if .CoAuthors}}, {{join .CoAuthors ", "}}{{end}} |
    {{.Category}} | version {{.Version}} | {{label .Status}} |
    submitted {{.SubmissionDate.Format "Jan 2, 2006"}}
  </div>
  {{if .Keywords}}<p><strong>Keywords:</strong> {{join .Keywords ", "}}</p>{{end}}
  <h2>Abstract</h2>
  <div class="abstract">{{markdown .Abstract}}</div>
  {{if .Scores}}
  <h2>Score summary</h2>
  <table>
    <tr><th>Criterion</th><th>Mean</th><th>Reviews</th></tr>
    {{range .Scores}}<tr><td>{{label .Criterion}}</td><td>{{mean .Mean}}</td><td>{{.Count}}</td></tr>{{end}}
  </table>
  {{end}}
  <h2>Reviews</h2>
  {{range .Reviews}}
  <div class="review">
    <p><strong>{{.ReviewerName}}</strong> | {{label .Status}}{{if .Recommendation}} | {{label .Recommendation}}{{end}} | overall {{score .OverallScore}}</p>
    {{if .Comments}}<div>{{markdown .Comments}}</div>{{end}}
    {{if .ConfidentialComments}}<div class="confidential"><em>Confidential:</em> {{markdown .ConfidentialComments}}</div>{{end}}
  </div>
  {{else}}
  <p>No reviews yet.</p>
  {{end}}
  {{if .Decisions}}
  <h2>Editorial decisions</h2>
  <table>
    <tr><th>Date</th><th>Editor</th><th>Decision</th><th>Comments</th></tr>
    {{range .Decisions}}<tr><td>{{.DecisionDate.Format "2006-01-02"}}</td><td>{{.EditorName}}</td><td>{{label .Decision}}</td><td>{{.Comments}}</td></tr>{{end}}
  </table>
  {{end}}
  <p class="meta">Generated {{.GeneratedAt.Format "2006-01-02 15:04 MST"}}</p>
</body>
</html>`
