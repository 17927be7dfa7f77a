package web

import (
	"bytes"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Model replies arrive as markdown: numbered headings, bold labels and the
// odd table. Raw HTML in a reply is dropped by goldmark, and the rendered
// output is still passed through bluemonday before it reaches a page.
var (
	replyMarkdown = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)
	replyPolicy = newReplyPolicy()
)

func newReplyPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	// Links a model cites point off-site; keep the app page in its tab.
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}

// RenderMarkdown turns a model reply into HTML safe to embed in a template.
// If the reply cannot be converted it is shown escaped, as plain text.
func RenderMarkdown(reply string) template.HTML {
	if reply == "" {
		return ""
	}

	var out bytes.Buffer
	if err := replyMarkdown.Convert([]byte(reply), &out); err != nil {
		return template.HTML(template.HTMLEscapeString(reply))
	}
	return template.HTML(replyPolicy.SanitizeBytes(out.Bytes()))
}
