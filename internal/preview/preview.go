// Package preview renders a draft to a standalone HTML page so the author can
// inspect a post before submitting it. Rendering is local only; staged files
// are shown through their temporary preview references.
package preview

import (
	"fmt"
	"html"
	"html/template"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	md_html "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/rs/zerolog"

	"github.com/hndao/inkpost/internal/cache"
	"github.com/hndao/inkpost/internal/draft"
	"github.com/hndao/inkpost/internal/util"
)

var previewLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	previewLogger = l
}

var formatter = chromahtml.New(chromahtml.WithClasses(false), chromahtml.TabWidth(4))

func HighlightCode(code, language, highlightTheme string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf strings.Builder
	style := styles.Get(highlightTheme)
	if style == nil {
		style = styles.Fallback
	}
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}

	return html.UnescapeString(buf.String())
}

// RenderSection renders one section's markdown content with highlighted code
// blocks. Results are cached by content hash and syntax theme.
func RenderSection(content, highlightTheme string) []byte {
	contentHash := util.ContentHashString(content)
	if cached, found := cache.GetRenderedSection(contentHash, highlightTheme); found {
		previewLogger.Debug().Str("content_hash", contentHash).Msg("Preview cache hit")
		return cached
	}

	opts := md_html.RendererOptions{
		Flags: md_html.CommonFlags | md_html.HrefTargetBlank,
		RenderNodeHook: func(w io.Writer, node ast.Node, entering bool) (ast.WalkStatus, bool) {
			if code, ok := node.(*ast.CodeBlock); ok && entering {
				var lang string
				if info := code.Info; info != nil {
					lang = string(info)
				}
				highlighted := HighlightCode(string(code.Literal), lang, highlightTheme)
				fmt.Fprintf(w, "<div class=\"highlight\">%s</div>", highlighted)
				return ast.GoToNext, true
			}
			return ast.GoToNext, false
		},
	}

	doc := parser.NewWithExtensions(
		parser.Tables | parser.FencedCode | parser.Autolink | parser.Strikethrough |
			parser.SpaceHeadings | parser.HeadingIDs | parser.AutoHeadingIDs | parser.Footnotes,
	).Parse([]byte(content))
	rendered := markdown.Render(doc, md_html.NewRenderer(opts))

	cache.SetRenderedSection(contentHash, highlightTheme, rendered)
	return rendered
}

var pageTemplate = template.Must(template.New("preview").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { max-width: 48rem; margin: 2rem auto; font-family: sans-serif; line-height: 1.6; }
img { max-width: 100%; }
.section { margin-bottom: 2rem; }
.pending { outline: 2px dashed #999; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{range .Sections}}<div class="section">
{{if .ImageSrc}}<img src="{{.ImageSrc}}"{{if .Pending}} class="pending"{{end}}>
{{end}}{{.Content}}
</div>
{{end}}</body>
</html>
`))

type sectionView struct {
	ImageSrc string
	Pending  bool
	Content  template.HTML
}

// RenderDraft renders the whole draft, sections in order. Staged files that
// have not been uploaded yet are shown from their local preview references
// and marked pending.
func RenderDraft(w io.Writer, d *draft.Draft, highlightTheme string) error {
	data := struct {
		Title    string
		Sections []sectionView
	}{
		Title: d.Title,
	}
	if data.Title == "" {
		data.Title = "Untitled draft"
	}

	for i := range d.Sections {
		s := &d.Sections[i]

		view := sectionView{
			ImageSrc: s.ImgURL,
			Content:  template.HTML(RenderSection(s.Content, highlightTheme)),
		}
		if s.PendingFile != nil && s.Preview() != nil {
			view.ImageSrc = "file://" + s.Preview().Path()
			view.Pending = true
		}
		data.Sections = append(data.Sections, view)
	}

	return pageTemplate.Execute(w, data)
}
