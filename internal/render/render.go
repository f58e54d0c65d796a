// Package render turns resume markdown into HTML for the preview pane and the
// viewer page.
package render

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/debemdeboas/resumark/internal/theme"
	"github.com/debemdeboas/resumark/internal/util"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	md_html "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/maypok86/otter"
	"github.com/mmarkdown/mmark/v2/lang"
	"github.com/mmarkdown/mmark/v2/mparser"
	"github.com/mmarkdown/mmark/v2/render/mhtml"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// EmptyPreview is shown instead of rendered output when there is no content.
const EmptyPreview = "Nothing to preview yet. Start writing your resume."

var renderLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	renderLogger = l
}

func HighlightCode(code, language, highlightTheme string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return html.EscapeString(code)
	}

	style := styles.Get(highlightTheme)
	if style == nil {
		style = styles.Fallback
	}

	var buf strings.Builder
	if err := theme.GetFormatter().Format(&buf, style, iterator); err != nil {
		return html.EscapeString(code)
	}

	return buf.String()
}

// RenderMarkdown renders a resume with mmark. The "%%%" front matter block
// is not part of the output; its language field selects the mmark language.
func RenderMarkdown(md []byte, highlightTheme string) []byte {
	language := "en"
	if fm, err := util.GetFrontMatter(md); err == nil {
		language = fm.Language
	}

	md = markdown.NormalizeNewlines(util.StripFrontMatter(md))

	p := parser.NewWithExtensions(mparser.Extensions | parser.NoIntraEmphasis)
	init := mparser.NewInitial("")
	p.Opts = parser.Options{
		ParserHook:    mparser.Hook,
		ReadIncludeFn: init.ReadInclude,
		Flags:         parser.FlagsNone,
	}

	doc := markdown.Parse(md, p)
	mparser.AddIndex(doc)

	mhtmlOpts := mhtml.RendererOptions{
		Language: lang.New(language),
	}

	opts := md_html.RendererOptions{
		Flags: md_html.CommonFlags | md_html.HrefTargetBlank | md_html.FootnoteNoHRTag | md_html.FootnoteReturnLinks,
		RenderNodeHook: func(w io.Writer, node ast.Node, entering bool) (ast.WalkStatus, bool) {
			if code, ok := node.(*ast.CodeBlock); ok && entering {
				var lang string
				if info := code.Info; info != nil {
					lang = string(info)
				}
				fmt.Fprintf(w, "<div class=\"highlight\">%s</div>", HighlightCode(string(code.Literal), lang, highlightTheme))
				return ast.GoToNext, true
			}

			return mhtmlOpts.RenderHook(w, node, entering)
		},
	}

	return markdown.Render(doc, md_html.NewRenderer(opts))
}

// Renderer caches rendered HTML by content hash and syntax theme.
type Renderer struct {
	cache otter.Cache[string, []byte]
	group singleflight.Group
}

func NewRenderer(size int) (*Renderer, error) {
	c, err := otter.MustBuilder[string, []byte](size).Build()
	if err != nil {
		return nil, fmt.Errorf("error building render cache: %w", err)
	}
	return &Renderer{cache: c}, nil
}

func cacheKey(contentHash, highlightTheme string) string {
	return contentHash + ":" + highlightTheme
}

// RenderCached renders md, reusing the cached output for the same content
// hash and theme. Concurrent misses for one key render once.
func (r *Renderer) RenderCached(md []byte, contentHash, highlightTheme string) []byte {
	if contentHash == "" {
		renderLogger.Warn().Msg("Content hash is empty, skipping cache check")
		return RenderMarkdown(md, highlightTheme)
	}

	key := cacheKey(contentHash, highlightTheme)
	if cached, ok := r.cache.Get(key); ok {
		renderLogger.Debug().Str("contentHash", contentHash).Str("highlightTheme", highlightTheme).Msg("Cache hit for rendered markdown")
		return cached
	}

	v, _, _ := r.group.Do(key, func() (interface{}, error) {
		renderLogger.Debug().Str("contentHash", contentHash).Str("highlightTheme", highlightTheme).Msg("Cache miss for rendered markdown")
		rendered := RenderMarkdown(md, highlightTheme)
		r.cache.Set(key, rendered)
		return rendered, nil
	})

	return v.([]byte)
}

// Preview renders content for the editor preview pane, or the empty preview
// placeholder when content is blank.
func (r *Renderer) Preview(content []byte, highlightTheme string) template.HTML {
	if len(bytes.TrimSpace(content)) == 0 {
		return template.HTML(`<p class="preview-empty">` + EmptyPreview + `</p>`)
	}

	return template.HTML(r.RenderCached(content, util.ContentHash(content), highlightTheme))
}
