package web

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strings"
	"time"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"github.com/hpungsan/harbor/internal/db"
	"github.com/hpungsan/harbor/internal/errors"
	"github.com/hpungsan/harbor/internal/ops"
	"github.com/hpungsan/harbor/internal/tree"
	"github.com/hpungsan/harbor/internal/workspace"
)

// highlightStyle is the chroma style used for code blocks and file views.
const highlightStyle = "github"

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
	Nav     string // active nav item: "files", "search", "preview", "history"
}

// TreePageData is the template data for the file tree page.
type TreePageData struct {
	PageData
	Nodes []ops.NodeInfo
	Stats tree.Stats
	Tabs  []ops.TabSummary
}

// FilePageData is the template data for the file view page.
type FilePageData struct {
	PageData
	File     *ops.CatOutput
	Rendered template.HTML
	Markdown bool
}

// SearchPageData is the template data for the search page.
type SearchPageData struct {
	PageData
	Pattern  string
	Query    string
	Items    []ops.SearchResultItem
	Total    int
	HasMore  bool
	HasQuery bool
}

// PreviewPageData is the template data for the preview host page.
type PreviewPageData struct {
	PageData
	Preview *ops.PreviewOutput
}

// HistoryPageData is the template data for the export history page.
type HistoryPageData struct {
	PageData
	Items []db.ExportRecord
	Kind  string
}

// SettingsPageData is the template data for the settings page.
type SettingsPageData struct {
	PageData
	Settings workspace.Settings
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	markdown  goldmark.Markdown
	version   string
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
func NewRenderer(templateFS fs.FS, version string) *Renderer {
	funcMap := template.FuncMap{
		"formatTime":  formatTime,
		"formatBytes": formatBytes,
		"safeHTML":    func(s string) template.HTML { return template.HTML(s) },
		"indent":      func(path string) int { return strings.Count(path, "/") },
	}

	layoutTmpl := template.Must(template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html"))

	pages := map[string]string{
		"tree":     "tree.html",
		"file":     "file.html",
		"search":   "search.html",
		"preview":  "preview.html",
		"history":  "history.html",
		"settings": "settings.html",
		"error":    "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t := template.Must(layoutTmpl.Clone())
		template.Must(t.ParseFS(templateFS, file))
		templates[name] = t
	}

	return &Renderer{
		templates: templates,
		markdown:  newMarkdown(),
		version:   version,
	}
}

// newMarkdown builds the goldmark pipeline. Raw HTML in documents is not
// rendered.
func newMarkdown() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle(highlightStyle),
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true),
				),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)
}

// page fills the common page fields.
func (r *Renderer) page(title, nav string) PageData {
	return PageData{Title: title, Version: r.version, Nav: nav}
}

// renderPage renders a named page template with the given data and HTTP 200 status.
func (r *Renderer) renderPage(w http.ResponseWriter, name string, data any) {
	r.renderPageStatus(w, http.StatusOK, name, data)
}

// renderPageStatus renders a named page template with the given data and HTTP status code.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, status int, name string, data any) {
	t, ok := r.templates[name]
	if !ok {
		log.Printf("template %q not found", name)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		log.Printf("template execution error: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// asHarborError maps any error to a HarborError. Unknown errors become
// INTERNAL without exposing their text.
func asHarborError(err error) *errors.HarborError {
	var hErr *errors.HarborError
	if stderrors.As(err, &hErr) {
		return hErr
	}
	log.Printf("internal error: %v", err)
	return errors.NewInternal(fmt.Errorf("an internal error occurred"))
}

// renderError renders an error response with content negotiation.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	hErr := asHarborError(err)

	if strings.Contains(req.Header.Get("Accept"), "application/json") {
		renderJSONError(w, hErr)
		return
	}

	r.renderPageStatus(w, hErr.Status, "error", ErrorPageData{
		PageData:   r.page(fmt.Sprintf("Error %d", hErr.Status), ""),
		StatusCode: hErr.Status,
		Message:    hErr.Message,
	})
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderJSONError writes the JSON error envelope shared with the MCP tools.
func renderJSONError(w http.ResponseWriter, hErr *errors.HarborError) {
	errorObj := map[string]any{
		"code":    string(hErr.Code),
		"message": hErr.Message,
		"status":  hErr.Status,
	}
	if hErr.Code != errors.ErrInternal && hErr.Details != nil {
		errorObj["details"] = hErr.Details
	}
	renderJSON(w, hErr.Status, map[string]any{"error": errorObj})
}

// renderMarkdown converts markdown text to HTML.
func (r *Renderer) renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := r.markdown.Convert([]byte(md), &buf); err != nil {
		return template.HTML("<pre>" + template.HTMLEscapeString(md) + "</pre>")
	}
	return template.HTML(buf.String())
}

// renderCode highlights source in the given language by rendering it as a
// fenced block. The fence is longer than any backtick run in the source.
func (r *Renderer) renderCode(lang, src string) template.HTML {
	fence := strings.Repeat("`", max(3, longestRun(src, '`')+1))
	var b strings.Builder
	b.WriteString(fence)
	b.WriteString(lang)
	b.WriteByte('\n')
	b.WriteString(src)
	if !strings.HasSuffix(src, "\n") {
		b.WriteByte('\n')
	}
	b.WriteString(fence)
	b.WriteByte('\n')
	return r.renderMarkdown(b.String())
}

func longestRun(s string, c byte) int {
	best, run := 0, 0
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			run++
			best = max(best, run)
		} else {
			run = 0
		}
	}
	return best
}

// highlightCSS returns the stylesheet for class-based highlighting.
func highlightCSS() ([]byte, error) {
	var buf bytes.Buffer
	formatter := chromahtml.New(chromahtml.WithClasses(true))
	if err := formatter.WriteCSS(&buf, styles.Get(highlightStyle)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// formatTime formats a Unix timestamp as "2006-01-02 15:04" UTC.
func formatTime(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("2006-01-02 15:04")
}

// formatBytes formats a byte count for display.
func formatBytes(n int) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d B", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	}
}
