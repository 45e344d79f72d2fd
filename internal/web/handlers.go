package web

import (
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hpungsan/harbor/internal/archive"
	"github.com/hpungsan/harbor/internal/db"
	"github.com/hpungsan/harbor/internal/errors"
	"github.com/hpungsan/harbor/internal/ops"
	"github.com/hpungsan/harbor/internal/preview"
	"github.com/hpungsan/harbor/internal/tree"
)

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	deps     Deps
	renderer *Renderer
	hub      *Hub

	// lastPreview is released when the next preview is published or the
	// server shuts down.
	mu          sync.Mutex
	lastPreview string
}

// HandleTree handles GET /files: the file tree, optionally rooted at ?root=.
func (h *Handlers) HandleTree(w http.ResponseWriter, r *http.Request) {
	root := r.URL.Query().Get("root")
	result, err := ops.Tree(h.deps.Workspace, ops.TreeInput{Root: root})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	title := "Files"
	if root != "" {
		title = root
	}
	h.renderer.renderPage(w, "tree", TreePageData{
		PageData: h.renderer.page(title, "files"),
		Nodes:    result.Nodes,
		Stats:    result.Stats,
		Tabs:     ops.ListTabs(h.deps.Workspace).Tabs,
	})
}

// HandleFile handles GET /files/{path}: a highlighted file view. Markdown is
// rendered; folders redirect to the tree rooted at them.
func (h *Handlers) HandleFile(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "*")
	if path == "" {
		http.Redirect(w, r, "/files", http.StatusFound)
		return
	}

	info, err := ops.Find(h.deps.Workspace, ops.FindInput{Path: path})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if info.Type == string(tree.KindFolder) {
		http.Redirect(w, r, "/files?root="+url.QueryEscape(info.Path), http.StatusFound)
		return
	}

	file, err := ops.Cat(h.deps.Workspace, ops.CatInput{ID: info.ID})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	data := FilePageData{
		PageData: h.renderer.page(file.Path, "files"),
		File:     file,
		Markdown: file.Language == "markdown",
	}
	if data.Markdown {
		data.Rendered = h.renderer.renderMarkdown(file.Content)
	} else {
		data.Rendered = h.renderer.renderCode(file.Language, file.Content)
	}
	h.renderer.renderPage(w, "file", data)
}

// HandleSearch handles GET /search: glob and content search.
func (h *Handlers) HandleSearch(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("pattern")
	query := r.URL.Query().Get("q")

	data := SearchPageData{
		PageData: h.renderer.page("Search", "search"),
		Pattern:  pattern,
		Query:    query,
		HasQuery: pattern != "" || query != "",
	}
	if !data.HasQuery {
		h.renderer.renderPage(w, "search", data)
		return
	}

	result, err := ops.Search(h.deps.Workspace, ops.SearchInput{
		Pattern: pattern,
		Query:   query,
		Type:    r.URL.Query().Get("type"),
		Limit:   parseIntParam(r, "limit", ops.DefaultSearchLimit),
		Offset:  parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	data.Items = result.Items
	data.Total = result.Total
	data.HasMore = result.HasMore
	h.renderer.renderPage(w, "search", data)
}

// HandlePreviewPage handles GET /preview: publishes a fresh preview document
// and renders the host page that frames it.
func (h *Handlers) HandlePreviewPage(w http.ResponseWriter, r *http.Request) {
	result, err := h.publishPreview(false)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.renderer.renderPage(w, "preview", PreviewPageData{
		PageData: h.renderer.page("Preview", "preview"),
		Preview:  result,
	})
}

// publishPreview composes and publishes the preview, releasing the previous
// document and clearing connected consoles.
func (h *Handlers) publishPreview(includeBody bool) (*ops.PreviewOutput, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	result, err := ops.Preview(h.deps.Workspace, h.deps.Previews, ops.PreviewInput{
		Previous:    h.lastPreview,
		IncludeBody: includeBody,
	})
	if err != nil {
		return nil, err
	}
	h.lastPreview = result.Handle
	if h.hub != nil {
		h.hub.Clear()
	}
	return result, nil
}

// releasePreview frees the current preview document.
func (h *Handlers) releasePreview() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.lastPreview == "" {
		return
	}
	h.deps.Previews.Release(h.lastPreview)
	h.lastPreview = ""
}

// HandlePreviewDocument handles GET /preview/{handle}: the composed document,
// served under its own content security policy.
func (h *Handlers) HandlePreviewDocument(w http.ResponseWriter, r *http.Request) {
	handle := chi.URLParam(r, "handle")
	doc, ok := h.deps.Previews.Get(handle)
	if !ok {
		http.NotFound(w, r)
		return
	}

	etag := doc.ETag
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Content-Security-Policy", preview.ContentSecurityPolicy)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "SAMEORIGIN")
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc.Body))
}

// HandleHistory handles GET /history: recent exports and gist pushes.
func (h *Handlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	result, err := ops.History(r.Context(), h.deps.DB, ops.HistoryInput{
		Kind:  kind,
		Limit: parseIntParam(r, "limit", ops.DefaultHistoryLimit),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.renderer.renderPage(w, "history", HistoryPageData{
		PageData: h.renderer.page("History", "history"),
		Items:    result.Items,
		Kind:     kind,
	})
}

// HandleSettings handles GET /settings.
func (h *Handlers) HandleSettings(w http.ResponseWriter, r *http.Request) {
	h.renderer.renderPage(w, "settings", SettingsPageData{
		PageData: h.renderer.page("Settings", "settings"),
		Settings: ops.GetSettings(h.deps.Workspace),
	})
}

// HandleSettingsUpdate handles POST /settings: the settings form. Checkboxes
// absent from the form are unchecked.
func (h *Handlers) HandleSettingsUpdate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	input := ops.UpdateSettingsInput{}
	if theme := r.FormValue("theme"); theme != "" {
		input.Theme = &theme
	}
	for name, dst := range map[string]**int{"fontSize": &input.FontSize, "tabSize": &input.TabSize} {
		v := r.FormValue(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			h.renderer.renderError(w, r, errors.NewInvalidRequest(name+" must be an integer"))
			return
		}
		*dst = &n
	}
	for name, dst := range map[string]**bool{
		"wordWrap":     &input.WordWrap,
		"minimap":      &input.Minimap,
		"autoSave":     &input.AutoSave,
		"formatOnSave": &input.FormatOnSave,
	} {
		on := r.FormValue(name) == "on" || r.FormValue(name) == "true"
		*dst = &on
	}

	if _, err := ops.UpdateSettings(r.Context(), h.deps.Workspace, input); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	http.Redirect(w, r, "/settings", http.StatusSeeOther)
}

// HandleExportDownload handles GET /export.zip: the workspace as a ZIP
// download.
func (h *Handlers) HandleExportDownload(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+archive.DefaultName+`"`)

	res, err := archive.Write(w, h.deps.Workspace.Files())
	if err != nil {
		// Headers are gone; all that is left is to log.
		log.Printf("export download: %v", err)
		return
	}
	if h.deps.DB != nil {
		rec := &db.ExportRecord{
			Kind:       db.ExportArchive,
			Target:     "download",
			Files:      res.Files,
			ExportedAt: time.Now().Unix(),
		}
		if err := db.RecordExport(r.Context(), h.deps.DB, rec); err != nil {
			log.Printf("export download: record history: %v", err)
		}
	}
}

// HandleHighlightCSS handles GET /static/highlight.css.
func (h *Handlers) HandleHighlightCSS(w http.ResponseWriter, r *http.Request) {
	css, err := highlightCSS()
	if err != nil {
		h.renderer.renderError(w, r, errors.NewInternal(err))
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(css)
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// parseBoolParam parses a boolean query parameter.
func parseBoolParam(r *http.Request, name string) bool {
	s := strings.ToLower(r.URL.Query().Get(name))
	return s == "true" || s == "1"
}
