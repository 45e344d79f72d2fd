package web

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/hpungsan/harbor/internal/errors"
	"github.com/hpungsan/harbor/internal/ops"
)

// maxBodyBytes bounds API request bodies: the largest file plus JSON framing.
const maxBodyBytes = ops.MaxFileBytes + 1<<20

// apiOrigins are the browser origins allowed to call the API cross-origin,
// such as an editor front end served by a dev server.
var apiOrigins = []string{"http://localhost:*", "http://127.0.0.1:*"}

func (h *Handlers) apiRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   apiOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"ETag"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/tree", h.apiTree)
	r.Get("/search", h.apiSearch)

	r.Route("/nodes", func(r chi.Router) {
		r.Get("/", h.apiFind)
		r.Post("/", h.apiCreate)
		r.Patch("/", h.apiRename)
		r.Delete("/", h.apiDelete)
	})
	r.Route("/files", func(r chi.Router) {
		r.Get("/", h.apiCat)
		r.Put("/", h.apiUpdate)
		r.Post("/save", h.apiSave)
	})
	r.Route("/tabs", func(r chi.Router) {
		r.Get("/", h.apiTabs)
		r.Post("/", h.apiOpenTab)
		r.Delete("/", h.apiCloseTab)
	})
	r.Get("/settings", h.apiSettings)
	r.Patch("/settings", h.apiUpdateSettings)

	r.Post("/preview", h.apiPreview)
	r.Get("/export", h.HandleExportDownload)
	r.Get("/history", h.apiHistory)

	r.Route("/gist", func(r chi.Router) {
		r.Post("/push", h.apiGistPush)
		r.Post("/pull", h.apiGistPull)
		r.Get("/diff", h.apiGistDiff)
		r.Get("/list", h.apiGistList)
		r.Put("/token", h.apiSetToken)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		renderJSONError(w, errors.NewNotFound(r.URL.Path))
	})
	return r
}

// decodeBody decodes a JSON request body into T. Unknown fields are rejected.
func decodeBody[T any](w http.ResponseWriter, r *http.Request) (T, error) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, errors.NewInvalidRequest(fmt.Sprintf("invalid request body: %v", err))
	}
	return v, nil
}

// respond writes result, or the error envelope when err is set.
func respond(w http.ResponseWriter, status int, result any, err error) {
	if err != nil {
		renderJSONError(w, asHarborError(err))
		return
	}
	renderJSON(w, status, result)
}

func addressQuery(r *http.Request) (id, path string) {
	q := r.URL.Query()
	return q.Get("id"), q.Get("path")
}

// API request bodies

type createBody struct {
	ParentID   string  `json:"parent_id,omitempty"`
	ParentPath string  `json:"parent_path,omitempty"`
	Name       string  `json:"name"`
	Type       string  `json:"type,omitempty"`
	Content    *string `json:"content,omitempty"`
}

type renameBody struct {
	ID   string `json:"id,omitempty"`
	Path string `json:"path,omitempty"`
	Name string `json:"name"`
}

type updateBody struct {
	ID      string  `json:"id,omitempty"`
	Path    string  `json:"path,omitempty"`
	Content *string `json:"content"`
	Save    bool    `json:"save,omitempty"`
}

type addressBody struct {
	ID   string `json:"id,omitempty"`
	Path string `json:"path,omitempty"`
}

type settingsBody struct {
	Theme        *string `json:"theme,omitempty"`
	FontSize     *int    `json:"fontSize,omitempty"`
	TabSize      *int    `json:"tabSize,omitempty"`
	WordWrap     *bool   `json:"wordWrap,omitempty"`
	Minimap      *bool   `json:"minimap,omitempty"`
	AutoSave     *bool   `json:"autoSave,omitempty"`
	FormatOnSave *bool   `json:"formatOnSave,omitempty"`
}

type gistPushBody struct {
	ID          string `json:"id,omitempty"`
	Description string `json:"description,omitempty"`
	Public      bool   `json:"public,omitempty"`
	Token       string `json:"token,omitempty"`
}

type gistPullBody struct {
	ID    string `json:"id"`
	Token string `json:"token,omitempty"`
}

type tokenBody struct {
	Token string `json:"token"`
}

// API handlers

func (h *Handlers) apiTree(w http.ResponseWriter, r *http.Request) {
	result, err := ops.Tree(h.deps.Workspace, ops.TreeInput{Root: r.URL.Query().Get("root")})
	respond(w, http.StatusOK, result, err)
}

func (h *Handlers) apiSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := ops.Search(h.deps.Workspace, ops.SearchInput{
		Pattern: q.Get("pattern"),
		Query:   q.Get("q"),
		Type:    q.Get("type"),
		Limit:   parseIntParam(r, "limit", ops.DefaultSearchLimit),
		Offset:  parseIntParam(r, "offset", 0),
	})
	respond(w, http.StatusOK, result, err)
}

func (h *Handlers) apiFind(w http.ResponseWriter, r *http.Request) {
	id, path := addressQuery(r)
	result, err := ops.Find(h.deps.Workspace, ops.FindInput{ID: id, Path: path})
	respond(w, http.StatusOK, result, err)
}

func (h *Handlers) apiCat(w http.ResponseWriter, r *http.Request) {
	id, path := addressQuery(r)
	result, err := ops.Cat(h.deps.Workspace, ops.CatInput{ID: id, Path: path})
	respond(w, http.StatusOK, result, err)
}

func (h *Handlers) apiCreate(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody[createBody](w, r)
	if err != nil {
		respond(w, 0, nil, err)
		return
	}
	result, err := ops.CreateNode(r.Context(), h.deps.Workspace, ops.CreateNodeInput{
		ParentID:   body.ParentID,
		ParentPath: body.ParentPath,
		Name:       body.Name,
		Type:       body.Type,
		Content:    body.Content,
	})
	status := http.StatusOK
	if err == nil && result.Applied {
		status = http.StatusCreated
	}
	respond(w, status, result, err)
}

func (h *Handlers) apiRename(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody[renameBody](w, r)
	if err != nil {
		respond(w, 0, nil, err)
		return
	}
	result, err := ops.RenameNode(r.Context(), h.deps.Workspace, ops.RenameNodeInput{
		ID:   body.ID,
		Path: body.Path,
		Name: body.Name,
	})
	respond(w, http.StatusOK, result, err)
}

func (h *Handlers) apiDelete(w http.ResponseWriter, r *http.Request) {
	id, path := addressQuery(r)
	result, err := ops.DeleteNode(r.Context(), h.deps.Workspace, ops.DeleteNodeInput{ID: id, Path: path})
	respond(w, http.StatusOK, result, err)
}

func (h *Handlers) apiUpdate(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody[updateBody](w, r)
	if err != nil {
		respond(w, 0, nil, err)
		return
	}
	if body.Content == nil {
		respond(w, 0, nil, errors.NewInvalidRequest("content is required"))
		return
	}
	result, err := ops.UpdateFile(r.Context(), h.deps.Workspace, ops.UpdateFileInput{
		ID:      body.ID,
		Path:    body.Path,
		Content: *body.Content,
		Save:    body.Save,
	})
	respond(w, http.StatusOK, result, err)
}

func (h *Handlers) apiSave(w http.ResponseWriter, r *http.Request) {
	var body addressBody
	if r.ContentLength != 0 {
		var err error
		if body, err = decodeBody[addressBody](w, r); err != nil {
			respond(w, 0, nil, err)
			return
		}
	}
	result, err := ops.SaveFile(r.Context(), h.deps.Workspace, ops.SaveFileInput{ID: body.ID, Path: body.Path})
	respond(w, http.StatusOK, result, err)
}

func (h *Handlers) apiTabs(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, ops.ListTabs(h.deps.Workspace), nil)
}

func (h *Handlers) apiOpenTab(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody[addressBody](w, r)
	if err != nil {
		respond(w, 0, nil, err)
		return
	}
	result, err := ops.OpenTab(r.Context(), h.deps.Workspace, ops.OpenTabInput{ID: body.ID, Path: body.Path})
	respond(w, http.StatusOK, result, err)
}

func (h *Handlers) apiCloseTab(w http.ResponseWriter, r *http.Request) {
	id, path := addressQuery(r)
	result, err := ops.CloseTab(r.Context(), h.deps.Workspace, ops.CloseTabInput{ID: id, Path: path})
	respond(w, http.StatusOK, result, err)
}

func (h *Handlers) apiSettings(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, ops.GetSettings(h.deps.Workspace), nil)
}

func (h *Handlers) apiUpdateSettings(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody[settingsBody](w, r)
	if err != nil {
		respond(w, 0, nil, err)
		return
	}
	result, err := ops.UpdateSettings(r.Context(), h.deps.Workspace, ops.UpdateSettingsInput{
		Theme:        body.Theme,
		FontSize:     body.FontSize,
		TabSize:      body.TabSize,
		WordWrap:     body.WordWrap,
		Minimap:      body.Minimap,
		AutoSave:     body.AutoSave,
		FormatOnSave: body.FormatOnSave,
	})
	respond(w, http.StatusOK, result, err)
}

func (h *Handlers) apiPreview(w http.ResponseWriter, r *http.Request) {
	result, err := h.publishPreview(parseBoolParam(r, "include_body"))
	if err == nil {
		w.Header().Set("ETag", result.ETag)
	}
	respond(w, http.StatusOK, result, err)
}

func (h *Handlers) apiHistory(w http.ResponseWriter, r *http.Request) {
	result, err := ops.History(r.Context(), h.deps.DB, ops.HistoryInput{
		Kind:  r.URL.Query().Get("kind"),
		Limit: parseIntParam(r, "limit", ops.DefaultHistoryLimit),
	})
	respond(w, http.StatusOK, result, err)
}

func (h *Handlers) apiGistPush(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody[gistPushBody](w, r)
	if err != nil {
		respond(w, 0, nil, err)
		return
	}
	result, err := ops.GistPush(r.Context(), h.deps.Workspace, h.deps.Gist, ops.GistPushInput{
		ID:          body.ID,
		Description: body.Description,
		Public:      body.Public,
		Token:       body.Token,
	})
	status := http.StatusOK
	if err == nil && result.Created {
		status = http.StatusCreated
	}
	respond(w, status, result, err)
}

func (h *Handlers) apiGistPull(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody[gistPullBody](w, r)
	if err != nil {
		respond(w, 0, nil, err)
		return
	}
	result, err := ops.GistPull(r.Context(), h.deps.Workspace, h.deps.Gist, ops.GistPullInput{
		ID:    body.ID,
		Token: body.Token,
	})
	respond(w, http.StatusOK, result, err)
}

func (h *Handlers) apiGistDiff(w http.ResponseWriter, r *http.Request) {
	result, err := ops.GistDiff(r.Context(), h.deps.Workspace, h.deps.Gist, ops.GistDiffInput{
		ID: r.URL.Query().Get("id"),
	})
	respond(w, http.StatusOK, result, err)
}

func (h *Handlers) apiGistList(w http.ResponseWriter, r *http.Request) {
	result, err := ops.GistList(r.Context(), h.deps.Gist, ops.GistListInput{})
	respond(w, http.StatusOK, result, err)
}

func (h *Handlers) apiSetToken(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody[tokenBody](w, r)
	if err != nil {
		respond(w, 0, nil, err)
		return
	}
	result, err := ops.SetToken(r.Context(), h.deps.Gist.Store, ops.SetTokenInput{Token: body.Token})
	respond(w, http.StatusOK, result, err)
}

