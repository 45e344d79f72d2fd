package ops

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/hpungsan/harbor/internal/db"
	"github.com/hpungsan/harbor/internal/errors"
	"github.com/hpungsan/harbor/internal/gist"
	"github.com/hpungsan/harbor/internal/tree"
	"github.com/hpungsan/harbor/internal/workspace"
)

// GistEnv carries what the gist operations need besides the workspace.
type GistEnv struct {
	BaseURL  string          // API root; empty uses gist.DefaultBaseURL
	EnvToken string          // token from the environment, if any
	Store    workspace.Store // stored token lookup and save
	DB       *sql.DB         // optional export history

	// Client, when set, is reused for calls whose resolved token matches
	// its own, so concurrent pulls of one gist share a request.
	Client *gist.Client
}

func (e GistEnv) client(ctx context.Context, explicit string) (*gist.Client, string, error) {
	token, err := gist.ResolveToken(ctx, e.Store, explicit, e.EnvToken)
	if err != nil {
		return nil, "", err
	}
	if e.Client != nil && e.Client.Token == token {
		return e.Client, token, nil
	}
	return gist.NewClient(e.BaseURL, token), token, nil
}

// GistPushInput contains parameters for the GistPush operation.
type GistPushInput struct {
	ID          string // optional; updates this gist instead of creating one
	Description string // default: gist.DefaultDescription
	Public      bool
	Token       string // optional; falls back to env, then the stored token
}

// GistPushOutput contains the result of the GistPush operation.
type GistPushOutput struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	Files   int    `json:"files"`
	Created bool   `json:"created"`
}

// GistPush uploads every file of the forest, named by its full path. After a
// successful push the token used is stored for later calls.
func GistPush(ctx context.Context, ws *workspace.Workspace, env GistEnv, input GistPushInput) (*GistPushOutput, error) {
	files := gist.Flatten(ws.Files())
	if len(files) == 0 {
		return nil, errors.NewInvalidRequest("no files to save")
	}
	client, token, err := env.client(ctx, input.Token)
	if err != nil {
		return nil, err
	}
	description := strings.TrimSpace(input.Description)

	var g *gist.Gist
	created := input.ID == ""
	if created {
		if description == "" {
			description = gist.DefaultDescription
		}
		g, err = client.Create(ctx, description, input.Public, files)
	} else {
		g, err = client.Update(ctx, input.ID, description, files)
	}
	if err != nil {
		return nil, err
	}

	if err := gist.SaveToken(ctx, env.Store, token); err != nil {
		return nil, err
	}
	recordExport(ctx, env.DB, db.ExportGist, g.ID, len(files), time.Now())

	return &GistPushOutput{
		ID:      g.ID,
		URL:     g.HTMLURL,
		Files:   len(files),
		Created: created,
	}, nil
}

// GistPullInput contains parameters for the GistPull operation.
type GistPullInput struct {
	ID    string // required
	Token string
}

// GistPullOutput contains the result of the GistPull operation.
type GistPullOutput struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	Stats       tree.Stats `json:"stats"`
}

// GistPull replaces the forest with the files of a gist. Names containing "/"
// are rebuilt into folders. All tabs close.
func GistPull(ctx context.Context, ws *workspace.Workspace, env GistEnv, input GistPullInput) (*GistPullOutput, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, errors.NewInvalidRequest("gist id is required")
	}
	client, _, err := env.client(ctx, input.Token)
	if err != nil {
		return nil, err
	}
	g, err := client.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	forest := gist.Reconstruct(g.Files)
	if err := ws.ReplaceForest(ctx, forest); err != nil {
		return nil, err
	}
	return &GistPullOutput{
		ID:          g.ID,
		Description: g.Description,
		Stats:       tree.Count(forest),
	}, nil
}

// GistDiffInput contains parameters for the GistDiff operation.
type GistDiffInput struct {
	ID    string // required
	Token string
}

// GistDiffOutput contains the result of the GistDiff operation.
type GistDiffOutput struct {
	ID      string          `json:"id"`
	Changed int             `json:"changed"`
	Files   []gist.FileDiff `json:"files"`
}

// GistDiff compares the local files with a gist without changing either.
func GistDiff(ctx context.Context, ws *workspace.Workspace, env GistEnv, input GistDiffInput) (*GistDiffOutput, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, errors.NewInvalidRequest("gist id is required")
	}
	client, _, err := env.client(ctx, input.Token)
	if err != nil {
		return nil, err
	}
	g, err := client.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	diffs := gist.Diff(gist.Flatten(ws.Files()), g.Files)
	changed := 0
	for _, d := range diffs {
		if d.Status != gist.Unchanged {
			changed++
		}
	}
	return &GistDiffOutput{ID: g.ID, Changed: changed, Files: diffs}, nil
}

// GistListInput contains parameters for the GistList operation.
type GistListInput struct {
	Token string
}

// GistSummary is one gist in a listing.
type GistSummary struct {
	ID          string `json:"id" yaml:"id"`
	Description string `json:"description" yaml:"description"`
	URL         string `json:"url" yaml:"url"`
	Public      bool   `json:"public" yaml:"public"`
	Files       int    `json:"files" yaml:"files"`
	UpdatedAt   string `json:"updated_at" yaml:"updated_at"`
}

// GistListOutput contains the result of the GistList operation.
type GistListOutput struct {
	Items []GistSummary `json:"items" yaml:"items"`
}

// GistList lists the authenticated user's gists.
func GistList(ctx context.Context, env GistEnv, input GistListInput) (*GistListOutput, error) {
	client, _, err := env.client(ctx, input.Token)
	if err != nil {
		return nil, err
	}
	gists, err := client.List(ctx)
	if err != nil {
		return nil, err
	}
	out := &GistListOutput{Items: make([]GistSummary, 0, len(gists))}
	for _, g := range gists {
		out.Items = append(out.Items, GistSummary{
			ID:          g.ID,
			Description: g.Description,
			URL:         g.HTMLURL,
			Public:      g.Public,
			Files:       len(g.Files),
			UpdatedAt:   g.UpdatedAt,
		})
	}
	return out, nil
}

// SetTokenInput contains parameters for the SetToken operation.
type SetTokenInput struct {
	Token string // required
}

// SetTokenOutput contains the result of the SetToken operation.
type SetTokenOutput struct {
	Stored bool `json:"stored"`
}

// SetToken stores the GitHub token. It is kept in cleartext.
func SetToken(ctx context.Context, store workspace.Store, input SetTokenInput) (*SetTokenOutput, error) {
	if err := gist.SaveToken(ctx, store, input.Token); err != nil {
		return nil, err
	}
	return &SetTokenOutput{Stored: true}, nil
}
