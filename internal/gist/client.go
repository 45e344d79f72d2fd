package gist

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hpungsan/harbor/internal/errors"
)

// DefaultBaseURL is the public GitHub API.
const DefaultBaseURL = "https://api.github.com"

// DefaultDescription is used when a gist is pushed without one.
const DefaultDescription = "Harbor Workspace"

const service = "GitHub API"

// Gist is a gist as returned by the API.
type Gist struct {
	ID          string `json:"id"`
	HTMLURL     string `json:"html_url"`
	Description string `json:"description"`
	Public      bool   `json:"public"`
	Files       Files  `json:"files"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// Client is a minimal Gist REST client. Every request carries
// "Authorization: token <t>".
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client

	// gets de-duplicates concurrent Get calls for the same id.
	gets singleflight.Group
}

// NewClient creates a client. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type createRequest struct {
	Description string `json:"description"`
	Public      bool   `json:"public"`
	Files       Files  `json:"files"`
}

type updateRequest struct {
	Description string `json:"description,omitempty"`
	Files       Files  `json:"files"`
}

// Create uploads files as a new gist.
func (c *Client) Create(ctx context.Context, description string, public bool, files Files) (*Gist, error) {
	var g Gist
	err := c.do(ctx, http.MethodPost, "/gists", createRequest{
		Description: description,
		Public:      public,
		Files:       files,
	}, &g)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// Update replaces the given files of an existing gist. An empty description
// leaves the current one.
func (c *Client) Update(ctx context.Context, id, description string, files Files) (*Gist, error) {
	var g Gist
	err := c.do(ctx, http.MethodPatch, "/gists/"+url.PathEscape(id), updateRequest{
		Description: description,
		Files:       files,
	}, &g)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// Get fetches one gist. Concurrent calls for the same id share a single
// request and its result.
func (c *Client) Get(ctx context.Context, id string) (*Gist, error) {
	v, err, _ := c.gets.Do(id, func() (any, error) {
		var g Gist
		if err := c.do(ctx, http.MethodGet, "/gists/"+url.PathEscape(id), nil, &g); err != nil {
			return nil, err
		}
		return &g, nil
	})
	if err != nil {
		return nil, err
	}
	// Callers may modify the result; give each its own copy.
	g := *v.(*Gist)
	g.Files = append(Files(nil), g.Files...)
	return &g, nil
}

// List returns the authenticated user's gists. File contents are not
// included by the API.
func (c *Client) List(ctx context.Context) ([]Gist, error) {
	var gists []Gist
	if err := c.do(ctx, http.MethodGet, "/gists", nil, &gists); err != nil {
		return nil, err
	}
	return gists, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.NewInternal(fmt.Errorf("encode request: %w", err))
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return errors.NewInternal(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Authorization", "token "+c.Token)
	req.Header.Set("Accept", "application/vnd.github+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
			return errors.NewCancelled("gist request")
		}
		return errors.NewUpstream(service, 0, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return errors.NewUpstream(service, resp.StatusCode, fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.NewUpstream(service, resp.StatusCode, fmt.Sprintf("malformed response: %v", err))
	}
	return nil
}
