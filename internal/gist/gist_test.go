package gist

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/harbor/internal/errors"
	"github.com/hpungsan/harbor/internal/tree"
	"github.com/hpungsan/harbor/internal/workspace"
)

func TestFiles_JSONKeepsOrder(t *testing.T) {
	files := Files{
		{Filename: "z.js", Content: "z"},
		{Filename: "a/b.css", Content: "b"},
		{Filename: "m.md", Content: "m"},
	}
	data, err := json.Marshal(files)
	require.NoError(t, err)
	require.Equal(t, `{"z.js":{"content":"z"},"a/b.css":{"content":"b"},"m.md":{"content":"m"}}`, string(data))

	var back Files
	require.NoError(t, json.Unmarshal(data, &back))
	require.Equal(t, files, back)
}

func TestFiles_UnmarshalAPIShape(t *testing.T) {
	raw := `{"b.txt":{"filename":"b.txt","type":"text/plain","content":"bee","truncated":false},"gone.txt":null,"a.txt":{"content":"ay"}}`
	var files Files
	require.NoError(t, json.Unmarshal([]byte(raw), &files))
	require.Equal(t, []string{"b.txt", "a.txt"}, files.Names())
	content, ok := files.Get("a.txt")
	require.True(t, ok)
	require.Equal(t, "ay", content)

	require.Error(t, json.Unmarshal([]byte(`["a"]`), &files))
}

func TestFiles_RepeatedNamesKeepLastContent(t *testing.T) {
	fs := Files{{"a", "1"}, {"b", "x"}, {"a", "2"}}

	data, err := json.Marshal(fs)
	require.NoError(t, err)
	require.Equal(t, `{"a":{"content":"2"},"b":{"content":"x"}}`, string(data))

	got, ok := fs.Get("a")
	require.True(t, ok)
	require.Equal(t, "2", got)
	require.Equal(t, Files{{"a", "2"}, {"b", "x"}}, fs.Collapse())
}

func TestFlatten_SameNameSiblings(t *testing.T) {
	var f tree.Forest
	f, _ = tree.Insert(f, tree.Root, tree.NewFile("a.js", "first"))
	f, _ = tree.Insert(f, tree.Root, tree.NewFile("b.js", "b"))
	f, _ = tree.Insert(f, tree.Root, tree.NewFile("a.js", "second"))

	files := Flatten(f)
	require.Equal(t, Files{{"a.js", "second"}, {"b.js", "b"}}, files)

	data, err := json.Marshal(files)
	require.NoError(t, err)
	require.Equal(t, `{"a.js":{"content":"second"},"b.js":{"content":"b"}}`, string(data))

	diffs := Diff(Files{{"a.js", "first"}, {"a.js", "second"}}, Files{{"a.js", "second"}})
	require.Len(t, diffs, 1)
	require.Equal(t, Unchanged, diffs[0].Status)
}

func TestFlatten(t *testing.T) {
	var f tree.Forest
	src := tree.NewFolder("src")
	empty := tree.NewFolder("empty")
	f, _ = tree.Insert(f, tree.Root, src)
	f, _ = tree.Insert(f, src.ID, tree.NewFile("a.js", "let x=1;"))
	f, _ = tree.Insert(f, src.ID, empty)
	f, _ = tree.Insert(f, tree.Root, tree.NewFile("index.html", "<p/>"))
	f, _ = tree.Insert(f, tree.Root, &tree.File{ID: tree.NewID(), Name: "unloaded"})

	got := Flatten(f)
	require.Equal(t, Files{
		{Filename: "src/a.js", Content: "let x=1;"},
		{Filename: "index.html", Content: "<p/>"},
	}, got)
}

func TestReconstruct_SharesFolders(t *testing.T) {
	files := Files{
		{Filename: "src/a.js", Content: "a"},
		{Filename: "README.md", Content: "r"},
		{Filename: "src/lib/b.js", Content: "b"},
		{Filename: "src/c.js", Content: "c"},
	}
	f := Reconstruct(files)

	require.Len(t, f, 2)
	src, ok := f[0].(*tree.Folder)
	require.True(t, ok)
	require.Equal(t, "src", src.Name)
	names := make([]string, 0, len(src.Children))
	for _, n := range src.Children {
		names = append(names, n.NodeName())
	}
	require.Equal(t, []string{"a.js", "lib", "c.js"}, names)

	b := tree.FindByPath(f, "src/lib/b.js")
	require.NotNil(t, b)
	require.Equal(t, "b", b.(*tree.File).Text())
}

// shape reduces a forest to names, kinds and contents for comparison.
func shape(f tree.Forest) []string {
	var out []string
	_ = tree.Walk(f, func(path string, n tree.Node) error {
		if file, ok := n.(*tree.File); ok {
			out = append(out, "F:"+path+"="+file.Text())
		} else {
			out = append(out, "D:"+path)
		}
		return nil
	})
	return out
}

func TestFlattenReconstruct_RoundTrip(t *testing.T) {
	var f tree.Forest
	src := tree.NewFolder("src")
	lib := tree.NewFolder("lib")
	f, _ = tree.Insert(f, tree.Root, src)
	f, _ = tree.Insert(f, src.ID, tree.NewFile("a.js", "a"))
	f, _ = tree.Insert(f, src.ID, lib)
	f, _ = tree.Insert(f, lib.ID, tree.NewFile("b.js", "b"))
	f, _ = tree.Insert(f, tree.Root, tree.NewFile("index.html", "i"))

	back := Reconstruct(Flatten(f))
	require.Equal(t, shape(f), shape(back))
	require.NotEqual(t, f[0].NodeID(), back[0].NodeID())
}

func TestScenario_EditThenFlatten(t *testing.T) {
	var f tree.Forest
	src := tree.NewFolder("src")
	f, _ = tree.Insert(f, tree.Root, src)
	a := tree.NewFile("a.js", "let x=1;")
	f, _ = tree.Insert(f, src.ID, a)
	f, _ = tree.UpdateContent(f, a.ID, "let x=2;")

	file, ok := tree.FindFile(f, a.ID)
	require.True(t, ok)
	require.Equal(t, "let x=2;", file.Text())
	require.True(t, file.Unsaved)

	data, err := json.Marshal(Flatten(f))
	require.NoError(t, err)
	require.JSONEq(t, `{"src/a.js":{"content":"let x=2;"}}`, string(data))
}

func TestDiff(t *testing.T) {
	local := Files{
		{Filename: "same.txt", Content: "x\n"},
		{Filename: "changed.txt", Content: "one\ntwo\nthree\n"},
		{Filename: "new.txt", Content: "n\n"},
	}
	remote := Files{
		{Filename: "changed.txt", Content: "one\n2\nthree\n"},
		{Filename: "same.txt", Content: "x\n"},
		{Filename: "old.txt", Content: "o\n"},
	}
	diffs := Diff(local, remote)
	require.Len(t, diffs, 4)

	byName := make(map[string]FileDiff)
	for _, d := range diffs {
		byName[d.Filename] = d
	}
	require.Equal(t, Unchanged, byName["same.txt"].Status)
	require.Equal(t, Added, byName["new.txt"].Status)
	require.Equal(t, Removed, byName["old.txt"].Status)

	changed := byName["changed.txt"]
	require.Equal(t, Modified, changed.Status)
	require.Equal(t, 1, changed.Additions)
	require.Equal(t, 1, changed.Deletions)
	require.Contains(t, changed.Patch, "-2\n")
	require.Contains(t, changed.Patch, "+two\n")
	require.Contains(t, changed.Patch, " one\n")

	require.Equal(t, "old.txt", diffs[3].Filename)
}

func TestClient_CreateAndGet(t *testing.T) {
	var gotAuth, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/gists":
			body, _ := io.ReadAll(r.Body)
			gotBody = string(body)
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"id":"g1","html_url":"https://gist.example/g1","files":{"a.js":{"content":"a"}}}`)
		case r.Method == http.MethodGet && r.URL.Path == "/gists/g1":
			_, _ = io.WriteString(w, `{"id":"g1","description":"d","files":{"src/a.js":{"filename":"src/a.js","content":"a"}}}`)
		case r.Method == http.MethodPatch && r.URL.Path == "/gists/g1":
			body, _ := io.ReadAll(r.Body)
			gotBody = string(body)
			_, _ = io.WriteString(w, `{"id":"g1"}`)
		case r.Method == http.MethodGet && r.URL.Path == "/gists":
			_, _ = io.WriteString(w, `[{"id":"g1","description":"d","files":{"a.js":{"filename":"a.js"}}}]`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "secret")
	ctx := context.Background()

	g, err := c.Create(ctx, "desc", false, Files{{Filename: "a.js", Content: "a"}})
	require.NoError(t, err)
	require.Equal(t, "g1", g.ID)
	require.Equal(t, "https://gist.example/g1", g.HTMLURL)
	require.Equal(t, "token secret", gotAuth)
	require.JSONEq(t, `{"description":"desc","public":false,"files":{"a.js":{"content":"a"}}}`, gotBody)

	got, err := c.Get(ctx, "g1")
	require.NoError(t, err)
	require.Equal(t, "d", got.Description)
	require.Equal(t, []string{"src/a.js"}, got.Files.Names())

	_, err = c.Update(ctx, "g1", "", Files{{Filename: "b.js", Content: "b"}})
	require.NoError(t, err)
	require.JSONEq(t, `{"files":{"b.js":{"content":"b"}}}`, gotBody)

	list, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "g1", list[0].ID)
}

func TestClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Bad credentials"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "bad").Get(context.Background(), "x")
	require.True(t, errors.Is(err, errors.ErrUpstream), "got %v", err)
	require.Contains(t, err.Error(), "GitHub API error: 401 Unauthorized")
}

func TestClient_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":"g1","files":[1,2]}`)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "t").Get(context.Background(), "g1")
	require.True(t, errors.Is(err, errors.ErrUpstream), "got %v", err)
}

func TestClient_Cancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClient(srv.URL, "t").List(ctx)
	require.True(t, errors.Is(err, errors.ErrCancelled), "got %v", err)
}

func TestClient_GetSharesInFlightRequest(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		_, _ = io.WriteString(w, `{"id":"g1","files":{"a":{"content":"a"}}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "t")
	const n = 5
	var wg sync.WaitGroup
	results := make([]*Gist, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			g, err := c.Get(context.Background(), "g1")
			if err == nil {
				results[i] = g
			}
		}(i)
	}
	// Give every goroutine time to join the in-flight call.
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), calls.Load())
	for _, g := range results {
		require.NotNil(t, g)
		require.Equal(t, "g1", g.ID)
	}
}

func TestToken(t *testing.T) {
	ctx := context.Background()
	store := workspace.NewMemoryStore()

	_, err := ResolveToken(ctx, store, "", "")
	require.True(t, errors.Is(err, errors.ErrUnauthorized))

	require.True(t, errors.Is(SaveToken(ctx, store, "  "), errors.ErrInvalidRequest))
	require.NoError(t, SaveToken(ctx, store, " ghp_abc \n"))

	raw, ok, _ := store.Load(ctx, workspace.KeyToken)
	require.True(t, ok)
	require.Equal(t, "ghp_abc", raw, "token is stored as plain text")

	tok, err := ResolveToken(ctx, store, "", "")
	require.NoError(t, err)
	require.Equal(t, "ghp_abc", tok)

	tok, err = ResolveToken(ctx, store, "", "from-env")
	require.NoError(t, err)
	require.Equal(t, "from-env", tok)

	tok, err = ResolveToken(ctx, store, "explicit", "from-env")
	require.NoError(t, err)
	require.Equal(t, "explicit", tok)
	require.False(t, strings.Contains(tok, " "))
}
