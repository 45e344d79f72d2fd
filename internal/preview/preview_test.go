package preview

import (
	"strings"
	"testing"

	"github.com/hpungsan/harbor/internal/errors"
	"github.com/hpungsan/harbor/internal/tree"
)

func TestSanitizeHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"script block", "<div>x</div><script>alert(1)</script>", "<div>x</div>"},
		{"script with attrs", `<p>a</p><SCRIPT type="module">
let a = 1;
</SCRIPT><p>b</p>`, "<p>a</p><p>b</p>"},
		{"inline handler", `<button onclick="x()">hi</button>`, "<button >hi</button>"},
		{"mixed case handler", `<img ONERROR="bad()" src="a.png">`, `<img  src="a.png">`},
		{"javascript scheme", `<a href="JavaScript:void(0)">x</a>`, `<a href="void(0)">x</a>`},
		{"single quoted handler survives", `<b onclick='x()'>b</b>`, `<b onclick='x()'>b</b>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeHTML(tt.in); got != tt.want {
				t.Errorf("SanitizeHTML(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitizeCSS(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"@import url(x); body{color:red}", " url(x); body{color:red}"},
		{"div { width: expression (alert(1)); }", "div { width: alert(1)); }"},
		{"a { background: url(javascript:x) }", "a { background: url(x) }"},
	}
	for _, tt := range tests {
		if got := SanitizeCSS(tt.in); got != tt.want {
			t.Errorf("SanitizeCSS(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitize_SafeInputUnchanged(t *testing.T) {
	html := `<main class="c"><h1 id="t">Title</h1><a href="https://example.com">link</a></main>`
	if got := SanitizeHTML(html); got != html {
		t.Errorf("SanitizeHTML changed safe input: %q", got)
	}
	css := "body { color: red; }\n.c > h1 { margin: 0 auto; }"
	if got := SanitizeCSS(css); got != css {
		t.Errorf("SanitizeCSS changed safe input: %q", got)
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	in := `<div onclick="a()">x</div><script>1</script>`
	once := SanitizeHTML(in)
	if twice := SanitizeHTML(once); twice != once {
		t.Errorf("not idempotent: %q then %q", once, twice)
	}
}

func TestGuardScript(t *testing.T) {
	got := GuardScript("throw new Error('x')")
	if !strings.Contains(got, "try {") || !strings.Contains(got, "throw new Error('x')") {
		t.Errorf("GuardScript missing body: %q", got)
	}
	if !strings.Contains(got, "console.error('JavaScript Error:', error.message);") {
		t.Errorf("GuardScript missing catch report: %q", got)
	}
}

func TestCompose_Scenario(t *testing.T) {
	doc := Compose(`<button onclick="x()">hi</button>`, "@import url(x); body{color:red}", "console.log('hi')")

	if strings.Contains(doc, "onclick=") {
		t.Error("document still has onclick attribute")
	}
	if strings.Contains(doc, "@import") {
		t.Error("document still has @import")
	}
	if !strings.Contains(doc, "color:red") {
		t.Error("document lost color:red")
	}

	bridge := strings.Index(doc, "window.parent.postMessage")
	errListener := strings.Index(doc, "window.addEventListener('error'")
	user := strings.Index(doc, "console.log('hi')")
	if bridge < 0 || errListener < 0 || user < 0 {
		t.Fatalf("missing pieces: bridge=%d listener=%d user=%d", bridge, errListener, user)
	}
	if !(bridge < errListener && errListener < user) {
		t.Errorf("instrumentation must precede user JS: bridge=%d listener=%d user=%d", bridge, errListener, user)
	}
}

func TestCompose_Structure(t *testing.T) {
	doc := Compose("<p>x</p>", "", "")
	for _, want := range []string{
		"<!DOCTYPE html>",
		`http-equiv="Content-Security-Policy"`,
		"'unsafe-eval'",
		"data: blob:",
		"<style>",
		"<p>x</p>",
		"Error: ${event.message} at line ${event.lineno}",
		"level: 'warn'",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("document missing %q", want)
		}
	}
	if strings.Index(doc, "<style>") > strings.Index(doc, "<p>x</p>") {
		t.Error("style block should come before body content")
	}
	if strings.Count(doc, "<script>") != 1 {
		t.Errorf("want exactly one script block, got %d", strings.Count(doc, "<script>"))
	}
}

func TestCompose_ScriptsInHTMLDropped(t *testing.T) {
	doc := Compose("<div>x</div><script>alert(1)</script>", "", "")
	if strings.Contains(doc, "alert(1)") {
		t.Error("inline script from HTML should be dropped")
	}
	if !strings.Contains(doc, "<div>x</div>") {
		t.Error("HTML body lost")
	}
}

func TestSelect(t *testing.T) {
	var f tree.Forest
	src := tree.NewFolder("src")
	f, _ = tree.Insert(f, tree.Root, src)
	f, _ = tree.Insert(f, src.ID, tree.NewFile("main.JSX", "first js"))
	f, _ = tree.Insert(f, src.ID, tree.NewFile("page.HTM", "<p>nested</p>"))
	f, _ = tree.Insert(f, tree.Root, tree.NewFile("index.html", "<p>root</p>"))
	f, _ = tree.Insert(f, tree.Root, tree.NewFile("a.css", "a{}"))
	f, _ = tree.Insert(f, tree.Root, tree.NewFile("b.css", "b{}"))
	f, _ = tree.Insert(f, tree.Root, tree.NewFile("later.js", "second js"))

	s := Select(f)
	if s.HTML != "<p>nested</p>" || s.HTMLPath != "src/page.HTM" {
		t.Errorf("HTML = %q (%s), want nested page", s.HTML, s.HTMLPath)
	}
	if s.CSS != "a{}" {
		t.Errorf("CSS = %q, want a{}", s.CSS)
	}
	if s.JS != "first js" {
		t.Errorf("JS = %q, want first js", s.JS)
	}
}

func TestSelect_DotlessNames(t *testing.T) {
	var f tree.Forest
	f, _ = tree.Insert(f, tree.Root, tree.NewFile("notes", "plain"))
	f, _ = tree.Insert(f, tree.Root, tree.NewFile("html", "<p>bare</p>"))
	f, _ = tree.Insert(f, tree.Root, tree.NewFile("JS", "bare js"))

	s := Select(f)
	if s.HTML != "<p>bare</p>" || s.HTMLPath != "html" {
		t.Errorf("HTML = %q (%s), want the file named html", s.HTML, s.HTMLPath)
	}
	if s.JS != "bare js" {
		t.Errorf("JS = %q, want the file named JS", s.JS)
	}
}

func TestSelect_Missing(t *testing.T) {
	var f tree.Forest
	f, _ = tree.Insert(f, tree.Root, tree.NewFile("README.md", "# hi"))
	s := Select(f)
	if s.HTML != Placeholder {
		t.Errorf("HTML = %q, want placeholder", s.HTML)
	}
	if s.CSS != "" || s.JS != "" || s.CSSPath != "" || s.JSPath != "" {
		t.Errorf("CSS/JS should be empty: %+v", s)
	}
	if !strings.Contains(ComposeSources(s), Placeholder) {
		t.Error("composed document missing placeholder")
	}
}

func TestRegistry_Lifecycle(t *testing.T) {
	r := NewRegistry(0)

	doc, err := r.Publish("one")
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if doc.Handle == "" || doc.ETag == "" {
		t.Fatalf("document missing handle or etag: %+v", doc)
	}
	got, ok := r.Get(doc.Handle)
	if !ok || got.Body != "one" {
		t.Fatalf("Get = %v, %v", got, ok)
	}

	next, err := r.Replace(doc.Handle, "two")
	if err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	if _, ok := r.Get(doc.Handle); ok {
		t.Error("old handle should be released")
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
	if next.ETag == doc.ETag {
		t.Error("different bodies should have different etags")
	}

	if !r.Release(next.Handle) {
		t.Error("Release of live handle should report true")
	}
	if r.Release(next.Handle) {
		t.Error("second Release should report false")
	}
}

func TestRegistry_EvictsOldest(t *testing.T) {
	r := NewRegistry(2)
	a, _ := r.Publish("a")
	b, _ := r.Publish("b")
	c, _ := r.Publish("c")

	if _, ok := r.Get(a.Handle); ok {
		t.Error("oldest handle should be evicted")
	}
	for _, d := range []*Document{b, c} {
		if _, ok := r.Get(d.Handle); !ok {
			t.Errorf("handle %s should be live", d.Body)
		}
	}
}

func TestRegistry_ReplaceAtCapacity(t *testing.T) {
	r := NewRegistry(2)
	a, _ := r.Publish("a")
	b, _ := r.Publish("b")

	c, err := r.Replace(b.Handle, "c")
	if err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	if r.Len() != 2 {
		t.Errorf("Len = %d, want 2", r.Len())
	}
	if _, ok := r.Get(a.Handle); !ok {
		t.Error("unrelated handle should survive a replace")
	}
	if _, ok := r.Get(c.Handle); !ok {
		t.Error("new handle should be live")
	}
	if !strings.HasPrefix(c.ETag, `"`) || !strings.HasSuffix(c.ETag, `"`) || strings.HasPrefix(c.ETag, `""`) {
		t.Errorf("ETag = %q, want one pair of quotes", c.ETag)
	}
}

func TestRegistry_Closed(t *testing.T) {
	r := NewRegistry(4)
	doc, _ := r.Publish("x")
	r.Close()

	if _, ok := r.Get(doc.Handle); ok {
		t.Error("Close should release all handles")
	}
	_, err := r.Publish("y")
	if !errors.Is(err, errors.ErrPreviewFailed) {
		t.Errorf("Publish after Close = %v, want PREVIEW_FAILED", err)
	}
}

func TestParseConsoleMessage(t *testing.T) {
	msg, err := ParseConsoleMessage([]byte(`{"type":"console","level":"warn","args":["a","1"]}`))
	if err != nil {
		t.Fatalf("ParseConsoleMessage failed: %v", err)
	}
	if msg.Level != LevelWarn || len(msg.Args) != 2 {
		t.Errorf("msg = %+v", msg)
	}

	msg, err = ParseConsoleMessage([]byte(`{"type":"console","level":"debug"}`))
	if err != nil {
		t.Fatalf("ParseConsoleMessage failed: %v", err)
	}
	if msg.Level != LevelLog || msg.Args == nil {
		t.Errorf("unknown level should default to log with empty args: %+v", msg)
	}

	for _, raw := range []string{`{"type":"resize"}`, `not json`} {
		if _, err := ParseConsoleMessage([]byte(raw)); err == nil {
			t.Errorf("ParseConsoleMessage(%s) should fail", raw)
		}
	}
}
