package tree

import (
	"encoding/json"
	"strings"
	"testing"
)

// sampleForest builds:
//
//	src/
//	  app.js
//	  lib/
//	    util.js
//	index.html
func sampleForest(t *testing.T) (Forest, map[string]string) {
	t.Helper()
	src := NewFolder("src")
	app := NewFile("app.js", "console.log(1)")
	lib := NewFolder("lib")
	util := NewFile("util.js", "export {}")
	index := NewFile("index.html", "<h1>hi</h1>")

	var f Forest
	var ok bool
	for _, step := range []struct {
		parent string
		node   Node
	}{
		{Root, src},
		{src.ID, app},
		{src.ID, lib},
		{lib.ID, util},
		{Root, index},
	} {
		f, ok = Insert(f, step.parent, step.node)
		if !ok {
			t.Fatalf("Insert(%q) not applied", step.node.NodeName())
		}
	}
	return f, map[string]string{
		"src": src.ID, "app": app.ID, "lib": lib.ID, "util": util.ID, "index": index.ID,
	}
}

func TestNewID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 10000; i++ {
		id := NewID()
		if seen[id] {
			t.Fatalf("duplicate id %q after %d iterations", id, i)
		}
		seen[id] = true
	}
}

func TestNew_Defaults(t *testing.T) {
	file := New("a.txt", KindFile, "")
	f, ok := file.(*File)
	if !ok {
		t.Fatalf("New(file) returned %T", file)
	}
	if f.Content == nil || *f.Content != "" {
		t.Errorf("Content = %v, want empty string", f.Content)
	}
	if f.Unsaved {
		t.Error("new file should not be unsaved")
	}

	folder := New("dir", KindFolder, "ignored")
	d, ok := folder.(*Folder)
	if !ok {
		t.Fatalf("New(folder) returned %T", folder)
	}
	if d.Children == nil || len(d.Children) != 0 {
		t.Errorf("Children = %v, want empty non-nil", d.Children)
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
		ok   bool
	}{
		{"file", KindFile, true},
		{"folder", KindFolder, true},
		{"dir", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseKind(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseKind(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestInsertFind_RoundTrip(t *testing.T) {
	f, ids := sampleForest(t)
	for name, id := range ids {
		n := Find(f, id)
		if n == nil {
			t.Errorf("Find(%s) = nil", name)
			continue
		}
		if n.NodeID() != id {
			t.Errorf("Find(%s).NodeID() = %q, want %q", name, n.NodeID(), id)
		}
	}

	lib := Find(f, ids["lib"]).(*Folder)
	if len(lib.Children) != 1 || lib.Children[0].NodeID() != ids["util"] {
		t.Errorf("lib children = %v, want [util]", lib.Children)
	}
}

func TestInsert_NoOp(t *testing.T) {
	f, ids := sampleForest(t)

	tests := []struct {
		name   string
		parent string
	}{
		{"absent parent", "missing"},
		{"file parent", ids["app"]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewFile("x.js", "")
			got, ok := Insert(f, tt.parent, n)
			if ok {
				t.Fatal("Insert should not apply")
			}
			if Find(got, n.ID) != nil {
				t.Error("node should not be in the forest")
			}
			if len(got) != len(f) || &got[0] != &f[0] {
				t.Error("no-op should return the input forest")
			}
		})
	}
}

func TestInsert_DoesNotMutateInput(t *testing.T) {
	f, ids := sampleForest(t)
	before := Find(f, ids["src"]).(*Folder)
	beforeLen := len(before.Children)

	after, ok := Insert(f, ids["src"], NewFile("new.js", ""))
	if !ok {
		t.Fatal("Insert not applied")
	}
	if len(before.Children) != beforeLen {
		t.Errorf("input folder mutated: %d children, want %d", len(before.Children), beforeLen)
	}
	if got := len(Find(after, ids["src"]).(*Folder).Children); got != beforeLen+1 {
		t.Errorf("output folder has %d children, want %d", got, beforeLen+1)
	}
}

func TestRemove_Subtree(t *testing.T) {
	f, ids := sampleForest(t)

	got, ok := Remove(f, ids["src"])
	if !ok {
		t.Fatal("Remove not applied")
	}
	for _, key := range []string{"src", "app", "lib", "util"} {
		if Find(got, ids[key]) != nil {
			t.Errorf("%s still present after removing src", key)
		}
	}
	if Find(got, ids["index"]) == nil {
		t.Error("sibling index.html removed")
	}
	if Find(f, ids["util"]) == nil {
		t.Error("input forest mutated")
	}
}

func TestRemove_PreservesSiblingOrder(t *testing.T) {
	var f Forest
	a, b, c := NewFile("a", ""), NewFile("b", ""), NewFile("c", "")
	for _, n := range []Node{a, b, c} {
		f, _ = Insert(f, Root, n)
	}
	got, ok := Remove(f, b.ID)
	if !ok {
		t.Fatal("Remove not applied")
	}
	if len(got) != 2 || got[0].NodeID() != a.ID || got[1].NodeID() != c.ID {
		t.Errorf("order = %v, want [a c]", got)
	}
}

func TestRemove_Absent(t *testing.T) {
	f, _ := sampleForest(t)
	got, ok := Remove(f, "missing")
	if ok {
		t.Error("Remove of absent id should not apply")
	}
	if Count(got) != Count(f) {
		t.Error("forest changed")
	}
}

func TestUpdateContent_Isolation(t *testing.T) {
	f, ids := sampleForest(t)

	got, ok := UpdateContent(f, ids["util"], "changed")
	if !ok {
		t.Fatal("UpdateContent not applied")
	}
	util, _ := FindFile(got, ids["util"])
	if util.Text() != "changed" || !util.Unsaved {
		t.Errorf("util = %q unsaved=%v, want %q unsaved=true", util.Text(), util.Unsaved, "changed")
	}

	app, _ := FindFile(got, ids["app"])
	if app.Text() != "console.log(1)" || app.Unsaved {
		t.Error("sibling file changed")
	}
	orig, _ := FindFile(f, ids["util"])
	if orig.Text() != "export {}" || orig.Unsaved {
		t.Error("input forest mutated")
	}
}

func TestUpdateContent_FolderIsNoOp(t *testing.T) {
	f, ids := sampleForest(t)
	_, ok := UpdateContent(f, ids["lib"], "x")
	if ok {
		t.Error("UpdateContent on a folder should not apply")
	}
}

func TestRename(t *testing.T) {
	f, ids := sampleForest(t)

	got, ok := Rename(f, ids["lib"], "pkg")
	if !ok {
		t.Fatal("Rename not applied")
	}
	path, ok := FindPath(got, ids["util"])
	if !ok || path != "src/pkg/util.js" {
		t.Errorf("FindPath = %q, %v, want src/pkg/util.js", path, ok)
	}

	if _, ok := Rename(f, "missing", "x"); ok {
		t.Error("Rename of absent id should not apply")
	}
}

func TestClearUnsaved(t *testing.T) {
	f, ids := sampleForest(t)
	f, _ = UpdateContent(f, ids["app"], "v2")

	got, ok := ClearUnsaved(f, ids["app"])
	if !ok {
		t.Fatal("ClearUnsaved not applied")
	}
	app, _ := FindFile(got, ids["app"])
	if app.Unsaved {
		t.Error("Unsaved still set")
	}
	if app.Text() != "v2" {
		t.Errorf("content = %q, want v2", app.Text())
	}
}

func TestFindPath(t *testing.T) {
	f, ids := sampleForest(t)
	tests := []struct {
		key  string
		want string
	}{
		{"src", "src"},
		{"app", "src/app.js"},
		{"util", "src/lib/util.js"},
		{"index", "index.html"},
	}
	for _, tt := range tests {
		got, ok := FindPath(f, ids[tt.key])
		if !ok || got != tt.want {
			t.Errorf("FindPath(%s) = %q, %v, want %q", tt.key, got, ok, tt.want)
		}
	}
	if _, ok := FindPath(f, "missing"); ok {
		t.Error("FindPath of absent id should fail")
	}
}

func TestFindByPath(t *testing.T) {
	f, ids := sampleForest(t)
	tests := []struct {
		path string
		want string
	}{
		{"src/lib/util.js", ids["util"]},
		{"/src/app.js", ids["app"]},
		{"index.html", ids["index"]},
		{"src/missing.js", ""},
		{"index.html/child", ""},
		{"", ""},
	}
	for _, tt := range tests {
		n := FindByPath(f, tt.path)
		got := ""
		if n != nil {
			got = n.NodeID()
		}
		if got != tt.want {
			t.Errorf("FindByPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestWalk_OrderAndSkip(t *testing.T) {
	f, _ := sampleForest(t)

	var paths []string
	err := Walk(f, func(path string, n Node) error {
		paths = append(paths, path)
		if n.NodeName() == "lib" {
			return SkipChildren
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	want := "src,src/app.js,src/lib,index.html"
	if got := strings.Join(paths, ","); got != want {
		t.Errorf("paths = %s, want %s", got, want)
	}
}

func TestFileIDs(t *testing.T) {
	f, ids := sampleForest(t)
	got := FileIDs(f, ids["src"])
	if len(got) != 2 || got[0] != ids["app"] || got[1] != ids["util"] {
		t.Errorf("FileIDs(src) = %v, want [app util]", got)
	}
	if got := FileIDs(f, ids["index"]); len(got) != 1 || got[0] != ids["index"] {
		t.Errorf("FileIDs(index) = %v, want [index]", got)
	}
	if got := FileIDs(f, "missing"); got != nil {
		t.Errorf("FileIDs(missing) = %v, want nil", got)
	}
}

func TestGlob(t *testing.T) {
	f, _ := sampleForest(t)

	tests := []struct {
		pattern string
		want    []string
	}{
		{"**/*.js", []string{"src/app.js", "src/lib/util.js"}},
		{"*.html", []string{"index.html"}},
		{"src/*", []string{"src/app.js", "src/lib"}},
		{"nothing", nil},
	}
	for _, tt := range tests {
		matches, err := Glob(f, tt.pattern)
		if err != nil {
			t.Fatalf("Glob(%q) failed: %v", tt.pattern, err)
		}
		var got []string
		for _, m := range matches {
			got = append(got, m.Path)
		}
		if strings.Join(got, ",") != strings.Join(tt.want, ",") {
			t.Errorf("Glob(%q) = %v, want %v", tt.pattern, got, tt.want)
		}
	}

	if _, err := Glob(f, "src/[a"); err == nil {
		t.Error("Glob with bad pattern should fail")
	}
}

func TestCount(t *testing.T) {
	f, ids := sampleForest(t)
	f, _ = UpdateContent(f, ids["app"], "12345")
	s := Count(f)
	if s.Files != 3 || s.Folders != 2 || s.Unsaved != 1 {
		t.Errorf("Count = %+v", s)
	}
	want := len("12345") + len("export {}") + len("<h1>hi</h1>")
	if s.Bytes != want {
		t.Errorf("Bytes = %d, want %d", s.Bytes, want)
	}
}

func TestLanguage(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"app.js", "javascript"},
		{"App.TSX", "typescript"},
		{"index.htm", "html"},
		{"main.go", "go"},
		{"lib.rs", "rust"},
		{"notes.markdown", "markdown"},
		{"run.zsh", "shell"},
		{"ci.yml", "yaml"},
		{"archive.tar.gz", "plaintext"},
		{"Makefile", "plaintext"},
		{"js", "javascript"},
		{"HTML", "html"},
		{"", "plaintext"},
	}
	for _, tt := range tests {
		if got := Language(tt.name); got != tt.want {
			t.Errorf("Language(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestExt(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"app.JS", "js"},
		{"archive.tar.gz", "gz"},
		{"js", "js"},
		{"Makefile", "makefile"},
		{".env", "env"},
		{"trailing.", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Ext(tt.name); got != tt.want {
			t.Errorf("Ext(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestForestJSON(t *testing.T) {
	f, ids := sampleForest(t)
	f, _ = UpdateContent(f, ids["util"], "v2")

	data, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.Contains(string(data), `"type":"folder"`) || !strings.Contains(string(data), `"isUnsaved":true`) {
		t.Errorf("unexpected wire format: %s", data)
	}

	var got Forest
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	util, ok := FindFile(got, ids["util"])
	if !ok || util.Text() != "v2" || !util.Unsaved {
		t.Errorf("util after round trip = %+v", util)
	}
	path, _ := FindPath(got, ids["util"])
	if path != "src/lib/util.js" {
		t.Errorf("path = %q", path)
	}
}

func TestForestJSON_Lenient(t *testing.T) {
	raw := `[
		{"id":"1","name":"dir","type":"folder"},
		{"id":"2","name":"implicit","children":[{"id":"3","name":"a.txt","type":"file"}]},
		{"id":"4","name":"b.txt","type":"file","content":""}
	]`
	var f Forest
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	dir, ok := Find(f, "1").(*Folder)
	if !ok || dir.Children == nil {
		t.Errorf("folder without children key = %#v", Find(f, "1"))
	}
	if _, ok := Find(f, "2").(*Folder); !ok {
		t.Error("node with children should decode as folder")
	}
	a, ok := FindFile(f, "3")
	if !ok || a.Content != nil {
		t.Error("file without content should have nil Content")
	}
	b, _ := FindFile(f, "4")
	if b.Content == nil || *b.Content != "" {
		t.Error("empty content should be preserved as empty, not nil")
	}
}

func TestForestJSON_TypeWins(t *testing.T) {
	raw := `[
		{"id":"1","name":"a.js","type":"file","content":"x","children":[{"id":"2","name":"lost.txt","type":"file"}]},
		{"id":"3","name":"odd","type":"other","children":[]}
	]`
	var f Forest
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	a, ok := FindFile(f, "1")
	if !ok || a.Text() != "x" {
		t.Fatalf("typed file with children = %#v, want a file", Find(f, "1"))
	}
	if Find(f, "2") != nil {
		t.Error("children of a file should be dropped")
	}
	if _, ok := Find(f, "3").(*Folder); !ok {
		t.Error("unknown type with children should decode as folder")
	}
}

func TestForestJSON_Invalid(t *testing.T) {
	var f Forest
	if err := json.Unmarshal([]byte(`{"not":"an array"}`), &f); err == nil {
		t.Error("expected error for non-array forest")
	}
}

// TestScenario_CreateEditDelete runs the create/edit/delete flow end to end.
func TestScenario_CreateEditDelete(t *testing.T) {
	var f Forest
	src := NewFolder("src")
	f, _ = Insert(f, Root, src)
	app := NewFile("app.js", "")
	f, _ = Insert(f, src.ID, app)
	f, _ = UpdateContent(f, app.ID, "let x = 1;")

	got, _ := FindFile(f, app.ID)
	if got.Text() != "let x = 1;" || !got.Unsaved {
		t.Fatalf("app = %q unsaved=%v", got.Text(), got.Unsaved)
	}
	if path, _ := FindPath(f, app.ID); path != "src/app.js" {
		t.Fatalf("path = %q", path)
	}

	f, _ = Remove(f, src.ID)
	if len(f) != 0 {
		t.Errorf("forest = %v, want empty", f)
	}
}
