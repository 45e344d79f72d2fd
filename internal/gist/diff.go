package gist

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Change kinds reported by Diff.
const (
	Added     = "added"
	Removed   = "removed"
	Modified  = "modified"
	Unchanged = "unchanged"
)

// FileDiff is the comparison of one filename between local and remote.
type FileDiff struct {
	Filename  string `json:"filename"`
	Status    string `json:"status"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	Patch     string `json:"patch,omitempty"`
}

// Diff compares local against remote. "added" means present locally but not
// remotely. Local files come first in local order, then remote-only files.
func Diff(local, remote Files) []FileDiff {
	var out []FileDiff
	local = local.Collapse()
	seen := make(map[string]bool, len(local))
	for _, lf := range local {
		seen[lf.Filename] = true

		rc, ok := remote.Get(lf.Filename)
		switch {
		case !ok:
			out = append(out, lineDiff(lf.Filename, Added, "", lf.Content))
		case rc == lf.Content:
			out = append(out, FileDiff{Filename: lf.Filename, Status: Unchanged})
		default:
			out = append(out, lineDiff(lf.Filename, Modified, rc, lf.Content))
		}
	}
	for _, rf := range remote.Collapse() {
		if seen[rf.Filename] {
			continue
		}
		seen[rf.Filename] = true
		out = append(out, lineDiff(rf.Filename, Removed, rf.Content, ""))
	}
	return out
}

// lineDiff renders a line-level diff from before to after with " ", "-" and
// "+" prefixes.
func lineDiff(name, status, before, after string) FileDiff {
	dmp := diffmatchpatch.New()
	chars1, chars2, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(chars1, chars2, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)

	d := FileDiff{Filename: name, Status: status}
	var b strings.Builder
	for _, chunk := range diffs {
		if chunk.Text == "" {
			continue
		}
		prefix := " "
		switch chunk.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}
		for _, line := range strings.Split(strings.TrimSuffix(chunk.Text, "\n"), "\n") {
			switch chunk.Type {
			case diffmatchpatch.DiffDelete:
				d.Deletions++
			case diffmatchpatch.DiffInsert:
				d.Additions++
			}
			b.WriteString(prefix)
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	d.Patch = b.String()
	return d
}
